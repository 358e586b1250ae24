package models

import (
	"time"
)

// TimeOffType is the kind of leave requested
type TimeOffType string

const (
	TimeOffVacation    TimeOffType = "vacation"
	TimeOffSickLeave   TimeOffType = "sick_leave"
	TimeOffPersonal    TimeOffType = "personal"
	TimeOffBereavement TimeOffType = "bereavement"
	TimeOffMaternity   TimeOffType = "maternity"
	TimeOffPaternity   TimeOffType = "paternity"
	TimeOffUnpaid      TimeOffType = "unpaid"
)

// TimeOffStatus is the approval state of a request
type TimeOffStatus string

const (
	TimeOffPending   TimeOffStatus = "pending"
	TimeOffApproved  TimeOffStatus = "approved"
	TimeOffRejected  TimeOffStatus = "rejected"
	TimeOffCancelled TimeOffStatus = "cancelled"
)

// AnnualAllowance is the yearly entitlement in days per leave type.
// Types not listed are not tracked in balances.
var AnnualAllowance = map[TimeOffType]int{
	TimeOffVacation:  20,
	TimeOffSickLeave: 10,
	TimeOffPersonal:  5,
}

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// TimeOffRequest is an employee's leave request driven by the workflow engine
type TimeOffRequest struct {
	ID                string        `json:"id" db:"id"`
	TenantID          string        `json:"tenant_id" db:"tenant_id"`
	EmployeeID        string        `json:"employee_id" db:"employee_id"`
	Type              TimeOffType   `json:"type" db:"type"`
	StartDate         time.Time     `json:"start_date" db:"start_date"`
	EndDate           time.Time     `json:"end_date" db:"end_date"`
	DaysRequested     int           `json:"days_requested" db:"days_requested"`
	Reason            string        `json:"reason" db:"reason"`
	EmergencyContact  *string       `json:"emergency_contact,omitempty" db:"emergency_contact"`
	Status            TimeOffStatus `json:"status" db:"status"`
	BusinessKey       string        `json:"business_key" db:"business_key"`
	ProcessInstanceID *string       `json:"process_instance_id,omitempty" db:"process_instance_id"`
	SubmittedBy       string        `json:"submitted_by" db:"submitted_by"`
	ApprovedBy        *string       `json:"approved_by,omitempty" db:"approved_by"`
	ApproverComments  *string       `json:"approver_comments,omitempty" db:"approver_comments"`
	SubmittedAt       time.Time     `json:"submitted_at" db:"submitted_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the TimeOffRequest model
func (TimeOffRequest) TableName() string {
	return "time_off_requests"
}

// NewTimeOffRequest creates a pending request. Days are counted inclusively.
func NewTimeOffRequest(tenantID, employeeID string, kind TimeOffType, start, end time.Time, reason, submittedBy string) *TimeOffRequest {
	now := time.Now()
	id := NewPrefixedID("REQ", 8)
	return &TimeOffRequest{
		ID:            id,
		TenantID:      tenantID,
		EmployeeID:    employeeID,
		Type:          kind,
		StartDate:     start,
		EndDate:       end,
		DaysRequested: InclusiveDays(start, end),
		Reason:        reason,
		Status:        TimeOffPending,
		BusinessKey:   "timeoff-" + id,
		SubmittedBy:   submittedBy,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
}

// InclusiveDays counts calendar days from start to end, both included.
// It is zero or negative when end precedes start.
func InclusiveDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// TimeOffBalance is the per-type usage of an employee for one year
type TimeOffBalance struct {
	TotalDays     int `json:"total_days"`
	UsedDays      int `json:"used_days"`
	PendingDays   int `json:"pending_days"`
	AvailableDays int `json:"available_days"`
}

// TimeOffBalances groups balances for an employee
type TimeOffBalances struct {
	EmployeeID string                         `json:"employee_id"`
	Year       int                            `json:"year"`
	Balances   map[TimeOffType]TimeOffBalance `json:"balances"`
}

// TimeOffFilter narrows time-off listings
type TimeOffFilter struct {
	EmployeeID string
	Status     *TimeOffStatus
	Skip       int
	Limit      int
}
