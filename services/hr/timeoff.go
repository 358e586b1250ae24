package hr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/erp-backend/internal/workflow"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"github.com/upb/erp-backend/services"
	"github.com/upb/erp-backend/services/audit"
	"go.uber.org/zap"
)

// TimeOffMessage is the message that starts the approval process
const TimeOffMessage = "TimeOffRequestMessage"

// Workflow is the part of the workflow engine client used for approvals
type Workflow interface {
	CorrelateMessage(ctx context.Context, req workflow.MessageRequest) (*workflow.CorrelationResult, error)
	ListTasks(ctx context.Context, q workflow.TaskQuery) ([]workflow.Task, error)
	CompleteTask(ctx context.Context, taskID string, vars map[string]interface{}) error
	DeleteProcessInstance(ctx context.Context, id, reason string) error
}

// Caller identifies the authenticated user acting on a request
type Caller struct {
	UserID string
	Email  string
}

// SubmitTimeOffInput is the payload of a new time-off request
type SubmitTimeOffInput struct {
	EmployeeID       string             `json:"employee_id" validate:"required,max=50"`
	Type             models.TimeOffType `json:"type" validate:"required,oneof=vacation sick_leave personal bereavement maternity paternity unpaid"`
	StartDate        string             `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string             `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason           string             `json:"reason" validate:"required,min=10,max=500"`
	EmergencyContact *string            `json:"emergency_contact,omitempty" validate:"omitempty,max=200"`
}

// DecisionInput approves or rejects a request
type DecisionInput struct {
	Approved bool    `json:"approved"`
	Comments *string `json:"comments,omitempty" validate:"omitempty,max=500"`
}

// SubmitResult reports the stored request and the workflow it started
type SubmitResult struct {
	Success           bool                   `json:"success"`
	ProcessInstanceID *string                `json:"process_instance_id"`
	BusinessKey       string                 `json:"business_key"`
	Message           string                 `json:"message"`
	TimeOffRequestID  string                 `json:"time_off_request_id"`
	Request           *models.TimeOffRequest `json:"request"`
}

// TimeOffDetails is a request with its current approval step, when known
type TimeOffDetails struct {
	*models.TimeOffRequest
	CurrentTask *string `json:"current_task,omitempty"`
}

// TimeOffService runs time-off requests through the approval workflow
type TimeOffService struct {
	requests  repositories.TimeOffRepository
	employees repositories.EmployeeRepository
	workflow  Workflow
	audit     audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimeOffService creates a time-off service. employees and recorder may be nil.
func NewTimeOffService(requests repositories.TimeOffRepository, employees repositories.EmployeeRepository, wf Workflow, recorder audit.Recorder, logger *zap.Logger) *TimeOffService {
	return &TimeOffService{
		requests:  requests,
		employees: employees,
		workflow:  wf,
		audit:     recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit stores a pending request and starts its approval process. A
// workflow failure leaves the request stored without a process instance.
func (s *TimeOffService) Submit(ctx context.Context, tenantID string, caller Caller, in SubmitTimeOffInput) (*SubmitResult, error) {
	start, err := time.Parse(models.DateLayout, in.StartDate)
	if err != nil {
		return nil, services.BadRequest("Invalid start_date '%s'", in.StartDate)
	}
	end, err := time.Parse(models.DateLayout, in.EndDate)
	if err != nil {
		return nil, services.BadRequest("Invalid end_date '%s'", in.EndDate)
	}
	if models.InclusiveDays(start, end) <= 0 {
		return nil, services.ErrInvalidDateRange
	}

	req := models.NewTimeOffRequest(tenantID, in.EmployeeID, in.Type, start, end, in.Reason, caller.UserID)
	req.EmergencyContact = in.EmergencyContact

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, services.WrapInternal("failed to store time-off request", err)
	}

	s.logger.Info("time-off request submitted",
		zap.String("request_id", req.ID),
		zap.String("employee_id", req.EmployeeID),
		zap.Int("days_requested", req.DaysRequested),
		zap.String("tenant_id", tenantID))

	result := &SubmitResult{
		Success:          true,
		BusinessKey:      req.BusinessKey,
		TimeOffRequestID: req.ID,
		Request:          req,
	}

	correlation, err := s.workflow.CorrelateMessage(ctx, workflow.MessageRequest{
		MessageName:      TimeOffMessage,
		BusinessKey:      req.BusinessKey,
		TenantID:         tenantID,
		ProcessVariables: s.processVariables(ctx, req, caller),
	})
	if err != nil {
		s.logger.Error("approval workflow not started",
			zap.String("request_id", req.ID),
			zap.Error(err))
		result.Success = false
		result.Message = "Time-off request saved, but the approval workflow could not be started."
		s.record(ctx, models.AuditActionTimeOffSubmitted, req, caller.UserID, map[string]interface{}{
			"workflow_started": false,
		})
		return result, nil
	}

	if correlation.ProcessInstance != nil && correlation.ProcessInstance.ID != "" {
		id := correlation.ProcessInstance.ID
		req.ProcessInstanceID = &id
		req.UpdatedAt = s.now()
		if err := s.requests.Update(ctx, req); err != nil {
			s.logger.Error("failed to store process instance id",
				zap.String("request_id", req.ID),
				zap.String("process_instance_id", id),
				zap.Error(err))
		}
	}

	result.ProcessInstanceID = req.ProcessInstanceID
	result.Message = "Time-off request submitted successfully. Approval workflow started."
	s.record(ctx, models.AuditActionTimeOffSubmitted, req, caller.UserID, map[string]interface{}{
		"workflow_started": true,
	})
	return result, nil
}

func (s *TimeOffService) processVariables(ctx context.Context, req *models.TimeOffRequest, caller Caller) map[string]interface{} {
	emergency := ""
	if req.EmergencyContact != nil {
		emergency = *req.EmergencyContact
	}
	return map[string]interface{}{
		"requestId":        req.ID,
		"employeeId":       req.EmployeeID,
		"employeeName":     s.employeeName(ctx, req.TenantID, req.EmployeeID),
		"employeeEmail":    caller.Email,
		"timeOffType":      string(req.Type),
		"startDate":        req.StartDate.Format(models.DateLayout),
		"endDate":          req.EndDate.Format(models.DateLayout),
		"daysRequested":    req.DaysRequested,
		"reason":           req.Reason,
		"emergencyContact": emergency,
		"submittedAt":      req.SubmittedAt.UTC().Format(time.RFC3339),
		"tenantId":         req.TenantID,
		"status":           string(req.Status),
	}
}

func (s *TimeOffService) employeeName(ctx context.Context, tenantID, employeeID string) string {
	if s.employees != nil {
		if e, err := s.employees.GetByEmployeeID(ctx, tenantID, employeeID); err == nil {
			return e.FullName()
		}
	}
	return "Employee " + employeeID
}

// List returns the tenant's requests matching filter
func (s *TimeOffService) List(ctx context.Context, tenantID string, filter models.TimeOffFilter) ([]*models.TimeOffRequest, error) {
	requests, err := s.requests.List(ctx, tenantID, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list time-off requests", err)
	}
	return requests, nil
}

// Get returns a request and, while it is pending, the name of its open task
func (s *TimeOffService) Get(ctx context.Context, tenantID, id string) (*TimeOffDetails, error) {
	req, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	details := &TimeOffDetails{TimeOffRequest: req}
	if req.Status != models.TimeOffPending || req.ProcessInstanceID == nil {
		return details, nil
	}

	tasks, err := s.workflow.ListTasks(ctx, workflow.TaskQuery{ProcessInstanceID: *req.ProcessInstanceID})
	if err != nil {
		s.logger.Warn("failed to get workflow status",
			zap.String("request_id", id),
			zap.Error(err))
		return details, nil
	}
	if len(tasks) > 0 {
		name := tasks[0].Name
		details.CurrentTask = &name
	}
	return details, nil
}

// Decide completes the approval task of a pending request
func (s *TimeOffService) Decide(ctx context.Context, tenantID, approverID, id string, in DecisionInput) (*models.TimeOffRequest, error) {
	req, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.TimeOffPending {
		return nil, services.BadRequest("Cannot decide %s request. Only pending requests can be decided.", req.Status)
	}
	if req.ProcessInstanceID == nil {
		return nil, services.ErrNoPendingApproval
	}

	tasks, err := s.workflow.ListTasks(ctx, workflow.TaskQuery{ProcessInstanceID: *req.ProcessInstanceID})
	if err != nil {
		return nil, services.ErrWorkflowUnavailable.Wrap(err)
	}
	if len(tasks) == 0 {
		return nil, services.ErrNoPendingApproval
	}

	comments := ""
	if in.Comments != nil {
		comments = *in.Comments
	}
	decidedAt := s.now()
	err = s.workflow.CompleteTask(ctx, tasks[0].ID, map[string]interface{}{
		"approved":         in.Approved,
		"approverComments": comments,
		"approvedBy":       approverID,
		"approvedAt":       decidedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, services.ErrWorkflowUnavailable.Wrap(err)
	}

	req.Status = models.TimeOffRejected
	if in.Approved {
		req.Status = models.TimeOffApproved
	}
	req.ApprovedBy = &approverID
	req.ApproverComments = in.Comments
	req.UpdatedAt = decidedAt
	if err := s.save(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("time-off request decided",
		zap.String("request_id", id),
		zap.String("task_id", tasks[0].ID),
		zap.String("status", string(req.Status)),
		zap.String("approved_by", approverID))
	s.record(ctx, models.AuditActionTimeOffDecided, req, approverID, map[string]interface{}{
		"status": req.Status,
	})
	return req, nil
}

// Cancel withdraws a pending request and deletes its process instance
func (s *TimeOffService) Cancel(ctx context.Context, tenantID, userID, id string) error {
	req, err := s.load(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if req.Status != models.TimeOffPending {
		return services.BadRequest("Cannot cancel %s request. Only pending requests can be cancelled.", req.Status)
	}

	if req.ProcessInstanceID != nil {
		reason := fmt.Sprintf("Cancelled by %s", userID)
		if err := s.workflow.DeleteProcessInstance(ctx, *req.ProcessInstanceID, reason); err != nil && !workflow.IsNotFound(err) {
			s.logger.Error("failed to cancel approval process",
				zap.String("request_id", id),
				zap.String("process_instance_id", *req.ProcessInstanceID),
				zap.Error(err))
		}
	}

	req.Status = models.TimeOffCancelled
	req.UpdatedAt = s.now()
	if err := s.save(ctx, req); err != nil {
		return err
	}

	s.logger.Info("time-off request cancelled",
		zap.String("request_id", id),
		zap.String("tenant_id", tenantID))
	s.record(ctx, models.AuditActionTimeOffCancelled, req, userID, nil)
	return nil
}

// Balance computes an employee's allowance usage for year. Approved days are
// used, pending days are reserved.
func (s *TimeOffService) Balance(ctx context.Context, tenantID, employeeID string, year int) (*models.TimeOffBalances, error) {
	if year == 0 {
		year = s.now().Year()
	}

	requests, err := s.requests.ListForYear(ctx, tenantID, employeeID, year)
	if err != nil {
		return nil, services.WrapInternal("failed to load time-off requests", err)
	}

	balances := make(map[models.TimeOffType]models.TimeOffBalance, len(models.AnnualAllowance))
	for kind, total := range models.AnnualAllowance {
		balances[kind] = models.TimeOffBalance{TotalDays: total}
	}
	for _, r := range requests {
		b, tracked := balances[r.Type]
		if !tracked {
			continue
		}
		switch r.Status {
		case models.TimeOffApproved:
			b.UsedDays += r.DaysRequested
		case models.TimeOffPending:
			b.PendingDays += r.DaysRequested
		}
		balances[r.Type] = b
	}
	for kind, b := range balances {
		b.AvailableDays = b.TotalDays - b.UsedDays - b.PendingDays
		balances[kind] = b
	}

	return &models.TimeOffBalances{
		EmployeeID: employeeID,
		Year:       year,
		Balances:   balances,
	}, nil
}

func (s *TimeOffService) load(ctx context.Context, tenantID, id string) (*models.TimeOffRequest, error) {
	req, err := s.requests.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrTimeOffNotFound.Withf("Time-off request %s not found", id)
		}
		return nil, services.WrapInternal("failed to get time-off request", err)
	}
	return req, nil
}

func (s *TimeOffService) save(ctx context.Context, req *models.TimeOffRequest) error {
	if err := s.requests.Update(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrTimeOffNotFound.Withf("Time-off request %s not found", req.ID)
		}
		return services.WrapInternal("failed to update time-off request", err)
	}
	return nil
}

func (s *TimeOffService) record(ctx context.Context, action models.AuditAction, req *models.TimeOffRequest, userID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	log := models.NewAuditLog(req.TenantID, action, "time_off_request").
		WithUser(userID).
		WithResource(req.ID)
	if details != nil {
		log.WithDetails(details)
	}
	s.audit.Record(ctx, log)
}
