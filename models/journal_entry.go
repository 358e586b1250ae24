package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JournalEntryStatus is the lifecycle state of a journal entry
type JournalEntryStatus string

const (
	JournalEntryDraft    JournalEntryStatus = "draft"
	JournalEntryPosted   JournalEntryStatus = "posted"
	JournalEntryApproved JournalEntryStatus = "approved"
	JournalEntryVoid     JournalEntryStatus = "void"
)

// balanceTolerance absorbs floating point noise when comparing totals
const balanceTolerance = 0.01

// JournalEntry is a double-entry bookkeeping record
type JournalEntry struct {
	ID          string             `json:"id" db:"id"`
	TenantID    string             `json:"tenant_id" db:"tenant_id"`
	Date        time.Time          `json:"date" db:"date"`
	Description string             `json:"description" db:"description"`
	Reference   *string            `json:"reference,omitempty" db:"reference"`
	TotalDebit  float64            `json:"total_debit" db:"total_debit"`
	TotalCredit float64            `json:"total_credit" db:"total_credit"`
	Status      JournalEntryStatus `json:"status" db:"status"`
	CreatedBy   string             `json:"created_by" db:"created_by"`
	ApprovedBy  *string            `json:"approved_by,omitempty" db:"approved_by"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the JournalEntry model
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// NewJournalEntry creates a draft entry
func NewJournalEntry(tenantID string, date time.Time, description string, debit, credit float64, createdBy string) *JournalEntry {
	now := time.Now()
	return &JournalEntry{
		ID:          NewPrefixedID("JE", 12),
		TenantID:    tenantID,
		Date:        date,
		Description: description,
		TotalDebit:  debit,
		TotalCredit: credit,
		Status:      JournalEntryDraft,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsBalanced reports whether debit and credit totals match
func (e *JournalEntry) IsBalanced() bool {
	return Balanced(e.TotalDebit, e.TotalCredit)
}

// Balanced reports whether two totals are equal within a cent
func Balanced(debit, credit float64) bool {
	return math.Abs(debit-credit) <= balanceTolerance
}

// NewPrefixedID returns PREFIX-XXXX with n upper-case hex characters
func NewPrefixedID(prefix string, n int) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return prefix + "-" + strings.ToUpper(hex[:n])
}

// JournalEntryFilter narrows journal entry listings
type JournalEntryFilter struct {
	Status *JournalEntryStatus
	Skip   int
	Limit  int
}
