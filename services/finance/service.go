// Package finance manages double-entry journal entries.
package finance

import (
	"context"
	"errors"
	"time"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"github.com/upb/erp-backend/services"
	"github.com/upb/erp-backend/services/audit"
	"go.uber.org/zap"
)

// CreateJournalEntryInput is the payload of a new journal entry
type CreateJournalEntryInput struct {
	Date        time.Time `json:"date" validate:"required"`
	Description string    `json:"description" validate:"required,min=1,max=500"`
	Reference   *string   `json:"reference,omitempty" validate:"omitempty,max=100"`
	TotalDebit  float64   `json:"total_debit" validate:"gte=0"`
	TotalCredit float64   `json:"total_credit" validate:"gte=0"`
}

// UpdateJournalEntryInput carries the fields to change; nil fields are kept
type UpdateJournalEntryInput struct {
	Date        *time.Time `json:"date,omitempty"`
	Description *string    `json:"description,omitempty" validate:"omitempty,min=1,max=500"`
	Reference   *string    `json:"reference,omitempty" validate:"omitempty,max=100"`
	TotalDebit  *float64   `json:"total_debit,omitempty" validate:"omitempty,gte=0"`
	TotalCredit *float64   `json:"total_credit,omitempty" validate:"omitempty,gte=0"`
}

// Service implements the journal entry operations of a tenant
type Service struct {
	entries repositories.JournalEntryRepository
	audit   audit.Recorder
	logger  *zap.Logger
}

// NewService creates a finance service. recorder may be nil.
func NewService(entries repositories.JournalEntryRepository, recorder audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		entries: entries,
		audit:   recorder,
		logger:  logger,
	}
}

// Create stores a balanced draft entry created by userID
func (s *Service) Create(ctx context.Context, tenantID, userID string, in CreateJournalEntryInput) (*models.JournalEntry, error) {
	if !models.Balanced(in.TotalDebit, in.TotalCredit) {
		s.logger.Warn("unbalanced journal entry rejected",
			zap.String("tenant_id", tenantID),
			zap.Float64("debit", in.TotalDebit),
			zap.Float64("credit", in.TotalCredit))
		return nil, services.ErrUnbalancedEntry
	}

	entry := models.NewJournalEntry(tenantID, in.Date, in.Description, in.TotalDebit, in.TotalCredit, userID)
	entry.Reference = in.Reference

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, services.WrapInternal("failed to create journal entry", err)
	}

	s.logger.Info("journal entry created",
		zap.String("id", entry.ID),
		zap.String("tenant_id", tenantID),
		zap.String("user_id", userID))
	s.record(ctx, models.AuditActionJournalEntryCreated, entry, userID)
	return entry, nil
}

// List returns the tenant's entries, newest first
func (s *Service) List(ctx context.Context, tenantID string, filter models.JournalEntryFilter) ([]*models.JournalEntry, error) {
	entries, err := s.entries.List(ctx, tenantID, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list journal entries", err)
	}
	return entries, nil
}

// Get returns one entry of the tenant
func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.JournalEntry, error) {
	entry, err := s.entries.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrJournalEntryNotFound.Withf("Journal entry %s not found", id)
		}
		return nil, services.WrapInternal("failed to get journal entry", err)
	}
	return entry, nil
}

// Update changes a draft entry. The result must stay balanced.
func (s *Service) Update(ctx context.Context, tenantID, userID, id string, in UpdateJournalEntryInput) (*models.JournalEntry, error) {
	entry, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if entry.Status != models.JournalEntryDraft {
		return nil, services.BadRequest("Cannot update %s entry. Only draft entries can be updated.", entry.Status)
	}

	if in.Date != nil {
		entry.Date = *in.Date
	}
	if in.Description != nil {
		entry.Description = *in.Description
	}
	if in.Reference != nil {
		entry.Reference = in.Reference
	}
	if in.TotalDebit != nil {
		entry.TotalDebit = *in.TotalDebit
	}
	if in.TotalCredit != nil {
		entry.TotalCredit = *in.TotalCredit
	}
	if !entry.IsBalanced() {
		return nil, services.ErrUnbalancedEntry
	}
	entry.UpdatedAt = time.Now()

	if err := s.save(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("journal entry updated", zap.String("id", id), zap.String("tenant_id", tenantID))
	s.record(ctx, models.AuditActionJournalEntryUpdated, entry, userID)
	return entry, nil
}

// Void soft deletes an entry by setting its status to void
func (s *Service) Void(ctx context.Context, tenantID, userID, id string) error {
	entry, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	entry.Status = models.JournalEntryVoid
	entry.UpdatedAt = time.Now()
	if err := s.save(ctx, entry); err != nil {
		return err
	}

	s.logger.Info("journal entry voided", zap.String("id", id), zap.String("tenant_id", tenantID))
	s.record(ctx, models.AuditActionJournalEntryVoided, entry, userID)
	return nil
}

// Approve moves a draft or posted entry to approved
func (s *Service) Approve(ctx context.Context, tenantID, userID, id string) (*models.JournalEntry, error) {
	entry, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if entry.Status != models.JournalEntryDraft && entry.Status != models.JournalEntryPosted {
		return nil, services.BadRequest("Cannot approve %s entry", entry.Status)
	}

	entry.Status = models.JournalEntryApproved
	entry.ApprovedBy = &userID
	entry.UpdatedAt = time.Now()
	if err := s.save(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("journal entry approved",
		zap.String("id", id),
		zap.String("tenant_id", tenantID),
		zap.String("approved_by", userID))
	s.record(ctx, models.AuditActionJournalEntryApproved, entry, userID)
	return entry, nil
}

func (s *Service) save(ctx context.Context, entry *models.JournalEntry) error {
	if err := s.entries.Update(ctx, entry); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrJournalEntryNotFound.Withf("Journal entry %s not found", entry.ID)
		}
		return services.WrapInternal("failed to update journal entry", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action models.AuditAction, entry *models.JournalEntry, userID string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, models.NewAuditLog(entry.TenantID, action, "journal_entry").
		WithUser(userID).
		WithResource(entry.ID).
		WithDetails(map[string]interface{}{
			"status":       entry.Status,
			"total_debit":  entry.TotalDebit,
			"total_credit": entry.TotalCredit,
		}))
}
