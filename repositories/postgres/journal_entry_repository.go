package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"go.uber.org/zap"
)

const journalEntryColumns = `id, tenant_id, date, description, reference, total_debit, total_credit,
	status, created_by, approved_by, created_at, updated_at`

// JournalEntryRepository implements the repositories.JournalEntryRepository interface
type JournalEntryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewJournalEntryRepository creates a new journal entry repository
func NewJournalEntryRepository(db *DB, logger *zap.Logger) repositories.JournalEntryRepository {
	return &JournalEntryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new journal entry
func (r *JournalEntryRepository) Create(ctx context.Context, entry *models.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (` + journalEntryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Date,
		entry.Description,
		entry.Reference,
		entry.TotalDebit,
		entry.TotalCredit,
		entry.Status,
		entry.CreatedBy,
		entry.ApprovedBy,
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("journal entry %s: %w", entry.ID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	r.logger.Debug("journal entry created",
		zap.String("id", entry.ID),
		zap.String("tenant_id", entry.TenantID))
	return nil
}

// GetByID retrieves a journal entry of the tenant
func (r *JournalEntryRepository) GetByID(ctx context.Context, tenantID, id string) (*models.JournalEntry, error) {
	query := `SELECT ` + journalEntryColumns + ` FROM journal_entries WHERE tenant_id = $1 AND id = $2`

	executor := GetExecutor(ctx, r.db)
	entry, err := scanJournalEntry(executor.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("journal entry", id)
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	return entry, nil
}

// List retrieves the tenant's journal entries, newest first
func (r *JournalEntryRepository) List(ctx context.Context, tenantID string, filter models.JournalEntryFilter) ([]*models.JournalEntry, error) {
	var c conditions
	c.add("tenant_id = ?", tenantID)
	if filter.Status != nil {
		c.add("status = ?", *filter.Status)
	}

	query := `SELECT ` + journalEntryColumns + ` FROM journal_entries` + c.where() +
		` ORDER BY date DESC, created_at DESC` + c.page(filter.Limit, filter.Skip)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.JournalEntry{}
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entry rows: %w", err)
	}

	return entries, nil
}

// Update updates the mutable fields of a journal entry
func (r *JournalEntryRepository) Update(ctx context.Context, entry *models.JournalEntry) error {
	query := `
		UPDATE journal_entries
		SET date = $3, description = $4, reference = $5, total_debit = $6, total_credit = $7,
		    status = $8, approved_by = $9, updated_at = $10
		WHERE tenant_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		entry.TenantID,
		entry.ID,
		entry.Date,
		entry.Description,
		entry.Reference,
		entry.TotalDebit,
		entry.TotalCredit,
		entry.Status,
		entry.ApprovedBy,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update journal entry: %w", err)
	}

	if err := expectOneRow(result, "journal entry", entry.ID); err != nil {
		return err
	}

	r.logger.Debug("journal entry updated",
		zap.String("id", entry.ID),
		zap.String("status", string(entry.Status)))
	return nil
}

func scanJournalEntry(row rowScanner) (*models.JournalEntry, error) {
	entry := &models.JournalEntry{}
	err := row.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.Date,
		&entry.Description,
		&entry.Reference,
		&entry.TotalDebit,
		&entry.TotalCredit,
		&entry.Status,
		&entry.CreatedBy,
		&entry.ApprovedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// expectOneRow maps an update or delete touching no rows to ErrNotFound
func expectOneRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound(kind, id)
	}
	return nil
}
