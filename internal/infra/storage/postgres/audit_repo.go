package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueryRecord is one audited tool invocation.
type QueryRecord struct {
	ID            uuid.UUID `db:"id"`
	Tool          string    `db:"tool"`
	Database      string    `db:"database_name"`
	QueryText     string    `db:"query_text"`
	DurationMS    int64     `db:"duration_ms"`
	RowsReturned  int       `db:"rows_returned"`
	RowsAvailable int       `db:"rows_available"`
	Truncated     bool      `db:"truncated"`
	ErrorClass    string    `db:"error_class"` // empty on success
	ErrorMessage  string    `db:"error_message"`
	CreatedAt     time.Time `db:"created_at"`
}

// AuditRepo stores query audit records.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Record persists one invocation record.
func (r *AuditRepo) Record(ctx context.Context, rec QueryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO query_audit (
			id, tool, database_name, query_text, duration_ms,
			rows_returned, rows_available, truncated,
			error_class, error_message, created_at
		) VALUES (
			:id, :tool, :database_name, :query_text, :duration_ms,
			:rows_returned, :rows_available, :truncated,
			:error_class, :error_message, :created_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to record query audit: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []QueryRecord
	const query = `SELECT * FROM query_audit ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list query audit records: %w", err)
	}
	return records, nil
}

// FailureRate returns the fraction of failed invocations within the
// window, or 0 when nothing ran.
func (r *AuditRepo) FailureRate(ctx context.Context, window time.Duration) (float64, error) {
	var row struct {
		Total  int `db:"total"`
		Failed int `db:"failed"`
	}
	const query = `
		SELECT count(*) AS total,
		       count(*) FILTER (WHERE error_class <> '') AS failed
		FROM query_audit
		WHERE created_at > now() - $1::interval`
	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))
	if err := r.db.GetContext(ctx, &row, query, interval); err != nil {
		return 0, fmt.Errorf("failed to compute failure rate: %w", err)
	}
	if row.Total == 0 {
		return 0, nil
	}
	return float64(row.Failed) / float64(row.Total), nil
}
