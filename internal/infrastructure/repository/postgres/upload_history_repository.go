package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

const (
	schemaLockKey      = int64(2026101501)
	defaultHistoryRows = 50
	maxHistoryRows     = 500
)

// UploadHistoryRepository stores one row per finished upload or retry attempt.
type UploadHistoryRepository struct {
	db *sql.DB
}

func NewUploadHistoryRepository(db *sql.DB) *UploadHistoryRepository {
	return &UploadHistoryRepository{db: db}
}

func (r *UploadHistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS upload_history (
	upload_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	partner_id TEXT NOT NULL,
	mapping_id TEXT NOT NULL,
	engine TEXT NOT NULL,
	filename TEXT NOT NULL,
	attempt INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	total_records INTEGER NOT NULL DEFAULT 0,
	success_records INTEGER NOT NULL DEFAULT 0,
	error_records INTEGER NOT NULL DEFAULT 0,
	scored_records INTEGER NOT NULL DEFAULT 0,
	average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	failed_count INTEGER NOT NULL DEFAULT 0,
	message TEXT,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_upload_history_partner ON upload_history(partner_id, occurred_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Record is idempotent on upload id: redelivered events are ignored.
func (r *UploadHistoryRepository) Record(ctx context.Context, rec domain.UploadRecord) error {
	if strings.TrimSpace(rec.UploadID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record upload", errors.New("upload id is required"))
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO upload_history (
	upload_id, session_id, partner_id, mapping_id, engine, filename, attempt, state,
	total_records, success_records, error_records, scored_records, average_score,
	failed_count, message, occurred_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (upload_id) DO NOTHING
`,
		rec.UploadID, rec.SessionID, rec.PartnerID, rec.MappingID, string(rec.Engine), rec.Filename, rec.Attempt, string(rec.State),
		rec.Total, rec.Success, rec.Errors, rec.ScoredRecords, rec.AverageScore,
		rec.FailedCount, nullIfEmpty(rec.Message), rec.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

func (r *UploadHistoryRepository) ListByPartner(ctx context.Context, partnerID string, limit int) ([]domain.UploadRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryRows
	}
	if limit > maxHistoryRows {
		limit = maxHistoryRows
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT upload_id, session_id, partner_id, mapping_id, engine, filename, attempt, state,
	total_records, success_records, error_records, scored_records, average_score,
	failed_count, message, occurred_at
FROM upload_history
WHERE partner_id = $1
ORDER BY occurred_at DESC
LIMIT $2
`, partnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	out := make([]domain.UploadRecord, 0)
	for rows.Next() {
		rec, err := scanUploadRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUploadRecord(row rowScanner) (domain.UploadRecord, error) {
	var (
		rec     domain.UploadRecord
		engine  string
		state   string
		message sql.NullString
	)
	err := row.Scan(
		&rec.UploadID,
		&rec.SessionID,
		&rec.PartnerID,
		&rec.MappingID,
		&engine,
		&rec.Filename,
		&rec.Attempt,
		&state,
		&rec.Total,
		&rec.Success,
		&rec.Errors,
		&rec.ScoredRecords,
		&rec.AverageScore,
		&rec.FailedCount,
		&message,
		&rec.OccurredAt,
	)
	if err != nil {
		return domain.UploadRecord{}, err
	}
	rec.Engine = domain.ScoringEngine(engine)
	rec.State = domain.SessionState(state)
	rec.Message = message.String
	return rec, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
