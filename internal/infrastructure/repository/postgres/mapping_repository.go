package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// AcceptedMappingRepository stores reviewed mapping results split into
// the required and optional collections.
type AcceptedMappingRepository struct {
	db *sql.DB
}

func NewAcceptedMappingRepository(db *sql.DB) *AcceptedMappingRepository {
	return &AcceptedMappingRepository{db: db}
}

func (r *AcceptedMappingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026021002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS accepted_required_mappings (
	id BIGSERIAL PRIMARY KEY,
	project_id TEXT NOT NULL,
	source_field TEXT NOT NULL,
	target_field TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS accepted_optional_mappings (
	id BIGSERIAL PRIMARY KEY,
	project_id TEXT NOT NULL,
	source_field TEXT NOT NULL,
	target_field TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accepted_required_project ON accepted_required_mappings(project_id);
CREATE INDEX IF NOT EXISTS idx_accepted_optional_project ON accepted_optional_mappings(project_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveAccepted replaces any previously accepted results for the project.
// Re-accepting after another review round is a full overwrite, not an
// append.
func (r *AcceptedMappingRepository) SaveAccepted(ctx context.Context, projectID string, results []domain.MappingResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"accepted_required_mappings", "accepted_optional_mappings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE project_id = $1`, projectID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	now := time.Now().UTC()
	for _, result := range results {
		table := "accepted_optional_mappings"
		if result.IsRequired {
			table = "accepted_required_mappings"
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO `+table+` (project_id, source_field, target_field, confidence, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, projectID, result.SourceField, result.TargetField, result.Confidence, result.Reason, now)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept tx: %w", err)
	}
	return nil
}

func (r *AcceptedMappingRepository) ListAccepted(ctx context.Context, projectID string) (required, optional []domain.MappingResult, err error) {
	required, err = r.listTable(ctx, "accepted_required_mappings", projectID, true)
	if err != nil {
		return nil, nil, err
	}
	optional, err = r.listTable(ctx, "accepted_optional_mappings", projectID, false)
	if err != nil {
		return nil, nil, err
	}
	return required, optional, nil
}

func (r *AcceptedMappingRepository) listTable(ctx context.Context, table, projectID string, isRequired bool) ([]domain.MappingResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source_field, target_field, confidence, reason
FROM `+table+`
WHERE project_id = $1
ORDER BY id
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]domain.MappingResult, 0)
	for rows.Next() {
		result := domain.MappingResult{IsRequired: isRequired, IsOptional: !isRequired}
		if err := rows.Scan(&result.SourceField, &result.TargetField, &result.Confidence, &result.Reason); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}
