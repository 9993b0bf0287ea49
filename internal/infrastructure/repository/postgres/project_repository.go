package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ProjectRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026021001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	records JSONB NOT NULL DEFAULT '[]'::jsonb,
	field_descriptions JSONB NOT NULL DEFAULT '{}'::jsonb,
	mappings JSONB NOT NULL DEFAULT '[]'::jsonb,
	mapping_strategy TEXT NOT NULL DEFAULT '',
	mapping_diagnostic TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO projects (
	id, name, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		project.ID, project.Name, project.Filename, project.MimeType, project.StoragePath,
		string(project.Status), project.Error, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, filename, mime_type, storage_path, status, error_message, created_at, updated_at
FROM projects
WHERE id = $1
`, id)

	var project domain.Project
	var status string

	err := row.Scan(
		&project.ID, &project.Name, &project.Filename, &project.MimeType, &project.StoragePath,
		&status, &project.Error, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrProjectNotFound, "get project", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	project.Status = domain.ProjectStatus(status)
	return &project, nil
}

func (r *ProjectRepository) GetState(ctx context.Context, id string) (*domain.ProjectState, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, filename, mime_type, storage_path, status, error_message,
	records, field_descriptions, mappings, mapping_strategy, mapping_diagnostic,
	created_at, updated_at
FROM projects
WHERE id = $1
`, id)

	var state domain.ProjectState
	var status, strategy string
	var recordsRaw, descriptionsRaw, mappingsRaw []byte

	err := row.Scan(
		&state.Project.ID, &state.Project.Name, &state.Project.Filename, &state.Project.MimeType,
		&state.Project.StoragePath, &status, &state.Project.Error,
		&recordsRaw, &descriptionsRaw, &mappingsRaw, &strategy, &state.MappingDiagnostic,
		&state.Project.CreatedAt, &state.Project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrProjectNotFound, "get project state", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan project state: %w", err)
	}
	state.Project.Status = domain.ProjectStatus(status)
	state.MappingStrategy = domain.MappingStrategy(strategy)

	if err := json.Unmarshal(recordsRaw, &state.Records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	if err := json.Unmarshal(descriptionsRaw, &state.FieldDescriptions); err != nil {
		return nil, fmt.Errorf("unmarshal field descriptions: %w", err)
	}
	if err := json.Unmarshal(mappingsRaw, &state.Mappings); err != nil {
		return nil, fmt.Errorf("unmarshal mappings: %w", err)
	}
	return &state, nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE projects
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	return checkProjectAffected(result, "update project status", id)
}

func (r *ProjectRepository) SaveNormalized(ctx context.Context, id string, sheet domain.NormalizedSheet) error {
	recordsJSON, err := json.Marshal(sheet.Records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	descriptions := sheet.FieldDescriptions
	if descriptions == nil {
		descriptions = map[string]string{}
	}
	descriptionsJSON, err := json.Marshal(descriptions)
	if err != nil {
		return fmt.Errorf("marshal field descriptions: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE projects
SET records = $2, field_descriptions = $3, updated_at = $4
WHERE id = $1
`, id, recordsJSON, descriptionsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save normalized records: %w", err)
	}
	return checkProjectAffected(result, "save normalized records", id)
}

func (r *ProjectRepository) SaveMappings(ctx context.Context, id string, outcome domain.MappingOutcome) error {
	mappingsJSON, err := json.Marshal(outcome.Results)
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE projects
SET mappings = $2, mapping_strategy = $3, mapping_diagnostic = $4, updated_at = $5
WHERE id = $1
`, id, mappingsJSON, string(outcome.Strategy), outcome.Diagnostic, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save mappings: %w", err)
	}
	return checkProjectAffected(result, "save mappings", id)
}

func checkProjectAffected(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrProjectNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
