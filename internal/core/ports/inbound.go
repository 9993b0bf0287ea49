package ports

import (
	"context"
	"io"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// ProjectIngestor is the inbound contract for upload orchestration.
type ProjectIngestor interface {
	Upload(ctx context.Context, name, filename, mimeType string, body io.Reader) (*domain.Project, error)
}

// ProjectReader is the inbound read model for project state.
type ProjectReader interface {
	GetState(ctx context.Context, id string) (*domain.ProjectState, error)
}

// ProjectProcessor is the inbound contract for the asynchronous
// parse/normalize/map pipeline.
type ProjectProcessor interface {
	ProcessByID(ctx context.Context, projectID string) error
}

// ProjectRemapper re-queues an already stored project for another
// mapping attempt.
type ProjectRemapper interface {
	Requeue(ctx context.Context, projectID string) error
}

// SheetNormalizer collapses raw parsed rows into source records.
type SheetNormalizer interface {
	Normalize(rows []domain.RawRow) domain.NormalizedSheet
}

// FieldMapper is the inbound contract for the classification core.
type FieldMapper interface {
	MapFields(ctx context.Context, req domain.MappingRequest) (*domain.MappingOutcome, error)
}

// MappingOverrider applies a manual target choice to one result.
type MappingOverrider interface {
	Override(results []domain.MappingResult, sourceField, newTargetField string) ([]domain.MappingResult, error)
}

// MappingAcceptor persists reviewed mapping results.
type MappingAcceptor interface {
	Accept(ctx context.Context, projectID string, results []domain.MappingResult) error
}
