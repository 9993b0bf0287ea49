package ports

import (
	"context"
	"io"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// ProjectRepository persists and reads project state.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetState(ctx context.Context, id string) (*domain.ProjectState, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus, errMessage string) error
	SaveNormalized(ctx context.Context, id string, sheet domain.NormalizedSheet) error
	SaveMappings(ctx context.Context, id string, outcome domain.MappingOutcome) error
}

// AcceptedMappingStore persists reviewed results, split by classification
// into separate required/optional collections.
type AcceptedMappingStore interface {
	SaveAccepted(ctx context.Context, projectID string, results []domain.MappingResult) error
	ListAccepted(ctx context.Context, projectID string) (required, optional []domain.MappingResult, err error)
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes project processing events.
type MessageQueue interface {
	PublishProjectQueued(ctx context.Context, projectID string) error
	SubscribeProjectQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// TabularParser turns an uploaded file into raw rows.
type TabularParser interface {
	Parse(ctx context.Context, filename, mimeType string, data io.Reader) ([]domain.RawRow, error)
}

// CompletionClient is the external text-generation collaborator. The
// token budget is supplied per call because it scales with the number of
// source fields in the prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// SimilarityMatcher is the deterministic offline fallback for one source
// field. ok is false when the catalog offers no acceptable target.
type SimilarityMatcher interface {
	Match(sourceField string, catalog []domain.TargetField) (match domain.FallbackMatch, ok bool)
}
