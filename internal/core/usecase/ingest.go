package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/ports"
)

type UploadProjectUseCase struct {
	repo    ports.ProjectRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewUploadProjectUseCase(
	repo ports.ProjectRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *UploadProjectUseCase {
	return &UploadProjectUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *UploadProjectUseCase) Upload(
	ctx context.Context,
	name, filename, mimeType string,
	body io.Reader,
) (*domain.Project, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if strings.TrimSpace(name) == "" {
		name = filename
	}

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	project := &domain.Project{
		ID:          id,
		Name:        name,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.ProjectStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project metadata: %w", err)
	}

	if err := uc.queue.PublishProjectQueued(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("publish processing event: %w", err)
	}

	return project, nil
}

// Requeue schedules another processing run for an existing project, for
// example after a mapping attempt left it in the normalized state.
func (uc *UploadProjectUseCase) Requeue(ctx context.Context, projectID string) error {
	project, err := uc.repo.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("fetch project by id: %w", err)
	}
	if err := uc.queue.PublishProjectQueued(ctx, project.ID); err != nil {
		return fmt.Errorf("publish processing event: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "upload.bin"
	}
	return base
}
