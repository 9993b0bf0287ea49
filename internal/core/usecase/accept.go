package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/ports"
)

type AcceptMappingsUseCase struct {
	repo     ports.ProjectRepository
	accepted ports.AcceptedMappingStore
}

func NewAcceptMappingsUseCase(
	repo ports.ProjectRepository,
	accepted ports.AcceptedMappingStore,
) *AcceptMappingsUseCase {
	return &AcceptMappingsUseCase{
		repo:     repo,
		accepted: accepted,
	}
}

// Accept stores the reviewed result set and finishes the project. The
// store splits results into the required and optional collections.
func (uc *AcceptMappingsUseCase) Accept(ctx context.Context, projectID string, results []domain.MappingResult) error {
	if len(results) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "accept mappings", errors.New("result list is empty"))
	}
	if _, err := uc.repo.GetByID(ctx, projectID); err != nil {
		return fmt.Errorf("fetch project by id: %w", err)
	}
	if err := uc.accepted.SaveAccepted(ctx, projectID, results); err != nil {
		return fmt.Errorf("save accepted mappings: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, projectID, domain.ProjectStatusAccepted, ""); err != nil {
		return fmt.Errorf("set status=accepted: %w", err)
	}
	return nil
}
