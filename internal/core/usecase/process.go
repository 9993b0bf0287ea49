package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/ports"
)

type ProcessProjectUseCase struct {
	repo       ports.ProjectRepository
	storage    ports.ObjectStorage
	parser     ports.TabularParser
	normalizer ports.SheetNormalizer
	mapper     ports.FieldMapper
	catalog    []domain.TargetField
}

func NewProcessProjectUseCase(
	repo ports.ProjectRepository,
	storage ports.ObjectStorage,
	parser ports.TabularParser,
	normalizer ports.SheetNormalizer,
	mapper ports.FieldMapper,
	catalog []domain.TargetField,
) *ProcessProjectUseCase {
	return &ProcessProjectUseCase{
		repo:       repo,
		storage:    storage,
		parser:     parser,
		normalizer: normalizer,
		mapper:     mapper,
		catalog:    catalog,
	}
}

// ProcessByID runs the parse/normalize/map pipeline. Parse and normalize
// failures mark the project failed; a mapping failure parks it in the
// normalized state so the attempt can be retried or finished manually.
func (uc *ProcessProjectUseCase) ProcessByID(ctx context.Context, projectID string) error {
	if err := uc.markStatus(ctx, projectID, domain.ProjectStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	sheet, err := uc.ensureNormalized(ctx, projectID)
	if err != nil {
		if failErr := uc.markFailed(ctx, projectID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	outcome, err := uc.mapSheet(ctx, sheet)
	if err != nil {
		if stateErr := uc.markStatus(ctx, projectID, domain.ProjectStatusNormalized, err.Error()); stateErr != nil {
			return fmt.Errorf("%w; keep normalized status: %v", err, stateErr)
		}
		return err
	}

	if err := uc.repo.SaveMappings(ctx, projectID, *outcome); err != nil {
		return fmt.Errorf("save mappings: %w", err)
	}
	if err := uc.markStatus(ctx, projectID, domain.ProjectStatusMapped, ""); err != nil {
		return fmt.Errorf("set status=mapped: %w", err)
	}
	return nil
}

// ensureNormalized returns the stored records when a previous run already
// normalized the sheet, and otherwise parses the uploaded file.
func (uc *ProcessProjectUseCase) ensureNormalized(ctx context.Context, projectID string) (domain.NormalizedSheet, error) {
	state, err := uc.repo.GetState(ctx, projectID)
	if err != nil {
		return domain.NormalizedSheet{}, fmt.Errorf("fetch project state: %w", err)
	}
	if len(state.Records) > 0 {
		return domain.NormalizedSheet{
			Records:           state.Records,
			FieldDescriptions: state.FieldDescriptions,
		}, nil
	}

	rows, err := uc.parseFile(ctx, state.Project)
	if err != nil {
		return domain.NormalizedSheet{}, err
	}

	sheet := uc.normalizer.Normalize(rows)
	if len(sheet.Records) == 0 {
		return domain.NormalizedSheet{}, domain.WrapError(domain.ErrInvalidInput, "normalize sheet", errors.New("no column headers found"))
	}

	if err := uc.repo.SaveNormalized(ctx, projectID, sheet); err != nil {
		return domain.NormalizedSheet{}, fmt.Errorf("save normalized records: %w", err)
	}
	if err := uc.markStatus(ctx, projectID, domain.ProjectStatusNormalized, ""); err != nil {
		return domain.NormalizedSheet{}, fmt.Errorf("set status=normalized: %w", err)
	}
	return sheet, nil
}

func (uc *ProcessProjectUseCase) parseFile(ctx context.Context, project domain.Project) ([]domain.RawRow, error) {
	file, err := uc.storage.Open(ctx, project.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer file.Close()

	rows, err := uc.parser.Parse(ctx, project.Filename, project.MimeType, file)
	if err != nil {
		return nil, fmt.Errorf("parse tabular file: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse tabular file", errors.New("file contains no rows"))
	}
	return rows, nil
}

func (uc *ProcessProjectUseCase) mapSheet(ctx context.Context, sheet domain.NormalizedSheet) (*domain.MappingOutcome, error) {
	fields := unionFields(sheet.Records)
	if len(fields) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "map sheet", errors.New("no source fields in records"))
	}

	outcome, err := uc.mapper.MapFields(ctx, domain.MappingRequest{
		SourceFields:      fields,
		TargetFields:      uc.catalog,
		FieldDescriptions: sheet.FieldDescriptions,
	})
	if err != nil {
		return nil, fmt.Errorf("map fields: %w", err)
	}
	return outcome, nil
}

func (uc *ProcessProjectUseCase) markStatus(ctx context.Context, projectID string, status domain.ProjectStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, projectID, status, errMessage)
}

func (uc *ProcessProjectUseCase) markFailed(ctx context.Context, projectID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, projectID, domain.ProjectStatusFailed, processErr.Error())
}

// unionFields collects every field name across the records, first seen
// first.
func unionFields(records []domain.SourceRecord) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, rec := range records {
		for _, f := range rec.Fields {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			fields = append(fields, f.Name)
		}
	}
	return fields
}
