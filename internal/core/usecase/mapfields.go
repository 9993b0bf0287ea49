package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/ports"
)

type MapFieldsUseCase struct {
	completion ports.CompletionClient
	matcher    ports.SimilarityMatcher
}

func NewMapFieldsUseCase(completion ports.CompletionClient, matcher ports.SimilarityMatcher) *MapFieldsUseCase {
	return &MapFieldsUseCase{
		completion: completion,
		matcher:    matcher,
	}
}

// MapFields classifies every source field against the target catalog.
// Inference is tried exactly once; any unavailability or unparsable
// response switches to the offline similarity fallback. An empty source
// field list is a caller bug and propagates, an empty catalog is not.
func (uc *MapFieldsUseCase) MapFields(ctx context.Context, req domain.MappingRequest) (*domain.MappingOutcome, error) {
	if len(req.SourceFields) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "map fields", errors.New("source field list is empty"))
	}

	prompt := buildMappingPrompt(req)
	raw, err := uc.completion.Complete(ctx, prompt, responseTokenBudget(len(req.SourceFields)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("inference call: %w", ctx.Err())
		}
		return uc.fallbackOutcome(req, fmt.Sprintf("inference unavailable: %v", err)), nil
	}

	payload, stage, err := repairMappingPayload(raw)
	if err != nil {
		outcome := uc.fallbackOutcome(req, fmt.Sprintf("inference response unusable: %v", err))
		outcome.RepairStage = stage
		return outcome, nil
	}

	results, discarded := validateEntries(payload, req)
	results = ensureCompleteness(results, req.SourceFields)
	results = ensureCatalogCoverage(results, req.TargetFields)
	results = enforceCatalogRequired(results, req.TargetFields)

	outcome := &domain.MappingOutcome{Results: results, Strategy: domain.StrategyInference, RepairStage: stage}
	if discarded > 0 {
		outcome.Diagnostic = fmt.Sprintf("%d inference entries discarded during validation", discarded)
	}
	return outcome, nil
}

// Override replaces one result's target with a manual choice. The
// required/optional flags are left untouched.
func (uc *MapFieldsUseCase) Override(results []domain.MappingResult, sourceField, newTargetField string) ([]domain.MappingResult, error) {
	for i := range results {
		if results[i].SourceField != sourceField {
			continue
		}
		results[i].TargetField = newTargetField
		results[i].Confidence = 1.0
		results[i].Reason = domain.OverrideReason
		return results, nil
	}
	return nil, domain.WrapError(domain.ErrInvalidInput, "override mapping", fmt.Errorf("source field %q not found", sourceField))
}

func (uc *MapFieldsUseCase) fallbackOutcome(req domain.MappingRequest, diagnostic string) *domain.MappingOutcome {
	results := make([]domain.MappingResult, 0, len(req.SourceFields))
	for _, field := range req.SourceFields {
		results = append(results, uc.fallbackResult(field, req.TargetFields))
	}
	results = ensureCatalogCoverage(results, req.TargetFields)
	results = enforceCatalogRequired(results, req.TargetFields)

	return &domain.MappingOutcome{
		Results:    results,
		Strategy:   domain.StrategySimilarity,
		Diagnostic: diagnostic,
	}
}

func (uc *MapFieldsUseCase) fallbackResult(field string, catalog []domain.TargetField) domain.MappingResult {
	match, ok := uc.matcher.Match(field, catalog)
	if !ok {
		return domain.MappingResult{
			SourceField: field,
			TargetField: field,
			Confidence:  0.5,
			Reason:      "no matching target field, kept as optional",
			IsOptional:  true,
		}
	}

	reason := fmt.Sprintf("similarity match (%.2f)", match.Confidence)
	if match.Rule {
		reason = "synonym rule match"
	}
	return domain.MappingResult{
		SourceField: field,
		TargetField: match.Target,
		Confidence:  match.Confidence,
		Reason:      reason,
		IsRequired:  true,
	}
}

// validateEntries filters the parsed inference entries per the contract:
// unknown source fields and out-of-range confidences are dropped, the
// first entry wins on duplicates.
func validateEntries(payload mappingPayload, req domain.MappingRequest) ([]domain.MappingResult, int) {
	requested := make(map[string]bool, len(req.SourceFields))
	for _, f := range req.SourceFields {
		requested[f] = true
	}
	catalog := catalogSet(req.TargetFields)

	results := make([]domain.MappingResult, 0, len(payload.Mappings))
	seen := make(map[string]bool, len(payload.Mappings))
	discarded := 0
	for i, entry := range payload.Mappings {
		if verr := validateEntry(i, entry, requested); verr != nil {
			discarded++
			continue
		}
		if seen[entry.SourceField] {
			discarded++
			continue
		}
		seen[entry.SourceField] = true
		results = append(results, entryToResult(entry, catalog))
	}
	return results, discarded
}

func validateEntry(index int, entry rawMappingEntry, requested map[string]bool) *domain.ValidationError {
	path := func(field string) string {
		return fmt.Sprintf("mappings[%d].%s", index, field)
	}
	if strings.TrimSpace(entry.SourceField) == "" {
		return &domain.ValidationError{Path: path("sourceField"), Message: "missing source field"}
	}
	if !requested[entry.SourceField] {
		return &domain.ValidationError{Path: path("sourceField"), Message: fmt.Sprintf("%q was not requested", entry.SourceField)}
	}
	if entry.Confidence == nil {
		return &domain.ValidationError{Path: path("confidence"), Message: "missing confidence"}
	}
	if *entry.Confidence < 0 || *entry.Confidence > 1 {
		return &domain.ValidationError{Path: path("confidence"), Message: fmt.Sprintf("%v outside [0,1]", *entry.Confidence)}
	}
	return nil
}

// entryToResult applies the classification priority: an explicit
// isRequired wins, then an explicit isOptional, then catalog membership,
// then optional.
func entryToResult(entry rawMappingEntry, catalog map[string]bool) domain.MappingResult {
	result := domain.MappingResult{
		SourceField: entry.SourceField,
		TargetField: entry.TargetField,
		Confidence:  *entry.Confidence,
		Reason:      entry.Reason,
	}
	switch {
	case entry.IsRequired != nil && *entry.IsRequired:
		result.IsRequired = true
	case entry.IsOptional != nil && *entry.IsOptional:
		result.IsOptional = true
	case catalog[entry.TargetField]:
		result.IsRequired = true
	default:
		result.IsOptional = true
	}
	return result
}

// ensureCompleteness appends an optional self-mapping for every requested
// source field the inference response dropped.
func ensureCompleteness(results []domain.MappingResult, sourceFields []string) []domain.MappingResult {
	present := make(map[string]bool, len(results))
	for _, r := range results {
		present[r.SourceField] = true
	}
	for _, field := range sourceFields {
		if present[field] {
			continue
		}
		results = append(results, domain.MappingResult{
			SourceField: field,
			TargetField: field,
			Confidence:  0.5,
			Reason:      "unmapped, kept as optional",
			IsOptional:  true,
		})
	}
	return results
}

// ensureCatalogCoverage appends a synthetic required entry for every
// catalog field no source field was mapped to, flagging it for manual
// completion.
func ensureCatalogCoverage(results []domain.MappingResult, catalog []domain.TargetField) []domain.MappingResult {
	if len(catalog) == 0 {
		return results
	}
	mapped := make(map[string]bool, len(results))
	for _, r := range results {
		mapped[r.TargetField] = true
	}
	for _, tf := range catalog {
		if mapped[tf.Name] {
			continue
		}
		results = append(results, domain.MappingResult{
			SourceField: domain.MissingFieldMarker + tf.Name,
			TargetField: tf.Name,
			Confidence:  0,
			Reason:      "no source field mapped to this required target",
			IsRequired:  true,
		})
	}
	return results
}

// enforceCatalogRequired is the final correction pass: catalog membership
// always wins over the inference classification, and the flags end up
// mutually exclusive.
func enforceCatalogRequired(results []domain.MappingResult, catalog []domain.TargetField) []domain.MappingResult {
	member := catalogSet(catalog)
	for i := range results {
		if member[results[i].TargetField] {
			if results[i].IsOptional {
				results[i].Reason = strings.TrimSpace(results[i].Reason + " (reclassified as required: target is a catalog field)")
			}
			results[i].IsRequired = true
		}
		results[i].IsOptional = !results[i].IsRequired
	}
	return results
}

func catalogSet(catalog []domain.TargetField) map[string]bool {
	set := make(map[string]bool, len(catalog))
	for _, tf := range catalog {
		set[tf.Name] = true
	}
	return set
}
