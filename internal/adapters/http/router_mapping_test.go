package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/config"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/observability/metrics"
)

type mapperCaptureFake struct {
	req domain.MappingRequest
}

func (f *mapperCaptureFake) MapFields(_ context.Context, req domain.MappingRequest) (*domain.MappingOutcome, error) {
	f.req = req
	return &domain.MappingOutcome{
		Results: []domain.MappingResult{
			{SourceField: "artikelnr", TargetField: "Article Number/SKU", Confidence: 0.95, Reason: "exact synonym", IsRequired: true},
		},
		Strategy:    domain.StrategyInference,
		RepairStage: domain.RepairStageDirect,
	}, nil
}

func (f *mapperCaptureFake) Override(results []domain.MappingResult, _, _ string) ([]domain.MappingResult, error) {
	return results, nil
}

func newMappingTestRouter(mapper mappingService) http.Handler {
	return NewRouter(
		config.Config{},
		domain.DefaultVocabulary().DefaultCatalog,
		projectFake{},
		stateFake{},
		mapper,
		normalizerFake{},
		acceptFake{},
		acceptedStoreFake{},
		metrics.NewHTTPServerMetrics("api"),
	).Handler()
}

func TestMapFieldsEndpointReturnsOutcome(t *testing.T) {
	handler := newMappingTestRouter(&mapperCaptureFake{})

	payload := []byte(`{"source_fields":["artikelnr","farbe"]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/mappings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp domain.MappingOutcome
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Strategy != domain.StrategyInference {
		t.Fatalf("strategy = %q", resp.Strategy)
	}
	if len(resp.Results) != 1 || resp.Results[0].TargetField != "Article Number/SKU" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestMapFieldsBackfillsCatalogWhenTargetsOmitted(t *testing.T) {
	fake := &mapperCaptureFake{}
	handler := newMappingTestRouter(fake)

	payload := []byte(`{"source_fields":["artikelnr"]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/mappings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(fake.req.TargetFields) == 0 {
		t.Fatal("expected default catalog to back the request")
	}
}

func TestMapFieldsKeepsCallerTargets(t *testing.T) {
	fake := &mapperCaptureFake{}
	handler := newMappingTestRouter(fake)

	payload := []byte(`{"source_fields":["artikelnr"],"target_fields":[{"name":"SKU"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/mappings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(fake.req.TargetFields) != 1 || fake.req.TargetFields[0].Name != "SKU" {
		t.Fatalf("caller targets were replaced: %+v", fake.req.TargetFields)
	}
}

func TestMapFieldsRejectsMalformedJSON(t *testing.T) {
	handler := newMappingTestRouter(&mapperCaptureFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/mappings", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestMapFieldsMapsTemporaryTo503(t *testing.T) {
	handler := newMappingTestRouter(mapperFake{
		err: domain.WrapError(domain.ErrTemporary, "map fields", errors.New("circuit open")),
	})

	payload := []byte(`{"source_fields":["artikelnr"]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/mappings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestOverrideEndpointRewritesTarget(t *testing.T) {
	handler := newMappingTestRouter(mapperFake{})

	payload, _ := json.Marshal(map[string]any{
		"results": []domain.MappingResult{
			{SourceField: "farbe", TargetField: "Description", Confidence: 0.44, IsOptional: true},
		},
		"source_field":     "farbe",
		"new_target_field": "Color",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/mappings/override", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp map[string][]domain.MappingResult
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	results := resp["results"]
	if len(results) != 1 || results[0].TargetField != "Color" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Reason != domain.OverrideReason {
		t.Fatalf("reason = %q", results[0].Reason)
	}
}

func TestNormalizeEndpointReturnsSheet(t *testing.T) {
	handler := newMappingTestRouter(mapperFake{})

	payload := []byte(`{"rows":[{"Feldname":"sku","Wert":"A-1"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/normalize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp domain.NormalizedSheet
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(resp.Records))
	}
}

func TestNormalizeRejectsEmptyRows(t *testing.T) {
	handler := newMappingTestRouter(mapperFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/normalize", bytes.NewBufferString(`{"rows":[]}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
