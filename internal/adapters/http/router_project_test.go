package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/config"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/observability/metrics"
)

type projectFake struct {
	err error
}

func (f projectFake) Upload(_ context.Context, name, filename, mimeType string, body io.Reader) (*domain.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}
	if name == "" {
		name = filename
	}

	now := time.Now().UTC()
	return &domain.Project{
		ID:          "proj-1",
		Name:        name,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "proj-1_" + filename,
		Status:      domain.ProjectStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (f projectFake) Requeue(context.Context, string) error { return f.err }

type stateFake struct {
	err error
}

func (f stateFake) GetState(context.Context, string) (*domain.ProjectState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProjectState{
		Project: domain.Project{ID: "proj-1", Status: domain.ProjectStatusMapped},
		Records: []domain.SourceRecord{{Fields: []domain.Pair{{Name: "sku", Value: "A-1"}}}},
	}, nil
}

type mapperFake struct {
	outcome *domain.MappingOutcome
	err     error
}

func (f mapperFake) MapFields(context.Context, domain.MappingRequest) (*domain.MappingOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &domain.MappingOutcome{Strategy: domain.StrategySimilarity}, nil
}

func (f mapperFake) Override(results []domain.MappingResult, sourceField, newTargetField string) ([]domain.MappingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range results {
		if results[i].SourceField == sourceField {
			results[i].TargetField = newTargetField
			results[i].Confidence = 1.0
			results[i].Reason = domain.OverrideReason
		}
	}
	return results, nil
}

type normalizerFake struct{}

func (normalizerFake) Normalize([]domain.RawRow) domain.NormalizedSheet {
	return domain.NormalizedSheet{
		Records: []domain.SourceRecord{{Fields: []domain.Pair{{Name: "sku", Value: "A-1"}}}},
		Layout:  domain.LayoutFlat,
	}
}

type acceptFake struct {
	err error
}

func (f acceptFake) Accept(context.Context, string, []domain.MappingResult) error { return f.err }

type acceptedStoreFake struct {
	err error
}

func (f acceptedStoreFake) SaveAccepted(context.Context, string, []domain.MappingResult) error {
	return f.err
}

func (f acceptedStoreFake) ListAccepted(context.Context, string) (required, optional []domain.MappingResult, err error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	required = []domain.MappingResult{{SourceField: "sku", TargetField: "Article Number/SKU", Confidence: 0.92, IsRequired: true}}
	optional = []domain.MappingResult{{SourceField: "note", TargetField: "Description", Confidence: 0.41, IsOptional: true}}
	return required, optional, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(
		cfg,
		domain.DefaultVocabulary().DefaultCatalog,
		projectFake{},
		stateFake{},
		mapperFake{},
		normalizerFake{},
		acceptFake{},
		acceptedStoreFake{},
		metrics.NewHTTPServerMetrics("api"),
	).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadProjectSuccess(t *testing.T) {
	handler := newTestHandler(config.Config{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("name", "Summer Catalog"); err != nil {
		t.Fatalf("WriteField() error = %v", err)
	}
	part, err := writer.CreateFormFile("file", "products.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("binary-sheet")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/projects", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "proj-1" || resp["name"] != "Summer Catalog" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp["status"] != "uploaded" {
		t.Fatalf("unexpected status: %v", resp["status"])
	}
}

func TestUploadProjectMissingMultipartField(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/projects", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetProjectStateReturnsRecords(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/proj-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp struct {
		Project domain.Project        `json:"project"`
		Records []domain.SourceRecord `json:"records"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Project.ID != "proj-1" {
		t.Fatalf("unexpected project: %+v", resp.Project)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(resp.Records))
	}
}

func TestGetProjectMapsNotFoundTo404(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		nil,
		projectFake{},
		stateFake{err: domain.WrapError(domain.ErrProjectNotFound, "get project", errors.New("id=missing"))},
		mapperFake{},
		normalizerFake{},
		acceptFake{},
		acceptedStoreFake{},
		metrics.NewHTTPServerMetrics("api"),
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRemapProjectQueues(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj-1/map", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "queued" || resp["project_id"] != "proj-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAcceptMappingsConfirms(t *testing.T) {
	handler := newTestHandler(config.Config{})

	payload, _ := json.Marshal(map[string]any{
		"results": []domain.MappingResult{
			{SourceField: "sku", TargetField: "Article Number/SKU", Confidence: 0.92, IsRequired: true},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj-1/accept", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "accepted" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAcceptMappingsMapsInvalidInputTo400(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		nil,
		projectFake{},
		stateFake{},
		mapperFake{},
		normalizerFake{},
		acceptFake{err: domain.WrapError(domain.ErrInvalidInput, "accept mappings", errors.New("no results"))},
		acceptedStoreFake{},
		metrics.NewHTTPServerMetrics("api"),
	).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj-1/accept", bytes.NewBufferString(`{"results":[]}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListAcceptedSplitsRequiredAndOptional(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/proj-1/accepted", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp map[string][]domain.MappingResult
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp["required"]) != 1 || len(resp["optional"]) != 1 {
		t.Fatalf("unexpected split: %+v", resp)
	}
	if !resp["required"][0].IsRequired {
		t.Fatalf("required entry lost its flag: %+v", resp["required"][0])
	}
}

func TestUnknownProjectResourceReturns404(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/proj-1/bogus", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
