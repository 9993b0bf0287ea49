package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/resilience"
)

func TestCompleteSendsGenerateRequest(t *testing.T) {
	var captured generateRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":" mapped text \n"}`))
	}))
	defer server.Close()

	client := New(server.URL, "qwen2.5:7b", "test-key")
	text, err := client.Complete(context.Background(), "map these fields", 720)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "mapped text" {
		t.Fatalf("expected trimmed response, got %q", text)
	}
	if authHeader != "Bearer test-key" {
		t.Fatalf("authorization header = %q", authHeader)
	}
	if captured.Model != "qwen2.5:7b" || captured.Prompt != "map these fields" {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if captured.Stream {
		t.Fatalf("streaming must be disabled")
	}
	if captured.Options.NumPredict != 720 {
		t.Fatalf("num_predict = %d, want 720", captured.Options.NumPredict)
	}
}

func TestCompleteWithoutCredentialSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "qwen2.5:7b", "")
	_, err := client.Complete(context.Background(), "prompt", 600)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInferenceUnavailable) {
		t.Fatalf("expected inference-unavailable kind, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("endpoint was called %d times without a credential", hits.Load())
	}
}

func TestCompleteIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "qwen2.5:7b", "test-key")
	_, err := client.Complete(context.Background(), "prompt", 600)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected typed status error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("retryable status should be marked temporary, got %v", err)
	}
}

func TestCompleteClientErrorNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "prompt too large", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "qwen2.5:7b", "test-key")
	_, err := client.Complete(context.Background(), "prompt", 600)
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not be marked temporary: %v", err)
	}
}

type usageRecorderFake struct {
	promptTokens   int
	responseTokens int
	calls          int
}

func (f *usageRecorderFake) ObserveInference(_ time.Duration, promptTokens, responseTokens int) {
	f.calls++
	f.promptTokens = promptTokens
	f.responseTokens = responseTokens
}

func TestCompleteRecordsUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"ok","prompt_eval_count":51,"eval_count":102}`))
	}))
	defer server.Close()

	usage := &usageRecorderFake{}
	client := NewWithOptions(server.URL, "qwen2.5:7b", "test-key", Options{Usage: usage})
	if _, err := client.Complete(context.Background(), "prompt", 600); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if usage.calls != 1 || usage.promptTokens != 51 || usage.responseTokens != 102 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestCompleteRetriesThroughExecutor(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1.0,
		BreakerEnabled:      false,
	})
	client := NewWithOptions(server.URL, "qwen2.5:7b", "test-key", Options{ResilienceExecutor: executor})

	text, err := client.Complete(context.Background(), "prompt", 600)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "ok" {
		t.Fatalf("response = %q", text)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", hits.Load())
	}
}
