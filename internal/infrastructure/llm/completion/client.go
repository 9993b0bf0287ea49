package completion

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/resilience"
)

// Client talks to an ollama-compatible text generation endpoint. One
// request carries one combined prompt; the response arrives as a single
// non-streamed envelope.
type Client struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
	usage       UsageRecorder
}

// UsageRecorder receives the token counts reported by the generation
// endpoint after each successful call.
type UsageRecorder interface {
	ObserveInference(duration time.Duration, promptTokens, responseTokens int)
}

type Options struct {
	Temperature        float64
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
	Usage              UsageRecorder
}

func New(baseURL, model, apiKey string) *Client {
	return NewWithOptions(baseURL, model, apiKey, Options{})
}

func NewWithOptions(baseURL, model, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	temperature := options.Temperature
	if temperature <= 0 {
		temperature = 0.1
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		apiKey:      apiKey,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		executor:    options.ResilienceExecutor,
		usage:       options.Usage,
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete sends the prompt and returns the raw completion text.
// maxTokens caps the response length, not the prompt. A client without a
// credential refuses locally, so callers reach their offline fallback
// without waiting out a network timeout.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", domain.WrapError(domain.ErrInferenceUnavailable, "inference generate", errors.New("no api key configured"))
	}

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			NumPredict:  maxTokens,
		},
	}

	var response generateResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}

	started := time.Now()
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "inference.generate", call, classifyInferenceError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("inference generate", err)
	}

	if c.usage != nil {
		c.usage.ObserveInference(time.Since(started), response.PromptEvalCount, response.EvalCount)
	}
	return strings.TrimSpace(response.Response), nil
}
