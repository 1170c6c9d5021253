package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-3-flash-preview"
	DefaultTimeout = 30 * time.Second
	// DefaultRetryDelay задержка перед первым повтором, далее удваивается
	DefaultRetryDelay = 500 * time.Millisecond
)

var ErrMissingAPIKey = errors.New("gemini API key not configured")

var tracer = otel.Tracer("storefront/gemini")

// APIError ответ API с кодом, отличным от 200
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini API error: status %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Retryable перегрузка и ошибки сервера
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config параметры клиента
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxRetries число повторов для ответов 429 и 5xx; 0 отключает повторы
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client клиент generateContent
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger

	maxRetries int
	retryDelay time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http:    httpClient,
		logger:  logger.With(zap.String("provider", "gemini")),

		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Model имя используемой модели
func (c *Client) Model() string { return c.model }

// Generate один вызов generateContent; ответы 429 и 5xx повторяются с экспоненциальной задержкой
func (c *Client) Generate(ctx context.Context, body *GenerateRequest) (*GenerateResponse, error) {
	ctx, span := tracer.Start(ctx, "ai.generate_content", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", c.model),
		attribute.Int("ai.contents", len(body.Contents)),
	)

	fail := func(phase string, err error) (*GenerateResponse, error) {
		c.logger.Error("gemini request failed", zap.String("phase", phase), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.apiKey == "" {
		return fail("configuration", ErrMissingAPIKey)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fail("request_preparation", fmt.Errorf("marshal request: %w", err))
	}

	start := time.Now()
	var (
		out   *GenerateResponse
		phase string
	)
	for attempt := 0; ; attempt++ {
		out, phase, err = c.attempt(ctx, span, data)
		var apiErr *APIError
		if err == nil || !errors.As(err, &apiErr) || !apiErr.Retryable() || attempt >= c.maxRetries {
			span.SetAttributes(attribute.Int("ai.attempts", attempt+1))
			break
		}
		delay := c.retryDelay << attempt
		c.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fail("retry_wait", ctx.Err())
		case <-time.After(delay):
		}
	}
	if err != nil {
		return fail(phase, err)
	}

	span.SetAttributes(attribute.Int("ai.total_tokens", out.UsageMetadata.TotalTokenCount))
	c.logger.Debug("gemini response",
		zap.Duration("duration", time.Since(start)),
		zap.String("finish_reason", out.Candidates[0].FinishReason),
		zap.Int("total_tokens", out.UsageMetadata.TotalTokenCount),
	)
	return out, nil
}

func (c *Client) attempt(ctx context.Context, span trace.Span, data []byte) (*GenerateResponse, string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, "request_creation", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "request_execution", fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "response_read", fmt.Errorf("read response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, "api_response", handleError(resp.StatusCode, raw)
	}

	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, "response_parse", fmt.Errorf("parse response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return nil, "response_validation", errors.New("no candidates in gemini response")
	}
	return &out, "", nil
}

func handleError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	var er ErrorResponse
	if json.Unmarshal(body, &er) == nil {
		apiErr.Status = er.Error.Status
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
