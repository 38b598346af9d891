// Package gemini implements the grade interpreter on top of the Gemini
// generateContent REST API. The model receives the current student record
// and the subject schema, and answers with the complete updated record.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/pkg/circuitbreaker"
	"github.com/archivo-trayectoria/trayectoria/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// DefaultModel is used when ClientConfig.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// ClientConfig contains configuration for the Gemini client.
type ClientConfig struct {
	// BaseURL is the API base URL, without the /v1beta suffix.
	BaseURL string

	// APIKey is sent in the x-goog-api-key header.
	APIKey string

	// Model is the model name, e.g. "gemini-2.0-flash".
	Model string

	// Timeout is the HTTP timeout of a single attempt.
	Timeout time.Duration

	// MaxAttempts bounds the attempts per instruction, first one included.
	MaxAttempts int

	// BreakerThreshold is the number of consecutive failures that opens the circuit.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration

	// Temperature is passed to the model when non-nil.
	Temperature *float64

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	temperature := 0.1
	return ClientConfig{
		BaseURL:          DefaultBaseURL,
		APIKey:           apiKey,
		Model:            DefaultModel,
		Timeout:          30 * time.Second,
		MaxAttempts:      3,
		BreakerThreshold: 3,
		BreakerTimeout:   time.Minute,
		Temperature:      &temperature,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client calls the Gemini API. It satisfies command.Interpreter.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new Gemini client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	logger := config.Logger.With("component", "gemini")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		retrier: retry.InterpreterRetrier(config.MaxAttempts, func(attempt int, err error, delay time.Duration) {
			logger.Warn("retrying gemini request", "attempt", attempt, "delay", delay, "error", err)
		}),
		breaker: circuitbreaker.InterpreterBreaker(
			config.BreakerThreshold,
			config.BreakerTimeout,
			countsAsFailure,
			func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		),
	}
}

// Interpret sends the instruction to the model and returns the record it
// produced. The bytes are not validated here; admission happens upstream.
func (c *Client) Interpret(ctx context.Context, instruction string, current *trajectory.Student, schema *trajectory.Schema) ([]byte, error) {
	prompt, err := buildPrompt(instruction, current, schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInterpreterFailed, err)
	}

	req := GenerateRequestDTO{
		SystemInstruction: &ContentDTO{Parts: []PartDTO{{Text: systemInstruction}}},
		Contents:          []ContentDTO{{Role: "user", Parts: []PartDTO{{Text: prompt}}}},
		GenerationConfig: GenerationConfigDTO{
			ResponseMimeType: "application/json",
			Temperature:      c.config.Temperature,
		},
	}

	start := time.Now()
	var resp GenerateResponseDTO
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			resp = GenerateResponseDTO{}
			return c.doSingleRequest(ctx, req, &resp)
		})
	})
	if err != nil {
		c.logger.Error("gemini request failed", "model", c.config.Model, "duration", time.Since(start), "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrInterpreterFailed, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", shared.ErrInterpreterFailed, resp.PromptFeedback.BlockReason)
	}

	text, ok := resp.Text()
	if !ok {
		return nil, fmt.Errorf("%w: response has no candidates", shared.ErrInterpreterFailed)
	}

	doc := extractDocument(text)
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: empty response", shared.ErrInterpreterFailed)
	}

	c.logger.Debug("gemini request completed", "model", c.config.Model, "duration", time.Since(start), "bytes", len(doc))
	return doc, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.config.BaseURL, url.PathEscape(c.config.Model))
}

// doSingleRequest performs one HTTP attempt. Transient failures are marked
// retry.Retryable so the retrier picks them up.
func (c *Client) doSingleRequest(ctx context.Context, body GenerateRequestDTO, result *GenerateResponseDTO) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("x-goog-api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope errorEnvelopeDTO
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Status = envelope.Error.Status
			apiErr.Message = envelope.Error.Message
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, convErr := strconv.Atoi(ra); convErr == nil {
				apiErr.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		if apiErr.Temporary() {
			return retry.Retryable(apiErr)
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// countsAsFailure keeps client-side mistakes (bad key, bad request) and
// cancellations from opening the circuit.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

// Healthy reports whether the circuit is currently closed.
func (c *Client) Healthy() bool {
	return c.breaker.IsClosed()
}
