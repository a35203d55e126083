// Package reasoning implements the external reasoning boundary: a
// pure text-in/text-out client over configured model providers with
// usage accounting.
//
// The client knows nothing about any agent's output shape. It sends a
// system instruction plus a user prompt, retries transient upstream
// failures up to a fixed budget with backoff, trips a circuit breaker
// under sustained failure, and rate-limits outbound calls.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// MaxAttempts is the fixed retry budget per provider for transient
// upstream failures.
const MaxAttempts = 3

// DefaultCallTimeout bounds a single provider attempt.
const DefaultCallTimeout = 30 * time.Second

// Result is the raw text produced by one reasoning call plus token
// usage. Ephemeral — consumed immediately by the structured-output
// extractor.
type Result struct {
	Text     string
	Provider string
	Model    string
	Usage    models.TokenUsage
}

// Client is the text-generation boundary agents depend on.
type Client interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (*Result, error)
}

// Provider configures one upstream text-generation endpoint.
type Provider struct {
	Name     string // identifier in logs ("primary", "backup")
	Kind     string // "openai", "azure-openai", "anthropic", "ollama"
	Endpoint string // "" uses the kind's default
	APIKey   string
	Model    string
}

// HTTPClient is the production Client: ordered provider failover,
// bounded retries, circuit breaker, client-side rate limit.
type HTTPClient struct {
	providers   []Provider
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	callTimeout time.Duration
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithCallTimeout overrides the per-attempt timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.callTimeout = d }
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// WithRateLimit overrides the outbound requests-per-second limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewHTTPClient creates a reasoning client over the given providers,
// tried in order (primary first, then backups).
func NewHTTPClient(providers []Provider, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		providers: providers,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "reasoning",
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		limiter:     rate.NewLimiter(rate.Limit(10), 5),
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends the instruction and prompt to the first configured
// provider that answers, retrying transient failures up to MaxAttempts
// per provider. Exhausting the budget on every provider surfaces the
// last error. Configuration-missing and non-retryable upstream errors
// are never retried.
func (c *HTTPClient) Generate(ctx context.Context, systemInstruction, prompt string) (*Result, error) {
	if len(c.providers) == 0 {
		return nil, &contracts.ConfigurationError{Component: "reasoning", Missing: "providers"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &contracts.CancellationError{Err: err}
	}

	var lastErr error
	for i := range c.providers {
		provider := &c.providers[i]

		result, err := c.generateOne(ctx, provider, systemInstruction, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Cancellation and configuration errors end the whole call;
		// failover only helps with upstream failures.
		if contracts.IsCancellation(err) {
			return nil, err
		}
		if contracts.IsConfiguration(err) && len(c.providers) == 1 {
			return nil, err
		}

		log.Warn().
			Str("provider", provider.Name).
			Str("kind", provider.Kind).
			Err(err).
			Msg("Reasoning provider failed, trying next")
	}

	return nil, fmt.Errorf("reasoning: all providers failed: %w", lastErr)
}

// generateOne runs the retry loop for a single provider inside the
// circuit breaker.
func (c *HTTPClient) generateOne(ctx context.Context, provider *Provider, systemInstruction, prompt string) (*Result, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var result *Result

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(MaxAttempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				return retry.BackOffDelay(n, err, config)
			}),
			retry.RetryIf(contracts.IsTransient),
			retry.LastErrorOnly(true),
		)

		retryErr := r.Do(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()

			var callErr error
			result, callErr = c.call(callCtx, provider, systemInstruction, prompt)
			return callErr
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return result, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &contracts.TransientUpstreamError{Component: "reasoning", Err: err}
		}
		return nil, err
	}
	return out.(*Result), nil
}

// call dispatches one attempt to the provider's wire protocol.
func (c *HTTPClient) call(ctx context.Context, provider *Provider, systemInstruction, prompt string) (*Result, error) {
	switch provider.Kind {
	case "anthropic":
		return c.callAnthropic(ctx, provider, systemInstruction, prompt)
	case "ollama":
		return c.callOpenAI(ctx, provider, systemInstruction, prompt, "http://localhost:11434/v1")
	default:
		// openai, azure-openai, and any OpenAI-compatible endpoint
		return c.callOpenAI(ctx, provider, systemInstruction, prompt, "https://api.openai.com/v1")
	}
}
