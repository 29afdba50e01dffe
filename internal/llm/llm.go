// Package llm wraps model generation behind a small interface with retry,
// proactive rate limiting and structured reasoning/answer replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/trispace-io/trispace/internal/log"
)

// ErrUnavailable indicates no generation backend could serve the request.
var ErrUnavailable = errors.New("generation backend unavailable")

// StreamCallback receives text chunks as the model produces them.
type StreamCallback func(ctx context.Context, chunk string) error

// Request describes one generation call.
type Request struct {
	System        string
	Prompt        string
	WithReasoning bool
	Stream        StreamCallback
}

// Config configures a Generator.
type Config struct {
	ModelName   string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Retry       RetryConfig
	RateLimiter *rate.Limiter
}

// Generator produces model replies through genkit.
// It is safe for concurrent use by multiple goroutines.
type Generator struct {
	g       *genkit.Genkit
	cfg     Config
	limiter *rate.Limiter
	logger  log.Logger
}

// New creates a Generator. A nil rate limiter in cfg gets a default of
// 10 requests per second with burst 30; logger may be nil.
func New(g *genkit.Genkit, cfg Config, logger log.Logger) (*Generator, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = log.NewNop()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Generator{g: g, cfg: cfg, limiter: limiter, logger: logger}, nil
}

// Generate runs one model call and returns the structured reply.
// The call is bounded by the configured timeout, rate limited per attempt
// and retried with exponential backoff on transient failures.
func (gen *Generator) Generate(ctx context.Context, req Request) (Reply, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Reply{}, fmt.Errorf("empty prompt")
	}

	genCtx, cancel := context.WithTimeout(ctx, gen.cfg.Timeout)
	defer cancel()

	system := req.System
	if req.WithReasoning {
		system += reasoningInstruction
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(gen.cfg.ModelName),
		ai.WithPrompt(req.Prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(gen.cfg.Temperature),
			MaxOutputTokens: gen.cfg.MaxTokens,
		}),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}
	if req.Stream != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return req.Stream(ctx, chunk.Text())
		}))
	}

	resp, err := gen.generateWithRetry(genCtx, func(ctx context.Context) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, gen.g, opts...)
	})
	if err != nil {
		return Reply{}, err
	}

	return SplitReasoning(resp.Text()), nil
}

// generateWithRetry executes the call with exponential backoff.
// Each attempt waits on the rate limiter first so retries cannot amplify
// load on an already struggling backend. Exhausting retries on a
// transient error stays a runtime failure; ErrUnavailable is reserved
// for backends that were never usable.
func (gen *Generator) generateWithRetry(ctx context.Context, call func(context.Context) (*ai.ModelResponse, error)) (*ai.ModelResponse, error) {
	var lastErr error
	delay := gen.cfg.Retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= gen.cfg.Retry.MaxRetries; attempt++ {
		if err := gen.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := call(ctx)
		if err == nil {
			gen.logger.Debug("generation completed",
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			return resp, nil
		}

		lastErr = err
		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if attempt == gen.cfg.Retry.MaxRetries {
			break
		}

		gen.logger.Debug("retrying generation",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, gen.cfg.Retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		gen.cfg.Retry.MaxRetries, time.Since(start), lastErr)
}
