package parser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"parcelscope/internal/domain"
	"parcelscope/internal/port"
)

// RetryConfig bounds the calls a RetryingParser makes for one request.
type RetryConfig struct {
	MaxAttempts     int
	AttemptTimeout  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns three attempts of at most 60s each.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		AttemptTimeout:  60 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

// RetryingParser wraps a provider with a per-attempt timeout and bounded
// exponential backoff. Only transient failures are retried. Terminal errors
// wrap domain.ErrModelRequestRejected, domain.ErrModelTimeout or
// domain.ErrModelUnavailable together with the last provider error.
// It implements port.DocumentParser.
type RetryingParser struct {
	inner port.DocumentParser
	name  string
	cfg   RetryConfig
}

// NewRetryingParser wraps inner. Zero fields in cfg take their defaults.
func NewRetryingParser(inner port.DocumentParser, name string, cfg RetryConfig) *RetryingParser {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	return &RetryingParser{inner: inner, name: name, cfg: cfg}
}

func (r *RetryingParser) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxAttempts-1)), ctx)
}

func (r *RetryingParser) Analyze(ctx context.Context, req port.AnalysisRequest) (*port.ModelResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, r.classify(ctx, err, 0)
	}

	var (
		resp     *port.ModelResponse
		lastErr  error
		attempts int
	)

	op := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		defer cancel()

		out, err := r.inner.Analyze(attemptCtx, req)
		if err == nil {
			resp = out
			return nil
		}
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = fmt.Errorf("attempt timed out after %s: %w", r.cfg.AttemptTimeout, context.DeadlineExceeded)
		}
		lastErr = err
		if !IsTransient(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		// Retry-After usually exceeds the backoff budget; the fallback
		// parser opens this provider's circuit for that long instead.
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Printf("parser.RetryingParser: %s attempt %d/%d failed, retrying in %s: %v",
			r.name, attempts, r.cfg.MaxAttempts, wait.Round(time.Millisecond), err)
	}

	if err := backoff.RetryNotify(op, r.newBackOff(ctx), notify); err == nil {
		return resp, nil
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, r.classify(ctx, lastErr, attempts)
}

func (r *RetryingParser) classify(ctx context.Context, err error, attempts int) error {
	var stErr *StatusError
	if errors.As(err, &stErr) && stErr.StatusCode >= 400 && stErr.StatusCode < 500 &&
		stErr.StatusCode != 429 {
		return fmt.Errorf("%w: %w", domain.ErrModelRequestRejected, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %d attempt(s): %w", domain.ErrModelTimeout, r.name, attempts, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", r.name, context.Canceled)
	}
	if !IsTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrModelRequestRejected, err)
	}
	return fmt.Errorf("%w: %s after %d attempt(s): %w", domain.ErrModelUnavailable, r.name, attempts, err)
}
