package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

// circuitState tracks rate-limit backoff for the primary provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackGenerator calls the primary provider and swaps to the secondary at most once.
// When both fail the primary's error is returned as a *models.GenerationProviderError.
type FallbackGenerator struct {
	primary   Generator
	secondary Generator
	circuit   *circuitState
	logger    logger.Logger
}

// NewFallbackGenerator wraps primary with an optional secondary. A secondary with the
// same name as the primary is ignored.
func NewFallbackGenerator(primary, secondary Generator, log logger.Logger) *FallbackGenerator {
	if log == nil {
		log = logger.NewNop()
	}
	if secondary != nil && secondary.Name() == primary.Name() {
		log.Warn("Ignoring fallback provider identical to primary", logger.String("provider", primary.Name()))
		secondary = nil
	}
	return &FallbackGenerator{
		primary:   primary,
		secondary: secondary,
		circuit:   &circuitState{},
		logger:    log.Named("llm"),
	}
}

// New builds the configured primary and secondary providers.
func New(cfg config.LLMConfig, log logger.Logger) (*FallbackGenerator, error) {
	primary, err := NewGenerator(&cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	var secondary Generator
	if sc := cfg.SecondaryConfig(); sc != nil {
		if secondary, err = NewGenerator(sc); err != nil {
			return nil, fmt.Errorf("secondary provider: %w", err)
		}
	}
	return NewFallbackGenerator(primary, secondary, log), nil
}

func (f *FallbackGenerator) Name() string {
	if f.secondary == nil {
		return f.primary.Name()
	}
	return f.primary.Name() + "," + f.secondary.Name()
}

func (f *FallbackGenerator) Generate(ctx context.Context, prompt, system string, opts Options) (string, error) {
	now := time.Now()
	var primaryErr error

	if resetAt, open := f.circuit.isOpenWithReset(now); open {
		f.logger.Info("Skipping rate limited provider",
			logger.String("provider", f.primary.Name()),
			logger.Time("until", resetAt))
		primaryErr = NewRateLimitError(f.primary.Name(), errors.New("circuit open"), int(time.Until(resetAt).Seconds()))
	} else {
		out, err := f.primary.Generate(ctx, prompt, system, opts)
		if err == nil {
			return out, nil
		}
		primaryErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			f.circuit.open(now.Add(rlErr.RetryAfter))
		}
	}

	if f.secondary == nil || ctx.Err() != nil {
		return "", &models.GenerationProviderError{Provider: f.primary.Name(), Err: primaryErr}
	}

	f.logger.Warn("Primary provider failed, using fallback",
		logger.String("provider", f.primary.Name()),
		logger.String("fallback", f.secondary.Name()),
		logger.Error(primaryErr))

	out, err := f.secondary.Generate(ctx, prompt, system, opts)
	if err == nil {
		return out, nil
	}
	f.logger.Error("Fallback provider failed",
		logger.String("fallback", f.secondary.Name()),
		logger.Error(err))

	return "", &models.GenerationProviderError{
		Provider: f.primary.Name(),
		Fallback: f.secondary.Name(),
		Err:      primaryErr,
	}
}
