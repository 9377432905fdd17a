package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllProvidersFailed is returned when every entry in a [Chain] failed or
// had an open breaker.
var ErrAllProvidersFailed = errors.New("resilience: all providers failed")

// ChainConfig configures the per-entry breaker created for each provider in
// a [Chain].
type ChainConfig struct {
	Breaker BreakerConfig
	Logger  *slog.Logger
}

type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain holds an ordered list of same-typed providers, each behind its own
// circuit breaker. Calls go to the first healthy entry; a failure or an open
// breaker moves on to the next.
//
// Chain is safe for concurrent use after all Add calls are done.
type Chain[T any] struct {
	entries []chainEntry[T]
	cfg     ChainConfig
	logger  *slog.Logger
}

// NewChain creates a [Chain] with primary as the first entry.
func NewChain[T any](name string, primary T, cfg ChainConfig) *Chain[T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Chain[T]{cfg: cfg, logger: cfg.Logger}
	c.Add(name, primary)
	return c
}

// Add appends a fallback provider. Entries are tried in insertion order.
func (c *Chain[T]) Add(name string, value T) {
	bc := c.cfg.Breaker
	bc.Name = name
	bc.Logger = c.logger
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bc),
	})
}

// Names returns the entry names in order.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Execute tries fn against each entry in order until one succeeds. Entries
// with an open breaker are skipped. When every entry fails, the last error
// is wrapped in [ErrAllProvidersFailed].
func (c *Chain[T]) Execute(fn func(T) error) error {
	_, err := Run(c, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// Run tries fn against each entry until one succeeds and returns its result.
// A package-level function because Go has no method-level type parameters.
func Run[T, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.entries {
		entry := &c.entries[i]
		var result R
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			c.logger.Debug("skipping provider, breaker open", "provider", entry.name)
		} else {
			c.logger.Warn("provider failed, trying next", "provider", entry.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}
