package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllBackendsFailed is returned when every entry in a [Chain] fails or
// sits behind an open breaker.
var ErrAllBackendsFailed = errors.New("resilience: all backends failed")

// entry pairs one backend with its dedicated breaker.
type entry[T any] struct {
	name    string
	backend T
	breaker *Breaker
}

// Chain tries a primary backend first and falls through to fallbacks in
// registration order. Each backend gets its own [Breaker] so a tripped
// primary is skipped without a call.
type Chain[T any] struct {
	entries     []entry[T]
	breakerOpts []BreakerOption
}

// NewChain creates a Chain with primary as the first entry. breakerOpts
// apply to every backend's breaker.
func NewChain[T any](name string, primary T, breakerOpts ...BreakerOption) *Chain[T] {
	c := &Chain[T]{breakerOpts: breakerOpts}
	c.Add(name, primary)
	return c
}

// Add appends a fallback backend. Fallbacks are tried after the primary in
// the order added.
func (c *Chain[T]) Add(name string, backend T) {
	c.entries = append(c.entries, entry[T]{
		name:    name,
		backend: backend,
		breaker: NewBreaker(name, c.breakerOpts...),
	})
}

// Len returns the number of backends in the chain.
func (c *Chain[T]) Len() int { return len(c.entries) }

// Call tries fn against each backend until one succeeds, returning its
// result. Backends with open breakers are skipped. When every backend fails
// the last error is wrapped in [ErrAllBackendsFailed].
//
// Call is a package-level function because Go methods cannot introduce the
// result type parameter.
func Call[T, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range c.entries {
		e := &c.entries[i]
		var result R
		err := e.breaker.Do(func() error {
			var callErr error
			result, callErr = fn(e.backend)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping backend, breaker open", "backend", e.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", e.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllBackendsFailed, lastErr)
}
