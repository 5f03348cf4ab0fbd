// Package resilience provides failover across redundant provider backends.
//
// A [Breaker] is a three-state circuit breaker (closed → open → half-open)
// that shields the analysis pipeline from a persistently failing backend.
// [Chain] composes a primary backend with ordered fallbacks, each behind its
// own breaker, so a whisper server or TTS instance going down degrades the
// service instead of breaking it.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and
// the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrBreakerOpen] until the cooldown
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through to decide
	// whether the backend has recovered.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	defaultFailureLimit = 5
	defaultCooldown     = 30 * time.Second
	defaultProbeLimit   = 3
)

// BreakerOption is a functional option for [NewBreaker].
type BreakerOption func(*Breaker)

// WithFailureLimit sets how many consecutive failures open the breaker.
// Defaults to 5.
func WithFailureLimit(n int) BreakerOption {
	return func(b *Breaker) { b.failureLimit = n }
}

// WithCooldown sets how long the breaker stays open before probing the
// backend again. Defaults to 30 s.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.cooldown = d }
}

// WithProbeLimit sets how many half-open probe calls must succeed before the
// breaker closes. Defaults to 3.
func WithProbeLimit(n int) BreakerOption {
	return func(b *Breaker) { b.probeLimit = n }
}

// Breaker is a three-state circuit breaker guarding one backend.
type Breaker struct {
	name         string
	failureLimit int
	cooldown     time.Duration
	probeLimit   int

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probes      int
	probeFails  int
}

// NewBreaker creates a closed Breaker named for log messages.
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:         name,
		failureLimit: defaultFailureLimit,
		cooldown:     defaultCooldown,
		probeLimit:   defaultProbeLimit,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Do runs fn if the breaker allows it. While open it returns
// [ErrBreakerOpen] without calling fn; after the cooldown it moves to
// half-open and admits up to the probe limit of calls.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = StateHalfOpen
		b.probes = 0
		b.probeFails = 0
		slog.Info("breaker half-open", "name", b.name)

	case StateHalfOpen:
		if b.probes >= b.probeLimit {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}

	probing := b.state == StateHalfOpen
	if probing {
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure updates failure accounting. Caller holds b.mu.
func (b *Breaker) onFailure(probing bool) {
	b.lastFailure = time.Now()

	if probing {
		// A failed probe re-opens immediately.
		b.probeFails++
		b.state = StateOpen
		b.failures = b.failureLimit
		slog.Warn("breaker re-opened", "name", b.name)
		return
	}

	b.failures++
	if b.failures >= b.failureLimit {
		b.state = StateOpen
		slog.Warn("breaker opened", "name", b.name, "failures", b.failures)
	}
}

// onSuccess updates success accounting. Caller holds b.mu.
func (b *Breaker) onSuccess(probing bool) {
	if !probing {
		b.failures = 0
		return
	}
	if b.probes-b.probeFails >= b.probeLimit {
		b.state = StateClosed
		b.failures = 0
		b.probes = 0
		b.probeFails = 0
		slog.Info("breaker closed", "name", b.name)
	}
}

// State returns the breaker's current state. An open breaker whose cooldown
// has elapsed reports half-open; the transition itself happens on the next
// [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed with clean counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probes = 0
	b.probeFails = 0
}
