package resilience

import (
	"errors"
	"testing"
)

type countingBackend struct {
	name  string
	err   error
	calls int
}

func (b *countingBackend) do() (string, error) {
	b.calls++
	if b.err != nil {
		return "", b.err
	}
	return b.name, nil
}

func TestChain_PrimaryWins(t *testing.T) {
	primary := &countingBackend{name: "primary"}
	fallback := &countingBackend{name: "fallback"}

	c := NewChain[*countingBackend]("primary", primary)
	c.Add("fallback", fallback)

	got, err := Call(c, func(b *countingBackend) (string, error) { return b.do() })
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "primary" {
		t.Errorf("result = %q, want %q", got, "primary")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestChain_FallsThroughOnFailure(t *testing.T) {
	primary := &countingBackend{name: "primary", err: errBackend}
	fallback := &countingBackend{name: "fallback"}

	c := NewChain[*countingBackend]("primary", primary)
	c.Add("fallback", fallback)

	got, err := Call(c, func(b *countingBackend) (string, error) { return b.do() })
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "fallback" {
		t.Errorf("result = %q, want %q", got, "fallback")
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
}

func TestChain_AllFailed(t *testing.T) {
	c := NewChain[*countingBackend]("primary", &countingBackend{err: errBackend})
	c.Add("fallback", &countingBackend{err: errBackend})

	_, err := Call(c, func(b *countingBackend) (string, error) { return b.do() })
	if !errors.Is(err, ErrAllBackendsFailed) {
		t.Errorf("error = %v, want ErrAllBackendsFailed", err)
	}
	if !errors.Is(err, errBackend) {
		t.Errorf("error = %v, want wrapped backend error", err)
	}
}

func TestChain_OpenBreakerSkipsBackend(t *testing.T) {
	primary := &countingBackend{name: "primary", err: errBackend}
	fallback := &countingBackend{name: "fallback"}

	c := NewChain[*countingBackend]("primary", primary, WithFailureLimit(2))
	c.Add("fallback", fallback)

	call := func() {
		if _, err := Call(c, func(b *countingBackend) (string, error) { return b.do() }); err != nil {
			t.Fatalf("Call: %v", err)
		}
	}

	// Two failing calls trip the primary's breaker.
	call()
	call()
	primaryCalls := primary.calls

	// Further calls go straight to the fallback.
	call()
	call()
	if primary.calls != primaryCalls {
		t.Errorf("primary called %d times after breaker opened, want %d", primary.calls, primaryCalls)
	}
	if fallback.calls != 4 {
		t.Errorf("fallback called %d times, want 4", fallback.calls)
	}
}
