// Package mock provides a configurable in-memory asr.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/speakwell/speakwell/pkg/provider/asr"
	"github.com/speakwell/speakwell/pkg/types"
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Provider is a test double for asr.Provider. Configure Text and Err before
// use; every Transcribe call is recorded in Calls. Safe for concurrent use.
type Provider struct {
	// Text is returned by Transcribe when Err is nil.
	Text string

	// Err is returned by Transcribe when non-nil.
	Err error

	mu    sync.Mutex
	calls []types.Clip
}

// Transcribe records the call and returns the configured Text/Err pair.
func (p *Provider) Transcribe(_ context.Context, clip types.Clip) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, clip)
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// Calls returns a snapshot of all clips passed to Transcribe so far.
func (p *Provider) Calls() []types.Clip {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Clip, len(p.calls))
	copy(out, p.calls)
	return out
}
