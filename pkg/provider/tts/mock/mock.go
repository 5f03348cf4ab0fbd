// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/speakwell/speakwell/pkg/provider/tts"
)

// Provider is a mock implementation of tts.Provider.
// Set WAV to the bytes Synthesize should return and Err to inject a failure.
type Provider struct {
	mu sync.Mutex

	// WAV is returned by Synthesize.
	WAV []byte

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// SynthesizeCalls records every synthesized text in order.
	SynthesizeCalls []string
}

// Synthesize records the call and returns WAV, Err.
func (p *Provider) Synthesize(_ context.Context, text string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.WAV, nil
}

// Calls returns a snapshot of synthesized texts. Thread-safe.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
