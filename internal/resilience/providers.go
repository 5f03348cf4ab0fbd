package resilience

import (
	"context"

	"github.com/speakwell/speakwell/pkg/provider/asr"
	"github.com/speakwell/speakwell/pkg/provider/llm"
	"github.com/speakwell/speakwell/pkg/provider/tts"
	"github.com/speakwell/speakwell/pkg/types"
)

// ASRFailover implements [asr.Provider] over a chain of recognition
// backends.
type ASRFailover struct {
	chain *Chain[asr.Provider]
}

var _ asr.Provider = (*ASRFailover)(nil)

// NewASRFailover creates a failover with primary as the preferred backend.
func NewASRFailover(name string, primary asr.Provider, opts ...BreakerOption) *ASRFailover {
	return &ASRFailover{chain: NewChain(name, primary, opts...)}
}

// Add registers an additional recognition backend.
func (f *ASRFailover) Add(name string, p asr.Provider) {
	f.chain.Add(name, p)
}

// Transcribe runs the clip through the first healthy backend.
func (f *ASRFailover) Transcribe(ctx context.Context, clip types.Clip) (string, error) {
	return Call(f.chain, func(p asr.Provider) (string, error) {
		return p.Transcribe(ctx, clip)
	})
}

// LLMFailover implements [llm.Provider] over a chain of language model
// backends.
type LLMFailover struct {
	chain *Chain[llm.Provider]
}

var _ llm.Provider = (*LLMFailover)(nil)

// NewLLMFailover creates a failover with primary as the preferred backend.
func NewLLMFailover(name string, primary llm.Provider, opts ...BreakerOption) *LLMFailover {
	return &LLMFailover{chain: NewChain(name, primary, opts...)}
}

// Add registers an additional language model backend.
func (f *LLMFailover) Add(name string, p llm.Provider) {
	f.chain.Add(name, p)
}

// Complete sends the request to the first healthy backend.
func (f *LLMFailover) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Call(f.chain, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// TTSFailover implements [tts.Provider] over a chain of synthesis backends.
type TTSFailover struct {
	chain *Chain[tts.Provider]
}

var _ tts.Provider = (*TTSFailover)(nil)

// NewTTSFailover creates a failover with primary as the preferred backend.
func NewTTSFailover(name string, primary tts.Provider, opts ...BreakerOption) *TTSFailover {
	return &TTSFailover{chain: NewChain(name, primary, opts...)}
}

// Add registers an additional synthesis backend.
func (f *TTSFailover) Add(name string, p tts.Provider) {
	f.chain.Add(name, p)
}

// Synthesize voices text through the first healthy backend.
func (f *TTSFailover) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return Call(f.chain, func(p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text)
	})
}
