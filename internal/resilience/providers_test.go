package resilience

import (
	"bytes"
	"context"
	"errors"
	"testing"

	asrmock "github.com/speakwell/speakwell/pkg/provider/asr/mock"
	"github.com/speakwell/speakwell/pkg/provider/llm"
	llmmock "github.com/speakwell/speakwell/pkg/provider/llm/mock"
	ttsmock "github.com/speakwell/speakwell/pkg/provider/tts/mock"
	"github.com/speakwell/speakwell/pkg/types"
)

func TestASRFailover(t *testing.T) {
	primary := &asrmock.Provider{Err: errBackend}
	fallback := &asrmock.Provider{Text: "hello from fallback"}

	f := NewASRFailover("primary", primary)
	f.Add("fallback", fallback)

	got, err := f.Transcribe(context.Background(), types.Clip{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello from fallback" {
		t.Errorf("transcript = %q", got)
	}
	if len(primary.Calls()) != 1 {
		t.Errorf("primary calls = %d, want 1", len(primary.Calls()))
	}
}

func TestLLMFailover(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errBackend}
	fallback := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Corrected."}}

	f := NewLLMFailover("primary", primary)
	f.Add("fallback", fallback)

	resp, err := f.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "fix this"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Corrected." {
		t.Errorf("content = %q", resp.Content)
	}
	// The fallback sees the same request.
	calls := fallback.Calls()
	if len(calls) != 1 || calls[0].Req.Messages[0].Content != "fix this" {
		t.Errorf("fallback calls = %+v", calls)
	}
}

func TestTTSFailover(t *testing.T) {
	wav := []byte("RIFFfakeWAVE")
	primary := &ttsmock.Provider{Err: errBackend}
	fallback := &ttsmock.Provider{WAV: wav}

	f := NewTTSFailover("primary", primary)
	f.Add("fallback", fallback)

	got, err := f.Synthesize(context.Background(), "I am currently in Hyderabad.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(got, wav) {
		t.Errorf("wav = %q", got)
	}
}

func TestFailover_AllBackendsDown(t *testing.T) {
	f := NewASRFailover("primary", &asrmock.Provider{Err: errBackend})
	f.Add("fallback", &asrmock.Provider{Err: errBackend})

	_, err := f.Transcribe(context.Background(), types.Clip{SampleRate: 16000})
	if !errors.Is(err, ErrAllBackendsFailed) {
		t.Errorf("error = %v, want ErrAllBackendsFailed", err)
	}
}
