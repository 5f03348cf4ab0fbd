// Package asr defines the Provider interface for automatic speech recognition
// backends.
//
// An ASR provider wraps a pretrained transcription model (a whisper.cpp server
// reachable over HTTP, or the whisper.cpp CGO bindings loaded in-process) and
// exposes a uniform batch interface: one decoded clip in, one transcript out.
//
// Implementations must be safe for concurrent use — the underlying model is a
// shared, read-only resource and multiple analysis runs may transcribe
// independent clips at the same time.
package asr

import (
	"context"

	"github.com/speakwell/speakwell/pkg/types"
)

// Provider is the abstraction over any speech recognition backend.
//
// Transcribe performs a single best-effort inference on clip and returns the
// recognized text. An empty string with a nil error is a valid result and
// means the model detected no intelligible speech. Implementations make no
// retries; transient failures are returned as errors and the caller decides
// how to degrade.
type Provider interface {
	Transcribe(ctx context.Context, clip types.Clip) (string, error)
}
