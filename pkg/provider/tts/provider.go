// Package tts defines the Provider interface for text-to-speech synthesis.
//
// The pipeline uses TTS to voice the corrected version of a learner's
// utterance so they can hear what the sentence should have sounded like.
// Providers return complete WAV files suitable for serving to a browser
// audio element.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider synthesizes speech from text.
type Provider interface {
	// Synthesize converts text to speech and returns a complete RIFF/WAV
	// file. Returns an error if synthesis fails or ctx is cancelled.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
