// Package types defines the shared types used across all SpeakWell packages.
//
// These types form the lingua franca between the audio decode layer, the
// analysis pipeline, and the model providers. They are intentionally minimal —
// each package defines its own domain types, but cross-cutting data structures
// live here to avoid circular imports.
package types

import "time"

// Clip is a decoded, fixed-sample-rate mono audio recording. It is produced
// once by the decode utility and consumed read-only by the transcriber and the
// fluency scorer; no pipeline stage mutates it.
type Clip struct {
	// PCM holds raw 16-bit signed little-endian mono samples.
	PCM []byte

	// SampleRate in Hz. The decode utility always produces 16 000.
	SampleRate int

	// Duration is the total length of the recording.
	Duration time.Duration
}

// Seconds returns the clip duration in seconds as a float, the unit used by
// the fluency math and by fluency segment boundaries.
func (c Clip) Seconds() float64 {
	return c.Duration.Seconds()
}
