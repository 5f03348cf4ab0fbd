// Package acceptability defines the Scorer interface for linguistic
// acceptability classification.
//
// An acceptability scorer judges how likely a sentence is to be grammatically
// well-formed English, returning a probability in [0, 1]. The correction
// ensemble uses these scores to rank candidate rewrites and pick the best one.
//
// Implementations must be safe for concurrent use.
package acceptability

import "context"

// Scorer judges the grammatical acceptability of a sentence.
type Scorer interface {
	// Score returns the probability in [0, 1] that sentence is grammatically
	// acceptable. Higher is better. Returns an error if the classification
	// fails or ctx is cancelled; callers treat a failed candidate as
	// unscoreable rather than as score zero.
	Score(ctx context.Context, sentence string) (float64, error)
}
