// Package mock provides a test double for the acceptability.Scorer interface.
package mock

import (
	"context"
	"sync"

	"github.com/speakwell/speakwell/pkg/provider/acceptability"
)

// Scorer is a mock implementation of acceptability.Scorer.
//
// If Scores is non-nil, Score returns the entry keyed by the exact sentence
// text; sentences absent from the map return Default. Set Err to make every
// call fail, or ErrFor to fail only specific sentences.
type Scorer struct {
	mu sync.Mutex

	// Scores maps sentence text to the score returned for it.
	Scores map[string]float64

	// Default is returned for sentences not present in Scores.
	Default float64

	// Err, if non-nil, is returned by every Score call.
	Err error

	// ErrFor maps sentence text to an error returned for that sentence only.
	ErrFor map[string]error

	// ScoreCalls records every scored sentence in order.
	ScoreCalls []string
}

// Score records the call and returns the configured score or error.
func (s *Scorer) Score(_ context.Context, sentence string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScoreCalls = append(s.ScoreCalls, sentence)

	if s.Err != nil {
		return 0, s.Err
	}
	if err, ok := s.ErrFor[sentence]; ok {
		return 0, err
	}
	if score, ok := s.Scores[sentence]; ok {
		return score, nil
	}
	return s.Default, nil
}

// Calls returns a snapshot of the scored sentences. Thread-safe.
func (s *Scorer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ScoreCalls))
	copy(out, s.ScoreCalls)
	return out
}

// Ensure Scorer implements acceptability.Scorer at compile time.
var _ acceptability.Scorer = (*Scorer)(nil)
