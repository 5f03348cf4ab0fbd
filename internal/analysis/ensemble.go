package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/speakwell/speakwell/pkg/provider/acceptability"
)

// ErrorDetail describes one correction applied to the transcript.
type ErrorDetail struct {
	Type      string `json:"type"`
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

// GrammarResult is the outcome of running the correction ensemble on a
// transcript. Score is the acceptability of the winning candidate on a
// 0–100 scale.
type GrammarResult struct {
	Score         float64       `json:"score"`
	CorrectedText string        `json:"corrected_text"`
	Errors        []ErrorDetail `json:"errors"`
}

// Ensemble runs every correction strategy on a transcript, scores the
// resulting candidates for grammatical acceptability, and returns the best
// one. The original transcript always competes as a candidate of its own, so
// a correct sentence is never "corrected" into something worse.
//
// Ensemble is stateless per call and safe for concurrent use.
type Ensemble struct {
	strategies []Strategy
	scorer     acceptability.Scorer
	logger     *slog.Logger
}

// NewEnsemble builds an Ensemble over the given strategies, evaluated in
// order, and the acceptability scorer used to rank candidates.
func NewEnsemble(strategies []Strategy, scorer acceptability.Scorer, logger *slog.Logger) *Ensemble {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ensemble{strategies: strategies, scorer: scorer, logger: logger}
}

// candidate pairs a proposal with the strategy that produced it.
type candidate struct {
	source string
	text   string
}

// Correct runs the ensemble on transcript.
//
// Candidates are collected in a fixed order — the original first, then one
// proposal per strategy — and deduplicated by exact text. Each candidate is
// scored for acceptability; a scorer failure skips that candidate rather than
// aborting the run. Among scored candidates the highest score wins, with ties
// broken in favor of the earliest candidate, so the original text wins any
// tie against a rewrite. If every candidate fails to score, the original is
// returned with a zero score.
//
// An error is reported for the winning rewrite only when it differs from the
// original beyond case and whitespace.
func (e *Ensemble) Correct(ctx context.Context, transcript string) GrammarResult {
	original := strings.TrimSpace(transcript)
	if original == "" {
		return GrammarResult{Score: 0, CorrectedText: "", Errors: []ErrorDetail{}}
	}

	candidates := []candidate{{source: "original", text: original}}
	seen := map[string]bool{original: true}
	for _, s := range e.strategies {
		proposal := strings.TrimSpace(s.Propose(ctx, original))
		if proposal == "" || seen[proposal] {
			continue
		}
		seen[proposal] = true
		candidates = append(candidates, candidate{source: s.ID(), text: proposal})
	}

	best := candidate{source: "original", text: original}
	bestScore := -1.0
	for _, c := range candidates {
		score, err := e.scorer.Score(ctx, c.text)
		if err != nil {
			e.logger.Warn("acceptability scoring failed, skipping candidate",
				"source", c.source, "error", err)
			continue
		}
		if score > bestScore {
			best = c
			bestScore = score
		}
	}

	if bestScore < 0 {
		e.logger.Warn("no candidate could be scored, keeping original transcript")
		return GrammarResult{Score: 0, CorrectedText: original, Errors: []ErrorDetail{}}
	}

	finalScore := bestScore * 100.0
	if finalScore > 100.0 {
		finalScore = 100.0
	}

	errs := []ErrorDetail{}
	if normalizeForCompare(best.text) != normalizeForCompare(original) {
		errs = append(errs, ErrorDetail{
			Type:      "grammar",
			Original:  original,
			Corrected: best.text,
		})
	}

	return GrammarResult{
		Score:         finalScore,
		CorrectedText: best.text,
		Errors:        errs,
	}
}

// normalizeForCompare lowercases and collapses whitespace so that incidental
// formatting differences do not count as corrections.
func normalizeForCompare(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
