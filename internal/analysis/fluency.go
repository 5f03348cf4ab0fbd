package analysis

import (
	"strings"

	"github.com/speakwell/speakwell/pkg/types"
)

// Band is the traffic-light classification of a fluency score.
type Band string

const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// Segment is one scored span of speech. Start and End are offsets in seconds
// from the beginning of the recording.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
	Band  Band    `json:"band"`
}

// fluency defaults. The ideal rate of 150 words per minute is a widely used
// benchmark for conversational English.
const (
	defaultIdealWPM    = 150.0
	defaultGreenAbove  = 75.0
	defaultYellowAbove = 40.0

	// minScorableDuration is the shortest recording that produces a
	// meaningful words-per-minute figure.
	minScorableDuration = 1.0 // seconds
)

// FluencyOption is a functional option for configuring a FluencyScorer.
type FluencyOption func(*FluencyScorer)

// WithIdealWPM sets the words-per-minute rate that maps to a score of 100.
// Defaults to 150.
func WithIdealWPM(wpm float64) FluencyOption {
	return func(f *FluencyScorer) {
		f.idealWPM = wpm
	}
}

// WithBandThresholds sets the score cutoffs for the green and yellow bands.
// Scores strictly above greenAbove are green, scores strictly above
// yellowAbove are yellow, and everything else is red. Defaults to 75 and 40.
func WithBandThresholds(greenAbove, yellowAbove float64) FluencyOption {
	return func(f *FluencyScorer) {
		f.greenAbove = greenAbove
		f.yellowAbove = yellowAbove
	}
}

// FluencyScorer rates speaking pace against an ideal words-per-minute target.
// It is stateless after construction and safe for concurrent use.
type FluencyScorer struct {
	idealWPM    float64
	greenAbove  float64
	yellowAbove float64
}

// NewFluencyScorer constructs a FluencyScorer with the given options.
func NewFluencyScorer(opts ...FluencyOption) *FluencyScorer {
	f := &FluencyScorer{
		idealWPM:    defaultIdealWPM,
		greenAbove:  defaultGreenAbove,
		yellowAbove: defaultYellowAbove,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Score rates the speaking pace of transcript over the duration of clip.
//
// Recordings shorter than one second, or with an empty transcript, cannot be
// rated and yield a single zero-score red segment spanning the clip. A clip
// with a non-positive duration yields a zero-length red segment.
//
// Otherwise the whole recording is scored as one segment: the speaking rate
// in words per minute is scaled against the ideal rate so that speaking at or
// above the ideal scores 100, and the result is classified into a band.
func (f *FluencyScorer) Score(transcript string, clip types.Clip) []Segment {
	duration := clip.Seconds()
	if duration <= 0 {
		return []Segment{{Start: 0, End: 0, Score: 0, Band: BandRed}}
	}

	words := len(strings.Fields(transcript))
	if words == 0 || duration < minScorableDuration {
		return []Segment{{Start: 0, End: duration, Score: 0, Band: BandRed}}
	}

	wpm := float64(words) / duration * 60.0
	score := 100.0 * wpm / f.idealWPM
	if score > 100.0 {
		score = 100.0
	}

	return []Segment{{
		Start: 0,
		End:   duration,
		Score: score,
		Band:  f.band(score),
	}}
}

// band maps a score to its traffic-light classification.
func (f *FluencyScorer) band(score float64) Band {
	switch {
	case score > f.greenAbove:
		return BandGreen
	case score > f.yellowAbove:
		return BandYellow
	default:
		return BandRed
	}
}
