package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/speakwell/speakwell/pkg/types"
)

// clipOf builds a Clip with the given duration. PCM content is irrelevant to
// fluency scoring, only the duration matters.
func clipOf(d time.Duration) types.Clip {
	return types.Clip{
		PCM:        make([]byte, 32),
		SampleRate: 16000,
		Duration:   d,
	}
}

func assertSingleSegment(t *testing.T, segs []Segment) Segment {
	t.Helper()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	return segs[0]
}

func TestFluencyScore_SlowSpeech(t *testing.T) {
	f := NewFluencyScorer()

	// 3 words over 4 seconds = 45 wpm, 30% of the ideal 150.
	segs := f.Score("I am happy", clipOf(4*time.Second))
	seg := assertSingleSegment(t, segs)

	if math.Abs(seg.Score-30.0) > 1e-9 {
		t.Errorf("score = %v, want 30", seg.Score)
	}
	if seg.Band != BandRed {
		t.Errorf("band = %q, want %q", seg.Band, BandRed)
	}
	if seg.Start != 0 || math.Abs(seg.End-4.0) > 1e-9 {
		t.Errorf("segment span = [%v, %v], want [0, 4]", seg.Start, seg.End)
	}
}

func TestFluencyScore_IdealPaceCapsAt100(t *testing.T) {
	f := NewFluencyScorer()

	// 20 words over 5 seconds = 240 wpm, above the ideal: clamp to 100.
	words := "one two three four five six seven eight nine ten " +
		"one two three four five six seven eight nine ten"
	seg := assertSingleSegment(t, f.Score(words, clipOf(5*time.Second)))

	if seg.Score != 100.0 {
		t.Errorf("score = %v, want clamped 100", seg.Score)
	}
	if seg.Band != BandGreen {
		t.Errorf("band = %q, want %q", seg.Band, BandGreen)
	}
}

func TestFluencyScore_Bands(t *testing.T) {
	f := NewFluencyScorer()

	tests := []struct {
		name     string
		words    string
		duration time.Duration
		want     Band
	}{
		// 10 words / 5 s = 120 wpm = score 80 > 75.
		{"green", "a b c d e f g h i j", 5 * time.Second, BandGreen},
		// 6 words / 5 s = 72 wpm = score 48.
		{"yellow", "a b c d e f", 5 * time.Second, BandYellow},
		// 3 words / 5 s = 36 wpm = score 24.
		{"red", "a b c", 5 * time.Second, BandRed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seg := assertSingleSegment(t, f.Score(tc.words, clipOf(tc.duration)))
			if seg.Band != tc.want {
				t.Errorf("band = %q, want %q (score %v)", seg.Band, tc.want, seg.Score)
			}
		})
	}
}

func TestFluencyScore_EmptyTranscript(t *testing.T) {
	f := NewFluencyScorer()
	seg := assertSingleSegment(t, f.Score("   ", clipOf(3*time.Second)))

	if seg.Score != 0 {
		t.Errorf("score = %v, want 0", seg.Score)
	}
	if seg.Band != BandRed {
		t.Errorf("band = %q, want %q", seg.Band, BandRed)
	}
	if math.Abs(seg.End-3.0) > 1e-9 {
		t.Errorf("End = %v, want clip duration 3", seg.End)
	}
}

func TestFluencyScore_TooShortRecording(t *testing.T) {
	f := NewFluencyScorer()
	seg := assertSingleSegment(t, f.Score("hello world", clipOf(500*time.Millisecond)))

	if seg.Score != 0 {
		t.Errorf("score = %v, want 0", seg.Score)
	}
	if seg.Band != BandRed {
		t.Errorf("band = %q, want %q", seg.Band, BandRed)
	}
}

func TestFluencyScore_InvalidDuration(t *testing.T) {
	f := NewFluencyScorer()
	seg := assertSingleSegment(t, f.Score("hello", types.Clip{}))

	if seg.Start != 0 || seg.End != 0 {
		t.Errorf("segment span = [%v, %v], want [0, 0]", seg.Start, seg.End)
	}
	if seg.Score != 0 || seg.Band != BandRed {
		t.Errorf("got score %v band %q, want 0 red", seg.Score, seg.Band)
	}
}

func TestFluencyScore_CustomTargets(t *testing.T) {
	f := NewFluencyScorer(
		WithIdealWPM(60),
		WithBandThresholds(90, 50),
	)

	// 5 words / 5 s = 60 wpm = score 100 against a 60 wpm ideal.
	seg := assertSingleSegment(t, f.Score("a b c d e", clipOf(5*time.Second)))
	if seg.Score != 100.0 {
		t.Errorf("score = %v, want 100", seg.Score)
	}
	if seg.Band != BandGreen {
		t.Errorf("band = %q, want %q", seg.Band, BandGreen)
	}

	// 2 words / 5 s = 24 wpm = score 40: below the custom yellow cutoff.
	seg = assertSingleSegment(t, f.Score("a b", clipOf(5*time.Second)))
	if seg.Band != BandRed {
		t.Errorf("band = %q, want %q (score %v)", seg.Band, BandRed, seg.Score)
	}
}
