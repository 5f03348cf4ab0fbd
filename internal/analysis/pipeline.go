// Package analysis implements the speech analysis pipeline: transcription,
// grammar correction via a scored candidate ensemble, fluency rating, and
// synthesis of the corrected sentence.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/speakwell/speakwell/internal/observe"
	"github.com/speakwell/speakwell/pkg/provider/asr"
	"github.com/speakwell/speakwell/pkg/provider/tts"
	"github.com/speakwell/speakwell/pkg/types"
)

// ErrNoSpeech is returned by [Pipeline.Run] when no intelligible speech could
// be recognized in the recording.
var ErrNoSpeech = errors.New("analysis: no speech recognized")

// ErrAnalysisFailed is returned by [Pipeline.Run] when a stage after
// transcription fails in a way that prevents producing a complete result.
var ErrAnalysisFailed = errors.New("analysis: analysis failed")

// AudioStore persists synthesized audio and returns the filename it can
// later be served under.
type AudioStore interface {
	SaveSynthesized(wav []byte) (filename string, err error)
}

// Result is the complete outcome of analysing one recording.
type Result struct {
	// Transcript is the recognized text of the recording.
	Transcript string `json:"transcript"`

	// Grammar holds the correction ensemble outcome.
	Grammar GrammarResult `json:"grammar"`

	// Fluency holds the scored speech segments.
	Fluency []Segment `json:"fluency"`

	// AudioFile is the stored filename of the synthesized corrected
	// sentence, empty when synthesis produced no audio.
	AudioFile string `json:"audio_file"`
}

// default per-stage deadlines. Transcription and synthesis run model
// inference on possibly long recordings and get a generous budget.
const (
	defaultASRTimeout = 60 * time.Second
	defaultTTSTimeout = 60 * time.Second
)

// PipelineOption is a functional option for configuring a Pipeline.
type PipelineOption func(*Pipeline)

// WithASRTimeout bounds the transcription stage. Defaults to 60 s.
func WithASRTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.asrTimeout = d
	}
}

// WithTTSTimeout bounds the synthesis stage. Defaults to 60 s.
func WithTTSTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.ttsTimeout = d
	}
}

// WithMetrics sets the metrics instance used for stage instrumentation.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the pipeline logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// Pipeline runs the full analysis of a decoded recording. It is safe for
// concurrent use; every Run call is independent.
type Pipeline struct {
	asr      asr.Provider
	ensemble *Ensemble
	fluency  *FluencyScorer
	tts      tts.Provider
	audio    AudioStore

	metrics *observe.Metrics
	logger  *slog.Logger

	asrTimeout time.Duration
	ttsTimeout time.Duration
}

// NewPipeline wires the analysis stages together.
func NewPipeline(asrProvider asr.Provider, ensemble *Ensemble, fluency *FluencyScorer, ttsProvider tts.Provider, audio AudioStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		asr:        asrProvider,
		ensemble:   ensemble,
		fluency:    fluency,
		tts:        ttsProvider,
		audio:      audio,
		asrTimeout: defaultASRTimeout,
		ttsTimeout: defaultTTSTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run analyses clip end to end.
//
// A transcription failure is treated the same as an empty transcript: both
// mean no usable speech and yield [ErrNoSpeech]. After transcription the
// grammar ensemble and the fluency scorer run concurrently; neither can fail
// the run. Synthesis of the corrected sentence and storage of the resulting
// audio run last, and their failure yields an error wrapping
// [ErrAnalysisFailed].
func (p *Pipeline) Run(ctx context.Context, clip types.Clip) (*Result, error) {
	start := time.Now()

	transcript, err := p.transcribe(ctx, clip)
	if err != nil {
		p.logger.Warn("transcription failed, treating recording as silent", "error", err)
		p.metrics.RecordProviderError(ctx, "asr", "transcribe")
		transcript = ""
	}
	if transcript == "" {
		p.metrics.RecordAnalysisRun(ctx, "no_speech")
		return nil, ErrNoSpeech
	}

	result := &Result{Transcript: transcript}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		result.Grammar = p.ensemble.Correct(gctx, transcript)
		p.metrics.GrammarDuration.Record(gctx, time.Since(t).Seconds())
		return nil
	})
	g.Go(func() error {
		result.Fluency = p.fluency.Score(transcript, clip)
		return nil
	})
	if err := g.Wait(); err != nil {
		p.metrics.RecordAnalysisRun(ctx, "error")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	audioFile, err := p.synthesize(ctx, result.Grammar.CorrectedText)
	if err != nil {
		p.metrics.RecordAnalysisRun(ctx, "error")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	result.AudioFile = audioFile

	p.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	p.metrics.RecordAnalysisRun(ctx, "ok")
	return result, nil
}

// transcribe runs the ASR stage under its deadline and records its latency.
func (p *Pipeline) transcribe(ctx context.Context, clip types.Clip) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.asrTimeout)
	defer cancel()

	start := time.Now()
	transcript, err := p.asr.Transcribe(ctx, clip)
	p.metrics.ASRDuration.Record(ctx, time.Since(start).Seconds())
	return transcript, err
}

// synthesize voices text under the TTS deadline and stores the result.
// Empty text skips synthesis and returns no filename.
func (p *Pipeline) synthesize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.ttsTimeout)
	defer cancel()

	start := time.Now()
	wav, err := p.tts.Synthesize(ctx, text)
	p.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, "tts", "synthesize")
		return "", fmt.Errorf("synthesize corrected speech: %w", err)
	}

	filename, err := p.audio.SaveSynthesized(wav)
	if err != nil {
		return "", fmt.Errorf("store synthesized audio: %w", err)
	}
	return filename, nil
}
