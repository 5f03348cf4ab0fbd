package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	accmock "github.com/speakwell/speakwell/pkg/provider/acceptability/mock"
	asrmock "github.com/speakwell/speakwell/pkg/provider/asr/mock"
	ttsmock "github.com/speakwell/speakwell/pkg/provider/tts/mock"
	"github.com/speakwell/speakwell/pkg/types"
)

// fakeAudioStore records saved WAVs and returns a fixed filename.
type fakeAudioStore struct {
	saved    [][]byte
	filename string
	err      error
}

func (s *fakeAudioStore) SaveSynthesized(wav []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, wav)
	return s.filename, nil
}

func testPipeline(asrProvider *asrmock.Provider, ttsProvider *ttsmock.Provider, store *fakeAudioStore) *Pipeline {
	ensemble := NewEnsemble(
		[]Strategy{fixedStrategy{id: "a", text: "She does not like apples."}},
		&accmock.Scorer{
			Scores: map[string]float64{
				"She don't like apples.":    0.1,
				"She does not like apples.": 0.9,
			},
		},
		nil,
	)
	return NewPipeline(asrProvider, ensemble, NewFluencyScorer(), ttsProvider, store)
}

func TestPipelineRun_Success(t *testing.T) {
	asrProvider := &asrmock.Provider{Text: "She don't like apples."}
	ttsProvider := &ttsmock.Provider{WAV: []byte("RIFFwav")}
	store := &fakeAudioStore{filename: "response-abc.wav"}
	p := testPipeline(asrProvider, ttsProvider, store)

	clip := types.Clip{PCM: make([]byte, 64), SampleRate: 16000, Duration: 4 * time.Second}
	res, err := p.Run(context.Background(), clip)
	if err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}

	if res.Transcript != "She don't like apples." {
		t.Errorf("Transcript = %q, want the recognized text", res.Transcript)
	}
	if res.Grammar.CorrectedText != "She does not like apples." {
		t.Errorf("CorrectedText = %q, want the winning candidate", res.Grammar.CorrectedText)
	}
	if len(res.Fluency) != 1 {
		t.Fatalf("got %d fluency segments, want 1", len(res.Fluency))
	}
	if res.AudioFile != "response-abc.wav" {
		t.Errorf("AudioFile = %q, want stored filename", res.AudioFile)
	}

	// The corrected sentence, not the raw transcript, must be voiced.
	ttsCalls := ttsProvider.Calls()
	if len(ttsCalls) != 1 || ttsCalls[0] != "She does not like apples." {
		t.Errorf("TTS calls = %v, want the corrected sentence", ttsCalls)
	}
	if len(store.saved) != 1 {
		t.Errorf("stored %d audio files, want 1", len(store.saved))
	}
}

func TestPipelineRun_EmptyTranscript(t *testing.T) {
	asrProvider := &asrmock.Provider{Text: ""}
	ttsProvider := &ttsmock.Provider{}
	p := testPipeline(asrProvider, ttsProvider, &fakeAudioStore{})

	clip := types.Clip{PCM: make([]byte, 64), SampleRate: 16000, Duration: 2 * time.Second}
	_, err := p.Run(context.Background(), clip)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("Run error = %v, want ErrNoSpeech", err)
	}
	if calls := ttsProvider.Calls(); len(calls) != 0 {
		t.Errorf("TTS called %d times after no speech, want 0", len(calls))
	}
}

func TestPipelineRun_ASRFailureIsNoSpeech(t *testing.T) {
	asrProvider := &asrmock.Provider{Err: errors.New("server unreachable")}
	p := testPipeline(asrProvider, &ttsmock.Provider{}, &fakeAudioStore{})

	clip := types.Clip{PCM: make([]byte, 64), SampleRate: 16000, Duration: 2 * time.Second}
	_, err := p.Run(context.Background(), clip)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("Run error = %v, want ErrNoSpeech", err)
	}
}

func TestPipelineRun_TTSFailure(t *testing.T) {
	asrProvider := &asrmock.Provider{Text: "She don't like apples."}
	ttsProvider := &ttsmock.Provider{Err: errors.New("synthesis failed")}
	p := testPipeline(asrProvider, ttsProvider, &fakeAudioStore{})

	clip := types.Clip{PCM: make([]byte, 64), SampleRate: 16000, Duration: 2 * time.Second}
	_, err := p.Run(context.Background(), clip)
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("Run error = %v, want ErrAnalysisFailed", err)
	}
}

func TestPipelineRun_StoreFailure(t *testing.T) {
	asrProvider := &asrmock.Provider{Text: "She don't like apples."}
	ttsProvider := &ttsmock.Provider{WAV: []byte("RIFFwav")}
	store := &fakeAudioStore{err: errors.New("disk full")}
	p := testPipeline(asrProvider, ttsProvider, store)

	clip := types.Clip{PCM: make([]byte, 64), SampleRate: 16000, Duration: 2 * time.Second}
	_, err := p.Run(context.Background(), clip)
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("Run error = %v, want ErrAnalysisFailed", err)
	}
}
