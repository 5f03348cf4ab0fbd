package whisper_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/speakwell/speakwell/pkg/provider/asr/whisper"
	"github.com/speakwell/speakwell/pkg/types"
)

// ---- helpers ----------------------------------------------------------------

// inferenceServer responds to POST /inference with a JSON body containing
// responseText and increments *callCount on every matched request. The last
// parsed multipart request is captured for field assertions.
type inferenceServer struct {
	srv       *httptest.Server
	callCount atomic.Int32

	mu       chan struct{} // 1-buffered, used as a mutex
	lastWAV  []byte
	lastForm map[string]string
}

func newInferenceServer(t *testing.T, responseText string) *inferenceServer {
	t.Helper()
	is := &inferenceServer{mu: make(chan struct{}, 1)}
	is.mu <- struct{}{}
	is.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		is.callCount.Add(1)

		mr, err := r.MultipartReader()
		if err == nil {
			wav, form := readMultipart(mr)
			<-is.mu
			is.lastWAV = wav
			is.lastForm = form
			is.mu <- struct{}{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
	t.Cleanup(is.srv.Close)
	return is
}

func readMultipart(mr *multipart.Reader) (wav []byte, form map[string]string) {
	form = make(map[string]string)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return wav, form
		}
		data, _ := io.ReadAll(part)
		if part.FormName() == "file" {
			wav = data
		} else {
			form[part.FormName()] = string(data)
		}
	}
}

// speechClip returns a clip with n samples of non-silent PCM at 16 kHz.
func speechClip(n int) types.Clip {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(5000)))
	}
	return types.Clip{
		PCM:        pcm,
		SampleRate: 16000,
		Duration:   time.Duration(n) * time.Second / 16000,
	}
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestNew_WithOptions_DoesNotError(t *testing.T) {
	p, err := whisper.New("http://localhost:8080",
		whisper.WithModel("small"),
		whisper.WithLanguage("de"),
		whisper.WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

// ---- transcription ----------------------------------------------------------

func TestTranscribe_ReturnsTrimmedText(t *testing.T) {
	is := newInferenceServer(t, "  i was currently in hyderabad \n")

	p, _ := whisper.New(is.srv.URL)
	got, err := p.Transcribe(context.Background(), speechClip(1600))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if want := "i was currently in hyderabad"; got != want {
		t.Errorf("Transcribe = %q; want %q", got, want)
	}
	if n := is.callCount.Load(); n != 1 {
		t.Errorf("server called %d time(s); want 1", n)
	}
}

func TestTranscribe_EmptyClip_NoNetworkCall(t *testing.T) {
	is := newInferenceServer(t, "unexpected")

	p, _ := whisper.New(is.srv.URL)
	got, err := p.Transcribe(context.Background(), types.Clip{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "" {
		t.Errorf("Transcribe = %q; want empty", got)
	}
	if n := is.callCount.Load(); n != 0 {
		t.Errorf("server called %d time(s) for empty clip; want 0", n)
	}
}

func TestTranscribe_InvalidSampleRate_ReturnsError(t *testing.T) {
	is := newInferenceServer(t, "")

	p, _ := whisper.New(is.srv.URL)
	clip := speechClip(160)
	clip.SampleRate = 0
	if _, err := p.Transcribe(context.Background(), clip); err == nil {
		t.Fatal("expected error for zero sample rate, got nil")
	}
}

func TestTranscribe_SendsWAVAndFormFields(t *testing.T) {
	is := newInferenceServer(t, "ok")

	p, _ := whisper.New(is.srv.URL,
		whisper.WithLanguage("de"),
		whisper.WithModel("base.en"),
	)
	if _, err := p.Transcribe(context.Background(), speechClip(160)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	<-is.mu
	defer func() { is.mu <- struct{}{} }()

	if len(is.lastWAV) < 44 {
		t.Fatalf("uploaded WAV is %d bytes; want at least the 44-byte header", len(is.lastWAV))
	}
	if got := string(is.lastWAV[0:4]); got != "RIFF" {
		t.Errorf("WAV header starts with %q; want RIFF", got)
	}
	if got := string(is.lastWAV[8:12]); got != "WAVE" {
		t.Errorf("WAV format tag is %q; want WAVE", got)
	}
	if sr := binary.LittleEndian.Uint32(is.lastWAV[24:28]); sr != 16000 {
		t.Errorf("WAV sample rate = %d; want 16000", sr)
	}
	if got := is.lastForm["language"]; got != "de" {
		t.Errorf("language field = %q; want de", got)
	}
	if got := is.lastForm["model"]; got != "base.en" {
		t.Errorf("model field = %q; want base.en", got)
	}
}

func TestTranscribe_ServerError_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.Transcribe(context.Background(), speechClip(160)); err == nil {
		t.Fatal("expected error for HTTP 500, got nil")
	}
}

func TestTranscribe_MalformedJSON_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.Transcribe(context.Background(), speechClip(160)); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestTranscribe_CancelledContext_ReturnsError(t *testing.T) {
	is := newInferenceServer(t, "")

	p, _ := whisper.New(is.srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Transcribe(ctx, speechClip(160)); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}
