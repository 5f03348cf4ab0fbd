// Package cola provides an acceptability scorer backed by a CoLA-style
// sequence classification model served over HTTP.
//
// The server is expected to expose the standard Hugging Face text
// classification inference interface: POST with a JSON body of the form
// {"inputs": "<sentence>"} returning the per-label scores
// [[{"label": "LABEL_1", "score": 0.97}, {"label": "LABEL_0", "score": 0.03}]].
// For RoBERTa models fine-tuned on the Corpus of Linguistic Acceptability,
// LABEL_1 is the "acceptable" class.
//
// Usage:
//
//	s, err := cola.New("http://localhost:8090")
//	score, err := s.Score(ctx, "She does not like apples.")
package cola

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/speakwell/speakwell/pkg/provider/acceptability"
)

const (
	defaultAcceptableLabel = "LABEL_1"
	defaultTimeout         = 10 * time.Second
)

// Compile-time assertion that Scorer implements acceptability.Scorer.
var _ acceptability.Scorer = (*Scorer)(nil)

// Option is a functional option for configuring a Scorer.
type Option func(*Scorer)

// WithAcceptableLabel sets the label name whose score is reported as the
// acceptability probability. Defaults to "LABEL_1", the convention for CoLA
// fine-tunes. Servers that remap class names (e.g., "acceptable") need this.
func WithAcceptableLabel(label string) Option {
	return func(s *Scorer) {
		s.acceptableLabel = label
	}
}

// WithTimeout sets the per-request HTTP timeout for classification calls.
// Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) {
		s.httpClient.Timeout = d
	}
}

// Scorer implements acceptability.Scorer backed by a text classification
// inference server. It is safe for concurrent use.
type Scorer struct {
	serverURL       string
	acceptableLabel string
	httpClient      *http.Client
}

// New creates a new Scorer that connects to the classification server at
// serverURL (e.g., "http://localhost:8090"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Scorer, error) {
	if serverURL == "" {
		return nil, errors.New("cola: serverURL must not be empty")
	}
	s := &Scorer{
		serverURL:       strings.TrimRight(serverURL, "/"),
		acceptableLabel: defaultAcceptableLabel,
		httpClient:      &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// classifyRequest is the HF text-classification request body.
type classifyRequest struct {
	Inputs string `json:"inputs"`
}

// labelScore is one entry in the server's per-label score list.
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score submits sentence to the classification server and returns the score
// of the acceptable label.
func (s *Scorer) Score(ctx context.Context, sentence string) (float64, error) {
	body, err := json.Marshal(classifyRequest{Inputs: sentence})
	if err != nil {
		return 0, fmt.Errorf("cola: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("cola: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cola: classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("cola: server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	// The HF pipeline wraps results in an outer list, one entry per input.
	var results [][]labelScore
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, fmt.Errorf("cola: decode response: %w", err)
	}
	if len(results) == 0 || len(results[0]) == 0 {
		return 0, errors.New("cola: empty classification result")
	}

	for _, ls := range results[0] {
		if strings.EqualFold(ls.Label, s.acceptableLabel) {
			return ls.Score, nil
		}
	}
	return 0, fmt.Errorf("cola: label %q not present in result", s.acceptableLabel)
}
