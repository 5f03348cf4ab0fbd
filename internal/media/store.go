package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/speakwell/speakwell/internal/analysis"
)

// ErrNotFound is returned by [Store.OpenSynthesized] when no stored file
// matches the requested name.
var ErrNotFound = errors.New("media: audio file not found")

// Store keeps uploaded recordings and synthesized responses on local disk in
// two separate directories. Filenames are generated, never taken from the
// client, so stored names are always safe to echo back in API responses.
type Store struct {
	uploadDir string
	outputDir string
}

var _ analysis.AudioStore = (*Store)(nil)

// NewStore creates both directories if needed and returns the Store.
func NewStore(uploadDir, outputDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if dir == "" {
			return nil, errors.New("media: storage directories must not be empty")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("media: create %s: %w", dir, err)
		}
	}
	return &Store{uploadDir: uploadDir, outputDir: outputDir}, nil
}

// SaveUpload writes an uploaded recording to the upload directory under a
// fresh name and returns its full path for decoding. ext is the original
// file extension including the dot (e.g., ".webm"); unrecognizable
// extensions are replaced with ".bin".
func (s *Store) SaveUpload(ext string, r io.Reader) (string, error) {
	if ext == "" || strings.ContainsAny(ext, `/\`) || !strings.HasPrefix(ext, ".") {
		ext = ".bin"
	}
	path := filepath.Join(s.uploadDir, "recording-"+uuid.NewString()+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("media: create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("media: write upload file: %w", err)
	}
	return path, nil
}

// RemoveUpload deletes a stored upload once analysis is done with it.
func (s *Store) RemoveUpload(path string) error {
	if filepath.Dir(path) != filepath.Clean(s.uploadDir) {
		return fmt.Errorf("media: %s is not an upload path", path)
	}
	return os.Remove(path)
}

// SaveSynthesized writes synthesized WAV audio to the output directory and
// returns the generated filename.
func (s *Store) SaveSynthesized(wav []byte) (string, error) {
	filename := "response-" + uuid.NewString() + ".wav"
	path := filepath.Join(s.outputDir, filename)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("media: write synthesized audio: %w", err)
	}
	return filename, nil
}

// OpenSynthesized opens a stored response file by the filename previously
// returned from [Store.SaveSynthesized]. Names containing path separators or
// traversal sequences are rejected.
func (s *Store) OpenSynthesized(filename string) (io.ReadSeekCloser, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.outputDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("media: open %s: %w", filename, err)
	}
	return f, nil
}
