// Package media handles the audio files around the analysis pipeline:
// decoding browser uploads into the PCM format the ASR models expect, and
// storing uploads and synthesized responses on disk.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/speakwell/speakwell/pkg/types"
)

// ErrDecode is returned when ffmpeg cannot decode an uploaded file. It
// usually means the upload is truncated or not audio at all, so callers
// should treat it as a client error.
var ErrDecode = errors.New("media: audio decode failed")

// targetSampleRate is the mono sample rate expected by the speech models.
const targetSampleRate = 16000

// DecoderOption is a functional option for configuring a Decoder.
type DecoderOption func(*Decoder)

// WithFFmpegPath overrides the ffmpeg binary location. Defaults to resolving
// "ffmpeg" from PATH.
func WithFFmpegPath(path string) DecoderOption {
	return func(d *Decoder) {
		d.ffmpegPath = path
	}
}

// Decoder converts uploaded audio files of any container format into 16 kHz
// mono 16-bit PCM by shelling out to ffmpeg. It is stateless and safe for
// concurrent use.
type Decoder struct {
	ffmpegPath string
}

// NewDecoder constructs a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{ffmpegPath: "ffmpeg"}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode reads the audio file at path and returns it as a 16 kHz mono clip.
// ffmpeg writes raw s16le samples to stdout, so no intermediate file is
// created. Any ffmpeg failure is reported as an error wrapping [ErrDecode]
// with the tail of ffmpeg's stderr attached.
func (d *Decoder) Decode(ctx context.Context, path string) (types.Clip, error) {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(targetSampleRate),
		"-f", "s16le",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return types.Clip{}, fmt.Errorf("%w: %s", ErrDecode, detail)
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return types.Clip{}, fmt.Errorf("%w: no audio stream in %s", ErrDecode, path)
	}

	samples := len(pcm) / 2
	return types.Clip{
		PCM:        pcm,
		SampleRate: targetSampleRate,
		Duration:   time.Duration(samples) * time.Second / targetSampleRate,
	}, nil
}
