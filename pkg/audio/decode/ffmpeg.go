package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/haivivi/antispoof/pkg/audio"
)

var errInstallHint = errors.New("executable not found, install ffmpeg (apt install ffmpeg / brew install ffmpeg)")

// FFmpeg decodes through the ffprobe and ffmpeg executables. It asks
// ffmpeg for float32 little-endian output at the target rate with the
// source's channel count, so no further resampling is needed.
type FFmpeg struct {
	// FFmpegPath and FFprobePath default to "ffmpeg" and "ffprobe" on PATH.
	FFmpegPath  string
	FFprobePath string

	// Rate is the output sample rate. Zero means audio.CanonicalSampleRate.
	Rate int
}

// NewFFmpeg returns an FFmpeg strategy using the executables on PATH.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{}
}

func (f *FFmpeg) Name() string { return "ffmpeg" }

func (f *FFmpeg) ffmpeg() string {
	if f.FFmpegPath != "" {
		return f.FFmpegPath
	}
	return "ffmpeg"
}

func (f *FFmpeg) ffprobe() string {
	if f.FFprobePath != "" {
		return f.FFprobePath
	}
	return "ffprobe"
}

func (f *FFmpeg) rate() int {
	if f.Rate > 0 {
		return f.Rate
	}
	return audio.CanonicalSampleRate
}

// StreamChannels returns the channel count of the first audio stream in path.
func (f *FFmpeg) StreamChannels(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe(),
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=channels,sample_rate,codec_name",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, execError("ffprobe", path, err, &stderr)
	}
	return parseStreamInfo(out)
}

// parseStreamInfo extracts the channel count from ffprobe's JSON output.
func parseStreamInfo(out []byte) (int, error) {
	if !gjson.ValidBytes(out) {
		return 0, errors.New("ffprobe: invalid json output")
	}
	ch := gjson.GetBytes(out, "streams.0.channels")
	if !ch.Exists() {
		return 0, errors.New("ffprobe: no audio stream")
	}
	n := int(ch.Int())
	if n <= 0 {
		return 0, fmt.Errorf("ffprobe: invalid channel count %d", n)
	}
	return n, nil
}

// Decode implements Decoder.
func (f *FFmpeg) Decode(ctx context.Context, path string) (*audio.Waveform, error) {
	channels, err := f.StreamChannels(ctx, path)
	if err != nil {
		return nil, err
	}

	rate := f.rate()
	cmd := exec.CommandContext(ctx, f.ffmpeg(),
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, execError("ffmpeg", path, err, &stderr)
	}

	samples, err := parseF32LE(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	return audio.Deinterleave(samples, channels, rate)
}

// parseF32LE converts raw float32 little-endian PCM into samples.
func parseF32LE(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("ffmpeg: truncated f32le output (%d bytes)", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// execError wraps a failed command. The input path is shortened to its
// base name in the captured stderr.
func execError(name, path string, err error, stderr *bytes.Buffer) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%s: %w", name, errInstallHint)
	}
	msg := strings.TrimSpace(stderr.String())
	if path != "" {
		msg = strings.ReplaceAll(msg, path, filepath.Base(path))
	}
	if msg != "" {
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return fmt.Errorf("%s: %w", name, err)
}
