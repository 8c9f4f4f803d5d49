package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/haivivi/antispoof/pkg/audio"
	"github.com/haivivi/antispoof/pkg/audio/resampler"
)

// Decoder is one decode strategy.
type Decoder interface {
	// Name identifies the strategy in errors and logs.
	Name() string

	// Decode reads the file at path. The returned waveform may be at any
	// sample rate; mono sources must come back as a single channel.
	Decode(ctx context.Context, path string) (*audio.Waveform, error)
}

// ErrNoDecoder is returned when a Loader has no strategies configured.
var ErrNoDecoder = errors.New("decode: no decoder configured")

// Attempt records one failed strategy.
type Attempt struct {
	Decoder string
	Err     error
}

// Error reports that no strategy could decode a source.
type Error struct {
	// Source is the base name of the input, never a staging path.
	Source   string
	Attempts []Attempt
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "decode %s: ", e.Source)
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %v", a.Decoder, a.Err)
	}
	return b.String()
}

// Unwrap exposes every underlying failure to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// Loader runs decode strategies in order and normalizes the result to
// audio.CanonicalSampleRate.
type Loader struct {
	decoders []Decoder
	quality  resampler.Quality
	tempDir  string
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDecoders replaces the strategy list.
func WithDecoders(ds ...Decoder) Option {
	return func(l *Loader) {
		l.decoders = ds
	}
}

// WithQuality sets the resampling quality used for native-rate decodes.
func WithQuality(q resampler.Quality) Option {
	return func(l *Loader) {
		l.quality = q
	}
}

// WithTempDir sets where LoadReader stages streams (default os.TempDir()).
func WithTempDir(dir string) Option {
	return func(l *Loader) {
		l.tempDir = dir
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader returns a Loader. Without WithDecoders it tries FFmpeg first
// and Native second.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		decoders: []Decoder{NewFFmpeg(), NewNative()},
		quality:  resampler.QualityHigh,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Decoders returns the configured strategies in order.
func (l *Loader) Decoders() []Decoder {
	return l.decoders
}

// Load decodes the file at path.
func (l *Loader) Load(ctx context.Context, path string) (*audio.Waveform, error) {
	if len(l.decoders) == 0 {
		return nil, ErrNoDecoder
	}
	source := filepath.Base(path)
	derr := &Error{Source: source}

	for _, d := range l.decoders {
		if err := ctx.Err(); err != nil {
			derr.Attempts = append(derr.Attempts, Attempt{Decoder: d.Name(), Err: err})
			break
		}
		wf, err := l.try(ctx, d, path)
		if err == nil {
			return wf, nil
		}
		derr.Attempts = append(derr.Attempts, Attempt{Decoder: d.Name(), Err: err})
		l.logger.Warn("decoder failed, trying next",
			"decoder", d.Name(),
			"file", source,
			"error", err,
		)
	}
	return nil, derr
}

func (l *Loader) try(ctx context.Context, d Decoder, path string) (*audio.Waveform, error) {
	wf, err := d.Decode(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	if wf.Len() == 0 {
		return nil, errors.New("no samples")
	}
	if wf.SampleRate == audio.CanonicalSampleRate {
		return wf, nil
	}

	out, err := resampler.ResampleWaveform(wf, audio.CanonicalSampleRate, l.quality)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	l.logger.Debug("resampled",
		"decoder", d.Name(),
		"from", wf.SampleRate,
		"to", audio.CanonicalSampleRate,
	)
	return out, nil
}

// LoadReader stages r into a temporary file and decodes it. name supplies
// the extension hint and the source name reported in errors. The staging
// file is removed before LoadReader returns.
func (l *Loader) LoadReader(ctx context.Context, name string, r io.Reader) (*audio.Waveform, error) {
	f, err := os.CreateTemp(l.tempDir, "antispoof-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, fmt.Errorf("decode: stage %s: %w", filepath.Base(name), err)
	}
	staged := f.Name()
	defer os.Remove(staged)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, fmt.Errorf("decode: stage %s: %w", filepath.Base(name), err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("decode: stage %s: %w", filepath.Base(name), err)
	}

	wf, err := l.Load(ctx, staged)
	var derr *Error
	if errors.As(err, &derr) {
		derr.Source = filepath.Base(name)
	}
	return wf, err
}
