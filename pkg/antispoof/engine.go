package antispoof

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/haivivi/antispoof/pkg/audio"
)

// Loader decodes an audio file into a waveform at the canonical rate.
// *decode.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, path string) (*audio.Waveform, error)
}

// Engine owns the classifier and runs the per-channel pipeline.
type Engine struct {
	model   Model
	loader  Loader
	pre     Preprocessor
	newRand func() Rand
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand makes every prediction draw segment offsets from r. r is used
// without locking, so an Engine configured this way must not be shared
// between goroutines unless r is itself safe for concurrent use.
func WithRand(r Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.newRand = func() Rand { return r }
		}
	}
}

// WithSeed gives every prediction a fresh PCG source seeded with seed, so
// the same input always yields the same segment offsets.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.newRand = func() Rand { return rand.New(rand.NewPCG(seed, seed)) }
	}
}

// WithLoader sets the decoder used by PredictFile.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithPreprocessor overrides the window length or pre-emphasis
// coefficient.
func WithPreprocessor(p Preprocessor) Option {
	return func(e *Engine) {
		e.pre = p
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine around model.
func NewEngine(model Model, opts ...Option) *Engine {
	e := &Engine{
		model: model,
		newRand: func() Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the classifier the engine invokes.
func (e *Engine) Model() Model {
	return e.model
}

// Predict classifies every channel of wf in ascending channel order.
//
// wf must be at audio.CanonicalSampleRate. Channels are processed one at
// a time with one Classify call each; the first failure aborts the call.
func (e *Engine) Predict(wf *audio.Waveform) ([]ChannelResult, error) {
	if wf == nil || wf.NumChannels() == 0 {
		return nil, &ShapeError{What: "waveform channels", Got: 0, Want: 1}
	}
	if wf.SampleRate != audio.CanonicalSampleRate {
		return nil, &ShapeError{What: "waveform sample rate", Got: wf.SampleRate, Want: audio.CanonicalSampleRate}
	}

	rng := e.newRand()
	results := make([]ChannelResult, 0, wf.NumChannels())
	for c := range wf.NumChannels() {
		t, err := e.pre.Process(wf.Channel(c), rng)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", c, err)
		}

		logits, err := e.model.Classify(t)
		if err != nil {
			return nil, &InferenceError{Channel: c, Err: err}
		}
		if !logits.Finite() {
			return nil, &InferenceError{Channel: c, Err: fmt.Errorf("%w: %v", ErrNonFiniteLogits, logits)}
		}

		r := NewChannelResult(c, logits)
		e.logger.Debug("channel classified",
			"channel", c,
			"label", r.Label,
			"confidence", r.Confidence,
			"logits", logits[:],
		)
		results = append(results, r)
	}
	return results, nil
}

// PredictFile decodes path with the configured Loader and classifies it.
func (e *Engine) PredictFile(ctx context.Context, path string) ([]ChannelResult, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("antispoof: no loader configured")
	}
	start := time.Now()
	wf, err := e.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("audio decoded",
		"file", filepath.Base(path),
		"channels", wf.NumChannels(),
		"duration", wf.Duration(),
		"elapsed", time.Since(start),
	)
	return e.Predict(wf)
}
