package antispoof

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/haivivi/antispoof/pkg/audio"
)

// recordingModel returns scripted logits and remembers every input.
type recordingModel struct {
	mu      sync.Mutex
	logits  []Logits
	failAt  int
	inputs  [][]float32
	callCnt int
}

func (m *recordingModel) Classify(t *Tensor) (Logits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.callCnt
	m.callCnt++
	if m.failAt >= 0 && i == m.failAt {
		return Logits{}, errors.New("backend exploded")
	}
	cp := make([]float32, len(t.Data))
	copy(cp, t.Data)
	m.inputs = append(m.inputs, cp)
	return m.logits[i%len(m.logits)], nil
}

func (m *recordingModel) Close() error { return nil }

func newRecordingModel(logits ...Logits) *recordingModel {
	return &recordingModel{logits: logits, failAt: -1}
}

func TestEngine_MonoReal(t *testing.T) {
	model := newRecordingModel(Logits{1, 3})
	e := NewEngine(model, WithSeed(1))

	wf := audio.NewMono(ramp(32000), audio.CanonicalSampleRate)
	results, err := e.Predict(wf)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	r := results[0]
	if r.Channel != 0 || r.Label != LabelReal {
		t.Errorf("result = %+v, want channel 0 REAL", r)
	}
	if math.Abs(r.Confidence-0.881) > 1e-3 {
		t.Errorf("confidence = %v, want ~0.881", r.Confidence)
	}
	if math.Abs(r.FakeProb-0.119) > 1e-3 {
		t.Errorf("fake_prob = %v, want ~0.119", r.FakeProb)
	}
	if len(model.inputs[0]) != SegmentLength {
		t.Errorf("model input len = %d, want %d", len(model.inputs[0]), SegmentLength)
	}
}

func TestEngine_TieIsFake(t *testing.T) {
	e := NewEngine(newRecordingModel(Logits{2, 2}))
	results, err := e.Predict(audio.NewMono(ramp(32000), audio.CanonicalSampleRate))
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Label != LabelFake {
		t.Errorf("label = %s, want FAKE", results[0].Label)
	}
	if results[0].Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", results[0].Confidence)
	}
}

func TestEngine_StereoOrder(t *testing.T) {
	model := newRecordingModel(Logits{5, 0}, Logits{0, 5})
	e := NewEngine(model, WithSeed(7))

	n := SegmentLength + 5000
	left, right := make([]float32, n), make([]float32, n)
	for i := range left {
		left[i] = 0.25
		right[i] = -0.25
	}
	wf := &audio.Waveform{Channels: [][]float32{left, right}, SampleRate: audio.CanonicalSampleRate}

	results, err := e.Predict(wf)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, r := range results {
		if r.Channel != i {
			t.Errorf("results[%d].Channel = %d", i, r.Channel)
		}
	}
	if results[0].Label != LabelFake || results[1].Label != LabelReal {
		t.Errorf("labels = %s, %s; want FAKE, REAL", results[0].Label, results[1].Label)
	}
	// Each channel's tensor comes from its own signal.
	if model.inputs[0][10] <= 0 || model.inputs[1][10] >= 0 {
		t.Errorf("channel tensors swapped: %v, %v", model.inputs[0][10], model.inputs[1][10])
	}
}

func TestEngine_ShortMono(t *testing.T) {
	e := NewEngine(newRecordingModel(Logits{0, 1}))
	results, err := e.Predict(audio.NewMono(ramp(100), audio.CanonicalSampleRate))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
}

func TestEngine_InferenceErrorIsAtomic(t *testing.T) {
	model := newRecordingModel(Logits{0, 1})
	model.failAt = 1
	e := NewEngine(model)

	wf := &audio.Waveform{
		Channels:   [][]float32{ramp(100), ramp(100), ramp(100)},
		SampleRate: audio.CanonicalSampleRate,
	}
	results, err := e.Predict(wf)
	if results != nil {
		t.Errorf("results = %v, want nil on failure", results)
	}
	var ie *InferenceError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *InferenceError", err)
	}
	if ie.Channel != 1 {
		t.Errorf("Channel = %d, want 1", ie.Channel)
	}
	if model.callCnt != 2 {
		t.Errorf("model called %d times, want 2 (stop at failure)", model.callCnt)
	}
}

func TestEngine_NonFiniteLogits(t *testing.T) {
	inf := float32(math.Inf(1))
	nan := float32(math.NaN())
	tests := []struct {
		name   string
		logits Logits
	}{
		{"fake +Inf", Logits{inf, 0}},
		{"real +Inf", Logits{0, inf}},
		{"both -Inf", Logits{-inf, -inf}},
		{"fake NaN", Logits{nan, 1}},
		{"real NaN", Logits{1, nan}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newRecordingModel(Logits{0, 1}, tt.logits)
			e := NewEngine(model, WithSeed(1))
			wf := &audio.Waveform{
				Channels:   [][]float32{ramp(100), ramp(100)},
				SampleRate: audio.CanonicalSampleRate,
			}
			results, err := e.Predict(wf)
			if results != nil {
				t.Errorf("results = %v, want nil", results)
			}
			var ie *InferenceError
			if !errors.As(err, &ie) {
				t.Fatalf("err = %v, want *InferenceError", err)
			}
			if ie.Channel != 1 {
				t.Errorf("Channel = %d, want 1", ie.Channel)
			}
			if !errors.Is(err, ErrNonFiniteLogits) {
				t.Errorf("err = %v, want ErrNonFiniteLogits", err)
			}
		})
	}
}

func TestLogitsFinite(t *testing.T) {
	if !(Logits{-1e30, 3e38}).Finite() {
		t.Error("large finite logits reported non-finite")
	}
	if (Logits{float32(math.NaN()), 0}).Finite() {
		t.Error("NaN logits reported finite")
	}
}

func TestEngine_RejectsNonCanonicalRate(t *testing.T) {
	e := NewEngine(newRecordingModel(Logits{0, 1}))
	_, err := e.Predict(audio.NewMono(ramp(100), 44100))
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ShapeError", err)
	}
	if se.Got != 44100 || se.Want != audio.CanonicalSampleRate {
		t.Errorf("ShapeError = %+v", se)
	}
}

func TestEngine_RejectsEmpty(t *testing.T) {
	e := NewEngine(newRecordingModel(Logits{0, 1}))
	if _, err := e.Predict(&audio.Waveform{SampleRate: audio.CanonicalSampleRate}); err == nil {
		t.Error("expected error for zero channels")
	}
	_, err := e.Predict(audio.NewMono(nil, audio.CanonicalSampleRate))
	if !errors.Is(err, ErrEmptySignal) {
		t.Errorf("err = %v, want ErrEmptySignal", err)
	}
}

func TestEngine_SeedReproducible(t *testing.T) {
	signal := ramp(3 * SegmentLength)
	wf := audio.NewMono(signal, audio.CanonicalSampleRate)

	m1 := newRecordingModel(Logits{0, 1})
	m2 := newRecordingModel(Logits{0, 1})
	if _, err := NewEngine(m1, WithSeed(42)).Predict(wf); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(m2, WithSeed(42)).Predict(wf); err != nil {
		t.Fatal(err)
	}
	for i := range m1.inputs[0] {
		if m1.inputs[0][i] != m2.inputs[0][i] {
			t.Fatalf("seeded runs differ at %d", i)
		}
	}
}

func TestEngine_WithRand(t *testing.T) {
	model := newRecordingModel(Logits{0, 1})
	e := NewEngine(model, WithRand(fixedRand(0)), WithPreprocessor(Preprocessor{Length: 4, Coeff: 0.5}))
	if _, err := e.Predict(audio.NewMono([]float32{2, 4, 6, 8, 10, 12}, audio.CanonicalSampleRate)); err != nil {
		t.Fatal(err)
	}
	want := []float32{2, 3, 4, 5}
	for i, v := range want {
		if model.inputs[0][i] != v {
			t.Fatalf("input = %v, want %v", model.inputs[0], want)
		}
	}
}

type stubLoader struct {
	wf   *audio.Waveform
	err  error
	path string
}

func (l *stubLoader) Load(_ context.Context, path string) (*audio.Waveform, error) {
	l.path = path
	return l.wf, l.err
}

func TestEngine_PredictFile(t *testing.T) {
	loader := &stubLoader{wf: audio.NewMono(ramp(32000), audio.CanonicalSampleRate)}
	e := NewEngine(newRecordingModel(Logits{1, 3}), WithLoader(loader))

	results, err := e.PredictFile(context.Background(), "/tmp/in.wav")
	if err != nil {
		t.Fatal(err)
	}
	if loader.path != "/tmp/in.wav" {
		t.Errorf("loader path = %q", loader.path)
	}
	if len(results) != 1 || results[0].Label != LabelReal {
		t.Errorf("results = %+v", results)
	}
}

func TestEngine_PredictFileDecodeError(t *testing.T) {
	want := errors.New("bad container")
	e := NewEngine(newRecordingModel(Logits{1, 3}), WithLoader(&stubLoader{err: want}))
	if _, err := e.PredictFile(context.Background(), "x.wav"); !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestEngine_PredictFileNoLoader(t *testing.T) {
	e := NewEngine(newRecordingModel(Logits{1, 3}))
	if _, err := e.PredictFile(context.Background(), "x.wav"); err == nil {
		t.Error("expected error without a loader")
	}
}
