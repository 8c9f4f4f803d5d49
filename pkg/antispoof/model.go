package antispoof

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Model is the pretrained binary classifier.
//
// # Input
//
// A [1, 1, SegmentLength] float32 tensor produced by Preprocessor.
//
// # Output
//
// Exactly two logits ordered [fake, real]. Implementations must not keep
// state between calls.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Multiple goroutines
// may call Classify simultaneously.
type Model interface {
	// Classify returns the [fake, real] logits for one channel tensor.
	Classify(t *Tensor) (Logits, error)

	// Close releases any resources held by the model (e.g., ONNX session).
	Close() error
}

// ModelFunc adapts a function to the Model interface. Close is a no-op.
type ModelFunc func(t *Tensor) (Logits, error)

// Classify calls f(t).
func (f ModelFunc) Classify(t *Tensor) (Logits, error) { return f(t) }

// Close does nothing.
func (f ModelFunc) Close() error { return nil }

// ErrNoModel is returned by SwapModel when no model has been installed.
var ErrNoModel = errors.New("antispoof: no model loaded")

// SwapModel is a Model whose implementation can be replaced while in use,
// e.g. when the weights file changes on disk. Calls in flight finish on
// the model they started with; Swap and Close wait for them before
// handing the old model back or closing it.
type SwapModel struct {
	cur atomic.Pointer[modelBox]
}

// modelBox holds one installed model. Classify holds mu for reading;
// retiring takes it for writing, so it waits out every in-flight call.
type modelBox struct {
	m       Model
	mu      sync.RWMutex
	retired bool
}

// acquire read-locks b unless it has been retired.
func (b *modelBox) acquire() bool {
	b.mu.RLock()
	if b.retired {
		b.mu.RUnlock()
		return false
	}
	return true
}

// retire blocks until no call is using b, then marks it unusable.
func (b *modelBox) retire() Model {
	b.mu.Lock()
	b.retired = true
	b.mu.Unlock()
	return b.m
}

// NewSwapModel returns a SwapModel serving m. m may be nil.
func NewSwapModel(m Model) *SwapModel {
	s := &SwapModel{}
	if m != nil {
		s.cur.Store(&modelBox{m: m})
	}
	return s
}

// Swap installs m and returns the previous model once no call is using it
// anymore. The caller should close the returned model.
func (s *SwapModel) Swap(m Model) Model {
	old := s.cur.Swap(&modelBox{m: m})
	if old == nil {
		return nil
	}
	return old.retire()
}

// Loaded reports whether a model is installed.
func (s *SwapModel) Loaded() bool {
	b := s.cur.Load()
	return b != nil && b.m != nil
}

// Classify runs the current model. A call that races with Swap either
// completes on the old model before it is handed back or runs on the new
// one.
func (s *SwapModel) Classify(t *Tensor) (Logits, error) {
	for {
		b := s.cur.Load()
		if b == nil || b.m == nil {
			return Logits{}, ErrNoModel
		}
		if !b.acquire() {
			continue
		}
		l, err := b.m.Classify(t)
		b.mu.RUnlock()
		return l, err
	}
}

// Close waits for in-flight calls and closes the current model.
func (s *SwapModel) Close() error {
	b := s.cur.Swap(nil)
	if b == nil || b.m == nil {
		return nil
	}
	return b.retire().Close()
}
