package antispoof

import (
	"errors"
	"fmt"
)

// ErrEmptySignal is returned when a channel has no samples to segment.
var ErrEmptySignal = errors.New("antispoof: empty signal")

// ErrNonFiniteLogits is wrapped in an InferenceError when the classifier
// returns NaN or an infinite score.
var ErrNonFiniteLogits = errors.New("antispoof: non-finite logits")

// InferenceError reports a classifier failure on one channel. The whole
// prediction fails when it is returned.
type InferenceError struct {
	Channel int
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("antispoof: inference failed on channel %d: %v", e.Channel, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ShapeError reports a violated shape invariant, such as a tensor that is
// not exactly SegmentLength samples. It indicates a programming defect.
type ShapeError struct {
	What string
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("antispoof: %s: got %d, want %d", e.What, e.Got, e.Want)
}
