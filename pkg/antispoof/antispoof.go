package antispoof

import (
	"fmt"
	"math"
)

const (
	// SegmentLength is the number of samples the classifier consumes per
	// channel.
	SegmentLength = 64600

	// PreEmphasisCoeff is the first-order high-pass coefficient α in
	// y[n] = x[n] - α·x[n-1].
	PreEmphasisCoeff = 0.97
)

// Label is the per-channel decision.
type Label string

const (
	LabelFake Label = "FAKE"
	LabelReal Label = "REAL"
)

// Logits is the raw classifier output for one channel, ordered
// [fake-score, real-score].
type Logits [2]float32

// Fake returns the fake-class score.
func (l Logits) Fake() float32 { return l[0] }

// Real returns the real-class score.
func (l Logits) Real() float32 { return l[1] }

// Finite reports whether both scores are neither NaN nor infinite.
func (l Logits) Finite() bool {
	for _, v := range l {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ChannelResult is the decision for one input channel.
type ChannelResult struct {
	// Channel is the 0-based index in the input channel ordering.
	Channel int `json:"channel"`

	// Label is REAL iff RealProb > FakeProb.
	Label Label `json:"prediction"`

	// Confidence is max(FakeProb, RealProb).
	Confidence float64 `json:"confidence"`

	FakeProb float64 `json:"fake_prob"`
	RealProb float64 `json:"real_prob"`

	// Logits are the raw classifier scores the probabilities came from.
	Logits Logits `json:"logits"`
}

func (r ChannelResult) String() string {
	return fmt.Sprintf("channel %d: %s (%.2f%%)", r.Channel, r.Label, r.Confidence*100)
}
