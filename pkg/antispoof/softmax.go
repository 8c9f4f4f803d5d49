package antispoof

import "math"

// Softmax converts logits into probabilities [fake, real]. The maximum
// logit is subtracted before exponentiating so large scores do not
// overflow. Logits must be finite; see Logits.Finite.
func Softmax(l Logits) [2]float64 {
	a, b := float64(l[0]), float64(l[1])
	m := math.Max(a, b)
	ea, eb := math.Exp(a-m), math.Exp(b-m)
	sum := ea + eb
	return [2]float64{ea / sum, eb / sum}
}

// Decide maps probabilities to a label and confidence. REAL requires the
// real probability to be strictly greater; an exact tie is FAKE.
func Decide(probs [2]float64) (Label, float64) {
	fakeP, realP := probs[0], probs[1]
	if realP > fakeP {
		return LabelReal, realP
	}
	return LabelFake, fakeP
}

// NewChannelResult builds the result for one channel from raw logits.
func NewChannelResult(channel int, l Logits) ChannelResult {
	probs := Softmax(l)
	label, conf := Decide(probs)
	return ChannelResult{
		Channel:    channel,
		Label:      label,
		Confidence: conf,
		FakeProb:   probs[0],
		RealProb:   probs[1],
		Logits:     l,
	}
}
