package antispoof

// Tensor is a model-ready input for one channel, laid out as
// [batch=1, channel=1, samples].
type Tensor struct {
	Data []float32
}

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() []int64 {
	return []int64{1, 1, int64(len(t.Data))}
}

// PreEmphasis applies y[0] = x[0], y[n] = x[n] - coeff·x[n-1] and returns
// a new slice.
func PreEmphasis(x []float32, coeff float32) []float32 {
	y := make([]float32, len(x))
	if len(x) == 0 {
		return y
	}
	y[0] = x[0]
	for n := 1; n < len(x); n++ {
		y[n] = x[n] - coeff*x[n-1]
	}
	return y
}

// Preprocessor turns one raw channel into a fixed-length Tensor.
type Preprocessor struct {
	// Length is the output window in samples. Zero means SegmentLength.
	Length int

	// Coeff is the pre-emphasis coefficient. Zero means PreEmphasisCoeff.
	Coeff float32
}

func (p Preprocessor) length() int {
	if p.Length > 0 {
		return p.Length
	}
	return SegmentLength
}

func (p Preprocessor) coeff() float32 {
	if p.Coeff != 0 {
		return p.Coeff
	}
	return PreEmphasisCoeff
}

// Process filters the channel and cuts or tiles it to the window length.
// The output length is checked; a mismatch is a ShapeError.
func (p Preprocessor) Process(channel []float32, rng Rand) (*Tensor, error) {
	filtered := PreEmphasis(channel, p.coeff())
	seg, err := Segment(filtered, p.length(), rng)
	if err != nil {
		return nil, err
	}
	if len(seg) != p.length() {
		return nil, &ShapeError{What: "channel tensor length", Got: len(seg), Want: p.length()}
	}
	return &Tensor{Data: seg}, nil
}
