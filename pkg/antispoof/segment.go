package antispoof

// Rand is the random source used to pick segment offsets.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// Segment returns exactly length samples derived from x.
//
// When x is longer than length, a contiguous window starting at a uniform
// offset in [0, len(x)-length] is copied out. Otherwise x is repeated
// len/len(x)+1 times and truncated, so short clips are covered without
// zero padding. The result never aliases x.
func Segment(x []float32, length int, rng Rand) ([]float32, error) {
	if length <= 0 {
		return nil, &ShapeError{What: "segment length", Got: length, Want: SegmentLength}
	}
	n := len(x)
	if n == 0 {
		return nil, ErrEmptySignal
	}

	out := make([]float32, length)
	if n > length {
		start := rng.IntN(n - length + 1)
		copy(out, x[start:start+length])
		return out, nil
	}

	for off := 0; off < length; off += n {
		copy(out[off:], x)
	}
	return out, nil
}
