package antispoof

import (
	"errors"
	"math/rand/v2"
	"testing"
)

// fixedRand always returns the same offset, clamped to [0, n).
type fixedRand int

func (f fixedRand) IntN(n int) int {
	return min(int(f), n-1)
}

// spyRand records the bound it was asked for.
type spyRand struct {
	n   int
	ret int
}

func (s *spyRand) IntN(n int) int {
	s.n = n
	return s.ret
}

func ramp(n int) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(i)
	}
	return x
}

func TestSegment_Length(t *testing.T) {
	const T = SegmentLength
	lengths := []int{1, 2, 7, T - 1, T, T + 1, 2 * T, 10*T + 3}
	rng := rand.New(rand.NewPCG(1, 2))

	for _, n := range lengths {
		out, err := Segment(ramp(n), T, rng)
		if err != nil {
			t.Fatalf("L=%d: %v", n, err)
		}
		if len(out) != T {
			t.Errorf("L=%d: len = %d, want %d", n, len(out), T)
		}
	}
}

func TestSegment_TilesShortInput(t *testing.T) {
	x := []float32{1, 2, 3}
	out, err := Segment(x, 8, fixedRand(0))
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 2, 3, 1, 2, 3, 1, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}

func TestSegment_TilingIsDeterministic(t *testing.T) {
	x := ramp(1000)
	a, _ := Segment(x, SegmentLength, fixedRand(0))
	b, _ := Segment(x, SegmentLength, rand.New(rand.NewPCG(9, 9)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tiling differs at %d: %v vs %v", i, a[i], b[i])
		}
		if a[i] != x[i%len(x)] {
			t.Fatalf("out[%d] = %v, want %v", i, a[i], x[i%len(x)])
		}
	}
}

func TestSegment_ExactLengthIsIdentity(t *testing.T) {
	x := ramp(16)
	out, err := Segment(x, 16, fixedRand(0))
	if err != nil {
		t.Fatal(err)
	}
	for i := range x {
		if out[i] != x[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], x[i])
		}
	}
}

func TestSegment_CropsContiguousWindow(t *testing.T) {
	const T = 100
	x := ramp(250)

	spy := &spyRand{ret: 37}
	out, err := Segment(x, T, spy)
	if err != nil {
		t.Fatal(err)
	}
	if spy.n != len(x)-T+1 {
		t.Errorf("IntN bound = %d, want %d", spy.n, len(x)-T+1)
	}
	for i, v := range out {
		if v != x[37+i] {
			t.Fatalf("out[%d] = %v, want %v", i, v, x[37+i])
		}
	}
}

func TestSegment_OffsetWithinBounds(t *testing.T) {
	const T = 64
	x := ramp(200)
	rng := rand.New(rand.NewPCG(3, 4))

	for range 500 {
		out, err := Segment(x, T, rng)
		if err != nil {
			t.Fatal(err)
		}
		start := int(out[0])
		if start < 0 || start > len(x)-T {
			t.Fatalf("start = %d, outside [0, %d]", start, len(x)-T)
		}
		for i := 1; i < T; i++ {
			if out[i] != out[i-1]+1 {
				t.Fatalf("window not contiguous at %d", i)
			}
		}
	}
}

func TestSegment_LastOffset(t *testing.T) {
	x := ramp(10)
	out, err := Segment(x, 4, fixedRand(100))
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 6 || out[3] != 9 {
		t.Errorf("out = %v, want [6 7 8 9]", out)
	}
}

func TestSegment_DoesNotAlias(t *testing.T) {
	x := ramp(10)
	out, _ := Segment(x, 4, fixedRand(0))
	out[0] = -1
	if x[0] != 0 {
		t.Error("Segment must copy the window")
	}
}

func TestSegment_Empty(t *testing.T) {
	_, err := Segment(nil, SegmentLength, fixedRand(0))
	if !errors.Is(err, ErrEmptySignal) {
		t.Errorf("err = %v, want ErrEmptySignal", err)
	}
}

func TestSegment_InvalidLength(t *testing.T) {
	_, err := Segment(ramp(4), 0, fixedRand(0))
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Errorf("err = %v, want *ShapeError", err)
	}
}
