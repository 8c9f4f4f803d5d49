package resampler

import (
	"math"
	"testing"

	"github.com/haivivi/antispoof/pkg/audio"
)

func sine(n, rate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestResample_Length(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		srcRate int
		dstRate int
		want    int
	}{
		{"44.1k to 16k", 44100, 44100, 16000, 16000},
		{"48k to 16k", 4800, 48000, 16000, 1600},
		{"8k to 16k", 8000, 8000, 16000, 16000},
		{"same rate", 1234, 16000, 16000, 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resample(sine(tt.n, tt.srcRate, 440), tt.srcRate, tt.dstRate)
			if err != nil {
				t.Fatalf("Resample error: %v", err)
			}
			if len(out) != tt.want {
				t.Errorf("len = %d, want %d", len(out), tt.want)
			}
		})
	}
}

func TestResample_PreservesLevel(t *testing.T) {
	out, err := Resample(sine(48000, 48000, 440), 48000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	var peak float32
	// Skip the filter warm-up region at both ends.
	for _, v := range out[1000 : len(out)-1000] {
		if v > peak {
			peak = v
		}
	}
	if peak < 0.4 || peak > 0.6 {
		t.Errorf("peak = %f, want ~0.5", peak)
	}
}

func TestResample_SameRateCopies(t *testing.T) {
	in := []float32{1, 2, 3}
	out, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	out[0] = 9
	if in[0] != 1 {
		t.Error("Resample at equal rates must not alias the input")
	}
}

func TestResample_InvalidRate(t *testing.T) {
	if _, err := Resample([]float32{1}, 0, 16000); err == nil {
		t.Error("expected error for zero source rate")
	}
	if _, err := Resample([]float32{1}, 16000, -1); err == nil {
		t.Error("expected error for negative target rate")
	}
}

func TestResampleWaveform(t *testing.T) {
	wf := &audio.Waveform{
		Channels:   [][]float32{sine(22050, 22050, 300), sine(22050, 22050, 600)},
		SampleRate: 22050,
	}
	out, err := ResampleWaveform(wf, audio.CanonicalSampleRate, QualityHigh)
	if err != nil {
		t.Fatal(err)
	}
	if out.SampleRate != audio.CanonicalSampleRate {
		t.Errorf("SampleRate = %d, want %d", out.SampleRate, audio.CanonicalSampleRate)
	}
	if out.NumChannels() != 2 {
		t.Fatalf("channels = %d, want 2", out.NumChannels())
	}
	if err := out.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if out.Len() != 16000 {
		t.Errorf("len = %d, want 16000", out.Len())
	}
}

func TestResampleWaveform_NoOp(t *testing.T) {
	wf := audio.NewMono([]float32{1, 2}, audio.CanonicalSampleRate)
	out, err := ResampleWaveform(wf, audio.CanonicalSampleRate, QualityHigh)
	if err != nil {
		t.Fatal(err)
	}
	if out != wf {
		t.Error("expected the same waveform back when rates match")
	}
}
