package resampler

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/antispoof/pkg/audio"
)

// Quality selects the filter preset used for conversion.
type Quality int

const (
	// QualityHigh matches the libsoxr HQ preset. It is the default.
	QualityHigh Quality = iota
	// QualityMedium trades stopband attenuation for speed.
	QualityMedium
	// QualityVeryHigh matches the libsoxr VHQ preset.
	QualityVeryHigh
)

func (q Quality) preset() resampling.QualitySpec {
	switch q {
	case QualityMedium:
		return resampling.QualitySpec{Preset: resampling.QualityMedium}
	case QualityVeryHigh:
		return resampling.QualitySpec{Preset: resampling.QualityVeryHigh}
	default:
		return resampling.QualitySpec{Preset: resampling.QualityHigh}
	}
}

// Resample converts one channel from srcRate to dstRate with QualityHigh.
// The returned slice is always a new allocation.
func Resample(samples []float32, srcRate, dstRate int) ([]float32, error) {
	return ResampleQuality(samples, srcRate, dstRate, QualityHigh)
}

// ResampleQuality is Resample with an explicit quality preset.
//
// The output length is len(samples)*dstRate/srcRate rounded to the
// nearest sample; filter tail samples beyond that are dropped.
func ResampleQuality(samples []float32, srcRate, dstRate int, q Quality) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    q.preset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush: %w", err)
	}
	output = append(output, tail...)

	want := int(math.Round(float64(len(samples)) * float64(dstRate) / float64(srcRate)))
	out := make([]float32, want)
	n := min(want, len(output))
	for i := range n {
		out[i] = float32(output[i])
	}
	return out, nil
}

// ResampleWaveform converts every channel of wf to dstRate. When wf is
// already at dstRate it is returned unchanged.
func ResampleWaveform(wf *audio.Waveform, dstRate int, q Quality) (*audio.Waveform, error) {
	if wf.SampleRate == dstRate {
		return wf, nil
	}
	out := &audio.Waveform{
		Channels:   make([][]float32, len(wf.Channels)),
		SampleRate: dstRate,
	}
	for c, ch := range wf.Channels {
		rs, err := ResampleQuality(ch, wf.SampleRate, dstRate, q)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", c, err)
		}
		out.Channels[c] = rs
	}
	return out, nil
}
