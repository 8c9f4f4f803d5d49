package audio

import (
	"fmt"
	"time"
)

// CanonicalSampleRate is the rate every waveform is normalized to before
// feature extraction.
const CanonicalSampleRate = 16000

// Waveform is decoded multi-channel audio. Channels are stored planar:
// Channels[c][i] is sample i of channel c, normalized to [-1, 1].
type Waveform struct {
	Channels   [][]float32
	SampleRate int
}

// NewMono wraps a single 1-D signal as a one-channel waveform.
func NewMono(samples []float32, sampleRate int) *Waveform {
	return &Waveform{Channels: [][]float32{samples}, SampleRate: sampleRate}
}

// Deinterleave splits interleaved frames into planar channels.
// Trailing samples that do not form a complete frame are dropped.
func Deinterleave(interleaved []float32, channels, sampleRate int) (*Waveform, error) {
	if channels < 1 {
		return nil, fmt.Errorf("audio: invalid channel count %d", channels)
	}
	frames := len(interleaved) / channels
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for i := range frames {
		base := i * channels
		for c := range channels {
			out[c][i] = interleaved[base+c]
		}
	}
	return &Waveform{Channels: out, SampleRate: sampleRate}, nil
}

// NumChannels returns the number of channels.
func (w *Waveform) NumChannels() int {
	return len(w.Channels)
}

// Len returns the number of samples per channel.
func (w *Waveform) Len() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// Channel returns the samples of channel c.
func (w *Waveform) Channel(c int) []float32 {
	return w.Channels[c]
}

// Duration returns the playback duration of the waveform.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(w.Len()) * time.Second / time.Duration(w.SampleRate)
}

// Validate checks the structural invariants: at least one channel, a
// positive sample rate and equal channel lengths.
func (w *Waveform) Validate() error {
	if len(w.Channels) == 0 {
		return fmt.Errorf("audio: waveform has no channels")
	}
	if w.SampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", w.SampleRate)
	}
	n := len(w.Channels[0])
	for c, ch := range w.Channels[1:] {
		if len(ch) != n {
			return fmt.Errorf("audio: channel %d has %d samples, channel 0 has %d", c+1, len(ch), n)
		}
	}
	return nil
}
