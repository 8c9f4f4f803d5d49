// Package resampler provides sample rate conversion for float32 audio
// channels using a pure Go polyphase resampler (a port of libsoxr).
//
// It supports:
//   - One-shot conversion of a single channel
//   - Whole-waveform conversion, channel by channel
//   - Selectable quality presets
//
// Example usage:
//
//	out, err := resampler.Resample(samples, 44100, 16000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	wf16k, err := resampler.ResampleWaveform(wf, 16000, resampler.QualityHigh)
package resampler
