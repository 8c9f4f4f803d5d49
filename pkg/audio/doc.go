// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - decode: container decoding into a multi-channel [Waveform]
//   - resampler: sample rate conversion of float32 channels
//
// The [Waveform] type defined here is the common currency between the
// decoders and the inference pipeline in pkg/antispoof.
//
// Example usage:
//
//	import (
//	    "github.com/haivivi/antispoof/pkg/audio"
//	    "github.com/haivivi/antispoof/pkg/audio/decode"
//	)
//
//	loader := decode.NewLoader()
//	wf, err := loader.Load(ctx, "speech.flac")
//	left := wf.Channel(0)
package audio
