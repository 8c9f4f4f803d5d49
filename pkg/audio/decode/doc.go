// Package decode turns audio files into multi-channel waveforms at the
// canonical sample rate.
//
// A Loader holds an ordered list of Decoder strategies and tries them in
// sequence until one succeeds:
//
//	loader := decode.NewLoader()               // FFmpeg, then Native
//	wf, err := loader.Load(ctx, "call.wav")
//
// FFmpeg shells out to ffprobe/ffmpeg and asks for 16 kHz float output
// directly. Native decodes WAV, MP3, FLAC and Ogg Vorbis in pure Go at the
// file's own rate; the Loader then resamples it.
//
// When every strategy fails the Loader returns *Error, which lists each
// attempt in order.
package decode
