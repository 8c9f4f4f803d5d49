// Package antispoof classifies speech recordings as genuine (REAL) or
// synthetically generated (FAKE), one decision per channel.
//
// # Architecture
//
// The pipeline processes a decoded [audio.Waveform] in four stages:
//
//  1. Preprocessor.Process: pre-emphasis filter, then [Segment] to a
//     fixed 64600-sample window (≈4 s at 16 kHz)
//  2. Model.Classify: [1, 1, 64600] float32 tensor → [fake, real] logits
//  3. Softmax: logits → probabilities
//  4. Decide: probabilities → [Label] and confidence
//
// [Engine] runs the stages for every channel in ascending order and
// returns one [ChannelResult] per channel. A failure on any channel fails
// the whole call; partial results are never returned.
//
// # Randomness
//
// Signals longer than the window are cropped at a uniformly random
// offset. The random source is injected through [WithRand] or
// [WithSeed] so runs can be reproduced.
//
// # Thread Safety
//
// Engine holds no per-call state and may be shared between goroutines as
// long as the Model is safe for concurrent use and no shared [Rand] is
// installed with WithRand.
package antispoof
