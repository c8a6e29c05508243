// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the PCM Format type and sample conversion functions
// Package audio provides fundamental PCM types shared by the container
// reader, the playback session and the output backends.
//
//   - Format: sample rate, channel count and bit depth of an interleaved stream
//   - ApplyGain: per-channel software volume over raw little-endian PCM
//
// Example:
//
//	format := audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
//	frame := format.BytesPerFrame() // 4
//	audio.ApplyGain(pcm, format, []float32{0.5, 0.5})
package audio
