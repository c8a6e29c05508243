// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM stream format and per-channel gain helpers
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes an interleaved, little-endian linear PCM stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// BytesPerFrame is channels × bits-per-sample / 8
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// BytesPerSecond returns the byte rate implied by the format
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.BytesPerFrame()
}

// Duration returns how long n bytes of audio in this format play for
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

// Validate reports formats no playback path can render
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", f.BitDepth)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// ApplyGain scales interleaved PCM in place. gains holds one scalar per
// channel; channels without an entry are left untouched. Results are clamped
// to the sample range of the bit depth.
func ApplyGain(pcm []byte, f Format, gains []float32) {
	if f.Channels <= 0 || len(gains) == 0 || unity(gains, f.Channels) {
		return
	}

	width := f.BitDepth / 8
	if width == 0 {
		return
	}

	for i, ch := 0, 0; i+width <= len(pcm); i, ch = i+width, (ch+1)%f.Channels {
		if ch >= len(gains) {
			continue
		}
		g := float64(gains[ch])
		s := pcm[i : i+width]

		switch f.BitDepth {
		case 8:
			// unsigned, centred on 128
			v := clamp((float64(s[0])-128)*g, -128, 127)
			s[0] = byte(int(v) + 128)
		case 16:
			v := clamp(float64(int16(binary.LittleEndian.Uint16(s)))*g, math.MinInt16, math.MaxInt16)
			binary.LittleEndian.PutUint16(s, uint16(int16(v)))
		case 24:
			v := clamp(float64(SampleFrom24Bit([3]byte{s[0], s[1], s[2]}))*g, Min24Bit, Max24Bit)
			b := SampleTo24Bit(int32(v))
			copy(s, b[:])
		case 32:
			v := clamp(float64(int32(binary.LittleEndian.Uint32(s)))*g, math.MinInt32, math.MaxInt32)
			binary.LittleEndian.PutUint32(s, uint32(int32(v)))
		}
	}
}

func unity(gains []float32, channels int) bool {
	for i := 0; i < channels && i < len(gains); i++ {
		if gains[i] != 1 {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
