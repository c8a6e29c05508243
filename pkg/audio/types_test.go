// ABOUTME: Tests for audio types
// ABOUTME: Tests format geometry, sample conversion and gain
package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestFormatGeometry(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		frame     int
		perSecond int
	}{
		{"cd stereo", Format{44100, 2, 16}, 4, 176400},
		{"mono 8-bit", Format{8000, 1, 8}, 1, 8000},
		{"hi-res", Format{96000, 2, 24}, 6, 576000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.BytesPerFrame(); got != tt.frame {
				t.Errorf("BytesPerFrame() = %d, want %d", got, tt.frame)
			}
			if got := tt.format.BytesPerSecond(); got != tt.perSecond {
				t.Errorf("BytesPerSecond() = %d, want %d", got, tt.perSecond)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
	if got := f.Duration(176400); got != time.Second {
		t.Errorf("expected 1s, got %v", got)
	}
	if got := (Format{}).Duration(100); got != 0 {
		t.Errorf("expected 0 for empty format, got %v", got)
	}
}

func TestFormatValidate(t *testing.T) {
	if err := (Format{44100, 2, 16}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := []Format{
		{0, 2, 16},
		{44100, 0, 16},
		{44100, 2, 12},
	}
	for _, f := range bad {
		if err := f.Validate(); err == nil {
			t.Errorf("expected error for %+v", f)
		}
	}
}

func TestSample24BitRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 0x123456, Max24Bit, Min24Bit} {
		if got := SampleFrom24Bit(SampleTo24Bit(v)); got != v {
			t.Errorf("expected %d, got %d", v, got)
		}
	}
}

func TestApplyGain16(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 2, BitDepth: 16}
	pcm := make([]byte, 8)
	for i, s := range []int16{1000, 1000, -1000, -1000} {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	ApplyGain(pcm, f, []float32{0.5, 0})

	want := []int16{500, 0, -500, 0}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if got != w {
			t.Errorf("sample %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestApplyGainClamps(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 1, BitDepth: 16}
	pcm := make([]byte, 2)
	binary.LittleEndian.PutUint16(pcm, uint16(int16(30000)))

	ApplyGain(pcm, f, []float32{2})

	if got := int16(binary.LittleEndian.Uint16(pcm)); got != 32767 {
		t.Errorf("expected clamp to 32767, got %d", got)
	}
}

func TestApplyGainUnityIsNoop(t *testing.T) {
	f := Format{SampleRate: 8000, Channels: 1, BitDepth: 8}
	pcm := []byte{0, 128, 255}
	ApplyGain(pcm, f, []float32{1})
	if pcm[0] != 0 || pcm[1] != 128 || pcm[2] != 255 {
		t.Errorf("unity gain changed samples: %v", pcm)
	}

	ApplyGain(pcm, f, []float32{0})
	for i, b := range pcm {
		if b != 128 {
			t.Errorf("sample %d: expected silence (128), got %d", i, b)
		}
	}
}
