// ABOUTME: Tests for the fixed-record codec
// ABOUTME: Covers tag validation, truncation and little-endian fields
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
)

// Helper function to create the fixed header the way other tools lay it out
func rawHeader(magic, form, fmtID string, channels, sampleRate, bits int) []byte {
	buf := new(bytes.Buffer)
	blockAlign := uint16(channels * bits / 8)

	buf.WriteString(magic)
	binary.Write(buf, binary.LittleEndian, uint32(36))
	buf.WriteString(form)
	buf.WriteString(fmtID)
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate)*uint32(blockAlign))
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bits))

	return buf.Bytes()
}

func TestDecodeContainerHeader_Valid(t *testing.T) {
	t.Parallel()

	h, err := DecodeContainerHeader(rawHeader("RIFF", "WAVE", "fmt ", 2, 44100, 16))
	if err != nil {
		t.Fatalf("DecodeContainerHeader() error = %v", err)
	}

	if h.ChunkID != TagRIFF || h.Format != TagWAVE || h.Fmt.ChunkID != TagFormat {
		t.Errorf("unexpected tags: %q %q %q", h.ChunkID, h.Format, h.Fmt.ChunkID)
	}
	if h.Fmt.Channels != 2 {
		t.Errorf("Channels = %d, want 2", h.Fmt.Channels)
	}
	if h.Fmt.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", h.Fmt.SampleRate)
	}
	if h.Fmt.ByteRate != 176400 {
		t.Errorf("ByteRate = %d, want 176400", h.Fmt.ByteRate)
	}
	if h.Fmt.BlockAlign != 4 || h.Fmt.BitsPerSample != 16 {
		t.Errorf("BlockAlign/BitsPerSample = %d/%d, want 4/16", h.Fmt.BlockAlign, h.Fmt.BitsPerSample)
	}
	if h.Fmt.BytesPerFrame() != 4 {
		t.Errorf("BytesPerFrame() = %d, want 4", h.Fmt.BytesPerFrame())
	}
}

func TestDecodeContainerHeader_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrTruncatedInput},
		{"short", rawHeader("RIFF", "WAVE", "fmt ", 2, 44100, 16)[:35], ErrTruncatedInput},
		{"bad magic", rawHeader("RIFX", "WAVE", "fmt ", 2, 44100, 16), ErrInvalidLayout},
		{"bad form", rawHeader("RIFF", "AVI ", "fmt ", 2, 44100, 16), ErrInvalidLayout},
		{"bad fmt tag", rawHeader("RIFF", "WAVE", "junk", 2, 44100, 16), ErrInvalidLayout},
		{"lowercase magic", rawHeader("riff", "WAVE", "fmt ", 2, 44100, 16), ErrInvalidLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeContainerHeader(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeContainerHeader() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeContainerHeader_ShortFmtRecord(t *testing.T) {
	t.Parallel()

	b := rawHeader("RIFF", "WAVE", "fmt ", 1, 8000, 8)
	binary.LittleEndian.PutUint32(b[16:20], 14)

	if _, err := DecodeContainerHeader(b); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("error = %v, want ErrInvalidLayout", err)
	}
}

func TestDecodeChunkHeader(t *testing.T) {
	t.Parallel()

	h, err := DecodeChunkHeader([]byte{'d', 'a', 't', 'a', 0x10, 0x27, 0x00, 0x00})
	if err != nil {
		t.Fatalf("DecodeChunkHeader() error = %v", err)
	}
	if h.ID != TagData {
		t.Errorf("ID = %q, want data", h.ID)
	}
	if h.Size != 10000 {
		t.Errorf("Size = %d, want 10000 (little-endian)", h.Size)
	}

	if _, err := DecodeChunkHeader([]byte("data")); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("error = %v, want ErrTruncatedInput", err)
	}
}

func TestHeaderMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	want := ContainerHeader{
		ChunkID:   TagRIFF,
		ChunkSize: 1234,
		Format:    TagWAVE,
		Fmt:       NewPCMFormat(2, 48000, 24),
	}

	b, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	got, err := DecodeContainerHeader(b)
	if err != nil {
		t.Fatalf("DecodeContainerHeader() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	ch := ChunkHeader{ID: fourcc.Must("cue "), Size: 0xDEADBEEF}
	cb, _ := ch.MarshalBinary()
	if back, _ := DecodeChunkHeader(cb); back != ch {
		t.Errorf("chunk header round trip: got %+v, want %+v", back, ch)
	}
}

func TestNewPCMFormat(t *testing.T) {
	t.Parallel()

	f := NewPCMFormat(2, 44100, 16)
	if f.ByteRate != 176400 || f.BlockAlign != 4 {
		t.Errorf("ByteRate/BlockAlign = %d/%d, want 176400/4", f.ByteRate, f.BlockAlign)
	}
	if !f.IsPCM() {
		t.Error("expected IsPCM")
	}

	a := f.Audio()
	if a.SampleRate != 44100 || a.Channels != 2 || a.BitDepth != 16 {
		t.Errorf("Audio() = %+v", a)
	}
}
