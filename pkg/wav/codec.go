// ABOUTME: Binary layout of the fixed container header and chunk headers
// ABOUTME: Little-endian integers, tags compared as raw bytes
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
)

const (
	// ContainerHeaderSize covers RIFF tag, size, WAVE tag and the fmt record
	ContainerHeaderSize = 36
	// ChunkHeaderSize is tag + u32 size
	ChunkHeaderSize = 8

	formatBodySize = 16

	FormatPCM        uint16 = 0x0001
	FormatIEEEFloat  uint16 = 0x0003
	FormatExtensible uint16 = 0xFFFE
)

var (
	TagRIFF   = fourcc.Must("RIFF")
	TagWAVE   = fourcc.Must("WAVE")
	TagFormat = fourcc.Must("fmt ")
	TagData   = fourcc.Must("data")
	TagList   = fourcc.Must("LIST")
	TagInfo   = fourcc.Must("INFO")
)

// FormatDescriptor is the fmt record of the container
type FormatDescriptor struct {
	ChunkID       fourcc.Code
	ChunkSize     uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16

	// SubFormat is the format code carried in the SubFormat GUID of an
	// extensible fmt record, zero when absent or not a standard GUID
	SubFormat uint16
}

// NewPCMFormat builds a self-consistent integer PCM descriptor
func NewPCMFormat(channels, sampleRate, bitsPerSample int) FormatDescriptor {
	blockAlign := channels * bitsPerSample / 8
	return FormatDescriptor{
		ChunkID:       TagFormat,
		ChunkSize:     formatBodySize,
		AudioFormat:   FormatPCM,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(bitsPerSample),
	}
}

// BytesPerFrame is channels × bits-per-sample / 8
func (f FormatDescriptor) BytesPerFrame() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// Audio converts the descriptor to the playback format
func (f FormatDescriptor) Audio() audio.Format {
	return audio.Format{
		SampleRate: int(f.SampleRate),
		Channels:   int(f.Channels),
		BitDepth:   int(f.BitsPerSample),
	}
}

// Duration of n payload bytes
func (f FormatDescriptor) Duration(n int) time.Duration {
	return f.Audio().Duration(n)
}

// IsPCM reports integer PCM, including extensible records whose SubFormat
// is PCM
func (f FormatDescriptor) IsPCM() bool {
	switch f.AudioFormat {
	case FormatPCM:
		return true
	case FormatExtensible:
		return f.SubFormat == FormatPCM
	}
	return false
}

// extensionSize is cbSize + valid bits + channel mask + SubFormat GUID
const extensionSize = 2 + 2 + 4 + 16

// guidTail is the fixed part of KSDATAFORMAT_SUBTYPE_* GUIDs after the
// leading format code
var guidTail = [14]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

// decodeSubFormat extracts the format code from the bytes that follow the
// 16-byte fmt body of an extensible record
func decodeSubFormat(ext []byte) uint16 {
	if len(ext) < extensionSize {
		return 0
	}
	guid := ext[8:extensionSize]
	if !bytes.Equal(guid[2:], guidTail[:]) {
		return 0
	}
	return binary.LittleEndian.Uint16(guid[0:2])
}

// EncodeExtension builds the extension bytes of an extensible fmt record
// with the given SubFormat code
func EncodeExtension(validBits, channelMask uint32, subFormat uint16) []byte {
	b := make([]byte, extensionSize)
	binary.LittleEndian.PutUint16(b[0:2], extensionSize-2)
	binary.LittleEndian.PutUint16(b[2:4], uint16(validBits))
	binary.LittleEndian.PutUint32(b[4:8], channelMask)
	binary.LittleEndian.PutUint16(b[8:10], subFormat)
	copy(b[10:], guidTail[:])
	return b
}

// ContainerHeader is the fixed record at offset 0
type ContainerHeader struct {
	ChunkID   fourcc.Code
	ChunkSize uint32
	Format    fourcc.Code
	Fmt       FormatDescriptor
}

// ChunkHeader precedes every chunk after the container header
type ChunkHeader struct {
	ID   fourcc.Code
	Size uint32
}

// Chunk is a header plus its payload. Data belongs to the receiver.
type Chunk struct {
	Header ChunkHeader
	Data   []byte
}

// NewChunk wraps data in a chunk with a matching header
func NewChunk(id fourcc.Code, data []byte) Chunk {
	return Chunk{Header: ChunkHeader{ID: id, Size: uint32(len(data))}, Data: data}
}

// DecodeContainerHeader parses and validates the fixed header
func DecodeContainerHeader(b []byte) (ContainerHeader, error) {
	var h ContainerHeader
	if len(b) < ContainerHeaderSize {
		return h, fmt.Errorf("%w: container header needs %d bytes, got %d",
			ErrTruncatedInput, ContainerHeaderSize, len(b))
	}

	copy(h.ChunkID[:], b[0:4])
	h.ChunkSize = binary.LittleEndian.Uint32(b[4:8])
	copy(h.Format[:], b[8:12])

	f := &h.Fmt
	copy(f.ChunkID[:], b[12:16])
	f.ChunkSize = binary.LittleEndian.Uint32(b[16:20])
	f.AudioFormat = binary.LittleEndian.Uint16(b[20:22])
	f.Channels = binary.LittleEndian.Uint16(b[22:24])
	f.SampleRate = binary.LittleEndian.Uint32(b[24:28])
	f.ByteRate = binary.LittleEndian.Uint32(b[28:32])
	f.BlockAlign = binary.LittleEndian.Uint16(b[32:34])
	f.BitsPerSample = binary.LittleEndian.Uint16(b[34:36])

	switch {
	case h.ChunkID != TagRIFF:
		return h, fmt.Errorf("%w: magic %q, want %q", ErrInvalidLayout, h.ChunkID, TagRIFF)
	case h.Format != TagWAVE:
		return h, fmt.Errorf("%w: form type %q, want %q", ErrInvalidLayout, h.Format, TagWAVE)
	case f.ChunkID != TagFormat:
		return h, fmt.Errorf("%w: first chunk %q, want %q", ErrInvalidLayout, f.ChunkID, TagFormat)
	case f.ChunkSize < formatBodySize:
		return h, fmt.Errorf("%w: fmt record of %d bytes, want at least %d",
			ErrInvalidLayout, f.ChunkSize, formatBodySize)
	}

	return h, nil
}

// DecodeChunkHeader parses a tag + size record
func DecodeChunkHeader(b []byte) (ChunkHeader, error) {
	var h ChunkHeader
	if len(b) < ChunkHeaderSize {
		return h, fmt.Errorf("%w: chunk header needs %d bytes, got %d",
			ErrTruncatedInput, ChunkHeaderSize, len(b))
	}
	copy(h.ID[:], b[0:4])
	h.Size = binary.LittleEndian.Uint32(b[4:8])
	return h, nil
}

// MarshalBinary encodes the header in container layout. The fmt record is
// always written with its 16-byte body.
func (h ContainerHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, ContainerHeaderSize)
	copy(b[0:4], h.ChunkID[:])
	binary.LittleEndian.PutUint32(b[4:8], h.ChunkSize)
	copy(b[8:12], h.Format[:])

	f := h.Fmt
	copy(b[12:16], f.ChunkID[:])
	binary.LittleEndian.PutUint32(b[16:20], formatBodySize)
	binary.LittleEndian.PutUint16(b[20:22], f.AudioFormat)
	binary.LittleEndian.PutUint16(b[22:24], f.Channels)
	binary.LittleEndian.PutUint32(b[24:28], f.SampleRate)
	binary.LittleEndian.PutUint32(b[28:32], f.ByteRate)
	binary.LittleEndian.PutUint16(b[32:34], f.BlockAlign)
	binary.LittleEndian.PutUint16(b[34:36], f.BitsPerSample)
	return b, nil
}

// MarshalBinary encodes the chunk header
func (h ChunkHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, ChunkHeaderSize)
	copy(b[0:4], h.ID[:])
	binary.LittleEndian.PutUint32(b[4:8], h.Size)
	return b, nil
}
