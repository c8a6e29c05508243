// ABOUTME: LIST/INFO metadata chunk parsing
// ABOUTME: Turns INFO sub-chunks (INAM, IART, ...) into ordered text entries
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
)

// InfoEntry is one INFO sub-chunk
type InfoEntry struct {
	ID    fourcc.Code
	Value string
}

// Info is the decoded content of a LIST/INFO chunk, in file order
type Info []InfoEntry

// Get returns the first value stored under id, or ""
func (in Info) Get(id string) string {
	for _, e := range in {
		if e.ID.String() == id {
			return e.Value
		}
	}
	return ""
}

// ParseInfo decodes a LIST chunk of list type INFO
func ParseInfo(c Chunk) (Info, error) {
	if c.Header.ID != TagList {
		return nil, fmt.Errorf("%w: chunk %q is not a LIST", ErrInvalidLayout, c.Header.ID)
	}
	if len(c.Data) < 4 {
		return nil, fmt.Errorf("%w: LIST chunk of %d bytes has no list type", ErrTruncatedInput, len(c.Data))
	}

	var listType fourcc.Code
	copy(listType[:], c.Data[:4])
	if listType != TagInfo {
		return nil, fmt.Errorf("%w: list type %q, want %q", ErrInvalidLayout, listType, TagInfo)
	}

	var info Info
	b := c.Data[4:]
	for len(b) > 0 {
		h, err := DecodeChunkHeader(b)
		if err != nil {
			return info, err
		}
		b = b[ChunkHeaderSize:]
		if int(h.Size) > len(b) {
			return info, fmt.Errorf("%w: INFO entry %q declares %d bytes, %d remain",
				ErrTruncatedInput, h.ID, h.Size, len(b))
		}

		value := bytes.TrimRight(b[:h.Size], "\x00")
		info = append(info, InfoEntry{ID: h.ID, Value: string(value)})

		skip := int(h.Size) + int(h.Size&1)
		if skip > len(b) {
			skip = len(b)
		}
		b = b[skip:]
	}

	return info, nil
}

// EncodeInfo builds a LIST/INFO chunk from entries. Values are NUL-terminated.
func EncodeInfo(entries Info) Chunk {
	var buf bytes.Buffer
	buf.Write(TagInfo[:])
	for _, e := range entries {
		value := append([]byte(e.Value), 0)
		buf.Write(e.ID[:])
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(value)))
		buf.Write(value)
		if len(value)&1 == 1 {
			buf.WriteByte(0)
		}
	}
	return NewChunk(TagList, buf.Bytes())
}
