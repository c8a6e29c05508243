// ABOUTME: Container encoder
// ABOUTME: Writes a fixed header followed by chunks with RIFF padding
package wav

import (
	"fmt"
	"io"
)

// Encode writes a complete container: the fixed header built from f, then
// each chunk in order. The RIFF size and pad bytes are computed here.
func Encode(w io.Writer, f FormatDescriptor, chunks ...Chunk) error {
	riffSize := uint64(4 + 8 + formatBodySize)
	for _, c := range chunks {
		n := uint64(len(c.Data))
		riffSize += ChunkHeaderSize + n + n&1
	}
	if riffSize > 0xFFFFFFFF {
		return fmt.Errorf("%w: container of %d bytes exceeds the 4 GiB RIFF limit", ErrInvalidLayout, riffSize)
	}

	f.ChunkID = TagFormat
	f.ChunkSize = formatBodySize
	header := ContainerHeader{
		ChunkID:   TagRIFF,
		ChunkSize: uint32(riffSize),
		Format:    TagWAVE,
		Fmt:       f,
	}

	b, _ := header.MarshalBinary()
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("%w: writing header: %w", ErrIO, err)
	}

	for _, c := range chunks {
		h := ChunkHeader{ID: c.Header.ID, Size: uint32(len(c.Data))}
		hb, _ := h.MarshalBinary()
		if _, err := w.Write(hb); err != nil {
			return fmt.Errorf("%w: writing %q header: %w", ErrIO, h.ID, err)
		}
		if _, err := w.Write(c.Data); err != nil {
			return fmt.Errorf("%w: writing %q payload: %w", ErrIO, h.ID, err)
		}
		if len(c.Data)&1 == 1 {
			if _, err := w.Write([]byte{0}); err != nil {
				return fmt.Errorf("%w: writing pad byte: %w", ErrIO, err)
			}
		}
	}

	return nil
}
