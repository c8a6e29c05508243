// ABOUTME: Streaming container reader
// ABOUTME: Yields chunks lazily and never seeks backward
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
	"github.com/h2non/filetype"
)

// Reader walks the chunks of one container. It is not safe for concurrent use.
type Reader struct {
	r      io.Reader
	closer io.Closer
	header ContainerHeader
	size   int64
	offset int64
	err    error // sticky; io.EOF once exhausted
}

// Open opens path and validates its fixed header. The cursor is left on the
// first chunk after the fmt record.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	r, err := newReader(f, st.Size(), f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// NewReader reads a container of the given total size from r
func NewReader(r io.Reader, size int64) (*Reader, error) {
	return newReader(r, size, nil)
}

func newReader(r io.Reader, size int64, closer io.Closer) (*Reader, error) {
	buf := make([]byte, ContainerHeaderSize)
	n, err := io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: file is %d bytes, container header needs %d",
			ErrTruncatedInput, n, ContainerHeaderSize)
	case err != nil:
		return nil, fmt.Errorf("%w: reading header: %w", ErrIO, err)
	}

	header, err := DecodeContainerHeader(buf)
	if err != nil {
		if kind, _ := filetype.Match(buf); kind != filetype.Unknown {
			return nil, fmt.Errorf("%w (looks like %s)", err, kind.Extension)
		}
		return nil, err
	}

	rd := &Reader{
		r:      r,
		closer: closer,
		header: header,
		size:   size,
		offset: ContainerHeaderSize,
	}

	// Extended fmt records (WAVE_FORMAT_EXTENSIBLE) carry more than 16 bytes.
	if extra := int64(header.Fmt.ChunkSize) - formatBodySize + int64(header.Fmt.ChunkSize&1); extra > 0 {
		if extra > rd.remaining() {
			return nil, fmt.Errorf("%w: fmt record declares %d bytes, only %d follow the header",
				ErrTruncatedInput, header.Fmt.ChunkSize, rd.remaining()+formatBodySize)
		}
		ext := make([]byte, min(extra, extensionSize))
		if err := rd.read(ext); err != nil {
			return nil, err
		}
		if err := rd.discard(extra - int64(len(ext))); err != nil {
			return nil, err
		}
		if header.Fmt.AudioFormat == FormatExtensible {
			rd.header.Fmt.SubFormat = decodeSubFormat(ext)
		}
	}

	return rd, nil
}

// Header returns the validated container header
func (r *Reader) Header() ContainerHeader { return r.header }

// Offset is the number of bytes consumed so far
func (r *Reader) Offset() int64 { return r.offset }

// Size is the total container size in bytes
func (r *Reader) Size() int64 { return r.size }

// Close releases the underlying file, if the reader owns one
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c.Close()
}

// Next returns the chunk at the cursor. It returns io.EOF once the container
// is exhausted and on every call after that. A chunk whose declared size runs
// past the end of the container fails with ErrTruncatedInput before any
// payload is read.
func (r *Reader) Next() (Chunk, error) {
	if r.err != nil {
		return Chunk{}, r.err
	}

	remaining := r.remaining()
	if remaining <= 0 {
		r.err = io.EOF
		return Chunk{}, r.err
	}
	if remaining < ChunkHeaderSize {
		return Chunk{}, r.fail(fmt.Errorf("%w: %d trailing bytes at offset %d, chunk header needs %d",
			ErrTruncatedInput, remaining, r.offset, ChunkHeaderSize))
	}

	buf := make([]byte, ChunkHeaderSize)
	if err := r.read(buf); err != nil {
		return Chunk{}, r.fail(err)
	}
	header, err := DecodeChunkHeader(buf)
	if err != nil {
		return Chunk{}, r.fail(err)
	}

	if int64(header.Size) > r.remaining() {
		return Chunk{}, r.fail(fmt.Errorf("%w: chunk %q at offset %d declares %d bytes, %d remain",
			ErrTruncatedInput, header.ID, r.offset-ChunkHeaderSize, header.Size, r.remaining()))
	}

	data := make([]byte, header.Size)
	if err := r.read(data); err != nil {
		return Chunk{}, r.fail(err)
	}

	// Odd-sized chunks are followed by a pad byte; tolerate its absence at EOF.
	if header.Size&1 == 1 && r.remaining() > 0 {
		if err := r.discard(1); err != nil {
			return Chunk{}, r.fail(err)
		}
	}

	return Chunk{Header: header, Data: data}, nil
}

// FindChunk advances r until a chunk tagged id is found. Chunks before it are
// dropped.
func FindChunk(r *Reader, id fourcc.Code) (Chunk, error) {
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			return Chunk{}, fmt.Errorf("%w: no %q chunk", ErrChunkNotFound, id)
		}
		if err != nil {
			return Chunk{}, err
		}
		if c.Header.ID == id {
			return c, nil
		}
	}
}

func (r *Reader) remaining() int64 {
	return r.size - r.offset
}

func (r *Reader) read(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.offset += int64(n)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: source ended at offset %d", ErrTruncatedInput, r.offset)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func (r *Reader) discard(n int64) error {
	copied, err := io.CopyN(io.Discard, r.r, n)
	r.offset += copied
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: source ended at offset %d", ErrTruncatedInput, r.offset)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func (r *Reader) fail(err error) error {
	r.err = err
	return err
}
