// ABOUTME: RIFF/WAVE container package
// ABOUTME: Fixed-record codec plus a streaming, forward-only chunk reader
// Package wav reads and writes RIFF/WAVE containers without decoding audio.
//
// The fixed 36-byte header (RIFF tag, size, WAVE tag and the fmt record) is
// decoded once by Open. The remaining file is a series of tagged,
// length-prefixed chunks which Next yields one at a time; payloads are never
// retained by the reader.
//
// Example:
//
//	r, err := wav.Open("take1.wav")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	data, err := wav.FindChunk(r, wav.TagData)
//	frames := len(data.Data) / r.Header().Fmt.BytesPerFrame()
package wav
