// ABOUTME: Error values returned by the container codec and reader
// ABOUTME: Callers match them with errors.Is; context is added by wrapping
package wav

import "errors"

var (
	ErrIO             = errors.New("wav: i/o error")
	ErrTruncatedInput = errors.New("wav: truncated input")
	ErrInvalidLayout  = errors.New("wav: invalid layout")
	ErrChunkNotFound  = errors.New("wav: chunk not found")
)
