// ABOUTME: UTF-16 conversion for platform strings
// ABOUTME: Uses golang.org/x/text and rejects malformed code unit sequences
package device

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeName converts little-endian UTF-16 code units to a Go string. Odd
// byte counts and unpaired surrogates are errors; trailing NULs are dropped.
func DecodeName(units []byte) (string, error) {
	if len(units)%2 != 0 {
		return "", fmt.Errorf("odd UTF-16 byte count %d", len(units))
	}

	if err := checkSurrogates(units); err != nil {
		return "", err
	}

	out, err := utf16le.NewDecoder().Bytes(units)
	if err != nil {
		return "", err
	}

	return string(bytes.TrimRight(out, "\x00")), nil
}

// EncodeName is the inverse of DecodeName, for stores
func EncodeName(s string) []byte {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// only reachable for invalid UTF-8 input; fall back to replacement
		out, _ = utf16le.NewEncoder().Bytes(bytes.ToValidUTF8([]byte(s), []byte("�")))
	}
	return out
}

// checkSurrogates rejects a high surrogate not followed by a low one and any
// low surrogate without a preceding high one
func checkSurrogates(units []byte) error {
	for i := 0; i+1 < len(units); i += 2 {
		u := binary.LittleEndian.Uint16(units[i:])
		switch {
		case u >= 0xD800 && u <= 0xDBFF:
			if i+3 >= len(units) {
				return fmt.Errorf("unpaired UTF-16 surrogate 0x%04X at unit %d", u, i/2)
			}
			next := binary.LittleEndian.Uint16(units[i+2:])
			if next < 0xDC00 || next > 0xDFFF {
				return fmt.Errorf("unpaired UTF-16 surrogate 0x%04X at unit %d", u, i/2)
			}
			i += 2
		case u >= 0xDC00 && u <= 0xDFFF:
			return fmt.Errorf("unpaired UTF-16 surrogate 0x%04X at unit %d", u, i/2)
		}
	}
	return nil
}
