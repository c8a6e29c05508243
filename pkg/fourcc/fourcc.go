// ABOUTME: Four-character code type shared by the container and device packages
// ABOUTME: Tags are byte arrays; the numeric form is derived in exactly one place
package fourcc

import (
	"encoding/binary"
	"fmt"
)

// Code is a four-character tag kept as raw bytes
type Code [4]byte

// New builds a Code from a four-byte ASCII string
func New(s string) (Code, error) {
	var c Code
	if len(s) != 4 {
		return c, fmt.Errorf("fourcc %q: need 4 bytes, got %d", s, len(s))
	}
	for i := 0; i < 4; i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return c, fmt.Errorf("fourcc %q: byte %d is not printable ASCII", s, i)
		}
		c[i] = s[i]
	}
	return c, nil
}

// Must is New for package-level tag tables; it panics on malformed input
func Must(s string) Code {
	c, err := New(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromUint32 is the inverse of Uint32
func FromUint32(v uint32) Code {
	var c Code
	binary.BigEndian.PutUint32(c[:], v)
	return c
}

// Uint32 returns the platform numeric form, first character in the high byte
// ('dev#' == 0x64657623).
func (c Code) Uint32() uint32 {
	return binary.BigEndian.Uint32(c[:])
}

// Printable reports whether every byte is printable ASCII
func (c Code) Printable() bool {
	for _, b := range c {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

func (c Code) String() string {
	if c.Printable() {
		return string(c[:])
	}
	return fmt.Sprintf("0x%08x", c.Uint32())
}
