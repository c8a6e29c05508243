// ABOUTME: Audio output interface definition
// ABOUTME: Every output is both a playback backend and a device property store
package output

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
)

// Output is a platform audio collaborator. Its property store describes the
// devices the backend can bind to, so a device.Registry built on it and a
// playback.Session driving it agree on device ids.
type Output interface {
	playback.Backend
	device.PropertyStore

	// Name identifies the backend ("malgo", "oto", ...)
	Name() string

	// Close stops every queue and releases platform resources
	Close() error
}

// Backends lists the names accepted by New
var Backends = []string{"malgo", "oto", "portaudio", "null"}

// New creates the named output
func New(name string) (Output, error) {
	switch strings.ToLower(name) {
	case "malgo", "":
		m, err := NewMalgo()
		if err != nil {
			return nil, err
		}
		return m, nil
	case "oto":
		return NewOto(), nil
	case "portaudio":
		p, err := NewPortAudio()
		if err != nil {
			return nil, err
		}
		return p, nil
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (available: %s)", name, strings.Join(Backends, ", "))
	}
}
