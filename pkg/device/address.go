// ABOUTME: Property addressing for the platform audio object graph
// ABOUTME: Every selector/scope/element triple used by the registry is built here
package device

import (
	"fmt"

	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
)

// ObjectID names a node in the platform audio object graph
type ObjectID = uint32

// DeviceID is an opaque, platform-assigned device token. It is stable while
// the device stays attached and carries no meaning across reconnects.
type DeviceID = ObjectID

const (
	// UnknownObject is never a valid device
	UnknownObject ObjectID = 0
	// SystemObject owns the global device list and default-device properties
	SystemObject ObjectID = 1

	// ElementMain addresses the whole object rather than one channel
	ElementMain uint32 = 0
)

var (
	SelectorDevices         = fourcc.Must("dev#")
	SelectorName            = fourcc.Must("lnam")
	SelectorStreamConfig    = fourcc.Must("slay")
	SelectorDefaultOutput   = fourcc.Must("dOut")
	SelectorPreferredStereo = fourcc.Must("dch2")
	SelectorVolumeScalar    = fourcc.Must("volm")

	ScopeGlobal = fourcc.Must("glob")
	ScopeOutput = fourcc.Must("outp")
)

// Address identifies one property: what (selector), which side of the device
// (scope) and which channel (element).
type Address struct {
	Selector fourcc.Code
	Scope    fourcc.Code
	Element  uint32
}

func (a Address) String() string {
	return fmt.Sprintf("%s/%s/%d", a.Selector, a.Scope, a.Element)
}

// DevicesAddress is the system-wide list of device ids
func DevicesAddress() Address {
	return Address{Selector: SelectorDevices, Scope: ScopeGlobal, Element: ElementMain}
}

// NameAddress is a device's localized name, delivered as a string handle
func NameAddress() Address {
	return Address{Selector: SelectorName, Scope: ScopeGlobal, Element: ElementMain}
}

// StreamConfigAddress is the output stream configuration; its size is zero
// on devices without output streams.
func StreamConfigAddress() Address {
	return Address{Selector: SelectorStreamConfig, Scope: ScopeOutput, Element: ElementMain}
}

// DefaultOutputAddress is the system default output device id
func DefaultOutputAddress() Address {
	return Address{Selector: SelectorDefaultOutput, Scope: ScopeGlobal, Element: ElementMain}
}

// PreferredStereoAddress holds the two element numbers used for left and right
func PreferredStereoAddress() Address {
	return Address{Selector: SelectorPreferredStereo, Scope: ScopeOutput, Element: ElementMain}
}

// VolumeAddress is the 0..1 volume scalar of one output channel
func VolumeAddress(element uint32) Address {
	return Address{Selector: SelectorVolumeScalar, Scope: ScopeOutput, Element: element}
}
