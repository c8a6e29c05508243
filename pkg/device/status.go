// ABOUTME: Platform status codes
// ABOUTME: Zero is success; everything else is a failure, no exceptions
package device

import (
	"fmt"

	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
)

// Status is the raw result code of a platform property call
type Status int32

// Status codes used by the stores in this module. Platforms may return others.
var (
	StatusOK                Status = 0
	StatusUnknownProperty          = code("who?")
	StatusBadObject                = code("!obj")
	StatusBadDevice                = code("!dev")
	StatusBadPropertySize          = code("!siz")
	StatusUnsupported              = code("unop")
	StatusIllegalOperation         = code("nope")
	StatusUnspecified              = code("what")
	StatusNotRunning               = code("stop")
)

func code(s string) Status {
	return Status(int32(fourcc.Must(s).Uint32()))
}

// OK is the one success test used throughout the module
func (s Status) OK() bool {
	return s == 0
}

// String renders four-character codes as 'abcd' (n) and anything else as a
// plain number.
func (s Status) String() string {
	c := fourcc.FromUint32(uint32(s))
	if s != 0 && c.Printable() {
		return fmt.Sprintf("'%s' (%d)", c, int32(s))
	}
	return fmt.Sprintf("%d", int32(s))
}
