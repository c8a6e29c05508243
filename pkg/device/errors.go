// ABOUTME: Error taxonomy for device registry operations
// ABOUTME: QueryError carries the failed address and status; Kind is matched with errors.Is
package device

import (
	"errors"
	"fmt"
)

var (
	ErrQueryFailed    = errors.New("device: query failed")
	ErrDeviceNotFound = errors.New("device: device not found")
	ErrDecode         = errors.New("device: text decode failed")
)

// QueryError describes one failed property call
type QueryError struct {
	Op      string
	Object  ObjectID
	Address Address
	Status  Status
	Kind    error
	Err     error // optional detail (e.g. the decoder error)
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: %s on object %d (%s)", e.Kind, e.Op, e.Object, e.Address)
	if !e.Status.OK() {
		msg += fmt.Sprintf(": status %s", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the detail to errors.Is/As
func (e *QueryError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
