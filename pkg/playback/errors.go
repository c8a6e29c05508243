// ABOUTME: Error taxonomy for playback sessions
// ABOUTME: StepError names the failed backend step and the platform status
package playback

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/wavplay/pkg/device"
)

var (
	ErrDeviceNotAvailable     = errors.New("playback: device not available")
	ErrBufferAllocationFailed = errors.New("playback: buffer allocation failed")
	ErrBackend                = errors.New("playback: backend operation failed")
	ErrInvalidTransition      = errors.New("playback: invalid state transition")
)

// Steps reported in StepError
const (
	StepResolveDevice  = "resolve device"
	StepCreateQueue    = "create queue"
	StepBindDevice     = "bind device"
	StepAllocateBuffer = "allocate buffer"
	StepCopyBuffer     = "copy buffer"
	StepEnqueue        = "enqueue"
	StepStart          = "start"
	StepPause          = "pause"
	StepResume         = "resume"
	StepStop           = "stop"
	StepDispose        = "dispose"
)

// StatusError is returned by backends that have a platform status to report
type StatusError struct {
	Op     string
	Status device.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %s", e.Op, e.Status)
}

// StepError is one failed backend step
type StepError struct {
	Step   string
	Status device.Status // zero when the backend reported none
	Kind   error
	Err    error
}

func newStepError(step string, kind, err error) *StepError {
	se := &StepError{Step: step, Kind: kind, Err: err}
	var st *StatusError
	if errors.As(err, &st) {
		se.Status = st.Status
	}
	return se
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %s failed", e.Kind, e.Step)
	if !e.Status.OK() {
		msg += fmt.Sprintf(" (status %s)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
