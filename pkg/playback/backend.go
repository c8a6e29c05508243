// ABOUTME: Playback backend capability interface
// ABOUTME: The narrow surface a session uses to drive a platform audio queue
package playback

import (
	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
)

// QueueID is an opaque backend queue handle
type QueueID uint32

// BufferID is an opaque backend buffer handle, scoped to its queue
type BufferID uint32

// Completion reports that a buffer finished playing (or failed to)
type Completion struct {
	Queue  QueueID
	Buffer BufferID
	Err    error
}

// Backend drives platform playback queues. Completions are sent on the
// channel given to CreateQueue from the backend's own goroutine; the
// channel is owned by the caller and is never closed by the backend.
// A backend sends at most one Completion per enqueued buffer and must not
// block forever if nobody is receiving.
type Backend interface {
	CreateQueue(format audio.Format, done chan<- Completion) (QueueID, error)
	BindDevice(q QueueID, id device.DeviceID) error
	AllocateBuffer(q QueueID, size uint32) (BufferID, error)
	CopyBuffer(q QueueID, b BufferID, data []byte) error
	Enqueue(q QueueID, b BufferID) error
	Start(q QueueID) error
	Pause(q QueueID) error
	Stop(q QueueID) error

	// Dispose frees the queue and all its buffers
	Dispose(q QueueID) error
}
