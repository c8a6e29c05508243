// ABOUTME: Scriptable in-memory playback backend for tests
// ABOUTME: Records every call, injects failures per operation, completes on demand
package playbacktest

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
)

// Operation names accepted by FailOn and Calls
const (
	OpCreateQueue    = "CreateQueue"
	OpBindDevice     = "BindDevice"
	OpAllocateBuffer = "AllocateBuffer"
	OpCopyBuffer     = "CopyBuffer"
	OpEnqueue        = "Enqueue"
	OpStart          = "Start"
	OpPause          = "Pause"
	OpStop           = "Stop"
	OpDispose        = "Dispose"
)

// Queue is the observable state of one fake queue
type Queue struct {
	ID       playback.QueueID
	Format   audio.Format
	Device   device.DeviceID
	Buffers  map[playback.BufferID][]byte
	Enqueued []playback.BufferID
	Running  bool
	Disposed bool

	done chan<- playback.Completion
}

// Backend implements playback.Backend in memory
type Backend struct {
	// AutoComplete sends a Completion for every enqueued buffer as soon as
	// the queue starts
	AutoComplete bool

	// MaxBuffer limits AllocateBuffer; zero means unlimited
	MaxBuffer uint32

	mu         sync.Mutex
	queues     map[playback.QueueID]*Queue
	nextQueue  playback.QueueID
	nextBuffer playback.BufferID
	failures   map[string]error
	calls      map[string]int
}

// New creates an empty backend
func New() *Backend {
	return &Backend{
		queues:     make(map[playback.QueueID]*Queue),
		nextQueue:  1,
		nextBuffer: 1,
		failures:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

// FailOn makes op return err until cleared with a nil err
func (b *Backend) FailOn(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// FailWithStatus makes op return a playback.StatusError carrying st
func (b *Backend) FailWithStatus(op string, st device.Status) {
	b.FailOn(op, &playback.StatusError{Op: op, Status: st})
}

// Calls returns how many times op was invoked
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Queue returns a snapshot of queue q
func (b *Backend) Queue(q playback.QueueID) (Queue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	qu, ok := b.queues[q]
	if !ok {
		return Queue{}, false
	}
	snap := *qu
	snap.Buffers = make(map[playback.BufferID][]byte, len(qu.Buffers))
	for id, data := range qu.Buffers {
		snap.Buffers[id] = append([]byte(nil), data...)
	}
	snap.Enqueued = append([]playback.BufferID(nil), qu.Enqueued...)
	return snap, true
}

// LastQueue returns the most recently created queue id
func (b *Backend) LastQueue() playback.QueueID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextQueue - 1
}

// Complete reports every enqueued buffer of q as finished, with err
func (b *Backend) Complete(q playback.QueueID, err error) {
	b.mu.Lock()
	qu, ok := b.queues[q]
	if !ok || qu.Disposed {
		b.mu.Unlock()
		return
	}
	pending := qu.Enqueued
	qu.Enqueued = nil
	done := qu.done
	b.mu.Unlock()

	for _, buf := range pending {
		select {
		case done <- playback.Completion{Queue: q, Buffer: buf, Err: err}:
		default:
		}
	}
}

func (b *Backend) enter(op string) error {
	b.calls[op]++
	return b.failures[op]
}

func (b *Backend) queue(q playback.QueueID) (*Queue, error) {
	qu, ok := b.queues[q]
	if !ok || qu.Disposed {
		return nil, &playback.StatusError{Op: "queue lookup", Status: device.StatusBadObject}
	}
	return qu, nil
}

// CreateQueue implements playback.Backend
func (b *Backend) CreateQueue(format audio.Format, done chan<- playback.Completion) (playback.QueueID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCreateQueue); err != nil {
		return 0, err
	}
	id := b.nextQueue
	b.nextQueue++
	b.queues[id] = &Queue{
		ID:      id,
		Format:  format,
		Buffers: make(map[playback.BufferID][]byte),
		done:    done,
	}
	return id, nil
}

// BindDevice implements playback.Backend
func (b *Backend) BindDevice(q playback.QueueID, id device.DeviceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpBindDevice); err != nil {
		return err
	}
	qu, err := b.queue(q)
	if err != nil {
		return err
	}
	qu.Device = id
	return nil
}

// AllocateBuffer implements playback.Backend
func (b *Backend) AllocateBuffer(q playback.QueueID, size uint32) (playback.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpAllocateBuffer); err != nil {
		return 0, err
	}
	qu, err := b.queue(q)
	if err != nil {
		return 0, err
	}
	if b.MaxBuffer > 0 && size > b.MaxBuffer {
		return 0, fmt.Errorf("buffer of %d bytes exceeds limit %d", size, b.MaxBuffer)
	}
	id := b.nextBuffer
	b.nextBuffer++
	qu.Buffers[id] = make([]byte, size)
	return id, nil
}

// CopyBuffer implements playback.Backend
func (b *Backend) CopyBuffer(q playback.QueueID, buf playback.BufferID, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCopyBuffer); err != nil {
		return err
	}
	qu, err := b.queue(q)
	if err != nil {
		return err
	}
	dst, ok := qu.Buffers[buf]
	if !ok {
		return fmt.Errorf("unknown buffer %d", buf)
	}
	if len(data) > len(dst) {
		return fmt.Errorf("%d bytes do not fit buffer of %d", len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

// Enqueue implements playback.Backend
func (b *Backend) Enqueue(q playback.QueueID, buf playback.BufferID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpEnqueue); err != nil {
		return err
	}
	qu, err := b.queue(q)
	if err != nil {
		return err
	}
	if _, ok := qu.Buffers[buf]; !ok {
		return fmt.Errorf("unknown buffer %d", buf)
	}
	qu.Enqueued = append(qu.Enqueued, buf)
	return nil
}

// Start implements playback.Backend
func (b *Backend) Start(q playback.QueueID) error {
	b.mu.Lock()
	if err := b.enter(OpStart); err != nil {
		b.mu.Unlock()
		return err
	}
	qu, err := b.queue(q)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	qu.Running = true
	auto := b.AutoComplete
	b.mu.Unlock()

	if auto {
		go b.Complete(q, nil)
	}
	return nil
}

// Pause implements playback.Backend
func (b *Backend) Pause(q playback.QueueID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpPause); err != nil {
		return err
	}
	qu, err := b.queue(q)
	if err != nil {
		return err
	}
	qu.Running = false
	return nil
}

// Stop implements playback.Backend
func (b *Backend) Stop(q playback.QueueID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpStop); err != nil {
		return err
	}
	qu, err := b.queue(q)
	if err != nil {
		return err
	}
	qu.Running = false
	return nil
}

// Dispose implements playback.Backend
func (b *Backend) Dispose(q playback.QueueID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpDispose); err != nil {
		return err
	}
	qu, err := b.queue(q)
	if err != nil {
		return err
	}
	qu.Running = false
	qu.Disposed = true
	qu.Buffers = nil
	qu.Enqueued = nil
	return nil
}
