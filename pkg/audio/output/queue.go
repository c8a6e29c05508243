// ABOUTME: Queue and buffer bookkeeping shared by all output backends
// ABOUTME: Buffers are drained in FIFO order by the platform pull callback
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
)

// maxBufferSize caps a single buffer allocation (1 GiB)
const maxBufferSize = 1 << 30

type pending struct {
	id   playback.BufferID
	data []byte
	off  int
}

type queue struct {
	id      playback.QueueID
	format  audio.Format
	device  device.DeviceID
	bound   bool
	done    chan<- playback.Completion
	buffers map[playback.BufferID][]byte
	fifo    []pending
	running bool

	// backend-specific stream handle
	sink any
}

// queueTable owns every queue of one backend. Platform callbacks arrive on
// their own threads, so all access goes through mu.
type queueTable struct {
	mu         sync.Mutex
	queues     map[playback.QueueID]*queue
	nextQueue  playback.QueueID
	nextBuffer playback.BufferID
}

func newQueueTable() *queueTable {
	return &queueTable{
		queues:     make(map[playback.QueueID]*queue),
		nextQueue:  1,
		nextBuffer: 1,
	}
}

func badQueue(op string) error {
	return &playback.StatusError{Op: op, Status: device.StatusBadObject}
}

func (t *queueTable) create(format audio.Format, done chan<- playback.Completion) (*queue, error) {
	if err := format.Validate(); err != nil {
		return nil, &playback.StatusError{Op: "create queue: " + err.Error(), Status: device.StatusUnsupported}
	}
	if done == nil {
		return nil, fmt.Errorf("create queue: nil completion channel")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	q := &queue{
		id:      t.nextQueue,
		format:  format,
		done:    done,
		buffers: make(map[playback.BufferID][]byte),
	}
	t.nextQueue++
	t.queues[q.id] = q
	return q, nil
}

// with runs fn on queue id under the table lock
func (t *queueTable) with(op string, id playback.QueueID, fn func(q *queue) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[id]
	if !ok {
		return badQueue(op)
	}
	return fn(q)
}

func (t *queueTable) allocate(id playback.QueueID, size uint32) (playback.BufferID, error) {
	if size > maxBufferSize {
		return 0, &playback.StatusError{Op: fmt.Sprintf("allocate %d bytes", size), Status: device.StatusBadPropertySize}
	}

	var b playback.BufferID
	err := t.with("allocate buffer", id, func(q *queue) error {
		b = t.nextBuffer
		t.nextBuffer++
		q.buffers[b] = make([]byte, size)
		return nil
	})
	return b, err
}

func (t *queueTable) copyBuffer(id playback.QueueID, b playback.BufferID, data []byte) error {
	return t.with("copy buffer", id, func(q *queue) error {
		dst, ok := q.buffers[b]
		if !ok {
			return badQueue("copy buffer")
		}
		if len(data) > len(dst) {
			return &playback.StatusError{
				Op:     fmt.Sprintf("copy %d bytes into buffer of %d", len(data), len(dst)),
				Status: device.StatusBadPropertySize,
			}
		}
		q.buffers[b] = dst[:copy(dst, data)]
		return nil
	})
}

func (t *queueTable) enqueue(id playback.QueueID, b playback.BufferID) error {
	return t.with("enqueue", id, func(q *queue) error {
		data, ok := q.buffers[b]
		if !ok {
			return badQueue("enqueue")
		}
		q.fifo = append(q.fifo, pending{id: b, data: data})
		return nil
	})
}

func (t *queueTable) remove(id playback.QueueID) (*queue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[id]
	if !ok {
		return nil, badQueue("dispose")
	}
	delete(t.queues, id)
	q.running = false
	q.fifo = nil
	q.buffers = nil
	return q, nil
}

func (t *queueTable) all() []*queue {
	t.mu.Lock()
	defer t.mu.Unlock()
	qs := make([]*queue, 0, len(t.queues))
	for _, q := range t.queues {
		qs = append(qs, q)
	}
	return qs
}

// read drains up to len(p) bytes of enqueued audio into p and returns how
// many bytes were written and which buffers finished. It does not pad.
func (t *queueTable) read(id playback.QueueID, p []byte) (int, []playback.Completion) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[id]
	if !ok || !q.running {
		return 0, nil
	}

	var n int
	var finished []playback.Completion
	for n < len(p) && len(q.fifo) > 0 {
		head := &q.fifo[0]
		c := copy(p[n:], head.data[head.off:])
		head.off += c
		n += c
		if head.off >= len(head.data) {
			finished = append(finished, playback.Completion{Queue: id, Buffer: head.id})
			q.fifo = q.fifo[1:]
		}
	}
	return n, finished
}

// drained reports whether queue id has no audio left to play
func (t *queueTable) drained(id playback.QueueID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[id]
	return !ok || len(q.fifo) == 0
}

// deliver sends completions without blocking the platform thread
func deliver(done chan<- playback.Completion, cs []playback.Completion) {
	for _, c := range cs {
		select {
		case done <- c:
		default:
			log.Printf("Completion for queue %d buffer %d dropped: receiver not ready", c.Queue, c.Buffer)
		}
	}
}

// channelGains reads the per-channel volume scalars of a device from store.
// Channels without a volume control play at unity.
func channelGains(store *device.MemoryStore, id device.DeviceID, channels int) []float32 {
	gains := make([]float32, channels)
	for ch := range gains {
		v, ok := store.ChannelVolume(id, uint32(ch+1))
		if !ok {
			v = 1
		}
		gains[ch] = v
	}
	return gains
}
