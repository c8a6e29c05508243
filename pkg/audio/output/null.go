// ABOUTME: Null output that simulates playback in real time
// ABOUTME: Lets the full pipeline run on machines without audio hardware
package output

import (
	"fmt"
	"log"
	"time"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
)

// Null consumes enqueued audio at the format's byte rate and discards it
type Null struct {
	*device.MemoryStore

	queues *queueTable

	// Speed scales the simulated clock; 2 plays twice as fast
	Speed float64
}

type nullSink struct {
	timer   *time.Timer
	started time.Time
	left    time.Duration
}

// NewNull creates a null output with one stereo device and one input-only
// device, so device filtering can be exercised
func NewNull() *Null {
	store := device.NewMemoryStore()
	store.AddDevice("Null Output", defaultChannels)
	store.AddDevice("Null Input", 0)
	return &Null{
		MemoryStore: store,
		queues:      newQueueTable(),
		Speed:       1,
	}
}

// Name implements Output
func (n *Null) Name() string { return "null" }

// CreateQueue implements playback.Backend
func (n *Null) CreateQueue(format audio.Format, done chan<- playback.Completion) (playback.QueueID, error) {
	q, err := n.queues.create(format, done)
	if err != nil {
		return 0, err
	}
	return q.id, nil
}

// BindDevice implements playback.Backend
func (n *Null) BindDevice(id playback.QueueID, dev device.DeviceID) error {
	size, st := n.QuerySize(dev, device.StreamConfigAddress())
	if !st.OK() || size == 0 {
		return &playback.StatusError{Op: fmt.Sprintf("bind device %d", dev), Status: device.StatusBadDevice}
	}
	return n.queues.with("bind device", id, func(q *queue) error {
		q.device = dev
		q.bound = true
		return nil
	})
}

// AllocateBuffer implements playback.Backend
func (n *Null) AllocateBuffer(id playback.QueueID, size uint32) (playback.BufferID, error) {
	return n.queues.allocate(id, size)
}

// CopyBuffer implements playback.Backend
func (n *Null) CopyBuffer(id playback.QueueID, b playback.BufferID, data []byte) error {
	return n.queues.copyBuffer(id, b, data)
}

// Enqueue implements playback.Backend
func (n *Null) Enqueue(id playback.QueueID, b playback.BufferID) error {
	return n.queues.enqueue(id, b)
}

// Start implements playback.Backend. Everything enqueued so far completes
// after its play time.
func (n *Null) Start(id playback.QueueID) error {
	return n.queues.with("start", id, func(q *queue) error {
		if q.running {
			return nil
		}
		sink, _ := q.sink.(*nullSink)
		if sink == nil {
			total := 0
			for _, p := range q.fifo {
				total += len(p.data) - p.off
			}
			sink = &nullSink{left: n.scale(q.format.Duration(total))}
			q.sink = sink
		}

		q.running = true
		sink.started = time.Now()
		sink.timer = time.AfterFunc(sink.left, func() { n.finish(id) })
		log.Printf("Null output playing queue %d (%s left)", id, sink.left.Round(time.Millisecond))
		return nil
	})
}

func (n *Null) scale(d time.Duration) time.Duration {
	if n.Speed <= 0 {
		return d
	}
	return time.Duration(float64(d) / n.Speed)
}

// finish drains the queue once its play time elapsed
func (n *Null) finish(id playback.QueueID) {
	var done chan<- playback.Completion
	var finished []playback.Completion
	_ = n.queues.with("finish", id, func(q *queue) error {
		if !q.running {
			return nil
		}
		done = q.done
		for _, p := range q.fifo {
			finished = append(finished, playback.Completion{Queue: id, Buffer: p.id})
		}
		q.fifo = nil
		q.running = false
		return nil
	})
	if len(finished) > 0 {
		deliver(done, finished)
	}
}

// Pause implements playback.Backend
func (n *Null) Pause(id playback.QueueID) error {
	return n.halt("pause", id)
}

// Stop implements playback.Backend
func (n *Null) Stop(id playback.QueueID) error {
	return n.halt("stop", id)
}

func (n *Null) halt(op string, id playback.QueueID) error {
	return n.queues.with(op, id, func(q *queue) error {
		sink, _ := q.sink.(*nullSink)
		if !q.running || sink == nil {
			q.running = false
			return nil
		}
		sink.timer.Stop()
		sink.left -= time.Since(sink.started)
		if sink.left < 0 {
			sink.left = 0
		}
		q.running = false
		return nil
	})
}

// Dispose implements playback.Backend
func (n *Null) Dispose(id playback.QueueID) error {
	q, err := n.queues.remove(id)
	if err != nil {
		return err
	}
	if sink, ok := q.sink.(*nullSink); ok && sink.timer != nil {
		sink.timer.Stop()
	}
	return nil
}

// Close releases resources
func (n *Null) Close() error {
	for _, q := range n.queues.all() {
		_ = n.Dispose(q.id)
	}
	return nil
}
