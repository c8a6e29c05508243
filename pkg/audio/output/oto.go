// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays queues on the system default device with software volume control
package output

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
	"github.com/ebitengine/oto/v3"
)

// otoPollInterval is how often a playing queue checks for completion
const otoPollInterval = 20 * time.Millisecond

// Oto output implementation using oto library. oto cannot pick a device,
// so its registry holds a single entry for the system default.
type Oto struct {
	*device.MemoryStore

	queues    *queueTable
	defaultID device.DeviceID

	mu        sync.Mutex
	otoCtx    *oto.Context
	ctxFormat audio.Format
}

type otoSink struct {
	player   *oto.Player
	quit     chan struct{}
	finished []playback.Completion
}

// NewOto creates a new Oto output. The audio context is created by the
// first queue, since oto allows only one per process.
func NewOto() *Oto {
	store := device.NewMemoryStore()
	return &Oto{
		MemoryStore: store,
		queues:      newQueueTable(),
		defaultID:   store.AddDevice("System Default Output", defaultChannels),
	}
}

// Name implements Output
func (o *Oto) Name() string { return "oto" }

func otoFormat(bitDepth int) (oto.Format, error) {
	switch bitDepth {
	case 8:
		return oto.FormatUnsignedInt8, nil
	case 16:
		return oto.FormatSignedInt16LE, nil
	default:
		return 0, &playback.StatusError{
			Op:     fmt.Sprintf("oto only supports 8 and 16-bit output, got %d-bit", bitDepth),
			Status: device.StatusUnsupported,
		}
	}
}

func (o *Oto) context(format audio.Format) (*oto.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// If already initialized with same format, reuse the existing context
	if o.otoCtx != nil {
		if o.ctxFormat != format {
			return nil, &playback.StatusError{
				Op:     fmt.Sprintf("format change (%s -> %s) but oto doesn't support reinitialization", o.ctxFormat, format),
				Status: device.StatusUnsupported,
			}
		}
		return o.otoCtx, nil
	}

	f, err := otoFormat(format.BitDepth)
	if err != nil {
		return nil, err
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       f,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.ctxFormat = format
	log.Printf("Audio output initialized: %s (oto)", format)
	return ctx, nil
}

// CreateQueue implements playback.Backend
func (o *Oto) CreateQueue(format audio.Format, done chan<- playback.Completion) (playback.QueueID, error) {
	if _, err := o.context(format); err != nil {
		return 0, err
	}
	q, err := o.queues.create(format, done)
	if err != nil {
		return 0, err
	}
	return q.id, nil
}

// BindDevice implements playback.Backend. Only the default device is accepted.
func (o *Oto) BindDevice(id playback.QueueID, dev device.DeviceID) error {
	if dev != o.defaultID {
		log.Printf("Warning: oto cannot select device %d, only the system default (%d)", dev, o.defaultID)
		return &playback.StatusError{Op: fmt.Sprintf("bind device %d", dev), Status: device.StatusBadDevice}
	}
	return o.queues.with("bind device", id, func(q *queue) error {
		q.device = dev
		q.bound = true
		return nil
	})
}

// AllocateBuffer implements playback.Backend
func (o *Oto) AllocateBuffer(id playback.QueueID, size uint32) (playback.BufferID, error) {
	return o.queues.allocate(id, size)
}

// CopyBuffer implements playback.Backend
func (o *Oto) CopyBuffer(id playback.QueueID, b playback.BufferID, data []byte) error {
	return o.queues.copyBuffer(id, b, data)
}

// Enqueue implements playback.Backend
func (o *Oto) Enqueue(id playback.QueueID, b playback.BufferID) error {
	return o.queues.enqueue(id, b)
}

// Start implements playback.Backend
func (o *Oto) Start(id playback.QueueID) error {
	var sink *otoSink
	var format audio.Format
	err := o.queues.with("start", id, func(q *queue) error {
		sink, _ = q.sink.(*otoSink)
		format = q.format
		q.running = true
		return nil
	})
	if err != nil {
		return err
	}

	if sink == nil {
		ctx, err := o.context(format)
		if err != nil {
			return err
		}
		sink = &otoSink{quit: make(chan struct{})}
		sink.player = ctx.NewPlayer(&otoReader{o: o, id: id, format: format, sink: sink})
		if err := o.queues.with("start", id, func(q *queue) error {
			q.sink = sink
			return nil
		}); err != nil {
			sink.player.Close()
			return err
		}
		sink.player.Play()
		go o.watch(id, sink)
		return nil
	}

	sink.player.Play()
	return nil
}

// Pause implements playback.Backend
func (o *Oto) Pause(id playback.QueueID) error {
	return o.halt("pause", id)
}

// Stop implements playback.Backend
func (o *Oto) Stop(id playback.QueueID) error {
	return o.halt("stop", id)
}

func (o *Oto) halt(op string, id playback.QueueID) error {
	var sink *otoSink
	err := o.queues.with(op, id, func(q *queue) error {
		q.running = false
		sink, _ = q.sink.(*otoSink)
		return nil
	})
	if err == nil && sink != nil {
		sink.player.Pause()
	}
	return err
}

// Dispose implements playback.Backend
func (o *Oto) Dispose(id playback.QueueID) error {
	q, err := o.queues.remove(id)
	if err != nil {
		return err
	}
	if sink, ok := q.sink.(*otoSink); ok {
		close(sink.quit)
		if err := sink.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
	}
	return nil
}

// watch reports completion once the player has drained every buffer
func (o *Oto) watch(id playback.QueueID, sink *otoSink) {
	ticker := time.NewTicker(otoPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sink.quit:
			return
		case <-ticker.C:
		}

		// IsPlaying takes the player lock, which oto holds while calling Read
		playing := sink.player.IsPlaying()

		var running bool
		var done chan<- playback.Completion
		var finished []playback.Completion
		err := o.queues.with("watch", id, func(q *queue) error {
			running = q.running
			done = q.done
			if running && len(q.fifo) == 0 && !playing {
				finished = sink.finished
				sink.finished = nil
			}
			return nil
		})
		if err != nil {
			return
		}
		if len(finished) > 0 {
			deliver(done, finished)
		}
	}
}

// Close releases output resources
func (o *Oto) Close() error {
	for _, q := range o.queues.all() {
		if err := o.Dispose(q.id); err != nil {
			log.Printf("Warning: dispose queue %d: %v", q.id, err)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	return nil
}

// otoReader feeds a queue's buffers to an oto.Player
type otoReader struct {
	o      *Oto
	id     playback.QueueID
	format audio.Format
	sink   *otoSink
}

func (r *otoReader) Read(p []byte) (int, error) {
	// oto may ask for partial frames; only hand out whole ones
	frame := r.format.BytesPerFrame()
	p = p[:len(p)/frame*frame]

	n, finished := r.o.queues.read(r.id, p)
	if n > 0 {
		audio.ApplyGain(p[:n], r.format, channelGains(r.o.MemoryStore, r.o.defaultID, r.format.Channels))
	}
	if len(finished) > 0 {
		_ = r.o.queues.with("read", r.id, func(q *queue) error {
			r.sink.finished = append(r.sink.finished, finished...)
			return nil
		})
	}
	if n == 0 && r.o.queues.drained(r.id) {
		return 0, io.EOF
	}
	return n, nil
}
