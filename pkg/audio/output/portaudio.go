//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform device selection and playback using PortAudio
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	*device.MemoryStore

	queues *queueTable

	mu      sync.Mutex
	devices map[device.DeviceID]*portaudio.DeviceInfo
}

// NewPortAudio initializes PortAudio and snapshots its device list
func NewPortAudio() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p := &PortAudio{
		MemoryStore: device.NewMemoryStore(),
		queues:      newQueueTable(),
		devices:     make(map[device.DeviceID]*portaudio.DeviceInfo),
	}

	infos, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	def, err := portaudio.DefaultOutputDevice()
	if err != nil {
		log.Printf("Warning: no default output device: %v", err)
	}

	for _, info := range infos {
		id := p.AddDevice(info.Name, info.MaxOutputChannels)
		p.devices[id] = info
		if def != nil && info.Name == def.Name && info.HostApi == def.HostApi {
			p.SetDefaultOutput(id)
		}
	}
	return p, nil
}

// Name implements Output
func (p *PortAudio) Name() string { return "portaudio" }

// CreateQueue implements playback.Backend
func (p *PortAudio) CreateQueue(format audio.Format, done chan<- playback.Completion) (playback.QueueID, error) {
	if format.BitDepth != 8 && format.BitDepth != 16 && format.BitDepth != 32 {
		return 0, &playback.StatusError{
			Op:     fmt.Sprintf("unsupported bit depth: %d (supported: 8, 16, 32)", format.BitDepth),
			Status: device.StatusUnsupported,
		}
	}
	q, err := p.queues.create(format, done)
	if err != nil {
		return 0, err
	}
	return q.id, nil
}

// BindDevice implements playback.Backend
func (p *PortAudio) BindDevice(id playback.QueueID, dev device.DeviceID) error {
	p.mu.Lock()
	info, ok := p.devices[dev]
	p.mu.Unlock()
	if !ok || info.MaxOutputChannels == 0 {
		return &playback.StatusError{Op: fmt.Sprintf("bind device %d", dev), Status: device.StatusBadDevice}
	}
	return p.queues.with("bind device", id, func(q *queue) error {
		if q.format.Channels > info.MaxOutputChannels {
			return &playback.StatusError{
				Op:     fmt.Sprintf("%d channels on a %d channel device", q.format.Channels, info.MaxOutputChannels),
				Status: device.StatusUnsupported,
			}
		}
		q.device = dev
		q.bound = true
		return nil
	})
}

// AllocateBuffer implements playback.Backend
func (p *PortAudio) AllocateBuffer(id playback.QueueID, size uint32) (playback.BufferID, error) {
	return p.queues.allocate(id, size)
}

// CopyBuffer implements playback.Backend
func (p *PortAudio) CopyBuffer(id playback.QueueID, b playback.BufferID, data []byte) error {
	return p.queues.copyBuffer(id, b, data)
}

// Enqueue implements playback.Backend
func (p *PortAudio) Enqueue(id playback.QueueID, b playback.BufferID) error {
	return p.queues.enqueue(id, b)
}

// Start implements playback.Backend
func (p *PortAudio) Start(id playback.QueueID) error {
	var stream *portaudio.Stream
	var format audio.Format
	var dev device.DeviceID
	var bound bool
	var done chan<- playback.Completion
	err := p.queues.with("start", id, func(q *queue) error {
		stream, _ = q.sink.(*portaudio.Stream)
		format, dev, bound, done = q.format, q.device, q.bound, q.done
		q.running = true
		return nil
	})
	if err != nil {
		return err
	}

	if stream == nil {
		if !bound {
			dev = p.DefaultOutput()
		}
		stream, err = p.openStream(id, format, dev, done)
		if err != nil {
			return err
		}
		if err := p.queues.with("start", id, func(q *queue) error {
			q.sink = stream
			return nil
		}); err != nil {
			stream.Close()
			return err
		}
	}
	return stream.Start()
}

func (p *PortAudio) openStream(id playback.QueueID, format audio.Format, dev device.DeviceID, done chan<- playback.Completion) (*portaudio.Stream, error) {
	p.mu.Lock()
	info, ok := p.devices[dev]
	p.mu.Unlock()
	if !ok {
		return nil, &playback.StatusError{Op: fmt.Sprintf("open device %d", dev), Status: device.StatusBadDevice}
	}

	params := portaudio.LowLatencyParameters(nil, info)
	params.Output.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)

	// pull fills scratch from the queue and applies the device volume
	pull := func(n int) []byte {
		scratch := make([]byte, n)
		got, finished := p.queues.read(id, scratch)
		silence(scratch[got:], format)
		audio.ApplyGain(scratch[:got], format, channelGains(p.MemoryStore, dev, format.Channels))
		deliver(done, finished)
		return scratch
	}

	var callback any
	switch format.BitDepth {
	case 8:
		callback = func(out []uint8) {
			copy(out, pull(len(out)))
		}
	case 16:
		callback = func(out []int16) {
			b := pull(len(out) * 2)
			for i := range out {
				out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
			}
		}
	case 32:
		callback = func(out []int32) {
			b := pull(len(out) * 4)
			for i := range out {
				out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
			}
		}
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	log.Printf("Audio output initialized: %s on %q (portaudio)", format, info.Name)
	return stream, nil
}

// Pause implements playback.Backend
func (p *PortAudio) Pause(id playback.QueueID) error {
	return p.halt("pause", id)
}

// Stop implements playback.Backend
func (p *PortAudio) Stop(id playback.QueueID) error {
	return p.halt("stop", id)
}

func (p *PortAudio) halt(op string, id playback.QueueID) error {
	var stream *portaudio.Stream
	err := p.queues.with(op, id, func(q *queue) error {
		q.running = false
		stream, _ = q.sink.(*portaudio.Stream)
		return nil
	})
	if err != nil || stream == nil {
		return err
	}
	return stream.Stop()
}

// Dispose implements playback.Backend
func (p *PortAudio) Dispose(id playback.QueueID) error {
	q, err := p.queues.remove(id)
	if err != nil {
		return err
	}
	if stream, ok := q.sink.(*portaudio.Stream); ok {
		if err := stream.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	for _, q := range p.queues.all() {
		if err := p.Dispose(q.id); err != nil {
			log.Printf("Warning: dispose queue %d: %v", q.id, err)
		}
	}
	return portaudio.Terminate()
}
