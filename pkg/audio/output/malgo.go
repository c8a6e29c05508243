// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: Uses miniaudio via malgo for device enumeration and callback-driven playback
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
	"github.com/gen2brain/malgo"
)

// defaultChannels is assumed when a backend cannot report a channel count
const defaultChannels = 2

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	*device.MemoryStore

	queues *queueTable

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	ids      map[device.DeviceID]malgo.DeviceID
}

type malgoSink struct {
	device *malgo.Device
	id     malgo.DeviceID
}

// NewMalgo initializes miniaudio and snapshots its device list
func NewMalgo() (*Malgo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	m := &Malgo{
		MemoryStore: device.NewMemoryStore(),
		queues:      newQueueTable(),
		malgoCtx:    ctx,
		ids:         make(map[device.DeviceID]malgo.DeviceID),
	}

	if err := m.enumerate(); err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, err
	}
	return m, nil
}

func (m *Malgo) enumerate() error {
	playbackDevices, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	for _, info := range playbackDevices {
		channels := m.playbackChannels(info)
		id := m.AddDevice(info.Name(), channels)
		m.ids[id] = info.ID
		if info.IsDefault != 0 {
			m.SetDefaultOutput(id)
		}
		log.Printf("Found output device %d: %s (%d channels)", id, info.Name(), channels)
	}

	// capture-only endpoints show up in the registry without output streams
	captureDevices, err := m.malgoCtx.Devices(malgo.Capture)
	if err != nil {
		log.Printf("Warning: failed to enumerate capture devices: %v", err)
		return nil
	}
	for _, info := range captureDevices {
		m.AddDevice(info.Name(), 0)
	}
	return nil
}

// playbackChannels asks miniaudio for the widest native format of a device
func (m *Malgo) playbackChannels(info malgo.DeviceInfo) int {
	full, err := m.malgoCtx.DeviceInfo(malgo.Playback, info.ID, malgo.Shared)
	if err != nil {
		return defaultChannels
	}
	channels := 0
	for _, f := range full.Formats {
		if int(f.Channels) > channels {
			channels = int(f.Channels)
		}
	}
	if channels == 0 {
		return defaultChannels
	}
	return channels
}

// Name implements Output
func (m *Malgo) Name() string { return "malgo" }

// CreateQueue implements playback.Backend
func (m *Malgo) CreateQueue(format audio.Format, done chan<- playback.Completion) (playback.QueueID, error) {
	if _, err := malgoFormat(format.BitDepth); err != nil {
		return 0, err
	}
	q, err := m.queues.create(format, done)
	if err != nil {
		return 0, err
	}
	return q.id, nil
}

// BindDevice implements playback.Backend
func (m *Malgo) BindDevice(id playback.QueueID, dev device.DeviceID) error {
	m.mu.Lock()
	_, ok := m.ids[dev]
	m.mu.Unlock()
	if !ok {
		return &playback.StatusError{Op: fmt.Sprintf("bind device %d", dev), Status: device.StatusBadDevice}
	}

	return m.queues.with("bind device", id, func(q *queue) error {
		if q.sink != nil {
			return &playback.StatusError{Op: "bind device on a started queue", Status: device.StatusIllegalOperation}
		}
		q.device = dev
		q.bound = true
		return nil
	})
}

// AllocateBuffer implements playback.Backend
func (m *Malgo) AllocateBuffer(id playback.QueueID, size uint32) (playback.BufferID, error) {
	return m.queues.allocate(id, size)
}

// CopyBuffer implements playback.Backend
func (m *Malgo) CopyBuffer(id playback.QueueID, b playback.BufferID, data []byte) error {
	return m.queues.copyBuffer(id, b, data)
}

// Enqueue implements playback.Backend
func (m *Malgo) Enqueue(id playback.QueueID, b playback.BufferID) error {
	return m.queues.enqueue(id, b)
}

// Start implements playback.Backend. The miniaudio device is created on the
// first start and reused on resume.
func (m *Malgo) Start(id playback.QueueID) error {
	var sink *malgoSink
	var format audio.Format
	var dev device.DeviceID
	var bound bool
	var done chan<- playback.Completion
	err := m.queues.with("start", id, func(q *queue) error {
		sink, _ = q.sink.(*malgoSink)
		format, dev, bound, done = q.format, q.device, q.bound, q.done
		return nil
	})
	if err != nil {
		return err
	}

	if sink == nil {
		sink, err = m.openDevice(id, format, dev, bound, done)
		if err != nil {
			return err
		}
		err = m.queues.with("start", id, func(q *queue) error {
			q.sink = sink
			return nil
		})
		if err != nil {
			sink.device.Uninit()
			return err
		}
	}

	if err := m.queues.with("start", id, func(q *queue) error {
		q.running = true
		return nil
	}); err != nil {
		return err
	}

	if err := sink.device.Start(); err != nil {
		_ = m.queues.with("start", id, func(q *queue) error {
			q.running = false
			return nil
		})
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

func (m *Malgo) openDevice(id playback.QueueID, format audio.Format, dev device.DeviceID, bound bool, done chan<- playback.Completion) (*malgoSink, error) {
	maFormat, err := malgoFormat(format.BitDepth)
	if err != nil {
		return nil, err
	}

	sink := &malgoSink{}
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = maFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if bound {
		m.mu.Lock()
		sink.id = m.ids[dev]
		m.mu.Unlock()
		deviceConfig.Playback.DeviceID = sink.id.Pointer()
	}

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		m.dataCallback(id, format, dev, done, pOutputSample)
	}

	m.mu.Lock()
	ctx := m.malgoCtx
	m.mu.Unlock()
	if ctx == nil {
		return nil, &playback.StatusError{Op: "output closed", Status: device.StatusNotRunning}
	}

	maDevice, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	sink.device = maDevice

	log.Printf("Audio output initialized: %s on device %d (malgo/%s)", format, dev, formatName(maFormat))
	return sink, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(id playback.QueueID, format audio.Format, dev device.DeviceID, done chan<- playback.Completion, out []byte) {
	n, finished := m.queues.read(id, out)
	silence(out[n:], format)
	audio.ApplyGain(out[:n], format, channelGains(m.MemoryStore, dev, format.Channels))
	deliver(done, finished)
}

// Pause implements playback.Backend
func (m *Malgo) Pause(id playback.QueueID) error {
	return m.halt("pause", id)
}

// Stop implements playback.Backend
func (m *Malgo) Stop(id playback.QueueID) error {
	return m.halt("stop", id)
}

func (m *Malgo) halt(op string, id playback.QueueID) error {
	var sink *malgoSink
	err := m.queues.with(op, id, func(q *queue) error {
		q.running = false
		sink, _ = q.sink.(*malgoSink)
		return nil
	})
	if err != nil || sink == nil {
		return err
	}
	if err := sink.device.Stop(); err != nil {
		return fmt.Errorf("device %s failed: %w", op, err)
	}
	return nil
}

// Dispose implements playback.Backend
func (m *Malgo) Dispose(id playback.QueueID) error {
	q, err := m.queues.remove(id)
	if err != nil {
		return err
	}
	if sink, ok := q.sink.(*malgoSink); ok {
		if err := sink.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		sink.device.Uninit()
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	for _, q := range m.queues.all() {
		if err := m.Dispose(q.id); err != nil {
			log.Printf("Warning: dispose queue %d: %v", q.id, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

func malgoFormat(bitDepth int) (malgo.FormatType, error) {
	switch bitDepth {
	case 8:
		return malgo.FormatU8, nil
	case 16:
		return malgo.FormatS16, nil
	case 24:
		return malgo.FormatS24, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, &playback.StatusError{
			Op:     fmt.Sprintf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", bitDepth),
			Status: device.StatusUnsupported,
		}
	}
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}

// silence fills p with the format's zero level
func silence(p []byte, f audio.Format) {
	fill := byte(0)
	if f.BitDepth == 8 {
		fill = 0x80
	}
	for i := range p {
		p[i] = fill
	}
}
