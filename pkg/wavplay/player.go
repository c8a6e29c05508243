// ABOUTME: High-level Player API for WAVE playback
// ABOUTME: Opens a container, picks a device and drives a playback session
package wavplay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/wavplay/pkg/audio/output"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
	"github.com/Resonate-Protocol/wavplay/pkg/wav"
)

var (
	ErrNotLoaded         = errors.New("wavplay: no file loaded")
	ErrUnsupportedFormat = errors.New("wavplay: unsupported audio format")
)

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// Output is the audio backend. When nil a malgo output is created and
	// owned by the player.
	Output output.Output

	// DeviceName selects an output device by name (default: system default)
	DeviceName string

	// Volume is the initial volume (0-100)
	Volume int

	// OnMetadata is called when a file is loaded
	OnMetadata func(Metadata)

	// OnStateChange is called when playback state changes
	OnStateChange func(PlayerState)

	// OnError is called when errors occur
	OnError func(error)
}

// Metadata describes the loaded file
type Metadata struct {
	Path     string
	Title    string
	Artist   string
	Album    string
	Genre    string
	Date     string
	Comment  string
	Duration time.Duration
	Info     wav.Info
}

// PlayerState describes the current state
type PlayerState struct {
	State      string // "idle", "loaded", "playing", "paused", "stopped"
	Volume     int
	Muted      bool
	File       string
	SampleRate int
	Channels   int
	BitDepth   int
	Device     string
	Elapsed    time.Duration
	Duration   time.Duration
}

// Player plays one WAVE file at a time
type Player struct {
	config     PlayerConfig
	output     output.Output
	ownsOutput bool
	registry   *device.Registry

	mu       sync.Mutex
	state    PlayerState
	header   wav.ContainerHeader
	payload  []byte
	loaded   bool
	deviceID *device.DeviceID
	session  *playback.Session
}

// NewPlayer creates a new player with the given configuration
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.Volume == 0 {
		config.Volume = 100
	}
	config.Volume = clampPercent(config.Volume)

	p := &Player{
		config: config,
		output: config.Output,
		state: PlayerState{
			State:  "idle",
			Volume: config.Volume,
		},
	}

	if p.output == nil {
		out, err := output.NewMalgo()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize output: %w", err)
		}
		p.output = out
		p.ownsOutput = true
	}
	p.registry = device.NewRegistry(p.output)

	if config.DeviceName != "" {
		d, err := p.registry.FindByName(config.DeviceName)
		if err != nil {
			p.closeOutput()
			return nil, err
		}
		id := d.ID
		p.deviceID = &id
		p.state.Device = d.Name
	} else if id, err := p.registry.DefaultOutputDevice(); err == nil {
		if name, err := p.registry.DeviceName(id); err == nil {
			p.state.Device = name
		}
	}

	return p, nil
}

// Registry exposes the device registry backing the player's output
func (p *Player) Registry() *device.Registry {
	return p.registry
}

// Load reads a WAVE file and prepares it for playback, stopping anything
// currently playing
func (p *Player) Load(path string) error {
	r, err := wav.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	if !h.Fmt.IsPCM() {
		return fmt.Errorf("%w: format tag 0x%04x in %s", ErrUnsupportedFormat, h.Fmt.AudioFormat, path)
	}

	var payload []byte
	var info wav.Info
	found := false
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch c.Header.ID {
		case wav.TagData:
			if !found {
				payload = c.Data
				found = true
			}
		case wav.TagList:
			if parsed, err := wav.ParseInfo(c); err == nil {
				info = append(info, parsed...)
			}
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", path, wav.ErrChunkNotFound)
	}

	if err := p.Stop(); err != nil {
		log.Printf("Stopping previous session: %v", err)
	}

	duration := h.Fmt.Duration(len(payload))
	format := h.Fmt.Audio()

	p.mu.Lock()
	p.header = h
	p.payload = payload
	p.loaded = true
	p.session = nil
	p.state.State = "loaded"
	p.state.File = path
	p.state.SampleRate = format.SampleRate
	p.state.Channels = format.Channels
	p.state.BitDepth = format.BitDepth
	p.state.Duration = duration
	p.state.Elapsed = 0
	p.mu.Unlock()

	log.Printf("Loaded %s: %s, %d bytes, %s", path, format, len(payload), duration.Round(time.Millisecond))

	if p.config.OnMetadata != nil {
		p.config.OnMetadata(Metadata{
			Path:     path,
			Title:    info.Get("INAM"),
			Artist:   info.Get("IART"),
			Album:    info.Get("IPRD"),
			Genre:    info.Get("IGNR"),
			Date:     info.Get("ICRD"),
			Comment:  info.Get("ICMT"),
			Duration: duration,
			Info:     info,
		})
	}
	p.notifyStateChange()
	return nil
}

// Play starts playback of the loaded file, or resumes it when paused
func (p *Player) Play() error {
	p.mu.Lock()
	s := p.session
	payload, loaded := p.payload, p.loaded
	format := p.header.Fmt.Audio()
	dev := p.deviceID
	volume, muted := p.state.Volume, p.state.Muted
	p.mu.Unlock()

	if s != nil {
		switch s.State() {
		case playback.Paused:
			return p.Resume()
		case playback.Started:
			return nil
		}
	}
	if !loaded {
		return ErrNotLoaded
	}

	s, err := playback.NewSession(p.output, p.registry, format, playback.OnStateChange(func(st playback.State) {
		p.handleSessionState(st)
	}))
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	// volume is set before audio flows so the first samples are scaled
	if err := p.applyVolume(volume, muted); err != nil {
		log.Printf("Failed to apply volume: %v", err)
	}

	// a failed start is reported through OnError by the Stopped transition
	return s.Start(payload, dev)
}

// Pause pauses playback
func (p *Player) Pause() error {
	s := p.current()
	if s == nil {
		return ErrNotLoaded
	}
	return s.Pause()
}

// Resume continues paused playback
func (p *Player) Resume() error {
	s := p.current()
	if s == nil {
		return ErrNotLoaded
	}
	return s.Resume()
}

// Stop stops playback. Stopping when nothing plays is not an error.
func (p *Player) Stop() error {
	s := p.current()
	if s == nil {
		return nil
	}
	return s.Stop()
}

// Wait blocks until playback finishes or ctx ends
func (p *Player) Wait(ctx context.Context) error {
	s := p.current()
	if s == nil {
		return ErrNotLoaded
	}
	return s.Wait(ctx)
}

// Done is closed when the current playback ends. It is nil before Play.
func (p *Player) Done() <-chan struct{} {
	s := p.current()
	if s == nil {
		return nil
	}
	return s.Done()
}

// SetVolume sets the volume (0-100) on the playback device
func (p *Player) SetVolume(volume int) error {
	volume = clampPercent(volume)

	p.mu.Lock()
	p.state.Volume = volume
	muted := p.state.Muted
	p.mu.Unlock()

	if err := p.applyVolume(volume, muted); err != nil {
		p.notifyError(err)
		return err
	}
	log.Printf("Volume set to %d", volume)
	p.notifyStateChange()
	return nil
}

// Mute sets the mute state
func (p *Player) Mute(muted bool) error {
	p.mu.Lock()
	p.state.Muted = muted
	volume := p.state.Volume
	p.mu.Unlock()

	if err := p.applyVolume(volume, muted); err != nil {
		p.notifyError(err)
		return err
	}
	log.Printf("Muted: %v", muted)
	p.notifyStateChange()
	return nil
}

func (p *Player) applyVolume(volume int, muted bool) error {
	id, err := p.targetDevice()
	if err != nil {
		return err
	}
	scalar := float32(volume) / 100
	if muted {
		scalar = 0
	}
	return p.registry.SetVolume(id, scalar, scalar)
}

func (p *Player) targetDevice() (device.DeviceID, error) {
	p.mu.Lock()
	dev := p.deviceID
	p.mu.Unlock()
	if dev != nil {
		return *dev, nil
	}
	return p.registry.DefaultOutputDevice()
}

// Status returns the current player state
func (p *Player) Status() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	if p.session != nil {
		st.Elapsed = p.session.Elapsed()
		if st.Elapsed > st.Duration {
			st.Elapsed = st.Duration
		}
	}
	return st
}

// Close stops playback and releases the output if the player created it
func (p *Player) Close() error {
	err := p.Stop()
	p.closeOutput()
	return err
}

func (p *Player) closeOutput() {
	if p.ownsOutput && p.output != nil {
		if err := p.output.Close(); err != nil {
			log.Printf("Warning: output close error: %v", err)
		}
	}
}

func (p *Player) current() *playback.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Player) handleSessionState(st playback.State) {
	p.mu.Lock()
	s := p.session
	switch st {
	case playback.Started:
		p.state.State = "playing"
	case playback.Paused:
		p.state.State = "paused"
	case playback.Stopped:
		p.state.State = "stopped"
	}
	p.mu.Unlock()

	if st == playback.Stopped && s != nil {
		if err := s.Err(); err != nil {
			p.notifyError(err)
		}
	}
	p.notifyStateChange()
}

func (p *Player) notifyStateChange() {
	if p.config.OnStateChange != nil {
		p.config.OnStateChange(p.Status())
	}
}

func (p *Player) notifyError(err error) {
	log.Printf("Player error: %v", err)
	if p.config.OnError != nil {
		p.config.OnError(err)
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
