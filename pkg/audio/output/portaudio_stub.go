//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct {
	*device.MemoryStore
}

// NewPortAudio always fails without the portaudio build tag
func NewPortAudio() (*PortAudio, error) {
	return nil, errPortAudioDisabled
}

// Name implements Output
func (p *PortAudio) Name() string { return "portaudio" }

// CreateQueue implements playback.Backend
func (p *PortAudio) CreateQueue(audio.Format, chan<- playback.Completion) (playback.QueueID, error) {
	return 0, errPortAudioDisabled
}

// BindDevice implements playback.Backend
func (p *PortAudio) BindDevice(playback.QueueID, device.DeviceID) error {
	return errPortAudioDisabled
}

// AllocateBuffer implements playback.Backend
func (p *PortAudio) AllocateBuffer(playback.QueueID, uint32) (playback.BufferID, error) {
	return 0, errPortAudioDisabled
}

// CopyBuffer implements playback.Backend
func (p *PortAudio) CopyBuffer(playback.QueueID, playback.BufferID, []byte) error {
	return errPortAudioDisabled
}

// Enqueue implements playback.Backend
func (p *PortAudio) Enqueue(playback.QueueID, playback.BufferID) error {
	return errPortAudioDisabled
}

// Start implements playback.Backend
func (p *PortAudio) Start(playback.QueueID) error { return errPortAudioDisabled }

// Pause implements playback.Backend
func (p *PortAudio) Pause(playback.QueueID) error { return errPortAudioDisabled }

// Stop implements playback.Backend
func (p *PortAudio) Stop(playback.QueueID) error { return errPortAudioDisabled }

// Dispose implements playback.Backend
func (p *PortAudio) Dispose(playback.QueueID) error { return errPortAudioDisabled }

// Close releases resources
func (p *PortAudio) Close() error { return errPortAudioDisabled }
