// ABOUTME: Integration tests for Player API
// ABOUTME: Plays encoded fixtures through the null output
package wavplay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/wavplay/pkg/audio/output"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
	"github.com/Resonate-Protocol/wavplay/pkg/playback"
	"github.com/Resonate-Protocol/wavplay/pkg/wav"
)

// writeFixture encodes a 16-bit stereo file with an INFO list after the data
func writeFixture(t *testing.T, payloadBytes int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	info := wav.EncodeInfo(wav.Info{
		{ID: fourcc.Must("INAM"), Value: "Test Tone"},
		{ID: fourcc.Must("IART"), Value: "wavplay"},
	})
	err = wav.Encode(f, wav.NewPCMFormat(2, 44100, 16),
		wav.NewChunk(wav.TagData, make([]byte, payloadBytes)),
		info,
	)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPlayer(t *testing.T, config PlayerConfig) (*Player, *output.Null) {
	t.Helper()
	out := output.NewNull()
	out.Speed = 100
	t.Cleanup(func() { _ = out.Close() })

	config.Output = out
	player, err := NewPlayer(config)
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	return player, out
}

func TestNewPlayer(t *testing.T) {
	player, _ := newTestPlayer(t, PlayerConfig{Volume: 80})
	defer player.Close()

	state := player.Status()
	if state.State != "idle" {
		t.Errorf("Expected initial state='idle', got '%s'", state.State)
	}
	if state.Volume != 80 {
		t.Errorf("Expected volume=80, got %d", state.Volume)
	}
	if state.Device != "Null Output" {
		t.Errorf("Expected default device name, got %q", state.Device)
	}
}

func TestNewPlayerDefaults(t *testing.T) {
	player, _ := newTestPlayer(t, PlayerConfig{})
	defer player.Close()

	if player.config.Volume != 100 {
		t.Errorf("Expected default volume=100, got %d", player.config.Volume)
	}
}

func TestNewPlayerUnknownDevice(t *testing.T) {
	out := output.NewNull()
	defer out.Close()

	_, err := NewPlayer(PlayerConfig{Output: out, DeviceName: "Nonexistent"})
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestPlayerPlayWithoutLoad(t *testing.T) {
	player, _ := newTestPlayer(t, PlayerConfig{})
	defer player.Close()

	if err := player.Play(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
	if err := player.Pause(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
	if err := player.Stop(); err != nil {
		t.Errorf("Stop without session should be a no-op, got %v", err)
	}
}

func TestPlayerLoadAndPlay(t *testing.T) {
	var mu sync.Mutex
	var meta Metadata
	var states []string

	player, _ := newTestPlayer(t, PlayerConfig{
		DeviceName: "null output",
		OnMetadata: func(m Metadata) {
			mu.Lock()
			defer mu.Unlock()
			meta = m
		},
		OnStateChange: func(s PlayerState) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s.State)
		},
	})
	defer player.Close()

	// 0.5s of audio
	path := writeFixture(t, 88200)
	if err := player.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	status := player.Status()
	if status.State != "loaded" || status.SampleRate != 44100 || status.Channels != 2 || status.BitDepth != 16 {
		t.Errorf("Unexpected status after load: %+v", status)
	}
	if status.Duration != 500*time.Millisecond {
		t.Errorf("Expected duration 500ms, got %v", status.Duration)
	}

	mu.Lock()
	if meta.Title != "Test Tone" || meta.Artist != "wavplay" {
		t.Errorf("Unexpected metadata: %+v", meta)
	}
	mu.Unlock()

	if err := player.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := player.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if got := player.Status().State; got != "stopped" {
		t.Errorf("Expected state='stopped', got %q", got)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"loaded", "playing", "stopped"}
	if len(states) != len(want) {
		t.Fatalf("Expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state[%d] = %q, want %q", i, states[i], want[i])
		}
	}
}

func TestPlayerPauseResumeStop(t *testing.T) {
	player, _ := newTestPlayer(t, PlayerConfig{})
	defer player.Close()

	// 10s of audio, 100ms at Speed 100
	if err := player.Load(writeFixture(t, 1764000)); err != nil {
		t.Fatal(err)
	}
	if err := player.Play(); err != nil {
		t.Fatal(err)
	}
	if err := player.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := player.Status().State; got != "paused" {
		t.Errorf("Expected 'paused', got %q", got)
	}

	// Play resumes a paused session
	if err := player.Play(); err != nil {
		t.Fatalf("Play (resume): %v", err)
	}
	if got := player.Status().State; got != "playing" {
		t.Errorf("Expected 'playing', got %q", got)
	}

	if err := player.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := player.Stop(); err != nil {
		t.Errorf("Second stop should be a no-op, got %v", err)
	}
	if got := player.Status().State; got != "stopped" {
		t.Errorf("Expected 'stopped', got %q", got)
	}
	if err := player.Resume(); !errors.Is(err, playback.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestPlayerVolume(t *testing.T) {
	player, out := newTestPlayer(t, PlayerConfig{Volume: 50})
	defer player.Close()

	id := out.DefaultOutput()

	if err := player.SetVolume(150); err != nil {
		t.Fatal(err)
	}
	if v, _ := out.ChannelVolume(id, 1); v != 1 {
		t.Errorf("Expected clamped volume 1.0, got %v", v)
	}

	if err := player.SetVolume(25); err != nil {
		t.Fatal(err)
	}
	if v, _ := out.ChannelVolume(id, 2); v != 0.25 {
		t.Errorf("Expected 0.25, got %v", v)
	}

	if err := player.Mute(true); err != nil {
		t.Fatal(err)
	}
	if v, _ := out.ChannelVolume(id, 1); v != 0 {
		t.Errorf("Expected muted volume 0, got %v", v)
	}
	if st := player.Status(); !st.Muted || st.Volume != 25 {
		t.Errorf("Unexpected status: %+v", st)
	}
}

func TestPlayerVolumeError(t *testing.T) {
	var gotErr error
	player, out := newTestPlayer(t, PlayerConfig{
		OnError: func(err error) { gotErr = err },
	})
	defer player.Close()

	out.Fail(out.DefaultOutput(), device.SelectorVolumeScalar, device.StatusIllegalOperation)

	err := player.SetVolume(10)
	if !errors.Is(err, device.ErrQueryFailed) {
		t.Fatalf("Expected ErrQueryFailed, got %v", err)
	}
	if gotErr == nil {
		t.Error("Expected OnError callback")
	}
}

func TestPlayerLoadErrors(t *testing.T) {
	player, _ := newTestPlayer(t, PlayerConfig{})
	defer player.Close()

	if err := player.Load(filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, wav.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}

	// container without a data chunk
	path := filepath.Join(t.TempDir(), "nodata.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.Encode(f, wav.NewPCMFormat(1, 8000, 8)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := player.Load(path); !errors.Is(err, wav.ErrChunkNotFound) {
		t.Errorf("Expected ErrChunkNotFound, got %v", err)
	}

	// IEEE float is not PCM
	path = filepath.Join(t.TempDir(), "float.wav")
	f, err = os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	fd := wav.NewPCMFormat(1, 8000, 32)
	fd.AudioFormat = wav.FormatIEEEFloat
	if err := wav.Encode(f, fd, wav.NewChunk(wav.TagData, make([]byte, 8))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := player.Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestPlayerStartFailureReported(t *testing.T) {
	var mu sync.Mutex
	var gotErr error
	player, out := newTestPlayer(t, PlayerConfig{
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			gotErr = err
		},
	})
	defer player.Close()

	if err := player.Load(writeFixture(t, 400)); err != nil {
		t.Fatal(err)
	}

	// unplug the device between load and play
	out.RemoveDevice(out.DefaultOutput())

	err := player.Play()
	if !errors.Is(err, playback.ErrDeviceNotAvailable) {
		t.Fatalf("Expected ErrDeviceNotAvailable, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(gotErr, playback.ErrDeviceNotAvailable) {
		t.Errorf("Expected OnError with ErrDeviceNotAvailable, got %v", gotErr)
	}
}

func TestPlayerStopFromErrorHandler(t *testing.T) {
	var player *Player
	stopped := make(chan error, 1)
	player, out := newTestPlayer(t, PlayerConfig{
		OnError: func(err error) {
			stopped <- player.Stop()
		},
	})
	defer player.Close()

	if err := player.Load(writeFixture(t, 400)); err != nil {
		t.Fatal(err)
	}
	out.RemoveDevice(out.DefaultOutput())

	played := make(chan error, 1)
	go func() { played <- player.Play() }()

	select {
	case err := <-played:
		if !errors.Is(err, playback.ErrDeviceNotAvailable) {
			t.Errorf("Expected ErrDeviceNotAvailable, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play hung while the error handler stopped the player")
	}

	if err := <-stopped; err != nil {
		t.Errorf("Stop from the error handler: %v", err)
	}
	select {
	case <-player.Done():
	default:
		t.Error("Done should be closed")
	}
}
