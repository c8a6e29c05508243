// ABOUTME: Playback session state machine
// ABOUTME: Initialized -> Started <-> Paused -> Stopped, with a single terminal transition
package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/wavplay/pkg/audio"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/google/uuid"
)

// State of a playback session
type State int

const (
	Initialized State = iota
	Started
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Started:
		return "started"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Session
type Option func(*Session)

// OnStateChange registers a callback invoked after every state change. It
// runs on the goroutine that caused the change, which for completion is the
// session's watcher.
func OnStateChange(fn func(State)) Option {
	return func(s *Session) {
		s.onStateChange = fn
	}
}

// Session is one playback lifecycle. Lifecycle methods must not be called
// concurrently with each other; completion from the backend may race any of
// them.
type Session struct {
	id       uuid.UUID
	backend  Backend
	registry *device.Registry
	format   audio.Format

	onStateChange func(State)

	mu       sync.Mutex
	state    State
	device   *device.DeviceID
	queue    QueueID
	hasQueue bool
	pending  int
	err      error

	// elapsed playback time, excluding pauses
	played    time.Duration
	resumedAt time.Time

	completions chan Completion
	quit        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	stopErr     error
}

// NewSession creates a session in the Initialized state
func NewSession(backend Backend, registry *device.Registry, format audio.Format, opts ...Option) (*Session, error) {
	if backend == nil {
		return nil, errors.New("playback: nil backend")
	}
	if registry == nil {
		return nil, errors.New("playback: nil device registry")
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}

	s := &Session{
		id:          uuid.New(),
		backend:     backend,
		registry:    registry,
		format:      format,
		state:       Initialized,
		completions: make(chan Completion, 1),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the session's unique id
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Format returns the audio format the session plays
func (s *Session) Format() audio.Format {
	return s.format
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the bound device, or nil before Start binds one
func (s *Session) Device() *device.DeviceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return nil
	}
	id := *s.device
	return &id
}

// Err returns the error that ended the session, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Elapsed returns how long the payload has been playing, excluding pauses
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Started {
		return s.played + time.Since(s.resumedAt)
	}
	return s.played
}

// Done is closed once the session reaches Stopped and teardown finished
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session stops or ctx ends. It returns the error that
// ended the session.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start binds a device (the system default output when id is nil), loads
// payload into one backend buffer and starts playback. On failure the
// session is torn down and ends in Stopped.
func (s *Session) Start(payload []byte, id *device.DeviceID) error {
	s.mu.Lock()
	if s.state != Initialized {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, st)
	}
	s.mu.Unlock()

	if uint64(len(payload)) > math.MaxUint32 {
		return s.fail(newStepError(StepAllocateBuffer, ErrBufferAllocationFailed,
			fmt.Errorf("payload of %d bytes exceeds the buffer size limit", len(payload))))
	}

	target, err := s.resolveDevice(id)
	if err != nil {
		return s.fail(err)
	}

	q, err := s.backend.CreateQueue(s.format, s.completions)
	if err != nil {
		return s.fail(newStepError(StepCreateQueue, ErrBackend, err))
	}
	s.mu.Lock()
	s.queue = q
	s.hasQueue = true
	s.mu.Unlock()

	if err := s.backend.BindDevice(q, target); err != nil {
		return s.fail(newStepError(StepBindDevice, ErrDeviceNotAvailable, err))
	}
	s.mu.Lock()
	s.device = &target
	s.mu.Unlock()

	b, err := s.backend.AllocateBuffer(q, uint32(len(payload)))
	if err != nil {
		return s.fail(newStepError(StepAllocateBuffer, ErrBufferAllocationFailed, err))
	}
	if err := s.backend.CopyBuffer(q, b, payload); err != nil {
		return s.fail(newStepError(StepCopyBuffer, ErrBackend, err))
	}
	if err := s.backend.Enqueue(q, b); err != nil {
		return s.fail(newStepError(StepEnqueue, ErrBackend, err))
	}

	s.mu.Lock()
	s.pending = 1
	s.mu.Unlock()

	if err := s.backend.Start(q); err != nil {
		return s.fail(newStepError(StepStart, ErrBackend, err))
	}

	s.mu.Lock()
	s.state = Started
	s.resumedAt = time.Now()
	s.mu.Unlock()

	log.Printf("Session %s started on device %d (%s, %d bytes, %s)",
		s.id, target, s.format, len(payload), s.format.Duration(len(payload)).Round(time.Millisecond))

	go s.watch()
	s.notify(Started)
	return nil
}

func (s *Session) resolveDevice(id *device.DeviceID) (device.DeviceID, error) {
	var target device.DeviceID
	if id != nil {
		target = *id
	} else {
		def, err := s.registry.DefaultOutputDevice()
		if err != nil {
			return 0, newStepError(StepResolveDevice, ErrDeviceNotAvailable, err)
		}
		target = def
	}

	out, err := s.registry.IsOutputDevice(target)
	if err != nil {
		return 0, newStepError(StepResolveDevice, ErrDeviceNotAvailable, err)
	}
	if !out {
		return 0, newStepError(StepResolveDevice, ErrDeviceNotAvailable,
			fmt.Errorf("device %d has no output streams", target))
	}
	return target, nil
}

// Pause moves Started to Paused
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != Started {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, st)
	}
	q := s.queue
	s.mu.Unlock()

	if err := s.backend.Pause(q); err != nil {
		return newStepError(StepPause, ErrBackend, err)
	}

	s.mu.Lock()
	// completion may have won while the backend call was in flight
	if s.state != Started {
		s.mu.Unlock()
		return nil
	}
	s.state = Paused
	s.played += time.Since(s.resumedAt)
	s.mu.Unlock()

	s.notify(Paused)
	return nil
}

// Resume moves Paused back to Started
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != Paused {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, st)
	}
	q := s.queue
	s.mu.Unlock()

	if err := s.backend.Start(q); err != nil {
		return newStepError(StepResume, ErrBackend, err)
	}

	s.mu.Lock()
	if s.state != Paused {
		s.mu.Unlock()
		return nil
	}
	s.state = Started
	s.resumedAt = time.Now()
	s.mu.Unlock()

	s.notify(Started)
	return nil
}

// Stop ends the session. Stopping a stopped session is a no-op.
func (s *Session) Stop() error {
	return s.terminate(nil)
}

// fail tears down after a failed Start and returns err
func (s *Session) fail(err error) error {
	log.Printf("Session %s failed to start: %v", s.id, err)
	_ = s.terminate(err)
	return err
}

// terminate performs the one transition into Stopped. cause is recorded as
// the session error when non-nil.
func (s *Session) terminate(cause error) error {
	ran := false
	s.stopOnce.Do(func() {
		ran = true

		s.mu.Lock()
		prev := s.state
		q, hasQueue := s.queue, s.hasQueue
		started := prev == Started || prev == Paused
		if prev == Started {
			s.played += time.Since(s.resumedAt)
		}
		s.state = Stopped
		s.err = cause
		s.hasQueue = false
		s.pending = 0
		s.device = nil
		s.mu.Unlock()

		close(s.quit)

		var errs []error
		if hasQueue {
			if started {
				if err := s.backend.Stop(q); err != nil {
					errs = append(errs, newStepError(StepStop, ErrBackend, err))
				}
			}
			if err := s.backend.Dispose(q); err != nil {
				errs = append(errs, newStepError(StepDispose, ErrBackend, err))
			}
		}
		s.stopErr = errors.Join(errs...)
		if s.stopErr != nil {
			log.Printf("Session %s teardown: %v", s.id, s.stopErr)
		}
	})

	if !ran {
		return nil
	}

	// outside the Once so callbacks may call Stop again; observers see
	// Stopped before Wait returns
	s.notify(Stopped)
	close(s.done)
	return s.stopErr
}

// watch waits for the enqueued buffer to complete
func (s *Session) watch() {
	for {
		select {
		case c := <-s.completions:
			s.mu.Lock()
			if !s.hasQueue || c.Queue != s.queue {
				s.mu.Unlock()
				continue
			}
			s.pending--
			remaining := s.pending
			s.mu.Unlock()

			if c.Err != nil {
				log.Printf("Session %s: buffer %d failed: %v", s.id, c.Buffer, c.Err)
				_ = s.terminate(c.Err)
				return
			}
			if remaining <= 0 {
				log.Printf("Session %s: playback complete", s.id)
				_ = s.terminate(nil)
				return
			}
		case <-s.quit:
			return
		}
	}
}

func (s *Session) notify(st State) {
	if s.onStateChange != nil {
		s.onStateChange(st)
	}
}
