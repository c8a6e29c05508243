// ABOUTME: Playback session package
// ABOUTME: Drives one payload through a platform playback backend
// Package playback tracks the lifecycle of a single playback request.
//
// A Session binds an output device, copies one PCM payload into a backend
// buffer, enqueues it and starts the queue. The backend reports completion
// on a channel; whichever of completion or Stop arrives first tears the
// queue down, and it is torn down exactly once.
//
// Example:
//
//	s, err := playback.NewSession(backend, registry, format)
//	err = s.Start(payload, nil) // nil selects the default output device
//	err = s.Wait(ctx)
package playback
