// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface and malgo, oto, PortAudio and null implementations
// Package output provides concrete playback backends.
//
// Each Output doubles as a device.PropertyStore describing the devices it
// can play to, and as a playback.Backend that plays PCM buffers on them.
// Volume set through the device registry is applied in software while the
// backend pulls samples.
//
// Supported backends:
//   - malgo: miniaudio, device selection and every PCM depth
//   - oto: default device only, 8 and 16 bit
//   - portaudio: requires building with -tags portaudio
//   - null: simulated device that plays in real time to nowhere
//
// Example:
//
//	out, err := output.New("malgo")
//	registry := device.NewRegistry(out)
//	session, err := playback.NewSession(out, registry, format)
package output
