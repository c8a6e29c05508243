// ABOUTME: High-level wavplay library API
// ABOUTME: Provides a simple Player for most use cases
// Package wavplay plays WAVE files on a chosen output device.
//
// This is the main entry point for most library users. For lower-level
// control, see the wav, device, playback and output packages.
//
// Example:
//
//	player, err := wavplay.NewPlayer(wavplay.PlayerConfig{
//	    DeviceName: "Built-in Output",
//	    Volume:     80,
//	})
//	err = player.Load("/path/to/recording.wav")
//	err = player.Play()
//	err = player.Wait(ctx)
package wavplay
