// ABOUTME: Entry point for the wavplay command
// ABOUTME: Inspects WAVE headers, lists devices and plays files
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/wavplay/internal/config"
	"github.com/Resonate-Protocol/wavplay/internal/ui"
	"github.com/Resonate-Protocol/wavplay/internal/version"
	"github.com/Resonate-Protocol/wavplay/pkg/audio/output"
	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/wavplay"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavplay: %v\n", err)
		os.Exit(2)
	}

	if cfg.Header {
		if err := printHeader(os.Stdout, cfg.Input); err != nil {
			log.Fatalf("Failed to read header: %v", err)
		}
		return
	}

	if cfg.ListDevices {
		out, err := output.New(cfg.Backend)
		if err != nil {
			log.Fatalf("Failed to initialize %s output: %v", cfg.Backend, err)
		}
		defer func() { _ = out.Close() }()
		if err := printDevices(os.Stdout, device.NewRegistry(out)); err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		return
	}

	useTUI := !cfg.NoTUI

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s", version.String())
	if cfg.ConfigFile != "" {
		log.Printf("Using config file %s", cfg.ConfigFile)
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls
	tuiDone := make(chan struct{})

	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls, cfg.Volume)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				log.Printf("TUI error: %v", err)
			}
		}()
	} else {
		close(tuiDone)
	}

	var resources cleanup

	// fatal releases the device and restores the terminal before exiting
	fatal := func(format string, args ...any) {
		_ = resources.run()
		if tuiProg != nil {
			tuiProg.Kill()
			<-tuiDone
		}
		log.Printf(format, args...)
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		os.Exit(1)
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	out, err := output.New(cfg.Backend)
	if err != nil {
		fatal("Failed to initialize %s output: %v", cfg.Backend, err)
	}
	resources.add("output", out)
	log.Printf("Using %s output", out.Name())

	player, err := wavplay.NewPlayer(wavplay.PlayerConfig{
		Output:     out,
		DeviceName: cfg.Device,
		Volume:     cfg.Volume,
		OnMetadata: func(meta wavplay.Metadata) {
			log.Printf("Loaded: %s - %s (%s)", meta.Artist, meta.Title, meta.Duration.Round(time.Millisecond))
			updateTUI(ui.StatusMsg{
				Title:  meta.Title,
				Artist: meta.Artist,
				Album:  meta.Album,
			})
		},
		OnStateChange: func(state wavplay.PlayerState) {
			volume, muted := state.Volume, state.Muted
			updateTUI(ui.StatusMsg{
				File:       state.File,
				SampleRate: state.SampleRate,
				Channels:   state.Channels,
				BitDepth:   state.BitDepth,
				Duration:   state.Duration,
				Device:     state.Device,
				State:      state.State,
				Volume:     &volume,
				Muted:      &muted,
			})
		},
		OnError: func(err error) {
			updateTUI(ui.StatusMsg{Err: err})
		},
	})
	if err != nil {
		fatal("Failed to create player: %v", err)
	}
	resources.add("player", player)
	defer func() { _ = resources.run() }()

	if err := player.Load(cfg.Input); err != nil {
		fatal("Failed to load %s: %v", cfg.Input, err)
	}
	// NewPlayer treats 0 as unset
	if err := player.SetVolume(cfg.Volume); err != nil {
		log.Printf("Failed to set volume: %v", err)
	}
	if err := player.Play(); err != nil {
		fatal("Failed to start playback: %v", err)
	}

	quit := make(chan struct{})
	if controls != nil {
		go handleCommands(player, controls, quit)
	}
	if tuiProg != nil {
		go statusUpdateLoop(player, updateTUI, quit)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-player.Done():
		log.Printf("Playback finished")
	case <-quit:
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	}

	if tuiProg != nil {
		tuiProg.Quit()
		<-tuiDone
	}
	log.Printf("Player stopped")
}

// handleCommands applies TUI commands to the player. quit is closed when the
// user asks to leave.
func handleCommands(player *wavplay.Player, controls *ui.Controls, quit chan<- struct{}) {
	for cmd := range controls.Commands {
		var err error
		switch cmd.Kind {
		case ui.CommandPause:
			err = player.Pause()
		case ui.CommandResume:
			err = player.Resume()
		case ui.CommandStop:
			err = player.Stop()
		case ui.CommandVolume:
			log.Printf("Volume change: %d%%, muted=%v", cmd.Volume, cmd.Muted)
			if err = player.SetVolume(cmd.Volume); err == nil {
				err = player.Mute(cmd.Muted)
			}
		case ui.CommandQuit:
			close(quit)
			return
		}
		if err != nil {
			log.Printf("Command failed: %v", err)
		}
	}
}

// statusUpdateLoop pushes playback position to the TUI
func statusUpdateLoop(player *wavplay.Player, updateTUI func(ui.StatusMsg), quit <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			elapsed := player.Status().Elapsed
			updateTUI(ui.StatusMsg{Elapsed: &elapsed})
		case <-player.Done():
			elapsed := player.Status().Elapsed
			updateTUI(ui.StatusMsg{Elapsed: &elapsed, State: "stopped"})
			return
		case <-quit:
			return
		}
	}
}
