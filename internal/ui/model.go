// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines playback display state and key handling
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// File
	file       string
	sampleRate int
	channels   int
	bitDepth   int

	// Metadata
	title  string
	artist string
	album  string

	// Device
	device string

	// Playback
	state    string
	elapsed  time.Duration
	duration time.Duration
	volume   int
	muted    bool
	lastErr  string

	// Debug
	showDebug bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderFileInfo()
	s += m.renderProgress()
	s += m.renderControls()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders playback state and device
func (m Model) renderHeader() string {
	icon := "■"
	switch m.state {
	case "playing":
		icon = "▶"
	case "paused":
		icon = "❚❚"
	}

	device := m.device
	if device == "" {
		device = "(system default)"
	}

	return fmt.Sprintf(`┌─ WAV Player ─────────────────────────────────────────┐
│ Status: %-2s %-42s │
│ Device: %-44s │
├──────────────────────────────────────────────────────┤
`, icon, truncate(m.state, 42), truncate(device, 44))
}

// renderFileInfo renders the loaded file and its metadata
func (m Model) renderFileInfo() string {
	if m.file == "" {
		return "│ No file loaded                                       │\n"
	}

	s := fmt.Sprintf("│ File:   %-44s │\n", truncate(m.file, 44))
	if m.title != "" {
		s += fmt.Sprintf("│   Title:  %-42s │\n", truncate(m.title, 42))
		s += fmt.Sprintf("│   Artist: %-42s │\n", truncate(m.artist, 42))
		s += fmt.Sprintf("│   Album:  %-42s │\n", truncate(m.album, 42))
	}
	s += fmt.Sprintf("│ Format: %-44s │\n",
		fmt.Sprintf("PCM %dHz %s %d-bit", m.sampleRate, channelName(m.channels), m.bitDepth))
	return s
}

// renderProgress renders elapsed time against the file duration
func (m Model) renderProgress() string {
	pos := int(m.elapsed / time.Millisecond)
	total := int(m.duration / time.Millisecond)
	if total <= 0 {
		total = 1
	}
	if pos > total {
		pos = total
	}

	return fmt.Sprintf("│                                                      │\n"+
		"│ [%s] %s / %s │\n",
		renderBar(pos, total, 30), formatClock(m.elapsed), formatClock(m.duration))
}

// renderControls renders volume status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	s := fmt.Sprintf("│ Volume: [%s] %3d%%%-21s │\n",
		renderBar(m.volume, 100, 10), m.volume, muteIcon)
	if m.lastErr != "" {
		s += fmt.Sprintf("│ Error:  %-44s │\n", truncate(m.lastErr, 44))
	}
	return s + "├──────────────────────────────────────────────────────┤\n"
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ space:Pause  ↑/↓:Volume  m:Mute  s:Stop  d:Debug  q:Quit │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Elapsed: %-41s │
│   Window:  %-41s │
`, m.elapsed.String(), fmt.Sprintf("%dx%d", m.width, m.height))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.send(Command{Kind: CommandQuit})
		return m, tea.Quit
	case " ", "p":
		switch m.state {
		case "playing":
			m.send(Command{Kind: CommandPause})
		case "paused":
			m.send(Command{Kind: CommandResume})
		}
	case "s":
		m.send(Command{Kind: CommandStop})
	case "up":
		if m.volume < 100 {
			m.volume += 5
			if m.volume > 100 {
				m.volume = 100
			}
			m.send(Command{Kind: CommandVolume, Volume: m.volume, Muted: m.muted})
		}
	case "down":
		if m.volume > 0 {
			m.volume -= 5
			if m.volume < 0 {
				m.volume = 0
			}
			m.send(Command{Kind: CommandVolume, Volume: m.volume, Muted: m.muted})
		}
	case "m":
		m.muted = !m.muted
		m.send(Command{Kind: CommandVolume, Volume: m.volume, Muted: m.muted})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send forwards a command without blocking the UI
func (m Model) send(cmd Command) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Commands <- cmd:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.File != "" {
		m.file = msg.File
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
		m.duration = msg.Duration
	}
	if msg.Title != "" {
		m.title = msg.Title
		m.artist = msg.Artist
		m.album = msg.Album
	}
	if msg.Device != "" {
		m.device = msg.Device
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Elapsed != nil {
		m.elapsed = *msg.Elapsed
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
	if msg.Err != nil {
		m.lastErr = msg.Err.Error()
	}
}

// StatusMsg updates TUI state. Zero and nil fields leave state unchanged.
type StatusMsg struct {
	File       string
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
	Title      string
	Artist     string
	Album      string
	Device     string
	State      string
	Elapsed    *time.Duration
	Volume     *int
	Muted      *bool
	Err        error
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString("░")
		}
	}
	return bar.String()
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
