// ABOUTME: Tests for header and device reporting
// ABOUTME: Renders encoded fixtures and an in-memory registry into buffers
package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
	"github.com/Resonate-Protocol/wavplay/pkg/wav"
)

func writeFixture(t *testing.T, chunks ...wav.Chunk) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := wav.Encode(f, wav.NewPCMFormat(2, 44100, 16), chunks...); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPrintHeader(t *testing.T) {
	path := writeFixture(t,
		wav.NewChunk(wav.TagData, make([]byte, 176400)),
		wav.EncodeInfo(wav.Info{{ID: fourcc.Must("INAM"), Value: "Tone"}}),
	)

	var buf bytes.Buffer
	if err := printHeader(&buf, path); err != nil {
		t.Fatalf("printHeader failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"RIFF",
		"form WAVE",
		"0x0001 (PCM)",
		"Channels:        2",
		"Sample rate:     44100 Hz",
		"Block align:     4",
		"Bytes per frame: 4",
		"44100 frames, 1s",
		`INAM="Tone"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// data is the first chunk after the 36-byte header
	lines := strings.Split(out, "\n")
	found := false
	for _, l := range lines {
		fields := strings.Fields(l)
		if len(fields) >= 3 && fields[0] == "36" && fields[1] == "data" {
			found = true
		}
	}
	if !found {
		t.Errorf("chunk table has no data row at offset 36:\n%s", out)
	}
}

func TestPrintHeaderTruncatedChunk(t *testing.T) {
	path := writeFixture(t, wav.NewChunk(wav.TagData, make([]byte, 16)))

	// declare more payload than the file holds
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	b[40] = 0xff
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err = printHeader(&buf, path)
	if !errors.Is(err, wav.ErrTruncatedInput) {
		t.Fatalf("Expected ErrTruncatedInput, got %v", err)
	}
	if !strings.Contains(buf.String(), "Sample rate") {
		t.Error("header should still be printed before the chunk walk fails")
	}
}

func TestPrintHeaderMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := printHeader(&buf, filepath.Join(t.TempDir(), "absent.wav"))
	if !errors.Is(err, wav.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}

func TestPrintDevices(t *testing.T) {
	store := device.NewMemoryStore()
	speakers := store.AddDevice("Speakers", 2)
	store.AddDevice("Microphone", 0)
	dac := store.AddDevice("USB DAC", 2)
	store.SetDefaultOutput(dac)

	var buf bytes.Buffer
	if err := printDevices(&buf, device.NewRegistry(store)); err != nil {
		t.Fatalf("printDevices failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Speakers", "Microphone", "USB DAC"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	for _, l := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(l, "USB DAC"):
			if !strings.HasPrefix(l, "*") || !strings.HasSuffix(strings.TrimSpace(l), "yes") {
				t.Errorf("default output row wrong: %q", l)
			}
		case strings.Contains(l, "Microphone"):
			if !strings.HasSuffix(strings.TrimSpace(l), "no") {
				t.Errorf("input row wrong: %q", l)
			}
		case strings.Contains(l, "Speakers"):
			if strings.HasPrefix(l, "*") {
				t.Errorf("device %d marked default: %q", speakers, l)
			}
		}
	}
}
