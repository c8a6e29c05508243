// ABOUTME: Read-only reporting for --header and --list-devices
// ABOUTME: Prints the container header, chunk table and device list
package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Resonate-Protocol/wavplay/pkg/device"
	"github.com/Resonate-Protocol/wavplay/pkg/wav"
)

// printHeader dumps the fixed header of path followed by every chunk
func printHeader(w io.Writer, path string) error {
	r, err := wav.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	f := h.Fmt

	fmt.Fprintf(w, "File:            %s (%d bytes)\n", path, r.Size())
	fmt.Fprintf(w, "Container:       %s, size %d, form %s\n", h.ChunkID, h.ChunkSize, h.Format)
	fmt.Fprintf(w, "Format chunk:    %s, size %d\n", f.ChunkID, f.ChunkSize)
	fmt.Fprintf(w, "Audio format:    0x%04x (%s)\n", f.AudioFormat, formatTagName(f.AudioFormat))
	if f.AudioFormat == wav.FormatExtensible {
		fmt.Fprintf(w, "Sub format:      0x%04x (%s)\n", f.SubFormat, formatTagName(f.SubFormat))
	}
	fmt.Fprintf(w, "Channels:        %d\n", f.Channels)
	fmt.Fprintf(w, "Sample rate:     %d Hz\n", f.SampleRate)
	fmt.Fprintf(w, "Byte rate:       %d\n", f.ByteRate)
	fmt.Fprintf(w, "Block align:     %d\n", f.BlockAlign)
	fmt.Fprintf(w, "Bits per sample: %d\n", f.BitsPerSample)
	fmt.Fprintf(w, "Bytes per frame: %d\n", f.BytesPerFrame())

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tID\tSIZE\tNOTE")

	var walkErr error
	for {
		offset := r.Offset()
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			walkErr = err
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", offset, c.Header.ID, c.Header.Size, chunkNote(f, c))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return walkErr
}

func chunkNote(f wav.FormatDescriptor, c wav.Chunk) string {
	switch c.Header.ID {
	case wav.TagData:
		return fmt.Sprintf("%d frames, %s", frames(f, len(c.Data)), f.Duration(len(c.Data)))
	case wav.TagList:
		info, err := wav.ParseInfo(c)
		if err != nil {
			return ""
		}
		fields := make([]string, 0, len(info))
		for _, e := range info {
			fields = append(fields, fmt.Sprintf("%s=%q", e.ID, e.Value))
		}
		return strings.Join(fields, ", ")
	}
	return ""
}

func frames(f wav.FormatDescriptor, n int) int {
	bpf := f.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return n / bpf
}

func formatTagName(tag uint16) string {
	switch tag {
	case wav.FormatPCM:
		return "PCM"
	case wav.FormatIEEEFloat:
		return "IEEE float"
	case wav.FormatExtensible:
		return "extensible"
	default:
		return "unknown"
	}
}

// printDevices lists every device the registry can describe. The default
// output is marked with '*'.
func printDevices(w io.Writer, reg *device.Registry) error {
	devices, err := reg.Devices()
	if err != nil {
		return err
	}

	def, err := reg.DefaultOutputDevice()
	hasDefault := err == nil

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tOUTPUT")
	for _, d := range devices {
		mark := ""
		if hasDefault && d.ID == def {
			mark = "*"
		}
		output := "no"
		if d.IsOutput {
			output = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", mark, d.ID, d.Name, output)
	}
	return tw.Flush()
}
