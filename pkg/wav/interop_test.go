// ABOUTME: Interoperability tests against github.com/go-audio/wav
// ABOUTME: Files written by either side must be readable by the other
package wav

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	goaudiowav "github.com/go-audio/wav"
)

func TestReader_ReadsGoAudioEncoderOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "goaudio.wav")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	samples := make([]int, 2*441)
	for i := range samples {
		samples[i] = (i % 200) - 100
	}

	enc := goaudiowav.NewEncoder(out, 44100, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder Close() error = %v", err)
	}
	out.Close()

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	f := r.Header().Fmt
	if f.Channels != 2 || f.SampleRate != 44100 || f.BitsPerSample != 16 {
		t.Errorf("Fmt = %+v", f)
	}

	data, err := FindChunk(r, TagData)
	if err != nil {
		t.Fatalf("FindChunk() error = %v", err)
	}
	if want := len(samples) * 2; len(data.Data) != want {
		t.Errorf("payload = %d bytes, want %d", len(data.Data), want)
	}
}

func TestEncode_ReadableByGoAudioDecoder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ours.wav")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	payload := make([]byte, 4*100)
	if err := Encode(out, NewPCMFormat(2, 48000, 16), NewChunk(TagData, payload)); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer in.Close()

	dec := goaudiowav.NewDecoder(in)
	if !dec.IsValidFile() {
		t.Fatal("go-audio rejected the container")
	}
	if dec.SampleRate != 48000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("decoder saw %dHz %dch %d-bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer() error = %v", err)
	}
	if len(pcm.Data) != 200 {
		t.Errorf("samples = %d, want 200", len(pcm.Data))
	}
}
