// Package trace turns receiver recordings into something a person can check:
// a WAV file to listen to and a terminal plot.
package trace

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/guptarohit/asciigraph"
)

const (
	bitDepth       = 16
	pcmFormat      = 1
	pcm16MaxValue  = 32767
	defaultSpeedup = 20
)

// SampleRate returns the WAV sample rate for a trace recorded every dt
// milliseconds and played speedup times faster than real time.
func SampleRate(dt, speedup float64) int {
	if speedup <= 0 {
		speedup = defaultSpeedup
	}
	return int(math.Round(1000 / dt * speedup))
}

// Normalize scales samples so the loudest one reaches ±1. Silence stays
// silent.
func Normalize(samples []float32) []float64 {
	out := make([]float64, len(samples))
	var peak float64
	for i, s := range samples {
		out[i] = float64(s)
		peak = math.Max(peak, math.Abs(out[i]))
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}

// WriteWAV encodes samples as mono 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(samples) == 0 {
		return errors.New("empty trace")
	}
	norm := Normalize(samples)
	data := make([]int, len(norm))
	for i, v := range norm {
		data[i] = int(math.Round(v * pcm16MaxValue))
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

// SaveWAV writes the trace to path.
func SaveWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeWAV returns the WAV file bytes for samples.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	ws := &memWriteSeeker{}
	if err := WriteWAV(ws, samples, sampleRate); err != nil {
		return nil, err
	}
	return ws.buf.Bytes(), nil
}

// Plot draws the normalised trace as an ASCII chart.
func Plot(samples []float32, width, height int, caption string) string {
	if len(samples) == 0 {
		return ""
	}
	opts := []asciigraph.Option{asciigraph.Height(height), asciigraph.Caption(caption)}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(Normalize(samples), opts...)
}

// memWriteSeeker is an in-memory io.WriteSeeker; the encoder seeks back to
// patch the header sizes.
type memWriteSeeker struct {
	buf bytes.Buffer
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	data := m.buf.Bytes()
	if m.pos < len(data) {
		n := copy(data[m.pos:], p)
		if n < len(p) {
			m.buf.Write(p[n:])
		}
	} else {
		m.buf.Write(p)
	}
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(m.buf.Len())
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	if next > int64(m.buf.Len()) {
		m.buf.Write(make([]byte, next-int64(m.buf.Len())))
	}
	m.pos = int(next)
	return next, nil
}
