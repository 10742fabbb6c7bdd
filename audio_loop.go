package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	"sandquake/internal/trace"
)

// loadLoopSamples renders the receiver trace as WAV, decodes it at
// sampleRate and returns stereo-averaged samples.
func loadLoopSamples(sampleRate int, samples []float32, dt, speedup float64) ([]float32, error) {
	raw, err := trace.EncodeWAV(samples, trace.SampleRate(dt, speedup))
	if err != nil {
		return nil, err
	}
	stream, err := wav.DecodeWithSampleRate(sampleRate, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding trace: %w", err)
	}
	decoded, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading decoded trace: %w", err)
	}
	out := decodeStereoI16ToFloat(decoded)
	if len(out) == 0 {
		return nil, fmt.Errorf("trace has no usable samples")
	}
	return out, nil
}

func decodeStereoI16ToFloat(pcm []byte) []float32 {
	frameCount := len(pcm) / 4
	if frameCount == 0 {
		return nil
	}
	samples := make([]float32, frameCount)
	for i := 0; i < frameCount; i++ {
		offset := i * 4
		left := int16(binary.LittleEndian.Uint16(pcm[offset : offset+2]))
		right := int16(binary.LittleEndian.Uint16(pcm[offset+2 : offset+4]))
		samples[i] = (float32(left) + float32(right)) * (0.5 / 32768.0)
	}
	return samples
}

// loopStream plays samples over and over as 16-bit stereo PCM.
type loopStream struct {
	mu      sync.Mutex
	samples []float32
	pos     int
	gain    float32
}

func newLoopStream(samples []float32) *loopStream {
	return &loopStream{samples: samples, gain: 1}
}

// Restart rewinds to the first sample so sound lines up with frame 0.
func (s *loopStream) Restart() {
	s.mu.Lock()
	s.pos = 0
	s.mu.Unlock()
}

func (s *loopStream) Read(p []byte) (int, error) {
	// Whole stereo frames only (4 bytes per frame).
	frameBytes := len(p) - len(p)%4
	if frameBytes == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < frameBytes; i += 4 {
		var v int16
		if len(s.samples) > 0 {
			x := s.samples[s.pos] * s.gain
			if x > 1 {
				x = 1
			} else if x < -1 {
				x = -1
			}
			v = int16(x * pcm16MaxValue)
			s.pos++
			if s.pos >= len(s.samples) {
				s.pos = 0
			}
		}
		p[i] = byte(v)
		p[i+1] = byte(v >> 8)
		p[i+2] = p[i]
		p[i+3] = p[i+1]
	}
	return frameBytes, nil
}

func (s *loopStream) Close() error {
	return nil
}
