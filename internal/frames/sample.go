// Package frames reduces a wavefield history to the cube handed to display.
package frames

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"sandquake/internal/simerr"
)

// Source is anything frame-indexable, such as *wave.History.
type Source interface {
	Len() int
	Frame(i int) []float32
}

// Cube is a time-subsampled, amplitude-normalised wavefield. Values lie in
// [-1, 1] and the largest magnitude is exactly 1 unless the field is silent.
type Cube struct {
	Width, Height int
	// Stride is the number of history steps between two cube frames.
	Stride int
	// Indices maps each cube frame to its history step.
	Indices []int
	// Scale is the magnitude divided out; zero for a silent field.
	Scale  float64
	Frames [][]float64
}

// Len returns the number of frames.
func (c *Cube) Len() int { return len(c.Frames) }

// At returns frame i at column x, row y.
func (c *Cube) At(i, x, y int) float64 { return c.Frames[i][y*c.Width+x] }

// Stride returns ceil(total / target).
func Stride(total, target int) int {
	if total <= 0 || target <= 0 {
		return 1
	}
	return (total + target - 1) / target
}

// Sample keeps every stride-th frame starting at 0 and divides all kept
// values by their largest magnitude, so relative amplitude across time is
// preserved. A silent history comes back as zeros.
func Sample(src Source, width, height, target int) (*Cube, error) {
	if target <= 0 {
		return nil, simerr.Config("frames", "target frame count must be positive, got %d", target)
	}
	total := src.Len()
	if total == 0 {
		return nil, simerr.Config("frames", "empty history")
	}
	stride := Stride(total, target)
	cube := &Cube{Width: width, Height: height, Stride: stride}

	var peak float64
	for i := 0; i < total; i += stride {
		raw := src.Frame(i)
		if len(raw) != width*height {
			return nil, fmt.Errorf("frame %d has %d cells, want %d", i, len(raw), width*height)
		}
		f := make([]float64, len(raw))
		for j, v := range raw {
			f[j] = float64(v)
		}
		if len(f) > 0 {
			peak = math.Max(peak, math.Max(floats.Max(f), -floats.Min(f)))
		}
		cube.Indices = append(cube.Indices, i)
		cube.Frames = append(cube.Frames, f)
	}
	if peak > 0 {
		cube.Scale = peak
		for _, f := range cube.Frames {
			for j := range f {
				f[j] /= peak
			}
		}
	}
	return cube, nil
}
