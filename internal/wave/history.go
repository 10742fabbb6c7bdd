package wave

import "sandquake/internal/coords"

// History is the wavefield of the physical interior, one frame per time step,
// row-major. The absorbing layer is never stored.
type History struct {
	Width, Height int
	// T0 and DT are in milliseconds.
	T0, DT float64
	frames [][]float32
	traces []Trace
}

// Trace is the signal recorded at one receiver cell.
type Trace struct {
	At      coords.Coordinate
	Samples []float32
}

// Len returns the number of frames.
func (h *History) Len() int { return len(h.frames) }

// Frame returns frame i. The slice is shared with the history.
func (h *History) Frame(i int) []float32 { return h.frames[i] }

// At returns the value of frame i at column x, row y.
func (h *History) At(i, x, y int) float32 { return h.frames[i][y*h.Width+x] }

// Time returns the simulation time of frame i in milliseconds.
func (h *History) Time(i int) float64 { return h.T0 + float64(i)*h.DT }

// Traces returns the receiver recordings.
func (h *History) Traces() []Trace { return h.traces }

// Bytes reports the memory held by the frames.
func (h *History) Bytes() int64 { return int64(len(h.frames)) * int64(h.Width*h.Height) * 4 }

// Release drops the frames so the memory can be reclaimed once the cube has
// been sampled. Traces survive.
func (h *History) Release() { h.frames = nil }

// historyBytes predicts the memory of nt interior frames.
func historyBytes(nt, w, h int) int64 { return int64(nt) * int64(w) * int64(h) * 4 }
