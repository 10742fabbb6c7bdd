// Package velocity turns a sand height map into the wave-speed field the
// solver propagates through.
package velocity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"sandquake/internal/coords"
	"sandquake/internal/simerr"
)

// ReflectiveFactor scales vmax at obstacle cells so pieces act as hard
// scatterers.
const ReflectiveFactor = 1.8

// FlatPolicy decides what happens to a height map without relief.
type FlatPolicy int

const (
	// FlatMinimum maps a flat table to a constant field at vmin.
	FlatMinimum FlatPolicy = iota
	// FlatReject refuses flat tables with a configuration error.
	FlatReject
)

func (p FlatPolicy) String() string {
	if p == FlatReject {
		return "reject"
	}
	return "minimum"
}

// ParseFlatPolicy accepts "minimum" and "reject".
func ParseFlatPolicy(s string) (FlatPolicy, error) {
	switch s {
	case "", "minimum":
		return FlatMinimum, nil
	case "reject":
		return FlatReject, nil
	}
	return FlatMinimum, simerr.Config("flat_policy", "unknown policy %q", s)
}

// Params bounds and smooths the velocity field. Speeds are in km/s.
type Params struct {
	VMin, VMax     float64
	SigmaX, SigmaY float64
	Flat           FlatPolicy
}

// DefaultParams matches the tuning used on the table.
func DefaultParams() Params {
	return Params{VMin: 1, VMax: 5, SigmaX: 2, SigmaY: 2, Flat: FlatMinimum}
}

// Validate rejects empty or non-physical bounds.
func (p Params) Validate() error {
	switch {
	case !(p.VMin > 0) || math.IsInf(p.VMin, 0):
		return simerr.Config("vmin", "must be positive and finite, got %v", p.VMin)
	case !(p.VMax > p.VMin) || math.IsInf(p.VMax, 0):
		return simerr.Config("vmax", "must be finite and exceed vmin %v, got %v", p.VMin, p.VMax)
	case p.SigmaX < 0 || p.SigmaY < 0:
		return simerr.Config("sigma", "must not be negative, got %v/%v", p.SigmaX, p.SigmaY)
	}
	return nil
}

// Model is a finished velocity field. It is never mutated after Build.
type Model struct {
	Velocity  *mat.Dense
	Obstacles []coords.Coordinate
	VMin      float64
	VMax      float64
}

// Dims returns the grid width and height.
func (m *Model) Dims() (w, h int) {
	r, c := m.Velocity.Dims()
	return c, r
}

// Max returns the highest speed in the field, obstacles included.
func (m *Model) Max() float64 { return floats.Max(m.Velocity.RawMatrix().Data) }

// Min returns the lowest speed in the field.
func (m *Model) Min() float64 { return floats.Min(m.Velocity.RawMatrix().Data) }

// At returns the speed at column x, row y.
func (m *Model) At(x, y int) float64 { return m.Velocity.At(y, x) }

// Build rescales height into [VMin, VMax], smooths it and marks obstacles.
// Obstacle coordinates are (column, row) in height-map space.
func Build(height *mat.Dense, obstacles []coords.Coordinate, p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if height == nil || height.IsEmpty() {
		return nil, simerr.Config("height_map", "empty height map")
	}
	rows, cols := height.Dims()
	for _, o := range obstacles {
		if o.X < 0 || o.Y < 0 || o.X >= cols || o.Y >= rows {
			return nil, simerr.Config("obstacles", "%v outside %dx%d height map", o, cols, rows)
		}
	}
	data := mat.DenseCopyOf(height).RawMatrix().Data
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, simerr.Config("height_map", "non-finite elevation at cell %d", i)
		}
	}

	v := mat.NewDense(rows, cols, nil)
	lo, hi := floats.Min(data), floats.Max(data)
	if hi == lo {
		if p.Flat == FlatReject {
			return nil, simerr.Config("height_map", "flat height map (all cells %v)", lo)
		}
		floats.AddConst(p.VMin, v.RawMatrix().Data)
	} else {
		v.Apply(func(_, _ int, d float64) float64 {
			return rescale(d, lo, hi, p.VMin, p.VMax)
		}, height)
		v = Smooth(v, p.SigmaX, p.SigmaY)
		v.Apply(func(_, _ int, d float64) float64 {
			return math.Min(math.Max(d, p.VMin), p.VMax)
		}, v)
	}

	reflect := p.VMax * ReflectiveFactor
	for _, o := range obstacles {
		v.Set(o.Y, o.X, reflect)
	}
	return &Model{Velocity: v, Obstacles: coords.Clone(obstacles), VMin: p.VMin, VMax: p.VMax}, nil
}

// rescale maps d from [lo, hi] onto [low, high] linearly.
func rescale(d, lo, hi, low, high float64) float64 {
	return high - (high-low)*(hi-d)/(hi-lo)
}

// String summarises the model for logs.
func (m *Model) String() string {
	w, h := m.Dims()
	return fmt.Sprintf("velocity %dx%d [%.3g, %.3g] km/s, %d obstacles", w, h, m.Min(), m.Max(), len(m.Obstacles))
}
