// Package coords holds the integer pixel coordinates produced by the shape
// detector and consumed by the velocity builder and the wave engine.
package coords

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Coordinate is an (x, y) pair in image or grid space. X is the column and Y
// the row.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt builds a Coordinate.
func Pt(x, y int) Coordinate { return Coordinate{X: x, Y: y} }

func (c Coordinate) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Point converts c to a planar point.
func (c Coordinate) Point() r2.Point { return r2.Point{X: float64(c.X), Y: float64(c.Y)} }

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Coordinate) float64 {
	return a.Point().Sub(b.Point()).Norm()
}

// FromPoint rounds p to the nearest integer coordinate.
func FromPoint(p r2.Point) Coordinate {
	return Coordinate{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// Nearest returns the index of the element of set closest to c and its
// distance. It returns -1 and +Inf for an empty set.
func Nearest(c Coordinate, set []Coordinate) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, s := range set {
		if d := Distance(c, s); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Scale maps c from a grid of size (fromW, fromH) onto a grid of size
// (toW, toH), keeping the relative position.
func Scale(c Coordinate, fromW, fromH, toW, toH int) Coordinate {
	if fromW == toW && fromH == toH {
		return c
	}
	sx := float64(toW) / float64(fromW)
	sy := float64(toH) / float64(fromH)
	x := int(math.Floor(float64(c.X) * sx))
	y := int(math.Floor(float64(c.Y) * sy))
	if x >= toW {
		x = toW - 1
	}
	if y >= toH {
		y = toH - 1
	}
	return Coordinate{X: x, Y: y}
}

// Clone returns a copy of set that shares no memory with it.
func Clone(set []Coordinate) []Coordinate {
	if set == nil {
		return nil
	}
	out := make([]Coordinate, len(set))
	copy(out, set)
	return out
}
