package tabletop

import (
	"math"
	"math/rand"

	"sandquake/internal/coords"
)

// Layout controls random piece placement.
type Layout struct {
	Discs  int
	Blocks int
	// Margin keeps pieces away from the table edge.
	Margin int
	// Exclusion is the minimum distance between two piece centres.
	Exclusion float64
	// Attempts bounds the rejection sampling per piece.
	Attempts int
}

// DefaultLayout places two round pieces and three blocks.
func DefaultLayout() Layout {
	return Layout{Discs: 2, Blocks: 3, Margin: 20, Exclusion: 40, Attempts: 200}
}

// RandomScene scatters pieces over a width x height table. Pieces that cannot
// be placed after Attempts tries are skipped, so crowded tables come back
// with fewer pieces than requested.
func RandomScene(width, height int, layout Layout, rng *rand.Rand) *Scene {
	s := NewScene(width, height)
	var taken []coords.Coordinate
	place := func() (coords.Coordinate, bool) {
		spanX := width - 2*layout.Margin
		spanY := height - 2*layout.Margin
		if spanX <= 0 || spanY <= 0 {
			return coords.Coordinate{}, false
		}
		for a := 0; a < layout.Attempts; a++ {
			c := coords.Pt(layout.Margin+rng.Intn(spanX), layout.Margin+rng.Intn(spanY))
			if _, d := coords.Nearest(c, taken); d < layout.Exclusion {
				continue
			}
			taken = append(taken, c)
			return c, true
		}
		return coords.Coordinate{}, false
	}
	for i := 0; i < layout.Discs; i++ {
		if c, ok := place(); ok {
			s.Discs = append(s.Discs, Disc{Center: c, Radius: 6})
		}
	}
	for i := 0; i < layout.Blocks; i++ {
		if c, ok := place(); ok {
			s.Blocks = append(s.Blocks, Block{
				Center:   c,
				Radius:   11 + 3*rng.Float64(),
				Sides:    10 + rng.Intn(5),
				Rotation: rng.Float64() * 2 * math.Pi,
			})
		}
	}
	return s
}
