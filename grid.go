package main

import "sandquake/internal/coords"

// clampCoord constrains v to lie within the inclusive [min, max] range.
func clampCoord(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// toScreen maps a grid cell onto the displayed table image.
func (g *Game) toScreen(c coords.Coordinate) (int, int) {
	gw, gh := g.res.Model.Dims()
	s := coords.Scale(c, gw, gh, g.width, g.height)
	return clampCoord(s.X, 0, g.width-1), clampCoord(s.Y, 0, g.height-1)
}
