package detect

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"sandquake/internal/coords"
)

// contourShape summarises one traced border.
type contourShape struct {
	centroid coords.Coordinate
	area     float64
	vertices int
}

func describe(ring orb.Ring, epsilon float64) contourShape {
	c, area := planar.CentroidArea(ring)
	area = math.Abs(area)
	var centroid coords.Coordinate
	if area > 0 {
		centroid = coords.Pt(int(math.Round(c[0])), int(math.Round(c[1])))
	}
	return contourShape{centroid: centroid, area: area, vertices: approxVertices(ring, epsilon)}
}

func (s contourShape) qualifies(cfg Config) bool {
	return s.vertices >= cfg.MinVertices && s.vertices <= cfg.MaxVertices && s.area > cfg.MinArea
}

// approxVertices counts the vertices left after Douglas-Peucker with a
// tolerance proportional to the perimeter.
func approxVertices(ring orb.Ring, epsilon float64) int {
	if len(ring) < 4 {
		return len(ring) - 1
	}
	simplified := simplify.DouglasPeucker(epsilon * planar.Length(ring)).Ring(ring.Clone())
	n := len(simplified)
	if n > 1 && simplified[0] == simplified[n-1] {
		n--
	}
	return n
}

// DetectPolygons returns the centroids of contours whose approximated polygon
// has between MinVertices and MaxVertices corners and whose area exceeds
// MinArea.
func DetectPolygons(img image.Image, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	return newResult(detectPolygons(img, cfg)), nil
}

func detectPolygons(img image.Image, cfg Config) []coords.Coordinate {
	var out []coords.Coordinate
	for _, ring := range contours(shapeMask(img, cfg)) {
		if s := describe(ring, cfg.ApproxEpsilon); s.qualifies(cfg) {
			out = append(out, s.centroid)
		}
	}
	return out
}
