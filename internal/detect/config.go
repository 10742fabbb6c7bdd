// Package detect finds the pieces standing on the sand table. Blocky pieces
// are reported as obstacles, round pieces as wave sources.
package detect

import "sandquake/internal/simerr"

// Config carries every tuning knob of the detector. It is passed by value and
// never mutated by the detector, so one Config can serve concurrent callers.
type Config struct {
	// ShapeThreshold binarises the smoothed image for contour extraction.
	// Pixels strictly brighter than the threshold are foreground.
	ShapeThreshold int `json:"shape_threshold"`
	// CircleThreshold binarises the image for the circle transform.
	CircleThreshold int `json:"circle_threshold"`
	// MinArea is the enclosed area a contour must exceed to count as a piece.
	MinArea float64 `json:"min_area"`
	// MinVertices and MaxVertices bound the approximated polygon, inclusive.
	MinVertices int `json:"min_vertices"`
	MaxVertices int `json:"max_vertices"`
	// ApproxEpsilon is the Douglas-Peucker tolerance as a fraction of the
	// contour perimeter.
	ApproxEpsilon float64 `json:"approx_epsilon"`

	MedianRadius float64 `json:"median_radius"`
	BlurRadius   float64 `json:"blur_radius"`

	// Circle transform parameters.
	MinRadius            int     `json:"min_radius"`
	MaxRadius            int     `json:"max_radius"`
	AccumulatorThreshold int     `json:"accumulator_threshold"`
	MinEdgeSupport       float64 `json:"min_edge_support"`
	MinSectors           int     `json:"min_sectors"`

	// CircleMergeDistance merges circle centres closer than this.
	CircleMergeDistance float64 `json:"circle_merge_distance"`
	// SilhouetteDistance drops polygons lying this close to a circle centre.
	SilhouetteDistance float64 `json:"silhouette_distance"`
	// FillRadius is the disc painted over each circle by FillMask.
	FillRadius int `json:"fill_radius"`
}

// DefaultConfig returns the tuning used on the physical table.
func DefaultConfig() Config {
	return Config{
		ShapeThreshold:       60,
		CircleThreshold:      60,
		MinArea:              30,
		MinVertices:          9,
		MaxVertices:          22,
		ApproxEpsilon:        0.01,
		MedianRadius:         1,
		BlurRadius:           2,
		MinRadius:            4,
		MaxRadius:            8,
		AccumulatorThreshold: 8,
		MinEdgeSupport:       0.5,
		MinSectors:           9,
		CircleMergeDistance:  5,
		SilhouetteDistance:   10,
		FillRadius:           20,
	}
}

// Validate rejects configurations the detector cannot run with.
func (c Config) Validate() error {
	switch {
	case c.ShapeThreshold < 0 || c.ShapeThreshold > 255:
		return simerr.Config("shape_threshold", "must be within [0,255], got %d", c.ShapeThreshold)
	case c.CircleThreshold < 0 || c.CircleThreshold > 255:
		return simerr.Config("circle_threshold", "must be within [0,255], got %d", c.CircleThreshold)
	case c.MinArea < 0:
		return simerr.Config("min_area", "must not be negative, got %v", c.MinArea)
	case c.MinVertices < 3 || c.MaxVertices < c.MinVertices:
		return simerr.Config("vertices", "invalid range [%d,%d]", c.MinVertices, c.MaxVertices)
	case c.ApproxEpsilon <= 0:
		return simerr.Config("approx_epsilon", "must be positive, got %v", c.ApproxEpsilon)
	case c.MinRadius < 1 || c.MaxRadius < c.MinRadius:
		return simerr.Config("radius", "invalid range [%d,%d]", c.MinRadius, c.MaxRadius)
	case c.AccumulatorThreshold < 1:
		return simerr.Config("accumulator_threshold", "must be positive, got %d", c.AccumulatorThreshold)
	case c.MinSectors < 1 || c.MinSectors > sectorCount:
		return simerr.Config("min_sectors", "must be within [1,%d], got %d", sectorCount, c.MinSectors)
	case c.CircleMergeDistance < 0 || c.SilhouetteDistance < 0:
		return simerr.Config("distance", "merge and silhouette distances must not be negative")
	}
	return nil
}
