package detect

import (
	"image"
	"log/slog"

	"sandquake/internal/coords"
)

// Detector classifies table images with a fixed configuration.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and returns a Detector. A nil logger falls back to
// slog.Default.
func New(cfg Config, logger *slog.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger}, nil
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() Config { return d.cfg }

// Classify splits the pieces on img into obstacles and sources. Polygon
// silhouettes lying within SilhouetteDistance of a circle centre belong to
// that circle and are dropped. Without circles every polygon is kept.
func (d *Detector) Classify(img image.Image) Classification {
	polygons := detectPolygons(img, d.cfg)
	circles := detectCircles(img, d.cfg)
	obstacles := filterSilhouettes(polygons, circles, d.cfg.SilhouetteDistance)
	d.logger.Debug("classified table image",
		"polygons", len(polygons), "circles", len(circles), "obstacles", len(obstacles))
	return Classification{Obstacles: newResult(obstacles), Sources: newResult(circles)}
}

// Classify is a one-shot helper around New and Detector.Classify.
func Classify(img image.Image, cfg Config) (Classification, error) {
	d, err := New(cfg, nil)
	if err != nil {
		return Classification{}, err
	}
	return d.Classify(img), nil
}

func filterSilhouettes(polygons, circles []coords.Coordinate, distance float64) []coords.Coordinate {
	if len(circles) == 0 {
		return coords.Clone(polygons)
	}
	var out []coords.Coordinate
	for _, p := range polygons {
		if _, d := coords.Nearest(p, circles); d > distance {
			out = append(out, p)
		}
	}
	return out
}

// Mask marks the free cells of a table image, row-major.
type Mask struct {
	W, H int
	Free []bool
}

// At reports whether (x, y) is free.
func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Free[y*m.W+x]
}

// FillMask returns the cells not covered by any piece. Round pieces are
// blotted out with a disc of FillRadius so their shadows count as covered.
func (d *Detector) FillMask(img image.Image) Mask {
	bin := shapeMask(img, d.cfg)
	for _, c := range detectCircles(img, d.cfg) {
		r := d.cfg.FillRadius
		for y := c.Y - r; y <= c.Y+r; y++ {
			for x := c.X - r; x <= c.X+r; x++ {
				dx, dy := x-c.X, y-c.Y
				if x >= 0 && y >= 0 && x < bin.w && y < bin.h && dx*dx+dy*dy <= r*r {
					bin.fg[y*bin.w+x] = true
				}
			}
		}
	}
	m := Mask{W: bin.w, H: bin.h, Free: make([]bool, len(bin.fg))}
	for i, v := range bin.fg {
		m.Free[i] = !v
	}
	return m
}
