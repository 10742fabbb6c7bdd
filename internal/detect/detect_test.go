package detect

import (
	"errors"
	"image"
	"image/color"
	"sort"
	"testing"

	"sandquake/internal/coords"
	"sandquake/internal/simerr"
	"sandquake/internal/tabletop"
)

func sortCoords(set []coords.Coordinate) []coords.Coordinate {
	out := coords.Clone(set)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

func equalSets(a, b []coords.Coordinate) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = sortCoords(a), sortCoords(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func maskFromRows(rows ...string) *binary {
	b := &binary{w: len(rows[0]), h: len(rows), fg: make([]bool, len(rows[0])*len(rows))}
	for y, row := range rows {
		for x, ch := range row {
			b.fg[y*b.w+x] = ch == '#'
		}
	}
	return b
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"threshold too high", func(c *Config) { c.ShapeThreshold = 256 }, false},
		{"negative circle threshold", func(c *Config) { c.CircleThreshold = -1 }, false},
		{"inverted vertex range", func(c *Config) { c.MinVertices, c.MaxVertices = 10, 9 }, false},
		{"zero epsilon", func(c *Config) { c.ApproxEpsilon = 0 }, false},
		{"inverted radius", func(c *Config) { c.MinRadius, c.MaxRadius = 8, 4 }, false},
		{"too many sectors", func(c *Config) { c.MinSectors = 13 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, simerr.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestContoursTraceOuterBorder(t *testing.T) {
	mask := maskFromRows(
		"......",
		".###..",
		".###..",
		".###..",
		"......",
	)
	rings := contours(mask)
	if len(rings) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(rings))
	}
	ring := rings[0]
	if ring[0] != ring[len(ring)-1] {
		t.Fatal("ring is not closed")
	}
	// 3x3 block has 8 border pixels.
	if got := len(ring) - 1; got != 8 {
		t.Fatalf("expected 8 border points, got %d: %v", got, ring)
	}
	s := describe(ring, 0.01)
	if s.area != 4 {
		t.Errorf("area = %v, want 4", s.area)
	}
	if s.centroid != coords.Pt(2, 2) {
		t.Errorf("centroid = %v, want (2,2)", s.centroid)
	}
	if s.vertices != 4 {
		t.Errorf("vertices = %d, want 4", s.vertices)
	}
}

func TestContoursSeparateComponents(t *testing.T) {
	mask := maskFromRows(
		"#....#",
		"......",
		"..##..",
		"......",
		"#.....",
	)
	if got := len(contours(mask)); got != 4 {
		t.Fatalf("expected 4 components, got %d", got)
	}
	diag := maskFromRows(
		"#..",
		".#.",
		"..#",
	)
	if got := len(contours(diag)); got != 1 {
		t.Fatalf("diagonal pixels are 8-connected, got %d components", got)
	}
}

func TestZeroAreaContourCentroid(t *testing.T) {
	mask := maskFromRows(
		".......",
		"..####.",
		".......",
	)
	rings := contours(mask)
	if len(rings) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(rings))
	}
	s := describe(rings[0], 0.01)
	if s.area != 0 || s.centroid != coords.Pt(0, 0) {
		t.Fatalf("zero-area contour: area %v centroid %v", s.area, s.centroid)
	}
	single := describe(contours(maskFromRows("...", ".#.", "..."))[0], 0.01)
	if single.centroid != coords.Pt(0, 0) {
		t.Fatalf("single pixel centroid = %v, want (0,0)", single.centroid)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 60})
	img.SetGray(1, 0, color.Gray{Y: 61})
	m := thresholdMask(img, 60)
	if m.fg[0] || !m.fg[1] {
		t.Fatalf("threshold 60: got %v, want [false true]", m.fg)
	}
	if m := thresholdMask(img, 255); m.fg[0] || m.fg[1] {
		t.Fatal("threshold 255 must reject everything")
	}
}

func TestDetectCirclesSingleDisc(t *testing.T) {
	s := tabletop.NewScene(80, 80)
	s.Discs = []tabletop.Disc{{Center: coords.Pt(40, 40), Radius: 6}}
	res, err := DetectCircles(s.Render(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Found || len(res.Coords) != 1 || res.Coords[0] != coords.Pt(40, 40) {
		t.Fatalf("got %v %v, want one circle at (40,40)", res.Status, res.Coords)
	}
}

func TestDetectCirclesEmpty(t *testing.T) {
	res, err := DetectCircles(tabletop.NewScene(60, 60).Render(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Empty || len(res.Coords) != 0 {
		t.Fatalf("blank table: got %v %v", res.Status, res.Coords)
	}
	if !res.Ran() {
		t.Fatal("empty result must still report that detection ran")
	}
	var zero Result
	if zero.Ran() {
		t.Fatal("zero Result must report NotRun")
	}
}

func TestContourQualifies(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		vertices int
		area     float64
		want     bool
	}{
		{8, 500, false},
		{9, 500, true},
		{12, 500, true},
		{22, 500, true},
		{23, 500, false},
		{12, 30, false},
		{12, 30.5, true},
	}
	for _, tc := range tests {
		s := contourShape{vertices: tc.vertices, area: tc.area}
		if got := s.qualifies(cfg); got != tc.want {
			t.Errorf("vertices=%d area=%v: got %v, want %v", tc.vertices, tc.area, got, tc.want)
		}
	}
}

func TestDetectPolygonsRejectsTinyPieces(t *testing.T) {
	s := tabletop.NewScene(60, 60)
	s.Blocks = []tabletop.Block{{Center: coords.Pt(30, 30), Radius: 2, Sides: 12}}
	res, err := DetectPolygons(s.Render(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Empty {
		t.Fatalf("tiny block must not qualify, got %v", res.Coords)
	}
}

func TestFilterSilhouettes(t *testing.T) {
	polygons := []coords.Coordinate{coords.Pt(50, 50), coords.Pt(58, 50), coords.Pt(61, 50), coords.Pt(100, 20)}
	circles := []coords.Coordinate{coords.Pt(50, 50)}
	got := filterSilhouettes(polygons, circles, 10)
	want := []coords.Coordinate{coords.Pt(61, 50), coords.Pt(100, 20)}
	if !equalSets(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := filterSilhouettes(polygons, nil, 10); !equalSets(got, polygons) {
		t.Fatalf("without circles all polygons survive, got %v", got)
	}
}

func TestClassifyReferenceScene(t *testing.T) {
	scene := tabletop.ReferenceScene()
	got, err := Classify(scene.Render(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !equalSets(got.Sources.Coords, scene.SourceCoords()) {
		t.Errorf("sources = %v, want %v", got.Sources.Coords, scene.SourceCoords())
	}
	if !equalSets(got.Obstacles.Coords, scene.ObstacleCoords()) {
		t.Errorf("obstacles = %v, want %v", got.Obstacles.Coords, scene.ObstacleCoords())
	}
}

func TestFillMask(t *testing.T) {
	d, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m := d.FillMask(tabletop.ReferenceScene().Render())
	if m.W != 200 || m.H != 200 {
		t.Fatalf("mask size %dx%d", m.W, m.H)
	}
	// Within FillRadius of a disc but outside the disc itself.
	if m.At(50, 65) {
		t.Error("cell near a round piece must be covered")
	}
	if m.At(100, 20) {
		t.Error("block centre must be covered")
	}
	if !m.At(10, 190) {
		t.Error("open sand must be free")
	}
}
