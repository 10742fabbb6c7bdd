package composite

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"sandquake/internal/coords"
	"sandquake/internal/frames"
	"sandquake/internal/simerr"
)

func cubeOf(w, h int, values ...float64) *frames.Cube {
	return &frames.Cube{Width: w, Height: h, Stride: 1, Indices: []int{0}, Frames: [][]float64{values}}
}

func TestColormapEnds(t *testing.T) {
	cm, err := NewSeismic(0.1)
	if err != nil {
		t.Fatal(err)
	}
	neg, mid, pos := cm.At(-1), cm.At(0), cm.At(1)
	if neg.B <= neg.R {
		t.Errorf("negative amplitude should be blue, got %v", neg)
	}
	if pos.R <= pos.B {
		t.Errorf("positive amplitude should be red, got %v", pos)
	}
	if mid.R < 240 || mid.G < 240 || mid.B < 240 {
		t.Errorf("zero should be near white, got %v", mid)
	}
	if cm.At(5) != cm.At(0.1) {
		t.Error("values beyond the limit must saturate")
	}
	if _, err := NewSeismic(0); err == nil {
		t.Error("zero limit must fail")
	}
}

func TestOverlayBlend(t *testing.T) {
	c, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	topo := Blank(2, 1, color.RGBA{A: 255})
	out, err := c.Overlay(topo, cubeOf(2, 1, 0, 1), 0)
	if err != nil {
		t.Fatal(err)
	}
	// Black under a 40% white layer.
	if got := out.RGBAAt(0, 0); got.R < 95 || got.R > 108 {
		t.Errorf("zero amplitude blend = %v", got)
	}
	if got := out.RGBAAt(1, 0); got.R <= got.B {
		t.Errorf("positive amplitude should tint red, got %v", got)
	}
}

func TestOverlayMasked(t *testing.T) {
	opts := DefaultOptions()
	opts.Masked = true
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	sand := color.RGBA{R: 20, G: 30, B: 40, A: 255}
	out, err := c.Overlay(Blank(3, 1, sand), cubeOf(3, 1, 0.005, -0.01, 0.5), 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.RGBAAt(0, 0) != sand || out.RGBAAt(1, 0) != sand {
		t.Errorf("quiet cells must show the table: %v %v", out.RGBAAt(0, 0), out.RGBAAt(1, 0))
	}
	if got, want := out.RGBAAt(2, 0), c.cmap.At(0.5); got != want {
		t.Errorf("loud cell = %v, want opaque %v", got, want)
	}
}

func TestOverlayShapePolicies(t *testing.T) {
	c, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	// 3 wide, 2 tall image; cube stored 2 wide, 3 tall.
	topo := Blank(3, 2, color.RGBA{A: 255})
	cube := cubeOf(2, 3, 1, 0, 0, 0, 0, 0)
	out, err := c.Overlay(topo, cube, 0)
	if err != nil {
		t.Fatalf("transposable shapes must not warn: %v", err)
	}
	if got := out.RGBAAt(0, 0); got.R <= got.B {
		t.Errorf("transposed hot cell should stay at the origin, got %v", got)
	}

	_, err = c.Overlay(Blank(8, 8, color.Black), cubeOf(2, 3, 1, 0, 0, 0, 0, 0), 0)
	var warn *simerr.ShapeMismatchWarning
	if !errors.As(err, &warn) || warn.Policy != PolicyResample {
		t.Fatalf("expected resample warning, got %v", err)
	}
	if _, err := c.Overlay(topo, cube, 3); err == nil {
		t.Fatal("out of range frame must fail")
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	for _, opts := range []Options{{Alpha: 2, Limit: 0.1}, {Alpha: 0.4, Limit: 0}, {Alpha: 0.4, Limit: 0.1, Threshold: -1}} {
		if _, err := New(opts); !errors.Is(err, simerr.ErrConfiguration) {
			t.Errorf("%+v: got %v", opts, err)
		}
	}
}

func TestDrawMarkers(t *testing.T) {
	img := Blank(40, 40, color.Black)
	DrawMarkers(img, []coords.Coordinate{coords.Pt(10, 10)}, []coords.Coordinate{coords.Pt(30, 30)})
	if got := img.RGBAAt(10, 10); got != (color.RGBA{A: 255}) {
		t.Errorf("ring centre must stay untouched, got %v", got)
	}
	if got := img.RGBAAt(15, 10); got.G != 255 || got.R != 0 {
		t.Errorf("ring cell = %v, want green", got)
	}
	if got := img.RGBAAt(30, 30); got.R != 255 || got.B != 0 {
		t.Errorf("obstacle square = %v, want orange", got)
	}
	DrawDots(img, []coords.Coordinate{coords.Pt(0, 0)})
	if got := img.RGBAAt(0, 0); got.R != 255 || got.G != 255 || got.B != 255 {
		t.Errorf("dot = %v", got)
	}
}

func TestWriteFrames(t *testing.T) {
	c, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	cube := &frames.Cube{Width: 2, Height: 2, Stride: 1, Indices: []int{0, 1},
		Frames: [][]float64{{0, 0, 0, 0}, {1, -1, 0.5, 0}}}
	paths, err := c.WriteFrames(t.TempDir(), Blank(2, 2, color.Black), cube)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("wrote %d frames", len(paths))
	}
	f, err := os.Open(paths[1])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("bounds %v", img.Bounds())
	}
}
