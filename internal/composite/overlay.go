// Package composite blends wavefield frames over the table image for the
// projector and for exported stills.
package composite

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"sandquake/internal/frames"
	"sandquake/internal/simerr"
)

// Shape policies reported by Overlay.
const (
	PolicyDirect    = "direct"
	PolicyTranspose = "transpose"
	PolicyResample  = "resample"
)

// Options tune the blend.
type Options struct {
	// Alpha is the opacity of the wave layer in blend mode.
	Alpha float64
	// Limit is the amplitude mapped to full blue or full red.
	Limit float64
	// Masked switches to an opaque wave layer that hides only quiet cells,
	// those with |value| <= Threshold.
	Masked    bool
	Threshold float64
}

// DefaultOptions matches the projector setup.
func DefaultOptions() Options {
	return Options{Alpha: 0.4, Limit: 0.1, Threshold: 0.01}
}

// Compositor renders cube frames over a fixed table image.
type Compositor struct {
	opts Options
	cmap *Colormap
}

// New validates opts and prepares the colormap.
func New(opts Options) (*Compositor, error) {
	if opts.Alpha < 0 || opts.Alpha > 1 {
		return nil, simerr.Config("alpha", "must be within [0,1], got %v", opts.Alpha)
	}
	if opts.Threshold < 0 {
		return nil, simerr.Config("mask_threshold", "must not be negative, got %v", opts.Threshold)
	}
	cmap, err := NewSeismic(opts.Limit)
	if err != nil {
		return nil, simerr.Config("limit", "%v", err)
	}
	return &Compositor{opts: opts, cmap: cmap}, nil
}

// Layer renders frame i of cube as a premultiplied RGBA wave layer at cube
// resolution. transpose swaps rows and columns.
func (c *Compositor) Layer(cube *frames.Cube, i int, transpose bool) *image.RGBA {
	w, h := cube.Width, cube.Height
	if transpose {
		w, h = h, w
	}
	layer := image.NewRGBA(image.Rect(0, 0, w, h))
	alpha := c.opts.Alpha
	if c.opts.Masked {
		alpha = 1
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v float64
			if transpose {
				v = cube.At(i, y, x)
			} else {
				v = cube.At(i, x, y)
			}
			if c.opts.Masked && math.Abs(v) <= c.opts.Threshold {
				continue
			}
			col := c.cmap.At(v)
			off := layer.PixOffset(x, y)
			layer.Pix[off] = uint8(float64(col.R)*alpha + 0.5)
			layer.Pix[off+1] = uint8(float64(col.G)*alpha + 0.5)
			layer.Pix[off+2] = uint8(float64(col.B)*alpha + 0.5)
			layer.Pix[off+3] = uint8(255*alpha + 0.5)
		}
	}
	return layer
}

// Overlay composites frame i of cube over topo. When the shapes disagree the
// layer is transposed if that fixes the mismatch, or else resampled to the
// image size; in that case the image comes back together with a
// *simerr.ShapeMismatchWarning.
func (c *Compositor) Overlay(topo image.Image, cube *frames.Cube, i int) (*image.RGBA, error) {
	if i < 0 || i >= cube.Len() {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, cube.Len())
	}
	b := topo.Bounds()
	tw, th := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(dst, dst.Bounds(), topo, b.Min, draw.Src)

	policy := PolicyDirect
	switch {
	case cube.Width == tw && cube.Height == th:
	case cube.Height == tw && cube.Width == th:
		policy = PolicyTranspose
	default:
		policy = PolicyResample
	}

	layer := c.Layer(cube, i, policy == PolicyTranspose)
	if policy == PolicyResample {
		scaled := image.NewRGBA(dst.Bounds())
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), layer, layer.Bounds(), draw.Src, nil)
		layer = scaled
	}
	draw.Draw(dst, dst.Bounds(), layer, image.Point{}, draw.Over)

	if policy == PolicyResample {
		return dst, &simerr.ShapeMismatchWarning{
			WantW: tw, WantH: th, GotW: cube.Width, GotH: cube.Height, Policy: policy,
		}
	}
	return dst, nil
}

// Blank returns an opaque image of the given colour, used when no table
// photograph is available.
func Blank(w, h int, col color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
	return img
}
