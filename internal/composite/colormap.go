package composite

import (
	"fmt"
	"image/color"

	"github.com/mazznoer/colorgrad"
)

// Colormap maps wave amplitude onto the diverging blue-white-red scale used
// for seismic sections.
type Colormap struct {
	grad     colorgrad.Gradient
	min, max float64
}

// NewSeismic builds the colormap over [-limit, limit]. Values outside the
// range saturate.
func NewSeismic(limit float64) (*Colormap, error) {
	if !(limit > 0) {
		return nil, fmt.Errorf("colour limit must be positive, got %v", limit)
	}
	grad, err := colorgrad.NewGradient().
		HtmlColors("#00004c", "#0000ff", "#ffffff", "#ff0000", "#800000").
		Domain(-limit, limit).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build seismic gradient: %w", err)
	}
	return &Colormap{grad: grad, min: -limit, max: limit}, nil
}

// At returns the opaque colour for amplitude v.
func (c *Colormap) At(v float64) color.RGBA {
	if v < c.min {
		v = c.min
	}
	if v > c.max {
		v = c.max
	}
	var col color.Color = c.grad.At(v)
	r, g, b, _ := col.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
}
