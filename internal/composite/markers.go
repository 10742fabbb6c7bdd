package composite

import (
	"image"
	"image/color"

	"github.com/crazy3lf/colorconv"

	"sandquake/internal/coords"
)

// Marker hues in degrees.
const (
	sourceHue   = 120
	obstacleHue = 30
)

func hsv(h, s, v float64) color.RGBA {
	r, g, b, err := colorconv.HSVToRGB(h, s, v)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// DrawMarkers outlines sources with rings and covers obstacles with squares
// so detections can be checked against the table.
func DrawMarkers(img *image.RGBA, sources, obstacles []coords.Coordinate) {
	green := hsv(sourceHue, 1, 1)
	orange := hsv(obstacleHue, 1, 1)
	for _, c := range sources {
		ring(img, c, 4, 7, green)
	}
	for _, c := range obstacles {
		for y := c.Y - 5; y <= c.Y+5; y++ {
			for x := c.X - 5; x <= c.X+5; x++ {
				set(img, x, y, orange)
			}
		}
	}
}

// DrawDots paints filled white discs, the projector's pointer style.
func DrawDots(img *image.RGBA, points []coords.Coordinate) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for _, c := range points {
		ring(img, c, 0, 6, white)
	}
}

// ring fills cells whose distance from c lies in [inner, outer].
func ring(img *image.RGBA, c coords.Coordinate, inner, outer int, col color.RGBA) {
	for y := c.Y - outer; y <= c.Y+outer; y++ {
		for x := c.X - outer; x <= c.X+outer; x++ {
			dx, dy := x-c.X, y-c.Y
			d2 := dx*dx + dy*dy
			if d2 >= inner*inner && d2 <= outer*outer {
				set(img, x, y, col)
			}
		}
	}
}

func set(img *image.RGBA, x, y int, col color.RGBA) {
	if !(image.Point{X: x, Y: y}.In(img.Rect)) {
		return
	}
	img.SetRGBA(x, y, col)
}
