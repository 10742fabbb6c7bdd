// Package tabletop produces the inputs a sand table would hand the detector:
// camera-style images with pieces placed on them and height maps, either
// loaded from disk or synthesised for demos and tests.
package tabletop

import (
	"image"
	"image/color"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"sandquake/internal/coords"
)

// Default intensities used when rendering synthetic scenes.
var (
	SandColor  = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	PieceColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Disc is a round piece, detected as a wave source.
type Disc struct {
	Center coords.Coordinate
	Radius int
}

// Block is a regular polygonal piece, detected as an obstacle.
type Block struct {
	Center   coords.Coordinate
	Radius   float64
	Sides    int
	Rotation float64
}

// Ring returns the closed outline of the block.
func (b Block) Ring() orb.Ring {
	ring := make(orb.Ring, 0, b.Sides+1)
	for i := 0; i < b.Sides; i++ {
		a := b.Rotation + 2*math.Pi*float64(i)/float64(b.Sides)
		ring = append(ring, orb.Point{
			float64(b.Center.X) + b.Radius*math.Cos(a),
			float64(b.Center.Y) + b.Radius*math.Sin(a),
		})
	}
	return append(ring, ring[0])
}

// Scene is a table top with pieces on it.
type Scene struct {
	Width, Height int
	Discs         []Disc
	Blocks        []Block
	Sand          color.RGBA
	Piece         color.RGBA
}

// NewScene returns an empty scene using the default colours.
func NewScene(width, height int) *Scene {
	return &Scene{Width: width, Height: height, Sand: SandColor, Piece: PieceColor}
}

// Render rasterises the scene. A pixel belongs to a piece when its centre
// lies inside the piece outline.
func (s *Scene) Render() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = s.Sand.R
		pix[i+1] = s.Sand.G
		pix[i+2] = s.Sand.B
		pix[i+3] = 255
	}
	for _, d := range s.Discs {
		r2 := d.Radius * d.Radius
		for y := d.Center.Y - d.Radius; y <= d.Center.Y+d.Radius; y++ {
			for x := d.Center.X - d.Radius; x <= d.Center.X+d.Radius; x++ {
				dx, dy := x-d.Center.X, y-d.Center.Y
				if dx*dx+dy*dy <= r2 {
					s.paint(img, x, y)
				}
			}
		}
	}
	for _, b := range s.Blocks {
		ring := b.Ring()
		bound := ring.Bound()
		for y := int(math.Floor(bound.Min[1])); y <= int(math.Ceil(bound.Max[1])); y++ {
			for x := int(math.Floor(bound.Min[0])); x <= int(math.Ceil(bound.Max[0])); x++ {
				if planar.RingContains(ring, orb.Point{float64(x), float64(y)}) {
					s.paint(img, x, y)
				}
			}
		}
	}
	return img
}

func (s *Scene) paint(img *image.RGBA, x, y int) {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return
	}
	off := img.PixOffset(x, y)
	img.Pix[off] = s.Piece.R
	img.Pix[off+1] = s.Piece.G
	img.Pix[off+2] = s.Piece.B
	img.Pix[off+3] = 255
}

// SourceCoords lists the disc centres.
func (s *Scene) SourceCoords() []coords.Coordinate {
	out := make([]coords.Coordinate, 0, len(s.Discs))
	for _, d := range s.Discs {
		out = append(out, d.Center)
	}
	return out
}

// ObstacleCoords lists the block centres.
func (s *Scene) ObstacleCoords() []coords.Coordinate {
	out := make([]coords.Coordinate, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		out = append(out, b.Center)
	}
	return out
}

// ReferenceScene is the two-sources-one-obstacle layout used to check the
// whole pipeline: discs at (50,50) and (150,150), a 12-sided block at (100,20).
func ReferenceScene() *Scene {
	s := NewScene(200, 200)
	s.Discs = []Disc{
		{Center: coords.Pt(50, 50), Radius: 6},
		{Center: coords.Pt(150, 150), Radius: 6},
	}
	s.Blocks = []Block{
		{Center: coords.Pt(100, 20), Radius: 12.6, Sides: 12},
	}
	return s
}
