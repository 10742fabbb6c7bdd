package tabletop

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/aquilax/go-perlin"
	"gonum.org/v1/gonum/mat"
)

// Perlin parameters for synthetic sand.
const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 3
	perlinScale   = 0.02
)

// GradientHeightMap returns a height map rising from the top-left corner to
// the bottom-right corner.
func GradientHeightMap(width, height int) *mat.Dense {
	m := mat.NewDense(height, width, nil)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Set(y, x, float64(x+y))
		}
	}
	return m
}

// PerlinHeightMap returns rolling dunes generated from seed. Equal seeds give
// equal maps.
func PerlinHeightMap(width, height int, seed int64) *mat.Dense {
	p := perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)
	m := mat.NewDense(height, width, nil)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Set(y, x, p.Noise2D(float64(x)*perlinScale, float64(y)*perlinScale))
		}
	}
	return m
}

// LuminanceHeightMap treats image brightness as elevation. The scanner
// encodes height maps as grayscale images, brighter being higher.
func LuminanceHeightMap(img image.Image) *mat.Dense {
	b := img.Bounds()
	m := mat.NewDense(b.Dy(), b.Dx(), nil)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			m.Set(y, x, float64(g.Y)/0xffff)
		}
	}
	return m
}

// LoadHeightMap reads an image file and converts it with LuminanceHeightMap.
func LoadHeightMap(path string) (*mat.Dense, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open height map: %w", err)
	}
	return LuminanceHeightMap(img), nil
}

// LoadImage reads a table photograph.
func LoadImage(path string) (image.Image, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table image: %w", err)
	}
	return img, nil
}

// SaveImage writes img as PNG.
func SaveImage(path string, img image.Image) error {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
