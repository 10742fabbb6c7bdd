package detect

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// binary is a foreground mask in row-major order.
type binary struct {
	w, h int
	fg   []bool
}

func (b *binary) at(x, y int) bool {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return false
	}
	return b.fg[y*b.w+x]
}

// shapeMask prepares an image for contour extraction: an edge-preserving
// median pass, intensity conversion, a light blur and the binary threshold.
func shapeMask(img image.Image, cfg Config) *binary {
	smoothed := effect.Median(img, cfg.MedianRadius)
	return thresholdMask(blur.Gaussian(effect.Grayscale(smoothed), cfg.BlurRadius), cfg.ShapeThreshold)
}

// circleMask prepares an image for the circle transform.
func circleMask(img image.Image, cfg Config) *binary {
	return thresholdMask(blur.Gaussian(effect.Grayscale(img), cfg.BlurRadius), cfg.CircleThreshold)
}

// thresholdMask keeps pixels strictly brighter than threshold.
func thresholdMask(img image.Image, threshold int) *binary {
	b := img.Bounds()
	out := &binary{w: b.Dx(), h: b.Dy(), fg: make([]bool, b.Dx()*b.Dy())}
	if threshold >= 255 {
		return out
	}
	gray := segment.Threshold(img, uint8(threshold+1))
	for y := 0; y < out.h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+out.w]
		for x, v := range row {
			out.fg[y*out.w+x] = v != 0
		}
	}
	return out
}
