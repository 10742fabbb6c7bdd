package detect

import (
	"image"
	"math"

	"sandquake/internal/coords"
)

const sectorCount = 12

// DetectCircles runs a gradient Hough transform over the binarised image and
// returns the merged centres of round pieces.
func DetectCircles(img image.Image, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	return newResult(detectCircles(img, cfg)), nil
}

type edgePixel struct {
	x, y int
}

func detectCircles(img image.Image, cfg Config) []coords.Coordinate {
	mask := circleMask(img, cfg)
	w, h := mask.w, mask.h
	if w == 0 || h == 0 {
		return nil
	}

	edges := make([]edgePixel, 0, 256)
	acc := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask.at(x, y) || (mask.at(x-1, y) && mask.at(x+1, y) && mask.at(x, y-1) && mask.at(x, y+1)) {
				continue
			}
			edges = append(edges, edgePixel{x, y})
			gx, gy := sobel(mask, x, y)
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			ux, uy := gx/mag, gy/mag
			for r := cfg.MinRadius; r <= cfg.MaxRadius; r++ {
				for _, sign := range [2]float64{-1, 1} {
					cx := int(math.Round(float64(x) + sign*float64(r)*ux))
					cy := int(math.Round(float64(y) + sign*float64(r)*uy))
					if cx >= 0 && cy >= 0 && cx < w && cy < h {
						acc[cy*w+cx]++
					}
				}
			}
		}
	}

	smooth := boxSum(acc, w, h)
	var centres []coords.Coordinate
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := smooth[y*w+x]
			if v < int32(cfg.AccumulatorThreshold) || !localMax(smooth, w, h, x, y, cfg.MinRadius) {
				continue
			}
			c := refine(acc, w, h, x, y)
			if verify(edges, c, cfg) {
				centres = append(centres, c)
			}
		}
	}
	return coords.Dedupe(centres, cfg.CircleMergeDistance)
}

// sobel returns the intensity gradient of the mask at (x, y).
func sobel(mask *binary, x, y int) (float64, float64) {
	v := func(dx, dy int) float64 {
		if mask.at(x+dx, y+dy) {
			return 1
		}
		return 0
	}
	gx := (v(1, -1) + 2*v(1, 0) + v(1, 1)) - (v(-1, -1) + 2*v(-1, 0) + v(-1, 1))
	gy := (v(-1, 1) + 2*v(0, 1) + v(1, 1)) - (v(-1, -1) + 2*v(0, -1) + v(1, -1))
	return gx, gy
}

func boxSum(acc []int32, w, h int) []int32 {
	out := make([]int32, len(acc))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s int32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx >= 0 && ny >= 0 && nx < w && ny < h {
						s += acc[ny*w+nx]
					}
				}
			}
			out[y*w+x] = s
		}
	}
	return out
}

// localMax reports whether (x, y) is the peak of its window. Equal values
// earlier in raster order win, so a plateau yields one peak.
func localMax(v []int32, w, h, x, y, radius int) bool {
	c := v[y*w+x]
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			n := v[ny*w+nx]
			if n > c || (n == c && (dy < 0 || (dy == 0 && dx < 0))) {
				return false
			}
		}
	}
	return true
}

// refine moves a peak to the vote-weighted centroid of its 3x3 neighbourhood.
func refine(acc []int32, w, h, x, y int) coords.Coordinate {
	var sx, sy, sw float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			a := float64(acc[ny*w+nx])
			sx += a * float64(nx)
			sy += a * float64(ny)
			sw += a
		}
	}
	if sw == 0 {
		return coords.Pt(x, y)
	}
	return coords.Pt(int(math.Round(sx/sw)), int(math.Round(sy/sw)))
}

// verify accepts a centre when some radius in range is backed by enough edge
// pixels spread around the full circle.
func verify(edges []edgePixel, c coords.Coordinate, cfg Config) bool {
	for r := cfg.MinRadius; r <= cfg.MaxRadius; r++ {
		var support int
		var sectors [sectorCount]bool
		rf := float64(r)
		for _, e := range edges {
			dx, dy := float64(e.x-c.X), float64(e.y-c.Y)
			if math.Abs(math.Hypot(dx, dy)-rf) > 1 {
				continue
			}
			support++
			a := math.Atan2(dy, dx) + math.Pi
			s := int(a / (2 * math.Pi) * sectorCount)
			if s >= sectorCount {
				s = sectorCount - 1
			}
			sectors[s] = true
		}
		covered := 0
		for _, ok := range sectors {
			if ok {
				covered++
			}
		}
		if float64(support) >= cfg.MinEdgeSupport*2*math.Pi*rf && covered >= cfg.MinSectors {
			return true
		}
	}
	return false
}
