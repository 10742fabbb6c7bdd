package wave

import "math"

// reflectionCoefficient is the target amplitude returned by the absorbing
// layer for a wave at normal incidence.
const reflectionCoefficient = 0.001

// divergenceLimit marks a field value as blown up. NaN fails the comparison
// as well.
const divergenceLimit = 1e30

// grid stores the three time levels of the padded pressure field plus the
// per-cell stencil coefficients.
type grid struct {
	width, height int
	boundary      int
	curr          []float32
	prev          []float32
	next          []float32

	// kx and ky hold v^2 dt^2 / dx^2 and v^2 dt^2 / dy^2.
	kx, ky []float32
	// keep is (1 - s) and scale is 1 / (1 + s), with s = sigma dt / 2.
	keep, scale []float32
	// inject holds dt^2 v^2 for source weighting.
	inject []float32
}

// newGrid pads an interior velocity field of iw x ih cells by boundary cells
// on every side and derives the stencil coefficients.
func newGrid(vel func(x, y int) float64, iw, ih, boundary int, dx, dy, dt, vmax float64) *grid {
	w, h := iw+2*boundary, ih+2*boundary
	g := &grid{
		width: w, height: h, boundary: boundary,
		curr:   make([]float32, w*h),
		prev:   make([]float32, w*h),
		next:   make([]float32, w*h),
		kx:     make([]float32, w*h),
		ky:     make([]float32, w*h),
		keep:   make([]float32, w*h),
		scale:  make([]float32, w*h),
		inject: make([]float32, w*h),
	}
	sigmaX := dampingProfile(boundary, dx, vmax)
	sigmaY := dampingProfile(boundary, dy, vmax)
	for y := 0; y < h; y++ {
		iy := clampIndex(y-boundary, ih)
		for x := 0; x < w; x++ {
			ix := clampIndex(x-boundary, iw)
			v := vel(ix, iy)
			v2dt2 := v * v * dt * dt
			idx := y*w + x
			g.kx[idx] = float32(v2dt2 / (dx * dx))
			g.ky[idx] = float32(v2dt2 / (dy * dy))
			g.inject[idx] = float32(v2dt2)
			s := (sigmaX(x, w) + sigmaY(y, h)) * dt / 2
			g.keep[idx] = float32(1 - s)
			g.scale[idx] = float32(1 / (1 + s))
		}
	}
	return g
}

// dampingProfile returns the quadratic absorbing ramp along one axis. The
// ramp is zero inside the physical domain and reaches its maximum at the
// outer edge of the layer.
func dampingProfile(boundary int, spacing, vmax float64) func(i, n int) float64 {
	if boundary <= 0 {
		return func(int, int) float64 { return 0 }
	}
	thickness := float64(boundary) * spacing
	sigmaMax := 3 * vmax * math.Log(1/reflectionCoefficient) / (2 * thickness)
	return func(i, n int) float64 {
		var d int
		switch {
		case i < boundary:
			d = boundary - i
		case i >= n-boundary:
			d = i - (n - boundary - 1)
		default:
			return 0
		}
		r := float64(d) / float64(boundary)
		return sigmaMax * r * r
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// swap rotates the triple buffers so that next becomes current and current
// becomes previous.
func (g *grid) swap() {
	g.prev, g.curr, g.next = g.curr, g.next, g.prev
}

// index converts interior coordinates to a padded buffer offset.
func (g *grid) index(x, y int) int {
	return (y+g.boundary)*g.width + x + g.boundary
}

// copyInterior writes the physical region of curr into dst.
func (g *grid) copyInterior(dst []float32) {
	iw := g.width - 2*g.boundary
	ih := g.height - 2*g.boundary
	for y := 0; y < ih; y++ {
		src := g.curr[g.index(0, y):]
		copy(dst[y*iw:(y+1)*iw], src[:iw])
	}
}
