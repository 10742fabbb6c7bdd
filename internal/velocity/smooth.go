package velocity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// truncate is the kernel half-width in standard deviations.
const truncate = 4.0

// kernel returns a normalised 1-D Gaussian of radius int(truncate*sigma+0.5).
func kernel(sigma float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	radius := int(truncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// Smooth applies a separable Gaussian filter with independent sigmas along
// columns (x) and rows (y). Samples beyond the edge repeat the nearest edge
// value. The input is left untouched.
func Smooth(src *mat.Dense, sigmaX, sigmaY float64) *mat.Dense {
	rows, cols := src.Dims()
	kx, ky := kernel(sigmaX), kernel(sigmaY)
	rx, ry := len(kx)/2, len(ky)/2

	tmp := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var s float64
			for i, w := range kx {
				s += w * src.At(y, clamp(x+i-rx, cols))
			}
			tmp.Set(y, x, s)
		}
	}
	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var s float64
			for i, w := range ky {
				s += w * tmp.At(clamp(y+i-ry, rows), x)
			}
			out.Set(y, x, s)
		}
	}
	return out
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
