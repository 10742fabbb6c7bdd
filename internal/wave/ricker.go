package wave

import "math"

// Ricker evaluates the zero-phase Ricker wavelet with peak frequency f0 (kHz)
// at time t (ms). The peak is delayed by 1/f0 so the pulse starts near zero.
func Ricker(t, f0 float64) float64 {
	tau := t - 1/f0
	a := math.Pi * math.Pi * f0 * f0 * tau * tau
	return (1 - 2*a) * math.Exp(-a)
}
