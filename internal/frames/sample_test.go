package frames

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"sandquake/internal/simerr"
)

type memHistory [][]float32

func (h memHistory) Len() int              { return len(h) }
func (h memHistory) Frame(i int) []float32 { return h[i] }

func randomHistory(rng *rand.Rand, n, cells int) memHistory {
	h := make(memHistory, n)
	for i := range h {
		h[i] = make([]float32, cells)
		for j := range h[i] {
			h[i][j] = float32(rng.NormFloat64() * 3)
		}
	}
	return h
}

func TestStride(t *testing.T) {
	tests := []struct{ total, target, want int }{
		{100, 50, 2},
		{101, 50, 3},
		{10, 50, 1},
		{1487, 50, 30},
		{50, 50, 1},
	}
	for _, tc := range tests {
		if got := Stride(tc.total, tc.target); got != tc.want {
			t.Errorf("Stride(%d,%d) = %d, want %d", tc.total, tc.target, got, tc.want)
		}
	}
}

func TestSampleCountAndPeak(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for _, tc := range []struct{ total, target int }{{100, 50}, {101, 50}, {7, 3}, {10, 50}, {1, 1}} {
		h := randomHistory(rng, tc.total, 6)
		cube, err := Sample(h, 3, 2, tc.target)
		if err != nil {
			t.Fatal(err)
		}
		stride := Stride(tc.total, tc.target)
		want := (tc.total + stride - 1) / stride
		if cube.Len() != want {
			t.Errorf("total %d target %d: %d frames, want %d", tc.total, tc.target, cube.Len(), want)
		}
		if cube.Len() > tc.target {
			t.Errorf("more frames than requested")
		}
		var peak float64
		for i, f := range cube.Frames {
			if cube.Indices[i] != i*stride {
				t.Errorf("frame %d comes from step %d", i, cube.Indices[i])
			}
			for _, v := range f {
				peak = math.Max(peak, math.Abs(v))
			}
		}
		if peak != 1 {
			t.Errorf("peak magnitude %v, want 1", peak)
		}
	}
}

func TestSampleKeepsRelativeAmplitude(t *testing.T) {
	h := memHistory{{0, 0}, {1, -2}, {4, 0}, {-8, 2}}
	cube, err := Sample(h, 2, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]float64{{0, 0}, {0.125, -0.25}, {0.5, 0}, {-1, 0.25}}
	for i := range want {
		for j := range want[i] {
			if cube.Frames[i][j] != want[i][j] {
				t.Fatalf("frame %d = %v, want %v", i, cube.Frames[i], want[i])
			}
		}
	}
	if cube.Scale != 8 {
		t.Fatalf("scale %v", cube.Scale)
	}
}

func TestSampleSilentHistory(t *testing.T) {
	h := memHistory{make([]float32, 4), make([]float32, 4)}
	cube, err := Sample(h, 2, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range cube.Frames {
		for _, v := range f {
			if v != 0 || math.IsNaN(v) {
				t.Fatalf("silent history produced %v", v)
			}
		}
	}
	if cube.Scale != 0 {
		t.Fatalf("scale %v", cube.Scale)
	}
}

func TestSampleRejectsBadInput(t *testing.T) {
	if _, err := Sample(memHistory{}, 1, 1, 5); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("empty history: %v", err)
	}
	if _, err := Sample(memHistory{{1}}, 1, 1, 0); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("zero target: %v", err)
	}
	if _, err := Sample(memHistory{{1, 2}}, 3, 1, 1); err == nil {
		t.Fatal("mismatched frame size must fail")
	}
}
