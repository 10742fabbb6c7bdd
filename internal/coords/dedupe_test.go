package coords

import (
	"math"
	"math/rand"
	"testing"
)

func TestDedupe_SmallInputsUnchanged(t *testing.T) {
	if got := Dedupe(nil, 5); got != nil {
		t.Fatalf("expected nil for nil input, got %v", got)
	}
	one := []Coordinate{Pt(3, 4)}
	got := Dedupe(one, 5)
	if len(got) != 1 || got[0] != one[0] {
		t.Fatalf("single coordinate changed: %v", got)
	}
	got[0].X = 99
	if one[0].X != 3 {
		t.Fatal("Dedupe must not alias its input")
	}
}

func TestDedupe_MergesPairToMidpoint(t *testing.T) {
	got := Dedupe([]Coordinate{Pt(10, 10), Pt(12, 14), Pt(100, 100)}, 5)
	want := []Coordinate{Pt(11, 12), Pt(100, 100)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDedupe_ThresholdIsStrict(t *testing.T) {
	got := Dedupe([]Coordinate{Pt(0, 0), Pt(5, 0)}, 5)
	if len(got) != 2 {
		t.Fatalf("points exactly at the threshold must stay apart, got %v", got)
	}
}

func TestDedupe_ExactDuplicates(t *testing.T) {
	got := Dedupe([]Coordinate{Pt(7, 7), Pt(7, 7), Pt(7, 7)}, 5)
	if len(got) != 1 || got[0] != Pt(7, 7) {
		t.Fatalf("got %v, want [(7,7)]", got)
	}
}

func TestDedupe_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(30)
		in := make([]Coordinate, n)
		for i := range in {
			in[i] = Pt(rng.Intn(60), rng.Intn(60))
		}
		const threshold = 5.0
		out := Dedupe(in, threshold)
		if len(out) > len(in) {
			t.Fatalf("trial %d: output grew from %d to %d", trial, len(in), len(out))
		}
		again := Dedupe(out, threshold)
		if len(again) != len(out) {
			t.Fatalf("trial %d: not idempotent: %v -> %v", trial, out, again)
		}
		for i := range out {
			if again[i] != out[i] {
				t.Fatalf("trial %d: not idempotent at %d: %v -> %v", trial, i, out[i], again[i])
			}
		}
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				if Distance(out[i], out[j]) < threshold {
					t.Fatalf("trial %d: %v and %v survive closer than %v", trial, out[i], out[j], threshold)
				}
			}
		}
	}
}

func TestNearest(t *testing.T) {
	idx, d := Nearest(Pt(0, 0), nil)
	if idx != -1 || !math.IsInf(d, 1) {
		t.Fatalf("empty set: got %d, %v", idx, d)
	}
	idx, d = Nearest(Pt(0, 0), []Coordinate{Pt(10, 0), Pt(3, 4), Pt(-8, 0)})
	if idx != 1 || d != 5 {
		t.Fatalf("got %d, %v; want 1, 5", idx, d)
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name string
		in   Coordinate
		want Coordinate
	}{
		{"origin", Pt(0, 0), Pt(0, 0)},
		{"middle", Pt(100, 50), Pt(50, 25)},
		{"edge", Pt(199, 99), Pt(99, 49)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Scale(tc.in, 200, 100, 100, 50); got != tc.want {
				t.Errorf("Scale(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
	if got := Scale(Pt(3, 4), 10, 10, 10, 10); got != Pt(3, 4) {
		t.Errorf("identity scale changed coordinate: %v", got)
	}
}
