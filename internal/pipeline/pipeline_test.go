package pipeline

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"sandquake/internal/coords"
	"sandquake/internal/tabletop"
	"sandquake/internal/wave"
)

func shortConfig() Config {
	cfg := DefaultConfig()
	cfg.Wave.TN = 60
	cfg.Frames = 10
	cfg.Workers = 2
	return cfg
}

func sorted(set []coords.Coordinate) []coords.Coordinate {
	out := coords.Clone(set)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

func TestRunReferenceScene(t *testing.T) {
	scene := tabletop.ReferenceScene()
	p, err := New(shortConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background(), Input{
		Image:     scene.Render(),
		HeightMap: tabletop.GradientHeightMap(scene.Width, scene.Height),
	})
	if err != nil {
		t.Fatal(err)
	}

	wantSources := []coords.Coordinate{coords.Pt(50, 50), coords.Pt(150, 150)}
	got := sorted(res.Sources)
	if len(got) != 2 || got[0] != wantSources[0] || got[1] != wantSources[1] {
		t.Fatalf("sources = %v, want %v", got, wantSources)
	}
	if len(res.Obstacles) != 1 || res.Obstacles[0] != coords.Pt(100, 20) {
		t.Fatalf("obstacles = %v", res.Obstacles)
	}
	if got, want := res.Model.At(100, 20), res.Model.VMax*1.8; got != want {
		t.Fatalf("obstacle velocity = %v, want %v", got, want)
	}
	if res.Steps != wave.StepCount(0, 60, res.TimeStep) {
		t.Fatalf("steps = %d for dt %v", res.Steps, res.TimeStep)
	}
	if res.Cube.Width != 200 || res.Cube.Height != 200 {
		t.Fatalf("cube %dx%d", res.Cube.Width, res.Cube.Height)
	}
	if n := res.Cube.Len(); n == 0 || n > 10 {
		t.Fatalf("cube holds %d frames", n)
	}
	var peak float64
	for _, f := range res.Cube.Frames {
		for _, v := range f {
			peak = math.Max(peak, math.Abs(v))
		}
	}
	if peak != 1 {
		t.Fatalf("normalised peak = %v", peak)
	}
	if res.Backend != "cpu/2" {
		t.Fatalf("backend %q", res.Backend)
	}
}

func TestRunScalesToHeightMap(t *testing.T) {
	scene := tabletop.ReferenceScene()
	cfg := shortConfig()
	cfg.Serial = true
	cfg.Wave.TN = 20
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background(), Input{
		Image:     scene.Render(),
		HeightMap: tabletop.GradientHeightMap(100, 100),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := sorted(res.Sources)
	if len(got) != 2 || got[0] != coords.Pt(25, 25) || got[1] != coords.Pt(75, 75) {
		t.Fatalf("scaled sources = %v", got)
	}
	if res.Obstacles[0] != coords.Pt(50, 10) {
		t.Fatalf("scaled obstacle = %v", res.Obstacles[0])
	}
}

func TestRunEmptyTableUsesCentre(t *testing.T) {
	scene := tabletop.NewScene(60, 40)
	cfg := shortConfig()
	cfg.Wave.TN = 10
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background(), Input{Image: scene.Render(), HeightMap: tabletop.GradientHeightMap(60, 40)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification.Sources.Ran() != true || len(res.Classification.Sources.Coords) != 0 {
		t.Fatalf("classification %+v", res.Classification)
	}
	if len(res.Sources) != 1 || res.Sources[0] != coords.Pt(30, 20) {
		t.Fatalf("default source = %v", res.Sources)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := New(shortConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	scene := tabletop.ReferenceScene()
	_, err = p.Run(ctx, Input{Image: scene.Render(), HeightMap: tabletop.GradientHeightMap(200, 200)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Velocity.VMax = 0
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("bad velocity bounds must fail")
	}
	if _, err := (&Pipeline{}).Run(context.Background(), Input{}); err == nil {
		t.Fatal("missing image must fail")
	}
}
