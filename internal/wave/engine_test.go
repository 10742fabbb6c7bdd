package wave

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"sandquake/internal/coords"
	"sandquake/internal/simerr"
	"sandquake/internal/tabletop"
	"sandquake/internal/velocity"
)

// homogeneous returns a constant-speed model of w x h cells.
func homogeneous(t *testing.T, w, h int, v float64) *velocity.Model {
	t.Helper()
	m, err := velocity.Build(mat.NewDense(h, w, nil), nil, velocity.Params{VMin: v, VMax: v + 1})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Boundary = 10
	cfg.TN = 60
	return cfg
}

func TestStableTimeStep(t *testing.T) {
	tests := []struct {
		dx, dy, vmax float64
	}{
		{10, 10, 5},
		{10, 10, 9},
		{5, 20, 3},
		{1, 1, 1},
	}
	for _, tc := range tests {
		bound := StableTimeStep(tc.dx, tc.dy, tc.vmax)
		// Von Neumann condition for the 5-point stencil.
		c := tc.vmax * bound * math.Sqrt(1/(tc.dx*tc.dx)+1/(tc.dy*tc.dy))
		if math.Abs(c-1) > 1e-12 {
			t.Errorf("bound %v for %+v gives Courant number %v", bound, tc, c)
		}
		if StableTimeStep(tc.dx*2, tc.dy*2, tc.vmax) <= bound {
			t.Errorf("bound must grow with spacing")
		}
		if StableTimeStep(tc.dx, tc.dy, tc.vmax*2) >= bound {
			t.Errorf("bound must shrink with velocity")
		}
	}
}

func TestStepCount(t *testing.T) {
	if got := StepCount(0, 9.5, 1); got != 10 {
		t.Fatalf("StepCount = %d, want 10", got)
	}
	if got := StepCount(0, 700, 0.5); got != 1401 {
		t.Fatalf("StepCount = %d, want 1401", got)
	}
}

func TestRicker(t *testing.T) {
	f0 := 0.025
	if got := Ricker(1/f0, f0); got != 1 {
		t.Fatalf("peak = %v, want 1", got)
	}
	for _, d := range []float64{3, 10, 25} {
		a, b := Ricker(1/f0-d, f0), Ricker(1/f0+d, f0)
		if math.Abs(a-b) > 1e-12 {
			t.Errorf("wavelet not symmetric at ±%v: %v vs %v", d, a, b)
		}
	}
	if Ricker(0, f0) > 0.01 {
		t.Errorf("wavelet should start near zero, got %v", Ricker(0, f0))
	}
}

func TestNewValidation(t *testing.T) {
	m := homogeneous(t, 20, 20, 2)
	tests := []struct {
		name    string
		mutate  func(*Config)
		backend Backend
		target  error
	}{
		{"nil backend", func(*Config) {}, nil, simerr.ErrConfiguration},
		{"zero spacing", func(c *Config) { c.DX = 0 }, NewSerialBackend(), simerr.ErrConfiguration},
		{"empty interval", func(c *Config) { c.TN = c.T0 }, NewSerialBackend(), simerr.ErrConfiguration},
		{"no boundary", func(c *Config) { c.Boundary = 0 }, NewSerialBackend(), simerr.ErrConfiguration},
		{"negative step", func(c *Config) { c.TimeStep = -1 }, NewSerialBackend(), simerr.ErrConfiguration},
		{"courant above one", func(c *Config) { c.Courant = 1.5 }, NewSerialBackend(), simerr.ErrConfiguration},
		{"source outside", func(c *Config) { c.Sources = []coords.Coordinate{coords.Pt(20, 0)} }, NewSerialBackend(), simerr.ErrConfiguration},
		{"history cap", func(c *Config) { c.MaxHistoryBytes = 1024 }, NewSerialBackend(), simerr.ErrConfiguration},
		{"unstable override", func(c *Config) { c.TimeStep = 1000 }, NewSerialBackend(), simerr.ErrNumericalInstability},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := smallConfig()
			tc.mutate(&cfg)
			_, err := New(m, cfg, tc.backend)
			if !errors.Is(err, tc.target) {
				t.Fatalf("got %v, want %v", err, tc.target)
			}
		})
	}

	bad := homogeneous(t, 5, 5, 2)
	bad.Velocity.Set(2, 2, 0)
	if _, err := New(bad, smallConfig(), NewSerialBackend()); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("zero velocity: got %v", err)
	}
}

func TestDerivedStepIsStable(t *testing.T) {
	m := homogeneous(t, 20, 20, 3)
	e, err := New(m, smallConfig(), NewSerialBackend())
	if err != nil {
		t.Fatal(err)
	}
	bound := StableTimeStep(10, 10, m.Max())
	if e.TimeStep() <= 0 || e.TimeStep() > bound {
		t.Fatalf("dt %v outside (0, %v]", e.TimeStep(), bound)
	}
	if e.State() != Configured {
		t.Fatalf("state %v", e.State())
	}
}

func TestRunDetectsInstability(t *testing.T) {
	m := homogeneous(t, 21, 21, 2)
	cfg := smallConfig()
	cfg.Boundary = 5
	e, err := New(m, cfg, NewSerialBackend())
	if err != nil {
		t.Fatal(err)
	}
	// Bypass the constructor check to step with four times the bound.
	e.dt = 4 * StableTimeStep(cfg.DX, cfg.DY, m.Max())
	e.nt = 200
	_, err = e.Run(context.Background())
	var ie *simerr.InstabilityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InstabilityError, got %v", err)
	}
	if ie.Step < 0 || ie.Step > 100 {
		t.Fatalf("instability reported at step %d", ie.Step)
	}
	if e.State() != Failed {
		t.Fatalf("state %v, want failed", e.State())
	}
}

func TestRunTenFrames(t *testing.T) {
	scene := tabletop.ReferenceScene()
	p := velocity.DefaultParams()
	m, err := velocity.Build(tabletop.GradientHeightMap(200, 200), scene.ObstacleCoords(), p)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Sources = scene.SourceCoords()
	dt := cfg.Courant * StableTimeStep(cfg.DX, cfg.DY, m.Max())
	cfg.TN = cfg.T0 + 9.5*dt

	e, err := New(m, cfg, NewCPUBackend(4))
	if err != nil {
		t.Fatal(err)
	}
	if e.Steps() != 10 {
		t.Fatalf("Steps = %d, want 10", e.Steps())
	}
	hist, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if hist.Len() != 10 || hist.Width != 200 || hist.Height != 200 {
		t.Fatalf("history %d frames of %dx%d", hist.Len(), hist.Width, hist.Height)
	}
	for i := 0; i < hist.Len(); i++ {
		for _, v := range hist.Frame(i) {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				t.Fatalf("non-finite value in frame %d", i)
			}
			if i == 0 && v != 0 {
				t.Fatal("frame 0 must be the zero initial state")
			}
		}
	}
	if hist.At(9, 50, 50) == 0 || hist.At(9, 150, 150) == 0 {
		t.Fatal("sources left no signal")
	}
	if e.State() != Complete {
		t.Fatalf("state %v", e.State())
	}
	if _, err := e.Run(context.Background()); err == nil {
		t.Fatal("second Run must fail")
	}
	hist.Release()
	if hist.Len() != 0 {
		t.Fatal("Release must drop frames")
	}
}

func TestPointSourceSymmetry(t *testing.T) {
	const n = 41
	m := homogeneous(t, n, n, 2)
	e, err := New(m, smallConfig(), NewSerialBackend())
	if err != nil {
		t.Fatal(err)
	}
	hist, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	last := hist.Len() - 1
	var peak float64
	for _, v := range hist.Frame(last) {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak == 0 {
		t.Fatal("empty wavefield")
	}
	tol := 1e-4 * peak
	c := n / 2
	for dy := -c; dy <= c; dy++ {
		for dx := -c; dx <= c; dx++ {
			v := float64(hist.At(last, c+dx, c+dy))
			checks := []float64{
				float64(hist.At(last, c-dx, c+dy)),
				float64(hist.At(last, c+dx, c-dy)),
				float64(hist.At(last, c+dy, c+dx)),
			}
			for _, w := range checks {
				if math.Abs(v-w) > tol {
					t.Fatalf("asymmetry at offset (%d,%d): %v vs %v", dx, dy, v, w)
				}
			}
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	m := homogeneous(t, 33, 27, 2)
	cfg := smallConfig()
	cfg.Sources = []coords.Coordinate{coords.Pt(5, 7), coords.Pt(25, 20)}
	run := func(b Backend) *History {
		e, err := New(m, cfg, b)
		if err != nil {
			t.Fatal(err)
		}
		h, err := e.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return h
	}
	a, b := run(NewSerialBackend()), run(NewCPUBackend(3))
	if a.Len() != b.Len() {
		t.Fatalf("frame counts differ: %d vs %d", a.Len(), b.Len())
	}
	for i := 0; i < a.Len(); i++ {
		fa, fb := a.Frame(i), b.Frame(i)
		for j := range fa {
			if fa[j] != fb[j] {
				t.Fatalf("frame %d cell %d: serial %v, cpu %v", i, j, fa[j], fb[j])
			}
		}
	}
}

func TestRunCancelled(t *testing.T) {
	m := homogeneous(t, 20, 20, 2)
	e, err := New(m, smallConfig(), NewCPUBackend(2))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hist, err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) || hist != nil {
		t.Fatalf("got %v, %v", hist, err)
	}
	if e.State() != Failed {
		t.Fatalf("state %v", e.State())
	}
}

func TestReceiversAndProgress(t *testing.T) {
	m := homogeneous(t, 21, 21, 2)
	cfg := smallConfig()
	var calls int
	cfg.Progress = func(step, total int) { calls++ }
	cfg.ProgressEvery = 5
	e, err := New(m, cfg, NewSerialBackend())
	if err != nil {
		t.Fatal(err)
	}
	hist, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tr := hist.Traces()
	if len(tr) != 1 || tr[0].At != coords.Pt(10, 10) {
		t.Fatalf("default receiver %v", tr)
	}
	if len(tr[0].Samples) != hist.Len() {
		t.Fatalf("trace has %d samples for %d frames", len(tr[0].Samples), hist.Len())
	}
	for i, s := range tr[0].Samples {
		if s != hist.At(i, 10, 10) {
			t.Fatalf("trace sample %d = %v, frame value %v", i, s, hist.At(i, 10, 10))
		}
	}
	if want := (hist.Len() - 1) / 5; calls != want {
		t.Fatalf("progress called %d times, want %d", calls, want)
	}
}
