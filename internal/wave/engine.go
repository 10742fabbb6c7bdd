// Package wave time-steps the 2D acoustic wave equation
//
//	u_tt + sigma u_t = v^2 (u_xx + u_yy)
//
// over a velocity model padded with an absorbing layer, using second-order
// central differences in space and time. Units: ms, m, km/s and kHz.
package wave

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"sandquake/internal/coords"
	"sandquake/internal/simerr"
	"sandquake/internal/velocity"
)

// State is the lifecycle of an Engine.
type State int

const (
	Configured State = iota
	Stepping
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Stepping:
		return "stepping"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DefaultMaxHistoryBytes caps the retained wavefield at 1 GiB.
const DefaultMaxHistoryBytes = 1 << 30

// Config describes one simulation run.
type Config struct {
	// DX and DY are the grid spacing in metres.
	DX, DY float64
	// T0 and TN bound the simulated time in milliseconds.
	T0, TN float64
	// F0 is the Ricker peak frequency in kHz.
	F0 float64
	// Boundary is the absorbing layer thickness in cells.
	Boundary int
	// Courant scales the largest stable time step, in (0, 1].
	Courant float64
	// TimeStep overrides the derived step when positive. A step above the
	// stability bound is rejected as numerically unstable.
	TimeStep float64
	// Sources are interior grid cells. Empty means one source at the centre.
	Sources []coords.Coordinate
	// Receivers are interior cells whose signal is recorded every step.
	// Empty means the centre.
	Receivers []coords.Coordinate
	// MaxHistoryBytes bounds the retained wavefield; zero uses the default.
	MaxHistoryBytes int64
	// Progress, when set, is called every ProgressEvery steps.
	Progress      func(step, total int)
	ProgressEvery int
	Logger        *slog.Logger
}

// DefaultConfig returns the tuning used on the table.
func DefaultConfig() Config {
	return Config{
		DX: 10, DY: 10,
		T0: 0, TN: 700,
		F0:       0.025,
		Boundary: 40,
		Courant:  0.6,
	}
}

// Engine owns one run: its grid, its sources and its history.
type Engine struct {
	mu      sync.Mutex
	state   State
	cfg     Config
	model   *velocity.Model
	backend Backend
	logger  *slog.Logger

	iw, ih    int
	dt        float64
	nt        int
	sources   []coords.Coordinate
	receivers []coords.Coordinate
}

// StableTimeStep returns the largest time step the explicit scheme tolerates
// for spacing dx, dy and peak velocity vmax.
func StableTimeStep(dx, dy, vmax float64) float64 {
	return 1 / (vmax * math.Sqrt(1/(dx*dx)+1/(dy*dy)))
}

// StepCount returns the number of frames covering [t0, tn] at step dt. Frame
// zero is the initial state.
func StepCount(t0, tn, dt float64) int {
	return int(1 + (tn-t0)/dt)
}

// New validates the run and fixes dt, nt and the source cells. Nothing is
// allocated for the wavefield until Run.
func New(model *velocity.Model, cfg Config, backend Backend) (*Engine, error) {
	if backend == nil {
		return nil, simerr.Config("backend", "no solver backend supplied; use NewCPUBackend or NewSerialBackend")
	}
	if model == nil || model.Velocity == nil {
		return nil, simerr.Config("velocity", "no velocity model")
	}
	switch {
	case !(cfg.DX > 0) || !(cfg.DY > 0):
		return nil, simerr.Config("spacing", "dx and dy must be positive, got %v/%v", cfg.DX, cfg.DY)
	case !(cfg.TN > cfg.T0):
		return nil, simerr.Config("time", "tn %v must exceed t0 %v", cfg.TN, cfg.T0)
	case !(cfg.F0 > 0):
		return nil, simerr.Config("f0", "must be positive, got %v", cfg.F0)
	case cfg.Boundary < 1:
		return nil, simerr.Config("boundary", "need at least one absorbing cell, got %d", cfg.Boundary)
	case !(cfg.Courant > 0) || cfg.Courant > 1:
		return nil, simerr.Config("courant", "must be within (0,1], got %v", cfg.Courant)
	case cfg.TimeStep < 0 || math.IsNaN(cfg.TimeStep):
		return nil, simerr.Config("time_step", "must not be negative, got %v", cfg.TimeStep)
	}

	vmin, vmax := model.Min(), model.Max()
	if !(vmin > 0) {
		return nil, simerr.Config("velocity", "non-positive wave speed %v", vmin)
	}
	if math.IsInf(vmax, 0) || math.IsNaN(vmax) {
		return nil, simerr.Config("velocity", "non-finite wave speed")
	}

	bound := StableTimeStep(cfg.DX, cfg.DY, vmax)
	dt := cfg.Courant * bound
	if cfg.TimeStep > 0 {
		if cfg.TimeStep > bound {
			return nil, &simerr.InstabilityError{
				Step:   -1,
				Reason: fmt.Sprintf("time step %.4g ms exceeds stability bound %.4g ms", cfg.TimeStep, bound),
			}
		}
		dt = cfg.TimeStep
	}
	if !(dt > 0) {
		return nil, simerr.Config("time_step", "derived step %v is not positive", dt)
	}

	e := &Engine{cfg: cfg, model: model, backend: backend, dt: dt}
	e.iw, e.ih = model.Dims()
	e.nt = StepCount(cfg.T0, cfg.TN, dt)

	limit := cfg.MaxHistoryBytes
	if limit <= 0 {
		limit = DefaultMaxHistoryBytes
	}
	if need := historyBytes(e.nt, e.iw, e.ih); need > limit {
		return nil, simerr.Config("history", "run needs %d bytes of wavefield, limit is %d", need, limit)
	}

	centre := []coords.Coordinate{coords.Pt(e.iw/2, e.ih/2)}
	e.sources = cfg.Sources
	if len(e.sources) == 0 {
		e.sources = centre
	}
	e.receivers = cfg.Receivers
	if len(e.receivers) == 0 {
		e.receivers = centre
	}
	for _, set := range [][]coords.Coordinate{e.sources, e.receivers} {
		for _, c := range set {
			if c.X < 0 || c.Y < 0 || c.X >= e.iw || c.Y >= e.ih {
				return nil, simerr.Config("coordinates", "%v outside %dx%d grid", c, e.iw, e.ih)
			}
		}
	}
	e.sources = coords.Clone(e.sources)
	e.receivers = coords.Clone(e.receivers)

	e.logger = cfg.Logger
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// TimeStep returns dt in milliseconds.
func (e *Engine) TimeStep() float64 { return e.dt }

// Steps returns the number of frames the run will produce.
func (e *Engine) Steps() int { return e.nt }

// Sources returns the injection cells.
func (e *Engine) Sources() []coords.Coordinate { return coords.Clone(e.sources) }

// SourcePositions returns the injection points in metres.
func (e *Engine) SourcePositions() [][2]float64 {
	out := make([][2]float64, len(e.sources))
	for i, s := range e.sources {
		out[i] = [2]float64{float64(s.X) * e.cfg.DX, float64(s.Y) * e.cfg.DY}
	}
	return out
}

// State reports where the engine is in its lifecycle.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run steps the field from T0 to TN and returns the interior history. Any
// error discards the partial history. The context is checked once per step.
func (e *Engine) Run(ctx context.Context) (*History, error) {
	e.mu.Lock()
	if e.state != Configured {
		st := e.state
		e.mu.Unlock()
		return nil, fmt.Errorf("engine already %s", st)
	}
	e.state = Stepping
	e.mu.Unlock()

	hist, err := e.run(ctx)
	if err != nil {
		e.setState(Failed)
		return nil, err
	}
	e.setState(Complete)
	return hist, nil
}

func (e *Engine) run(ctx context.Context) (*History, error) {
	started := time.Now()
	g := newGrid(e.model.At, e.iw, e.ih, e.cfg.Boundary, e.cfg.DX, e.cfg.DY, e.dt, e.model.Max())

	// Positions in metres map back onto padded cells through the spacing.
	srcIdx := make([]int, len(e.sources))
	for i, p := range e.SourcePositions() {
		x := int(math.Round(p[0] / e.cfg.DX))
		y := int(math.Round(p[1] / e.cfg.DY))
		srcIdx[i] = g.index(x, y)
	}

	hist := &History{Width: e.iw, Height: e.ih, T0: e.cfg.T0, DT: e.dt}
	hist.frames = make([][]float32, 0, e.nt)
	hist.traces = make([]Trace, len(e.receivers))
	rcvIdx := make([]int, len(e.receivers))
	for i, r := range e.receivers {
		hist.traces[i] = Trace{At: r, Samples: make([]float32, 0, e.nt)}
		rcvIdx[i] = g.index(r.X, r.Y)
	}
	record := func() {
		frame := make([]float32, e.iw*e.ih)
		g.copyInterior(frame)
		hist.frames = append(hist.frames, frame)
		for i, idx := range rcvIdx {
			hist.traces[i].Samples = append(hist.traces[i].Samples, g.curr[idx])
		}
	}

	e.logger.Info("wave run starting",
		"backend", e.backend.Name(), "grid", fmt.Sprintf("%dx%d", g.width, g.height),
		"dt_ms", e.dt, "steps", e.nt, "sources", len(e.sources))

	e.backend.begin(g)
	defer e.backend.end()

	record()
	every := e.cfg.ProgressEvery
	if every <= 0 {
		every = 100
	}
	for n := 0; n < e.nt-1; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("wave run cancelled at step %d: %w", n, err)
		}
		if !e.backend.step() {
			return nil, &simerr.InstabilityError{Step: n, Reason: "wavefield diverged"}
		}
		amp := float32(Ricker(e.cfg.T0+float64(n)*e.dt, e.cfg.F0))
		for _, idx := range srcIdx {
			g.next[idx] += g.inject[idx] * amp
		}
		g.swap()
		record()
		if e.cfg.Progress != nil && (n+1)%every == 0 {
			e.cfg.Progress(n+1, e.nt)
		}
	}
	e.logger.Info("wave run complete", "steps", e.nt, "elapsed", time.Since(started))
	return hist, nil
}
