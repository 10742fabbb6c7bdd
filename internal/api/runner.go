package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gonum.org/v1/gonum/mat"

	"sandquake/internal/composite"
	"sandquake/internal/pipeline"
	"sandquake/internal/store"
	"sandquake/internal/trace"
)

// Runner executes submitted runs in the background, at most maxRuns at a
// time, and records their outcome in the store.
type Runner struct {
	store    *store.Store
	pipe     *pipeline.Pipeline
	settings json.RawMessage
	speedup  float64
	logger   *slog.Logger

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner returns a Runner. settings is stored verbatim with every run.
func NewRunner(st *store.Store, pipe *pipeline.Pipeline, settings json.RawMessage, maxRuns int, speedup float64, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRuns < 1 {
		maxRuns = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:    st,
		pipe:     pipe,
		settings: settings,
		speedup:  speedup,
		logger:   logger,
		sem:      make(chan struct{}, maxRuns),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit stores a pending run and starts it. A nil height map falls back to
// the image luminance.
func (r *Runner) Submit(ctx context.Context, img image.Image, height *mat.Dense) (*store.Run, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, errors.New("runner is shutting down")
	}
	png, err := composite.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	run := &store.Run{Config: r.settings}
	if err := r.store.CreateRun(ctx, run, png); err != nil {
		return nil, err
	}
	r.wg.Add(1)
	go r.execute(run.ID, pipeline.Input{Image: img, HeightMap: height})
	return run, nil
}

func (r *Runner) execute(id string, in pipeline.Input) {
	defer r.wg.Done()
	logger := r.logger.With("run", id)

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-r.ctx.Done():
		r.fail(id, r.ctx.Err(), logger)
		return
	}

	// Status writes use a fresh context so a shutdown still records them.
	bg := context.Background()
	if err := r.store.SetStatus(bg, id, store.StatusRunning, ""); err != nil {
		logger.Error("Failed to mark run running", "error", err)
		return
	}
	logger.Info("Run started")

	res, err := r.pipe.Run(r.ctx, in)
	if err != nil {
		r.fail(id, err, logger)
		return
	}

	var wav []byte
	if traces := res.Traces; len(traces) > 0 {
		wav, err = trace.EncodeWAV(traces[0].Samples, trace.SampleRate(res.TimeStep, r.speedup))
		if err != nil {
			logger.Warn("Trace not stored", "error", err)
		}
	}
	out := store.Outcome{
		Steps:     res.Steps,
		TimeStep:  res.TimeStep,
		Sources:   res.Sources,
		Obstacles: res.Obstacles,
		Backend:   res.Backend,
		Cube:      res.Cube,
		Trace:     wav,
	}
	if err := r.store.Complete(bg, id, out); err != nil {
		r.fail(id, fmt.Errorf("store results: %w", err), logger)
		return
	}
	logger.Info("Run completed", "frames", res.Cube.Len(), "elapsed", res.Elapsed)
}

func (r *Runner) fail(id string, cause error, logger *slog.Logger) {
	logger.Error("Run failed", "error", cause)
	if err := r.store.SetStatus(context.Background(), id, store.StatusFailed, cause.Error()); err != nil {
		logger.Error("Failed to record failure", "error", err)
	}
}

// Shutdown cancels running simulations and waits for them to record their
// state, or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
