// Package pipeline chains the detector, the velocity builder, the wave engine
// and the frame sampler into one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"sandquake/internal/coords"
	"sandquake/internal/detect"
	"sandquake/internal/frames"
	"sandquake/internal/tabletop"
	"sandquake/internal/velocity"
	"sandquake/internal/wave"
)

// DefaultFrames is the number of frames kept for display.
const DefaultFrames = 50

// Config holds the settings of every stage.
type Config struct {
	Detect   detect.Config
	Velocity velocity.Params
	Wave     wave.Config
	// Frames is the target number of sampled frames.
	Frames int
	// Workers sizes the CPU backend; zero or less uses GOMAXPROCS.
	Workers int
	// Serial runs the solver on the calling goroutine.
	Serial bool
}

// DefaultConfig returns the table tuning for every stage.
func DefaultConfig() Config {
	return Config{
		Detect:   detect.DefaultConfig(),
		Velocity: velocity.DefaultParams(),
		Wave:     wave.DefaultConfig(),
		Frames:   DefaultFrames,
	}
}

// Input is one table capture. A nil HeightMap falls back to the luminance of
// Image.
type Input struct {
	Image     image.Image
	HeightMap *mat.Dense
}

// Result is what a finished run hands to the compositor and the store.
type Result struct {
	Classification detect.Classification
	// Sources and Obstacles are in height-map cells.
	Sources   []coords.Coordinate
	Obstacles []coords.Coordinate
	Model     *velocity.Model
	Cube      *frames.Cube
	Traces    []wave.Trace
	TimeStep  float64
	Steps     int
	Backend   string
	Elapsed   time.Duration
}

// Pipeline runs captures through all stages with one configuration.
type Pipeline struct {
	cfg      Config
	detector *detect.Detector
	logger   *slog.Logger
}

// New validates the detection settings and returns a Pipeline. Solver
// settings are validated per run since they depend on the velocity model.
func New(cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Frames <= 0 {
		cfg.Frames = DefaultFrames
	}
	d, err := detect.New(cfg.Detect, logger)
	if err != nil {
		return nil, err
	}
	if err := cfg.Velocity.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, detector: d, logger: logger}, nil
}

// Config returns the pipeline settings.
func (p *Pipeline) Config() Config { return p.cfg }

func (p *Pipeline) backend() wave.Backend {
	if p.cfg.Serial {
		return wave.NewSerialBackend()
	}
	return wave.NewCPUBackend(p.cfg.Workers)
}

// Run classifies the capture, builds the velocity model, steps the wavefield
// and samples it. Errors from any stage are returned without partial output.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if in.Image == nil {
		return nil, errors.New("pipeline: missing table image")
	}
	start := time.Now()
	height := in.HeightMap
	if height == nil {
		height = tabletop.LuminanceHeightMap(in.Image)
	}

	cls := p.detector.Classify(in.Image)
	rows, cols := height.Dims()
	b := in.Image.Bounds()
	sources := scaleAll(cls.Sources.Coords, b.Dx(), b.Dy(), cols, rows)
	obstacles := scaleAll(cls.Obstacles.Coords, b.Dx(), b.Dy(), cols, rows)
	p.logger.Info("Detected table pieces",
		"sources", len(sources), "obstacles", len(obstacles),
		"image", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()), "grid", fmt.Sprintf("%dx%d", cols, rows))

	model, err := velocity.Build(height, obstacles, p.cfg.Velocity)
	if err != nil {
		return nil, fmt.Errorf("build velocity model: %w", err)
	}

	wcfg := p.cfg.Wave
	wcfg.Sources = sources
	if wcfg.Logger == nil {
		wcfg.Logger = p.logger
	}
	backend := p.backend()
	engine, err := wave.New(model, wcfg, backend)
	if err != nil {
		return nil, err
	}
	hist, err := engine.Run(ctx)
	if err != nil {
		return nil, err
	}
	defer hist.Release()

	cube, err := frames.Sample(hist, hist.Width, hist.Height, p.cfg.Frames)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Classification: cls,
		Sources:        engine.Sources(),
		Obstacles:      obstacles,
		Model:          model,
		Cube:           cube,
		Traces:         hist.Traces(),
		TimeStep:       engine.TimeStep(),
		Steps:          engine.Steps(),
		Backend:        backend.Name(),
		Elapsed:        time.Since(start),
	}
	p.logger.Info("Run finished",
		"steps", res.Steps, "dt", res.TimeStep, "frames", cube.Len(),
		"backend", res.Backend, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func scaleAll(set []coords.Coordinate, fromW, fromH, toW, toH int) []coords.Coordinate {
	out := make([]coords.Coordinate, 0, len(set))
	for _, c := range set {
		out = append(out, coords.Scale(c, fromW, fromH, toW, toH))
	}
	return out
}
