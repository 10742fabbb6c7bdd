package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"sandquake/internal/composite"
	"sandquake/internal/config"
	"sandquake/internal/logging"
	"sandquake/internal/pipeline"
	"sandquake/internal/profiling"
	"sandquake/internal/tabletop"
	"sandquake/internal/trace"
)

const demoSize = 200

// runOptions are the flags of the run command. Zero values keep the
// configuration file settings.
type runOptions struct {
	configPath string
	imagePath  string
	heightPath string
	outDir     string
	demo       bool
	seed       int64
	wav        bool
	frames     int
	tn         float64
	workers    int
	masked     bool
	markers    bool
	cpuProfile string
	logLevel   string
	logDir     string
	plotWidth  int
}

func parseRunFlags(args []string) (*runOptions, error) {
	o := &runOptions{}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&o.imagePath, "image", "", "table image (PNG or JPEG)")
	fs.StringVar(&o.heightPath, "heightmap", "", "grayscale height map; defaults to the image luminance")
	fs.StringVar(&o.outDir, "out", "", "output directory (default from config)")
	fs.BoolVar(&o.demo, "demo", false, "simulate a synthetic table instead of -image")
	fs.Int64Var(&o.seed, "seed", 0, "with -demo, randomise the layout and terrain from this seed")
	fs.BoolVar(&o.wav, "wav", true, "write the receiver trace as trace.wav")
	fs.IntVar(&o.frames, "frames", 0, "number of frames to keep")
	fs.Float64Var(&o.tn, "tn", 0, "simulated time in milliseconds")
	fs.IntVar(&o.workers, "workers", 0, "solver goroutines (0 uses every CPU)")
	fs.BoolVar(&o.masked, "masked", false, "hide quiet cells instead of blending the whole field")
	fs.BoolVar(&o.markers, "markers", true, "outline detected sources and obstacles")
	fs.StringVar(&o.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	fs.StringVar(&o.logLevel, "log-level", "", "console log level")
	fs.StringVar(&o.logDir, "log-dir", "", "directory for the rotating JSON log")
	fs.IntVar(&o.plotWidth, "plot-width", 72, "width of the trace plot")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !o.demo && o.imagePath == "" {
		return nil, fmt.Errorf("need -image or -demo")
	}
	return o, nil
}

func (o *runOptions) apply(cfg *config.Config) {
	if o.outDir != "" {
		cfg.Output.Dir = o.outDir
	}
	if o.frames > 0 {
		cfg.Simulation.Frames = o.frames
	}
	if o.tn > 0 {
		cfg.Simulation.TN = o.tn
	}
	if o.workers > 0 {
		cfg.Simulation.Workers = o.workers
	}
	if o.masked {
		cfg.Composite.Masked = true
	}
	cfg.Output.Markers = o.markers
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logDir != "" {
		cfg.Log.Dir = o.logDir
	}
}

// loadInput returns the table image and its height map. A nil height map
// means the pipeline derives one from the image.
func (o *runOptions) loadInput() (image.Image, *mat.Dense, error) {
	if o.demo {
		if o.seed == 0 {
			scene := tabletop.ReferenceScene()
			return scene.Render(), tabletop.GradientHeightMap(scene.Width, scene.Height), nil
		}
		rng := rand.New(rand.NewSource(o.seed))
		scene := tabletop.RandomScene(demoSize, demoSize, tabletop.DefaultLayout(), rng)
		return scene.Render(), tabletop.PerlinHeightMap(demoSize, demoSize, o.seed), nil
	}
	img, err := tabletop.LoadImage(o.imagePath)
	if err != nil {
		return nil, nil, err
	}
	if o.heightPath == "" {
		return img, nil, nil
	}
	height, err := tabletop.LoadHeightMap(o.heightPath)
	if err != nil {
		return nil, nil, err
	}
	return img, height, nil
}

func runCommand(ctx context.Context, args []string) error {
	opts, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	cleanup, err := logging.Init(logging.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir, File: "sandquake.log"})
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.cpuProfile != "" {
		stop, err := profiling.StartCPU(opts.cpuProfile)
		if err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer stop()
	}

	img, height, err := opts.loadInput()
	if err != nil {
		return err
	}
	pcfg, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	pipe, err := pipeline.New(pcfg, slog.Default())
	if err != nil {
		return err
	}
	res, err := pipe.Run(ctx, pipeline.Input{Image: img, HeightMap: height})
	if err != nil {
		return err
	}

	written, err := writeOutputs(cfg, img, res, opts.wav)
	if err != nil {
		return err
	}
	fmt.Println(renderSummary(res, written, opts.plotWidth))
	return nil
}

// writeOutputs writes frames, the marked-up table and the trace, and returns
// the paths it created.
func writeOutputs(cfg *config.Config, img image.Image, res *pipeline.Result, withWAV bool) ([]string, error) {
	comp, err := composite.New(cfg.CompositeOptions())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	topo := image.NewRGBA(img.Bounds())
	draw.Draw(topo, topo.Bounds(), img, img.Bounds().Min, draw.Src)
	if cfg.Output.Markers {
		composite.DrawMarkers(topo, res.Classification.Sources.Coords, res.Classification.Obstacles.Coords)
	}
	shapes := filepath.Join(cfg.Output.Dir, "shapes.png")
	if err := tabletop.SaveImage(shapes, topo); err != nil {
		return nil, err
	}
	written := []string{shapes}

	frameDir := filepath.Join(cfg.Output.Dir, "frames")
	paths, err := comp.WriteFrames(frameDir, topo, res.Cube)
	if err != nil {
		if len(paths) < res.Cube.Len() {
			return nil, err
		}
		slog.Warn("Frames resampled to the table image", "error", err)
	}
	written = append(written, frameDir)

	if withWAV && len(res.Traces) > 0 {
		path := filepath.Join(cfg.Output.Dir, "trace.wav")
		sr := trace.SampleRate(res.TimeStep, cfg.Output.Speedup)
		if err := trace.SaveWAV(path, res.Traces[0].Samples, sr); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}
