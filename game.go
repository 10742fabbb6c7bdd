package main

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"log"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"

	"sandquake/internal/composite"
	"sandquake/internal/pipeline"
	"sandquake/internal/simerr"
)

type runOutcome struct {
	res *pipeline.Result
	err error
}

// Game plays the frames of one finished run over the table image.
type Game struct {
	width, height int

	comp    *composite.Compositor
	plain   *image.RGBA
	marked  *image.RGBA
	speedup float64

	results  chan runOutcome
	stepDone atomic.Int64
	stepAll  atomic.Int64
	cancel   context.CancelFunc
	started  time.Time
	lastLog  time.Time

	res    *pipeline.Result
	runErr error
	frames [][]byte
	peak   float64
	canvas *ebiten.Image

	frame       int
	tick        int
	frameHold   int
	paused      bool
	showMarkers bool
	lastCompose time.Duration

	audioCtx    *audio.Context
	audioStream *loopStream
	audioPlayer *audio.Player
}

// newGame starts the run in the background and returns a Game that shows the
// table until the frames are ready.
func newGame(pcfg pipeline.Config, comp *composite.Compositor, in pipeline.Input, speedup float64) (*Game, error) {
	b := in.Image.Bounds()
	g := &Game{
		width:       b.Dx(),
		height:      b.Dy(),
		comp:        comp,
		speedup:     speedup,
		results:     make(chan runOutcome, 1),
		frameHold:   defaultFrameHold,
		showMarkers: *markersFlag,
		started:     time.Now(),
	}
	g.plain = image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	draw.Draw(g.plain, g.plain.Bounds(), in.Image, b.Min, draw.Src)
	g.canvas = ebiten.NewImage(g.width, g.height)

	pcfg.Wave.Progress = g.progress
	pcfg.Wave.ProgressEvery = 10
	pipe, err := pipeline.New(pcfg, nil)
	if err != nil {
		return nil, err
	}

	if *enableAudioFlag {
		g.audioCtx = audio.NewContext(audioSampleRate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	go g.compute(ctx, pipe, in)
	return g, nil
}

func (g *Game) compute(ctx context.Context, pipe *pipeline.Pipeline, in pipeline.Input) {
	res, err := pipe.Run(ctx, in)
	g.results <- runOutcome{res: res, err: err}
}

// progress is handed to the wave engine and runs on the solver goroutine.
func (g *Game) progress(step, total int) {
	g.stepDone.Store(int64(step))
	g.stepAll.Store(int64(total))
}

// Close stops a run still in progress and silences audio.
func (g *Game) Close() {
	g.cancel()
	if g.audioPlayer != nil {
		_ = g.audioPlayer.Close()
	}
}

// Update polls for the finished run and advances playback.
func (g *Game) Update() error {
	if g.res == nil && g.runErr == nil {
		select {
		case out := <-g.results:
			if out.err != nil {
				g.runErr = out.err
				log.Printf("Simulation failed: %v", out.err)
				return nil
			}
			g.accept(out.res)
		default:
			g.logProgress()
			return nil
		}
	}
	if g.res == nil {
		return nil
	}

	g.handleControls()
	if g.paused {
		return nil
	}
	g.tick++
	if g.tick >= g.frameHold {
		g.tick = 0
		g.advance(1)
	}
	return nil
}

func (g *Game) logProgress() {
	now := time.Now()
	if now.Sub(g.lastLog) < progressLogInterval {
		return
	}
	g.lastLog = now
	if total := g.stepAll.Load(); total > 0 {
		log.Printf("Simulating: step %d/%d (%s)", g.stepDone.Load(), total, now.Sub(g.started).Round(time.Second))
	}
}

// accept composites every frame once so playback only uploads pixels.
func (g *Game) accept(res *pipeline.Result) {
	g.res = res
	g.marked = image.NewRGBA(g.plain.Bounds())
	copy(g.marked.Pix, g.plain.Pix)
	composite.DrawMarkers(g.marked, res.Classification.Sources.Coords, res.Classification.Obstacles.Coords)

	start := time.Now()
	g.recompose()
	g.lastCompose = time.Since(start)
	log.Printf("Run ready: %d frames, %d steps at %.4f ms (%s, composed in %s)",
		res.Cube.Len(), res.Steps, res.TimeStep, res.Backend, g.lastCompose.Round(time.Millisecond))

	g.peak = 1
	if len(res.Traces) > 0 {
		g.peak = tracePeak(res.Traces[0].Samples)
	}
	if g.audioCtx != nil && len(res.Traces) > 0 {
		g.startAudio(res)
	}
}

// recompose renders all frames over the current table image.
func (g *Game) recompose() {
	topo := g.plain
	if g.showMarkers {
		topo = g.marked
	}
	warned := false
	g.frames = make([][]byte, g.res.Cube.Len())
	for i := range g.frames {
		img, err := g.comp.Overlay(topo, g.res.Cube, i)
		if err != nil {
			if !errors.Is(err, simerr.ErrShapeMismatch) {
				log.Printf("Frame %d: %v", i, err)
				g.frames[i] = topo.Pix
				continue
			}
			if !warned {
				log.Printf("Frames resampled: %v", err)
				warned = true
			}
		}
		g.frames[i] = img.Pix
	}
}

func (g *Game) startAudio(res *pipeline.Result) {
	samples, err := loadLoopSamples(audioSampleRate, res.Traces[0].Samples, res.TimeStep, g.speedup)
	if err != nil {
		log.Printf("Trace audio disabled: %v", err)
		return
	}
	g.audioStream = newLoopStream(samples)
	player, err := g.audioCtx.NewPlayer(g.audioStream)
	if err != nil {
		log.Printf("Audio player creation failed: %v", err)
		return
	}
	g.audioPlayer = player
	g.audioPlayer.SetBufferSize(audioBufferDuration)
	g.audioPlayer.Play()
}

// advance moves playback by delta frames, wrapping at both ends. Wrapping to
// frame 0 rewinds the trace audio.
func (g *Game) advance(delta int) {
	n := len(g.frames)
	if n == 0 {
		return
	}
	next := ((g.frame+delta)%n + n) % n
	if next == 0 && g.frame != 0 && g.audioStream != nil {
		g.audioStream.Restart()
	}
	g.frame = next
}
