package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Draw renders the current frame, the receiver indicator and optional overlays.
func (g *Game) Draw(screen *ebiten.Image) {
	switch {
	case g.res != nil && len(g.frames) > 0:
		g.canvas.WritePixels(g.frames[g.frame])
	default:
		g.canvas.WritePixels(g.plain.Pix)
	}
	screen.DrawImage(g.canvas, nil)

	if g.res != nil {
		g.drawReceiver(screen)
	}

	switch {
	case g.runErr != nil:
		ebitenutil.DebugPrint(screen, fmt.Sprintf("Simulation failed:\n%v", g.runErr))
	case g.res == nil:
		msg := "Detecting pieces..."
		if total := g.stepAll.Load(); total > 0 {
			msg = fmt.Sprintf("Simulating: step %d/%d", g.stepDone.Load(), total)
		}
		ebitenutil.DebugPrint(screen, msg)
	case *debugFlag:
		g.drawDebug(screen)
	}
}

// Layout reports the logical screen size used by Ebiten.
func (g *Game) Layout(_, _ int) (int, int) { return g.width, g.height }

// drawReceiver paints the first receiver as a disc whose colour follows the
// trace: red for compression, blue for rarefaction.
func (g *Game) drawReceiver(screen *ebiten.Image) {
	traces := g.res.Traces
	if len(traces) == 0 || len(g.frames) == 0 {
		return
	}
	tr := traces[0]
	step := g.res.Cube.Indices[g.frame]
	var v float64
	if step < len(tr.Samples) {
		v = float64(tr.Samples[step]) / g.peak
	}
	level := uint8(math.Min(1, math.Abs(v)) * 255)
	clr := color.RGBA{R: 255, G: 255 - level, B: 255 - level, A: 255}
	if v < 0 {
		clr = color.RGBA{R: 255 - level, G: 255 - level, B: 255, A: 255}
	}

	cx, cy := g.toScreen(tr.At)
	for _, offset := range receiverFootprint {
		x := cx + offset.dx
		y := cy + offset.dy
		if x >= 0 && x < g.width && y >= 0 && y < g.height {
			screen.Set(x, y, clr)
		}
	}
}

func tracePeak(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	if peak == 0 {
		return 1
	}
	return peak
}

func (g *Game) drawDebug(screen *ebiten.Image) {
	fps := ebiten.ActualFPS()
	tps := ebiten.ActualTPS()
	if tps < 0 {
		tps = 0
	}
	step := g.res.Cube.Indices[g.frame]
	state := "playing"
	if g.paused {
		state = "paused"
	}
	msg := fmt.Sprintf("FPS: %.1f (%.1f TPS)\nFrame %d/%d  step %d  t=%.1f ms\nPlayback: %.1f frames/s (%s, +/-)\nCompose: %.1f ms",
		fps, tps, g.frame+1, len(g.frames), step, float64(step)*g.res.TimeStep,
		g.framesPerSecond(), state, g.lastCompose.Seconds()*1000)
	ebitenutil.DebugPrint(screen, msg)
}
