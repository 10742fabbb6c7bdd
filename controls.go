package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// handleControls processes playback hotkeys: space pauses, the arrow keys
// step while paused, +/- change speed and M toggles the markers.
func (g *Game) handleControls() {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.togglePause()
	}
	if g.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
			g.advance(1)
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
			g.advance(-1)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyHome) {
		g.frame, g.tick = 0, 0
		if g.audioStream != nil {
			g.audioStream.Restart()
		}
	}
	// Longer hold means slower playback.
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		g.adjustFrameHold(frameHoldStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.adjustFrameHold(-frameHoldStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		g.showMarkers = !g.showMarkers
		g.recompose()
	}
}

func (g *Game) togglePause() {
	g.paused = !g.paused
	if g.audioPlayer == nil {
		return
	}
	if g.paused {
		g.audioPlayer.Pause()
	} else {
		g.audioPlayer.Play()
	}
}

// adjustFrameHold clamps the ticks-per-frame delta within bounds.
func (g *Game) adjustFrameHold(delta int) {
	g.frameHold += delta
	if g.frameHold < minFrameHold {
		g.frameHold = minFrameHold
	} else if g.frameHold > maxFrameHold {
		g.frameHold = maxFrameHold
	}
}

// framesPerSecond returns the nominal playback rate.
func (g *Game) framesPerSecond() float64 {
	return defaultTPS / float64(g.frameHold)
}
