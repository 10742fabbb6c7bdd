package main

import "time"

// Viewer configuration constants. Playback speed is expressed as how many
// ticks each frame stays on screen.
const (
	windowScale         = 3
	defaultTPS          = 60.0
	defaultFrameHold    = 6
	frameHoldStep       = 1
	minFrameHold        = 1
	maxFrameHold        = 60
	receiverRad         = 3
	pgoRecordDuration   = 15 * time.Second
	audioSampleRate     = 48000
	audioBufferDuration = 80 * time.Millisecond
	pcm16MaxValue       = 32767
	demoSize            = 200
	progressLogInterval = 2 * time.Second
)
