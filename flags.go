package main

import "flag"

// Command-line flags that select the table capture and control playback.
// Solver settings come from the shared configuration file.
var (
	// configFlag points at the JSON configuration shared with the CLI.
	configFlag = flag.String("config", "", "JSON configuration file")

	// imageFlag is the table capture to simulate.
	imageFlag = flag.String("image", "", "table image (PNG or JPEG)")

	// heightMapFlag is an optional grayscale height map.
	heightMapFlag = flag.String("heightmap", "", "grayscale height map; defaults to the image luminance")

	// demoFlag simulates a synthetic table when no image is given.
	demoFlag = flag.Bool("demo", false, "simulate a synthetic table")

	// seedFlag randomises the demo layout and terrain.
	seedFlag = flag.Int64("seed", 0, "with -demo, randomise the layout and terrain from this seed")

	// maskedFlag hides quiet cells instead of blending the whole field.
	maskedFlag = flag.Bool("masked", false, "only paint cells above the mask threshold")

	// markersFlag outlines detected sources and obstacles.
	markersFlag = flag.Bool("markers", true, "outline detected sources and obstacles")

	// recordDefaultPGO captures default.pgo while the first run computes.
	recordDefaultPGO = flag.Bool("record-default-pgo", false, "capture default.pgo for 15s while simulating")

	// debugFlag enables the FPS and playback overlay.
	debugFlag = flag.Bool("debug", false, "show FPS and playback overlay")

	// enableAudioFlag loops the receiver trace while frames play.
	enableAudioFlag = flag.Bool("enable-audio", false, "play the receiver trace as audio")
)
