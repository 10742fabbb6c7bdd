// Command sandquake-viewer projects a simulated quake onto the sand table:
// it runs the pipeline on a table capture and loops the frames in a window.
package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"gonum.org/v1/gonum/mat"

	"sandquake/internal/composite"
	"sandquake/internal/config"
	"sandquake/internal/pipeline"
	"sandquake/internal/profiling"
	"sandquake/internal/tabletop"
)

func loadInput() (pipeline.Input, error) {
	if *demoFlag || *imageFlag == "" {
		if *seedFlag == 0 {
			scene := tabletop.ReferenceScene()
			return pipeline.Input{
				Image:     scene.Render(),
				HeightMap: tabletop.GradientHeightMap(scene.Width, scene.Height),
			}, nil
		}
		rng := rand.New(rand.NewSource(*seedFlag))
		scene := tabletop.RandomScene(demoSize, demoSize, tabletop.DefaultLayout(), rng)
		return pipeline.Input{
			Image:     scene.Render(),
			HeightMap: tabletop.PerlinHeightMap(demoSize, demoSize, *seedFlag),
		}, nil
	}
	img, err := tabletop.LoadImage(*imageFlag)
	if err != nil {
		return pipeline.Input{}, err
	}
	var height *mat.Dense
	if *heightMapFlag != "" {
		if height, err = tabletop.LoadHeightMap(*heightMapFlag); err != nil {
			return pipeline.Input{}, err
		}
	}
	return pipeline.Input{Image: img, HeightMap: height}, nil
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Configuration: %v", err)
	}
	if *maskedFlag {
		cfg.Composite.Masked = true
	}
	pcfg, err := cfg.Pipeline()
	if err != nil {
		log.Fatalf("Configuration: %v", err)
	}
	comp, err := composite.New(cfg.CompositeOptions())
	if err != nil {
		log.Fatalf("Compositor: %v", err)
	}

	in, err := loadInput()
	if err != nil {
		log.Fatalf("Loading table: %v", err)
	}

	if *recordDefaultPGO {
		stop, err := profiling.StartCPU("default.pgo")
		if err != nil {
			log.Fatalf("Failed to start default.pgo recording: %v", err)
		}
		time.AfterFunc(pgoRecordDuration, func() {
			stop()
			log.Printf("default.pgo recording complete")
		})
		defer stop()
	}

	g, err := newGame(pcfg, comp, in, cfg.Output.Speedup)
	if err != nil {
		log.Fatalf("Pipeline: %v", err)
	}
	defer g.Close()

	ebiten.SetTPS(int(defaultTPS))
	ebiten.SetWindowSize(g.width*windowScale, g.height*windowScale)
	ebiten.SetWindowTitle("Sand table quake")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
