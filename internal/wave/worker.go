package wave

import (
	"fmt"
	"runtime"
	"sync"
)

// cpuBackend spreads rows over a fixed pool of goroutines. Every step is a
// broadcast followed by a wait until all workers have reported back, so no
// worker ever runs ahead into the next time level.
type cpuBackend struct {
	workerCount int

	workerMu      sync.Mutex
	workerCond    *sync.Cond
	workerStep    int
	workerPending int
	workerMasks   []workerMask
	workerFinite  bool
	stopped       bool
	wg            sync.WaitGroup

	g *grid
}

// NewCPUBackend returns a worker-pool backend. A non-positive count uses
// GOMAXPROCS.
func NewCPUBackend(workers int) Backend {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	b := &cpuBackend{workerCount: workers}
	b.workerCond = sync.NewCond(&b.workerMu)
	return b
}

func (b *cpuBackend) Name() string { return fmt.Sprintf("cpu/%d", b.workerCount) }

// begin binds the grid and launches the workers.
func (b *cpuBackend) begin(g *grid) {
	b.workerMu.Lock()
	b.g = g
	b.workerMasks = assignRowMasks(b.workerCount, interiorRows(g.width, g.height))
	b.workerStep = 0
	b.workerPending = 0
	b.stopped = false
	b.workerMu.Unlock()

	b.wg.Add(b.workerCount)
	for i := 0; i < b.workerCount; i++ {
		go b.waveWorkerLoop(i)
	}
}

// waveWorkerLoop executes wave updates for the rows assigned to the worker.
func (b *cpuBackend) waveWorkerLoop(index int) {
	defer b.wg.Done()
	lastStep := 0
	b.workerMu.Lock()
	for {
		for b.workerStep == lastStep && !b.stopped {
			b.workerCond.Wait()
		}
		if b.stopped {
			b.workerMu.Unlock()
			return
		}
		lastStep = b.workerStep
		var mask workerMask
		if index < len(b.workerMasks) {
			mask = b.workerMasks[index]
		}
		g := b.g
		b.workerMu.Unlock()

		finite := true
		if len(mask.rows) > 0 {
			finite = processMask(g, &mask)
		}

		b.workerMu.Lock()
		if !finite {
			b.workerFinite = false
		}
		b.workerPending--
		if b.workerPending == 0 {
			b.workerCond.Broadcast()
		}
	}
}

// step releases the workers for one time level and waits for all of them.
func (b *cpuBackend) step() bool {
	b.workerMu.Lock()
	b.workerPending = b.workerCount
	b.workerFinite = true
	b.workerStep++
	b.workerCond.Broadcast()
	for b.workerPending > 0 {
		b.workerCond.Wait()
	}
	finite := b.workerFinite
	b.workerMu.Unlock()
	return finite
}

// end stops the workers and waits for them to exit.
func (b *cpuBackend) end() {
	b.workerMu.Lock()
	b.stopped = true
	b.workerCond.Broadcast()
	b.workerMu.Unlock()
	b.wg.Wait()
	b.g = nil
}
