package wave

// Backend executes the spatial update of one time step. The engine refuses
// to run without one; pick NewCPUBackend for the worker pool or
// NewSerialBackend for a single goroutine.
//
// A Backend serves one run at a time.
type Backend interface {
	// Name identifies the backend in logs and stored runs.
	Name() string

	begin(g *grid)
	// step fills g.next from g.curr and g.prev and reports whether every
	// written value stayed finite.
	step() bool
	end()
}

// serialBackend updates the whole grid on the calling goroutine.
type serialBackend struct {
	g    *grid
	mask workerMask
}

// NewSerialBackend returns a backend without any goroutines.
func NewSerialBackend() Backend { return &serialBackend{} }

func (b *serialBackend) Name() string { return "serial" }

func (b *serialBackend) begin(g *grid) {
	b.g = g
	b.mask = assignRowMasks(1, interiorRows(g.width, g.height))[0]
}

func (b *serialBackend) step() bool { return processMask(b.g, &b.mask) }

func (b *serialBackend) end() {
	b.g = nil
	b.mask = workerMask{}
}
