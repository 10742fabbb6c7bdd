package detect

import "sandquake/internal/coords"

// Status distinguishes a detection that never ran from one that ran and
// found nothing.
type Status int

const (
	NotRun Status = iota
	Empty
	Found
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Found:
		return "found"
	default:
		return "not-run"
	}
}

// Result is the outcome of one detection pass.
type Result struct {
	Status Status
	Coords []coords.Coordinate
}

func newResult(set []coords.Coordinate) Result {
	if len(set) == 0 {
		return Result{Status: Empty}
	}
	return Result{Status: Found, Coords: set}
}

// Ran reports whether the detection was executed.
func (r Result) Ran() bool { return r.Status != NotRun }

// Classification holds the obstacle and source sets of one image.
type Classification struct {
	Obstacles Result
	Sources   Result
}
