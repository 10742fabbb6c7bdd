// Package profiling writes CPU profiles usable for profile-guided builds.
package profiling

import (
	"os"
	"runtime/pprof"
	"sync"
)

// StartCPU begins writing a CPU profile to path. The returned stop func is
// safe to call more than once.
func StartCPU(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	var once sync.Once
	stop := func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		})
	}
	return stop, nil
}
