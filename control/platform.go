// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Process-level debug probes.

package control

import (
	"runtime"
)

// RegisterPlatformProbes adds process-wide probes to r.
func RegisterPlatformProbes(r *Registry) {
	r.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	r.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
