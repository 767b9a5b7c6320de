// Package selfmetrics samples the daemon's own process resource usage
// via gopsutil, generalized from loykin-provisr's
// internal/metrics/process_metrics.go getProcessMetrics helper (which
// samples managed children by pid) down to a single fixed target: the
// daemon's own pid.
package selfmetrics

import (
	"fmt"
	"os"
	"runtime"

	gopsproc "github.com/shirou/gopsutil/v4/process"

	appselfmetrics "github.com/ghostrunctl/ghost/internal/application/selfmetrics"
)

// Collector samples the current process via gopsutil, implementing the
// application layer's Sampler port.
type Collector struct {
	proc *gopsproc.Process
}

// New opens a gopsutil handle on the running daemon's own pid.
func New() (*Collector, error) {
	proc, err := gopsproc.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("selfmetrics: opening self process handle: %w", err)
	}
	return &Collector{proc: proc}, nil
}

// Sample reads current CPU%, RSS, and thread count. CPU% is relative to
// one logical CPU the way gopsutil reports it; Failures on individual
// fields degrade to zero rather than aborting the whole sample, since a
// partial self-metric is still useful.
func (c *Collector) Sample() appselfmetrics.Sample {
	var out appselfmetrics.Sample

	if pct, err := c.proc.CPUPercent(); err == nil {
		out.CPUPercentage = pct
	}
	if mem, err := c.proc.MemoryInfo(); err == nil && mem != nil {
		out.MemoryBytes = mem.RSS
	}
	if n, err := c.proc.NumThreads(); err == nil {
		out.ThreadCount = int(n)
	} else {
		out.ThreadCount = runtime.NumGoroutine()
	}

	return out
}

var _ appselfmetrics.Sampler = (*Collector)(nil)
