package ghost

import "time"

// MetricSample is one append-only observation of a process's resource
// usage. See spec §3: the Store retains at least 24h per process id.
type MetricSample struct {
	ProcessID     string
	CPUPercentage float64 // 0-100 * logical CPUs
	MemoryBytes   uint64
	ThreadCount   int
	HandleCount   int
	AppType       string
	Timestamp     time.Time
}
