package ghost

import "time"

// Metadata is the subset of ProcessRecord fields a ConnectionRecord
// carries for an app the daemon only knows through heartbeats — it may
// never have been launched by this daemon at all.
type Metadata struct {
	Name        string
	Type        string
	Version     string
	Environment map[string]string
	Config      map[string]string
}

// ConnectionRecord is the daemon's view of one known app, whether or not
// the daemon itself launched it. See spec §3 and §4.2.
type ConnectionRecord struct {
	ID       string
	Metadata Metadata

	Status      Status
	LastMessage string
	LastSeen    time.Time
	// LastMetrics is nil until the first metrics sample for this id
	// arrives.
	LastMetrics *MetricSample

	// IsDaemon marks the daemon's own self-registered record.
	IsDaemon bool
}

// Clone returns a copy safe to hand outside the Registry's lock.
func (c ConnectionRecord) Clone() ConnectionRecord {
	out := c
	if c.Metadata.Environment != nil {
		out.Metadata.Environment = make(map[string]string, len(c.Metadata.Environment))
		for k, v := range c.Metadata.Environment {
			out.Metadata.Environment[k] = v
		}
	}
	if c.Metadata.Config != nil {
		out.Metadata.Config = make(map[string]string, len(c.Metadata.Config))
		for k, v := range c.Metadata.Config {
			out.Metadata.Config[k] = v
		}
	}
	if c.LastMetrics != nil {
		m := *c.LastMetrics
		out.LastMetrics = &m
	}
	return out
}

// AppType returns the connection's configured AppType, defaulting to
// "unknown" the same way ProcessRecord.AppType does.
func (c ConnectionRecord) AppType() string {
	if v, ok := c.Metadata.Config[ReservedAppType]; ok && v != "" {
		return v
	}
	return "unknown"
}

// HealthPayload is the wire shape published by external apps on
// ghost:health:{id} (spec §4.2, §8 scenario 4). Message distinguishes a
// health-status report from a bare heartbeat: a heartbeat omits it.
type HealthPayload struct {
	ID      string
	Status  string
	AppType string
	Message string
}
