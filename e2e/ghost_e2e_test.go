// Package e2e wires the real bus, store, supervisor, registry and
// command processor together exactly as bootstrap.InitializeServices
// does, then drives the daemon through its external surface only
// (publishing Commands, reading Responses and events off the bus) —
// the six scenarios from spec §8's "end-to-end scenarios" table.
package e2e

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostrunctl/ghost/internal/application/commands"
	"github.com/ghostrunctl/ghost/internal/application/hub"
	"github.com/ghostrunctl/ghost/internal/application/registry"
	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	"github.com/ghostrunctl/ghost/internal/domain/bus"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	busloc "github.com/ghostrunctl/ghost/internal/infrastructure/bus/local"
	"github.com/ghostrunctl/ghost/internal/infrastructure/eventsink"
	"github.com/ghostrunctl/ghost/internal/infrastructure/launcher/osexec"
	"github.com/ghostrunctl/ghost/internal/infrastructure/storage/memory"
)

// daemon bundles the subset of Services an e2e test drives directly,
// constructed the same way bootstrap.InitializeServices wires it but
// without a config file on disk.
type daemon struct {
	bus        bus.Bus
	supervisor *supervisor.Supervisor
	registry   *registry.Registry
	hub        *hub.Hub
	listener   *registry.Listener
}

func newDaemon(t *testing.T) *daemon {
	return newDaemonWithRegistryConfig(t, registry.DefaultConfig())
}

func newDaemonWithRegistryConfig(t *testing.T, regCfg registry.Config) *daemon {
	t.Helper()
	b := busloc.New()
	st := memory.New()
	sink := eventsink.New(b, nil)

	sup := supervisor.New(supervisor.DefaultConfig(), osexec.New(), st, sink)
	reg := registry.New(regCfg, st, sink)
	listener := registry.NewListener(b, reg, nil)

	deps := commands.Deps{Supervisor: sup, Registry: reg, DaemonID: "ghost-daemon", Version: "test"}
	processor := commands.New(deps)
	h := hub.New(b, processor, nil)

	ctx := context.Background()
	require.NoError(t, h.Start(ctx))
	require.NoError(t, listener.Start(ctx))
	t.Cleanup(func() {
		h.Stop()
		listener.Stop()
		_ = st.Close()
	})

	return &daemon{bus: b, supervisor: sup, registry: reg, hub: h, listener: listener}
}

func requireBinary(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available on this system: %v", name, err)
	}
	return path
}

func waitForStatus(t *testing.T, d *daemon, id string, want ghost.Status) ghost.ProcessRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := d.supervisor.Get(id); ok && rec.Status == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, _ := d.supervisor.Get(id)
	t.Fatalf("process %q never reached status %s (last seen %s)", id, want, rec.Status)
	return rec
}

func sendCommand(t *testing.T, d *daemon, responseTopic string, cmd ghost.Command) ghost.Response {
	t.Helper()
	ctx := context.Background()

	if cmd.Parameters == nil {
		cmd.Parameters = map[string]string{}
	}
	cmd.Parameters[ghost.ParamResponseChannel] = responseTopic

	messages, unsubscribe, err := d.bus.Subscribe(ctx, responseTopic)
	require.NoError(t, err)
	defer unsubscribe()

	payload, err := json.Marshal(cmd)
	require.NoError(t, err)
	require.NoError(t, d.bus.Publish(ctx, bus.TopicCommands, payload, 0))

	select {
	case msg := <-messages:
		var resp ghost.Response
		require.NoError(t, json.Unmarshal(msg.Payload, &resp))
		return resp
	case <-time.After(10 * time.Second):
		t.Fatalf("no response for command %q within deadline", cmd.CommandType)
		return ghost.Response{}
	}
}

// Scenario 1: happy-path start of a one-shot that exits cleanly.
func TestHappyPathStartReachesStoppedWithZeroRestarts(t *testing.T) {
	bin := requireBinary(t, "true")
	d := newDaemon(t)

	require.NoError(t, d.supervisor.Register(context.Background(), ghost.ProcessRecord{
		ID: "app1", ExecutablePath: bin, Type: "one-shot",
	}))

	resp := sendCommand(t, d, "ghost:responses:e2e1", ghost.Command{
		CommandID:   "c1",
		CommandType: "start",
		Parameters:  map[string]string{ghost.ParamProcessID: "app1"},
	})
	require.True(t, resp.Success)

	rec := waitForStatus(t, d, "app1", ghost.StatusStopped)
	assert.Equal(t, 0, rec.RestartCount)
	assert.Equal(t, 0, rec.PID)
}

// Scenario 2: a process whose executable cannot be spawned retries,
// then fails, then the start command's own response reports failure.
func TestSpawnFailureRetriesThenFails(t *testing.T) {
	d := newDaemon(t)
	require.NoError(t, d.supervisor.Register(context.Background(), ghost.ProcessRecord{
		ID: "bad", ExecutablePath: "/nonexistent/ghost-e2e-binary",
	}))

	start := time.Now()
	resp := sendCommand(t, d, "ghost:responses:e2e2", ghost.Command{
		CommandID:   "c2",
		CommandType: "start",
		Parameters:  map[string]string{ghost.ParamProcessID: "bad"},
	})
	elapsed := time.Since(start)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "StartFailed")
	// three attempts with 2s then 4s backoff between them (spec §8 scenario 2).
	assert.GreaterOrEqual(t, elapsed, 5*time.Second)

	rec, ok := d.supervisor.Get("bad")
	require.True(t, ok)
	assert.Equal(t, ghost.StatusFailed, rec.Status)
}

// Scenario 3: a service that crashes immediately auto-restarts until
// its restart budget is exhausted, then settles on Failed and emits
// process.crashed.
func TestCrashAutoRestartExhaustsBudgetAndEmitsEvent(t *testing.T) {
	bin := requireBinary(t, "false")
	d := newDaemon(t)

	ctx := context.Background()
	events, unsubscribe, err := d.bus.Subscribe(ctx, bus.TopicEvents)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, d.supervisor.Register(ctx, ghost.ProcessRecord{
		ID: "svc", ExecutablePath: bin, Type: "service",
		Configuration: map[string]string{"AutoRestart": "true", "RestartDelayMs": "100", "MaxRestarts": "2"},
	}))

	resp := sendCommand(t, d, "ghost:responses:e2e3", ghost.Command{
		CommandID:   "c3",
		CommandType: "start",
		Parameters:  map[string]string{ghost.ParamProcessID: "svc"},
	})
	require.True(t, resp.Success)

	rec := waitForStatus(t, d, "svc", ghost.StatusFailed)
	assert.Positive(t, rec.RestartCount)

	sawCrashed := false
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		select {
		case msg := <-events:
			var ev ghost.SystemEvent
			if err := json.Unmarshal(msg.Payload, &ev); err == nil && ev.Type == ghost.EventProcessCrashed {
				sawCrashed = true
			}
		case <-time.After(50 * time.Millisecond):
		}
		if sawCrashed {
			break
		}
	}
	assert.True(t, sawCrashed, "expected at least one process.crashed event on ghost:events")
}

// connectionsRecordNamed decodes a "connections" Response's Data (a
// JSON-round-tripped []ghost.ConnectionRecord) and returns the record
// matching id, if present.
func connectionsRecordNamed(t *testing.T, resp ghost.Response, id string) (ghost.ConnectionRecord, bool) {
	t.Helper()
	blob, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var records []ghost.ConnectionRecord
	require.NoError(t, json.Unmarshal(blob, &records))
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	return ghost.ConnectionRecord{}, false
}

// Scenario 4: an unmanaged app's heartbeat auto-registers it in the
// Connection Registry via the connections command, and a second
// connections call issued after connectionTimeout still returns the
// record — never dropped (spec §3's audit guarantee) — now with status
// Disconnected.
func TestHeartbeatAutoRegistersAndDisconnectsOnTimeout(t *testing.T) {
	d := newDaemonWithRegistryConfig(t, registry.Config{ConnectionTimeout: 50 * time.Millisecond})

	ctx := context.Background()
	payload, err := json.Marshal(ghost.HealthPayload{ID: "ext1", Status: "Running", AppType: "external"})
	require.NoError(t, err)
	require.NoError(t, d.bus.Publish(ctx, bus.HealthTopic("ext1"), payload, 0))

	var first ghost.ConnectionRecord
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		resp := sendCommand(t, d, "ghost:responses:e2e4a", ghost.Command{CommandID: "c4a", CommandType: "connections"})
		require.True(t, resp.Success)
		if rec, ok := connectionsRecordNamed(t, resp, "ext1"); ok && rec.Status == ghost.StatusRunning {
			first = rec
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, ghost.StatusRunning, first.Status)

	time.Sleep(100 * time.Millisecond)
	d.registry.Sweep(ctx, time.Now())

	second := sendCommand(t, d, "ghost:responses:e2e4b", ghost.Command{CommandID: "c4b", CommandType: "connections"})
	require.True(t, second.Success)
	rec, ok := connectionsRecordNamed(t, second, "ext1")
	require.True(t, ok, "ext1 must still be present in the audit view after going stale")
	assert.Equal(t, ghost.StatusDisconnected, rec.Status)
}

// Scenario 5: a ping command round-trips within its default timeout
// and reports the daemon as Running.
func TestPingRoundTripsWithinOneSecond(t *testing.T) {
	d := newDaemon(t)

	start := time.Now()
	resp := sendCommand(t, d, "ghost:responses:cli", ghost.Command{CommandID: "c5", CommandType: "ping"})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.True(t, resp.Success)
	assert.Equal(t, "c5", resp.CommandID)

	blob, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var payload commands.PingPayload
	require.NoError(t, json.Unmarshal(blob, &payload))
	assert.Equal(t, "Running", payload.DaemonStatus)
	assert.GreaterOrEqual(t, payload.ManagedProcesses, 0)
}

// Scenario 6: graceful shutdown stops every running record and leaves
// none Running in the Store.
func TestGracefulShutdownStopsAllRunningRecords(t *testing.T) {
	bin := requireBinary(t, "sleep")
	d := newDaemon(t)
	ctx := context.Background()

	for _, id := range []string{"svc1", "svc2"} {
		require.NoError(t, d.supervisor.Register(ctx, ghost.ProcessRecord{
			ID: id, ExecutablePath: bin, Arguments: []string{"5"},
		}))
		require.NoError(t, d.supervisor.Start(ctx, id))
		waitForStatus(t, d, id, ghost.StatusRunning)
	}

	for _, err := range d.supervisor.StopAll(ctx) {
		require.NoError(t, err)
	}

	for _, id := range []string{"svc1", "svc2"} {
		rec := waitForStatus(t, d, id, ghost.StatusStopped)
		assert.Equal(t, 0, rec.PID)
	}
}
