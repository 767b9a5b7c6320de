package maintenance

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostrunctl/ghost/internal/application/registry"
	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/domain/launcher"
	"github.com/ghostrunctl/ghost/internal/infrastructure/storage/memory"
)

type fakeLauncher struct {
	mu     sync.Mutex
	starts int
}

func (f *fakeLauncher) Start(ctx context.Context, spec launcher.Spec) (int, <-chan launcher.ExitResult, error) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	exit := make(chan launcher.ExitResult, 1)
	return 4242, exit, nil
}

func (f *fakeLauncher) Stop(pid int, timeout time.Duration) error { return nil }
func (f *fakeLauncher) Signal(pid int, sig os.Signal) error        { return nil }

type fakeLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *fakeLogger) Debug(component, message string, fields map[string]any) {}
func (l *fakeLogger) Info(component, message string, fields map[string]any)  {}
func (l *fakeLogger) Warn(component, message string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, message)
}
func (l *fakeLogger) Error(component, message string, fields map[string]any) {}
func (l *fakeLogger) Close() error                                           { return nil }

func (l *fakeLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func TestOnTickRestartsCrashedAutoRestartRecordPastCooldown(t *testing.T) {
	fl := &fakeLauncher{}
	sup := supervisor.New(supervisor.DefaultConfig(), fl, nil, nil)
	sup.Seed(ghost.ProcessRecord{
		ID:             "app1",
		ExecutablePath: "/bin/true",
		Status:         ghost.StatusCrashed,
		Configuration:  map[string]string{"AutoRestart": "true"},
		UpdatedAt:      time.Now().Add(-time.Hour),
	})

	cfg := Config{TickInterval: time.Second, CheckpointInterval: time.Minute, RestartCooldown: 5 * time.Second}
	ticker := New(cfg, sup, nil, nil, nil)
	ticker.onTick(context.Background(), time.Now())

	fl.mu.Lock()
	starts := fl.starts
	fl.mu.Unlock()
	assert.Equal(t, 1, starts, "a crashed auto-restart record past cooldown should be restarted")

	rec, ok := sup.Get("app1")
	require.True(t, ok)
	assert.Equal(t, ghost.StatusRunning, rec.Status)
	assert.Equal(t, 1, rec.RestartCount)
}

func TestOnTickSkipsRestartWithinCooldown(t *testing.T) {
	fl := &fakeLauncher{}
	sup := supervisor.New(supervisor.DefaultConfig(), fl, nil, nil)
	sup.Seed(ghost.ProcessRecord{
		ID:             "app1",
		ExecutablePath: "/bin/true",
		Status:         ghost.StatusCrashed,
		Configuration:  map[string]string{"AutoRestart": "true"},
		UpdatedAt:      time.Now(),
	})

	cfg := Config{TickInterval: time.Second, CheckpointInterval: time.Minute, RestartCooldown: time.Minute}
	ticker := New(cfg, sup, nil, nil, nil)
	ticker.onTick(context.Background(), time.Now())

	fl.mu.Lock()
	starts := fl.starts
	fl.mu.Unlock()
	assert.Zero(t, starts, "a record updated more recently than RestartCooldown must not be restarted yet")
}

func TestOnTickSkipsRecordsWithoutAutoRestart(t *testing.T) {
	fl := &fakeLauncher{}
	sup := supervisor.New(supervisor.DefaultConfig(), fl, nil, nil)
	sup.Seed(ghost.ProcessRecord{
		ID:             "app1",
		ExecutablePath: "/bin/true",
		Status:         ghost.StatusCrashed,
		UpdatedAt:      time.Now().Add(-time.Hour),
	})

	cfg := Config{TickInterval: time.Second, CheckpointInterval: time.Minute, RestartCooldown: time.Second}
	ticker := New(cfg, sup, nil, nil, nil)
	ticker.onTick(context.Background(), time.Now())

	fl.mu.Lock()
	starts := fl.starts
	fl.mu.Unlock()
	assert.Zero(t, starts)
}

func TestHealthSweepWarnsOnIncoherentRecord(t *testing.T) {
	fl := &fakeLauncher{}
	sup := supervisor.New(supervisor.DefaultConfig(), fl, nil, nil)
	// Running without a pid violates HasPID() == (PID != 0).
	sup.Seed(ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true", Status: ghost.StatusRunning, PID: 0})

	logger := &fakeLogger{}
	ticker := New(DefaultConfig(), sup, nil, nil, logger)
	ticker.healthSweep()

	assert.Equal(t, 1, logger.warnCount())
}

func TestHealthSweepIgnoresCoherentRecords(t *testing.T) {
	fl := &fakeLauncher{}
	sup := supervisor.New(supervisor.DefaultConfig(), fl, nil, nil)
	sup.Seed(ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true", Status: ghost.StatusRunning, PID: 123})
	sup.Seed(ghost.ProcessRecord{ID: "app2", ExecutablePath: "/bin/true", Status: ghost.StatusStopped, PID: 0})

	logger := &fakeLogger{}
	ticker := New(DefaultConfig(), sup, nil, nil, logger)
	ticker.healthSweep()

	assert.Zero(t, logger.warnCount())
}

func TestOnTickCheckspointsAtConfiguredCadence(t *testing.T) {
	fl := &fakeLauncher{}
	sup := supervisor.New(supervisor.DefaultConfig(), fl, nil, nil)
	st := memory.New()
	reg := registry.New(registry.DefaultConfig(), st, nil)

	cfg := Config{TickInterval: time.Second, CheckpointInterval: 3 * time.Second, RestartCooldown: time.Second}
	ticker := New(cfg, sup, reg, st, nil)

	now := time.Now()
	ticker.onTick(context.Background(), now)
	ticker.onTick(context.Background(), now.Add(time.Second))
	assert.Equal(t, 2*time.Second, ticker.sinceCheckpoint, "checkpoint should not fire until CheckpointInterval elapses")

	ticker.onTick(context.Background(), now.Add(2*time.Second))
	assert.Zero(t, ticker.sinceCheckpoint, "checkpoint resets the accumulator once it fires")
}

func TestStartStopIsIdempotentAndStopsGoroutine(t *testing.T) {
	sup := supervisor.New(supervisor.DefaultConfig(), &fakeLauncher{}, nil, nil)
	cfg := Config{TickInterval: 10 * time.Millisecond, CheckpointInterval: time.Hour, RestartCooldown: time.Second}
	ticker := New(cfg, sup, nil, nil, nil)

	ctx := context.Background()
	ticker.Start(ctx)
	ticker.Start(ctx) // second Start before Stop must be a no-op, not a double goroutine

	time.Sleep(50 * time.Millisecond)
	ticker.Stop()
	ticker.Stop() // second Stop must be a no-op too
}
