package supervisor

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/domain/launcher"
	"github.com/ghostrunctl/ghost/internal/infrastructure/storage/memory"
)

type scriptedLauncher struct {
	mu        sync.Mutex
	startErrs []error
	pid       int
	exitCh    chan launcher.ExitResult
	starts    int
	stopped   []int
}

func newScriptedLauncher() *scriptedLauncher {
	return &scriptedLauncher{pid: 100, exitCh: make(chan launcher.ExitResult, 1)}
}

func (l *scriptedLauncher) Start(ctx context.Context, spec launcher.Spec) (int, <-chan launcher.ExitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.starts
	l.starts++
	if idx < len(l.startErrs) && l.startErrs[idx] != nil {
		return 0, nil, l.startErrs[idx]
	}
	return l.pid, l.exitCh, nil
}

func (l *scriptedLauncher) Stop(pid int, timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = append(l.stopped, pid)
	return nil
}

func (l *scriptedLauncher) Signal(pid int, sig os.Signal) error { return nil }

type recordingSink struct {
	mu     sync.Mutex
	events []ghost.EventType
}

func (s *recordingSink) PublishEvent(event ghost.SystemEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.Type)
}
func (s *recordingSink) PublishOutput(processID, line string) {}

func (s *recordingSink) has(t ghost.EventType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e == t {
			return true
		}
	}
	return false
}

func noSleep(time.Duration) {}

func TestRegisterRejectsEmptyIDOrExecutable(t *testing.T) {
	sup := New(DefaultConfig(), newScriptedLauncher(), nil, nil)
	assert.Error(t, sup.Register(context.Background(), ghost.ProcessRecord{ExecutablePath: "/bin/true"}))
	assert.Error(t, sup.Register(context.Background(), ghost.ProcessRecord{ID: "app1"}))
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	sup := New(DefaultConfig(), newScriptedLauncher(), nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	err := sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"})
	assert.Equal(t, ghost.KindAlreadyExists, ghost.KindOf(err))
}

func TestStartTransitionsRegisteredToRunning(t *testing.T) {
	fl := newScriptedLauncher()
	sink := &recordingSink{}
	sup := New(DefaultConfig(), fl, nil, sink)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))

	require.NoError(t, sup.Start(ctx, "app1"))

	rec, ok := sup.Get("app1")
	require.True(t, ok)
	assert.Equal(t, ghost.StatusRunning, rec.Status)
	assert.Equal(t, 100, rec.PID)
}

func TestStartOnAlreadyRunningIsNoop(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	require.NoError(t, sup.Start(ctx, "app1"))

	require.NoError(t, sup.Start(ctx, "app1"))
	assert.Equal(t, 1, fl.starts, "starting an already-Running record must not spawn a second time")
}

func TestStartFromInvalidStatusFails(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	require.NoError(t, sup.Start(ctx, "app1"))

	sup.mutate("app1", func(r *ghost.ProcessRecord) { r.Status = ghost.StatusStarting })
	err := sup.Start(ctx, "app1")
	assert.Equal(t, ghost.KindInvalidState, ghost.KindOf(err))
}

func TestStartRetriesThenSucceeds(t *testing.T) {
	fl := newScriptedLauncher()
	fl.startErrs = []error{errors.New("spawn failed once")}
	cfg := DefaultConfig()
	cfg.MaxStartAttempts = 2
	sup := New(cfg, fl, nil, nil)
	sup.sleep = noSleep
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))

	require.NoError(t, sup.Start(ctx, "app1"))
	assert.Equal(t, 2, fl.starts)
	rec, _ := sup.Get("app1")
	assert.Equal(t, ghost.StatusRunning, rec.Status)
}

func TestStartExhaustsAttemptsAndTransitionsFailed(t *testing.T) {
	fl := newScriptedLauncher()
	fl.startErrs = []error{errors.New("e1"), errors.New("e2"), errors.New("e3")}
	cfg := DefaultConfig()
	cfg.MaxStartAttempts = 3
	sink := &recordingSink{}
	sup := New(cfg, fl, nil, sink)
	sup.sleep = noSleep
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))

	err := sup.Start(ctx, "app1")
	assert.Equal(t, ghost.KindStartFailed, ghost.KindOf(err))
	rec, _ := sup.Get("app1")
	assert.Equal(t, ghost.StatusFailed, rec.Status)
}

func TestStartWithZeroMaxAttemptsRefusesToSpawn(t *testing.T) {
	fl := newScriptedLauncher()
	cfg := DefaultConfig()
	cfg.MaxStartAttempts = 0
	sup := New(cfg, fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))

	err := sup.Start(ctx, "app1")
	assert.Error(t, err)
	assert.Zero(t, fl.starts)
}

func TestStopTransitionsRunningToStopped(t *testing.T) {
	fl := newScriptedLauncher()
	sink := &recordingSink{}
	sup := New(DefaultConfig(), fl, nil, sink)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	require.NoError(t, sup.Start(ctx, "app1"))

	require.NoError(t, sup.Stop(ctx, "app1", time.Second))
	rec, _ := sup.Get("app1")
	assert.Equal(t, ghost.StatusStopped, rec.Status)
	assert.Zero(t, rec.PID)
	assert.True(t, sink.has(ghost.EventProcessStopped))
}

func TestStopOnAlreadyStoppedIsNoop(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	require.NoError(t, sup.Start(ctx, "app1"))
	require.NoError(t, sup.Stop(ctx, "app1", time.Second))

	assert.NoError(t, sup.Stop(ctx, "app1", time.Second))
}

func TestStopFromInvalidStatusFails(t *testing.T) {
	sup := New(DefaultConfig(), newScriptedLauncher(), nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))

	err := sup.Stop(ctx, "app1", time.Second)
	assert.Equal(t, ghost.KindInvalidState, ghost.KindOf(err))
}

func TestRestartIncrementsRestartCount(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	require.NoError(t, sup.Start(ctx, "app1"))

	require.NoError(t, sup.Restart(ctx, "app1"))
	rec, _ := sup.Get("app1")
	assert.Equal(t, 1, rec.RestartCount)
	assert.Equal(t, ghost.StatusRunning, rec.Status)
}

func TestRestartFromStoppedIgnoresInvalidStateFromStop(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))

	require.NoError(t, sup.Restart(ctx, "app1"))
	rec, _ := sup.Get("app1")
	assert.Equal(t, ghost.StatusRunning, rec.Status)
}

func TestWatchExitClassifiesNonZeroExitAsCrashedAndStopsAutoRestartWithoutPolicy(t *testing.T) {
	fl := newScriptedLauncher()
	sink := &recordingSink{}
	sup := New(DefaultConfig(), fl, nil, sink)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	require.NoError(t, sup.Start(ctx, "app1"))

	fl.exitCh <- launcher.ExitResult{Code: 1}
	waitForStatus(t, sup, "app1", ghost.StatusCrashed)
	assert.True(t, sink.has(ghost.EventProcessCrashed))
}

func TestWatchExitAutoRestartsWhenConfigured(t *testing.T) {
	fl := newScriptedLauncher()
	fl.exitCh = make(chan launcher.ExitResult, 1)
	sup := New(DefaultConfig(), fl, nil, nil)
	sup.sleep = noSleep
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{
		ID: "app1", ExecutablePath: "/bin/true",
		Configuration: map[string]string{"AutoRestart": "true"},
	}))
	require.NoError(t, sup.Start(ctx, "app1"))

	fl.exitCh <- launcher.ExitResult{Code: 1}
	waitForStatus(t, sup, "app1", ghost.StatusRunning)

	rec, _ := sup.Get("app1")
	assert.Equal(t, 1, rec.RestartCount)
}

func TestWatchExitZeroCodeOnServiceIsCrashed(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true", Type: "service"}))
	require.NoError(t, sup.Start(ctx, "app1"))

	fl.exitCh <- launcher.ExitResult{Code: 0}
	waitForStatus(t, sup, "app1", ghost.StatusCrashed)
}

func TestWatchExitZeroCodeOnOneShotIsStopped(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true", Type: "one-shot"}))
	require.NoError(t, sup.Start(ctx, "app1"))

	fl.exitCh <- launcher.ExitResult{Code: 0}
	waitForStatus(t, sup, "app1", ghost.StatusStopped)
}

func TestCrashExceedingMaxRestartsTransitionsFailed(t *testing.T) {
	fl := newScriptedLauncher()
	cfg := DefaultConfig()
	cfg.DefaultMaxRestarts = 1
	sup := New(cfg, fl, nil, nil)
	sup.sleep = noSleep
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{
		ID: "app1", ExecutablePath: "/bin/true",
		Configuration: map[string]string{"AutoRestart": "true"},
	}))
	require.NoError(t, sup.Start(ctx, "app1"))

	fl.exitCh <- launcher.ExitResult{Code: 1}
	waitForStatus(t, sup, "app1", ghost.StatusRunning)
	fl.exitCh <- launcher.ExitResult{Code: 1}
	waitForStatus(t, sup, "app1", ghost.StatusFailed)
}

func TestStopAllStopsOnlyRunningOrStarting(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	require.NoError(t, sup.Start(ctx, "app1"))
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app2", ExecutablePath: "/bin/true"}))

	errs := sup.StopAll(ctx)
	assert.Empty(t, errs)

	rec1, _ := sup.Get("app1")
	rec2, _ := sup.Get("app2")
	assert.Equal(t, ghost.StatusStopped, rec1.Status)
	assert.Equal(t, ghost.StatusRegistered, rec2.Status)
}

func TestSeedInstallsRecordWithoutSpawning(t *testing.T) {
	fl := newScriptedLauncher()
	sup := New(DefaultConfig(), fl, nil, nil)
	sup.Seed(ghost.ProcessRecord{ID: "app1", Status: ghost.StatusRunning, PID: 55})

	rec, ok := sup.Get("app1")
	require.True(t, ok)
	assert.Equal(t, 55, rec.PID)
	assert.Zero(t, fl.starts)
}

func TestPersistenceWritesThroughToStore(t *testing.T) {
	fl := newScriptedLauncher()
	st := memory.New()
	sup := New(DefaultConfig(), fl, st, nil)
	ctx := context.Background()
	require.NoError(t, sup.Register(ctx, ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))

	recs, err := st.GetStatus(ctx, "app1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ghost.StatusRegistered, recs[0].Status)
}

func waitForStatus(t *testing.T, sup *Supervisor, id string, want ghost.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := sup.Get(id); ok && rec.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q to reach status %s", id, want.String())
}
