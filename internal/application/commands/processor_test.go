package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	cachemem "github.com/ghostrunctl/ghost/internal/infrastructure/cache/memory"
	"github.com/ghostrunctl/ghost/internal/infrastructure/launcher/osexec"
)

func TestProcessDispatchesToPingHandler(t *testing.T) {
	p := New(Deps{Version: "1.2.3", StartedAt: time.Now()})
	resp := p.Process(context.Background(), ghost.Command{CommandID: "c1", CommandType: "ping"})
	require.True(t, resp.Success)
	payload, ok := resp.Data.(PingPayload)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", payload.DaemonVersion)
}

func TestProcessFailsOnUnknownCommandType(t *testing.T) {
	p := New(Deps{})
	resp := p.Process(context.Background(), ghost.Command{CommandID: "c1", CommandType: "nonsense"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown command type")
}

func TestProcessIsCaseInsensitiveOnCommandType(t *testing.T) {
	p := New(Deps{Version: "1.0.0"})
	resp := p.Process(context.Background(), ghost.Command{CommandID: "c1", CommandType: " PING "})
	assert.True(t, resp.Success)
}

func TestProcessReplaysCachedResponseForRepeatedCommandID(t *testing.T) {
	sup := supervisor.New(supervisor.DefaultConfig(), osexec.New(), nil, nil)
	c := cachemem.New()
	p := New(Deps{Supervisor: sup, Cache: c})

	first := p.Process(context.Background(), ghost.Command{
		CommandID:   "dup-1",
		CommandType: "start",
		Parameters:  map[string]string{ghost.ParamProcessID: "unknown-app"},
	})
	assert.False(t, first.Success)

	// Register the target between the two calls: if dedup didn't work,
	// the second Process call would dispatch to handleStart again, find
	// the now-registered /bin/true and succeed instead of failing.
	require.NoError(t, sup.Register(context.Background(), ghost.ProcessRecord{ID: "unknown-app", ExecutablePath: "/bin/true"}))

	second := p.Process(context.Background(), ghost.Command{
		CommandID:   "dup-1",
		CommandType: "start",
		Parameters:  map[string]string{ghost.ParamProcessID: "unknown-app"},
	})
	assert.Equal(t, first.Success, second.Success, "a repeated commandId must replay the cached Response rather than re-dispatching")
	assert.Equal(t, first.Error, second.Error, "the now-registered app must not change the replayed error")
}

func TestProcessWithoutCacheDoesNotDedup(t *testing.T) {
	p := New(Deps{})
	first := p.Process(context.Background(), ghost.Command{CommandID: "dup-1", CommandType: "nonsense"})
	second := p.Process(context.Background(), ghost.Command{CommandID: "dup-1", CommandType: "nonsense"})
	assert.False(t, first.Success)
	assert.False(t, second.Success)
	assert.NotEqual(t, first.Timestamp, second.Timestamp, "without a cache every call dispatches independently")
}

func TestHandleStatusReturnsNotFoundForUnknownID(t *testing.T) {
	sup := supervisor.New(supervisor.DefaultConfig(), osexec.New(), nil, nil)
	p := New(Deps{Supervisor: sup})
	resp := p.Process(context.Background(), ghost.Command{
		CommandID:   "c1",
		CommandType: "status",
		Parameters:  map[string]string{ghost.ParamProcessID: "ghost-app"},
	})
	assert.False(t, resp.Success)
}

func TestHandleStatusWithoutIDListsAllRecords(t *testing.T) {
	sup := supervisor.New(supervisor.DefaultConfig(), osexec.New(), nil, nil)
	require.NoError(t, sup.Register(context.Background(), ghost.ProcessRecord{ID: "app1", ExecutablePath: "/bin/true"}))
	p := New(Deps{Supervisor: sup})

	resp := p.Process(context.Background(), ghost.Command{CommandID: "c1", CommandType: "status"})
	require.True(t, resp.Success)
	records, ok := resp.Data.([]ghost.ProcessRecord)
	require.True(t, ok)
	assert.Len(t, records, 1)
}
