package supervisor

import (
	"context"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/domain/launcher"
)

// Stop sends a cooperative termination signal to id's child, forcing a
// kill if it has not exited within timeout. Valid only from
// Starting/Running; a Stop on an already-Stopped record is a no-op.
func (s *Supervisor) Stop(ctx context.Context, id string, timeout time.Duration) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	rec, ok := s.getLocked(id)
	if !ok {
		return notFound(id)
	}
	if rec.Status == ghost.StatusStopped {
		// Stop on an already-Stopped record is a no-op (spec §8).
		return nil
	}
	if rec.Status != ghost.StatusStarting && rec.Status != ghost.StatusRunning {
		return ghost.NewError(ghost.KindInvalidState, "cannot stop process %q from status %s", id, rec.Status)
	}

	pid := rec.PID
	s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusStopping
	})
	s.persistStatus(ctx, id, ghost.StatusStopping)

	if timeout <= 0 {
		// shutdownTimeout=0 forces a kill on first attempt (spec §8).
		if err := s.launcher.Stop(pid, 0); err != nil {
			s.finishStopWithError(ctx, id)
			return ghost.Wrap(ghost.KindStopFailed, err, "forced kill failed for %q", id)
		}
		s.finishStop(ctx, id)
		return nil
	}

	if err := s.launcher.Stop(pid, timeout); err != nil {
		s.finishStopWithError(ctx, id)
		return ghost.Wrap(ghost.KindStopFailed, err, "stop failed for %q", id)
	}
	s.finishStop(ctx, id)
	return nil
}

// finishStop marks id Stopped. Safe to call even if the exit watcher
// races it in, since mutate is idempotent on an already-stopped record.
func (s *Supervisor) finishStop(ctx context.Context, id string) {
	s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusStopped
		r.PID = 0
	})
	s.persistStatus(ctx, id, ghost.StatusStopped)
	if s.sink != nil {
		s.sink.PublishEvent(ghost.NewSystemEvent(ghost.EventProcessStopped, id))
	}
}

// finishStopWithError still updates the record to the best-known status
// even though the kill itself failed (spec §4.1: "partial failure (kill
// fails) returns StopFailed but still updates record to best-known
// status").
func (s *Supervisor) finishStopWithError(ctx context.Context, id string) {
	s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusStopped
		r.PID = 0
	})
	s.persistStatus(ctx, id, ghost.StatusStopped)
}

// StopDefault stops id using the Supervisor's configured ShutdownTimeout,
// for callers (the stop command handler) that don't need a custom
// timeout.
func (s *Supervisor) StopDefault(ctx context.Context, id string) error {
	return s.Stop(ctx, id, s.cfg.ShutdownTimeout)
}

// Restart stops id (ignoring NotRunning) then starts it, incrementing
// restartCount.
func (s *Supervisor) Restart(ctx context.Context, id string) error {
	stopErr := s.Stop(ctx, id, s.cfg.ShutdownTimeout)
	if stopErr != nil && ghost.KindOf(stopErr) != ghost.KindInvalidState {
		return stopErr
	}

	s.locks.Lock(id)
	s.mutate(id, func(r *ghost.ProcessRecord) {
		r.RestartCount++
	})
	s.locks.Unlock(id)

	return s.Start(ctx, id)
}

// RunOnce spawns an ephemeral, untracked child — used by the run command
// (spec §4.1, §6). When waitForExit is true it blocks until the child
// exits and returns its exit code.
func (s *Supervisor) RunOnce(ctx context.Context, executable string, args []string, cwd string, waitForExit bool) (pid int, exitCode int, err error) {
	spec := launcher.Spec{
		ExecutablePath:   executable,
		Arguments:        args,
		WorkingDirectory: cwd,
	}
	pid, exit, err := s.launcher.Start(ctx, spec)
	if err != nil {
		return 0, 0, ghost.Wrap(ghost.KindStartFailed, err, "run failed for %q", executable)
	}
	if !waitForExit {
		go func() { <-exit }()
		return pid, 0, nil
	}
	result := <-exit
	return pid, result.Code, result.Error
}
