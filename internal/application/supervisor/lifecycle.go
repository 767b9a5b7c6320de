package supervisor

import (
	"context"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/domain/launcher"
)

// startable reports whether Start may be called from status (spec §4.1).
func startable(status ghost.Status) bool {
	switch status {
	case ghost.StatusRegistered, ghost.StatusStopped, ghost.StatusCrashed, ghost.StatusFailed:
		return true
	default:
		return false
	}
}

// Start attempts to spawn the process for id, retrying with exponential
// backoff up to cfg.MaxStartAttempts, bounded by cfg.StartupTimeout.
func (s *Supervisor) Start(ctx context.Context, id string) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	rec, ok := s.getLocked(id)
	if !ok {
		return notFound(id)
	}
	if rec.Status == ghost.StatusRunning {
		// Start on an already-Running record is a no-op (spec §8).
		return nil
	}
	if !startable(rec.Status) {
		return ghost.NewError(ghost.KindInvalidState, "cannot start process %q from status %s", id, rec.Status)
	}
	if rec.Status != ghost.StatusCrashed {
		s.crashesReset(id)
	}

	if s.cfg.MaxStartAttempts <= 0 {
		s.transitionFailed(ctx, id, "maxStartAttempts is 0")
		return ghost.NewError(ghost.KindStartFailed, "maxStartAttempts is 0, refusing to spawn %q", id)
	}

	rec, _ = s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusStarting
	})
	s.persistStatus(ctx, id, ghost.StatusStarting)

	deadline := time.Now().Add(s.cfg.StartupTimeout)
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxStartAttempts; attempt++ {
		if time.Now().After(deadline) {
			lastErr = ghost.NewError(ghost.KindTimeout, "startupTimeout exceeded for %q", id)
			break
		}

		pid, exit, err := s.launcher.Start(ctx, s.toSpec(rec))
		if err == nil {
			s.onSpawned(ctx, id, pid, exit, rec)
			return nil
		}
		lastErr = err

		if attempt < s.cfg.MaxStartAttempts {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			s.sleep(backoff)
		}
	}

	s.transitionFailed(ctx, id, lastErr.Error())
	return ghost.Wrap(ghost.KindStartFailed, lastErr, "start failed for %q after %d attempts", id, s.cfg.MaxStartAttempts)
}

func (s *Supervisor) transitionFailed(ctx context.Context, id, reason string) {
	s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusFailed
		r.PID = 0
	})
	s.persistStatus(ctx, id, ghost.StatusFailed)
	if s.sink != nil {
		s.sink.PublishEvent(ghost.NewSystemEvent(ghost.EventProcessCrashed, id).WithData("reason", reason))
	}
}

func (s *Supervisor) toSpec(rec ghost.ProcessRecord) launcher.Spec {
	spec := launcher.Spec{
		ExecutablePath:   rec.ExecutablePath,
		Arguments:        rec.Arguments,
		WorkingDirectory: rec.WorkingDirectory,
		Environment:      rec.Environment,
	}
	if s.sink != nil {
		id := rec.ID
		spec.OnOutputLine = func(line string) {
			s.sink.PublishOutput(id, line)
		}
	}
	return spec
}

// onSpawned records a successful spawn and starts the background exit
// watcher for the child.
func (s *Supervisor) onSpawned(ctx context.Context, id string, pid int, exit <-chan launcher.ExitResult, rec ghost.ProcessRecord) {
	now := time.Now()
	snapshot, err := s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusRunning
		r.PID = pid
		r.StartedAt = now
	})
	if err != nil {
		return
	}
	_ = s.persist(ctx, snapshot)

	go s.watchExit(id, exit)
}

func (s *Supervisor) crashesReset(id string) {
	s.mu.Lock()
	delete(s.crashes, id)
	s.mu.Unlock()
}

// watchExit blocks for the child's exit result and classifies it per
// spec §4.1 exit-handling rules.
func (s *Supervisor) watchExit(id string, exit <-chan launcher.ExitResult) {
	result, ok := <-exit
	if !ok {
		return
	}

	ctx := context.Background()
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	rec, ok := s.getLocked(id)
	if !ok {
		return
	}

	// An exit while Stopping is always classified Stopped, regardless of
	// exit code (spec §4.1).
	if rec.Status == ghost.StatusStopping {
		s.finishStop(ctx, id)
		return
	}

	crashed := classifyExit(rec, result)
	if crashed {
		s.onCrashed(ctx, id, rec)
		return
	}

	s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusStopped
		r.PID = 0
	})
	s.persistStatus(ctx, id, ghost.StatusStopped)
	if s.sink != nil {
		s.sink.PublishEvent(ghost.NewSystemEvent(ghost.EventProcessStopped, id))
	}
}

// classifyExit implements spec §4.1: non-zero codes are always Crashed;
// a zero code is Stopped unless the record is a "service", in which case
// a zero exit is also Crashed (services aren't expected to terminate).
func classifyExit(rec ghost.ProcessRecord, result launcher.ExitResult) bool {
	if result.Code != 0 {
		return true
	}
	return rec.IsService()
}

func (s *Supervisor) onCrashed(ctx context.Context, id string, rec ghost.ProcessRecord) {
	s.mutate(id, func(r *ghost.ProcessRecord) {
		r.Status = ghost.StatusCrashed
		r.PID = 0
	})
	s.persistStatus(ctx, id, ghost.StatusCrashed)

	s.mu.Lock()
	s.crashes[id]++
	count := s.crashes[id]
	s.mu.Unlock()

	maxRestarts := rec.MaxRestarts(s.cfg.DefaultMaxRestarts)
	if !rec.AutoRestart() || count > maxRestarts {
		if s.sink != nil {
			s.sink.PublishEvent(ghost.NewSystemEvent(ghost.EventProcessCrashed, id))
		}
		if count > maxRestarts {
			s.mutate(id, func(r *ghost.ProcessRecord) { r.Status = ghost.StatusFailed })
			s.persistStatus(ctx, id, ghost.StatusFailed)
		}
		return
	}

	delay := rec.RestartDelay(s.cfg.DefaultRestartDelay)
	go func() {
		s.sleep(delay)
		_ = s.Restart(context.Background(), id)
	}()
}
