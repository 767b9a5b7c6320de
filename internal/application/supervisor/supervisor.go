// Package supervisor implements the Process Supervisor: the per-record
// lifecycle state machine described in spec §4.1. It owns every
// ProcessRecord mutation for managed children and is the only component
// allowed to write them to the Store.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/ghostrunctl/ghost/internal/application/idlock"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/domain/launcher"
	"github.com/ghostrunctl/ghost/internal/domain/store"
)

// EventSink receives the side effects a Supervisor produces beyond
// ProcessRecord mutations: system events and captured output lines. The
// daemon wires this to a bus.Bus-backed adapter; the Supervisor itself
// never imports the bus package, keeping it a pure application service
// over its two ports (launcher.Launcher and store.Store).
type EventSink interface {
	PublishEvent(event ghost.SystemEvent)
	PublishOutput(processID, line string)
}

// Supervisor owns the lifecycle of every managed child process.
type Supervisor struct {
	cfg      Config
	launcher launcher.Launcher
	store    store.Store
	sink     EventSink

	mu      sync.RWMutex
	records map[string]*ghost.ProcessRecord
	// pids mirrors the live pid per id, kept in step with each record's
	// PID field.
	pids map[string]int
	// crashes counts consecutive crashes per id. Start resets it unless
	// it is restarting a Crashed record, so auto-restarts accumulate
	// toward the MaxRestarts budget.
	crashes map[string]int

	locks *idlock.Table

	// sleep is injected for deterministic tests; defaults to time.Sleep.
	sleep func(time.Duration)
}

// New constructs a Supervisor. store may be nil, in which case
// persistence is skipped (used by tests that only exercise in-memory
// behavior).
func New(cfg Config, l launcher.Launcher, s store.Store, sink EventSink) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		launcher: l,
		store:    s,
		sink:     sink,
		records:  make(map[string]*ghost.ProcessRecord),
		pids:     make(map[string]int),
		crashes:  make(map[string]int),
		locks:    idlock.NewTable(),
		sleep:    time.Sleep,
	}
}

// Seed installs a record without spawning it, used on daemon startup to
// resume supervision bookkeeping for processes the Store reports as
// Starting/Running (spec §4.5 LoadActive: "discovery only; the daemon
// does not respawn automatically").
func (s *Supervisor) Seed(record ghost.ProcessRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := record.Clone()
	s.records[rec.ID] = &rec
	if rec.Status.HasPID() {
		s.pids[rec.ID] = rec.PID
	}
}

// Get returns a copy of the record for id, or false if unknown.
func (s *Supervisor) Get(id string) (ghost.ProcessRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return ghost.ProcessRecord{}, false
	}
	return rec.Clone(), true
}

// List returns a copy of every known record.
func (s *Supervisor) List() []ghost.ProcessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ghost.ProcessRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Register adds a new record at status Registered. Fails with
// AlreadyExists if id is present.
func (s *Supervisor) Register(ctx context.Context, record ghost.ProcessRecord) error {
	if record.ID == "" {
		return ghost.NewError(ghost.KindInvalidArgument, "id must not be empty")
	}
	if record.ExecutablePath == "" {
		return ghost.NewError(ghost.KindInvalidArgument, "executablePath must not be empty")
	}

	s.locks.Lock(record.ID)
	defer s.locks.Unlock(record.ID)

	s.mu.Lock()
	if _, exists := s.records[record.ID]; exists {
		s.mu.Unlock()
		return ghost.NewError(ghost.KindAlreadyExists, "process %q already registered", record.ID)
	}
	rec := record.Clone()
	rec.Status = ghost.StatusRegistered
	rec.PID = 0
	rec.UpdatedAt = time.Now()
	s.records[rec.ID] = &rec
	snapshot := rec.Clone()
	s.mu.Unlock()

	if err := s.persist(ctx, snapshot); err != nil {
		return err
	}
	if s.sink != nil {
		s.sink.PublishEvent(ghost.NewSystemEvent(ghost.EventProcessRegistered, rec.ID))
	}
	return nil
}

// ForceDeregisterAndReplace stops an existing Running record (best
// effort) and replaces it, used by the register command's force=true
// path (spec §6 register semantics).
func (s *Supervisor) ForceDeregisterAndReplace(ctx context.Context, record ghost.ProcessRecord) error {
	s.locks.Lock(record.ID)
	_, exists := s.getLocked(record.ID)
	s.locks.Unlock(record.ID)

	if exists {
		_ = s.Stop(ctx, record.ID, s.cfg.ShutdownTimeout)
		s.mu.Lock()
		delete(s.records, record.ID)
		delete(s.pids, record.ID)
		delete(s.crashes, record.ID)
		s.mu.Unlock()
	}
	return s.Register(ctx, record)
}

func (s *Supervisor) getLocked(id string) (ghost.ProcessRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return ghost.ProcessRecord{}, false
	}
	return *rec, true
}

func (s *Supervisor) mutate(id string, fn func(rec *ghost.ProcessRecord)) (ghost.ProcessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ghost.ProcessRecord{}, ghost.NewError(ghost.KindNotFound, "unknown process %q", id)
	}
	fn(rec)
	rec.UpdatedAt = time.Now()
	if rec.Status.HasPID() {
		s.pids[id] = rec.PID
	} else {
		delete(s.pids, id)
	}
	return rec.Clone(), nil
}

func (s *Supervisor) persist(ctx context.Context, rec ghost.ProcessRecord) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveProcess(ctx, rec); err != nil {
		return ghost.Wrap(ghost.KindStorageFailed, err, "save process %q", rec.ID)
	}
	return nil
}

func (s *Supervisor) persistStatus(ctx context.Context, id string, status ghost.Status) {
	if s.store == nil {
		return
	}
	_ = s.store.UpdateStatus(ctx, id, status)
}

// StopAll concurrently stops every Running/Starting record, best effort
// (spec §4.1: "logs and continues on individual failures").
func (s *Supervisor) StopAll(ctx context.Context) []error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id, rec := range s.records {
		if rec.Status == ghost.StatusRunning || rec.Status == ghost.StatusStarting {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = s.Stop(ctx, id, s.cfg.ShutdownTimeout)
		}(i, id)
	}
	wg.Wait()

	out := make([]error, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// notFound is a tiny helper to keep "unknown process" messages consistent.
func notFound(id string) error {
	return ghost.NewError(ghost.KindNotFound, "unknown process %q", id)
}
