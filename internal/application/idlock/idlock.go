// Package idlock provides a keyed mutex: one logical lock per id,
// acquired before reading or mutating that id's record. Extracted as a
// shared helper because both the Process Supervisor and the Connection
// Registry need the same per-id-serialized / cross-id-parallel locking
// discipline described in spec §5.
package idlock

import "sync"

// Table is a set of per-key mutexes, created lazily and never removed —
// Ghost's id space is small and long-lived (one entry per app for the
// life of the daemon), so there is no need to garbage-collect entries.
type Table struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTable returns an empty keyed-mutex table.
func NewTable() *Table {
	return &Table{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (t *Table) Lock(key string) {
	t.lockFor(key).Lock()
}

// Unlock releases the mutex for key.
func (t *Table) Unlock(key string) {
	t.lockFor(key).Unlock()
}

// With runs fn while holding key's lock.
func (t *Table) With(key string, fn func()) {
	t.Lock(key)
	defer t.Unlock(key)
	fn()
}

func (t *Table) lockFor(key string) *sync.Mutex {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	t.mu.Unlock()
	return l
}
