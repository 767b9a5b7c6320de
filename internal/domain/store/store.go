// Package store defines the abstract durable-persistence capability the
// Supervisor Daemon depends on (spec §4.5). Concrete backends live under
// internal/infrastructure/storage.
package store

import (
	"context"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// Store is the durable projection of ProcessRecord and MetricSample,
// plus the optional key-value facet from spec §6.
type Store interface {
	// SaveProcess upserts a record, transactionally with respect to any
	// concurrent metric write for the same id.
	SaveProcess(ctx context.Context, record ghost.ProcessRecord) error
	// UpdateStatus performs a partial, non-transactional status update.
	UpdateStatus(ctx context.Context, id string, status ghost.Status) error
	// SaveMetric appends a sample and trims entries older than 24h for
	// the same process id, within one transaction.
	SaveMetric(ctx context.Context, sample ghost.MetricSample) error

	// LoadActive returns records with status Starting or Running, used
	// on daemon startup to seed in-memory tables without respawning.
	LoadActive(ctx context.Context) ([]ghost.ProcessRecord, error)
	// GetStatus returns one ProcessRecord's joined status+latest-metric
	// view, or all of them when id is empty.
	GetStatus(ctx context.Context, id string) ([]ghost.ProcessRecord, error)
	// GetMetrics returns samples for id within [since, until].
	GetMetrics(ctx context.Context, id string, since, until time.Time) ([]ghost.MetricSample, error)

	// Checkpoint flips any record still marked Running to Stopped; used
	// during graceful daemon shutdown.
	Checkpoint(ctx context.Context) error

	// KVPut/KVGet/KVDelete implement the optional ad-hoc key-value facet
	// from spec §6. expiresAt is zero for entries that never expire.
	KVPut(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	KVGet(ctx context.Context, key string) ([]byte, bool, error)
	KVDelete(ctx context.Context, key string) error

	// Close releases underlying resources.
	Close() error
}
