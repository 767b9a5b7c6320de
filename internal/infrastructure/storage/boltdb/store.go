// Package boltdb provides the durable State Store backend using an
// embedded BoltDB database (spec §4.5).
package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/domain/store"
)

var _ store.Store = (*Store)(nil)

const (
	dbFileMode    os.FileMode = 0o600
	dbOpenTimeout             = 5 * time.Second
	// metricRetention is the minimum window of MetricSamples kept per
	// process id (spec §3: "the store keeps at least the last 24 hours").
	metricRetention = 24 * time.Hour
)

var (
	bucketProcesses      = []byte("processes")
	bucketProcessMetrics = []byte("process_metrics")
	bucketKV             = []byte("kv")
	bucketMetadata       = []byte("metadata")

	keyCreated = []byte("created")
	keyVersion = []byte("version")

	schemaVersion = int64(1)

	bufferPool = sync.Pool{
		New: func() any { return new(bytes.Buffer) },
	}
)

// Store implements store.Store using BoltDB.
type Store struct {
	db *bolt.DB
}

// Open creates or opens a BoltDB store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, dbFileMode, &bolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketProcesses, bucketProcessMetrics, bucketKV, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		meta := tx.Bucket(bucketMetadata)
		if meta.Get(keyCreated) == nil {
			if err := meta.Put(keyCreated, int64ToBytes(time.Now().UnixNano())); err != nil {
				return err
			}
			if err := meta.Put(keyVersion, int64ToBytes(schemaVersion)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveProcess upserts record into the processes bucket.
func (s *Store) SaveProcess(ctx context.Context, record ghost.ProcessRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := encode(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProcesses).Put([]byte(record.ID), value)
	})
}

// UpdateStatus changes only the status of the stored record (clearing
// PID when the new status carries none): decode, mutate, re-encode and
// put, all inside one bolt transaction.
func (s *Store) UpdateStatus(ctx context.Context, id string, status ghost.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcesses)
		raw := b.Get([]byte(id))
		if raw == nil {
			return ghost.NewError(ghost.KindNotFound, "unknown process %q", id)
		}
		var rec ghost.ProcessRecord
		if err := decode(raw, &rec); err != nil {
			return err
		}
		rec.Status = status
		rec.UpdatedAt = time.Now()
		if !status.HasPID() {
			rec.PID = 0
		}
		value, err := encode(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), value)
	})
}

// SaveMetric appends sample to its process's nested bucket and trims
// entries older than metricRetention, within one transaction (spec
// §4.5: "wraps in a transaction with any concurrent metric writes").
func (s *Store) SaveMetric(ctx context.Context, sample ghost.MetricSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := encode(sample)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bucketProcessMetrics)
		b, err := parent.CreateBucketIfNotExists([]byte(sample.ProcessID))
		if err != nil {
			return fmt.Errorf("create process metrics bucket: %w", err)
		}
		if err := b.Put(timeToKey(sample.Timestamp), value); err != nil {
			return err
		}
		cutoff := timeToKey(time.Now().Add(-metricRetention))
		_, err = pruneBucket(b, cutoff)
		return err
	})
}

// LoadActive returns every record with status Starting or Running.
func (s *Store) LoadActive(ctx context.Context) ([]ghost.ProcessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ghost.ProcessRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProcesses).ForEach(func(_, v []byte) error {
			var rec ghost.ProcessRecord
			if err := decode(v, &rec); err != nil {
				return err
			}
			if rec.Status == ghost.StatusStarting || rec.Status == ghost.StatusRunning {
				out = append(out, rec)
			}
			return nil
		})
	})
	return out, err
}

// GetStatus returns id's record, or every record when id is empty.
func (s *Store) GetStatus(ctx context.Context, id string) ([]ghost.ProcessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ghost.ProcessRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcesses)
		if id != "" {
			raw := b.Get([]byte(id))
			if raw == nil {
				return nil
			}
			var rec ghost.ProcessRecord
			if err := decode(raw, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var rec ghost.ProcessRecord
			if err := decode(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// GetMetrics returns samples for id within [since, until].
func (s *Store) GetMetrics(ctx context.Context, id string, since, until time.Time) ([]ghost.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ghost.MetricSample
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bucketProcessMetrics)
		b := parent.Bucket([]byte(id))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		sinceKey, untilKey := timeToKey(since), timeToKey(until)
		for k, v := c.Seek(sinceKey); k != nil && bytes.Compare(k, untilKey) <= 0; k, v = c.Next() {
			var sample ghost.MetricSample
			if err := decode(v, &sample); err != nil {
				return err
			}
			out = append(out, sample)
		}
		return nil
	})
	return out, err
}

// Checkpoint flips every Running record to Stopped, used during
// graceful daemon shutdown (spec §4.5, §8 scenario 6).
func (s *Store) Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcesses)
		var toUpdate []ghost.ProcessRecord
		err := b.ForEach(func(_, v []byte) error {
			var rec ghost.ProcessRecord
			if err := decode(v, &rec); err != nil {
				return err
			}
			if rec.Status == ghost.StatusRunning || rec.Status == ghost.StatusStarting {
				rec.Status = ghost.StatusStopped
				rec.PID = 0
				rec.UpdatedAt = time.Now()
				toUpdate = append(toUpdate, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, rec := range toUpdate {
			value, err := encode(rec)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(rec.ID), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// KVPut stores value under key with an optional expiry (spec §6 kv facet).
func (s *Store) KVPut(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := kvEntry{Value: value, CreatedAt: time.Now(), ExpiresAt: expiresAt}
	encoded, err := encode(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), encoded)
	})
}

// KVGet returns the value for key, or ok=false if absent or expired.
func (s *Store) KVGet(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var out []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketKV).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var entry kvEntry
		if err := decode(raw, &entry); err != nil {
			return err
		}
		if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
			return nil
		}
		found = true
		out = entry.Value
		return nil
	})
	return out, found, err
}

// KVDelete removes key, no-op if absent.
func (s *Store) KVDelete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Delete([]byte(key))
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type kvEntry struct {
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

func timeToKey(t time.Time) []byte { return int64ToBytes(t.UnixNano()) }

func int64ToBytes(n int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	return buf[:]
}

func encode(v any) ([]byte, error) {
	buf, ok := bufferPool.Get().(*bytes.Buffer)
	if !ok {
		buf = new(bytes.Buffer)
	}
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// pruneBucket removes entries with a key below cutoff, collecting doomed
// keys before deleting to avoid invalidating the cursor mid-scan.
func pruneBucket(b *bolt.Bucket, cutoff []byte) (int, error) {
	var toDelete [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil && bytes.Compare(k, cutoff) < 0; k, _ = c.Next() {
		toDelete = append(toDelete, slices.Clone(k))
	}
	for _, k := range toDelete {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(toDelete), nil
}
