// Package discovery implements the Discovery Scanner use case: walking
// the fixed app root and registering whatever the infrastructure
// scanner finds through the same Supervisor.Register path the register
// command uses, so discovered apps go through identical validation
// (spec §6: "discovery does not bypass validation").
package discovery

import (
	"context"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// FSScanner is the port over the filesystem walk; infrastructure/
// discovery implements it.
type FSScanner interface {
	Scan(ctx context.Context) ([]ghost.ProcessRecord, error)
}

// Registrar is the subset of Supervisor discovery depends on.
type Registrar interface {
	Register(ctx context.Context, record ghost.ProcessRecord) error
}

// Scanner runs one discovery pass: scan, then register every record the
// Supervisor doesn't already know about.
type Scanner struct {
	fs        FSScanner
	registrar Registrar
}

// New constructs a discovery Scanner.
func New(fs FSScanner, registrar Registrar) *Scanner {
	return &Scanner{fs: fs, registrar: registrar}
}

// Run performs one discovery pass, returning the count of apps newly
// registered (spec §6: the discover command's response data is "count
// of discovered apps"). A Register failure for one app (e.g.
// AlreadyExists because it was already registered) does not abort the
// pass; it's simply not counted.
func (s *Scanner) Run(ctx context.Context) (int, error) {
	records, err := s.fs.Scan(ctx)
	if err != nil {
		return 0, ghost.Wrap(ghost.KindInternal, err, "discovery scan failed")
	}

	registered := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return registered, err
		}
		if err := s.registrar.Register(ctx, rec); err == nil {
			registered++
		}
	}
	return registered, nil
}
