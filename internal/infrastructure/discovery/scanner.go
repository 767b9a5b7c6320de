// Package discovery walks the daemon's fixed app root and reports the
// app binaries it finds, generalized from the teacher's per-OS
// build-tag factory convention (infrastructure/probe/{bsd,darwin},
// infrastructure/resources/metrics/{linux,darwin,bsd}) applied here to
// filesystem scanning instead of metric collection.
package discovery

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// appDirName is the Ghost-specific subdirectory under the platform's
// config root (spec §6: "<userAppData>/Ghost/Apps").
const appDirName = "Ghost/Apps"

// Scanner walks the discovery root, implementing the application
// layer's FSScanner port.
type Scanner struct {
	// root overrides the computed discovery root; empty means
	// os.UserConfigDir()/Ghost/Apps.
	root string
}

// New constructs a Scanner using the platform-default discovery root.
func New() *Scanner {
	return &Scanner{}
}

// NewWithRoot constructs a Scanner rooted at an explicit path, used by
// tests and by deployments that relocate the apps directory.
func NewWithRoot(root string) *Scanner {
	return &Scanner{root: root}
}

// Root resolves the discovery root, honoring the explicit override.
func (s *Scanner) Root() (string, error) {
	if s.root != "" {
		return s.root, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

// Scan lists every direct subdirectory of the discovery root containing
// an executable matching the directory name, returning one unregistered
// ProcessRecord per app found (spec §6 Discovery root semantics: type
// "app", version "1.0.0", empty env/config, cwd == app directory).
func (s *Scanner) Scan(ctx context.Context) ([]ghost.ProcessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := s.Root()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var found []ghost.ProcessRecord
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		if !entry.IsDir() {
			continue
		}

		appDir := filepath.Join(root, entry.Name())
		execPath := filepath.Join(appDir, executableName(entry.Name()))

		info, statErr := os.Stat(execPath)
		if statErr != nil || info.IsDir() {
			continue
		}

		found = append(found, ghost.ProcessRecord{
			ID:               entry.Name(),
			Name:             entry.Name(),
			Type:             "app",
			Version:          "1.0.0",
			ExecutablePath:   execPath,
			WorkingDirectory: appDir,
		})
	}

	return found, nil
}
