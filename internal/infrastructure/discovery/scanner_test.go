package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
}

func TestScanFindsAppDirectoriesWithMatchingExecutable(t *testing.T) {
	root := t.TempDir()

	writeExecutable(t, filepath.Join(root, "appone", executableName("appone")))
	writeExecutable(t, filepath.Join(root, "apptwo", executableName("apptwo")))

	// A directory with no matching executable must be skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	// A stray file at the root (not a directory) must be skipped.
	require.NoError(t, os.WriteFile(filepath.Join(root, "notadir"), []byte("x"), 0o644))

	s := NewWithRoot(root)
	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	ids := []string{records[0].ID, records[1].ID}
	assert.ElementsMatch(t, []string{"appone", "apptwo"}, ids)
	for _, rec := range records {
		assert.Equal(t, "app", rec.Type)
		assert.Equal(t, "1.0.0", rec.Version)
		assert.Equal(t, filepath.Join(root, rec.ID), rec.WorkingDirectory)
	}
}

func TestScanReturnsNilOnMissingRoot(t *testing.T) {
	s := NewWithRoot(filepath.Join(t.TempDir(), "does-not-exist"))
	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestScanRespectsContextCancellation(t *testing.T) {
	root := t.TempDir()
	writeExecutable(t, filepath.Join(root, "appone", executableName("appone")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewWithRoot(root)
	_, err := s.Scan(ctx)
	assert.Error(t, err)
}

func TestRootHonorsExplicitOverride(t *testing.T) {
	s := NewWithRoot("/custom/path")
	root, err := s.Root()
	require.NoError(t, err)
	assert.Equal(t, "/custom/path", root)
}
