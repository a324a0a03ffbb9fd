package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/artisync/internal/artifact"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestArtifact creates a SUCCEEDED artifact with minimal required fields.
func createTestArtifact(t *testing.T, kind, location string, payload map[string]any, deps ...artifact.Reference) artifact.Artifact {
	t.Helper()
	a, err := artifact.New(kind, location, location, location, payload, deps)
	if err != nil {
		t.Fatalf("artifact.New() failed: %v", err)
	}
	a.Lifecycle = artifact.LifecycleSucceeded
	a.CreatedBy = "tester"
	a.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.UpdatedAt = a.CreatedAt
	return a
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
