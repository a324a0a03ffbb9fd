package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory repository, used by tests and the scenario harness.
//
// Thread-safety: Memory is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	resources map[string][]byte

	// Err, when set, is returned by every read. It simulates an unreachable
	// repository.
	Err error
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{resources: make(map[string][]byte)}
}

// List returns the resources under prefix selected by accept, sorted by path.
// A prefix holding no resources is reported like a missing directory, except
// for the root.
func (m *Memory) List(ctx context.Context, prefix string, accept Filter) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	prefix, err := CleanPath(prefix)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Resource, 0, len(m.resources))
	found := prefix == "/"
	for p, content := range m.resources {
		if !hasPrefix(p, prefix) {
			continue
		}
		found = true
		if !accept.match(p) {
			continue
		}
		out = append(out, Resource{Path: p, Content: append([]byte(nil), content...)})
	}
	if !found {
		return nil, fmt.Errorf("list %s: directory missing: %w", prefix, ErrNotFound)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Exists reports whether a resource exists at path.
func (m *Memory) Exists(ctx context.Context, p string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	p, err := CleanPath(p)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.resources[p]
	return ok, nil
}

// Content returns the bytes at path.
func (m *Memory) Content(ctx context.Context, p string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.resources[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return append([]byte(nil), content...), nil
}

// Write stores content at path, replacing any previous content.
func (m *Memory) Write(ctx context.Context, p string, content []byte) error {
	p, err := CleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[p] = append([]byte(nil), content...)
	return nil
}

// Delete removes the resource at path. Deleting a missing resource is a no-op.
func (m *Memory) Delete(ctx context.Context, p string) error {
	p, err := CleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resources, p)
	return nil
}
