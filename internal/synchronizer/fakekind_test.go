package synchronizer

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/artisync/internal/artifact"
)

// fakeKind is an in-memory kind for synchronizer tests.
//
// Declarations are JSON: {"name": "...", "depends": [...], "parts": [...]}.
// With parts, one artifact is produced per part at "<path>#<part>".
// The content "panic" makes Parse panic.
type fakeKind struct {
	name string
	ext  string

	mu          sync.Mutex
	rows        map[string]artifact.Artifact // by key
	failPersist map[string]bool              // by location
	failRemove  map[string]bool              // by location
	findErr     error
	block       chan struct{} // when set, Persist waits on it
	persisted   []string
	removed     []string
}

type fakeDecl struct {
	Name    string   `json:"name"`
	Depends []string `json:"depends"`
	Parts   []string `json:"parts"`
}

func newFakeKind(name string) *fakeKind {
	return &fakeKind{
		name:        name,
		ext:         "." + name,
		rows:        make(map[string]artifact.Artifact),
		failPersist: make(map[string]bool),
		failRemove:  make(map[string]bool),
	}
}

func (k *fakeKind) Name() string                { return k.name }
func (k *fakeKind) IsAccepted(path string) bool { return strings.HasSuffix(path, k.ext) }
func (k *fakeKind) IsAcceptedType(t string) bool {
	return t == k.name
}

func (k *fakeKind) Parse(location string, content []byte) ([]artifact.Artifact, error) {
	if string(content) == "panic" {
		panic("decoder bug")
	}
	var d fakeDecl
	if err := json.Unmarshal(content, &d); err != nil {
		return nil, artifact.NewMalformedError(k.name, location, "invalid json", err)
	}
	if d.Name == "" && len(d.Parts) == 0 {
		return nil, errors.New("name is required")
	}

	deps := make([]artifact.Reference, len(d.Depends))
	for i, dep := range d.Depends {
		deps[i] = artifact.Reference(dep)
	}

	if len(d.Parts) == 0 {
		a, err := artifact.New(k.name, location, location, d.Name, map[string]any{"name": d.Name}, deps)
		if err != nil {
			return nil, err
		}
		return []artifact.Artifact{a}, nil
	}

	var out []artifact.Artifact
	for _, p := range d.Parts {
		a, err := artifact.New(k.name, location, location+"#"+p, p, map[string]any{"part": p}, deps)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (k *fakeKind) Persist(ctx context.Context, a artifact.Artifact) (artifact.Artifact, error) {
	if k.block != nil {
		select {
		case <-k.block:
		case <-ctx.Done():
			return artifact.Artifact{}, ctx.Err()
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.persisted = append(k.persisted, a.Location)
	if k.failPersist[a.Location] {
		return artifact.Artifact{}, errors.New("disk full")
	}
	if prev, ok := k.rows[a.Key]; ok {
		a.ID = prev.ID
		a.CreatedBy = prev.CreatedBy
		a.CreatedAt = prev.CreatedAt
	} else {
		a.ID = int64(len(k.rows) + 1)
	}
	k.rows[a.Key] = a
	return a, nil
}

func (k *fakeKind) Remove(_ context.Context, a artifact.Artifact) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.removed = append(k.removed, a.Location)
	if k.failRemove[a.Location] {
		return errors.New("locked")
	}
	delete(k.rows, a.Key)
	return nil
}

func (k *fakeKind) Dependencies(a artifact.Artifact) []artifact.Reference {
	return a.Dependencies
}

func (k *fakeKind) FindAll(context.Context) ([]artifact.Artifact, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.findErr != nil {
		return nil, k.findErr
	}
	out := make([]artifact.Artifact, 0, len(k.rows))
	for _, a := range k.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

func (k *fakeKind) SetState(_ context.Context, kind, key string, lifecycle artifact.Lifecycle, message string, at time.Time) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	a, ok := k.rows[key]
	if !ok || kind != k.name {
		return false, nil
	}
	a.Lifecycle = lifecycle
	a.Message = message
	a.UpdatedAt = at
	k.rows[key] = a
	return true, nil
}

func (k *fakeKind) row(location string) (artifact.Artifact, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, a := range k.rows {
		if a.Location == location {
			return a, true
		}
	}
	return artifact.Artifact{}, false
}

func (k *fakeKind) calls() (persisted, removed []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.persisted...), append([]string(nil), k.removed...)
}

func (k *fakeKind) resetCalls() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.persisted = nil
	k.removed = nil
}

// sameDirectionKind removes artifacts in creation order.
type sameDirectionKind struct {
	*fakeKind
}

func (k sameDirectionKind) RemovalDependencies(a artifact.Artifact, _ []artifact.Artifact) []artifact.Reference {
	return a.Dependencies
}

// scopedKind provides the file stem of a malformed declaration and resolves
// its references against deps only.
type scopedKind struct {
	*fakeKind
	deps []string
}

func (k scopedKind) ProvidedRefs(location string, _ []byte) []artifact.Reference {
	base := location[strings.LastIndex(location, "/")+1:]
	return []artifact.Reference{artifact.Reference(strings.TrimSuffix(base, k.ext))}
}

func (k scopedKind) DependencyKinds() []string {
	return k.deps
}
