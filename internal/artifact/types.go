package artifact

import (
	"fmt"
	"time"
)

// Lifecycle is the last lifecycle transition recorded for an artifact.
type Lifecycle string

const (
	LifecycleDiscovered Lifecycle = "DISCOVERED"
	LifecycleProcessing Lifecycle = "PROCESSING"
	LifecycleSucceeded  Lifecycle = "SUCCEEDED"
	LifecycleFailed     Lifecycle = "FAILED"
	LifecycleStalled    Lifecycle = "STALLED"
	LifecycleRemoved    Lifecycle = "REMOVED"
)

// Valid reports whether l is a known lifecycle value.
func (l Lifecycle) Valid() bool {
	switch l {
	case LifecycleDiscovered, LifecycleProcessing, LifecycleSucceeded,
		LifecycleFailed, LifecycleStalled, LifecycleRemoved:
		return true
	}
	return false
}

// Reference names a prerequisite of an artifact, either by location or by name.
type Reference string

// Artifact is one declared, reconcilable unit.
//
// Payload holds the kind-specific fields. The engine treats it as opaque; it
// only takes part in the content Hash.
type Artifact struct {
	ID           int64          `json:"id,omitempty"`
	Kind         string         `json:"kind"`
	Location     string         `json:"location"`
	Source       string         `json:"source"`
	Name         string         `json:"name"`
	Key          string         `json:"key"`
	Hash         string         `json:"hash"`
	Dependencies []Reference    `json:"dependencies,omitempty"`
	Lifecycle    Lifecycle      `json:"lifecycle"`
	Message      string         `json:"message,omitempty"`
	CreatedBy    string         `json:"created_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitzero"`
	UpdatedAt    time.Time      `json:"updated_at,omitzero"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// New builds a DISCOVERED artifact and computes its Key and Hash.
//
// The payload is normalized first so that content decoded from JSON, YAML or
// CUE hashes identically for identical values.
func New(kind, source, location, name string, payload map[string]any, deps []Reference) (Artifact, error) {
	if kind == "" {
		return Artifact{}, fmt.Errorf("new artifact: kind is required")
	}
	if location == "" {
		return Artifact{}, fmt.Errorf("new artifact: location is required")
	}

	normalized, err := NormalizeObject(payload)
	if err != nil {
		return Artifact{}, fmt.Errorf("new artifact %s: %w", location, err)
	}

	a := Artifact{
		Kind:         kind,
		Location:     location,
		Source:       source,
		Name:         name,
		Dependencies: append([]Reference(nil), deps...),
		Lifecycle:    LifecycleDiscovered,
		Payload:      normalized,
	}

	a.Key, err = KeyOf(kind, location)
	if err != nil {
		return Artifact{}, err
	}
	a.Hash, err = HashOf(a)
	if err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Refs returns the references under which other artifacts may depend on a:
// its location and, when set, its name.
func (a Artifact) Refs() []Reference {
	refs := []Reference{Reference(a.Location)}
	if a.Name != "" && a.Name != a.Location {
		refs = append(refs, Reference(a.Name))
	}
	return refs
}

// DependsOn reports whether a declares ref as a prerequisite.
func (a Artifact) DependsOn(ref Reference) bool {
	for _, d := range a.Dependencies {
		if d == ref {
			return true
		}
	}
	return false
}

// String renders the artifact as kind:location.
func (a Artifact) String() string {
	return a.Kind + ":" + a.Location
}
