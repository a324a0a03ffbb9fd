package artifact

import "context"

// Kind is the capability surface a kind plugin exposes to the engine.
//
// The engine never inspects payloads; everything kind-specific happens behind
// these methods.
type Kind interface {
	// Name returns the kind discriminator stored on every artifact of the kind.
	Name() string

	// IsAccepted reports whether a repository path holds a declaration of
	// this kind. Pure function.
	IsAccepted(path string) bool

	// IsAcceptedType reports whether a stored kind discriminator belongs to
	// this kind. Pure function.
	IsAcceptedType(kind string) bool

	// Parse deserializes one declaration into zero or more artifacts.
	// Invalid content yields a *MalformedArtifactError.
	Parse(location string, content []byte) ([]Artifact, error)

	// Persist upserts by Key, preserving the identity of an existing row.
	Persist(ctx context.Context, a Artifact) (Artifact, error)

	// Remove deletes the persisted representation. Removing an artifact that
	// was never persisted is a no-op.
	Remove(ctx context.Context, a Artifact) error

	// Dependencies returns the declared prerequisites of a.
	Dependencies(a Artifact) []Reference

	// FindAll returns every persisted artifact of the kind.
	FindAll(ctx context.Context) ([]Artifact, error)
}

// RemovalOrderer is implemented by kinds that choose the edge direction of
// the REMOVED flow themselves. Kinds without it get dependents-first ordering.
type RemovalOrderer interface {
	RemovalDependencies(a Artifact, stale []Artifact) []Reference
}

// RefProvider is implemented by kinds that can recover the references a
// declaration provides even when the declaration is malformed, so that
// dependents of a broken declaration are held back rather than persisted.
type RefProvider interface {
	ProvidedRefs(location string, content []byte) []Reference
}

// DependencyScoper is implemented by kinds whose references only ever resolve
// against the named kinds. Kinds without it may reference any kind.
type DependencyScoper interface {
	DependencyKinds() []string
}
