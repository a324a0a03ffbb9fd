package topology

import (
	"github.com/roach88/artisync/internal/artifact"
)

// Wrapper adapts one artifact to the depletion algorithm.
//
// Wrappers are created fresh for every depletion and never persisted. Only the
// Depleter that owns a wrapper mutates it.
type Wrapper struct {
	artifact  artifact.Artifact
	flow      Flow
	dependsOn []artifact.Reference
	attempted bool
	outcome   Outcome
	err       error
}

// NewWrapper wraps an artifact for the given flow. deps are the references the
// artifact requires for this flow; for FlowRemoved the caller supplies the
// edge direction.
func NewWrapper(a artifact.Artifact, flow Flow, deps []artifact.Reference) *Wrapper {
	return &Wrapper{
		artifact:  a,
		flow:      flow,
		dependsOn: append([]artifact.Reference(nil), deps...),
		outcome:   OutcomePending,
	}
}

// Wrap creates one wrapper per artifact, taking dependencies from depsOf.
func Wrap(artifacts []artifact.Artifact, flow Flow, depsOf func(artifact.Artifact) []artifact.Reference) []*Wrapper {
	out := make([]*Wrapper, len(artifacts))
	for i, a := range artifacts {
		out[i] = NewWrapper(a, flow, depsOf(a))
	}
	return out
}

// ID returns the stable identity of the wrapper: the artifact location.
func (w *Wrapper) ID() string {
	return w.artifact.Location
}

// Artifact returns the wrapped artifact.
func (w *Wrapper) Artifact() artifact.Artifact {
	return w.artifact
}

// Flow returns the flow the wrapper was created for.
func (w *Wrapper) Flow() Flow {
	return w.flow
}

// DependsOn returns the references this wrapper requires.
func (w *Wrapper) DependsOn() []artifact.Reference {
	return append([]artifact.Reference(nil), w.dependsOn...)
}

// Attempted reports whether process was called for this wrapper.
func (w *Wrapper) Attempted() bool {
	return w.attempted
}

// Outcome returns the processing outcome; PENDING until attempted.
func (w *Wrapper) Outcome() Outcome {
	return w.outcome
}

// Err returns the processing error of a failed wrapper, if any.
func (w *Wrapper) Err() error {
	return w.err
}

// markAttempted records one processing attempt.
func (w *Wrapper) markAttempted(outcome Outcome, err error) {
	w.attempted = true
	w.outcome = outcome
	w.err = err
}

// IDs returns the identities of the given wrappers, in order.
func IDs(ws []*Wrapper) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.ID()
	}
	return out
}
