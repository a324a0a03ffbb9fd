package topology

import (
	"github.com/roach88/artisync/internal/artifact"
)

// ReverseDependencies inverts the dependency edges among artifacts: each
// artifact ends up depending on the artifacts that depend on it. Depleting
// with the result removes dependents before their dependencies.
//
// Only edges between members of artifacts are kept; keys are locations.
func ReverseDependencies(artifacts []artifact.Artifact, depsOf func(artifact.Artifact) []artifact.Reference) map[string][]artifact.Reference {
	owners := make(map[artifact.Reference][]string, len(artifacts)*2)
	for _, a := range artifacts {
		for _, ref := range a.Refs() {
			owners[ref] = append(owners[ref], a.Location)
		}
	}

	reversed := make(map[string][]artifact.Reference, len(artifacts))
	for _, dependent := range artifacts {
		seen := make(map[string]bool)
		for _, dep := range depsOf(dependent) {
			for _, target := range owners[dep] {
				if target == dependent.Location || seen[target] {
					continue
				}
				seen[target] = true
				reversed[target] = append(reversed[target], artifact.Reference(dependent.Location))
			}
		}
	}
	return reversed
}
