// Package synchronizer drives one reconciliation run across every registered
// artifact kind.
//
// A run processes kinds one at a time in registration order. For each kind a
// Synchronizer lists the kind's declarations in the repository, parses them,
// persists them through a CREATED depletion and then removes persisted
// artifacts whose declaration disappeared through a REMOVED depletion.
// Outcomes are recorded on the run's Callback.
//
// Failure isolation:
//   - a malformed declaration affects only its own location
//   - a failed persist or remove affects only that artifact and its dependents
//   - a stalled batch ends only that kind's flow
//   - only an unreachable repository or store aborts the run
//
// References to malformed, failed and stalled artifacts are blocked for the
// rest of the run, so dependents in later kinds stall instead of succeeding
// against broken prerequisites.
package synchronizer
