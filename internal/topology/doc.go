// Package topology implements dependency-ordered depletion of artifact batches.
//
// A batch is a working set of Wrappers, each adapting one artifact plus its
// declared dependencies. The Depleter repeatedly processes the wrappers whose
// dependencies are satisfied, removes them from the working set, and stops
// when the set is empty or a pass can make no progress.
//
// ALGORITHM:
//
//  1. remaining = every wrapper in the batch, in declaration order
//  2. ready = wrappers in remaining whose dependencies are all satisfied
//  3. ready empty and remaining non-empty: stall, report remaining
//  4. process each ready wrapper; success or failure removes it from remaining
//  5. repeat from 2
//
// A dependency is satisfied when every batch wrapper it resolves to (by
// location or by name) has succeeded, or when it resolves to no wrapper in the
// batch and is not listed as blocked. Out-of-batch references are assumed to be
// satisfied; the engine does not validate them.
//
// Policy:
//   - Cycles are reported, never broken. Members of a cycle end up stalled.
//   - A failed wrapper is not retried in the same depletion. Its dependents
//     stall. Both become eligible again on the next synchronization run.
//   - Process order inside a pass follows declaration order. Ready wrappers are
//     independent of each other, so the order carries no dependency meaning.
//
// Concurrency: passes are sequential. Within one pass, process calls may run in
// parallel (WithParallelism); outcomes are applied by a single writer after the
// pass completes.
//
// Graph representation: wrappers never reference each other. Dependencies are
// references resolved through an index keyed by location and name.
package topology
