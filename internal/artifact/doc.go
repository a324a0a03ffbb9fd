// Package artifact defines the declarable units reconciled by artisync and the
// capability interface a kind plugin implements to take part in
// synchronization.
//
// The package knows nothing about any particular kind. Kinds are tagged data
// (the Kind field on Artifact) dispatched through a Registry populated at
// startup.
//
// Identity:
//   - Location is unique per kind and never changes for a given declaration.
//   - Key is derived from (kind, location) and is stable across reloads, so a
//     repeated synchronization updates in place instead of creating duplicates.
//   - Hash fingerprints the declared content (name, payload, dependencies) and
//     changes whenever the declaration does.
//
// Both Key and Hash are SHA-256 digests of canonical JSON (RFC 8785 key order,
// NFC-normalized strings) with domain separation.
package artifact
