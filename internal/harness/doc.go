// Package harness runs multi-run reconciliation scenarios against the real
// synchronizers.
//
// Each scenario gets a fresh in-memory repository and an in-memory SQLite
// store with every built-in kind registered. Runs execute in order; before
// each one the harness applies the run's repository edits, and after it the
// harness checks the run's expectations against the published report and
// the store.
//
// # Scenario Format
//
//	name: extension_point_removal
//	description: "Removing an extension point leaves its extension in place"
//	runs:
//	  - write:
//	      /a.extensionpoint: '{"name": "a"}'
//	      /b.extension: '{"extensionPoint": "a", "module": "b"}'
//	    expect:
//	      errors: 0
//	      states:
//	        extensionpoint:/a.extensionpoint: SUCCEEDED
//	        extension:/b.extension: SUCCEEDED
//	  - delete: [/a.extensionpoint]
//	    expect:
//	      states:
//	        extensionpoint:/a.extensionpoint: REMOVED
//	      persisted:
//	        extensionpoint: []
//	        extension: [/b.extension]
//
// # Deterministic Testing
//
// Run ids come from testutil.SequenceGenerator ("run-1", "run-2", ...) and
// timestamps from testutil.StepClock, so reports are reproducible and can be
// compared against golden snapshots.
package harness
