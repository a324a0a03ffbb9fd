package harness

import (
	"github.com/roach88/artisync/internal/synchronizer"
)

// Row is the stored identity of one artifact after a run.
type Row struct {
	ID        int64  `json:"id"`
	Location  string `json:"location"`
	Hash      string `json:"hash"`
	Lifecycle string `json:"lifecycle"`
}

// RunResult is the outcome of one scenario run.
type RunResult struct {
	// Report is the report published by the runner.
	Report *synchronizer.Report `json:"report"`

	// Persisted holds the stored rows by kind, sorted by location. Kinds
	// without rows are absent.
	Persisted map[string][]Row `json:"persisted"`
}

// Locations returns the stored locations of kind.
func (r RunResult) Locations(kind string) []string {
	rows := r.Persisted[kind]
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.Location
	}
	return out
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations match.
	Pass bool `json:"pass"`

	// Runs holds one entry per executed run, in order.
	Runs []RunResult `json:"runs"`

	// Errors contains expectation mismatches.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
