package synchronizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/artisync/internal/artifact"
)

// Report is the published outcome of one run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Aborted is set when an infrastructure failure stopped the run. States
	// then hold the previous report's states overlaid with this run's.
	Aborted bool     `json:"aborted,omitempty"`
	States  []State  `json:"states"`
	Errors  []string `json:"errors"`
}

// Summary counts a report's states by lifecycle.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Stalled   int `json:"stalled"`
	Removed   int `json:"removed"`
	Pending   int `json:"pending"`
	Errors    int `json:"errors"`
}

// Summary tallies the report.
func (r *Report) Summary() Summary {
	var s Summary
	for _, st := range r.States {
		switch st.Lifecycle {
		case artifact.LifecycleSucceeded:
			s.Succeeded++
		case artifact.LifecycleFailed:
			s.Failed++
		case artifact.LifecycleStalled:
			s.Stalled++
		case artifact.LifecycleRemoved:
			s.Removed++
		default:
			s.Pending++
		}
	}
	s.Errors = len(r.Errors)
	return s
}

// HasErrors reports whether the run recorded any error.
func (r *Report) HasErrors() bool {
	return r.Aborted || len(r.Errors) > 0
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Runner executes full synchronization runs over the registered
// Synchronizers, in registration order.
//
// Thread-safety: all methods are safe for concurrent use. At most one run is
// in flight at a time; a concurrent Run returns *RunInProgressError.
type Runner struct {
	clock   Clock
	ids     RunIDGenerator
	metrics *Metrics

	run sync.Mutex // held for the duration of a run

	mu     sync.RWMutex
	syncs  []*Synchronizer
	active string
	last   *Report
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunClock sets the clock stamping run and state times.
func WithRunClock(c Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithRunIDs sets the run id generator.
func WithRunIDs(g RunIDGenerator) RunnerOption {
	return func(r *Runner) {
		r.ids = g
	}
}

// WithRunMetrics records run results on m.
func WithRunMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a Runner with no synchronizers.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		clock: SystemClock{},
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends synchronizers to the run order.
func (r *Runner) Register(syncs ...*Synchronizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs = append(r.syncs, syncs...)
}

// Synchronizers returns the registered synchronizers in run order.
func (r *Runner) Synchronizers() []*Synchronizer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Synchronizer(nil), r.syncs...)
}

// Run performs one full synchronization run.
//
// The report is returned and published for Last even when the run aborts; in
// that case the error describes the infrastructure failure.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if !r.run.TryLock() {
		id, _ := r.Running()
		return nil, &RunInProgressError{RunID: id}
	}
	defer r.run.Unlock()

	rc := NewRunContext(r.ids.Generate(), r.clock)
	syncs := r.Synchronizers()

	r.mu.Lock()
	r.active = rc.RunID
	prev := r.last
	r.mu.Unlock()

	log := slog.With("run_id", rc.RunID)
	log.Info("synchronization run started", "kinds", len(syncs))

	var runErr error
	for _, s := range syncs {
		if err := s.Synchronize(ctx, rc); err != nil {
			runErr = fmt.Errorf("run %s: %w", rc.RunID, err)
			rc.Callback.AddError(fmt.Sprintf("run aborted at kind %s: %v", s.Kind().Name(), err))
			log.Error("synchronization run aborted", "kind", s.Kind().Name(), "error", err)
			break
		}
	}

	report := &Report{
		RunID:      rc.RunID,
		StartedAt:  rc.StartedAt,
		FinishedAt: r.clock.Now(),
		Aborted:    runErr != nil,
		Errors:     rc.Callback.Errors(),
	}
	if report.Aborted && prev != nil {
		report.States = rc.Callback.overlay(prev.States)
	} else {
		report.States = rc.Callback.States()
	}
	if report.Errors == nil {
		report.Errors = []string{}
	}

	r.mu.Lock()
	r.active = ""
	r.last = report
	r.mu.Unlock()

	result := RunResultClean
	switch {
	case report.Aborted:
		result = RunResultAborted
	case len(report.Errors) > 0:
		result = RunResultErrors
	}
	r.metrics.RecordRun(result, report.Duration())

	summary := report.Summary()
	log.Info("synchronization run finished",
		"result", result,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"stalled", summary.Stalled,
		"removed", summary.Removed,
		"errors", summary.Errors)

	return report, runErr
}

// Last returns the most recently published report.
func (r *Runner) Last() (*Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.last != nil
}

// Running returns the id of the active run, if any.
func (r *Runner) Running() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.active != ""
}
