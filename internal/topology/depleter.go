package topology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/artisync/internal/artifact"
)

// DefaultTimeout bounds a single process call so one hanging kind operation
// cannot stall a whole run.
const DefaultTimeout = time.Minute

// ErrProcessDeclined is recorded when a process function returns false
// without an error.
var ErrProcessDeclined = errors.New("process returned false")

// ProcessFunc applies one wrapper's lifecycle transition. Returning false or
// a non-nil error marks the wrapper FAILURE.
type ProcessFunc func(ctx context.Context, w *Wrapper) (bool, error)

// Batch is the working set of one depletion.
type Batch struct {
	// Kind labels the batch in logs and stall errors.
	Kind string

	// Flow selects the lifecycle direction.
	Flow Flow

	// Wrappers in declaration order.
	Wrappers []*Wrapper

	// Blocked lists references known to be broken outside the batch, such as
	// malformed declarations or artifacts that failed earlier in the run.
	// A dependency on a blocked reference is never satisfied.
	Blocked map[artifact.Reference]bool
}

// Result is the terminal outcome of one depletion.
type Result struct {
	Kind      string
	Flow      Flow
	Succeeded []*Wrapper
	Failed    []*Wrapper
	Stalled   []*Wrapper
	Passes    int
}

// StallError returns a *DependencyStallError naming the stalled wrappers, or
// nil when the batch was fully depleted.
func (r *Result) StallError() error {
	if len(r.Stalled) == 0 {
		return nil
	}
	return &DependencyStallError{Kind: r.Kind, Flow: r.Flow, Locations: IDs(r.Stalled)}
}

// Unresolved returns the failed and stalled wrappers.
func (r *Result) Unresolved() []*Wrapper {
	out := make([]*Wrapper, 0, len(r.Failed)+len(r.Stalled))
	out = append(out, r.Failed...)
	return append(out, r.Stalled...)
}

// Depleter drives batches to completion.
//
// Thread-safety: a Depleter holds only configuration and may be shared;
// each Deplete call owns its batch exclusively.
type Depleter struct {
	parallelism int
	timeout     time.Duration
}

// Option configures a Depleter.
type Option func(*Depleter)

// WithParallelism allows up to n process calls to run concurrently within one
// pass. Values below 1 mean serial processing.
func WithParallelism(n int) Option {
	return func(d *Depleter) {
		d.parallelism = n
	}
}

// WithTimeout sets the per-artifact process timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Depleter) {
		d.timeout = timeout
	}
}

// NewDepleter creates a serial Depleter with DefaultTimeout.
func NewDepleter(opts ...Option) *Depleter {
	d := &Depleter{parallelism: 1, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deplete processes the batch until it is empty or stalls.
//
// The returned error is non-nil only for an invalid batch (nil process,
// duplicate identities, reused wrappers) or a cancelled context. On
// cancellation the unprocessed remainder is returned as Stalled alongside
// the context error.
func (d *Depleter) Deplete(ctx context.Context, batch Batch, process ProcessFunc) (*Result, error) {
	if process == nil {
		return nil, fmt.Errorf("deplete %s: nil process function", batch.Flow)
	}

	index, err := indexBatch(batch.Wrappers)
	if err != nil {
		return nil, fmt.Errorf("deplete %s %s: %w", batch.Kind, batch.Flow, err)
	}

	result := &Result{Kind: batch.Kind, Flow: batch.Flow}
	remaining := append([]*Wrapper(nil), batch.Wrappers...)

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			result.Stalled = remaining
			return result, err
		}

		var ready, waiting []*Wrapper
		for _, w := range remaining {
			if isReady(w, index, batch.Blocked) {
				ready = append(ready, w)
			} else {
				waiting = append(waiting, w)
			}
		}

		if len(ready) == 0 {
			result.Stalled = remaining
			break
		}

		result.Passes++
		attempts := d.runPass(ctx, ready, process)

		// Single writer: outcomes are applied after the whole pass.
		for i, w := range ready {
			if attempts[i].ok {
				w.markAttempted(OutcomeSuccess, nil)
				result.Succeeded = append(result.Succeeded, w)
				continue
			}
			w.markAttempted(OutcomeFailure, attempts[i].err)
			result.Failed = append(result.Failed, w)
			slog.Debug("artifact failed",
				"kind", batch.Kind,
				"flow", batch.Flow,
				"location", w.ID(),
				"error", attempts[i].err)
		}

		slog.Debug("depletion pass",
			"kind", batch.Kind,
			"flow", batch.Flow,
			"pass", result.Passes,
			"ready", len(ready),
			"waiting", len(waiting))

		if len(waiting) >= len(remaining) {
			// Unreachable while every ready wrapper is removed; guards the loop.
			result.Stalled = waiting
			break
		}
		remaining = waiting
	}

	if len(result.Stalled) > 0 {
		slog.Debug("depletion stalled",
			"kind", batch.Kind,
			"flow", batch.Flow,
			"stalled", IDs(result.Stalled))
	}
	return result, nil
}

// indexBatch resolves every reference (location and name) to the wrappers it
// denotes. Duplicate locations and reused wrappers are rejected.
func indexBatch(ws []*Wrapper) (map[artifact.Reference][]*Wrapper, error) {
	index := make(map[artifact.Reference][]*Wrapper, len(ws)*2)
	seen := make(map[string]bool, len(ws))
	for _, w := range ws {
		if w == nil {
			return nil, fmt.Errorf("nil wrapper in batch")
		}
		if w.attempted {
			return nil, fmt.Errorf("wrapper %s already attempted", w.ID())
		}
		if seen[w.ID()] {
			return nil, fmt.Errorf("duplicate wrapper %s", w.ID())
		}
		seen[w.ID()] = true
		for _, ref := range w.artifact.Refs() {
			index[ref] = append(index[ref], w)
		}
	}
	return index, nil
}

// isReady reports whether every dependency of w is satisfied.
func isReady(w *Wrapper, index map[artifact.Reference][]*Wrapper, blocked map[artifact.Reference]bool) bool {
	for _, dep := range w.dependsOn {
		targets := index[dep]
		if len(targets) == 0 {
			if blocked[dep] {
				return false
			}
			continue
		}
		for _, t := range targets {
			if t == w || t.outcome != OutcomeSuccess {
				return false
			}
		}
	}
	return true
}

type attempt struct {
	ok  bool
	err error
}

// runPass processes the ready wrappers, serially or bounded by a semaphore.
// attempts[i] belongs to ready[i].
func (d *Depleter) runPass(ctx context.Context, ready []*Wrapper, process ProcessFunc) []attempt {
	attempts := make([]attempt, len(ready))

	if d.parallelism <= 1 || len(ready) == 1 {
		for i, w := range ready {
			attempts[i] = d.attempt(ctx, w, process)
		}
		return attempts
	}

	sem := semaphore.NewWeighted(int64(d.parallelism))
	var wg sync.WaitGroup
	for i, w := range ready {
		if err := sem.Acquire(ctx, 1); err != nil {
			attempts[i] = attempt{err: fmt.Errorf("process %s: %w", w.ID(), err)}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			attempts[i] = d.attempt(ctx, w, process)
		}()
	}
	wg.Wait()
	return attempts
}

// attempt runs one process call with the per-artifact timeout, converting
// panics, errors and false returns into a failed attempt.
func (d *Depleter) attempt(ctx context.Context, w *Wrapper, process ProcessFunc) attempt {
	pctx, cancel := ctx, context.CancelFunc(func() {})
	if d.timeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, d.timeout)
	}
	defer cancel()

	done := make(chan attempt, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attempt{err: fmt.Errorf("process %s panicked: %v", w.ID(), r)}
			}
		}()
		ok, err := process(pctx, w)
		switch {
		case err != nil:
			done <- attempt{err: err}
		case !ok:
			done <- attempt{err: ErrProcessDeclined}
		default:
			done <- attempt{ok: true}
		}
	}()

	select {
	case res := <-done:
		return res
	case <-pctx.Done():
		return attempt{err: fmt.Errorf("process %s: %w", w.ID(), pctx.Err())}
	}
}
