package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/artisync/internal/kinds"
	"github.com/roach88/artisync/internal/repository"
	"github.com/roach88/artisync/internal/store"
	"github.com/roach88/artisync/internal/synchronizer"
	"github.com/roach88/artisync/internal/testutil"
	"github.com/roach88/artisync/internal/topology"
)

// errUnreachable is the repository failure injected by an unreachable run.
var errUnreachable = errors.New("repository unreachable")

// Harness is the test execution engine.
// It drives every built-in kind with a deterministic clock and run ids.
type Harness struct {
	repo   *repository.Memory
	store  *store.Store
	runner *synchronizer.Runner
}

// New creates a harness over a fresh in-memory repository and an in-memory
// SQLite store. Close releases the store.
func New(parallelism int) (*Harness, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	clock := testutil.NewStepClock(testutil.Epoch, 0)
	repo := repository.NewMemory()

	var depOpts []topology.Option
	if parallelism > 0 {
		depOpts = append(depOpts, topology.WithParallelism(parallelism))
	}
	depleter := topology.NewDepleter(depOpts...)

	runner := synchronizer.NewRunner(
		synchronizer.WithRunClock(clock),
		synchronizer.WithRunIDs(testutil.NewSequenceGenerator("run")),
	)
	for _, k := range kinds.Defaults(st) {
		runner.Register(synchronizer.New(k, repo,
			synchronizer.WithDepleter(depleter),
			synchronizer.WithClock(clock),
			synchronizer.WithStateRecorder(st),
		))
	}

	return &Harness{repo: repo, store: st, runner: runner}, nil
}

// Close releases the store.
func (h *Harness) Close() error {
	return h.store.Close()
}

// Repository returns the scenario repository.
func (h *Harness) Repository() *repository.Memory {
	return h.repo
}

// Store returns the scenario store.
func (h *Harness) Store() *store.Store {
	return h.store
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh harness for isolation. Expectation
// mismatches are reported on the result; the error reports a harness
// failure (store unavailable, run not published).
func Run(scenario *Scenario) (*Result, error) {
	h, err := New(scenario.Parallelism)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	return h.Execute(context.Background(), scenario)
}

// Execute runs every step of scenario on h.
func (h *Harness) Execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()
	for i, step := range scenario.Runs {
		rr, err := h.step(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("runs[%d]: %w", i, err)
		}
		var prev *RunResult
		if i > 0 {
			prev = &result.Runs[i-1]
		}
		check(result, i, step.Expect, rr, prev)
		result.Runs = append(result.Runs, rr)
	}
	return result, nil
}

// step applies the repository edits of one run and executes it.
func (h *Harness) step(ctx context.Context, step RunStep) (RunResult, error) {
	paths := make([]string, 0, len(step.Write))
	for p := range step.Write {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := h.repo.Write(ctx, p, []byte(step.Write[p])); err != nil {
			return RunResult{}, fmt.Errorf("write %s: %w", p, err)
		}
	}
	for _, p := range step.Delete {
		if err := h.repo.Delete(ctx, p); err != nil {
			return RunResult{}, fmt.Errorf("delete %s: %w", p, err)
		}
	}

	if step.Unreachable {
		h.repo.Err = errUnreachable
		defer func() { h.repo.Err = nil }()
	}

	report, runErr := h.runner.Run(ctx)
	if report == nil {
		return RunResult{}, fmt.Errorf("run not published: %w", runErr)
	}

	persisted, err := h.persisted(ctx)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Report: report, Persisted: persisted}, nil
}

func (h *Harness) persisted(ctx context.Context) (map[string][]Row, error) {
	all, err := h.store.FindAllKinds(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	out := make(map[string][]Row)
	for _, a := range all {
		out[a.Kind] = append(out[a.Kind], Row{
			ID:        a.ID,
			Location:  a.Location,
			Hash:      a.Hash,
			Lifecycle: string(a.Lifecycle),
		})
	}
	return out, nil
}

// check compares one run against its expectation.
func check(result *Result, index int, expect Expectation, rr RunResult, prev *RunResult) {
	report := rr.Report
	fail := func(format string, args ...any) {
		result.AddError(fmt.Sprintf("runs[%d]: ", index) + fmt.Sprintf(format, args...))
	}

	if report.Aborted != expect.Aborted {
		fail("aborted = %v, expected %v (errors: %s)", report.Aborted, expect.Aborted, strings.Join(report.Errors, "; "))
	}

	if expect.Errors != nil && len(report.Errors) != *expect.Errors {
		fail("%d errors, expected %d: %s", len(report.Errors), *expect.Errors, strings.Join(report.Errors, "; "))
	}
	for _, want := range expect.ErrorsContain {
		found := slices.ContainsFunc(report.Errors, func(e string) bool {
			return strings.Contains(e, want)
		})
		if !found {
			fail("no error contains %q", want)
		}
	}

	states := make(map[string]synchronizer.State, len(report.States))
	for _, st := range report.States {
		states[st.Kind+":"+st.Location] = st
	}
	for _, key := range sortedKeys(expect.States) {
		want := expect.States[key]
		st, ok := states[key]
		switch {
		case !ok:
			fail("no state recorded for %s, expected %s", key, want)
		case string(st.Lifecycle) != want:
			fail("%s is %s, expected %s (%s)", key, st.Lifecycle, want, st.Message)
		}
	}

	for _, kind := range sortedKeys(expect.Persisted) {
		want := append([]string{}, expect.Persisted[kind]...)
		sort.Strings(want)
		got := rr.Locations(kind)
		if !slices.Equal(got, want) {
			fail("persisted %s = %v, expected %v", kind, got, want)
		}
	}

	if expect.Unchanged && prev != nil {
		for _, kind := range sortedKeys(prev.Persisted) {
			if !slices.EqualFunc(prev.Persisted[kind], rr.Persisted[kind], sameRow) {
				fail("persisted %s changed since the previous run", kind)
			}
		}
		for kind := range rr.Persisted {
			if _, ok := prev.Persisted[kind]; !ok {
				fail("persisted %s appeared since the previous run", kind)
			}
		}
	}
}

func sameRow(a, b Row) bool {
	return a.ID == b.ID && a.Location == b.Location && a.Hash == b.Hash
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
