package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/artisync/internal/artifact"
)

func intPtr(n int) *int { return &n }

// ============================================================================
// Scenario files
// ============================================================================

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "expectation mismatches:\n%s", strings.Join(result.Errors, "\n"))
			assert.Len(t, result.Runs, len(scenario.Runs))
		})
	}
}

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{"extension_point_removal", "dependency_cycle"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

// ============================================================================
// Execution
// ============================================================================

func TestRun_DeterministicRunIDs(t *testing.T) {
	scenario := &Scenario{
		Name:        "ids",
		Description: "run ids",
		Runs:        []RunStep{{}, {}, {}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Runs, 3)
	for i, rr := range result.Runs {
		assert.Equal(t, []string{"run-1", "run-2", "run-3"}[i], rr.Report.RunID)
		assert.Empty(t, rr.Report.States)
		assert.Empty(t, rr.Persisted)
	}
	assert.True(t, result.Pass)
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "every expectation is wrong",
		Runs: []RunStep{{
			Write: map[string]string{"/a.extensionpoint": `{"name": "a"}`},
			Expect: Expectation{
				Errors:        intPtr(3),
				ErrorsContain: []string{"nope"},
				States: map[string]string{
					"extensionpoint:/a.extensionpoint": "FAILED",
					"extension:/missing.extension":     "SUCCEEDED",
				},
				Persisted: map[string][]string{"extensionpoint": {}},
				Aborted:   true,
			},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	for _, e := range result.Errors {
		assert.True(t, strings.HasPrefix(e, "runs[0]: "), e)
	}
	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "aborted = false, expected true")
	assert.Contains(t, joined, "0 errors, expected 3")
	assert.Contains(t, joined, `no error contains "nope"`)
	assert.Contains(t, joined, "extensionpoint:/a.extensionpoint is SUCCEEDED, expected FAILED")
	assert.Contains(t, joined, "no state recorded for extension:/missing.extension")
	assert.Contains(t, joined, "persisted extensionpoint = [/a.extensionpoint], expected []")
}

func TestRun_UnchangedDetectsEdits(t *testing.T) {
	scenario := &Scenario{
		Name:        "edits",
		Description: "content changes between runs",
		Runs: []RunStep{
			{Write: map[string]string{"/a.extensionpoint": `{"name": "a"}`}},
			{
				Write:  map[string]string{"/a.extensionpoint": `{"name": "a", "description": "changed"}`},
				Expect: Expectation{Unchanged: true},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"runs[1]: persisted extensionpoint changed since the previous run"}, result.Errors)

	before := result.Runs[0].Persisted["extensionpoint"][0]
	after := result.Runs[1].Persisted["extensionpoint"][0]
	assert.Equal(t, before.ID, after.ID, "upsert keeps the row identity")
	assert.NotEqual(t, before.Hash, after.Hash)
}

func TestHarness_StalledRowRecorded(t *testing.T) {
	h, err := New(0)
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	steps := &Scenario{
		Name:        "stalled_row",
		Description: "a persisted artifact that stalls keeps its content and records the lifecycle",
		Runs: []RunStep{
			{Write: map[string]string{
				"/a.extensionpoint": `{"name": "a"}`,
				"/b.extension":      `{"extensionPoint": "a", "module": "b"}`,
			}},
			{Write: map[string]string{"/a.extensionpoint": `not json`}},
		},
	}
	result, err := h.Execute(ctx, steps)
	require.NoError(t, err)
	require.True(t, result.Pass, strings.Join(result.Errors, "\n"))

	row, err := h.Store().FindByLocation(ctx, "extension", "/b.extension")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, artifact.LifecycleStalled, row.Lifecycle)
	assert.Contains(t, row.Message, "unresolved dependencies: a")
	assert.Equal(t, "b", row.Payload["module"])

	point, err := h.Store().FindByLocation(ctx, "extensionpoint", "/a.extensionpoint")
	require.NoError(t, err)
	require.NotNil(t, point, "a malformed source keeps its last-good row")
	assert.Equal(t, "a", point.Payload["name"])
}

// ============================================================================
// Scenario parsing
// ============================================================================

func TestParseScenario(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: parse
description: "parses every field"
parallelism: 2
runs:
  - write:
      /a.listener: '{"name": "a", "kind": "queue", "handler": "h.js"}'
    delete: [/gone.listener]
    expect:
      errors: 0
      errors_contain: [x]
      states:
        listener:/a.listener: SUCCEEDED
      persisted:
        listener: [/a.listener]
  - unreachable: true
    expect:
      aborted: true
      unchanged: true
`))
	require.NoError(t, err)
	assert.Equal(t, "parse", scenario.Name)
	assert.Equal(t, 2, scenario.Parallelism)
	require.Len(t, scenario.Runs, 2)

	first := scenario.Runs[0]
	assert.Contains(t, first.Write, "/a.listener")
	assert.Equal(t, []string{"/gone.listener"}, first.Delete)
	require.NotNil(t, first.Expect.Errors)
	assert.Equal(t, 0, *first.Expect.Errors)
	assert.Equal(t, []string{"x"}, first.Expect.ErrorsContain)
	assert.Equal(t, "SUCCEEDED", first.Expect.States["listener:/a.listener"])
	assert.Equal(t, []string{"/a.listener"}, first.Expect.Persisted["listener"])

	second := scenario.Runs[1]
	assert.True(t, second.Unreachable)
	assert.True(t, second.Expect.Aborted)
	assert.True(t, second.Expect.Unchanged)
	assert.Nil(t, second.Expect.Errors)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "name: x\ndescription: y\nrun: []", "failed to parse YAML"},
		{"missing name", "description: y\nruns: [{}]", "name is required"},
		{"missing description", "name: x\nruns: [{}]", "description is required"},
		{"no runs", "name: x\ndescription: y", "runs list is required"},
		{"negative parallelism", "name: x\ndescription: y\nparallelism: -1\nruns: [{}]", "parallelism must be non-negative"},
		{"relative write", "name: x\ndescription: y\nruns: [{write: {a.job: x}}]", `path "a.job" must be absolute`},
		{"relative delete", "name: x\ndescription: y\nruns: [{delete: [a.job]}]", `path "a.job" must be absolute`},
		{"negative errors", "name: x\ndescription: y\nruns: [{expect: {errors: -1}}]", "errors must be non-negative"},
		{"unchanged first", "name: x\ndescription: y\nruns: [{expect: {unchanged: true}}]", "unchanged needs a previous run"},
		{"bad state key", "name: x\ndescription: y\nruns: [{expect: {states: {nokind: FAILED}}}]", "must be kind:location"},
		{"bad lifecycle", "name: x\ndescription: y\nruns: [{expect: {states: {'job:/a.job': DONE}}}]", `unknown lifecycle "DONE"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
