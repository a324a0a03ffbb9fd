package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/artisync/internal/artifact"
)

// snapshot converts a result to a map[string]any for canonical JSON
// serialization. Times, hashes and messages are left out so that the
// snapshot only changes when reconciliation behavior does.
func snapshot(name string, result *Result) map[string]any {
	runs := make([]any, len(result.Runs))
	for i, rr := range result.Runs {
		states := make([]any, len(rr.Report.States))
		for j, st := range rr.Report.States {
			states[j] = map[string]any{
				"kind":      st.Kind,
				"location":  st.Location,
				"flow":      string(st.Flow),
				"lifecycle": string(st.Lifecycle),
			}
		}

		persisted := make(map[string]any, len(rr.Persisted))
		for kind := range rr.Persisted {
			persisted[kind] = rr.Locations(kind)
		}

		run := map[string]any{
			"run_id":    rr.Report.RunID,
			"states":    states,
			"errors":    len(rr.Report.Errors),
			"persisted": persisted,
		}
		if rr.Report.Aborted {
			run["aborted"] = true
		}
		runs[i] = run
	}

	return map[string]any{
		"scenario": name,
		"runs":     runs,
	}
}

// RunWithGolden executes a scenario and compares its run snapshots against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check expectations as well.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := artifact.MarshalCanonical(snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
