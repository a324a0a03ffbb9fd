package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/artisync/internal/artifact"
)

// Scenario defines a sequence of synchronization runs and what each must
// produce.
type Scenario struct {
	// Name identifies the scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Parallelism bounds concurrent processing within a depletion pass.
	// Zero means serial.
	Parallelism int `yaml:"parallelism,omitempty"`

	// Runs execute in order against the same repository and store.
	Runs []RunStep `yaml:"runs"`
}

// RunStep edits the repository, runs one synchronization and checks the result.
type RunStep struct {
	// Write maps repository paths to their new content.
	Write map[string]string `yaml:"write,omitempty"`

	// Delete lists repository paths removed before the run.
	Delete []string `yaml:"delete,omitempty"`

	// Unreachable makes every repository read fail during the run.
	Unreachable bool `yaml:"unreachable,omitempty"`

	// Expect holds the checks applied after the run.
	Expect Expectation `yaml:"expect"`
}

// Expectation describes the observable outcome of one run. Unset fields are
// not checked.
type Expectation struct {
	// States maps "kind:location" to the lifecycle recorded by the run.
	States map[string]string `yaml:"states,omitempty"`

	// Errors is the exact number of run-level errors.
	Errors *int `yaml:"errors,omitempty"`

	// ErrorsContain lists substrings each of which must appear in some run error.
	ErrorsContain []string `yaml:"errors_contain,omitempty"`

	// Persisted maps a kind to the exact sorted locations stored for it.
	Persisted map[string][]string `yaml:"persisted,omitempty"`

	// Unchanged requires every stored row to keep the id and hash it had
	// after the previous run.
	Unchanged bool `yaml:"unchanged,omitempty"`

	// Aborted requires the run to stop on an infrastructure failure.
	Aborted bool `yaml:"aborted,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for i, run := range s.Runs {
		for p := range run.Write {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("runs[%d].write: path %q must be absolute", i, p)
			}
		}
		for _, p := range run.Delete {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("runs[%d].delete: path %q must be absolute", i, p)
			}
		}
		if err := validateExpectation(i, &run.Expect); err != nil {
			return err
		}
	}
	return nil
}

func validateExpectation(index int, e *Expectation) error {
	if e.Errors != nil && *e.Errors < 0 {
		return fmt.Errorf("runs[%d].expect: errors must be non-negative", index)
	}
	if index == 0 && e.Unchanged {
		return fmt.Errorf("runs[0].expect: unchanged needs a previous run")
	}
	for key, lifecycle := range e.States {
		if _, _, err := splitStateKey(key); err != nil {
			return fmt.Errorf("runs[%d].expect.states: %w", index, err)
		}
		if !artifact.Lifecycle(lifecycle).Valid() {
			return fmt.Errorf("runs[%d].expect.states[%s]: unknown lifecycle %q", index, key, lifecycle)
		}
	}
	return nil
}

// splitStateKey splits "kind:location".
func splitStateKey(key string) (string, string, error) {
	kind, location, ok := strings.Cut(key, ":")
	if !ok || kind == "" || location == "" {
		return "", "", fmt.Errorf("state key %q must be kind:location", key)
	}
	return kind, location, nil
}
