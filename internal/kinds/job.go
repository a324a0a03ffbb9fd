package kinds

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type jobDecl struct {
	Name        string            `yaml:"name"`
	Group       string            `yaml:"group"`
	Expression  string            `yaml:"expression"`
	Handler     string            `yaml:"handler"`
	Enabled     *bool             `yaml:"enabled"`
	Description string            `yaml:"description"`
	Parameters  map[string]string `yaml:"parameters"`
}

// NewJob creates the scheduled job kind. Job declarations are YAML; unknown
// fields are rejected.
func NewJob(store Persistence) *Definition {
	return NewDefinition(KindJob, []string{".job"}, decodeJob, store,
		WithNames(yamlName("name")))
}

func decodeJob(_ string, content []byte) ([]Declaration, error) {
	var d jobDecl
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty job declaration")
		}
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	switch {
	case d.Name == "":
		return nil, errors.New("job name is required")
	case d.Handler == "":
		return nil, errors.New("job handler is required")
	}
	if err := ValidateCron(d.Expression); err != nil {
		return nil, err
	}

	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}
	group := d.Group
	if group == "" {
		group = "default"
	}

	payload := map[string]any{
		"name":       d.Name,
		"group":      group,
		"expression": d.Expression,
		"handler":    d.Handler,
		"enabled":    enabled,
	}
	if d.Description != "" {
		payload["description"] = d.Description
	}
	if len(d.Parameters) > 0 {
		params := make(map[string]any, len(d.Parameters))
		for k, v := range d.Parameters {
			params[k] = v
		}
		payload["parameters"] = params
	}
	return []Declaration{{Name: d.Name, Payload: payload}}, nil
}

// cronParser accepts five fields (minute first), six fields (second first)
// and descriptors such as "@daily" and "@every 5m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCron checks that expr is a schedule the job runner can execute.
func ValidateCron(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return errors.New("cron expression is required")
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("cron %q: %w", expr, err)
	}
	return nil
}
