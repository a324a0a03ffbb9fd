package kinds

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://artisync.local/schemas/"

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// compileSchemas compiles every embedded schema once.
func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			schemasErr = fmt.Errorf("read embedded schemas: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		var names []string
		for _, e := range entries {
			data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
			if err != nil {
				schemasErr = fmt.Errorf("read schema %s: %w", e.Name(), err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				schemasErr = fmt.Errorf("parse schema %s: %w", e.Name(), err)
				return
			}
			if err := c.AddResource(schemaBaseURL+e.Name(), doc); err != nil {
				schemasErr = fmt.Errorf("add schema %s: %w", e.Name(), err)
				return
			}
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}

		compiled := make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			sch, err := c.Compile(schemaBaseURL + name + ".json")
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = sch
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// decodeJSON validates content against the named embedded schema, then decodes
// it into v. The generic document is returned for use as payload; its numbers
// are json.Number.
func decodeJSON(schema string, content []byte, v any) (any, error) {
	compiled, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	sch, ok := compiled[schema]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schema)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, errors.New(flatten(err.Error()))
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

// flatten joins a multi-line validation report into one line.
func flatten(msg string) string {
	lines := strings.Split(msg, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "; ")
}

// objectPayload asserts that a decoded document is a JSON object.
func objectPayload(doc any) (map[string]any, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("declaration is %T, want object", doc)
	}
	return m, nil
}
