package kinds

import (
	"encoding/json"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// jsonName recovers the string field of a single-artifact JSON declaration,
// falling back to the file stem when the content does not decode.
func jsonName(field string) NameFunc {
	return func(location string, content []byte) []string {
		var doc map[string]any
		if err := json.Unmarshal(content, &doc); err == nil {
			if name, ok := doc[field].(string); ok && name != "" {
				return []string{name}
			}
		}
		return []string{stem(location)}
	}
}

// yamlName is jsonName for YAML declarations.
func yamlName(field string) NameFunc {
	return func(location string, content []byte) []string {
		var doc map[string]any
		if err := yaml.Unmarshal(content, &doc); err == nil {
			if name, ok := doc[field].(string); ok && name != "" {
				return []string{name}
			}
		}
		return []string{stem(location)}
	}
}

// roleNames recovers the role names of a roles file and their fragment
// locations.
func roleNames(location string, content []byte) []string {
	var items []map[string]any
	if err := json.Unmarshal(content, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		if name, ok := item["name"].(string); ok && name != "" {
			out = append(out, name, location+"#"+name)
		}
	}
	return out
}

// schemaNames recovers the table and view labels of a schema file that
// compiles as CUE, with their fragment locations.
func schemaNames(location string, content []byte) []string {
	v := cuecontext.New().CompileBytes(content, cue.Filename(location))
	if v.Err() != nil {
		return nil
	}
	var out []string
	for _, group := range []string{"tables", "views"} {
		gv := v.LookupPath(cue.ParsePath(group))
		if !gv.Exists() {
			continue
		}
		iter, err := gv.Fields()
		if err != nil {
			continue
		}
		for iter.Next() {
			label := iter.Label()
			out = append(out, label, location+"#"+group+"/"+label)
		}
	}
	return out
}
