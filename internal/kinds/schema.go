package kinds

import (
	"errors"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// NewSchema creates the database schema kind. A .schema file is CUE with
// top-level "tables" and "views" structs; every table and view becomes one
// artifact at "<path>#tables/<name>" or "<path>#views/<name>". Views depend
// on the tables and views named in their dependsOn list.
//
//	tables: orders: columns: {
//		id:     {type: "INTEGER", primaryKey: true}
//		status: {type: "VARCHAR", length: 20}
//	}
//	views: open_orders: {
//		query:     "SELECT * FROM orders WHERE status = 'open'"
//		dependsOn: ["orders"]
//	}
func NewSchema(store Persistence) *Definition {
	return NewDefinition(KindSchema, []string{".schema"}, decodeSchema, store,
		WithNames(schemaNames),
		WithDependencyKinds(KindSchema))
}

func decodeSchema(location string, content []byte) ([]Declaration, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(content, cue.Filename(location))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	top, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for top.Next() {
		if l := top.Label(); l != "tables" && l != "views" {
			return nil, fmt.Errorf("unknown top-level field %q", l)
		}
	}

	var out []Declaration
	names := make(map[string]string)

	tables := v.LookupPath(cue.ParsePath("tables"))
	if tables.Exists() {
		iter, err := tables.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := parseTable(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			names[decl.Name] = "table"
			out = append(out, decl)
		}
	}

	views := v.LookupPath(cue.ParsePath("views"))
	if views.Exists() {
		iter, err := views.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := parseView(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if kind, dup := names[decl.Name]; dup {
				return nil, fmt.Errorf("view %q is already declared as a %s", decl.Name, kind)
			}
			names[decl.Name] = "view"
			out = append(out, decl)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("schema declares no tables or views")
	}
	return out, nil
}

func parseTable(name string, v cue.Value) (Declaration, error) {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return Declaration{}, fmt.Errorf("table %q: columns are required", name)
	}
	iter, err := colsVal.Fields()
	if err != nil {
		return Declaration{}, formatCUEError(err)
	}

	var columns []any
	primaryKeys := 0
	for iter.Next() {
		col, err := parseColumn(iter.Label(), iter.Value())
		if err != nil {
			return Declaration{}, fmt.Errorf("table %q: %w", name, err)
		}
		if col["primaryKey"] == true {
			primaryKeys++
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return Declaration{}, fmt.Errorf("table %q: at least one column is required", name)
	}

	return Declaration{
		Fragment: "tables/" + name,
		Name:     name,
		Payload: map[string]any{
			"type":        "table",
			"name":        name,
			"columns":     columns,
			"primaryKeys": primaryKeys,
		},
	}, nil
}

func parseColumn(name string, v cue.Value) (map[string]any, error) {
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, fmt.Errorf("column %q: type is required", name)
	}
	typ, err := typeVal.String()
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, formatCUEError(err))
	}

	col := map[string]any{"name": name, "type": typ}
	for _, flag := range []string{"primaryKey", "nullable", "unique"} {
		fv := v.LookupPath(cue.ParsePath(flag))
		if !fv.Exists() {
			continue
		}
		b, err := fv.Bool()
		if err != nil {
			return nil, fmt.Errorf("column %q: %s: %w", name, flag, formatCUEError(err))
		}
		col[flag] = b
	}
	if lv := v.LookupPath(cue.ParsePath("length")); lv.Exists() {
		n, err := lv.Int64()
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("column %q: length must be a positive integer", name)
		}
		col["length"] = n
	}
	return col, nil
}

func parseView(name string, v cue.Value) (Declaration, error) {
	queryVal := v.LookupPath(cue.ParsePath("query"))
	if !queryVal.Exists() {
		return Declaration{}, fmt.Errorf("view %q: query is required", name)
	}
	query, err := queryVal.String()
	if err != nil {
		return Declaration{}, fmt.Errorf("view %q: %w", name, formatCUEError(err))
	}

	var deps []string
	if dv := v.LookupPath(cue.ParsePath("dependsOn")); dv.Exists() {
		iter, err := dv.List()
		if err != nil {
			return Declaration{}, fmt.Errorf("view %q: dependsOn: %w", name, formatCUEError(err))
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return Declaration{}, fmt.Errorf("view %q: dependsOn: %w", name, formatCUEError(err))
			}
			deps = append(deps, s)
		}
	}
	sort.Strings(deps)

	dependsOn := make([]any, len(deps))
	for i, d := range deps {
		dependsOn[i] = d
	}
	return Declaration{
		Fragment: "views/" + name,
		Name:     name,
		Payload: map[string]any{
			"type":      "view",
			"name":      name,
			"query":     query,
			"dependsOn": dependsOn,
		},
		Dependencies: refs(deps...),
	}, nil
}

// formatCUEError reduces a CUE error list to its first error, prefixed with
// the source position when CUE reports one.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		return fmt.Errorf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), first.Error())
	}
	return first
}
