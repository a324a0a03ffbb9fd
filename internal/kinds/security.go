package kinds

import (
	"fmt"
	"strings"
)

type roleDecl struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewRole creates the role kind. A .roles file is a JSON array; each role
// becomes one artifact at "<path>#<name>".
func NewRole(store Persistence) *Definition {
	return NewDefinition(KindRole, []string{".roles"}, decodeRoles, store,
		WithNames(roleNames))
}

func decodeRoles(_ string, content []byte) ([]Declaration, error) {
	var ds []roleDecl
	doc, err := decodeJSON("roles", content, &ds)
	if err != nil {
		return nil, err
	}
	items, _ := doc.([]any)

	out := make([]Declaration, len(ds))
	for i, d := range ds {
		payload, err := objectPayload(items[i])
		if err != nil {
			return nil, err
		}
		out[i] = Declaration{Fragment: d.Name, Name: d.Name, Payload: payload}
	}
	return out, nil
}

type accessDecl struct {
	Constraints []constraintDecl `json:"constraints"`
}

type constraintDecl struct {
	Scope       string   `json:"scope"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Roles       []string `json:"roles"`
	Description string   `json:"description"`
}

// NewAccess creates the access kind. Each constraint of an .access file
// becomes one artifact at "<path>#<scope>:<method>:<resource path>" and
// depends on the roles it grants.
func NewAccess(store Persistence) *Definition {
	return NewDefinition(KindAccess, []string{".access"}, decodeAccess, store,
		WithDependencyKinds(KindRole))
}

func decodeAccess(_ string, content []byte) ([]Declaration, error) {
	var d accessDecl
	if _, err := decodeJSON("access", content, &d); err != nil {
		return nil, err
	}

	out := make([]Declaration, 0, len(d.Constraints))
	for _, c := range d.Constraints {
		scope := c.Scope
		if scope == "" {
			scope = "HTTP"
		}
		if !strings.HasPrefix(c.Path, "/") {
			return nil, fmt.Errorf("constraint path %q must start with /", c.Path)
		}
		id := scope + ":" + c.Method + ":" + c.Path

		roles := make([]any, len(c.Roles))
		for i, r := range c.Roles {
			roles[i] = r
		}
		payload := map[string]any{
			"scope":  scope,
			"path":   c.Path,
			"method": c.Method,
			"roles":  roles,
		}
		if c.Description != "" {
			payload["description"] = c.Description
		}

		out = append(out, Declaration{
			Fragment:     id,
			Name:         id,
			Payload:      payload,
			Dependencies: refs(c.Roles...),
		})
	}
	return out, nil
}
