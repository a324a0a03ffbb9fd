package kinds

import (
	"context"
	"path"
	"strings"

	"github.com/roach88/artisync/internal/artifact"
)

// Persistence is the store surface a kind needs. *store.Store satisfies it.
type Persistence interface {
	Save(ctx context.Context, a artifact.Artifact) (artifact.Artifact, error)
	Delete(ctx context.Context, a artifact.Artifact) error
	FindAll(ctx context.Context, kind string) ([]artifact.Artifact, error)
}

// Declaration is one decoded unit of a declaration file.
type Declaration struct {
	// Fragment distinguishes artifacts of a multi-artifact file. The artifact
	// location is "<path>#<fragment>"; empty means the path itself.
	Fragment string

	Name         string
	Payload      map[string]any
	Dependencies []artifact.Reference
}

// DecodeFunc decodes the content of one declaration file.
type DecodeFunc func(location string, content []byte) ([]Declaration, error)

// NameFunc recovers, without validating, the references a declaration file
// provides. It must tolerate content the DecodeFunc rejects.
type NameFunc func(location string, content []byte) []string

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// WithNames sets how references are recovered from malformed declarations.
func WithNames(fn NameFunc) DefinitionOption {
	return func(d *Definition) {
		d.names = fn
	}
}

// WithDependencyKinds names the kinds the kind's references resolve against.
func WithDependencyKinds(kinds ...string) DefinitionOption {
	return func(d *Definition) {
		d.dependencyKinds = append([]string(nil), kinds...)
	}
}

// Definition implements artifact.Kind for one decoder.
//
// Thread-safety: a Definition is immutable and safe for concurrent use as long
// as its Persistence is.
type Definition struct {
	name            string
	extensions      []string
	decode          DecodeFunc
	names           NameFunc
	dependencyKinds []string
	store           Persistence
}

var (
	_ artifact.Kind             = (*Definition)(nil)
	_ artifact.RefProvider      = (*Definition)(nil)
	_ artifact.DependencyScoper = (*Definition)(nil)
)

// NewDefinition creates a kind named name claiming files with the given
// extensions.
func NewDefinition(name string, extensions []string, decode DecodeFunc, store Persistence, opts ...DefinitionOption) *Definition {
	d := &Definition{
		name:       name,
		extensions: append([]string(nil), extensions...),
		decode:     decode,
		store:      store,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the kind discriminator.
func (d *Definition) Name() string {
	return d.name
}

// IsAccepted reports whether path ends with one of the kind's extensions.
func (d *Definition) IsAccepted(path string) bool {
	for _, ext := range d.extensions {
		if strings.HasSuffix(path, ext) && len(path) > len(ext) {
			return true
		}
	}
	return false
}

// IsAcceptedType reports whether kind is this kind's discriminator.
func (d *Definition) IsAcceptedType(kind string) bool {
	return kind == d.name
}

// Parse decodes content into artifacts. Decoder errors become a
// *MalformedArtifactError for location.
func (d *Definition) Parse(location string, content []byte) ([]artifact.Artifact, error) {
	decls, err := d.decode(location, content)
	if err != nil {
		return nil, artifact.AsMalformed(d.name, location, err)
	}

	out := make([]artifact.Artifact, 0, len(decls))
	for _, decl := range decls {
		loc := location
		if decl.Fragment != "" {
			loc = location + "#" + decl.Fragment
		}
		a, err := artifact.New(d.name, location, loc, decl.Name, decl.Payload, decl.Dependencies)
		if err != nil {
			return nil, artifact.AsMalformed(d.name, location, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Persist upserts a by key.
func (d *Definition) Persist(ctx context.Context, a artifact.Artifact) (artifact.Artifact, error) {
	return d.store.Save(ctx, a)
}

// Remove deletes the persisted artifact; a missing row is not an error.
func (d *Definition) Remove(ctx context.Context, a artifact.Artifact) error {
	return d.store.Delete(ctx, a)
}

// ProvidedRefs returns the references a possibly malformed declaration at
// location would provide.
func (d *Definition) ProvidedRefs(location string, content []byte) []artifact.Reference {
	if d.names == nil {
		return nil
	}
	return refs(d.names(location, content)...)
}

// DependencyKinds returns the kinds the kind's references resolve against.
// Nil means the kind declares no dependencies.
func (d *Definition) DependencyKinds() []string {
	return append([]string(nil), d.dependencyKinds...)
}

// Dependencies returns the references decoded from the declaration.
func (d *Definition) Dependencies(a artifact.Artifact) []artifact.Reference {
	return a.Dependencies
}

// FindAll returns every persisted artifact of the kind.
func (d *Definition) FindAll(ctx context.Context) ([]artifact.Artifact, error) {
	return d.store.FindAll(ctx, d.name)
}

// stem returns the file name of location without its extension.
func stem(location string) string {
	base := path.Base(location)
	return strings.TrimSuffix(base, path.Ext(base))
}

// refs converts names to references, skipping empty and repeated names.
func refs(names ...string) []artifact.Reference {
	seen := make(map[string]bool, len(names))
	var out []artifact.Reference
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, artifact.Reference(n))
	}
	return out
}
