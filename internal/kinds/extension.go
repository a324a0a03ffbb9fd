package kinds

// Kind discriminators.
const (
	KindExtensionPoint = "extensionpoint"
	KindExtension      = "extension"
	KindRole           = "role"
	KindAccess         = "access"
	KindSchema         = "schema"
	KindListener       = "listener"
	KindWebsocket      = "websocket"
	KindJob            = "job"
)

type extensionPointDecl struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewExtensionPoint creates the extension point kind.
func NewExtensionPoint(store Persistence) *Definition {
	return NewDefinition(KindExtensionPoint, []string{".extensionpoint"}, decodeExtensionPoint, store,
		WithNames(jsonName("name")))
}

func decodeExtensionPoint(_ string, content []byte) ([]Declaration, error) {
	var d extensionPointDecl
	doc, err := decodeJSON("extensionpoint", content, &d)
	if err != nil {
		return nil, err
	}
	payload, err := objectPayload(doc)
	if err != nil {
		return nil, err
	}
	return []Declaration{{Name: d.Name, Payload: payload}}, nil
}

type extensionDecl struct {
	ExtensionPoint string `json:"extensionPoint"`
	Module         string `json:"module"`
	Role           string `json:"role"`
	Description    string `json:"description"`
}

// NewExtension creates the extension kind. An extension depends on its
// extension point, referenced by name or location.
func NewExtension(store Persistence) *Definition {
	return NewDefinition(KindExtension, []string{".extension"}, decodeExtension, store,
		WithNames(jsonName("module")),
		WithDependencyKinds(KindExtensionPoint))
}

func decodeExtension(_ string, content []byte) ([]Declaration, error) {
	var d extensionDecl
	doc, err := decodeJSON("extension", content, &d)
	if err != nil {
		return nil, err
	}
	payload, err := objectPayload(doc)
	if err != nil {
		return nil, err
	}
	return []Declaration{{
		Name:         d.Module,
		Payload:      payload,
		Dependencies: refs(d.ExtensionPoint),
	}}, nil
}
