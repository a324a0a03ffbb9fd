package kinds

type listenerDecl struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Handler     string `json:"handler"`
	Description string `json:"description"`
}

// NewListener creates the message listener kind.
func NewListener(store Persistence) *Definition {
	return NewDefinition(KindListener, []string{".listener"}, decodeListener, store,
		WithNames(jsonName("name")))
}

func decodeListener(_ string, content []byte) ([]Declaration, error) {
	var d listenerDecl
	doc, err := decodeJSON("listener", content, &d)
	if err != nil {
		return nil, err
	}
	payload, err := objectPayload(doc)
	if err != nil {
		return nil, err
	}
	return []Declaration{{Name: d.Name, Payload: payload}}, nil
}

type websocketDecl struct {
	Endpoint    string `json:"endpoint"`
	Handler     string `json:"handler"`
	Description string `json:"description"`
}

// NewWebsocket creates the websocket endpoint kind. The endpoint is the
// artifact name.
func NewWebsocket(store Persistence) *Definition {
	return NewDefinition(KindWebsocket, []string{".websocket"}, decodeWebsocket, store,
		WithNames(jsonName("endpoint")))
}

func decodeWebsocket(_ string, content []byte) ([]Declaration, error) {
	var d websocketDecl
	doc, err := decodeJSON("websocket", content, &d)
	if err != nil {
		return nil, err
	}
	payload, err := objectPayload(doc)
	if err != nil {
		return nil, err
	}
	return []Declaration{{Name: d.Endpoint, Payload: payload}}, nil
}
