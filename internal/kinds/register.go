package kinds

import (
	"fmt"

	"github.com/roach88/artisync/internal/artifact"
)

// Defaults returns every built-in kind in dependency-friendly order:
// providers before the kinds referencing them.
func Defaults(store Persistence) []*Definition {
	return []*Definition{
		NewExtensionPoint(store),
		NewExtension(store),
		NewRole(store),
		NewAccess(store),
		NewSchema(store),
		NewListener(store),
		NewWebsocket(store),
		NewJob(store),
	}
}

// RegisterDefaults registers every built-in kind with registry.
func RegisterDefaults(registry *artifact.Registry, store Persistence) error {
	for _, k := range Defaults(store) {
		if err := registry.Register(k); err != nil {
			return fmt.Errorf("register defaults: %w", err)
		}
	}
	return nil
}
