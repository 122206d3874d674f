package source

import (
	"github.com/ferrule-go/ferrule/internal/definition"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// Autowire derives object definitions from the type registry by inspecting
// registered constructors. Each constructor parameter whose type maps to a
// registered entry becomes a reference; scalar or unregistered parameters
// are left unset so the zero value (or an explicit override) applies at
// build time. Unknown names pass through.
type Autowire struct {
	registry *typereg.Registry
}

// NewAutowire creates a reflection autowiring source over registry.
func NewAutowire(registry *typereg.Registry) *Autowire {
	return &Autowire{registry: registry}
}

// Registry exposes the backing registry.
func (s *Autowire) Registry() *typereg.Registry { return s.registry }

// Definition derives a definition for a registered name.
func (s *Autowire) Definition(name string) (definition.Definition, bool, error) {
	entry, ok := s.registry.Lookup(name)
	if !ok {
		return nil, false, nil
	}

	def := definition.NewObject(name)
	def.Lazy = entry.Lazy
	def.SetName(name)

	if entry.Ctor != nil {
		def.HasConstructor = true
		def.ConstructorArgs = make([]any, len(entry.Ctor.Params))
		for i, param := range entry.Ctor.Params {
			if target, ok := s.registry.NameFor(param.Type); ok {
				def.ConstructorArgs[i] = definition.NewReference(target)
			}
			// Unregistered parameter types stay nil: the engine applies
			// the zero value, tolerating partially wired constructors.
		}
	}

	return def, true, nil
}

// Definitions enumerates derived definitions for every registered name.
func (s *Autowire) Definitions() (map[string]definition.Definition, error) {
	out := make(map[string]definition.Definition)
	for _, name := range s.registry.Names() {
		def, ok, err := s.Definition(name)
		if err != nil {
			return nil, err
		}
		if ok {
			out[name] = def
		}
	}
	return out, nil
}
