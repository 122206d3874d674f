package source

import (
	"fmt"

	"github.com/ferrule-go/ferrule/internal/definition"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// Tags derives object definitions from struct tags and registered setter
// overrides. It supersedes plain reflection autowiring when installed: the
// builder places it earlier in the chain.
//
// Field markers: `inject:"entry.name"` injects an explicit entry,
// `inject:""` injects by the field's registered type, `inject:",optional"`
// skips silently when unresolvable. Fields of embedded structs are walked
// too. A `lazy:"true"` tag on any field marks the whole type lazy.
//
// Setter-shaped methods (SetX, no returns or error only) become method
// injections when explicit argument overrides were registered for them, or
// when every parameter type maps to a registered entry.
type Tags struct {
	registry *typereg.Registry
}

// NewTags creates a tag-based autowiring source over registry.
func NewTags(registry *typereg.Registry) *Tags {
	return &Tags{registry: registry}
}

// Registry exposes the backing registry.
func (s *Tags) Registry() *typereg.Registry { return s.registry }

// Definition derives a definition for a registered name from its tags.
func (s *Tags) Definition(name string) (definition.Definition, bool, error) {
	entry, ok := s.registry.Lookup(name)
	if !ok {
		return nil, false, nil
	}
	if entry.Struct == nil {
		// Constructor-only registration with a non-struct result; the
		// plain autowiring source handles it.
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
		}
	}

	props, err := s.properties(name, entry)
	if err != nil {
		return nil, false, err
	}
	def.Properties = props
	def.MethodCalls = s.methodCalls(entry)

	return def, true, nil
}

// properties derives property injections from field tags.
func (s *Tags) properties(name string, entry *typereg.Entry) ([]definition.Property, error) {
	var props []definition.Property
	for _, field := range entry.Struct.Fields {
		if !field.Inject {
			continue
		}

		target := field.Entry
		if target == "" {
			bound, ok := s.registry.NameFor(field.Type)
			if !ok {
				if field.Optional {
					continue
				}
				return nil, definition.InvalidDefinitionError{
					Name: name,
					Cause: fmt.Errorf("field %s.%s has an inject tag but type %v is not registered",
						entry.Struct.Type, field.Name, field.Type),
				}
			}
			target = bound
		}

		props = append(props, definition.Property{
			Name:  field.Name,
			Value: definition.NewReference(target),
		})
	}
	return props, nil
}

// methodCalls derives method injections from setter shapes and registered
// argument overrides. A nil argument slot is left for the engine to fill
// by type, or the zero value when the type is unregistered.
func (s *Tags) methodCalls(entry *typereg.Entry) []definition.MethodCall {
	var calls []definition.MethodCall
	for _, setter := range entry.Struct.Setters {
		overrides, hasOverrides := entry.MethodArgs[setter.Name]

		args := make([]any, len(setter.Params))
		resolvable := true
		for i, param := range setter.Params {
			if hasOverrides && i < len(overrides) && overrides[i] != nil {
				args[i] = overrides[i]
				continue
			}
			if target, ok := s.registry.NameFor(param.Type); ok {
				args[i] = definition.NewReference(target)
				continue
			}
			resolvable = false
		}

		if !hasOverrides && !resolvable {
			// Without an explicit marker, a setter is injected only when
			// fully resolvable by type.
			continue
		}

		calls = append(calls, definition.MethodCall{Name: setter.Name, Args: args})
	}
	return calls
}

// Definitions enumerates derived definitions for every registered name.
func (s *Tags) Definitions() (map[string]definition.Definition, error) {
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
