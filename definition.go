package ferrule

import "github.com/ferrule-go/ferrule/internal/definition"

// Scope determines instance caching behavior for object and factory entries.
type Scope = definition.Scope

const (
	// Singleton entries are built once and cached for the container's lifetime.
	Singleton = definition.Singleton

	// Transient entries are rebuilt on every resolution.
	Transient = definition.Transient
)

// Definition describes how to build one named entry. Definitions are inert
// data; the container and the compiler interpret them.
type Definition = definition.Definition

// Resolver is the minimal container surface passed to decorator callables.
type Resolver = definition.Resolver

// ObjectDefinition constructs a registered type with constructor, property,
// and method injections.
type ObjectDefinition = definition.Object

// FactoryDefinition builds an entry by invoking a callable.
type FactoryDefinition = definition.Factory

// DecoratorDefinition wraps the same-named definition of a later source.
type DecoratorDefinition = definition.Decorator

// DecoratorFunc receives the decorated value and the container.
type DecoratorFunc = definition.DecoratorFunc

// Value declares a literal entry returned as-is on every resolution.
func Value(v any) Definition {
	return definition.NewValue(v)
}

// Ref declares an alias to another entry.
func Ref(target string) Definition {
	return definition.NewReference(target)
}

// Object declares the construction of a registered type. With an empty
// typeName the entry's own name is used as the registry lookup key.
func Object(typeName string) *ObjectDefinition {
	return definition.NewObject(typeName)
}

// Factory declares an entry built by invoking callable. The callable may
// be a function value or the name of another entry resolving to one.
func Factory(callable any) *FactoryDefinition {
	return definition.NewFactory(callable)
}

// Decorate declares a decorator wrapping the definition of the same name
// found in a later source. The callable receives the decorated value and
// the container.
func Decorate(callable DecoratorFunc) Definition {
	return definition.NewDecorator(callable)
}

// Pair is one ordered key/value of an Array declaration.
type Pair = definition.ArrayEntry

// Array declares an ordered map of literals and nested definitions,
// resolving to a map[string]any.
func Array(pairs ...Pair) Definition {
	return definition.NewArray(pairs...)
}

// Env declares an entry resolving an environment variable. Missing
// variables fail resolution unless a default is set with OrElse or the
// definition is marked AsOptional.
func Env(variable string) *definition.Env {
	return definition.NewEnv(variable)
}

// Str declares a text expression with {entryName} placeholders resolved
// against the container.
func Str(expression string) Definition {
	return definition.NewString(expression)
}
