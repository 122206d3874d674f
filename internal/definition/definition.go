// Package definition holds the inert data model describing how container
// entries are built. Definitions carry no behavior of their own; the
// resolution engine and the compiler interpret them.
package definition

import "fmt"

// Scope determines instance caching behavior for object and factory entries.
type Scope int

const (
	// Singleton - the entry is built once and cached for the container's lifetime.
	Singleton Scope = iota

	// Transient - the entry is rebuilt on every resolution.
	Transient
)

// String returns the string representation of the Scope.
func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsValid checks if the scope is a known value.
func (s Scope) IsValid() bool {
	return s >= Singleton && s <= Transient
}

// Resolver is the minimal container surface a definition needs at build time.
// The root package's Container satisfies it.
type Resolver interface {
	// Get resolves an entry by name.
	Get(name string) (any, error)

	// Has reports whether an entry can be resolved.
	Has(name string) bool
}

// Definition describes how to build one named entry.
//
// A Definition is immutable once owned by a source, with a single exception:
// a Decorator is bound exactly once to the same-named definition found in a
// later source.
type Definition interface {
	// EntryName returns the name of the entry this definition builds.
	EntryName() string

	// SetName stamps the entry name onto the definition. Sources call this
	// when a definition is registered or matched under a key.
	SetName(name string)
}

// Value is a literal entry. Resolution returns the value untouched.
type Value struct {
	name string

	// Val is the literal value returned on every resolution.
	Val any
}

// NewValue creates a literal definition.
func NewValue(v any) *Value {
	return &Value{Val: v}
}

func (d *Value) EntryName() string   { return d.name }
func (d *Value) SetName(name string) { d.name = name }

// Reference aliases one entry to another.
type Reference struct {
	name string

	// Target is the name of the entry this reference resolves to.
	Target string
}

// NewReference creates an alias definition pointing at target.
func NewReference(target string) *Reference {
	return &Reference{Target: target}
}

func (d *Reference) EntryName() string   { return d.name }
func (d *Reference) SetName(name string) { d.name = name }

// Property describes a single property injection on an object entry.
// Value may be a literal or a nested Definition.
type Property struct {
	Name  string
	Value any
}

// MethodCall describes a single method injection on an object entry.
// Args may contain literals or nested Definitions, in declaration order.
type MethodCall struct {
	Name string
	Args []any
}

// Object describes how to construct a registered type: an ordered list of
// constructor arguments followed by property and method injections.
type Object struct {
	name string

	// TypeName is the registry name of the type to construct. It defaults
	// to the entry name when empty.
	TypeName string

	// Scope controls caching. Defaults to Singleton.
	Scope Scope

	// Lazy defers construction behind a proxy handle.
	Lazy bool

	// ConstructorArgs are positional constructor arguments. Each element is
	// a literal or a nested Definition. A nil element leaves the parameter
	// unset so autowiring or the zero value applies.
	ConstructorArgs []any

	// HasConstructor reports whether ConstructorArgs was set explicitly,
	// distinguishing "no args" from "not specified".
	HasConstructor bool

	// Properties are applied after construction, in declaration order.
	Properties []Property

	// MethodCalls are applied after properties, in declaration order.
	MethodCalls []MethodCall
}

// NewObject creates an object definition for the given registry type name.
func NewObject(typeName string) *Object {
	return &Object{TypeName: typeName, Scope: Singleton}
}

func (d *Object) EntryName() string   { return d.name }
func (d *Object) SetName(name string) { d.name = name }

// Type returns the registry type name, falling back to the entry name.
func (d *Object) Type() string {
	if d.TypeName != "" {
		return d.TypeName
	}
	return d.name
}

// Factory builds an entry by invoking a callable.
type Factory struct {
	name string

	// Callable is either a function value or the name (string) of another
	// entry that resolves to a function value.
	Callable any

	// Parameters are named arguments matched to the callable's declared
	// parameter names, each a literal or nested Definition. Parameters not
	// listed here are autowired by type where possible.
	Parameters []FactoryParam

	// Scope controls caching. Defaults to Singleton.
	Scope Scope

	// Lazy defers invocation behind a proxy handle.
	Lazy bool
}

// FactoryParam is a single named factory argument.
type FactoryParam struct {
	Name  string
	Value any
}

// NewFactory creates a factory definition around callable.
func NewFactory(callable any) *Factory {
	return &Factory{Callable: callable, Scope: Singleton}
}

func (d *Factory) EntryName() string   { return d.name }
func (d *Factory) SetName(name string) { d.name = name }

// DecoratorFunc wraps a previously defined value of the same entry.
type DecoratorFunc func(decorated any, c Resolver) (any, error)

// Decorator wraps the definition of the same name found in a later source.
// Decorated is set exactly once, by the source chain, to the nearest later
// definition of the same name.
type Decorator struct {
	name string

	// Callable receives the decorated value and the container.
	Callable DecoratorFunc

	// Decorated is the bound target definition. Nil until the chain binds it.
	Decorated Definition
}

// NewDecorator creates a decorator definition around callable.
func NewDecorator(callable DecoratorFunc) *Decorator {
	return &Decorator{Callable: callable}
}

func (d *Decorator) EntryName() string   { return d.name }
func (d *Decorator) SetName(name string) { d.name = name }

// Bound reports whether the decorator has been bound to its target.
func (d *Decorator) Bound() bool { return d.Decorated != nil }

// ArrayEntry is one ordered key/value pair of an Array definition.
// Value may be a literal or a nested Definition.
type ArrayEntry struct {
	Key   string
	Value any
}

// Array is an ordered map of literals and nested definitions. It resolves
// to a map[string]any; the declared order is preserved for deterministic
// compilation.
type Array struct {
	name string

	Values []ArrayEntry
}

// NewArray creates an array definition from ordered entries.
func NewArray(values ...ArrayEntry) *Array {
	return &Array{Values: values}
}

func (d *Array) EntryName() string   { return d.name }
func (d *Array) SetName(name string) { d.name = name }

// Env resolves an environment variable, optionally with a default.
type Env struct {
	name string

	// Variable is the environment variable name.
	Variable string

	// Optional allows the variable to be unset when no default is given,
	// resolving to nil instead of failing.
	Optional bool

	// Default is used when the variable is unset. May be a literal or a
	// nested Definition. Only consulted when HasDefault is true.
	Default    any
	HasDefault bool
}

// NewEnv creates an environment variable definition.
func NewEnv(variable string) *Env {
	return &Env{Variable: variable}
}

func (d *Env) EntryName() string   { return d.name }
func (d *Env) SetName(name string) { d.name = name }

// String is a text expression with {entryName} placeholders resolved
// against the container.
type String struct {
	name string

	// Expression is the raw template, e.g. "Hello {user.name}".
	Expression string
}

// NewString creates a string expression definition.
func NewString(expression string) *String {
	return &String{Expression: expression}
}

func (d *String) EntryName() string   { return d.name }
func (d *String) SetName(name string) { d.name = name }
