// Package typereg is the explicit registration table backing autowiring.
// Instead of scanning arbitrary types at resolution time, injectable types
// opt in here: each registration maps an entry name to a constructor
// function or a struct prototype, and binds the produced Go type back to
// the entry name so dependencies can be matched by type.
package typereg

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ferrule-go/ferrule/internal/reflection"
)

// Entry is one registered injectable type.
type Entry struct {
	// Name is the container entry name.
	Name string

	// Ctor is the constructor function info, nil for struct registrations.
	Ctor *reflection.FuncInfo

	// ParamNames are the declared constructor parameter names, supplied at
	// registration time since reflection cannot recover them. May be nil.
	ParamNames []string

	// Struct is the struct analysis, nil for constructor registrations
	// whose result type is not a registered struct.
	Struct *reflection.StructInfo

	// Type is the Go type this entry produces.
	Type reflect.Type

	// Lazy marks the entry lazy by default.
	Lazy bool

	// MethodArgs are per-method injection argument overrides, keyed by
	// method name. Entries may be literals or definitions; a nil slot
	// falls through to by-type autowiring.
	MethodArgs map[string][]any
}

// Option configures a registration.
type Option func(*Entry)

// WithParamNames supplies the constructor's declared parameter names, in
// order, enabling Make overrides by name.
func WithParamNames(names ...string) Option {
	return func(e *Entry) { e.ParamNames = names }
}

// WithLazy marks the registered entry lazy by default.
func WithLazy() Option {
	return func(e *Entry) { e.Lazy = true }
}

// WithMethodArgs overrides injection arguments for one setter method.
// A nil element leaves that parameter to by-type autowiring.
func WithMethodArgs(method string, args ...any) Option {
	return func(e *Entry) {
		if e.MethodArgs == nil {
			e.MethodArgs = make(map[string][]any)
		}
		e.MethodArgs[method] = args
	}
}

// Registry maps entry names to injectable types and Go types back to entry
// names. Safe for concurrent reads after the configuration phase.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	byType   map[reflect.Type]string
	analyzer *reflection.Analyzer
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries:  make(map[string]*Entry),
		byType:   make(map[reflect.Type]string),
		analyzer: reflection.New(),
	}
}

// Analyzer returns the registry's shared analyzer.
func (r *Registry) Analyzer() *reflection.Analyzer {
	return r.analyzer
}

// RegisterConstructor registers a constructor function under an entry name.
// The function's first non-error return type is bound to the name.
func (r *Registry) RegisterConstructor(name string, ctor any, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("entry name cannot be empty")
	}

	info, err := r.analyzer.AnalyzeFunc(ctor)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	if info.NumResults == 0 {
		return fmt.Errorf("register %s: constructor returns no value", name)
	}

	entry := &Entry{
		Name: name,
		Ctor: info,
		Type: info.Type.Out(0),
	}
	for _, opt := range opts {
		opt(entry)
	}
	if entry.ParamNames != nil && len(entry.ParamNames) != len(info.Params) {
		return fmt.Errorf("register %s: %d parameter names for %d parameters",
			name, len(entry.ParamNames), len(info.Params))
	}

	// The result type may be a struct usable for property and method
	// injection as well.
	if structInfo, err := r.analyzer.AnalyzeStruct(entry.Type); err == nil {
		entry.Struct = structInfo
		if structInfo.Lazy {
			entry.Lazy = true
		}
	}

	r.put(entry)
	return nil
}

// RegisterStruct registers a struct prototype under an entry name. The
// prototype may be a zero value or a pointer to one; only its type is kept.
func (r *Registry) RegisterStruct(name string, prototype any, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("entry name cannot be empty")
	}
	if prototype == nil {
		return fmt.Errorf("register %s: prototype cannot be nil", name)
	}

	info, err := r.analyzer.AnalyzeStruct(reflect.TypeOf(prototype))
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	entry := &Entry{
		Name:   name,
		Struct: info,
		Type:   reflect.PointerTo(info.Type),
		Lazy:   info.Lazy,
	}
	for _, opt := range opts {
		opt(entry)
	}

	r.put(entry)
	return nil
}

// Bind maps a Go type to an entry name without registering a constructor,
// typically to route an interface type to its implementation's entry.
func (r *Registry) Bind(t reflect.Type, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = name
}

func (r *Registry) put(entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Name] = entry
	if _, taken := r.byType[entry.Type]; !taken {
		r.byType[entry.Type] = entry.Name
	}
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// NameFor returns the entry name bound to a Go type. Interface types match
// either an explicit Bind or the unique registered implementation.
func (r *Registry) NameFor(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.byType[t]; ok {
		return name, true
	}

	if t.Kind() == reflect.Interface {
		var found string
		for typ, name := range r.byType {
			if typ.Implements(t) {
				if found != "" {
					// Ambiguous - require an explicit Bind.
					return "", false
				}
				found = name
			}
		}
		if found != "" {
			return found, true
		}
	}

	return "", false
}

// Names returns all registered entry names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// EntryForType returns the registered entry producing exactly type t,
// following the same lookup as NameFor.
func (r *Registry) EntryForType(t reflect.Type) (*Entry, bool) {
	name, ok := r.NameFor(t)
	if !ok {
		return nil, false
	}
	return r.Lookup(name)
}
