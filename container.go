package ferrule

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/ferrule-go/ferrule/internal/definition"
	"github.com/ferrule-go/ferrule/internal/reflection"
	"github.com/ferrule-go/ferrule/internal/source"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// Container resolves named entries from the configured definition sources.
//
// The usage pattern is single-writer configuration followed by many-reader
// resolution: Set during bootstrap, Get/Make/InjectOn while serving.
// Concurrent resolution is safe; concurrent mutation during resolution is
// not supported.
type Container interface {
	// Get resolves an entry by name. Singleton-scoped entries are built
	// once and cached for the container's lifetime; lazy entries resolve
	// to a Deferred handle.
	Get(name string) (any, error)

	// Has reports whether an entry can be resolved, either from a
	// definition or through autowiring of a registered type.
	Has(name string) bool

	// Make builds a fresh instance, bypassing the singleton cache in both
	// directions. Overrides replace constructor parameters (by declared
	// name) and struct fields (by field name) of the target entry.
	Make(name string, overrides map[string]any) (any, error)

	// InjectOn applies property and method injections to an already-built
	// instance of a registered type. Unresolvable injections are skipped,
	// never fatal; only setter-shaped methods are invoked. Instances of
	// unregistered types are left untouched.
	InjectOn(instance any) error

	// Set registers a value or definition under a name in the container's
	// mutable source, which is always searched first.
	Set(name string, value any)

	// ID returns the unique ID of this container.
	ID() string
}

// container is the dynamic resolution engine.
type container struct {
	id       string
	chain    *source.Chain
	registry *typereg.Registry
	invoker  *reflection.Invoker
	proxies  ProxyFactory
	logger   *zap.Logger

	singletons *singletonCache
}

var _ Container = (*container)(nil)

func (c *container) ID() string { return c.id }

func (c *container) Set(name string, value any) {
	c.chain.Mutable().Add(name, normalizeValue(value))
}

func (c *container) Has(name string) bool {
	def, err := c.chain.Definition(name)
	return err == nil && def != nil
}

func (c *container) Get(name string) (any, error) {
	if instance, ok := c.singletons.get(name); ok {
		c.logger.Debug("singleton cache hit", zap.String("entry", name))
		return instance, nil
	}

	return c.resolveEntry(name, newResolveState(nil))
}

func (c *container) Make(name string, overrides map[string]any) (any, error) {
	def, err := c.chain.Definition(name)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, EntryNotFoundError{Name: name}
	}

	state := newResolveState(overrides)
	if err := state.push(name); err != nil {
		return nil, err
	}
	defer state.pop()

	// Make never reads nor writes the singleton cache for the target.
	return c.resolveDefinition(def, state, true)
}

func (c *container) InjectOn(instance any) error {
	if instance == nil {
		return fmt.Errorf("instance cannot be nil")
	}
	if c.registry == nil {
		return nil
	}

	name, ok := c.registry.NameFor(reflect.TypeOf(instance))
	if !ok {
		return nil
	}

	def := c.injectionView(name)
	if def == nil {
		return nil
	}

	c.logger.Debug("injecting on existing instance",
		zap.String("entry", name), zap.String("type", fmt.Sprintf("%T", instance)))

	return c.applyInjections(def, instance, newResolveState(nil))
}

// injectionView returns the object definition describing injections for a
// registered name: the chain's definition when it is an object one, else a
// tag-derived view.
func (c *container) injectionView(name string) *definition.Object {
	if def, err := c.chain.Definition(name); err == nil {
		if obj, ok := def.(*definition.Object); ok {
			return obj
		}
	}

	tags := source.NewTags(c.registry)
	if def, ok, err := tags.Definition(name); err == nil && ok {
		if obj, isObject := def.(*definition.Object); isObject {
			return obj
		}
	}
	return nil
}

// normalizeValue wraps raw values for Set: definitions pass through,
// functions become factories, everything else is a literal.
func normalizeValue(value any) definition.Definition {
	if def, ok := value.(definition.Definition); ok {
		return def
	}
	if value != nil && reflect.TypeOf(value).Kind() == reflect.Func {
		return definition.NewFactory(value)
	}
	return definition.NewValue(value)
}

// Get resolves an entry and type-asserts the result. A Deferred handle is
// transparently forced when T is not the handle type itself.
func Get[T any](c Container, name string) (T, error) {
	var zero T

	value, err := c.Get(name)
	if err != nil {
		return zero, err
	}

	if typed, ok := value.(T); ok {
		return typed, nil
	}

	if deferred, ok := value.(Deferred); ok {
		forced, err := deferred.Get()
		if err != nil {
			return zero, err
		}
		if typed, ok := forced.(T); ok {
			return typed, nil
		}
		return zero, fmt.Errorf("entry %q resolved to %T, not %T", name, forced, zero)
	}

	return zero, fmt.Errorf("entry %q resolved to %T, not %T", name, value, zero)
}
