package ferrule

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ferrule-go/ferrule/internal/definition"
	"github.com/ferrule-go/ferrule/internal/reflection"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// resolveState tracks one top-level resolution: the stack of entry names
// currently being built (for fail-fast cycle detection) and the overrides
// of a Make call, which apply to the target entry only.
type resolveState struct {
	stack     []string
	inStack   map[string]bool
	overrides map[string]any
}

func newResolveState(overrides map[string]any) *resolveState {
	return &resolveState{
		inStack:   make(map[string]bool),
		overrides: overrides,
	}
}

// push fails with a CircularDependencyError when name is already being
// resolved; recursion depth is bounded by this stack alone.
func (s *resolveState) push(name string) error {
	if s.inStack[name] {
		return CircularDependencyError{Path: append(append([]string(nil), s.stack...), name)}
	}
	s.stack = append(s.stack, name)
	s.inStack[name] = true
	return nil
}

func (s *resolveState) pop() {
	last := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.inStack, last)
}

// resolveEntry resolves a named entry: cache, chain lookup, build, cache.
func (c *container) resolveEntry(name string, state *resolveState) (any, error) {
	if instance, ok := c.singletons.get(name); ok {
		return instance, nil
	}

	def, err := c.chain.Definition(name)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, EntryNotFoundError{Name: name}
	}

	if err := state.push(name); err != nil {
		return nil, err
	}
	defer state.pop()

	c.logger.Debug("resolving entry", zap.String("entry", name))

	value, err := c.resolveDefinition(def, state, false)
	if err != nil {
		return nil, err
	}

	if isSingleton(def) {
		c.singletons.set(name, value)
	}
	return value, nil
}

// isSingleton reports whether an entry's value is cached for the
// container's lifetime. Definitions without a scope are singletons.
func isSingleton(def definition.Definition) bool {
	switch d := def.(type) {
	case *definition.Object:
		return d.Scope == definition.Singleton
	case *definition.Factory:
		return d.Scope == definition.Singleton
	default:
		return true
	}
}

// resolveDefinition interprets one definition. withOverrides is true only
// for the direct target of a Make call.
func (c *container) resolveDefinition(def definition.Definition, state *resolveState, withOverrides bool) (any, error) {
	var overrides map[string]any
	if withOverrides {
		overrides = state.overrides
	}

	switch d := def.(type) {
	case *definition.Value:
		return d.Val, nil

	case *definition.Reference:
		return c.resolveEntry(d.Target, state)

	case *definition.Object:
		if d.Lazy {
			return c.deferObject(d, overrides), nil
		}
		return c.buildObject(d, state, overrides)

	case *definition.Factory:
		if d.Lazy {
			return c.deferFactory(d, overrides), nil
		}
		return c.buildFactory(d, state, overrides)

	case *definition.Decorator:
		return c.buildDecorated(d, state)

	case *definition.Array:
		return c.buildArray(d, state)

	case *definition.Env:
		return c.resolveEnv(d, state)

	case *definition.String:
		return c.resolveString(d, state)

	default:
		return nil, InvalidDefinitionError{
			Name:  def.EntryName(),
			Cause: fmt.Errorf("unknown definition type %T", def),
		}
	}
}

// resolveSlot resolves a literal-or-definition position: nested
// definitions are interpreted, raw values pass through.
func (c *container) resolveSlot(value any, state *resolveState) (any, error) {
	if def, ok := value.(definition.Definition); ok {
		return c.resolveDefinition(def, state, false)
	}
	return value, nil
}

// deferObject wraps object construction in a lazy handle. The build runs
// with a fresh resolution state since it happens after the current
// resolution has unwound.
func (c *container) deferObject(def *definition.Object, overrides map[string]any) Deferred {
	return c.proxies.New(def.EntryName(), func() (any, error) {
		return c.buildObject(def, newResolveState(nil), overrides)
	})
}

func (c *container) deferFactory(def *definition.Factory, overrides map[string]any) Deferred {
	return c.proxies.New(def.EntryName(), func() (any, error) {
		return c.buildFactory(def, newResolveState(nil), overrides)
	})
}

// buildObject instantiates a registered type and applies its injections.
func (c *container) buildObject(def *definition.Object, state *resolveState, overrides map[string]any) (any, error) {
	if c.registry == nil {
		return nil, DependencyError{
			Name:  def.EntryName(),
			Cause: fmt.Errorf("no type registry configured for object entry"),
		}
	}

	entry, ok := c.registry.Lookup(def.Type())
	if !ok {
		return nil, DependencyError{
			Name:  def.EntryName(),
			Cause: fmt.Errorf("type %q is not registered", def.Type()),
		}
	}

	var instance any
	switch {
	case entry.Ctor != nil:
		args, err := c.constructorArgs(def, entry, state, overrides)
		if err != nil {
			return nil, DependencyError{Name: def.EntryName(), Cause: err}
		}
		instance, err = c.invoker.Call(entry.Ctor, args)
		if err != nil {
			return nil, DependencyError{Name: def.EntryName(), Cause: err}
		}

	case entry.Struct != nil:
		instance = c.invoker.NewStruct(entry.Struct).Interface()

	default:
		return nil, DependencyError{
			Name:  def.EntryName(),
			Cause: fmt.Errorf("registration for %q has neither constructor nor struct", def.Type()),
		}
	}

	if err := c.applyFieldOverrides(entry, instance, overrides); err != nil {
		return nil, DependencyError{Name: def.EntryName(), Cause: err}
	}

	if err := c.applyInjections(def, instance, state); err != nil {
		return nil, DependencyError{Name: def.EntryName(), Cause: err}
	}

	return instance, nil
}

// constructorArgs assembles positional constructor arguments: Make
// overrides by declared parameter name win, then explicit definition
// arguments, then autowiring by type, then the zero value.
func (c *container) constructorArgs(def *definition.Object, entry *typereg.Entry, state *resolveState, overrides map[string]any) ([]any, error) {
	params := entry.Ctor.Params
	args := make([]any, len(params))

	for i, param := range params {
		if overrides != nil && i < len(entry.ParamNames) {
			if v, ok := overrides[entry.ParamNames[i]]; ok {
				args[i] = v
				continue
			}
		}

		if def.HasConstructor && i < len(def.ConstructorArgs) && def.ConstructorArgs[i] != nil {
			v, err := c.resolveSlot(def.ConstructorArgs[i], state)
			if err != nil {
				return nil, fmt.Errorf("constructor argument %d: %w", i, err)
			}
			args[i] = v
			continue
		}

		if target, ok := c.registry.NameFor(param.Type); ok {
			v, err := c.resolveEntry(target, state)
			if err != nil {
				return nil, fmt.Errorf("constructor argument %d (%s): %w", i, target, err)
			}
			args[i] = v
			continue
		}

		// Unregistered parameter types are left unset: Coerce turns the
		// nil into the parameter's zero value.
	}

	return args, nil
}

// applyFieldOverrides sets Make overrides matching exported field names.
func (c *container) applyFieldOverrides(entry *typereg.Entry, instance any, overrides map[string]any) error {
	if len(overrides) == 0 || entry.Struct == nil {
		return nil
	}

	obj := reflect.ValueOf(instance)
	if obj.Kind() != reflect.Pointer {
		return nil
	}

	for _, field := range entry.Struct.Fields {
		if v, ok := overrides[field.Name]; ok {
			if err := c.invoker.SetField(entry.Struct, obj, field.Name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyInjections performs property injections then method injections, in
// declaration order. An injection whose dependency cannot be resolved is
// skipped silently; the container tolerates partially wired types.
func (c *container) applyInjections(def *definition.Object, instance any, state *resolveState) error {
	if len(def.Properties) == 0 && len(def.MethodCalls) == 0 {
		return nil
	}
	if c.registry == nil {
		return nil
	}

	entry, ok := c.registry.Lookup(def.Type())
	if !ok || entry.Struct == nil {
		return nil
	}

	obj := reflect.ValueOf(instance)
	if obj.Kind() != reflect.Pointer {
		return fmt.Errorf("cannot inject on non-pointer instance of %T", instance)
	}

	for _, prop := range def.Properties {
		value, err := c.resolveSlot(prop.Value, state)
		if err != nil {
			c.logger.Debug("skipping unresolvable property injection",
				zap.String("entry", def.EntryName()),
				zap.String("property", prop.Name),
				zap.Error(err))
			continue
		}
		if err := c.invoker.SetField(entry.Struct, obj, prop.Name, value); err != nil {
			return err
		}
	}

	for _, call := range def.MethodCalls {
		args := make([]any, len(call.Args))
		skip := false
		for i, arg := range call.Args {
			value, err := c.resolveSlot(arg, state)
			if err != nil {
				c.logger.Debug("skipping unresolvable method injection",
					zap.String("entry", def.EntryName()),
					zap.String("method", call.Name),
					zap.Error(err))
				skip = true
				break
			}
			args[i] = value
		}
		if skip {
			continue
		}
		if err := c.invoker.CallMethod(obj, call.Name, args); err != nil {
			return err
		}
	}

	return nil
}

// buildFactory resolves the callable and its parameters, then invokes it.
func (c *container) buildFactory(def *definition.Factory, state *resolveState, overrides map[string]any) (any, error) {
	callable, err := c.resolveCallable(def, state)
	if err != nil {
		return nil, DependencyError{Name: def.EntryName(), Cause: err}
	}

	info, err := c.analyzer().AnalyzeFunc(callable)
	if err != nil {
		return nil, DependencyError{Name: def.EntryName(), Cause: err}
	}

	args := make([]any, len(info.Params))
	next := 0 // index into declared parameters
	for i, param := range info.Params {
		// The container injects itself into container-shaped parameters.
		if c.isContainerParam(param.Type) {
			args[i] = Container(c)
			continue
		}

		if value, ok, err := c.factoryParam(def, next, state, overrides); err != nil {
			return nil, DependencyError{Name: def.EntryName(), Cause: err}
		} else if ok {
			args[i] = value
			next++
			continue
		}
		next++

		if c.registry != nil {
			if target, ok := c.registry.NameFor(param.Type); ok {
				value, err := c.resolveEntry(target, state)
				if err != nil {
					return nil, DependencyError{Name: def.EntryName(), Cause: err}
				}
				args[i] = value
				continue
			}
		}
	}

	result, err := c.invoker.Call(info, args)
	if err != nil {
		return nil, DependencyError{Name: def.EntryName(), Cause: err}
	}
	return result, nil
}

// factoryParam returns the declared parameter value at position index,
// with Make overrides replacing declared parameters of the same name.
func (c *container) factoryParam(def *definition.Factory, index int, state *resolveState, overrides map[string]any) (any, bool, error) {
	if index >= len(def.Parameters) {
		return nil, false, nil
	}

	param := def.Parameters[index]
	if overrides != nil {
		if v, ok := overrides[param.Name]; ok {
			return v, true, nil
		}
	}

	value, err := c.resolveSlot(param.Value, state)
	if err != nil {
		return nil, false, fmt.Errorf("factory parameter %q: %w", param.Name, err)
	}
	return value, true, nil
}

// resolveCallable turns the factory's callable into a function value. A
// string callable names another entry; a non-function entry value with an
// Invoke method is used through that method.
func (c *container) resolveCallable(def *definition.Factory, state *resolveState) (any, error) {
	callable := def.Callable

	if name, ok := callable.(string); ok {
		resolved, err := c.resolveEntry(name, state)
		if err != nil {
			return nil, fmt.Errorf("factory callable %q: %w", name, err)
		}
		callable = resolved
	}

	if callable == nil {
		return nil, fmt.Errorf("factory callable is nil")
	}

	v := reflect.ValueOf(callable)
	if v.Kind() == reflect.Func {
		return callable, nil
	}

	if invoke := v.MethodByName("Invoke"); invoke.IsValid() {
		return invoke.Interface(), nil
	}

	return nil, fmt.Errorf("factory callable must be a function or have an Invoke method, got %T", callable)
}

// buildDecorated resolves the bound target, then calls the decorator with
// the decorated value and the container.
func (c *container) buildDecorated(def *definition.Decorator, state *resolveState) (any, error) {
	if !def.Bound() {
		return nil, InvalidDefinitionError{
			Name:  def.EntryName(),
			Cause: definition.ErrDecoratorTarget,
		}
	}

	decorated, err := c.resolveDefinition(def.Decorated, state, false)
	if err != nil {
		return nil, err
	}

	value, err := def.Callable(decorated, c)
	if err != nil {
		return nil, DependencyError{Name: def.EntryName(), Cause: err}
	}
	return value, nil
}

func (c *container) buildArray(def *definition.Array, state *resolveState) (any, error) {
	out := make(map[string]any, len(def.Values))
	for _, entry := range def.Values {
		value, err := c.resolveSlot(entry.Value, state)
		if err != nil {
			return nil, DependencyError{
				Name:  def.EntryName(),
				Cause: fmt.Errorf("array key %q: %w", entry.Key, err),
			}
		}
		out[entry.Key] = value
	}
	return out, nil
}

func (c *container) resolveEnv(def *definition.Env, state *resolveState) (any, error) {
	if value, ok := os.LookupEnv(def.Variable); ok {
		return value, nil
	}

	if def.HasDefault {
		return c.resolveSlot(def.Default, state)
	}
	if def.Optional {
		return nil, nil
	}

	return nil, DependencyError{
		Name:  def.EntryName(),
		Cause: fmt.Errorf("environment variable %q is not defined", def.Variable),
	}
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

func (c *container) resolveString(def *definition.String, state *resolveState) (any, error) {
	var firstErr error

	result := placeholderPattern.ReplaceAllStringFunc(def.Expression, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{"), "}")
		value, err := c.resolveEntry(name, state)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("placeholder %q: %w", name, err)
			}
			return match
		}
		return fmt.Sprint(value)
	})

	if firstErr != nil {
		return nil, DependencyError{Name: def.EntryName(), Cause: firstErr}
	}
	return result, nil
}

// containerIface is the container's own interface type, injected into
// factory parameters shaped like it.
var containerIface = reflect.TypeOf((*Container)(nil)).Elem()

func (c *container) isContainerParam(t reflect.Type) bool {
	if t.Kind() != reflect.Interface || t.NumMethod() == 0 {
		return false
	}
	if _, ok := t.MethodByName("Get"); !ok {
		return false
	}
	return t == containerIface || reflect.TypeOf(c).Implements(t)
}

// analyzer returns the shared analyzer, creating a registry on first use
// for containers configured without one.
func (c *container) analyzer() *reflection.Analyzer {
	if c.registry == nil {
		c.registry = typereg.New()
	}
	return c.registry.Analyzer()
}
