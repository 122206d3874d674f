package compiler

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/ferrule-go/ferrule/internal/definition"
	"github.com/ferrule-go/ferrule/internal/reflection"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// A plan is the compiled form of one definition: every source chain
// lookup, wildcard match and registry decision is resolved at compile
// time, leaving only literal values, entry lookups and direct calls.

type planKind int

const (
	valuePlan planKind = iota
	refPlan
	objectPlan
	factoryPlan
	arrayPlan
	envPlan
	stringPlan
)

type slotKind int

const (
	// literalSlot is an inline literal value.
	literalSlot slotKind = iota

	// refSlot is a container lookup by entry name.
	refSlot

	// zeroSlot is the zero value of the parameter type.
	zeroSlot

	// containerSlot is the container itself.
	containerSlot
)

// slot is one compiled argument, property value or array element.
type slot struct {
	kind    slotKind
	literal any
	ref     string

	// typ is the destination type, when known. Reference and zero slots
	// need it for the generated assertion or zero expression.
	typ reflect.Type
}

type propPlan struct {
	field string
	value slot
}

type callPlan struct {
	method string
	args   []slot
}

type itemPlan struct {
	key   string
	value slot
}

// segment is one piece of a compiled string expression: literal text or
// an entry lookup.
type segment struct {
	text string
	ref  string
}

type entryPlan struct {
	name      string
	kind      planKind
	transient bool

	// valuePlan
	literal any

	// refPlan
	ref string

	// objectPlan
	entry *typereg.Entry
	args  []slot
	props []propPlan
	calls []callPlan

	// factoryPlan
	fn *reflection.FuncInfo

	// arrayPlan
	items []itemPlan

	// envPlan
	variable   string
	optional   bool
	defaultVal *slot

	// stringPlan
	segments []segment
}

// refs returns the entry names this plan resolves at runtime.
func (p *entryPlan) refs() []string {
	var out []string
	add := func(s slot) {
		if s.kind == refSlot {
			out = append(out, s.ref)
		}
	}

	switch p.kind {
	case refPlan:
		out = append(out, p.ref)
	case objectPlan:
		for _, s := range p.args {
			add(s)
		}
		for _, prop := range p.props {
			add(prop.value)
		}
		for _, call := range p.calls {
			for _, s := range call.args {
				add(s)
			}
		}
	case factoryPlan:
		for _, s := range p.args {
			add(s)
		}
	case arrayPlan:
		for _, item := range p.items {
			add(item.value)
		}
	case envPlan:
		if p.defaultVal != nil {
			add(*p.defaultVal)
		}
	case stringPlan:
		for _, seg := range p.segments {
			if seg.ref != "" {
				out = append(out, seg.ref)
			}
		}
	}
	return out
}

// hoister lifts nested definitions out of slot positions into synthetic
// sub-entries named <parent>.<n>, compiled alongside their parent. The
// slot itself becomes a reference to the sub-entry.
type hoister struct {
	c       *Compiler
	parent  string
	n       int
	hoisted []*entryPlan
}

func (h *hoister) hoist(def definition.Definition, t reflect.Type) (slot, error) {
	h.n++
	name := fmt.Sprintf("%s.%d", h.parent, h.n)
	plan, sub, err := h.c.plan(name, def)
	if err != nil {
		return slot{}, err
	}
	h.hoisted = append(h.hoisted, sub...)
	h.hoisted = append(h.hoisted, plan)
	return h.c.planRef(name, t)
}

// plan compiles one definition, failing with ErrNotCompilable (wrapped)
// when the definition needs the dynamic engine. The second return value
// holds synthetic sub-entry plans hoisted out of nested definitions.
func (c *Compiler) plan(name string, def definition.Definition) (*entryPlan, []*entryPlan, error) {
	h := &hoister{c: c, parent: name}
	plan, err := c.planDef(h, name, def)
	if err != nil {
		return nil, nil, err
	}
	return plan, h.hoisted, nil
}

func (c *Compiler) planDef(h *hoister, name string, def definition.Definition) (*entryPlan, error) {
	switch d := def.(type) {
	case *definition.Value:
		if !literalOK(d.Val) {
			return nil, fmt.Errorf("%w: value of type %T cannot be expressed in generated code",
				definition.ErrNotCompilable, d.Val)
		}
		return &entryPlan{name: name, kind: valuePlan, literal: d.Val}, nil

	case *definition.Reference:
		return &entryPlan{name: name, kind: refPlan, ref: d.Target}, nil

	case *definition.Object:
		return c.planObject(h, name, d)

	case *definition.Factory:
		return c.planFactory(h, name, d)

	case *definition.Decorator:
		return nil, fmt.Errorf("%w: decorators wrap live callables", definition.ErrNotCompilable)

	case *definition.Array:
		return c.planArray(h, name, d)

	case *definition.Env:
		return c.planEnv(h, name, d)

	case *definition.String:
		return &entryPlan{name: name, kind: stringPlan, segments: parseSegments(d.Expression)}, nil

	default:
		return nil, fmt.Errorf("%w: unknown definition type %T", definition.ErrNotCompilable, def)
	}
}

func (c *Compiler) planObject(h *hoister, name string, def *definition.Object) (*entryPlan, error) {
	if def.Lazy {
		return nil, fmt.Errorf("%w: lazy entries resolve through proxy handles", definition.ErrNotCompilable)
	}

	entry, ok := c.registry.Lookup(def.Type())
	if !ok {
		return nil, fmt.Errorf("%w: type %q is not registered", definition.ErrNotCompilable, def.Type())
	}

	plan := &entryPlan{
		name:      name,
		kind:      objectPlan,
		transient: def.Scope == definition.Transient,
		entry:     entry,
	}

	switch {
	case entry.Ctor != nil:
		if !callableSymbol(entry.Ctor) {
			return nil, fmt.Errorf("%w: constructor %q is not an addressable symbol",
				definition.ErrNotCompilable, entry.Ctor.Name)
		}
		if entry.Ctor.Variadic || entry.Ctor.NumResults != 1 {
			return nil, fmt.Errorf("%w: constructor %q has an unsupported signature",
				definition.ErrNotCompilable, entry.Ctor.Name)
		}
		args, err := c.planParams(h, entry.Ctor.Params, explicitArgs(def))
		if err != nil {
			return nil, err
		}
		plan.args = args

	case entry.Struct != nil:
		if entry.Struct.Type.PkgPath() == "" || !exportedType(entry.Struct.Type) {
			return nil, fmt.Errorf("%w: struct type %s is not addressable from generated code",
				definition.ErrNotCompilable, entry.Struct.Type)
		}

	default:
		return nil, fmt.Errorf("%w: registration for %q has neither constructor nor struct",
			definition.ErrNotCompilable, def.Type())
	}

	if len(def.Properties) > 0 || len(def.MethodCalls) > 0 {
		if entry.Struct == nil {
			return nil, fmt.Errorf("%w: injections on %q need struct analysis", definition.ErrNotCompilable, def.Type())
		}
		if entry.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("%w: injections on %q need a pointer instance", definition.ErrNotCompilable, def.Type())
		}
	}

	for _, prop := range def.Properties {
		ft := fieldType(entry, prop.Name)
		if ft == nil {
			return nil, fmt.Errorf("%w: %s has no exported field %q",
				definition.ErrNotCompilable, entry.Struct.Type, prop.Name)
		}
		s, err := c.planSlot(h, prop.Value, ft)
		if err != nil {
			return nil, err
		}
		plan.props = append(plan.props, propPlan{field: prop.Name, value: s})
	}

	for _, call := range def.MethodCalls {
		setter, ok := setterParams(entry, call.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no setter method %q",
				definition.ErrNotCompilable, entry.Struct.Type, call.Name)
		}
		if len(call.Args) > len(setter) {
			return nil, fmt.Errorf("%w: %d arguments for %q taking %d",
				definition.ErrNotCompilable, len(call.Args), call.Name, len(setter))
		}

		cp := callPlan{method: call.Name}
		for i, arg := range call.Args {
			s, err := c.planSlot(h, arg, setter[i].Type)
			if err != nil {
				return nil, err
			}
			cp.args = append(cp.args, s)
		}
		plan.calls = append(plan.calls, cp)
	}

	return plan, nil
}

// setterParams returns the parameter list of a named setter method,
// receiver excluded.
func setterParams(entry *typereg.Entry, method string) ([]reflection.Param, bool) {
	if entry.Struct == nil {
		return nil, false
	}
	for _, s := range entry.Struct.Setters {
		if s.Name == method {
			return s.Params, true
		}
	}
	return nil, false
}

// explicitArgs returns the definition's constructor argument slots, nil
// when the definition leaves the constructor to autowiring.
func explicitArgs(def *definition.Object) []any {
	if !def.HasConstructor {
		return nil
	}
	return def.ConstructorArgs
}

func (c *Compiler) planFactory(h *hoister, name string, def *definition.Factory) (*entryPlan, error) {
	if def.Lazy {
		return nil, fmt.Errorf("%w: lazy entries resolve through proxy handles", definition.ErrNotCompilable)
	}

	fn, ok := def.Callable.(string)
	if ok {
		return nil, fmt.Errorf("%w: callable %q resolves through the container", definition.ErrNotCompilable, fn)
	}

	info, err := c.registry.Analyzer().AnalyzeFunc(def.Callable)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", definition.ErrNotCompilable, err)
	}
	if !callableSymbol(info) {
		return nil, fmt.Errorf("%w: factory %q is not an addressable symbol",
			definition.ErrNotCompilable, info.Name)
	}
	if info.Variadic || info.NumResults != 1 {
		return nil, fmt.Errorf("%w: factory %q has an unsupported signature",
			definition.ErrNotCompilable, info.Name)
	}

	// Declared parameters map positionally onto the callable's
	// non-container parameters, mirroring dynamic resolution.
	declared := make([]any, 0, len(def.Parameters))
	for _, p := range def.Parameters {
		declared = append(declared, p.Value)
	}

	args := make([]slot, len(info.Params))
	next := 0
	for i, param := range info.Params {
		if containerShaped(param.Type) {
			args[i] = slot{kind: containerSlot, typ: param.Type}
			continue
		}

		var explicit any
		if next < len(declared) {
			explicit = declared[next]
		}
		next++

		s, err := c.planParam(h, param.Type, explicit)
		if err != nil {
			return nil, err
		}
		args[i] = s
	}

	return &entryPlan{
		name:      name,
		kind:      factoryPlan,
		transient: def.Scope == definition.Transient,
		fn:        info,
		args:      args,
	}, nil
}

func (c *Compiler) planArray(h *hoister, name string, def *definition.Array) (*entryPlan, error) {
	plan := &entryPlan{name: name, kind: arrayPlan}
	for _, entry := range def.Values {
		s, err := c.planSlot(h, entry.Value, nil)
		if err != nil {
			return nil, err
		}
		plan.items = append(plan.items, itemPlan{key: entry.Key, value: s})
	}
	return plan, nil
}

func (c *Compiler) planEnv(h *hoister, name string, def *definition.Env) (*entryPlan, error) {
	plan := &entryPlan{
		name:     name,
		kind:     envPlan,
		variable: def.Variable,
		optional: def.Optional,
	}
	if def.HasDefault {
		s, err := c.planSlot(h, def.Default, nil)
		if err != nil {
			return nil, err
		}
		plan.defaultVal = &s
	}
	return plan, nil
}

// planParams compiles positional constructor arguments: explicit slots
// first, then autowiring by type, then the zero value.
func (c *Compiler) planParams(h *hoister, params []reflection.Param, explicit []any) ([]slot, error) {
	args := make([]slot, len(params))
	for i, param := range params {
		var value any
		if i < len(explicit) {
			value = explicit[i]
		}
		s, err := c.planParam(h, param.Type, value)
		if err != nil {
			return nil, err
		}
		args[i] = s
	}
	return args, nil
}

func (c *Compiler) planParam(h *hoister, t reflect.Type, explicit any) (slot, error) {
	if explicit != nil {
		return c.planSlot(h, explicit, t)
	}
	if target, ok := c.registry.NameFor(t); ok {
		return c.planRef(target, t)
	}
	if !typeSupported(t) {
		return slot{}, fmt.Errorf("%w: cannot express zero value of %s", definition.ErrNotCompilable, t)
	}
	return slot{kind: zeroSlot, typ: t}, nil
}

// planSlot compiles one literal-or-definition position. Nested
// definitions beyond values and references are hoisted into synthetic
// sub-entries.
func (c *Compiler) planSlot(h *hoister, value any, t reflect.Type) (slot, error) {
	switch v := value.(type) {
	case nil:
		if t == nil {
			return slot{kind: literalSlot, literal: nil}, nil
		}
		if !typeSupported(t) {
			return slot{}, fmt.Errorf("%w: cannot express zero value of %s", definition.ErrNotCompilable, t)
		}
		return slot{kind: zeroSlot, typ: t}, nil

	case *definition.Value:
		if !literalOK(v.Val) {
			return slot{}, fmt.Errorf("%w: value of type %T cannot be expressed in generated code",
				definition.ErrNotCompilable, v.Val)
		}
		return slot{kind: literalSlot, literal: v.Val}, nil

	case *definition.Reference:
		return c.planRef(v.Target, t)

	case definition.Definition:
		return h.hoist(v, t)

	default:
		if !literalOK(v) {
			return slot{}, fmt.Errorf("%w: value of type %T cannot be expressed in generated code",
				definition.ErrNotCompilable, v)
		}
		return slot{kind: literalSlot, literal: v}, nil
	}
}

func (c *Compiler) planRef(target string, t reflect.Type) (slot, error) {
	if t != nil && !typeSupported(t) {
		return slot{}, fmt.Errorf("%w: cannot assert lookup of %q to %s",
			definition.ErrNotCompilable, target, t)
	}
	return slot{kind: refSlot, ref: target, typ: t}, nil
}

var segmentPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// parseSegments splits a string expression into literal text and entry
// lookups, preserving order.
func parseSegments(expression string) []segment {
	var segments []segment
	last := 0
	for _, loc := range segmentPattern.FindAllStringSubmatchIndex(expression, -1) {
		if loc[0] > last {
			segments = append(segments, segment{text: expression[last:loc[0]]})
		}
		segments = append(segments, segment{ref: expression[loc[2]:loc[3]]})
		last = loc[1]
	}
	if last < len(expression) {
		segments = append(segments, segment{text: expression[last:]})
	}
	return segments
}

// literalOK reports whether a value can be rendered as a Go literal.
func literalOK(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// callableSymbol reports whether a function can be named in generated
// code: a package-level exported function, not a closure or method value.
func callableSymbol(info *reflection.FuncInfo) bool {
	if info.Name == "" || reflection.IsClosure(info.Value) {
		return false
	}
	// Instantiated generic functions carry bracketed type arguments and
	// cannot be named directly.
	if strings.Contains(info.Name, "[") {
		return false
	}
	base := info.Name
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	if base == "" {
		return false
	}
	first := rune(base[0])
	return first >= 'A' && first <= 'Z'
}

// typeSupported reports whether a type can be written as a Go type
// expression in the artifact.
func typeSupported(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice:
		return typeSupported(t.Elem())
	case reflect.Map:
		return typeSupported(t.Key()) && typeSupported(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return true
		}
		return t.PkgPath() != "" && exportedType(t)
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return false
	case reflect.Struct:
		return t.PkgPath() != "" && exportedType(t)
	default:
		// Named basic types are fine; so are the builtins themselves.
		if t.PkgPath() != "" {
			return exportedType(t)
		}
		return true
	}
}

func exportedType(t reflect.Type) bool {
	name := t.Name()
	if name == "" {
		return false
	}
	first := rune(name[0])
	return first >= 'A' && first <= 'Z'
}

// containerShaped reports whether an interface parameter should receive
// the container itself: it declares Get(string) (any, error).
func containerShaped(t reflect.Type) bool {
	if t.Kind() != reflect.Interface {
		return false
	}
	m, ok := t.MethodByName("Get")
	if !ok {
		return false
	}
	ft := m.Type
	return ft.NumIn() == 1 && ft.In(0).Kind() == reflect.String &&
		ft.NumOut() == 2 && ft.Out(1) == errType
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// fieldType returns the destination type of a named field, nil when the
// registration has no struct analysis or the field is unknown.
func fieldType(entry *typereg.Entry, name string) reflect.Type {
	if entry.Struct == nil {
		return nil
	}
	for _, f := range entry.Struct.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}

// accessor builds the in-memory accessor for a plan. It performs exactly
// what the generated artifact performs for the same entry.
func (c *Compiler) accessor(plan *entryPlan) Accessor {
	switch plan.kind {
	case valuePlan:
		literal := plan.literal
		return func(definition.Resolver) (any, error) { return literal, nil }

	case refPlan:
		target := plan.ref
		return func(r definition.Resolver) (any, error) { return r.Get(target) }

	case objectPlan:
		return c.objectAccessor(plan)

	case factoryPlan:
		return c.factoryAccessor(plan)

	case arrayPlan:
		items := plan.items
		return func(r definition.Resolver) (any, error) {
			out := make(map[string]any, len(items))
			for _, item := range items {
				v, err := resolveSlot(r, item.value)
				if err != nil {
					return nil, err
				}
				out[item.key] = v
			}
			return out, nil
		}

	case envPlan:
		return envAccessor(plan)

	case stringPlan:
		segments := plan.segments
		return func(r definition.Resolver) (any, error) {
			var b strings.Builder
			for _, seg := range segments {
				if seg.ref == "" {
					b.WriteString(seg.text)
					continue
				}
				v, err := r.Get(seg.ref)
				if err != nil {
					return nil, definition.DependencyError{Name: plan.name, Cause: err}
				}
				fmt.Fprint(&b, v)
			}
			return b.String(), nil
		}

	default:
		return func(definition.Resolver) (any, error) {
			return nil, fmt.Errorf("no accessor for entry %q", plan.name)
		}
	}
}

func (c *Compiler) objectAccessor(plan *entryPlan) Accessor {
	entry := plan.entry
	name := plan.name

	return func(r definition.Resolver) (any, error) {
		var instance any

		if entry.Ctor != nil {
			args, err := resolveSlots(r, plan.args)
			if err != nil {
				return nil, definition.DependencyError{Name: name, Cause: err}
			}
			instance, err = c.invoker.Call(entry.Ctor, args)
			if err != nil {
				return nil, definition.DependencyError{Name: name, Cause: err}
			}
		} else {
			instance = c.invoker.NewStruct(entry.Struct).Interface()
		}

		obj := reflect.ValueOf(instance)
		for _, prop := range plan.props {
			v, err := resolveSlot(r, prop.value)
			if err != nil {
				return nil, definition.DependencyError{Name: name, Cause: err}
			}
			if err := c.invoker.SetField(entry.Struct, obj, prop.field, v); err != nil {
				return nil, definition.DependencyError{Name: name, Cause: err}
			}
		}
		for _, call := range plan.calls {
			args, err := resolveSlots(r, call.args)
			if err != nil {
				return nil, definition.DependencyError{Name: name, Cause: err}
			}
			if err := c.invoker.CallMethod(obj, call.method, args); err != nil {
				return nil, definition.DependencyError{Name: name, Cause: err}
			}
		}

		return instance, nil
	}
}

func (c *Compiler) factoryAccessor(plan *entryPlan) Accessor {
	info := plan.fn
	name := plan.name

	return func(r definition.Resolver) (any, error) {
		args, err := resolveSlots(r, plan.args)
		if err != nil {
			return nil, definition.DependencyError{Name: name, Cause: err}
		}
		result, err := c.invoker.Call(info, args)
		if err != nil {
			return nil, definition.DependencyError{Name: name, Cause: err}
		}
		return result, nil
	}
}

func envAccessor(plan *entryPlan) Accessor {
	return func(r definition.Resolver) (any, error) {
		if v, ok := os.LookupEnv(plan.variable); ok {
			return v, nil
		}
		if plan.defaultVal != nil {
			return resolveSlot(r, *plan.defaultVal)
		}
		if plan.optional {
			return nil, nil
		}
		return nil, definition.DependencyError{
			Name:  plan.name,
			Cause: fmt.Errorf("environment variable %q is not defined", plan.variable),
		}
	}
}

func resolveSlots(r definition.Resolver, slots []slot) ([]any, error) {
	args := make([]any, len(slots))
	for i, s := range slots {
		v, err := resolveSlot(r, s)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func resolveSlot(r definition.Resolver, s slot) (any, error) {
	switch s.kind {
	case literalSlot:
		return s.literal, nil
	case refSlot:
		return r.Get(s.ref)
	case zeroSlot:
		if s.typ == nil {
			return nil, nil
		}
		return reflect.Zero(s.typ).Interface(), nil
	case containerSlot:
		return r, nil
	default:
		return nil, fmt.Errorf("unknown slot kind %d", s.kind)
	}
}
