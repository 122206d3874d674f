// Package reflection performs the runtime type inspection shared by the
// autowiring sources, the resolution engine, and the compiler. All analysis
// results are cached so each constructor, struct, or method is inspected at
// most once per analyzer.
package reflection

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Analyzer inspects constructor functions and struct types.
type Analyzer struct {
	mu      sync.RWMutex
	funcs   map[uintptr]*FuncInfo
	structs map[reflect.Type]*StructInfo
}

// FuncInfo contains analyzed information about a constructor or factory function.
type FuncInfo struct {
	Type  reflect.Type
	Value reflect.Value

	// Name is the symbol name reported by the runtime, empty for closures
	// that the runtime names with a ".func" suffix.
	Name string

	// Params are the function parameters in declaration order.
	Params []Param

	// Variadic reports whether the final parameter is variadic.
	Variadic bool

	// HasErrorReturn reports whether the last return value is an error.
	HasErrorReturn bool

	// NumResults is the number of non-error return values.
	NumResults int
}

// Param describes a single function parameter.
type Param struct {
	Type  reflect.Type
	Index int

	// Name is the declared parameter name when registered explicitly.
	// Go reflection does not expose parameter names, so this is empty
	// unless the registry supplied names at registration time.
	Name string
}

// StructInfo contains analyzed information about an injectable struct type.
type StructInfo struct {
	// Type is the struct type itself (not a pointer).
	Type reflect.Type

	// Fields are the exported fields, including promoted fields of
	// embedded structs, in declaration order.
	Fields []Field

	// Setters are the exported setter-shaped methods of *T, in
	// declaration order.
	Setters []Setter

	// Lazy is true when the struct carries a laziness marker tag.
	Lazy bool
}

// Field describes one exported struct field and its injection tag.
type Field struct {
	Name  string
	Type  reflect.Type
	Index []int // index path for promoted fields

	// Inject reports whether the field carries an inject tag.
	Inject bool

	// Entry is the explicit entry name from the tag, empty for
	// inject-by-type.
	Entry string

	// Optional is set by `inject:",optional"`.
	Optional bool
}

// Setter describes one setter-shaped method: exported, non-static in the Go
// sense (has a receiver), at least one parameter, and returning nothing or
// a single error.
type Setter struct {
	Name   string
	Method reflect.Method
	Params []Param
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		funcs:   make(map[uintptr]*FuncInfo),
		structs: make(map[reflect.Type]*StructInfo),
	}
}

// AnalyzeFunc analyzes a function value.
func (a *Analyzer) AnalyzeFunc(fn any) (*FuncInfo, error) {
	if fn == nil {
		return nil, fmt.Errorf("function cannot be nil")
	}

	val := reflect.ValueOf(fn)
	if !val.IsValid() || val.Kind() != reflect.Func || val.IsNil() {
		return nil, fmt.Errorf("expected a function, got %T", fn)
	}

	key := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.funcs[key]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	typ := val.Type()
	info := &FuncInfo{
		Type:     typ,
		Value:    val,
		Name:     FuncName(val),
		Variadic: typ.IsVariadic(),
	}

	info.Params = make([]Param, typ.NumIn())
	for i := 0; i < typ.NumIn(); i++ {
		info.Params[i] = Param{Type: typ.In(i), Index: i}
	}

	numOut := typ.NumOut()
	if numOut > 0 && typ.Out(numOut-1).Implements(errType) {
		info.HasErrorReturn = true
		numOut--
	}
	info.NumResults = numOut

	a.mu.Lock()
	a.funcs[key] = info
	a.mu.Unlock()

	return info, nil
}

// AnalyzeStruct analyzes a struct type for injectable fields and setters.
// Accepts a struct type or a pointer to one.
func (a *Analyzer) AnalyzeStruct(t reflect.Type) (*StructInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("type cannot be nil")
	}

	ptrType := t
	structType := t
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	} else {
		ptrType = reflect.PointerTo(structType)
	}

	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct type, got %v", t)
	}

	a.mu.RLock()
	if cached, ok := a.structs[structType]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &StructInfo{Type: structType}
	a.collectFields(structType, nil, info)

	for i := 0; i < ptrType.NumMethod(); i++ {
		method := ptrType.Method(i)
		if setter, ok := asSetter(method); ok {
			info.Setters = append(info.Setters, setter)
		}
	}

	a.mu.Lock()
	a.structs[structType] = info
	a.mu.Unlock()

	return info, nil
}

// collectFields walks exported fields, descending into embedded structs so
// promoted fields of ancestor types are injectable too.
func (a *Analyzer) collectFields(t reflect.Type, index []int, info *StructInfo) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		path := append(append([]int(nil), index...), i)

		if field.Anonymous {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				a.collectFields(embedded, path, info)
				continue
			}
		}

		if !field.IsExported() {
			continue
		}

		if _, ok := field.Tag.Lookup("lazy"); ok && field.Tag.Get("lazy") == "true" {
			info.Lazy = true
		}

		f := Field{
			Name:  field.Name,
			Type:  field.Type,
			Index: path,
		}

		if tag, ok := field.Tag.Lookup("inject"); ok && tag != "-" {
			f.Inject = true
			entry, opts, _ := strings.Cut(tag, ",")
			f.Entry = entry
			for _, opt := range strings.Split(opts, ",") {
				if opt == "optional" {
					f.Optional = true
				}
			}
		}

		info.Fields = append(info.Fields, f)
	}
}

// asSetter reports whether a method is setter-shaped: exported, named
// Set-prefixed, taking at least one argument beyond the receiver, and
// returning nothing or a single error.
func asSetter(method reflect.Method) (Setter, bool) {
	if !isExportedName(method.Name) || !strings.HasPrefix(method.Name, "Set") {
		return Setter{}, false
	}

	mt := method.Type
	// In(0) is the receiver.
	if mt.NumIn() < 2 {
		return Setter{}, false
	}

	switch mt.NumOut() {
	case 0:
	case 1:
		if !mt.Out(0).Implements(errType) {
			return Setter{}, false
		}
	default:
		return Setter{}, false
	}

	setter := Setter{Name: method.Name, Method: method}
	for i := 1; i < mt.NumIn(); i++ {
		setter.Params = append(setter.Params, Param{Type: mt.In(i), Index: i - 1})
	}
	return setter, true
}

// FuncName returns the runtime symbol name of a function value, or an
// empty string if it cannot be determined.
func FuncName(v reflect.Value) string {
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	pc := runtime.FuncForPC(v.Pointer())
	if pc == nil {
		return ""
	}
	return pc.Name()
}

// IsClosure reports whether a function value is an anonymous function or a
// method value. The runtime names those with ".func" or "-fm" suffixes;
// they may capture enclosing state and are therefore not compilable.
func IsClosure(v reflect.Value) bool {
	name := FuncName(v)
	if name == "" {
		return true
	}
	if strings.HasSuffix(name, "-fm") {
		return true
	}
	// Anonymous functions are named pkg.Parent.funcN[.funcM...].
	for _, part := range strings.Split(name, ".") {
		if strings.HasPrefix(part, "func") {
			rest := part[len("func"):]
			if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
				return true
			}
		}
	}
	return false
}

func isExportedName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
