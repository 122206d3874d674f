package reflection

import (
	"fmt"
	"reflect"
)

// Invoker calls constructors and applies property and method injections
// using analysis results, so each call site carries no repeated inspection.
type Invoker struct {
	analyzer *Analyzer
}

// NewInvoker creates a new Invoker backed by the given analyzer.
func NewInvoker(analyzer *Analyzer) *Invoker {
	return &Invoker{analyzer: analyzer}
}

// Call invokes fn with args coerced to the parameter types. A nil arg for a
// non-nilable parameter becomes the zero value, matching "leave unset"
// semantics for unresolved optional parameters. When the function's last
// return value is a non-nil error, it is returned as the error.
func (inv *Invoker) Call(info *FuncInfo, args []any) (any, error) {
	if info == nil {
		return nil, fmt.Errorf("function info cannot be nil")
	}

	numIn := info.Type.NumIn()
	if info.Variadic {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("%s expects at least %d arguments, got %d", info.Name, numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", info.Name, numIn, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		paramType := info.Type.In(min(i, numIn-1))
		if info.Variadic && i >= numIn-1 {
			paramType = info.Type.In(numIn - 1).Elem()
		}

		val, err := Coerce(arg, paramType)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = val
	}

	results := info.Value.Call(in)

	if info.HasErrorReturn {
		errVal := results[len(results)-1]
		if !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		results = results[:len(results)-1]
	}

	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}

// NewStruct allocates a struct of the analyzed type and returns a pointer
// to it.
func (inv *Invoker) NewStruct(info *StructInfo) reflect.Value {
	return reflect.New(info.Type)
}

// SetField assigns value to the named field of obj, which must be a pointer
// to the analyzed struct. Promoted fields resolve through their index path.
func (inv *Invoker) SetField(info *StructInfo, obj reflect.Value, name string, value any) error {
	for _, f := range info.Fields {
		if f.Name != name {
			continue
		}

		target := obj.Elem().FieldByIndex(f.Index)
		if !target.CanSet() {
			return fmt.Errorf("field %s of %v is not settable", name, info.Type)
		}

		val, err := Coerce(value, f.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		target.Set(val)
		return nil
	}

	return fmt.Errorf("type %v has no exported field %s", info.Type, name)
}

// CallMethod invokes the named method on obj with args coerced to the
// declared parameter types. Only methods present on the pointer type are
// callable; a trailing error return is propagated.
func (inv *Invoker) CallMethod(obj reflect.Value, name string, args []any) error {
	method := obj.MethodByName(name)
	if !method.IsValid() {
		return fmt.Errorf("type %v has no method %s", obj.Type(), name)
	}

	mt := method.Type()
	if len(args) != mt.NumIn() {
		return fmt.Errorf("method %s expects %d arguments, got %d", name, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		val, err := Coerce(arg, mt.In(i))
		if err != nil {
			return fmt.Errorf("method %s argument %d: %w", name, i, err)
		}
		in[i] = val
	}

	results := method.Call(in)
	if len(results) > 0 {
		last := results[len(results)-1]
		if last.Type().Implements(errType) && !last.IsNil() {
			return last.Interface().(error)
		}
	}
	return nil
}

// Coerce converts an any value to a reflect.Value assignable to target.
// nil becomes the zero value; assignable and convertible values pass
// through, everything else is a type mismatch.
func Coerce(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(target) {
		return val, nil
	}
	if val.Type().ConvertibleTo(target) && compatibleKinds(val.Type(), target) {
		return val.Convert(target), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %T as %v", value, target)
}

// compatibleKinds limits conversions to numeric widening and string kinds,
// keeping surprising conversions (string->[]byte aside) out of injection.
func compatibleKinds(from, to reflect.Type) bool {
	if from.Kind() == to.Kind() {
		return true
	}
	return isNumeric(from.Kind()) && isNumeric(to.Kind())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
