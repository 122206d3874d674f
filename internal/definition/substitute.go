package definition

import "strings"

// Substitute returns a copy of def with wildcard captures substituted for
// each "*" token in the positions a wildcard definition may reference them:
// reference targets, object type names, string expressions, factory entry
// names, env variable names, and nested definitions inside arrays, object
// injections, and factory parameters.
//
// The original definition is never mutated; a wildcard source serves one
// substituted copy per matched name.
func Substitute(def Definition, captures []string) Definition {
	if len(captures) == 0 {
		return def
	}

	switch d := def.(type) {
	case *Value:
		return &Value{Val: substituteAny(d.Val, captures)}
	case *Reference:
		return &Reference{Target: expand(d.Target, captures)}
	case *Object:
		out := &Object{
			TypeName:       expand(d.TypeName, captures),
			Scope:          d.Scope,
			Lazy:           d.Lazy,
			HasConstructor: d.HasConstructor,
		}
		if d.ConstructorArgs != nil {
			out.ConstructorArgs = make([]any, len(d.ConstructorArgs))
			for i, arg := range d.ConstructorArgs {
				out.ConstructorArgs[i] = substituteAny(arg, captures)
			}
		}
		for _, p := range d.Properties {
			out.Properties = append(out.Properties, Property{
				Name:  p.Name,
				Value: substituteAny(p.Value, captures),
			})
		}
		for _, m := range d.MethodCalls {
			call := MethodCall{Name: m.Name}
			for _, arg := range m.Args {
				call.Args = append(call.Args, substituteAny(arg, captures))
			}
			out.MethodCalls = append(out.MethodCalls, call)
		}
		return out
	case *Factory:
		out := &Factory{
			Callable: d.Callable,
			Scope:    d.Scope,
			Lazy:     d.Lazy,
		}
		if target, ok := d.Callable.(string); ok {
			out.Callable = expand(target, captures)
		}
		for _, p := range d.Parameters {
			out.Parameters = append(out.Parameters, FactoryParam{
				Name:  p.Name,
				Value: substituteAny(p.Value, captures),
			})
		}
		return out
	case *Array:
		out := &Array{Values: make([]ArrayEntry, 0, len(d.Values))}
		for _, e := range d.Values {
			out.Values = append(out.Values, ArrayEntry{
				Key:   e.Key,
				Value: substituteAny(e.Value, captures),
			})
		}
		return out
	case *Env:
		return &Env{
			Variable:   expand(d.Variable, captures),
			Optional:   d.Optional,
			Default:    substituteAny(d.Default, captures),
			HasDefault: d.HasDefault,
		}
	case *String:
		return &String{Expression: expand(d.Expression, captures)}
	default:
		// Decorators carry no substitutable positions.
		return def
	}
}

// substituteAny substitutes captures inside a literal-or-definition slot.
// Plain string literals are left alone: only definitions reference entries.
func substituteAny(v any, captures []string) any {
	if d, ok := v.(Definition); ok {
		return Substitute(d, captures)
	}
	return v
}

// expand replaces each "*" in s with the next capture, in order. Extra
// stars beyond the available captures are left as-is.
func expand(s string, captures []string) string {
	if !strings.Contains(s, "*") {
		return s
	}

	var b strings.Builder
	next := 0
	for _, r := range s {
		if r == '*' && next < len(captures) {
			b.WriteString(captures[next])
			next++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
