package compiler

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ferrule-go/ferrule/internal/typereg"
)

// modulePath is the import path of the root package generated artifacts
// depend on.
const modulePath = "github.com/ferrule-go/ferrule"

// emit renders the artifact: a package with one accessor function per
// compiled entry and a constructor wiring them into a CompiledContainer.
// Output is deterministic for a given plan set.
func emit(pkgName string, order []string, plans map[string]*entryPlan) ([]byte, error) {
	w := newEmitter()

	for i, name := range order {
		if err := w.accessorFunc(fmt.Sprintf("e%d", i+1), plans[name]); err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}
	}

	var out bytes.Buffer
	out.WriteString("// Code generated by ferrule. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", pkgName)

	w.writeImports(&out)

	out.WriteString("// NewContainer wraps a dynamic delegate with the compiled accessor table.\n")
	out.WriteString("func NewContainer(delegate ferrule.Container, proxies ferrule.ProxyFactory) *ferrule.CompiledContainer {\n")
	out.WriteString("\tc := ferrule.NewCompiledContainer(delegate, proxies)\n")
	for i, name := range order {
		method := "Register"
		if plans[name].transient {
			method = "RegisterTransient"
		}
		fmt.Fprintf(&out, "\tc.%s(%s, e%d)\n", method, strconv.Quote(name), i+1)
	}
	out.WriteString("\treturn c\n}\n\n")

	out.Write(w.funcs.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}

// emitter accumulates accessor functions and the imports they need.
type emitter struct {
	funcs   bytes.Buffer
	imports map[string]string // import path -> alias
	aliases map[string]bool
}

func newEmitter() *emitter {
	e := &emitter{
		imports: make(map[string]string),
		aliases: make(map[string]bool),
	}
	// The root package is always needed for the constructor signature.
	e.imports[modulePath] = "ferrule"
	e.aliases["ferrule"] = true
	return e
}

// importAlias returns the alias for an import path, registering it on
// first use.
func (e *emitter) importAlias(pkgPath string) string {
	if alias, ok := e.imports[pkgPath]; ok {
		return alias
	}

	base := path.Base(pkgPath)
	base = strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, base)

	alias := base
	for n := 2; e.aliases[alias]; n++ {
		alias = fmt.Sprintf("%s%d", base, n)
	}
	e.imports[pkgPath] = alias
	e.aliases[alias] = true
	return alias
}

func (e *emitter) writeImports(out *bytes.Buffer) {
	paths := make([]string, 0, len(e.imports))
	for p := range e.imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out.WriteString("import (\n")
	for _, p := range paths {
		alias := e.imports[p]
		if alias == path.Base(p) {
			fmt.Fprintf(out, "\t%s\n", strconv.Quote(p))
		} else {
			fmt.Fprintf(out, "\t%s %s\n", alias, strconv.Quote(p))
		}
	}
	out.WriteString(")\n\n")
}

// typeExpr renders a type as a Go expression, registering imports.
func (e *emitter) typeExpr(t reflect.Type) (string, error) {
	switch t.Kind() {
	case reflect.Pointer:
		elem, err := e.typeExpr(t.Elem())
		if err != nil {
			return "", err
		}
		return "*" + elem, nil

	case reflect.Slice:
		elem, err := e.typeExpr(t.Elem())
		if err != nil {
			return "", err
		}
		return "[]" + elem, nil

	case reflect.Map:
		key, err := e.typeExpr(t.Key())
		if err != nil {
			return "", err
		}
		elem, err := e.typeExpr(t.Elem())
		if err != nil {
			return "", err
		}
		return "map[" + key + "]" + elem, nil

	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any", nil
		}
		return e.namedTypeExpr(t)

	default:
		if t.PkgPath() != "" {
			return e.namedTypeExpr(t)
		}
		if t.Name() == "" {
			return "", fmt.Errorf("cannot render type %s", t)
		}
		return t.Name(), nil
	}
}

func (e *emitter) namedTypeExpr(t reflect.Type) (string, error) {
	if t.PkgPath() == "" || t.Name() == "" {
		return "", fmt.Errorf("cannot render type %s", t)
	}
	return e.importAlias(t.PkgPath()) + "." + t.Name(), nil
}

// symbolExpr renders a function symbol name reported by the runtime as a
// package-qualified expression.
func (e *emitter) symbolExpr(runtimeName string) (string, error) {
	slash := strings.LastIndex(runtimeName, "/")
	dot := strings.Index(runtimeName[slash+1:], ".")
	if dot < 0 {
		return "", fmt.Errorf("cannot address symbol %q", runtimeName)
	}

	pkgPath := runtimeName[:slash+1+dot]
	symbol := runtimeName[slash+1+dot+1:]
	return e.importAlias(pkgPath) + "." + symbol, nil
}

// accessorFunc renders one accessor. Every accessor shares the same
// shape: resolve reference slots into local variables, then build and
// return the entry.
func (e *emitter) accessorFunc(fnName string, plan *entryPlan) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "// %s builds %s.\n", fnName, strconv.Quote(plan.name))
	fmt.Fprintf(&b, "func %s(c ferrule.Container) (any, error) {\n", fnName)

	body, err := e.accessorBody(plan)
	if err != nil {
		return err
	}
	b.WriteString(body)

	b.WriteString("}\n\n")
	e.funcs.Write(b.Bytes())
	return nil
}

func (e *emitter) accessorBody(plan *entryPlan) (string, error) {
	switch plan.kind {
	case valuePlan:
		return fmt.Sprintf("\treturn %s, nil\n", renderLiteral(plan.literal, nil)), nil

	case refPlan:
		return fmt.Sprintf("\treturn c.Get(%s)\n", strconv.Quote(plan.ref)), nil

	case objectPlan:
		return e.objectBody(plan)

	case factoryPlan:
		return e.factoryBody(plan)

	case arrayPlan:
		return e.arrayBody(plan)

	case envPlan:
		return e.envBody(plan)

	case stringPlan:
		return e.stringBody(plan)

	default:
		return "", fmt.Errorf("unknown plan kind %d", plan.kind)
	}
}

// resolveRefs emits lookups for every reference slot in order and returns
// the rendered argument expressions.
func (e *emitter) resolveRefs(b *bytes.Buffer, next *int, slots []slot) ([]string, error) {
	exprs := make([]string, len(slots))
	for i, s := range slots {
		expr, err := e.slotExpr(b, next, s)
		if err != nil {
			return nil, err
		}
		exprs[i] = expr
	}
	return exprs, nil
}

func (e *emitter) slotExpr(b *bytes.Buffer, next *int, s slot) (string, error) {
	switch s.kind {
	case literalSlot:
		return renderLiteral(s.literal, s.typ), nil

	case refSlot:
		v := fmt.Sprintf("v%d", *next)
		*next++
		fmt.Fprintf(b, "\t%s, err := c.Get(%s)\n", v, strconv.Quote(s.ref))
		b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		if s.typ == nil || isAny(s.typ) {
			return v, nil
		}
		typ, err := e.typeExpr(s.typ)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.(%s)", v, typ), nil

	case zeroSlot:
		return e.zeroExpr(s.typ)

	case containerSlot:
		return "c", nil

	default:
		return "", fmt.Errorf("unknown slot kind %d", s.kind)
	}
}

func (e *emitter) zeroExpr(t reflect.Type) (string, error) {
	if t == nil {
		return "nil", nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return "false", nil
	case reflect.String:
		return `""`, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "0", nil
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return "nil", nil
	case reflect.Struct:
		typ, err := e.typeExpr(t)
		if err != nil {
			return "", err
		}
		return typ + "{}", nil
	default:
		return "", fmt.Errorf("cannot render zero value of %s", t)
	}
}

func (e *emitter) objectBody(plan *entryPlan) (string, error) {
	var b bytes.Buffer
	next := 0

	if plan.entry.Ctor != nil {
		args, err := e.resolveRefs(&b, &next, plan.args)
		if err != nil {
			return "", err
		}
		sym, err := e.symbolExpr(plan.entry.Ctor.Name)
		if err != nil {
			return "", err
		}

		call := fmt.Sprintf("%s(%s)", sym, strings.Join(args, ", "))
		if plan.entry.Ctor.HasErrorReturn {
			fmt.Fprintf(&b, "\tobj, err := %s\n", call)
			b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		} else {
			fmt.Fprintf(&b, "\tobj := %s\n", call)
		}
	} else {
		typ, err := e.typeExpr(plan.entry.Struct.Type)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\tobj := &%s{}\n", typ)
	}

	for _, prop := range plan.props {
		expr, err := e.slotExpr(&b, &next, prop.value)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\tobj.%s = %s\n", prop.field, expr)
	}

	for _, call := range plan.calls {
		args, err := e.resolveRefs(&b, &next, call.args)
		if err != nil {
			return "", err
		}
		invocation := fmt.Sprintf("obj.%s(%s)", call.method, strings.Join(args, ", "))
		if setterReturnsError(plan.entry, call.method) {
			fmt.Fprintf(&b, "\tif err := %s; err != nil {\n\t\treturn nil, err\n\t}\n", invocation)
		} else {
			fmt.Fprintf(&b, "\t%s\n", invocation)
		}
	}

	b.WriteString("\treturn obj, nil\n")
	return b.String(), nil
}

func setterReturnsError(entry *typereg.Entry, method string) bool {
	if entry.Struct == nil {
		return false
	}
	for _, s := range entry.Struct.Setters {
		if s.Name == method {
			return s.Method.Type.NumOut() == 1
		}
	}
	return false
}

func (e *emitter) factoryBody(plan *entryPlan) (string, error) {
	var b bytes.Buffer
	next := 0

	args, err := e.resolveRefs(&b, &next, plan.args)
	if err != nil {
		return "", err
	}
	sym, err := e.symbolExpr(plan.fn.Name)
	if err != nil {
		return "", err
	}

	call := fmt.Sprintf("%s(%s)", sym, strings.Join(args, ", "))
	if plan.fn.HasErrorReturn {
		fmt.Fprintf(&b, "\tv, err := %s\n", call)
		b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		b.WriteString("\treturn v, nil\n")
	} else {
		fmt.Fprintf(&b, "\treturn %s, nil\n", call)
	}
	return b.String(), nil
}

func (e *emitter) arrayBody(plan *entryPlan) (string, error) {
	var b bytes.Buffer
	next := 0

	exprs := make([]string, len(plan.items))
	for i, item := range plan.items {
		expr, err := e.slotExpr(&b, &next, item.value)
		if err != nil {
			return "", err
		}
		exprs[i] = expr
	}

	b.WriteString("\treturn map[string]any{\n")
	for i, item := range plan.items {
		fmt.Fprintf(&b, "\t\t%s: %s,\n", strconv.Quote(item.key), exprs[i])
	}
	b.WriteString("\t}, nil\n")
	return b.String(), nil
}

func (e *emitter) envBody(plan *entryPlan) (string, error) {
	var b bytes.Buffer
	next := 0

	e.importAlias("os")
	fmt.Fprintf(&b, "\tif v, ok := os.LookupEnv(%s); ok {\n\t\treturn v, nil\n\t}\n", strconv.Quote(plan.variable))

	switch {
	case plan.defaultVal != nil:
		expr, err := e.slotExpr(&b, &next, *plan.defaultVal)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\treturn %s, nil\n", expr)

	case plan.optional:
		b.WriteString("\treturn nil, nil\n")

	default:
		e.importAlias("fmt")
		fmt.Fprintf(&b, "\treturn nil, fmt.Errorf(\"environment variable %%q is not defined\", %s)\n",
			strconv.Quote(plan.variable))
	}

	return b.String(), nil
}

func (e *emitter) stringBody(plan *entryPlan) (string, error) {
	var b bytes.Buffer
	next := 0

	e.importAlias("strings")
	b.WriteString("\tvar sb strings.Builder\n")
	for _, seg := range plan.segments {
		if seg.ref == "" {
			fmt.Fprintf(&b, "\tsb.WriteString(%s)\n", strconv.Quote(seg.text))
			continue
		}
		v := fmt.Sprintf("v%d", next)
		next++
		fmt.Fprintf(&b, "\t%s, err := c.Get(%s)\n", v, strconv.Quote(seg.ref))
		b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		e.importAlias("fmt")
		fmt.Fprintf(&b, "\tfmt.Fprint(&sb, %s)\n", v)
	}
	b.WriteString("\treturn sb.String(), nil\n")
	return b.String(), nil
}

func isAny(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

// renderLiteral renders a basic literal, converting to the destination
// type when it differs.
func renderLiteral(v any, t reflect.Type) string {
	if v == nil {
		return "nil"
	}

	var lit string
	switch x := v.(type) {
	case string:
		lit = strconv.Quote(x)
	case bool:
		lit = strconv.FormatBool(x)
	default:
		lit = fmt.Sprintf("%v", v)
	}

	if t != nil && !isAny(t) && t != reflect.TypeOf(v) && t.PkgPath() == "" && t.Name() != "" {
		return fmt.Sprintf("%s(%s)", t.Name(), lit)
	}
	return lit
}
