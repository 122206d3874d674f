package definition

// Chainable configuration helpers used while a definition is being
// declared. Once a source owns a definition it is treated as immutable;
// these mutate in place and return the receiver for declaration-site
// chaining only.

// Constructor sets explicit positional constructor arguments. A nil
// argument leaves that parameter to autowiring or its zero value.
func (d *Object) Constructor(args ...any) *Object {
	d.ConstructorArgs = args
	d.HasConstructor = true
	return d
}

// Property appends a property injection.
func (d *Object) Property(name string, value any) *Object {
	d.Properties = append(d.Properties, Property{Name: name, Value: value})
	return d
}

// Method appends a method injection.
func (d *Object) Method(name string, args ...any) *Object {
	d.MethodCalls = append(d.MethodCalls, MethodCall{Name: name, Args: args})
	return d
}

// AsLazy defers construction behind a proxy handle.
func (d *Object) AsLazy() *Object {
	d.Lazy = true
	return d
}

// AsTransient rebuilds the entry on every resolution.
func (d *Object) AsTransient() *Object {
	d.Scope = Transient
	return d
}

// Param appends a named factory argument.
func (d *Factory) Param(name string, value any) *Factory {
	d.Parameters = append(d.Parameters, FactoryParam{Name: name, Value: value})
	return d
}

// AsLazy defers invocation behind a proxy handle.
func (d *Factory) AsLazy() *Factory {
	d.Lazy = true
	return d
}

// AsTransient re-invokes the factory on every resolution.
func (d *Factory) AsTransient() *Factory {
	d.Scope = Transient
	return d
}

// OrElse sets the default used when the variable is unset.
func (d *Env) OrElse(def any) *Env {
	d.Default = def
	d.HasDefault = true
	return d
}

// AsOptional resolves to nil instead of failing when the variable is
// unset and no default is given.
func (d *Env) AsOptional() *Env {
	d.Optional = true
	return d
}
