package ferrule

import (
	"github.com/ferrule-go/ferrule/internal/source"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// Registry maps entry names to injectable types. Builder.Registry
// returns the builder's registry for direct registration.
type Registry = typereg.Registry

// RegistryOption configures a constructor or struct registration.
type RegistryOption = typereg.Option

// Source supplies definitions by entry name. Sources added through
// Builder.AddSource are searched in order, earliest match winning.
type Source = source.Source

// MutableSource is a Source accepting runtime definition updates.
type MutableSource = source.MutableSource

// WithParamNames supplies the constructor's declared parameter names, in
// order, enabling Make overrides by name.
func WithParamNames(names ...string) RegistryOption {
	return typereg.WithParamNames(names...)
}

// WithLazy marks the registered entry lazy by default.
func WithLazy() RegistryOption {
	return typereg.WithLazy()
}

// WithMethodArgs overrides injection arguments for one setter method.
// A nil element leaves that parameter to by-type autowiring.
func WithMethodArgs(method string, args ...any) RegistryOption {
	return typereg.WithMethodArgs(method, args...)
}
