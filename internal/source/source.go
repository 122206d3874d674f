// Package source provides the definition sources and the chain that merges
// them. A source yields definitions on demand; the chain orders sources,
// resolves wildcard keys, and binds decorator definitions to the nearest
// same-named definition of a later source.
package source

import "github.com/ferrule-go/ferrule/internal/definition"

// Source yields definitions on demand.
type Source interface {
	// Definition returns the definition for name, or (nil, false, nil)
	// when the source has none. Errors are configuration failures such as
	// an unloadable definition file.
	Definition(name string) (definition.Definition, bool, error)

	// Definitions enumerates all exact-key definitions of this source.
	// Wildcard keys are excluded from enumeration.
	Definitions() (map[string]definition.Definition, error)
}

// MutableSource is a source accepting runtime registrations.
type MutableSource interface {
	Source

	// Add registers a definition under a name, replacing any previous
	// definition with the same key in this source.
	Add(name string, def definition.Definition)
}
