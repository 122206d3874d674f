package ferrule

import "github.com/ferrule-go/ferrule/internal/definition"

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Matched with errors.Is; the typed errors below carry the entry context.

var (
	// ErrEntryNotFound reports a name with no definition and no viable
	// autowiring.
	ErrEntryNotFound = definition.ErrEntryNotFound

	// ErrDecoratorTarget reports a decorator with no definition of the
	// same name in a later source.
	ErrDecoratorTarget = definition.ErrDecoratorTarget

	// ErrDecoratorChained reports a decorator whose single-hop target is
	// itself a decorator.
	ErrDecoratorChained = definition.ErrDecoratorChained

	// ErrNotCompilable reports a value the compiler must emit but cannot.
	ErrNotCompilable = definition.ErrNotCompilable
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// EntryNotFoundError indicates no definition exists for a name and the
// name is not a registered autowireable type.
type EntryNotFoundError = definition.EntryNotFoundError

// InvalidDefinitionError indicates malformed or ambiguous declarative
// metadata: an unloadable definition file, a decorator with no target, or
// an uncompilable value where compilation is mandatory.
type InvalidDefinitionError = definition.InvalidDefinitionError

// CircularDependencyError indicates the resolution stack revisited an
// entry. Resolution fails fast rather than overflowing.
type CircularDependencyError = definition.CircularDependencyError

// DependencyError wraps a failure while compiling or resolving a specific
// named entry, carrying the entry name and the original cause.
type DependencyError = definition.DependencyError
