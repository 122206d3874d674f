package definition

import (
	"errors"
	"fmt"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Base errors wrapped by the typed errors below. Never returned bare to
// callers - always wrapped with the entry name they concern.

var (
	// Resolution errors.
	ErrEntryNotFound = errors.New("no entry or class found")
	ErrEntryNameNil  = errors.New("entry name cannot be empty")

	// Definition errors.
	ErrDefinitionNil    = errors.New("definition cannot be nil")
	ErrDecoratorTarget  = errors.New("decorator has no definition to decorate in a later source")
	ErrDecoratorChained = errors.New("decorator target is itself a decorator")
	ErrNotCompilable    = errors.New("value cannot be compiled")
)

var (
	_ error = EntryNotFoundError{}
	_ error = InvalidDefinitionError{}
	_ error = CircularDependencyError{}
	_ error = DependencyError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// EntryNotFoundError indicates no definition exists for a name and the name
// is not an autowireable registered type.
type EntryNotFoundError struct {
	Name string
}

func (e EntryNotFoundError) Error() string {
	return fmt.Sprintf("no entry or registered type found for %q", e.Name)
}

func (e EntryNotFoundError) Is(target error) bool {
	return target == ErrEntryNotFound
}

// InvalidDefinitionError indicates malformed or ambiguous declarative
// metadata: an unloadable definition file, a decorator with no target, or an
// uncompilable value where compilation is mandatory.
type InvalidDefinitionError struct {
	Name  string
	Cause error
}

func (e InvalidDefinitionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid definition: %v", e.Cause)
	}
	return fmt.Sprintf("invalid definition for entry %q: %v", e.Name, e.Cause)
}

func (e InvalidDefinitionError) Unwrap() error {
	return e.Cause
}

// CircularDependencyError indicates the resolution stack revisited an entry.
type CircularDependencyError struct {
	Path []string
}

func (e CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected while resolving %q (chain: %s)",
		e.Path[len(e.Path)-1], strings.Join(e.Path, " -> "))
}

// DependencyError wraps a failure while compiling or resolving a specific
// named entry, carrying the entry name and the original cause.
type DependencyError struct {
	Name  string
	Cause error
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("error while resolving entry %q: %v", e.Name, e.Cause)
}

func (e DependencyError) Unwrap() error {
	return e.Cause
}
