package source

import (
	"sync"

	"github.com/ferrule-go/ferrule/internal/definition"
)

// Chain is the ordered list of definition sources. The first source is
// always the mutable source serving runtime registrations; across the
// chain the earliest source wins, except decorator definitions, which are
// bound to (not replaced by) the nearest later definition of the same name.
type Chain struct {
	mu      sync.Mutex
	sources []Source
	mutable MutableSource
}

// NewChain creates a chain with a fresh mutable source followed by the
// given sources in order.
func NewChain(sources ...Source) *Chain {
	mutable := NewArray()
	return &Chain{
		sources: append([]Source{Source(mutable)}, sources...),
		mutable: mutable,
	}
}

// Mutable returns the distinguished mutable source searched first.
func (c *Chain) Mutable() MutableSource { return c.mutable }

// Definition returns the definition for name, or nil when no source has
// one. Decorators are bound on first lookup.
func (c *Chain) Definition(name string) (definition.Definition, error) {
	def, _, err := c.DefinitionFrom(name, 0)
	return def, err
}

// DefinitionFrom scans sources from startIndex and returns the first
// definition found along with the index of its source. A decorator found
// at index i has its target resolved by searching strictly later sources
// once, with no further recursion.
func (c *Chain) DefinitionFrom(name string, startIndex int) (definition.Definition, int, error) {
	for i := startIndex; i < len(c.sources); i++ {
		def, ok, err := c.sources[i].Definition(name)
		if err != nil {
			return nil, i, err
		}
		if !ok {
			continue
		}

		if dec, isDecorator := def.(*definition.Decorator); isDecorator {
			if err := c.bind(dec, name, i); err != nil {
				return nil, i, err
			}
		}

		return def, i, nil
	}

	return nil, -1, nil
}

// bind resolves and attaches a decorator's target exactly once.
func (c *Chain) bind(dec *definition.Decorator, name string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dec.Bound() {
		return nil
	}

	for i := index + 1; i < len(c.sources); i++ {
		target, ok, err := c.sources[i].Definition(name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		// The single forward hop is an explicit invariant: a decorator
		// stacked on another decorator is rejected rather than silently
		// chained.
		if _, alsoDecorator := target.(*definition.Decorator); alsoDecorator {
			return definition.InvalidDefinitionError{
				Name:  name,
				Cause: definition.ErrDecoratorChained,
			}
		}

		dec.Decorated = target
		return nil
	}

	return definition.InvalidDefinitionError{
		Name:  name,
		Cause: definition.ErrDecoratorTarget,
	}
}

// Definitions merges per-source enumerations, exact keys only, earliest
// source winning for duplicate names.
func (c *Chain) Definitions() (map[string]definition.Definition, error) {
	merged := make(map[string]definition.Definition)
	for _, src := range c.sources {
		defs, err := src.Definitions()
		if err != nil {
			return nil, err
		}
		for name, def := range defs {
			if _, seen := merged[name]; !seen {
				merged[name] = def
			}
		}
	}
	return merged, nil
}

// Len returns the number of sources in the chain.
func (c *Chain) Len() int { return len(c.sources) }
