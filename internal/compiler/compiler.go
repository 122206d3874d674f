// Package compiler turns the reachable portion of a source chain into an
// ahead-of-time accessor table and a matching generated Go source file.
// Entries the compiler cannot express stay with the dynamic container;
// their references compile into runtime lookups, so a partially compiled
// container behaves exactly like an uncompiled one.
package compiler

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ferrule-go/ferrule/internal/definition"
	"github.com/ferrule-go/ferrule/internal/graph"
	"github.com/ferrule-go/ferrule/internal/reflection"
	"github.com/ferrule-go/ferrule/internal/source"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// Accessor builds one compiled entry against a live container.
type Accessor func(c definition.Resolver) (any, error)

// Result is the output of one compilation run. Accessors and Source
// describe the same set of entries: an entry is either in both or in
// neither.
type Result struct {
	// Accessors is the in-memory table, keyed by entry name.
	Accessors map[string]Accessor

	// Transient marks entries whose accessor results must not be cached.
	Transient map[string]bool

	// Order is the deterministic entry order used for the artifact.
	Order []string

	// Skipped maps entries the compiler left dynamic to the reason.
	Skipped map[string]string

	// Source is the gofmt-formatted generated artifact.
	Source []byte
}

// Compiler plans and emits compiled entries.
type Compiler struct {
	chain    *source.Chain
	registry *typereg.Registry
	invoker  *reflection.Invoker
	logger   *zap.Logger
	pkgName  string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the compiler's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithPackageName sets the generated artifact's package name.
func WithPackageName(name string) Option {
	return func(c *Compiler) { c.pkgName = name }
}

// New creates a compiler over a source chain and type registry.
func New(chain *source.Chain, registry *typereg.Registry, opts ...Option) *Compiler {
	c := &Compiler{
		chain:    chain,
		registry: registry,
		invoker:  reflection.NewInvoker(registry.Analyzer()),
		logger:   zap.NewNop(),
		pkgName:  "compiled",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile plans every entry reachable from the seeds. Explicit seeds are
// required: a required entry that cannot compile fails the run. Entries
// discovered by enumeration or through references are speculative and are
// skipped silently when uncompilable.
func (c *Compiler) Compile(seeds []string) (*Result, error) {
	required := make(map[string]bool, len(seeds))
	queue := newWorkQueue()

	if len(seeds) > 0 {
		for _, name := range seeds {
			required[name] = true
			queue.Push(name)
		}
	} else {
		for _, name := range c.enumerate() {
			queue.Push(name)
		}
	}

	plans := make(map[string]*entryPlan)
	skipped := make(map[string]string)
	synthRoot := make(map[string]string)

	for {
		name, ok := queue.Pop()
		if !ok {
			break
		}
		if _, planned := plans[name]; planned {
			continue
		}

		def, err := c.chain.Definition(name)
		if err == nil && def == nil {
			err = definition.EntryNotFoundError{Name: name}
		}

		var plan *entryPlan
		var hoisted []*entryPlan
		if err == nil {
			plan, hoisted, err = c.plan(name, def)
		}
		if err != nil {
			if required[name] {
				return nil, definition.DependencyError{Name: name, Cause: err}
			}
			skipped[name] = err.Error()
			c.logger.Debug("entry left dynamic",
				zap.String("entry", name), zap.Error(err))
			continue
		}

		plans[name] = plan
		for _, sub := range hoisted {
			plans[sub.name] = sub
			synthRoot[sub.name] = name
		}
		for _, p := range append(hoisted, plan) {
			for _, ref := range p.refs() {
				if _, planned := plans[ref]; !planned {
					queue.Push(ref)
				}
			}
		}
	}

	if err := c.rejectCycles(plans, skipped, required, synthRoot); err != nil {
		return nil, err
	}

	order := make([]string, 0, len(plans))
	for name := range plans {
		order = append(order, name)
	}
	sort.Strings(order)

	result := &Result{
		Accessors: make(map[string]Accessor, len(plans)),
		Transient: make(map[string]bool),
		Order:     order,
		Skipped:   skipped,
	}
	for _, name := range order {
		plan := plans[name]
		result.Accessors[name] = c.accessor(plan)
		if plan.transient {
			result.Transient[name] = true
		}
	}

	src, err := emit(c.pkgName, order, plans)
	if err != nil {
		return nil, fmt.Errorf("emit artifact: %w", err)
	}
	result.Source = src

	return result, nil
}

// enumerate returns every entry name known to the chain or the registry,
// sorted, for seedless compilation.
func (c *Compiler) enumerate() []string {
	names := make(map[string]bool)

	if defs, err := c.chain.Definitions(); err == nil {
		for name := range defs {
			names[name] = true
		}
	}
	for _, name := range c.registry.Names() {
		names[name] = true
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	return sorted
}

// rejectCycles drops speculative entries participating in a reference
// cycle among compiled entries; a compiled cycle would recurse at runtime
// since accessors bypass the dynamic engine's resolution stack. Hoisted
// sub-entries are contracted into their root entry, so a cycle through a
// synthetic name evicts the whole tree.
func (c *Compiler) rejectCycles(plans map[string]*entryPlan, skipped map[string]string, required map[string]bool, synthRoot map[string]string) error {
	rootOf := func(name string) string {
		if root, ok := synthRoot[name]; ok {
			return root
		}
		return name
	}

	edges := make(map[string]map[string]bool)
	for name, plan := range plans {
		root := rootOf(name)
		if edges[root] == nil {
			edges[root] = make(map[string]bool)
		}
		for _, ref := range plan.refs() {
			// Edges to dynamic entries are safe; the delegate detects
			// cycles crossing the compiled boundary.
			if _, planned := plans[ref]; !planned {
				continue
			}
			if target := rootOf(ref); target != root {
				edges[root][target] = true
			}
		}
	}

	roots := make([]string, 0, len(edges))
	for root := range edges {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	g := graph.New()
	for _, root := range roots {
		deps := make([]string, 0, len(edges[root]))
		for dep := range edges[root] {
			deps = append(deps, dep)
		}
		sort.Strings(deps)

		if err := g.Add(root, deps); err != nil {
			if required[root] {
				return err
			}
			for name := range plans {
				if rootOf(name) == root {
					delete(plans, name)
				}
			}
			skipped[root] = err.Error()
		}
	}
	return nil
}
