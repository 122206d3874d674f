// Package graph tracks dependency relationships between named entries. The
// compiler uses it for cycle detection and for a deterministic emission
// order over the reachable entry graph.
package graph

import (
	"sort"
	"sync"

	"github.com/ferrule-go/ferrule/internal/definition"
)

// Graph is a dependency graph over entry names.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string][]string // adjacency list, entry -> its dependencies
}

// Node represents one entry in the graph.
type Node struct {
	Name string

	// Dependencies are entries this node needs, in discovery order.
	Dependencies []string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
	}
}

// Add registers an entry and its dependencies, creating placeholder nodes
// for dependencies not yet added. Adding an entry that closes a cycle
// fails with a CircularDependencyError and leaves the graph unchanged.
func (g *Graph) Add(name string, dependencies []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	prevNode, existed := g.nodes[name]
	prevEdges := g.edges[name]

	node := &Node{Name: name, Dependencies: append([]string(nil), dependencies...)}
	g.nodes[name] = node
	g.edges[name] = node.Dependencies

	for _, dep := range dependencies {
		if _, ok := g.nodes[dep]; !ok {
			g.nodes[dep] = &Node{Name: dep}
		}
	}

	if path := g.findCycle(name); path != nil {
		if existed {
			g.nodes[name] = prevNode
			g.edges[name] = prevEdges
		} else {
			delete(g.nodes, name)
			delete(g.edges, name)
		}
		return definition.CircularDependencyError{Path: path}
	}

	return nil
}

// Has reports whether an entry is present.
func (g *Graph) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the direct dependencies of an entry.
func (g *Graph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, ok := g.nodes[name]; ok {
		return append([]string(nil), node.Dependencies...)
	}
	return nil
}

// findCycle runs an iterative DFS from start and returns the cycle path if
// one exists. Caller holds the lock.
func (g *Graph) findCycle(start string) []string {
	type frame struct {
		name     string
		entering bool
	}

	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var path []string

	stack := []frame{{name: start, entering: true}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if !top.entering {
			stack = stack[:len(stack)-1]
			delete(visiting, top.name)
			visited[top.name] = true
			if len(path) > 0 && path[len(path)-1] == top.name {
				path = path[:len(path)-1]
			}
			continue
		}

		if visiting[top.name] {
			// Closed the loop: trim the path to the cycle and append the
			// revisited node for readable reporting.
			for i, n := range path {
				if n == top.name {
					return append(append([]string(nil), path[i:]...), top.name)
				}
			}
			return append(path, top.name)
		}
		if visited[top.name] {
			stack = stack[:len(stack)-1]
			continue
		}

		visiting[top.name] = true
		path = append(path, top.name)
		stack[len(stack)-1].entering = false

		for _, dep := range g.edges[top.name] {
			if !visited[dep] {
				stack = append(stack, frame{name: dep, entering: true})
			}
		}
	}

	return nil
}

// TopologicalSort returns entry names with dependencies first, using
// Kahn's algorithm. Ties break alphabetically so the order is stable
// across runs. Returns a CircularDependencyError when a cycle prevents a
// complete ordering.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// In-degree counts an entry's dependencies, so entries with none
	// drain first and the result comes out dependencies-first.
	inDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for name := range g.nodes {
		inDegree[name] = 0
	}
	for name, deps := range g.edges {
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], name)
			inDegree[name]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		ready := make([]string, 0)
		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(result) != len(g.nodes) {
		remaining := make([]string, 0)
		for name, degree := range inDegree {
			if degree > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, definition.CircularDependencyError{Path: remaining}
	}

	return result, nil
}
