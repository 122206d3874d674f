package source

import (
	"regexp"
	"strings"
	"sync"

	"github.com/ferrule-go/ferrule/internal/definition"
)

// wildcardToken is the placeholder in definition keys matching any run of
// characters not containing a path-like separator.
const wildcardToken = "*"

// wildcardSeparators never match a wildcard capture, so "app.*" cannot
// swallow nested names like "app.db.host".
const wildcardSeparators = "./"

// Array is the in-memory definition source. Exact keys are served from a
// map; keys containing a wildcard token are compiled once into anchored
// patterns and evaluated in declaration order, first match wins.
type Array struct {
	mu sync.RWMutex

	// exact definitions, keyed by entry name.
	exact map[string]definition.Definition

	// wildcardKeys in declaration order; patterns are compiled lazily.
	wildcardKeys []string
	wildcardDefs map[string]definition.Definition

	// index is the compiled wildcard index, nil until first wildcard
	// lookup and invalidated by Add.
	index []*wildcardPattern

	// resolved caches wildcard matches by requested name for the lifetime
	// of the index.
	resolved map[string]definition.Definition
}

type wildcardPattern struct {
	key     string
	pattern *regexp.Regexp
	def     definition.Definition
}

// NewArray creates an empty array source.
func NewArray() *Array {
	return &Array{
		exact:        make(map[string]definition.Definition),
		wildcardDefs: make(map[string]definition.Definition),
	}
}

// Add registers a definition under a key. For duplicate keys the new
// definition wins; any compiled wildcard index is invalidated.
func (s *Array) Add(name string, def definition.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def.SetName(name)

	if strings.Contains(name, wildcardToken) {
		if _, exists := s.wildcardDefs[name]; !exists {
			s.wildcardKeys = append(s.wildcardKeys, name)
		}
		s.wildcardDefs[name] = def
	} else {
		s.exact[name] = def
	}

	s.index = nil
	s.resolved = nil
}

// Definition returns the definition for name. Exact keys win; otherwise the
// wildcard index is consulted in declaration order and the first match is
// served with its captures substituted into the definition.
func (s *Array) Definition(name string) (definition.Definition, bool, error) {
	s.mu.RLock()
	if def, ok := s.exact[name]; ok {
		s.mu.RUnlock()
		return def, true, nil
	}
	if def, ok := s.resolved[name]; ok {
		s.mu.RUnlock()
		return def, true, nil
	}
	hasWildcards := len(s.wildcardKeys) > 0
	s.mu.RUnlock()

	if !hasWildcards {
		return nil, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.buildIndex()
	}

	for _, wp := range s.index {
		m := wp.pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		def := definition.Substitute(wp.def, m[1:])
		def.SetName(name)
		if s.resolved == nil {
			s.resolved = make(map[string]definition.Definition)
		}
		s.resolved[name] = def
		return def, true, nil
	}

	return nil, false, nil
}

// Definitions enumerates exact-key definitions only.
func (s *Array) Definitions() (map[string]definition.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]definition.Definition, len(s.exact))
	for name, def := range s.exact {
		out[name] = def
	}
	return out, nil
}

// buildIndex compiles wildcard keys in declaration order. Caller holds the
// write lock.
func (s *Array) buildIndex() {
	s.index = make([]*wildcardPattern, 0, len(s.wildcardKeys))
	for _, key := range s.wildcardKeys {
		s.index = append(s.index, &wildcardPattern{
			key:     key,
			pattern: compileWildcard(key),
			def:     s.wildcardDefs[key],
		})
	}
}

// compileWildcard turns a wildcard key into an anchored pattern. Each token
// captures one or more characters excluding separators, so an empty capture
// never matches.
func compileWildcard(key string) *regexp.Regexp {
	parts := strings.Split(key, wildcardToken)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	expr := "^" + strings.Join(quoted, "([^"+regexp.QuoteMeta(wildcardSeparators)+"]+)") + "$"
	return regexp.MustCompile(expr)
}
