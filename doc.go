// Package ferrule provides a dependency injection container built around
// named entries and layered definition sources, with optional ahead-of-time
// compilation of the dependency graph into generated Go code.
//
// # Overview
//
// ferrule resolves entries by name instead of by type alone, so several
// entries may share a Go type. The library provides:
//   - Eight definition kinds: values, references, objects, factories,
//     decorators, arrays, environment variables and string expressions
//   - Layered sources with earliest-wins precedence and a mutable
//     runtime source that is always consulted first
//   - Wildcard definitions matching families of entry names
//   - Autowiring from an explicit type registry, by constructor
//     parameter types or by struct tags
//   - Decorators wrapping the same-named entry of a later source
//   - Lazy entries resolved behind Deferred handles
//   - Ahead-of-time compilation into a generated accessor table with
//     transparent dynamic fallback
//
// # Basic Usage
//
// Register definitions and types on a builder, build the container, and
// resolve entries by name:
//
//	b := ferrule.NewBuilder()
//	b.Register("database", NewDatabase, ferrule.WithParamNames("dsn"))
//	b.AddDefinitions(map[string]any{
//	    "dsn":      ferrule.Env("DATABASE_URL").OrElse("postgres://localhost"),
//	    "database": ferrule.Object("database"),
//	})
//
//	c, err := b.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	db, err := ferrule.Get[*Database](c, "database")
//
// # Definition Sources
//
// A container reads definitions from an ordered chain of sources: maps,
// YAML files, tag-based autowiring and constructor autowiring. The first
// source defining a name wins; later sources only contribute names the
// earlier ones do not define. Set always writes to a mutable source at
// the front of the chain.
//
// # Scopes
//
// Object and factory entries are singletons by default: built once and
// cached for the container's lifetime. Transient entries are rebuilt on
// every resolution, and Make builds a fresh instance of any entry with
// per-call overrides, bypassing the cache entirely.
//
// # Compilation
//
// EnableCompilation resolves every compilable entry's construction plan
// ahead of time. The result is served from an in-memory accessor table
// and also written out as a generated Go source file; entries the
// compiler cannot express, such as lazy entries or closures, silently
// stay on the dynamic path.
package ferrule
