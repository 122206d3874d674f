package ferrule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ferrule-go/ferrule/internal/compiler"
	"github.com/ferrule-go/ferrule/internal/reflection"
	"github.com/ferrule-go/ferrule/internal/source"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

// Builder assembles a container from ordered definition sources. Sources
// are searched in the order they are added; autowiring sources, when
// enabled, are appended last so explicit definitions always win.
//
// Builder methods record configuration errors instead of failing
// immediately; Build reports them all.
type Builder struct {
	sources     []source.Source
	registry    *typereg.Registry
	logger      *zap.Logger
	proxies     ProxyFactory
	useTags     bool
	useAutowire bool

	compileDir     string
	compileName    string
	compileEntries []string

	errs []error
}

// NewBuilder creates a builder with an empty type registry.
func NewBuilder() *Builder {
	return &Builder{
		registry: typereg.New(),
	}
}

// Registry exposes the builder's type registry for constructor and struct
// registrations backing autowiring and object definitions.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Register registers a constructor function under an entry name.
func (b *Builder) Register(name string, ctor any, opts ...RegistryOption) *Builder {
	if err := b.registry.RegisterConstructor(name, ctor, opts...); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// RegisterStruct registers a struct prototype under an entry name.
func (b *Builder) RegisterStruct(name string, prototype any, opts ...RegistryOption) *Builder {
	if err := b.registry.RegisterStruct(name, prototype, opts...); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// AddDefinitions adds an in-memory source holding the given definitions.
// Map iteration order is not meaningful, so keys are registered in sorted
// order; wildcard keys within one map therefore match in sorted order,
// not declaration order. Use AddSource with a hand-built source when
// wildcard precedence between keys matters.
func (b *Builder) AddDefinitions(defs map[string]any) *Builder {
	src := source.NewArray()

	keys := make([]string, 0, len(defs))
	for key := range defs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		src.Add(key, normalizeValue(defs[key]))
	}

	b.sources = append(b.sources, src)
	return b
}

// AddFile adds a YAML definition file as a source. The file is read and
// parsed on first lookup, not here.
func (b *Builder) AddFile(path string) *Builder {
	b.sources = append(b.sources, source.NewFile(path))
	return b
}

// AddSource appends a custom definition source.
func (b *Builder) AddSource(src Source) *Builder {
	if src == nil {
		b.errs = append(b.errs, fmt.Errorf("source cannot be nil"))
		return b
	}
	b.sources = append(b.sources, src)
	return b
}

// UseAutowiring enables constructor autowiring from the type registry as
// the last source: any registered entry name resolves even without an
// explicit definition.
func (b *Builder) UseAutowiring() *Builder {
	b.useAutowire = true
	return b
}

// UseTagAutowiring enables struct-tag driven autowiring. Tag-derived
// definitions take precedence over plain constructor autowiring.
func (b *Builder) UseTagAutowiring() *Builder {
	b.useTags = true
	return b
}

// WithLogger sets the container logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithProxyFactory overrides how lazy entry handles are produced.
func (b *Builder) WithProxyFactory(factory ProxyFactory) *Builder {
	b.proxies = factory
	return b
}

// LoadDotenv loads environment files before resolution, so Env
// definitions see their variables. Without arguments it loads ".env".
// Existing process variables are never overwritten.
func (b *Builder) LoadDotenv(paths ...string) *Builder {
	if err := godotenv.Load(paths...); err != nil {
		b.errs = append(b.errs, fmt.Errorf("load dotenv: %w", err))
	}
	return b
}

// EnableCompilation makes Build produce a compiled container whose
// generated artifact is written under dir. The optional entry names seed
// the compilation closure; without them every known entry is compiled.
func (b *Builder) EnableCompilation(dir string, entries ...string) *Builder {
	if dir == "" {
		b.errs = append(b.errs, fmt.Errorf("compilation directory cannot be empty"))
		return b
	}
	b.compileDir = dir
	b.compileEntries = entries
	return b
}

// WithArtifactName overrides the generated artifact's file name within
// the compilation directory. Defaults to "container.go". An artifact
// already present at that path is kept as is; delete it to recompile.
func (b *Builder) WithArtifactName(name string) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("artifact name cannot be empty"))
		return b
	}
	b.compileName = name
	return b
}

// Build assembles the container. With compilation enabled the result is a
// *CompiledContainer wrapping the dynamic container.
func (b *Builder) Build() (Container, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	proxies := b.proxies
	if proxies == nil {
		proxies = NewProxyFactory()
	}

	ordered := make([]source.Source, 0, len(b.sources)+2)
	ordered = append(ordered, b.sources...)
	if b.useTags {
		ordered = append(ordered, source.NewTags(b.registry))
	}
	if b.useAutowire {
		ordered = append(ordered, source.NewAutowire(b.registry))
	}

	c := &container{
		id:         uuid.NewString(),
		chain:      source.NewChain(ordered...),
		registry:   b.registry,
		invoker:    reflection.NewInvoker(b.registry.Analyzer()),
		proxies:    proxies,
		logger:     logger,
		singletons: newSingletonCache(),
	}

	if b.compileDir == "" {
		return c, nil
	}

	return b.compile(c)
}

// compile runs the ahead-of-time compiler over the container's sources and
// wraps the dynamic container with the resulting accessor table.
func (b *Builder) compile(c *container) (Container, error) {
	comp := compiler.New(c.chain, c.registry, compiler.WithLogger(c.logger))

	result, err := comp.Compile(b.compileEntries)
	if err != nil {
		return nil, fmt.Errorf("compile container: %w", err)
	}

	path, err := compiler.WriteArtifact(b.compileDir, b.compileName, result.Source)
	if err != nil {
		return nil, fmt.Errorf("write compiled artifact: %w", err)
	}

	compiled := newCompiledContainer(c, c.proxies, path)
	for _, name := range result.Order {
		accessor := result.Accessors[name]
		wrapped := func(cc Container) (any, error) {
			return accessor(cc)
		}
		if result.Transient[name] {
			compiled.RegisterTransient(name, wrapped)
		} else {
			compiled.Register(name, wrapped)
		}
	}

	c.logger.Info("container compiled",
		zap.Int("entries", len(result.Order)),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("artifact", path))

	return compiled, nil
}
