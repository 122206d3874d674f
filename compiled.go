package ferrule

import "sync"

// EntryAccessor builds one compiled entry. The container passed in is the
// compiled container itself, so nested lookups hit compiled accessors
// before falling back to dynamic resolution.
type EntryAccessor func(c Container) (any, error)

// CompiledContainer serves entries from an ahead-of-time accessor table,
// falling back to its dynamic delegate for everything the compiler could
// not handle. Generated artifacts produce one of these via
// NewCompiledContainer.
type CompiledContainer struct {
	delegate Container
	proxies  ProxyFactory
	path     string

	accessors map[string]EntryAccessor
	transient map[string]bool

	mu        sync.RWMutex
	instances map[string]any
}

// NewCompiledContainer wraps a dynamic delegate with an empty accessor
// table. Generated artifacts call this, then Register each compiled entry.
func NewCompiledContainer(delegate Container, proxies ProxyFactory) *CompiledContainer {
	return newCompiledContainer(delegate, proxies, "")
}

func newCompiledContainer(delegate Container, proxies ProxyFactory, path string) *CompiledContainer {
	if proxies == nil {
		proxies = NewProxyFactory()
	}
	return &CompiledContainer{
		delegate:  delegate,
		proxies:   proxies,
		path:      path,
		accessors: make(map[string]EntryAccessor),
		transient: make(map[string]bool),
		instances: make(map[string]any),
	}
}

// Register installs the accessor for one compiled entry. Generated
// artifacts call this during construction; it is not safe to call
// concurrently with Get.
func (c *CompiledContainer) Register(name string, accessor EntryAccessor) {
	c.accessors[name] = accessor
}

// RegisterTransient installs an accessor whose results are never cached.
func (c *CompiledContainer) RegisterTransient(name string, accessor EntryAccessor) {
	c.accessors[name] = accessor
	c.transient[name] = true
}

// Compiled reports whether an entry is served from the accessor table.
func (c *CompiledContainer) Compiled(name string) bool {
	_, ok := c.accessors[name]
	return ok
}

// CompiledPath returns the location of the generated artifact, empty for
// containers assembled directly from generated code.
func (c *CompiledContainer) CompiledPath() string { return c.path }

// Proxies returns the proxy factory compiled lazy entries use.
func (c *CompiledContainer) Proxies() ProxyFactory { return c.proxies }

func (c *CompiledContainer) ID() string { return c.delegate.ID() }

// Get serves the entry from the compiled table when possible, caching the
// result, and falls back to the dynamic delegate otherwise.
func (c *CompiledContainer) Get(name string) (any, error) {
	accessor, ok := c.accessors[name]
	if !ok {
		return c.delegate.Get(name)
	}

	if c.transient[name] {
		return accessor(c)
	}

	c.mu.RLock()
	instance, cached := c.instances[name]
	c.mu.RUnlock()
	if cached {
		return instance, nil
	}

	value, err := accessor(c)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Another goroutine may have built the entry first; keep its value so
	// singletons stay unique.
	if prior, cached := c.instances[name]; cached {
		value = prior
	} else {
		c.instances[name] = value
	}
	c.mu.Unlock()

	return value, nil
}

func (c *CompiledContainer) Has(name string) bool {
	if _, ok := c.accessors[name]; ok {
		return true
	}
	return c.delegate.Has(name)
}

// Make always goes through the dynamic delegate: overrides cannot apply
// to precompiled construction plans.
func (c *CompiledContainer) Make(name string, overrides map[string]any) (any, error) {
	return c.delegate.Make(name, overrides)
}

func (c *CompiledContainer) InjectOn(instance any) error {
	return c.delegate.InjectOn(instance)
}

// Set registers the value on the dynamic delegate. A compiled accessor of
// the same name keeps winning for Get; Set cannot shadow compiled entries.
func (c *CompiledContainer) Set(name string, value any) {
	c.delegate.Set(name, value)
}

var _ Container = (*CompiledContainer)(nil)
