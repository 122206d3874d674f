package ferrule

import (
	"sync"
	"sync/atomic"
)

// Deferred is the handle returned for lazy entries. Construction runs on
// the first Get and the result is memoized on the handle.
type Deferred interface {
	// Get builds the underlying entry on first call and returns it.
	Get() (any, error)

	// Resolved reports whether the entry has been built.
	Resolved() bool

	// EntryName returns the name of the deferred entry.
	EntryName() string
}

// ProxyFactory creates handles for lazy entries. A custom factory can wrap
// construction with instrumentation or richer proxy behavior; the default
// factory memoizes with sync.Once.
type ProxyFactory interface {
	New(entry string, build func() (any, error)) Deferred
}

// NewProxyFactory returns the default proxy factory.
func NewProxyFactory() ProxyFactory {
	return defaultProxyFactory{}
}

type defaultProxyFactory struct{}

func (defaultProxyFactory) New(entry string, build func() (any, error)) Deferred {
	return &deferredEntry{name: entry, build: build}
}

type deferredEntry struct {
	name  string
	build func() (any, error)

	once     sync.Once
	value    any
	err      error
	resolved atomic.Bool
}

func (d *deferredEntry) Get() (any, error) {
	d.once.Do(func() {
		d.value, d.err = d.build()
		d.resolved.Store(true)
		d.build = nil
	})
	return d.value, d.err
}

func (d *deferredEntry) Resolved() bool {
	return d.resolved.Load()
}

func (d *deferredEntry) EntryName() string {
	return d.name
}
