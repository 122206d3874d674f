package ferrule

import "sync"

// singletonCache holds resolved singleton instances. Resolution is
// read-heavy once a container warms up, so it rides on sync.Map rather
// than a mutex-guarded map.
type singletonCache struct {
	entries sync.Map
}

func newSingletonCache() *singletonCache {
	return &singletonCache{}
}

func (c *singletonCache) get(name string) (any, bool) {
	return c.entries.Load(name)
}

func (c *singletonCache) set(name string, instance any) {
	c.entries.Store(name, instance)
}

func (c *singletonCache) delete(name string) {
	c.entries.Delete(name)
}

func (c *singletonCache) len() int {
	n := 0
	c.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
