package ferrule

import (
	"sync"
	"testing"
)

// TestNewSingletonCache tests the newSingletonCache function
func TestNewSingletonCache(t *testing.T) {
	cache := newSingletonCache()

	if cache == nil {
		t.Fatal("newSingletonCache() returned nil")
	}

	if cache.len() != 0 {
		t.Errorf("Expected empty cache, got %d items", cache.len())
	}
}

// TestSingletonCache_GetSet tests the get and set methods
func TestSingletonCache_GetSet(t *testing.T) {
	cache := newSingletonCache()

	if _, ok := cache.get("missing"); ok {
		t.Error("Expected false for non-existent entry")
	}

	logger := &TLogger{Prefix: "cached"}
	cache.set("logger", logger)

	got, ok := cache.get("logger")
	if !ok {
		t.Fatal("Expected true for existing entry")
	}
	if got != logger {
		t.Error("Retrieved instance doesn't match stored instance")
	}
}

// TestSingletonCache_Delete tests the delete method
func TestSingletonCache_Delete(t *testing.T) {
	cache := newSingletonCache()
	cache.set("logger", &TLogger{})
	cache.delete("logger")

	if _, ok := cache.get("logger"); ok {
		t.Error("Expected entry to be deleted")
	}

	// Deleting a missing entry is a no-op.
	cache.delete("missing")
}

// TestSingletonCache_Concurrent tests concurrent access
func TestSingletonCache_Concurrent(t *testing.T) {
	cache := newSingletonCache()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.set("shared", &TLogger{})
		}()
		go func() {
			defer wg.Done()
			cache.get("shared")
		}()
	}
	wg.Wait()

	if _, ok := cache.get("shared"); !ok {
		t.Error("Expected entry to survive concurrent writes")
	}
}
