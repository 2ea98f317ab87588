// Package statcache memoizes cheap file fingerprints so that files
// inspected many times during a parse run are stat'd only once.
//
// A Fingerprint is a proxy for file identity, not a content hash:
// modification time, size and inode. Fingerprint equality is the sole
// staleness test used by the dependency tracker.
package statcache

import (
	"os"
	"sync"
)

// Fingerprint describes the on-disk state of a file at the time it
// was stat'd. The zero value is the "absent" sentinel for files that
// could not be stat'd.
type Fingerprint struct {
	MtimeNs int64
	Size    int64
	Inode   uint64
}

// IsAbsent reports whether f is the absent sentinel.
func (f Fingerprint) IsAbsent() bool {
	return f == Fingerprint{}
}

// Cache is a memoized path-to-fingerprint mapping. Methods are safe
// for concurrent use from multiple parse workers; Clear must not run
// concurrently with in-flight lookups.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Fingerprint
}

// New creates an empty stat cache. One cache is constructed per
// process (or per worker) and passed by reference to consumers, so
// tests can isolate themselves with fresh instances.
func New() *Cache {
	return &Cache{
		entries: make(map[string]Fingerprint),
	}
}

func stat(path string) (Fingerprint, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		MtimeNs: fi.ModTime().UnixNano(),
		Size:    fi.Size(),
		Inode:   inodeOf(fi),
	}, nil
}

// Lookup returns the memoized fingerprint for path, stat'ing the file
// on first use. Stat failures are propagated and nothing is cached
// for the path.
func (c *Cache) Lookup(path string) (Fingerprint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fp, ok := c.entries[path]; ok {
		return fp, nil
	}
	fp, err := stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	c.entries[path] = fp
	return fp, nil
}

// LookupNoError is Lookup for contexts where a missing file is a
// legitimate, non-fatal case (search-path probing): a stat failure
// yields the absent sentinel instead of an error, and is not cached.
func (c *Cache) LookupNoError(path string) Fingerprint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fp, ok := c.entries[path]; ok {
		return fp
	}
	fp, err := stat(path)
	if err != nil {
		return Fingerprint{}
	}
	c.entries[path] = fp
	return fp
}

// Check re-stats path, updates the cache entry to the current value,
// and reports whether the current fingerprint equals want. A file
// that cannot be stat'd compares as the absent sentinel.
func (c *Cache) Check(path string, want Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := stat(path)
	if err == nil {
		c.entries[path] = current
	}
	return current == want
}

// Refresh force-updates the entry for path and returns the new
// fingerprint. If the file no longer exists the entry is removed and
// the absent sentinel is returned.
func (c *Cache) Refresh(path string) Fingerprint {
	c.mu.Lock()
	defer c.mu.Unlock()
	fp, err := stat(path)
	if err != nil {
		delete(c.entries, path)
		return Fingerprint{}
	}
	c.entries[path] = fp
	return fp
}

// Update refreshes path only if an entry for it already exists. Meant
// for callers that rewrote a file mid-run and know cached state is
// out of date.
func (c *Cache) Update(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; !ok {
		return
	}
	fp, err := stat(path)
	if err != nil {
		delete(c.entries, path)
		return
	}
	c.entries[path] = fp
}

// Clear empties the cache. Called once per top-level parse invocation
// to avoid cross-run staleness.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Fingerprint)
}
