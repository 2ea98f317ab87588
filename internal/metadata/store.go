// Package metadata implements the build context: the key-value
// namespace and inclusion-history tracker that is threaded through
// every parsing call.
package metadata

import (
	"sort"
	"sync"
)

// Data is an opaque key-value store passed through all parsing calls.
// Values are untyped; well-known keys (dependency sets, search paths)
// are owned by the packages that read them.
//
// All accessors are safe for concurrent use. One Data instance is
// typically owned by a single parse invocation, but the caches it
// points at may be shared across parse workers.
type Data struct {
	mu      sync.RWMutex
	vars    map[string]any
	history *IncludeHistory
}

// New creates an empty build context.
func New() *Data {
	return &Data{
		vars:    make(map[string]any),
		history: newIncludeHistory(),
	}
}

// GetVar returns the value stored under name, or nil if unset.
func (d *Data) GetVar(name string) any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.vars[name]
}

// GetString returns the value stored under name if it is a string,
// and the empty string otherwise.
func (d *Data) GetString(name string) string {
	s, _ := d.GetVar(name).(string)
	return s
}

// SetVar stores value under name, replacing any previous value.
func (d *Data) SetVar(name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vars[name] = value
}

// DelVar removes name from the context.
func (d *Data) DelVar(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.vars, name)
}

// Keys returns the sorted variable names currently set.
func (d *Data) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.vars))
	for k := range d.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a new context with a snapshot of the variables and a
// fresh, empty inclusion history. Used to fork a per-recipe context
// off the base configuration context.
func (d *Data) Copy() *Data {
	d.mu.RLock()
	defer d.mu.RUnlock()
	vars := make(map[string]any, len(d.vars))
	for k, v := range d.vars {
		vars[k] = v
	}
	return &Data{
		vars:    vars,
		history: newIncludeHistory(),
	}
}

// History returns the inclusion-history tracker for this context.
func (d *Data) History() *IncludeHistory {
	return d.history
}
