// Package vardeps lets parsing-support functions declare which named
// variables their behavior implicitly depends on, or which variables
// must be excluded from automatic dependency inference. The signature
// engine reads these declarations when computing task signatures.
//
// Declarations live in a side table keyed by function identity rather
// than in a hand-maintained central list, so a support function can
// declare its own inputs at definition time.
package vardeps

import (
	"reflect"
	"sort"
	"sync"
)

// Registry is a side table mapping function identity to declared
// variable-name sets. Declarations are additive and persist for the
// lifetime of the registry.
type Registry struct {
	mu       sync.Mutex
	deps     map[uintptr]map[string]struct{}
	excludes map[uintptr]map[string]struct{}
}

// New creates an empty declaration registry.
func New() *Registry {
	return &Registry{
		deps:     make(map[uintptr]map[string]struct{}),
		excludes: make(map[uintptr]map[string]struct{}),
	}
}

// funcKey returns the identity key for fn. fn must be a function
// value; anything else is a programmer error.
func funcKey(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic("vardeps: declaration target is not a function")
	}
	return v.Pointer()
}

func union(table map[uintptr]map[string]struct{}, key uintptr, names []string) {
	set, ok := table[key]
	if !ok {
		set = make(map[string]struct{})
		table[key] = set
	}
	for _, name := range names {
		set[name] = struct{}{}
	}
}

func snapshot(table map[uintptr]map[string]struct{}, key uintptr) []string {
	set, ok := table[key]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depends unions names into fn's declared dependency set, creating
// the set if absent.
func (r *Registry) Depends(fn any, names ...string) {
	key := funcKey(fn)
	r.mu.Lock()
	defer r.mu.Unlock()
	union(r.deps, key, names)
}

// Excludes unions names into fn's exclusion set: variables the
// signature engine must not auto-infer dependencies on.
func (r *Registry) Excludes(fn any, names ...string) {
	key := funcKey(fn)
	r.mu.Lock()
	defer r.mu.Unlock()
	union(r.excludes, key, names)
}

// DependsOn returns the sorted declared dependency set of fn.
func (r *Registry) DependsOn(fn any) []string {
	key := funcKey(fn)
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshot(r.deps, key)
}

// ExcludedFrom returns the sorted exclusion set of fn.
func (r *Registry) ExcludedFrom(fn any) []string {
	key := funcKey(fn)
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshot(r.excludes, key)
}
