// Package depends records, for every file consulted while parsing, a
// fingerprint of its on-disk state. A later run compares the recorded
// set against current filesystem state to decide whether previously
// computed parse results are still valid.
package depends

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/statcache"
)

// Well-known build-context keys owned by this package.
const (
	// DependsVar holds the dependency set accumulated while parsing
	// the current file and everything it transitively includes.
	DependsVar = "__depends"

	// BaseDependsVar holds the dependency set established by the base
	// configuration, before user-level parsing begins.
	BaseDependsVar = "__base_depends"

	// SearchPathVar names the platform path-list variable searched for
	// non-absolute filenames.
	SearchPathVar = "BBPATH"
)

// Entry is one recorded (path, fingerprint) pair.
type Entry struct {
	Path        string
	Fingerprint statcache.Fingerprint
}

// Recorder appends dependency entries to a build context, using an
// absent-tolerant stat cache underneath.
type Recorder struct {
	cache *statcache.Cache
}

// NewRecorder creates a Recorder backed by the given stat cache.
func NewRecorder(cache *statcache.Cache) *Recorder {
	return &Recorder{cache: cache}
}

// Entries returns the base and accumulated dependency sets of d, base
// first.
func Entries(d *metadata.Data) []Entry {
	base, _ := d.GetVar(BaseDependsVar).([]Entry)
	accumulated, _ := d.GetVar(DependsVar).([]Entry)
	out := make([]Entry, 0, len(base)+len(accumulated))
	out = append(out, base...)
	return append(out, accumulated...)
}

// MarkBase moves the accumulated dependency set of d into the base
// set. Called once after the base configuration is parsed, so that
// per-recipe accumulation starts from a clean slate.
func MarkBase(d *metadata.Data) {
	accumulated, _ := d.GetVar(DependsVar).([]Entry)
	base, _ := d.GetVar(BaseDependsVar).([]Entry)
	d.SetVar(BaseDependsVar, append(base, accumulated...))
	d.DelVar(DependsVar)
}

func (r *Recorder) entry(path string) Entry {
	if strings.HasPrefix(path, "./") {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path[2:])
		}
	}
	return Entry{Path: path, Fingerprint: r.cache.LookupNoError(path)}
}

// Record appends (path, current fingerprint) to the accumulated
// dependency set of d, unless an identical pair is already present.
// A path that cannot be stat'd is recorded with the absent sentinel;
// that the file was missing is itself state worth invalidating on.
func (r *Recorder) Record(d *metadata.Data, path string) {
	e := r.entry(path)
	deps, _ := d.GetVar(DependsVar).([]Entry)
	for _, have := range deps {
		if have == e {
			return
		}
	}
	d.SetVar(DependsVar, append(deps, e))
}

// IsRecorded reports whether the current fingerprint of path is
// already present verbatim in the accumulated set: "have we accounted
// for this exact file state", not merely "have we seen this path".
func (r *Recorder) IsRecorded(d *metadata.Data, path string) bool {
	e := r.entry(path)
	deps, _ := d.GetVar(DependsVar).([]Entry)
	for _, have := range deps {
		if have == e {
			return true
		}
	}
	return false
}

// FileDepends returns the absolute paths of every recorded dependency
// of d, base set first. This is the list the downstream signature
// engine hashes.
func (r *Recorder) FileDepends(d *metadata.Data) []string {
	entries := Entries(d)
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if abs, err := filepath.Abs(e.Path); err == nil {
			paths = append(paths, abs)
		} else {
			paths = append(paths, e.Path)
		}
	}
	return paths
}
