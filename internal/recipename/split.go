// Package recipename derives default variable values (name, version,
// revision) from recipe filenames, with a process-lifetime cache keyed
// by the full input string.
package recipename

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Parts holds the underscore-separated components of a recipe
// filename. Missing components are empty strings.
type Parts struct {
	Name     string
	Version  string
	Revision string
}

// AmbiguousError is returned for filenames with more underscore
// segments than (name, version, revision) can account for; guessing a
// split would derive wrong default variables silently.
type AmbiguousError struct {
	Filename string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("cannot derive default variables from %q: too many underscore-separated segments", e.Filename)
}

// revisionSuffix matches a trailing -r<digits> revision carried on the
// version segment, e.g. "1.2.3-r0".
var revisionSuffix = regexp.MustCompile(`^(.+)-(r\d+)$`)

// Splitter caches filename decompositions. Only successful splits are
// cached; ambiguous filenames fail on every call.
type Splitter struct {
	mu    sync.Mutex
	cache map[string]Parts
}

// NewSplitter creates an empty Splitter.
func NewSplitter() *Splitter {
	return &Splitter{
		cache: make(map[string]Parts),
	}
}

// Split decomposes a recipe filename into its default-variable parts.
// It is only defined for .bb and .bbappend files; any other extension
// yields zero Parts and no error.
func (s *Splitter) Split(filename string) (Parts, error) {
	ext := filepath.Ext(filename)
	if ext != ".bb" && ext != ".bbappend" {
		return Parts{}, nil
	}

	s.mu.Lock()
	if parts, ok := s.cache[filename]; ok {
		s.mu.Unlock()
		return parts, nil
	}
	s.mu.Unlock()

	base := strings.TrimSuffix(filepath.Base(filename), ext)
	segments := strings.Split(base, "_")
	if len(segments) > 3 {
		return Parts{}, &AmbiguousError{Filename: filename}
	}

	parts := Parts{Name: segments[0]}
	if len(segments) > 1 {
		parts.Version = segments[1]
	}
	if len(segments) > 2 {
		parts.Revision = segments[2]
	}
	// A two-segment name like foo_1.2.3-r0 carries its revision on the
	// version segment.
	if parts.Revision == "" {
		if m := revisionSuffix.FindStringSubmatch(parts.Version); m != nil {
			parts.Version = m[1]
			parts.Revision = m[2]
		}
	}

	s.mu.Lock()
	s.cache[filename] = parts
	s.mu.Unlock()
	return parts, nil
}
