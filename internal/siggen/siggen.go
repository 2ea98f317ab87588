// Package siggen defines the signature-generator contract consumed by
// the parse dispatcher, plus a basic generator that hashes the
// recorded dependency state of a build context.
package siggen

import (
	"encoding/binary"
	"io"
	"log/slog"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/vk/bakemeta/internal/depends"
	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/vardeps"
)

// Generator computes build signatures from the dependency state a
// parse run recorded. Exactly one generator is active per parse
// registry; swapping generators shuts the old one down first.
type Generator interface {
	// Init prepares the generator for a build context.
	Init(d *metadata.Data) error

	// Signature condenses the recorded file dependencies and declared
	// variable dependencies of d into a 64-bit value.
	Signature(d *metadata.Data) uint64

	// Exit releases any resources held by the generator. Called when
	// another generator replaces this one.
	Exit()
}

// Factory constructs a Generator for a build context.
type Factory func(d *metadata.Data) (Generator, error)

// Basic hashes the dependency entries of a context together with the
// current values of every variable declared through the vardeps
// registry for its registered support functions.
type Basic struct {
	decls *vardeps.Registry
	fns   []any
}

// NewBasic creates a Basic generator reading declarations from decls.
func NewBasic(decls *vardeps.Registry) *Basic {
	return &Basic{decls: decls}
}

// BasicFactory returns a Factory producing Basic generators bound to
// decls.
func BasicFactory(decls *vardeps.Registry) Factory {
	return func(d *metadata.Data) (Generator, error) {
		gen := NewBasic(decls)
		if err := gen.Init(d); err != nil {
			return nil, err
		}
		return gen, nil
	}
}

// RegisterFunc adds a support function whose declared variable
// dependencies participate in every signature this generator computes.
func (g *Basic) RegisterFunc(fn any) {
	g.fns = append(g.fns, fn)
}

// Init implements Generator.
func (g *Basic) Init(d *metadata.Data) error {
	slog.Debug("Signature generator initialized.", "kind", "basic")
	return nil
}

// Signature implements Generator. Entries are hashed in sorted order
// so that insertion order, which is not semantically significant,
// cannot perturb the result.
func (g *Basic) Signature(d *metadata.Data) uint64 {
	entries := depends.Entries(d)
	sorted := make([]depends.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := xxhash.New()
	for _, e := range sorted {
		io.WriteString(h, e.Path)
		binary.Write(h, binary.LittleEndian, e.Fingerprint.MtimeNs)
		binary.Write(h, binary.LittleEndian, e.Fingerprint.Size)
		binary.Write(h, binary.LittleEndian, e.Fingerprint.Inode)
	}

	for _, fn := range g.fns {
		excluded := make(map[string]bool)
		for _, name := range g.decls.ExcludedFrom(fn) {
			excluded[name] = true
		}
		for _, name := range g.decls.DependsOn(fn) {
			if excluded[name] {
				continue
			}
			io.WriteString(h, name)
			io.WriteString(h, "\x00")
			io.WriteString(h, d.GetString(name))
			io.WriteString(h, "\x00")
		}
	}
	return h.Sum64()
}

// Exit implements Generator.
func (g *Basic) Exit() {
	slog.Debug("Signature generator shut down.", "kind", "basic")
}
