package parse

import (
	"log/slog"

	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/siggen"
)

// InitParser installs the signature generator produced by factory as
// the active generator for this registry. At most one generator is
// active at a time; an existing generator is shut down before the
// replacement is constructed, so switching is an intentional reset.
func (r *Registry) InitParser(d *metadata.Data, factory siggen.Factory) error {
	r.mu.Lock()
	old := r.siggen
	r.mu.Unlock()
	if old != nil {
		slog.Debug("Replacing active signature generator.")
		old.Exit()
	}

	gen, err := factory(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.siggen = gen
	r.mu.Unlock()
	return nil
}

// Generator returns the active signature generator, or nil before
// InitParser has run.
func (r *Registry) Generator() siggen.Generator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.siggen
}
