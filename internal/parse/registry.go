// Package parse dispatches build-description files to pluggable
// file-type handlers and tracks the signature generator active for a
// parse run.
//
// Handlers form a fixed ordered list; the first handler whose
// predicate accepts a path wins. Registration order is load order and
// is a deliberate precedence contract, not an accident.
package parse

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/siggen"
)

// Handler is a pluggable parser descriptor for one class of input
// file.
type Handler interface {
	// Supports reports whether this handler can process the file in
	// the given build context.
	Supports(filename string, d *metadata.Data) bool

	// SupportsPath is the simpler, path-only predicate used when
	// selecting a handler for one-time per-context initialization.
	SupportsPath(filename string) bool

	// Handle parses the file into the build context. include marks a
	// nested inclusion; baseconfig marks base-configuration parsing
	// before user-level recipes.
	Handle(ctx context.Context, filename string, d *metadata.Data, include, baseconfig bool) (*metadata.Data, error)

	// Init performs one-time per-context setup for this handler.
	Init(d *metadata.Data) error
}

// Module is implemented by packages that contribute handlers to a
// registry, in registration order.
type Module interface {
	Register(r *Registry)
}

// Registry holds the ordered handler list for one application
// instance.
type Registry struct {
	mu       sync.Mutex
	handlers []Handler
	siggen   siggen.Generator
}

// New creates an empty handler registry.
func New() *Registry {
	return &Registry{}
}

// RegisterHandler appends h to the registry. Earlier registrations
// take precedence during dispatch.
func (r *Registry) RegisterHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slog.Debug("Registering file handler.", "position", len(r.handlers))
	r.handlers = append(r.handlers, h)
}

// Handlers returns a snapshot of the registered handlers in
// registration order.
func (r *Registry) Handlers() []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Supports reports whether any registered handler claims filename.
func (r *Registry) Supports(filename string, d *metadata.Data) bool {
	for _, h := range r.Handlers() {
		if h.Supports(filename, d) {
			return true
		}
	}
	return false
}

// Handle dispatches filename to the first handler that claims it,
// with the file pushed onto the context's inclusion history for the
// duration of the call. Returns *UnsupportedError when no handler
// accepts the file.
func (r *Registry) Handle(ctx context.Context, filename string, d *metadata.Data, include, baseconfig bool) (*metadata.Data, error) {
	for _, h := range r.Handlers() {
		if !h.Supports(filename, d) {
			continue
		}
		leave := d.History().Include(filename)
		defer leave()
		return h.Handle(ctx, filename, d, include, baseconfig)
	}
	return nil, &UnsupportedError{Path: filename}
}

// Init runs the one-time per-context initialization of the first
// handler whose path-only predicate accepts filename. A file no
// handler claims needs no initialization.
func (r *Registry) Init(filename string, d *metadata.Data) error {
	for _, h := range r.Handlers() {
		if h.SupportsPath(filename) {
			return h.Init(d)
		}
	}
	return nil
}
