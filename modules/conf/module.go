// Package conf is the built-in handler for bakemeta configuration
// files. A .conf file is a flat HCL attribute file; every attribute
// becomes a build-context variable.
package conf

import (
	"context"
	"path/filepath"

	"github.com/vk/bakemeta/internal/config"
	"github.com/vk/bakemeta/internal/ctxlog"
	"github.com/vk/bakemeta/internal/depends"
	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/parse"
)

// Module implements the parse.Module interface for this package.
type Module struct {
	handler *Handler
}

// New creates the conf module with its filesystem collaborators.
func New(recorder *depends.Recorder) *Module {
	return &Module{handler: &Handler{recorder: recorder}}
}

// Register registers the handler with the dispatcher.
func (m *Module) Register(r *parse.Registry) {
	r.RegisterHandler(m.handler)
}

// Handler parses .conf files into context variables.
type Handler struct {
	recorder *depends.Recorder
}

// SupportsPath implements parse.Handler.
func (h *Handler) SupportsPath(filename string) bool {
	return filepath.Ext(filename) == ".conf"
}

// Supports implements parse.Handler.
func (h *Handler) Supports(filename string, d *metadata.Data) bool {
	return h.SupportsPath(filename)
}

// Init implements parse.Handler. Configuration parsing needs no
// per-context setup.
func (h *Handler) Init(d *metadata.Data) error {
	return nil
}

// Handle implements parse.Handler. The file itself is recorded as a
// dependency before its variables are applied.
func (h *Handler) Handle(ctx context.Context, filename string, d *metadata.Data, include, baseconfig bool) (*metadata.Data, error) {
	path, err := h.recorder.Resolve(filename, d)
	if err != nil {
		return nil, err
	}

	vars, err := config.DecodeFile(path)
	if err != nil {
		return nil, &parse.ParseError{Msg: err.Error(), Filename: path}
	}
	for _, v := range vars {
		d.SetVar(v.Name, v.Value)
	}

	ctxlog.FromContext(ctx).Debug("Configuration file parsed.",
		"path", path, "variables", len(vars), "baseconfig", baseconfig)
	return d, nil
}
