// Package recipe is the built-in handler for recipe files (.bb,
// .bbappend) and their shared include fragments (.inc).
//
// The handler deliberately understands only the skeleton of a recipe:
// quoted variable assignments plus include and require directives.
// Everything else in a recipe body belongs to the full parsers, which
// plug into the same registry. What matters here is the bookkeeping:
// every file opened, probed or included is recorded as a dependency
// with its current fingerprint.
package recipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vk/bakemeta/internal/ctxlog"
	"github.com/vk/bakemeta/internal/depends"
	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/parse"
	"github.com/vk/bakemeta/internal/recipename"
)

// assignment matches a quoted variable assignment, e.g.
//
//	SRC_URI = "s3://bucket/path"
//	PV ?= "1.0"
var assignment = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_\-~.]*)\s*(\?=|=)\s*"(.*)"$`)

// Module implements the parse.Module interface for this package.
type Module struct {
	handler *Handler
}

// New creates the recipe module with its filesystem collaborators.
func New(recorder *depends.Recorder, splitter *recipename.Splitter) *Module {
	return &Module{handler: &Handler{recorder: recorder, splitter: splitter}}
}

// Register registers the handler and keeps a reference to the
// registry so nested includes re-enter the dispatcher.
func (m *Module) Register(r *parse.Registry) {
	m.handler.registry = r
	r.RegisterHandler(m.handler)
}

// Handler parses recipe skeletons into the build context.
type Handler struct {
	recorder *depends.Recorder
	splitter *recipename.Splitter
	registry *parse.Registry
}

// SupportsPath implements parse.Handler.
func (h *Handler) SupportsPath(filename string) bool {
	switch filepath.Ext(filename) {
	case ".bb", ".bbappend", ".inc":
		return true
	}
	return false
}

// Supports implements parse.Handler.
func (h *Handler) Supports(filename string, d *metadata.Data) bool {
	return h.SupportsPath(filename)
}

// Init implements parse.Handler.
func (h *Handler) Init(d *metadata.Data) error {
	return nil
}

// Handle implements parse.Handler.
func (h *Handler) Handle(ctx context.Context, filename string, d *metadata.Data, include, baseconfig bool) (*metadata.Data, error) {
	logger := ctxlog.FromContext(ctx)

	path, err := h.recorder.Resolve(filename, d)
	if err != nil {
		return nil, err
	}

	if !include {
		if err := h.applyFilenameDefaults(path, d); err != nil {
			return nil, err
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recipe %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "include", "require":
			if len(fields) != 2 {
				return nil, &parse.ParseError{
					Msg:      fmt.Sprintf("%s directive needs exactly one path", fields[0]),
					Filename: path, Lineno: lineno,
				}
			}
			if err := h.handleInclude(ctx, fields[0], fields[1], path, lineno, d); err != nil {
				return nil, err
			}
			continue
		}

		m := assignment.FindStringSubmatch(line)
		if m == nil {
			return nil, &parse.ParseError{
				Msg:      fmt.Sprintf("unrecognized statement %q", line),
				Filename: path, Lineno: lineno,
			}
		}
		name, op, value := m[1], m[2], m[3]
		if op == "?=" && d.GetVar(name) != nil {
			continue
		}
		d.SetVar(name, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recipe %s: %w", path, err)
	}

	logger.Debug("Recipe file parsed.", "path", path, "include", include)
	return d, nil
}

// applyFilenameDefaults seeds PN/PV/PR from the recipe filename
// before the body can override them.
func (h *Handler) applyFilenameDefaults(path string, d *metadata.Data) error {
	parts, err := h.splitter.Split(filepath.Base(path))
	if err != nil {
		return err
	}
	if parts.Name != "" {
		d.SetVar("PN", parts.Name)
	}
	if parts.Version != "" {
		d.SetVar("PV", parts.Version)
	}
	if parts.Revision != "" {
		d.SetVar("PR", parts.Revision)
	}
	d.SetVar("FILE", path)
	return nil
}

// handleInclude resolves and re-dispatches one include or require
// directive. A missing include target is tolerated; a missing require
// target is a hard failure. Either way the probed paths stay recorded
// so their later appearance invalidates cached results.
func (h *Handler) handleInclude(ctx context.Context, directive, target, path string, lineno int, d *metadata.Data) error {
	resolved, err := h.recorder.Resolve(target, d)
	if err != nil {
		var notFound *depends.NotFoundError
		if directive == "include" && errors.As(err, &notFound) {
			ctxlog.FromContext(ctx).Debug("Optional include not found.",
				"target", target, "from", path)
			return nil
		}
		return err
	}

	if d.History().Contains(resolved) {
		return &parse.ParseError{
			Msg:      fmt.Sprintf("circular inclusion of %s (chain: %s)", resolved, strings.Join(d.History().Chain(), " -> ")),
			Filename: path, Lineno: lineno,
		}
	}

	if _, err := h.registry.Handle(ctx, resolved, d, true, false); err != nil {
		return err
	}
	return nil
}
