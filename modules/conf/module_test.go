package conf

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/bakemeta/internal/ctxlog"
	"github.com/vk/bakemeta/internal/depends"
	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/parse"
	"github.com/vk/bakemeta/internal/statcache"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func newHandler() *Handler {
	return &Handler{recorder: depends.NewRecorder(statcache.New())}
}

func TestSupports(t *testing.T) {
	t.Parallel()
	h := newHandler()
	d := metadata.New()

	assert.True(t, h.Supports("local.conf", d))
	assert.True(t, h.SupportsPath("/abs/path/site.conf"))
	assert.False(t, h.Supports("recipe.bb", d))
	assert.False(t, h.Supports("notes.txt", d))
}

func TestHandle_AppliesVariables(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "local.conf")
	require.NoError(t, os.WriteFile(path, []byte(`
DISTRO = "poky"
BBPATH = "/layers/meta"
`), 0600))

	h := newHandler()
	d := metadata.New()
	out, err := h.Handle(testContext(), path, d, false, true)
	require.NoError(t, err)
	require.Same(t, d, out)

	assert.Equal(t, "poky", d.GetString("DISTRO"))
	assert.Equal(t, "/layers/meta", d.GetString("BBPATH"))

	// The file itself became a dependency.
	entries := depends.Entries(d)
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].Path)
}

func TestHandle_Missing(t *testing.T) {
	t.Parallel()
	h := newHandler()
	_, err := h.Handle(testContext(), filepath.Join(t.TempDir(), "nope.conf"), metadata.New(), false, true)
	require.Error(t, err)

	var notFound *depends.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestHandle_MalformedFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken.conf")
	require.NoError(t, os.WriteFile(path, []byte(`DISTRO = "unterminated`), 0600))

	h := newHandler()
	_, err := h.Handle(testContext(), path, metadata.New(), false, true)
	require.Error(t, err)

	var parseErr *parse.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, path, parseErr.Filename)
}

func TestModule_Register(t *testing.T) {
	t.Parallel()
	r := parse.New()
	New(depends.NewRecorder(statcache.New())).Register(r)
	assert.Len(t, r.Handlers(), 1)
}
