package parse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/siggen"
)

// fakeHandler claims files by extension and records what it was asked
// to do.
type fakeHandler struct {
	ext        string
	name       string
	handled    []string
	initCalls  int
	handleErr  error
	sawCurrent string
}

func (h *fakeHandler) Supports(filename string, _ *metadata.Data) bool {
	return strings.HasSuffix(filename, h.ext)
}

func (h *fakeHandler) SupportsPath(filename string) bool {
	return strings.HasSuffix(filename, h.ext)
}

func (h *fakeHandler) Handle(_ context.Context, filename string, d *metadata.Data, _, _ bool) (*metadata.Data, error) {
	h.handled = append(h.handled, filename)
	h.sawCurrent = d.History().Current()
	if h.handleErr != nil {
		return nil, h.handleErr
	}
	d.SetVar("HANDLED_BY", h.name)
	return d, nil
}

func (h *fakeHandler) Init(_ *metadata.Data) error {
	h.initCalls++
	return nil
}

func TestHandle_FirstMatchingHandlerWins(t *testing.T) {
	t.Parallel()
	first := &fakeHandler{ext: ".bb", name: "first"}
	second := &fakeHandler{ext: ".bb", name: "second"}

	r := New()
	r.RegisterHandler(first)
	r.RegisterHandler(second)

	d := metadata.New()
	_, err := r.Handle(context.Background(), "hello.bb", d, false, false)
	require.NoError(t, err)

	assert.Equal(t, "first", d.GetString("HANDLED_BY"))
	assert.Equal(t, []string{"hello.bb"}, first.handled)
	assert.Empty(t, second.handled)
}

func TestHandle_UnsupportedFile(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterHandler(&fakeHandler{ext: ".bb"})

	_, err := r.Handle(context.Background(), "readme.txt", metadata.New(), false, false)
	require.Error(t, err)

	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "readme.txt", unsupported.Path)
	assert.Contains(t, err.Error(), "readme.txt")
}

func TestHandle_FileVisibleInHistoryDuringDispatch(t *testing.T) {
	t.Parallel()
	h := &fakeHandler{ext: ".bb"}
	r := New()
	r.RegisterHandler(h)

	d := metadata.New()
	_, err := r.Handle(context.Background(), "hello.bb", d, false, false)
	require.NoError(t, err)

	// During the call the file was the innermost inclusion; afterwards
	// the chain is restored.
	assert.Equal(t, "hello.bb", h.sawCurrent)
	assert.Empty(t, d.History().Chain())
}

func TestHandle_HistoryRestoredOnError(t *testing.T) {
	t.Parallel()
	h := &fakeHandler{ext: ".bb", handleErr: errors.New("boom")}
	r := New()
	r.RegisterHandler(h)

	d := metadata.New()
	_, err := r.Handle(context.Background(), "hello.bb", d, false, false)
	require.Error(t, err)
	assert.Empty(t, d.History().Chain())
}

func TestSupports(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterHandler(&fakeHandler{ext: ".bb"})
	r.RegisterHandler(&fakeHandler{ext: ".conf"})

	d := metadata.New()
	assert.True(t, r.Supports("hello.bb", d))
	assert.True(t, r.Supports("local.conf", d))
	assert.False(t, r.Supports("readme.txt", d))
}

func TestInit_SelectsByPathOnlyPredicate(t *testing.T) {
	t.Parallel()
	bb := &fakeHandler{ext: ".bb"}
	conf := &fakeHandler{ext: ".conf"}
	r := New()
	r.RegisterHandler(bb)
	r.RegisterHandler(conf)

	d := metadata.New()
	require.NoError(t, r.Init("local.conf", d))
	assert.Equal(t, 0, bb.initCalls)
	assert.Equal(t, 1, conf.initCalls)

	// Files no handler claims need no initialization.
	require.NoError(t, r.Init("readme.txt", d))
}

// exitTracker counts shutdowns so generator replacement can be
// observed.
type exitTracker struct {
	exits int
}

func (g *exitTracker) Init(*metadata.Data) error       { return nil }
func (g *exitTracker) Signature(*metadata.Data) uint64 { return 0 }
func (g *exitTracker) Exit()                           { g.exits++ }

func TestInitParser_ReplacesActiveGenerator(t *testing.T) {
	t.Parallel()
	r := New()
	d := metadata.New()
	assert.Nil(t, r.Generator())

	first := &exitTracker{}
	factory := func(*metadata.Data) (siggen.Generator, error) { return first, nil }
	require.NoError(t, r.InitParser(d, factory))
	assert.Same(t, siggen.Generator(first), r.Generator())

	second := &exitTracker{}
	factory = func(*metadata.Data) (siggen.Generator, error) { return second, nil }
	require.NoError(t, r.InitParser(d, factory))

	assert.Equal(t, 1, first.exits)
	assert.Equal(t, 0, second.exits)
	assert.Same(t, siggen.Generator(second), r.Generator())
}

func TestInitParser_FactoryError(t *testing.T) {
	t.Parallel()
	r := New()
	factory := func(*metadata.Data) (siggen.Generator, error) {
		return nil, errors.New("bad generator")
	}
	require.Error(t, r.InitParser(metadata.New(), factory))
	assert.Nil(t, r.Generator())
}
