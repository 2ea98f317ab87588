package vardeps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchSources() {}
func expandPaths()  {}

func TestDepends_UnionsAcrossCalls(t *testing.T) {
	t.Parallel()
	r := New()

	r.Depends(fetchSources, "A", "B")
	r.Depends(fetchSources, "B", "C")

	assert.Equal(t, []string{"A", "B", "C"}, r.DependsOn(fetchSources))
}

func TestExcludes_SeparateFromDepends(t *testing.T) {
	t.Parallel()
	r := New()

	r.Depends(fetchSources, "SRC_URI")
	r.Excludes(fetchSources, "BUILD_TIME", "HOSTNAME")

	assert.Equal(t, []string{"SRC_URI"}, r.DependsOn(fetchSources))
	assert.Equal(t, []string{"BUILD_TIME", "HOSTNAME"}, r.ExcludedFrom(fetchSources))
}

func TestDeclarations_KeyedByFunctionIdentity(t *testing.T) {
	t.Parallel()
	r := New()

	r.Depends(fetchSources, "A")
	r.Depends(expandPaths, "B")

	assert.Equal(t, []string{"A"}, r.DependsOn(fetchSources))
	assert.Equal(t, []string{"B"}, r.DependsOn(expandPaths))
}

func TestDependsOn_UndeclaredFunctionIsEmpty(t *testing.T) {
	t.Parallel()
	r := New()
	assert.Empty(t, r.DependsOn(fetchSources))
	assert.Empty(t, r.ExcludedFrom(fetchSources))
}

func TestDepends_NonFunctionPanics(t *testing.T) {
	t.Parallel()
	r := New()
	require.Panics(t, func() {
		r.Depends("not a function", "A")
	})
}
