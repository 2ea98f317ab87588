package statcache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// touch pushes the file's mtime forward so the new fingerprint is
// guaranteed to differ even on coarse filesystem clocks.
func touch(t *testing.T, path string) {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	newTime := fi.ModTime().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, newTime, newTime))
}

func TestLookup_Memoizes(t *testing.T) {
	t.Parallel()
	c := New()
	path := filepath.Join(t.TempDir(), "recipe.bb")
	writeFile(t, path, "SUMMARY = \"x\"\n")

	first, err := c.Lookup(path)
	require.NoError(t, err)
	assert.False(t, first.IsAbsent())

	// A modification without an intervening refresh must not be
	// observed; the cached value wins.
	touch(t, path)
	second, err := c.Lookup(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLookup_PropagatesStatFailure(t *testing.T) {
	t.Parallel()
	c := New()
	_, err := c.Lookup(filepath.Join(t.TempDir(), "no-such-file"))
	require.Error(t, err)
}

func TestLookupNoError_AbsentSentinel(t *testing.T) {
	t.Parallel()
	c := New()
	dir := t.TempDir()

	fp := c.LookupNoError(filepath.Join(dir, "missing.bb"))
	assert.True(t, fp.IsAbsent())

	// A failed probe must not be cached: once the file appears, the
	// next lookup sees it.
	path := filepath.Join(dir, "missing.bb")
	writeFile(t, path, "content")
	fp = c.LookupNoError(path)
	assert.False(t, fp.IsAbsent())
}

func TestCheck_AfterRefreshIsTrue(t *testing.T) {
	t.Parallel()
	c := New()
	path := filepath.Join(t.TempDir(), "recipe.bb")
	writeFile(t, path, "v1")

	assert.True(t, c.Check(path, c.Refresh(path)))
}

func TestCheck_DetectsChangeAndUpdatesEntry(t *testing.T) {
	t.Parallel()
	c := New()
	path := filepath.Join(t.TempDir(), "recipe.bb")
	writeFile(t, path, "v1")

	old, err := c.Lookup(path)
	require.NoError(t, err)

	writeFile(t, path, "v2 with different size")
	touch(t, path)
	assert.False(t, c.Check(path, old))

	// Check updated the entry to the current state as a side effect.
	current, err := c.Lookup(path)
	require.NoError(t, err)
	assert.NotEqual(t, old, current)
	assert.True(t, c.Check(path, current))
}

func TestCheck_MissingFileComparesAsAbsent(t *testing.T) {
	t.Parallel()
	c := New()
	path := filepath.Join(t.TempDir(), "gone.bb")

	assert.True(t, c.Check(path, Fingerprint{}))
	assert.False(t, c.Check(path, Fingerprint{MtimeNs: 1}))
}

func TestRefresh_RemovesEntryForDeletedFile(t *testing.T) {
	t.Parallel()
	c := New()
	path := filepath.Join(t.TempDir(), "recipe.bb")
	writeFile(t, path, "v1")

	_, err := c.Lookup(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	fp := c.Refresh(path)
	assert.True(t, fp.IsAbsent())

	// The stale entry is gone; a fresh lookup fails instead of
	// returning cached state.
	_, err = c.Lookup(path)
	require.Error(t, err)
}

func TestUpdate_OnlyTouchesExistingEntries(t *testing.T) {
	t.Parallel()
	c := New()
	dir := t.TempDir()
	cached := filepath.Join(dir, "cached.bb")
	uncached := filepath.Join(dir, "uncached.bb")
	writeFile(t, cached, "v1")
	writeFile(t, uncached, "v1")

	old, err := c.Lookup(cached)
	require.NoError(t, err)

	writeFile(t, cached, "v2 longer")
	touch(t, cached)
	c.Update(cached)
	c.Update(uncached)

	current, err := c.Lookup(cached)
	require.NoError(t, err)
	assert.NotEqual(t, old, current)

	// uncached was never in the cache and Update must not add it; a
	// later modification is still visible on first lookup.
	touch(t, uncached)
	fp, err := c.Lookup(uncached)
	require.NoError(t, err)
	assert.False(t, fp.IsAbsent())
}

func TestClear_ForcesFreshStat(t *testing.T) {
	t.Parallel()
	c := New()
	path := filepath.Join(t.TempDir(), "recipe.bb")
	writeFile(t, path, "v1")

	old, err := c.Lookup(path)
	require.NoError(t, err)

	writeFile(t, path, "v2 with different size")
	touch(t, path)
	c.Clear()

	current, err := c.Lookup(path)
	require.NoError(t, err)
	assert.NotEqual(t, old, current)
}

// TestCache_ConcurrentAccess verifies the cache can be shared by
// multiple parse workers without data races.
func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.bb")
	writeFile(t, path, "content")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp := c.LookupNoError(path)
			c.Check(path, fp)
			c.Refresh(path)
		}()
	}
	wg.Wait()

	fp, err := c.Lookup(path)
	require.NoError(t, err)
	assert.False(t, fp.IsAbsent())
}
