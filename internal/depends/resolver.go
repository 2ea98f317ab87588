package depends

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/bakemeta/internal/fsutil"
	"github.com/vk/bakemeta/internal/metadata"
)

// NotFoundError reports a file that does not exist at an absolute
// path, or in any directory of the search path.
type NotFoundError struct {
	Path       string
	SearchPath []string
}

func (e *NotFoundError) Error() string {
	if len(e.SearchPath) > 0 {
		return fmt.Sprintf("file %s not found in %s", e.Path, strings.Join(e.SearchPath, string(filepath.ListSeparator)))
	}
	return fmt.Sprintf("file %s not found", e.Path)
}

// Unwrap lets callers test the error with errors.Is(err, fs.ErrNotExist).
func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// Resolve turns a recipe or configuration filename into the absolute
// path that will be parsed, recording every path probed along the
// way. An absolute input is recorded directly and existence-checked.
// A relative input is searched across the SearchPathVar directories of
// d; every candidate probed is recorded, even directories that do not
// contain the file, so that the cache is invalidated correctly if a
// higher-priority directory later gains a matching file.
func (r *Recorder) Resolve(filename string, d *metadata.Data) (string, error) {
	if !filepath.IsAbs(filename) {
		searchPath := d.GetString(SearchPathVar)
		found, attempts := fsutil.SearchPath(searchPath, filename)
		for _, attempt := range attempts {
			r.Record(d, attempt)
		}
		if found == "" {
			return "", &NotFoundError{Path: filename, SearchPath: filepath.SplitList(searchPath)}
		}
		filename = found
	} else {
		r.Record(d, filename)
	}

	fi, err := os.Stat(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Path: filename}
		}
		return "", fmt.Errorf("stat %s: %w", filename, err)
	}
	if fi.IsDir() {
		return "", &NotFoundError{Path: filename}
	}
	return filename, nil
}
