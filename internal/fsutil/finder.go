// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtensions recursively searches the given root path for
// all files ending with one of the specified extensions. It returns a
// slice of their full paths.
func FindFilesByExtensions(rootPath string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		panic("at least one extension must be given")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range extensions {
			if strings.HasSuffix(d.Name(), ext) {
				files = append(files, path)
				break
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// SearchPath looks for filename in each directory of the
// platform-delimited pathList, in order. It returns the first hit and
// every candidate path probed along the way, the hit included. The
// probe history matters to callers that must notice when a
// higher-priority directory later gains a matching file.
func SearchPath(pathList, filename string) (string, []string) {
	var attempts []string
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, filename)
		attempts = append(attempts, candidate)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, attempts
		}
	}
	return "", attempts
}
