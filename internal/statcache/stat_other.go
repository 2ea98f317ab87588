//go:build !unix

package statcache

import "os"

// inodeOf has no portable equivalent off unix; mtime and size still
// carry the staleness check.
func inodeOf(fi os.FileInfo) uint64 {
	return 0
}
