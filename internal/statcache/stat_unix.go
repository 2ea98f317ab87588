//go:build unix

package statcache

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number from a stat result. Inode
// identity distinguishes a file replaced in place from one merely
// rewritten.
func inodeOf(fi os.FileInfo) uint64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return 0
}
