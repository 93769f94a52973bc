//go:build linux

package diskshard

import (
	"os"

	"golang.org/x/sys/unix"
)

// directIOFlag is OR'd into the os.OpenFile flags for the log file so
// reads and writes bypass the page cache. Direct I/O is what forces the
// block-alignment discipline the rest of this package is built around.
const directIOFlag = unix.O_DIRECT

// blockSizeOf probes the filesystem block size backing path via
// statfs(2), falling back to defaultBlockSize if the syscall fails (e.g.
// on filesystems that don't report one).
func blockSizeOf(path string) int {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return defaultBlockSize
	}
	if stat.Bsize <= 0 {
		return defaultBlockSize
	}
	return int(stat.Bsize)
}

// openDirect opens path for direct I/O, creating it if absent.
func openDirect(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|directIOFlag, 0o644)
}
