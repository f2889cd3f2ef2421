//go:build linux

package fileserver

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// changeTime is the inode change time, which Acorn clients show as the
// object's date.
func changeTime(st os.FileInfo) time.Time {
	if sys, ok := st.Sys().(*syscall.Stat_t); ok {
		return time.Unix(sys.Ctim.Unix())
	}
	return st.ModTime()
}

// allocatedSize is the space the file occupies on disc.
func allocatedSize(st os.FileInfo) int64 {
	if sys, ok := st.Sys().(*syscall.Stat_t); ok {
		return sys.Blocks * 512
	}
	return st.Size()
}

// freeSpace returns the bytes available to unprivileged users on the
// filesystem holding path.
func freeSpace(path string) (uint64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, err
	}
	return fs.Bavail * uint64(fs.Bsize), nil
}

// syncFile flushes f to stable storage.
func syncFile(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
