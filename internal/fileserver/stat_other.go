//go:build !linux

package fileserver

import (
	"errors"
	"os"
	"time"
)

func changeTime(st os.FileInfo) time.Time {
	return st.ModTime()
}

func allocatedSize(st os.FileInfo) int64 {
	return st.Size()
}

func freeSpace(string) (uint64, error) {
	return 0, errors.New("free space not supported on this platform")
}

func syncFile(f *os.File) error {
	return f.Sync()
}
