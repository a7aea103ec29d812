//go:build darwin

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyPath tries clonefile first (CoW whole-file copy), then falls back
// to read/write on macOS.
func CopyPath(src, dst string) (CopyResult, error) {
	info, err := os.Stat(src)
	if err != nil {
		return CopyResult{}, err
	}

	err = unix.Clonefile(src, dst, 0)
	if err == nil {
		return CopyResult{BytesWritten: info.Size(), Method: Clonefile}, nil
	}
	if !isFallbackCloneErr(err) {
		return CopyResult{}, err
	}

	srcFd, dstFd, _, err := openPair(src, dst)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()
	defer dstFd.Close()
	return copyReadWrite(srcFd, dstFd)
}

func isFallbackCloneErr(err error) bool {
	switch err {
	case unix.ENOTSUP, unix.EXDEV, unix.EEXIST:
		return true
	}
	return false
}
