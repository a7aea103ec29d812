//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyPath tries the most efficient copy method available on Linux,
// falling through on unsupported/cross-device errors.
func CopyPath(src, dst string) (CopyResult, error) {
	srcFd, dstFd, size, err := openPair(src, dst)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()
	defer dstFd.Close()

	_ = unix.Fallocate(int(dstFd.Fd()), 0, 0, size)

	result, err := copyFileRange(srcFd, dstFd, size)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	result, err = copySendfile(srcFd, dstFd, size)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(srcFd, dstFd)
}

func copyFileRange(srcFd, dstFd *os.File, size int64) (CopyResult, error) {
	var roff, woff int64
	remaining := size

	var total int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(int(srcFd.Fd()), &roff, int(dstFd.Fd()), &woff, int(remaining), 0)
		if err != nil {
			return CopyResult{BytesWritten: total, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}
	return CopyResult{BytesWritten: total, Method: CopyFileRange}, nil
}

func copySendfile(srcFd, dstFd *os.File, size int64) (CopyResult, error) {
	if _, err := srcFd.Seek(0, 0); err != nil {
		return CopyResult{}, err
	}
	if _, err := dstFd.Seek(0, 0); err != nil {
		return CopyResult{}, err
	}

	var offset int64
	remaining := size

	var total int64
	for remaining > 0 {
		n, err := unix.Sendfile(int(dstFd.Fd()), int(srcFd.Fd()), &offset, int(remaining))
		if err != nil {
			return CopyResult{BytesWritten: total, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}
	return CopyResult{BytesWritten: total, Method: Sendfile}, nil
}

// isFallbackErr returns true if err should trigger the next copy strategy.
func isFallbackErr(err error) bool {
	switch err {
	case unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP:
		return true
	}
	if e, ok := err.(*os.PathError); ok {
		return isFallbackErr(e.Err)
	}
	return false
}
