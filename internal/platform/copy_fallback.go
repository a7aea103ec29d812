//go:build !linux && !darwin

package platform

// CopyPath falls back to read/write on unsupported platforms.
func CopyPath(src, dst string) (CopyResult, error) {
	srcFd, dstFd, _, err := openPair(src, dst)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()
	defer dstFd.Close()
	return copyReadWrite(srcFd, dstFd)
}
