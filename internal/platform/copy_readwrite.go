package platform

import (
	"io"
	"os"
	"sync"
)

const bufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// openPair opens the source for reading and creates/truncates the
// destination, returning both with the source size.
func openPair(src, dst string) (srcFd, dstFd *os.File, size int64, err error) {
	srcFd, err = os.Open(src)
	if err != nil {
		return nil, nil, 0, err
	}
	info, err := srcFd.Stat()
	if err != nil {
		srcFd.Close()
		return nil, nil, 0, err
	}
	dstFd, err = os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		srcFd.Close()
		return nil, nil, 0, err
	}
	return srcFd, dstFd, info.Size(), nil
}

// copyReadWrite copies data with a pooled buffer.
func copyReadWrite(srcFd, dstFd *os.File) (CopyResult, error) {
	if _, err := srcFd.Seek(0, 0); err != nil {
		return CopyResult{}, err
	}
	if _, err := dstFd.Seek(0, 0); err != nil {
		return CopyResult{}, err
	}

	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)

	n, err := io.CopyBuffer(dstFd, srcFd, *bufp)
	return CopyResult{BytesWritten: n, Method: ReadWrite}, err
}
