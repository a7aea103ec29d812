//go:build !unix

package poller

import "errors"

func newFlockLock() (readLock, error) {
	return nil, errors.New("fileLock read lock is not supported on this platform")
}
