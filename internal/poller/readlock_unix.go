//go:build unix

package poller

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
)

func newFlockLock() (readLock, error) {
	return flockLock{}, nil
}

// flockLock takes an advisory flock(2) on the file itself.
type flockLock struct{}

func (flockLock) Acquire(_ context.Context, path string) (func(), bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, nil
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, err
	}
	release := func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}
	return release, true, nil
}
