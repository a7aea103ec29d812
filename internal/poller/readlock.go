package poller

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/filetap/filetap/internal/endpoint"
)

const (
	markerSuffix = ".lock"
	probeSuffix  = ".rlock"
)

// readLock gates a file before it is handed to the callback. Acquire
// returns acquired=false to skip the file this pass without error.
type readLock interface {
	Acquire(ctx context.Context, path string) (release func(), acquired bool, err error)
}

func newReadLock(name string, stableInterval time.Duration) (readLock, error) {
	switch name {
	case endpoint.ReadLockNone, "":
		return noneLock{}, nil
	case endpoint.ReadLockChanged:
		return &changedLock{interval: stableInterval}, nil
	case endpoint.ReadLockRename:
		return renameLock{}, nil
	case endpoint.ReadLockMarkerFile:
		return markerLock{}, nil
	case endpoint.ReadLockFileLock:
		return newFlockLock()
	default:
		// The binder enforces the enum; reaching here is a bug.
		return nil, fmt.Errorf("unknown read lock strategy %q", name)
	}
}

type noneLock struct{}

func (noneLock) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

// changedLock requires the file's size and modification time to hold still
// across one interval, so a file mid-write is not consumed.
type changedLock struct {
	interval time.Duration
}

func (l *changedLock) Acquire(ctx context.Context, path string) (func(), bool, error) {
	before, err := os.Stat(path)
	if err != nil {
		return nil, false, nil
	}

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-time.After(l.interval):
	}

	after, err := os.Stat(path)
	if err != nil {
		return nil, false, nil
	}
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) {
		return nil, false, nil
	}
	return func() {}, true, nil
}

// renameLock probes for exclusive access by renaming the file away and
// back. A writer still holding the file open on platforms with mandatory
// sharing semantics makes the rename fail, which skips the file.
type renameLock struct{}

func (renameLock) Acquire(_ context.Context, path string) (func(), bool, error) {
	probe := path + probeSuffix
	if err := os.Rename(path, probe); err != nil {
		return nil, false, nil
	}
	if err := os.Rename(probe, path); err != nil {
		// The file is stranded under the probe name; surface it.
		return nil, false, fmt.Errorf("restore %s: %w", path, err)
	}
	return func() {}, true, nil
}

// markerLock creates a sibling marker file exclusively. A pre-existing
// marker means another consumer owns the file.
type markerLock struct{}

func (markerLock) Acquire(_ context.Context, path string) (func(), bool, error) {
	marker := path + markerSuffix
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("create marker %s: %w", marker, err)
	}
	f.Close()
	return func() { _ = os.Remove(marker) }, true, nil
}
