//go:build unix

package poller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filetap/filetap/internal/endpoint"
)

func TestFlockLock(t *testing.T) {
	t.Parallel()

	path := lockFixture(t)
	lock, err := newReadLock(endpoint.ReadLockFileLock, time.Millisecond)
	require.NoError(t, err)

	release, acquired, err := lock.Acquire(context.Background(), path)
	require.NoError(t, err)
	require.True(t, acquired)

	_, again, err := lock.Acquire(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, again, "a held flock must not be acquired twice")

	release()

	release, acquired, err = lock.Acquire(context.Background(), path)
	require.NoError(t, err)
	require.True(t, acquired)
	release()
}
