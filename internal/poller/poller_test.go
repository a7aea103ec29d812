package poller_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filetap/filetap/internal/endpoint"
	"github.com/filetap/filetap/internal/gfile"
	"github.com/filetap/filetap/internal/poller"
)

// recorder collects processed relative paths for assertions.
type recorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recorder) process(_ context.Context, file *gfile.GenericFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, file.RelativePath)
	return r.err
}

func (r *recorder) processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func writeFile(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))
	return path
}

func resolve(t *testing.T, uri string) *endpoint.Endpoint {
	t.Helper()
	ep, err := endpoint.Resolve(uri)
	require.NoError(t, err)
	return ep
}

func newPoller(t *testing.T, ep *endpoint.Endpoint, rec *recorder) *poller.Poller {
	t.Helper()
	p, err := poller.New(ep, rec.process, poller.Options{StableInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	return p
}

func TestPollOnceRecursiveDelete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.txt")
	writeFile(t, root, "some/nested/filename.txt")
	writeFile(t, root, "some/other.txt")

	rec := &recorder{}
	ep := resolve(t, "file:"+root+"?recursive=true&delete=true")
	p := newPoller(t, ep, rec)

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t,
		[]string{"a.txt", "some/nested/filename.txt", "some/other.txt"},
		rec.processed())

	// delete=true removed the consumed files.
	_, err = os.Stat(filepath.Join(root, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "some", "nested", "filename.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestPollOnceNonRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "top.txt")
	writeFile(t, root, "sub/skipped.txt")

	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root), rec)

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"top.txt"}, rec.processed())
}

func TestPollOnceSkipsHiddenAndLockArtifacts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "keep.txt")
	writeFile(t, root, ".hidden")
	writeFile(t, root, "keep.txt.lock")
	writeFile(t, root, "other.txt.rlock")

	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root), rec)

	_, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, rec.processed())
}

func TestMoveAfterProcessing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "in/report.csv")

	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root+"?recursive=true&move=.done"), rec)

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	moved := filepath.Join(root, ".done", "in", "report.csv")
	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(filepath.Join(root, "in", "report.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestMoveFailedOnCallbackError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "bad.txt")

	rec := &recorder{err: errors.New("boom")}
	p := newPoller(t, resolve(t, "file:"+root+"?delete=true&moveFailed=.failed"), rec)

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The failure path moves instead of deleting.
	_, err = os.Stat(filepath.Join(root, ".failed", "bad.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "bad.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestNoopIsIdempotent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "once.txt")

	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root+"?noop=true"), rec)

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The file is left in place but not consumed again.
	n, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []string{"once.txt"}, rec.processed())

	_, err = os.Stat(filepath.Join(root, "once.txt"))
	require.NoError(t, err)
}

func TestMaxMessagesPerPoll(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		writeFile(t, root, name)
	}

	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root+"?delete=true&maxMessagesPerPoll=2"), rec)

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.processed(), 5)
}

func TestIncludeExcludeFilters(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.txt")
	writeFile(t, root, "b.csv")
	writeFile(t, root, "a.txt.tmp")

	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root+`?include=%5C.txt%24&exclude=%5C.tmp%24`), rec)

	_, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, rec.processed())
}

func TestDirectoryMustExistAtPollTime(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	missing := filepath.Join(root, "gone")

	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+missing+"?autoCreate=false&directoryMustExist=true"), rec)

	_, err := p.PollOnce(context.Background())
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root+"?delay=10&initialDelay=0"), rec)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchConsumesNewFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	rec := &recorder{}
	p := newPoller(t, resolve(t, "file:"+root+"?delete=true"), rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	// Let the watcher settle, then drop a file in.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, root, "late.txt")

	require.Eventually(t, func() bool {
		return len(rec.processed()) == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"late.txt"}, rec.processed())

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}
