package poller

import (
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// Key derives the idempotent-consumer key for a file. The relative path is
// the durable identity; size and modtime fold in so a rewritten file is
// consumed again.
func Key(relPath string, size int64, modTime time.Time) [32]byte {
	return blake3.Sum256(fmt.Appendf(nil, "%s\x00%d\x00%d", relPath, size, modTime.UnixNano()))
}

// Tracker is an in-memory set of consumed file keys. Safe for concurrent
// use.
type Tracker struct {
	mu   sync.Mutex
	seen map[[32]byte]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[[32]byte]struct{})}
}

// Seen reports whether the key was committed before.
func (t *Tracker) Seen(key [32]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[key]
	return ok
}

// Commit records a successfully consumed key.
func (t *Tracker) Commit(key [32]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[key] = struct{}{}
}
