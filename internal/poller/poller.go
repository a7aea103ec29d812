// Package poller owns the scheduling loop around a resolved endpoint: it
// discovers files beneath the root, applies the configured read lock, and
// hands each file to a processing callback.
package poller

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/filetap/filetap/internal/endpoint"
	"github.com/filetap/filetap/internal/event"
	"github.com/filetap/filetap/internal/gfile"
	"github.com/filetap/filetap/internal/platform"
)

// ProcessFunc handles one discovered file. An error triggers the failure
// post-processing path (moveFailed) instead of delete/move.
type ProcessFunc func(ctx context.Context, file *gfile.GenericFile) error

// Options tunes poller behavior not carried by endpoint options.
type Options struct {
	// Events receives lifecycle events. Sends never block; events are
	// dropped when the channel is full.
	Events chan<- event.Event

	// StableInterval is how long the changed read lock waits between the
	// two stats it compares. Defaults to 100ms.
	StableInterval time.Duration
}

// Poller drives consumption for one endpoint. The endpoint is treated as
// read-only shared state.
type Poller struct {
	ep      *endpoint.Endpoint
	process ProcessFunc
	events  chan<- event.Event
	lock    readLock
	tracker *Tracker
}

// New builds a poller for a resolved endpoint.
func New(ep *endpoint.Endpoint, process ProcessFunc, opts Options) (*Poller, error) {
	stable := opts.StableInterval
	if stable <= 0 {
		stable = 100 * time.Millisecond
	}
	lock, err := newReadLock(ep.Config.ReadLock, stable)
	if err != nil {
		return nil, err
	}

	p := &Poller{
		ep:      ep,
		process: process,
		events:  opts.Events,
		lock:    lock,
	}
	if ep.Config.Idempotent {
		p.tracker = NewTracker()
	}
	return p, nil
}

// Run polls until ctx is canceled. The first poll waits initialDelay;
// subsequent polls follow delay, either fixed-delay (measured from the end
// of the previous poll) or fixed-rate.
func (p *Poller) Run(ctx context.Context) error {
	cfg := p.ep.Config

	if cfg.InitialDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.InitialDelay):
		}
	}

	if !cfg.UseFixedDelay {
		ticker := time.NewTicker(pollInterval(cfg.Delay))
		defer ticker.Stop()
		for {
			if err := p.runPoll(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	for {
		if err := p.runPoll(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval(cfg.Delay)):
		}
	}
}

// Watch consumes on filesystem notifications instead of a timer. Events
// are coalesced for StableInterval before triggering a poll pass, so a
// burst of writes results in one pass.
func (p *Poller) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := p.addWatches(watcher); err != nil {
		return err
	}

	// Consume whatever is already present before waiting on events.
	if err := p.runPoll(ctx); err != nil {
		return err
	}

	var trigger <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) && p.ep.Config.Recursive {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
				}
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
				trigger = time.After(100 * time.Millisecond)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.emit(event.Event{Type: event.PollComplete, Error: err})

		case <-trigger:
			trigger = nil
			if err := p.runPoll(ctx); err != nil {
				return err
			}
		}
	}
}

func (p *Poller) addWatches(watcher *fsnotify.Watcher) error {
	root := p.ep.RootPath
	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !p.ep.Config.Recursive {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			return watcher.Add(path)
		}
		return nil
	})
}

// runPoll executes one poll pass and routes its error according to
// bridgeErrorHandler: bridged errors abort the loop, unbridged ones are
// reported on the event channel and swallowed.
func (p *Poller) runPoll(ctx context.Context) error {
	n, err := p.PollOnce(ctx)
	if err != nil {
		if p.ep.Config.BridgeErrorHandler {
			return err
		}
		p.emit(event.Event{Type: event.PollComplete, Count: n, Error: err})
		return nil
	}
	p.emit(event.Event{Type: event.PollComplete, Count: n})
	return nil
}

// PollOnce walks the root once and consumes eligible files, returning how
// many were handed to the callback.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	cfg := p.ep.Config
	root := p.ep.RootPath

	if cfg.DirectoryMustExist {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return 0, fmt.Errorf("directory %s does not exist", root)
		}
	}

	p.emit(event.Event{Type: event.PollStarted})

	paths, err := p.discover(ctx, root)
	if err != nil {
		return 0, err
	}

	consumed := 0
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return consumed, ctx.Err()
		default:
		}
		if cfg.MaxMessagesPerPoll > 0 && consumed >= cfg.MaxMessagesPerPoll {
			break
		}
		ok, err := p.consume(ctx, path)
		if err != nil {
			return consumed, err
		}
		if ok {
			consumed++
		}
	}
	return consumed, nil
}

func (p *Poller) discover(ctx context.Context, root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !p.ep.Config.Recursive || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || skipName(name) {
			return nil
		}
		rel, err := gfile.Relative(root, path)
		if err != nil {
			return err
		}
		if !p.match(rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// skipName filters hidden files and this package's own lock artifacts.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, markerSuffix) ||
		strings.HasSuffix(name, probeSuffix)
}

func (p *Poller) match(rel string) bool {
	cfg := p.ep.Config
	if cfg.Exclude != nil && cfg.Exclude.MatchString(rel) {
		return false
	}
	if cfg.Include != nil && !cfg.Include.MatchString(rel) {
		return false
	}
	return true
}

// consume runs one file through lock, callback, and post-processing.
// Returns whether the file counted against maxMessagesPerPoll.
func (p *Poller) consume(ctx context.Context, path string) (bool, error) {
	cfg := p.ep.Config

	file, err := gfile.New(p.ep.RootPath, path)
	if err != nil {
		// Discovery handed us a path outside the root: integration bug.
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		// Raced with an external delete; not an error.
		return false, nil
	}

	p.emit(event.Event{Type: event.FileDiscovered, Path: file.RelativePath, Size: info.Size()})

	var idemKey [32]byte
	if p.tracker != nil {
		idemKey = Key(file.RelativePath, info.Size(), info.ModTime())
		if p.tracker.Seen(idemKey) {
			p.emit(event.Event{Type: event.FileSkipped, Path: file.RelativePath})
			return false, nil
		}
	}

	release, acquired, err := p.lock.Acquire(ctx, path)
	if err != nil {
		return false, err
	}
	if !acquired {
		p.emit(event.Event{Type: event.FileSkipped, Path: file.RelativePath})
		return false, nil
	}

	p.emit(event.Event{Type: event.FileStarted, Path: file.RelativePath, Size: info.Size()})
	procErr := p.process(ctx, file)
	release()

	if procErr != nil {
		p.emit(event.Event{Type: event.FileFailed, Path: file.RelativePath, Error: procErr})
		if cfg.MoveFailed != "" {
			if err := p.relocate(file, cfg.MoveFailed); err != nil {
				return true, err
			}
		}
		return true, nil
	}

	p.emit(event.Event{Type: event.FileCompleted, Path: file.RelativePath, Size: info.Size()})

	if p.tracker != nil {
		p.tracker.Commit(idemKey)
		p.emit(event.Event{Type: event.FileCommitted, Path: file.RelativePath})
	}

	switch {
	case cfg.Noop:
		// Leave the file in place; the tracker prevents reconsumption.
	case cfg.Delete:
		if err := os.Remove(path); err != nil {
			return true, fmt.Errorf("delete %s: %w", path, err)
		}
	case cfg.Move != "":
		if err := p.relocate(file, cfg.Move); err != nil {
			return true, err
		}
	}
	return true, nil
}

// relocate moves a consumed file under dir (relative to the root),
// preserving its relative path.
func (p *Poller) relocate(file *gfile.GenericFile, dir string) error {
	dst := filepath.Join(p.ep.RootPath, filepath.FromSlash(dir), filepath.FromSlash(file.RelativePath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("move %s: %w", file.RelativePath, err)
	}
	if err := platform.MoveFile(file.AbsolutePath, dst); err != nil {
		return fmt.Errorf("move %s: %w", file.RelativePath, err)
	}
	return nil
}

func (p *Poller) emit(e event.Event) {
	if p.events == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case p.events <- e:
	default:
	}
}

// pollInterval guards against a zero delay spinning the loop.
func pollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
