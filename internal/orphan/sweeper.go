// Package orphan watches the internal classes root for run directories a
// compile left behind and reports the ones old enough to be safe to
// reclaim. It never deletes anything itself — removal is an external GC
// concern (spec.md §1) — it only surfaces candidates to the logger.
//
// Adapted from the teacher's internal/watcher.FileWatcher
// (internal/watcher/watcher.go): the same fsnotify-plus-debounce shape,
// retargeted from "rebuild on .templ change" to "re-scan on directory
// create/remove", with the rebuild handler replaced by a TTL check against
// directory mtimes.
package orphan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/compileorch/internal/logging"
)

// Candidate is one run directory past its TTL.
type Candidate struct {
	Path    string
	Age     time.Duration
	ModTime time.Time
}

// Sweeper watches root (normally `<out>/bloop-internal-classes`) for
// directory churn and periodically reports subdirectories whose mtime is
// older than ttl.
type Sweeper struct {
	root   string
	ttl    time.Duration
	logger logging.Logger

	watcher   *fsnotify.Watcher
	debouncer *debouncer

	mu      sync.Mutex
	stopped bool
}

// New returns a Sweeper over root. ttl <= 0 disables the age filter: every
// subdirectory of root is reported by Sweep.
func New(root string, ttl time.Duration, logger logging.Logger) (*Sweeper, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("orphan: create watcher: %w", err)
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, fmt.Errorf("orphan: watch root %s: %w", root, err)
	}

	return &Sweeper{
		root:      root,
		ttl:       ttl,
		logger:    logger,
		watcher:   w,
		debouncer: newDebouncer(2 * time.Second),
	}, nil
}

// Start runs the watch loop and debounced sweep until ctx is cancelled.
// Every fsnotify event on root (a run directory appearing or vanishing)
// schedules a debounced sweep; a periodic tick also sweeps even with no
// events, so orphans left by a server that crashed mid-run still age out.
func (s *Sweeper) Start(ctx context.Context) {
	go s.debouncer.run(ctx, s.sweepAndLog)

	interval := s.ttl / 4
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.debouncer.trigger()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn(ctx, err, "orphan watcher error")
		case <-ticker.C:
			s.debouncer.trigger()
		}
	}
}

// Stop closes the underlying fsnotify watcher. Idempotent: calls after the
// first do nothing and return nil.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	return s.watcher.Close()
}

func (s *Sweeper) sweepAndLog() {
	candidates, err := s.Sweep()
	if err != nil {
		s.logger.Warn(context.Background(), err, "orphan sweep failed")
		return
	}
	for _, c := range candidates {
		s.logger.Info(context.Background(), "orphaned compile directory past TTL",
			"path", c.Path, "age", c.Age.String())
	}
}

// Sweep lists root's immediate subdirectories and returns the ones whose
// mtime exceeds ttl. It never touches the filesystem beyond reading
// directory entries and their metadata.
func (s *Sweeper) Sweep() ([]Candidate, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("orphan: read root %s: %w", s.root, err)
	}

	now := time.Now()
	var out []Candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if s.ttl > 0 && age < s.ttl {
			continue
		}
		out = append(out, Candidate{
			Path:    filepath.Join(s.root, entry.Name()),
			Age:     age,
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// debouncer coalesces a burst of triggers into a single delayed call to fn,
// the same "reset the timer on every new event" idiom as the teacher's
// Debouncer, simplified to a boolean flush rather than an event batch since
// the sweep itself re-reads the directory rather than consuming the event
// payload.
type debouncer struct {
	delay time.Duration
	ch    chan struct{}
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, ch: make(chan struct{}, 1)}
}

func (d *debouncer) trigger() {
	select {
	case d.ch <- struct{}{}:
	default:
	}
}

func (d *debouncer) run(ctx context.Context, fn func()) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-d.ch:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(d.delay)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			fn()
		}
	}
}
