// Package dropwatch imports audio files dropped into a local folder.
package dropwatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tonearm/internal/library"
	"github.com/starford/tonearm/internal/models"
)

// ImportFunc imports a batch and returns the newly added tracks.
type ImportFunc func(ctx context.Context, files []library.File) ([]models.PlayableTrack, error)

// DefaultDebounce is how long a path must stay quiet before it is imported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches one directory (non-recursively).
type Watcher struct {
	dir      string
	importFn ImportFunc
	logger   *slog.Logger
	debounce time.Duration
	onAdded  func([]models.PlayableTrack)
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// OnAdded is called with the tracks each batch added.
func OnAdded(fn func([]models.PlayableTrack)) Option {
	return func(w *Watcher) { w.onAdded = fn }
}

// New returns a watcher for dir.
func New(dir string, fn ImportFunc, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		importFn: fn,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run imports the audio files already in the folder, then every file created
// or written there, until ctx is cancelled. Writes are debounced, and a file
// is imported only once its size has not changed across a whole quiet
// window, so a copy that pauses is not imported half-written.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("dropwatch: create %s: %w", w.dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dropwatch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("dropwatch: watch %s: %w", w.dir, err)
	}

	w.logger.Info("dropwatch: started", slog.String("dir", w.dir))

	// Last observed size per path; unseen means not stat'ed since the last
	// event.
	pending := make(map[string]int64)
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && candidate(e.Name()) {
				pending[filepath.Join(w.dir, e.Name())] = unseen
			}
		}
	}

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}
	if len(pending) > 0 {
		schedule()
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("dropwatch: stopped")
			return nil

		case <-timerCh:
			ready, waiting := w.settle(pending)
			w.flush(ctx, ready)
			pending = waiting
			if len(pending) > 0 {
				schedule()
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !candidate(filepath.Base(ev.Name)) {
				continue
			}
			pending[ev.Name] = unseen
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("dropwatch: error", slog.String("error", watchErr.Error()))
		}
	}
}

const unseen int64 = -1

// settle stats every pending path. Files whose size matches the previous
// observation are ready, in name order; the rest wait for another window
// with their new size. Vanished and settled empty files are dropped.
func (w *Watcher) settle(pending map[string]int64) ([]library.File, map[string]int64) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ready []library.File
	waiting := make(map[string]int64)
	for _, p := range paths {
		f, err := library.PathFile(p)
		if err != nil {
			w.logger.Debug("dropwatch: stat failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if f.Size() != pending[p] {
			waiting[p] = f.Size()
			continue
		}
		if f.Size() > 0 {
			ready = append(ready, f)
		}
	}
	return ready, waiting
}

func (w *Watcher) flush(ctx context.Context, files []library.File) {
	if len(files) == 0 {
		return
	}

	added, err := w.importFn(ctx, files)
	if err != nil {
		w.logger.Warn("dropwatch: import failed", slog.Int("files", len(files)), slog.String("error", err.Error()))
		return
	}
	w.logger.Info("dropwatch: imported", slog.Int("files", len(files)), slog.Int("added", len(added)))
	if len(added) > 0 && w.onAdded != nil {
		w.onAdded(added)
	}
}

func candidate(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return library.IsAudio(library.TypeByName(name))
}
