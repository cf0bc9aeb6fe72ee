package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"galley/internal/config"
	"galley/internal/logging"
)

const (
	defaultDebounce = 750 * time.Millisecond
	flushInterval   = 100 * time.Millisecond
	batchBuffer     = 16
)

// Watcher monitors the project tree for source changes and emits settled
// batches of changed files. Rapid saves within the debounce window collapse
// into a single batch so a render is triggered once, not per keystroke.
type Watcher struct {
	root       string
	extensions map[string]struct{}
	ignored    map[string]struct{}
	debounce   time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	notifier *fsnotify.Watcher
	pending  map[string]time.Time
	changes  chan []string
	quit     chan struct{}
	done     chan struct{}
	running  bool
}

// New builds a watcher rooted at the project directory described by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Watcher, error) {
	if err := cfg.RequireProject(); err != nil {
		return nil, err
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extensions := make(map[string]struct{}, len(cfg.Workflow.WatchExtensions))
	for _, ext := range cfg.Workflow.WatchExtensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	ignored := map[string]struct{}{
		".git":              {},
		".quarto":           {},
		"_freeze":           {},
		"renv":              {},
		config.StateDirName: {},
	}
	if out := strings.TrimSpace(cfg.Render.OutputDir); out != "" {
		ignored[filepath.Base(out)] = struct{}{}
	}

	debounce := time.Duration(cfg.Workflow.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		root:       cfg.ProjectRoot,
		extensions: extensions,
		ignored:    ignored,
		debounce:   debounce,
		logger:     logging.WithComponent(logger, "watch"),
		notifier:   notifier,
		pending:    make(map[string]time.Time),
		changes:    make(chan []string, batchBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Changes delivers settled batches of changed file paths.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start begins watching the project tree. Non-blocking; events flow on the
// Changes channel until Stop is called.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		return err
	}

	go w.run()

	w.logger.Info("watching for changes",
		logging.String("root", w.root),
		logging.Duration("debounce", w.debounce),
	)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.quit)
	<-w.done

	if err := w.notifier.Close(); err != nil {
		w.logger.Debug("close notifier", logging.Error(err))
	}
	w.logger.Info("watcher stopped")
}

func (w *Watcher) run() {
	defer close(w.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.quit:
			return
		case event, ok := <-w.notifier.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.notifier.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		case <-ticker.C:
			w.flushSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, skip := w.ignored[filepath.Base(event.Name)]; !skip {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Debug("watch new directory", logging.Error(err))
				}
			}
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if _, ok := w.extensions[ext]; !ok {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)

	select {
	case w.changes <- settled:
	default:
		w.logger.Debug("change batch dropped; consumer busy", logging.Int("files", len(settled)))
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root {
			if _, skip := w.ignored[entry.Name()]; skip {
				return fs.SkipDir
			}
		}
		if err := w.notifier.Add(path); err != nil {
			w.logger.Debug("watch directory failed",
				logging.String("dir", path),
				logging.Error(err),
			)
		}
		return nil
	})
}
