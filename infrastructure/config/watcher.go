package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow coalesces bursts of filesystem events (editors that
// write-then-rename, git checkouts touching many files at once) into a
// single callback invocation.
const debounceWindow = 300 * time.Millisecond

// Watcher observes the config file (for hot-reload) and the workspace
// root (to trigger reanalysis on source change), debouncing both.
type Watcher struct {
	logger *zap.Logger
	fsw    *fsnotify.Watcher

	configPath string
	onReload   func(*Config)

	workspaceRoot  string
	ignorePatterns []string
	onWorkspaceDirty func()

	mu        sync.Mutex
	timers    map[string]*time.Timer
}

// NewWatcher builds a Watcher for cfg. onReload is invoked with the
// freshly reloaded Config after cfg.ConfigFilePath changes; it may be
// nil if there is no config file to watch. onWorkspaceDirty is invoked
// (with no arguments — callers re-run ForceReanalysis wholesale) after
// a debounced burst of changes under cfg.WorkspaceRoot; it may be nil.
func NewWatcher(cfg *Config, logger *zap.Logger, onReload func(*Config), onWorkspaceDirty func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		logger:           logger,
		fsw:              fsw,
		configPath:       cfg.ConfigFilePath,
		onReload:         onReload,
		workspaceRoot:    cfg.WorkspaceRoot,
		ignorePatterns:   cfg.IgnorePatterns,
		onWorkspaceDirty: onWorkspaceDirty,
		timers:           make(map[string]*time.Timer),
	}

	if w.configPath != "" {
		if err := fsw.Add(filepath.Dir(w.configPath)); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	if w.workspaceRoot != "" {
		if err := addRecursive(fsw, w.workspaceRoot, w.ignorePatterns); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Run processes filesystem events until stopCh is closed.
func (w *Watcher) Run(stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			w.fsw.Close()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.configPath != "" && filepath.Clean(event.Name) == filepath.Clean(w.configPath) {
		w.debounce("config", func() {
			cfg, err := Load()
			if err != nil {
				w.logger.Error("failed to reload config", zap.Error(err))
				return
			}
			w.logger.Info("config reloaded", zap.String("path", w.configPath))
			if w.onReload != nil {
				w.onReload(cfg)
			}
		})
		return
	}

	if w.workspaceRoot == "" {
		return
	}
	rel, err := filepath.Rel(w.workspaceRoot, event.Name)
	if err != nil || isIgnored(rel, w.ignorePatterns) {
		return
	}
	w.debounce("workspace", func() {
		w.logger.Info("workspace change detected, triggering reanalysis", zap.String("path", event.Name))
		if w.onWorkspaceDirty != nil {
			w.onWorkspaceDirty()
		}
	})
}

func (w *Watcher) debounce(key string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[key]; ok {
		t.Stop()
	}
	w.timers[key] = time.AfterFunc(debounceWindow, fn)
}

// addRecursive registers every non-ignored directory under root with
// fsw so fsnotify (which is not recursive on Linux) observes the whole
// tree.
func addRecursive(fsw *fsnotify.Watcher, root string, ignorePatterns []string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && isIgnored(rel, ignorePatterns) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func isIgnored(relPath string, patterns []string) bool {
	if relPath == "." {
		return false
	}
	slashed := filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
