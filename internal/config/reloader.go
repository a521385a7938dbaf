package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called with the old and new config after a successful
// reload.
type ChangeCallback func(old, new *Config)

// Reloader watches the secret files for rotation and reloads config in
// memory.
type Reloader struct {
	config    atomic.Pointer[Config]
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	callbacks []ChangeCallback
}

// NewReloader creates a reloader seeded with the initial config.
func NewReloader(initial *Config) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	r := &Reloader{
		watcher: watcher,
		stopCh:  make(chan struct{}),
	}
	r.config.Store(initial)
	return r, nil
}

// GetConfig returns the current configuration atomically.
func (r *Reloader) GetConfig() *Config {
	return r.config.Load()
}

// OnChange registers a callback invoked after each successful reload.
// Register before Start; the callback list is not guarded.
func (r *Reloader) OnChange(cb ChangeCallback) {
	r.callbacks = append(r.callbacks, cb)
}

// Start begins watching the secret files' directories. Watching the
// directory rather than the file survives the rename-into-place dance
// secret managers do on rotation.
func (r *Reloader) Start(ctx context.Context) error {
	dirs := map[string]bool{}
	for _, file := range SecretFiles() {
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := r.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go r.watchLoop(ctx)
	slog.Info("config reloader started", "watched_dirs", len(dirs))
	return nil
}

// Stop stops watching for configuration changes.
func (r *Reloader) Stop() error {
	close(r.stopCh)
	return r.watcher.Close()
}

func (r *Reloader) watchLoop(ctx context.Context) {
	// Debounce rapid writes; rotation tends to touch a file more than
	// once.
	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()
	needsReload := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				slog.Debug("secret file changed", "file", event.Name, "op", event.Op)
				needsReload = true
				debounce.Reset(500 * time.Millisecond)
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err)
		case <-debounce.C:
			if needsReload {
				if err := r.reload(); err != nil {
					slog.Error("failed to reload configuration", "error", err)
				}
				needsReload = false
			}
		}
	}
}

func (r *Reloader) reload() error {
	newConfig, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	oldConfig := r.config.Swap(newConfig)
	r.logChanges(oldConfig, newConfig)
	for _, cb := range r.callbacks {
		cb(oldConfig, newConfig)
	}

	slog.Info("configuration reloaded")
	return nil
}

func (r *Reloader) logChanges(old, new *Config) {
	if old.AdminPasswordHash != new.AdminPasswordHash {
		slog.Info("config changed", "key", "ADMIN_PASSWORD_HASH_FILE")
	}
	if old.GitHubToken != new.GitHubToken {
		slog.Info("config changed", "key", "GITHUB_TOKEN_FILE")
	}
}
