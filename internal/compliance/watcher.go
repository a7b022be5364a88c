package compliance

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/auma/compliance-gate/internal/logger"
)

const reloadDebounce = 250 * time.Millisecond

// PolicyWatcher reloads the policy file into a Classifier whenever it changes
// on disk. A file that fails to parse leaves the previous policy in force.
type PolicyWatcher struct {
	path       string
	classifier *Classifier
	debounce   time.Duration
	onReload   func(*Policy)
}

func NewPolicyWatcher(path string, c *Classifier) *PolicyWatcher {
	return &PolicyWatcher{path: path, classifier: c, debounce: reloadDebounce}
}

// OnReload registers a callback run after each successful reload.
func (w *PolicyWatcher) OnReload(fn func(*Policy)) { w.onReload = fn }

// Run watches until ctx is cancelled. The parent directory is watched so
// editors that replace the file by rename are picked up.
func (w *PolicyWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	target := filepath.Clean(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log().WithError(err).Warn("Policy watcher error")
		case <-timer.C:
			w.reload()
		}
	}
}

// reload reads the file directly: unlike startup, a missing file keeps the
// policy in force rather than reverting to the built-in lists.
func (w *PolicyWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Log().WithField("path", w.path).Warn("Policy file is gone; keeping current policy")
			return
		}
		logger.Log().WithError(err).WithField("path", w.path).Error("Policy reload failed; keeping current policy")
		return
	}
	p, err := ParsePolicy(data)
	if err != nil {
		logger.Log().WithError(err).WithField("path", w.path).Error("Policy reload failed; keeping current policy")
		return
	}
	w.classifier.SetPolicy(p)
	logger.Log().WithField("version", p.Version).Info("Compliance policy reloaded")
	if w.onReload != nil {
		w.onReload(p)
	}
}
