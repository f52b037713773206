package signal

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/para-dev/para/internal/common/logger"
)

// pollFallback bounds staleness when fsnotify misses an event (overlay
// filesystems inside a container are the common case), per §9's redesign
// note requiring a poll fallback of 500ms or better.
const pollFallback = 500 * time.Millisecond

// Watcher notifies a Processor whenever the state directory changes. It
// layers an fsnotify watch with a fixed-interval poll so a missed inotify
// event (common on container bind mounts) never stalls signal detection for
// longer than pollFallback.
type Watcher struct {
	dir string
	log *logger.Logger
}

// NewWatcher constructs a Watcher over the given state directory.
func NewWatcher(dir string, log *logger.Logger) *Watcher {
	return &Watcher{dir: dir, log: log}
}

// Run blocks, invoking onChange every time the directory contents may have
// changed, until ctx is cancelled. onChange is also invoked once immediately
// so callers observe signals already present at startup (§4.4 rule 3,
// idempotent retry after a supervisor crash).
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.WithError(err).Warn("fsnotify unavailable, falling back to polling only")
		w.pollOnly(ctx, onChange)
		return
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		w.log.WithError(err).Warn("failed to watch state directory, falling back to polling only")
		w.pollOnly(ctx, onChange)
		return
	}

	ticker := time.NewTicker(pollFallback)
	defer ticker.Stop()

	onChange()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod != 0 {
				continue
			}
			onChange()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Debug("signal directory watcher error")
		case <-ticker.C:
			onChange()
		}
	}
}

func (w *Watcher) pollOnly(ctx context.Context, onChange func()) {
	ticker := time.NewTicker(pollFallback)
	defer ticker.Stop()
	onChange()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			onChange()
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func joinState(dir, name string) string {
	return filepath.Join(dir, name)
}
