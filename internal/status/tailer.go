package status

import (
	"context"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/signal"
)

// Tailer watches a session's state directory and delivers the Status
// document to a callback every time it changes, reusing the same
// fsnotify-plus-poll-fallback idiom as the Signal Protocol watcher since both
// are tailing the same state directory for different filenames.
type Tailer struct {
	stateDir string
	watcher  *signal.Watcher
	log      *logger.Logger
}

// NewTailer constructs a Tailer over stateDir.
func NewTailer(stateDir string, log *logger.Logger) *Tailer {
	return &Tailer{
		stateDir: stateDir,
		watcher:  signal.NewWatcher(stateDir, log),
		log:      log,
	}
}

// Run blocks until ctx is cancelled, invoking onUpdate with the freshly read
// Status document each time the state directory changes. A change that does
// not (yet) correspond to a readable, parseable document is ignored; the
// next filesystem event or poll tick will retry.
func (t *Tailer) Run(ctx context.Context, onUpdate func(*Document)) {
	t.watcher.Run(ctx, func() {
		doc, err := Read(t.stateDir)
		if err != nil {
			return
		}
		onUpdate(doc)
	})
}
