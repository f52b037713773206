package signal

import (
	"context"
	"os"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/common/paraerr"
)

// Handler performs the host-side action named by a signal. Implementations
// live in the Container Supervisor; Processor only owns detection, parsing,
// and the consume/quarantine bookkeeping described in §4.4.
type Handler interface {
	HandleFinish(ctx context.Context, payload FinishPayload) error
	HandleCancel(ctx context.Context, payload CancelPayload) error
}

// Processor implements the host side of the Signal Protocol for a single
// session's state directory.
type Processor struct {
	stateDir string
	handler  Handler
	log      *logger.Logger
}

// NewProcessor constructs a Processor bound to stateDir.
func NewProcessor(stateDir string, handler Handler, log *logger.Logger) *Processor {
	return &Processor{stateDir: stateDir, handler: handler, log: log}
}

// ProcessOnce checks for finish_signal and cancel_signal, applying
// cancel-beats-finish ordering (§4.4 rule 4), and processes at most one
// signal per call. It is safe to call repeatedly; a signal already consumed
// is simply absent on the next call, and a signal left behind after a
// handler error is reprocessed on the next call (§4.4 rule 3).
func (p *Processor) ProcessOnce(ctx context.Context) error {
	cancelPath := joinState(p.stateDir, CancelFilename)
	finishPath := joinState(p.stateDir, FinishFilename)

	if exists(cancelPath) {
		if exists(finishPath) {
			p.log.Warn("both cancel_signal and finish_signal present, cancel wins")
		}
		return p.processCancel(ctx, cancelPath)
	}
	if exists(finishPath) {
		return p.processFinish(ctx, finishPath)
	}
	return nil
}

func (p *Processor) processFinish(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // raced with another consumer; nothing to do
		}
		return err
	}

	payload, err := ParseFinishPayload(data)
	if err != nil {
		wrapped := errMalformedPayload(FinishFilename, err)
		p.log.WithError(wrapped).Error("quarantining malformed finish_signal")
		return quarantine(path, wrapped)
	}

	if err := p.handler.HandleFinish(ctx, payload); err != nil {
		if paraerr.IsProtocol(err) {
			p.log.WithError(err).Error("quarantining finish_signal rejected by handler")
			return quarantine(path, err)
		}
		p.log.WithError(err).Warn("finish_signal handling failed, will retry")
		return err
	}
	return os.Remove(path)
}

func (p *Processor) processCancel(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	payload, err := ParseCancelPayload(data)
	if err != nil {
		wrapped := errMalformedPayload(CancelFilename, err)
		p.log.WithError(wrapped).Error("quarantining malformed cancel_signal")
		return quarantine(path, wrapped)
	}

	if err := p.handler.HandleCancel(ctx, payload); err != nil {
		if paraerr.IsProtocol(err) {
			p.log.WithError(err).Error("quarantining cancel_signal rejected by handler")
			return quarantine(path, err)
		}
		p.log.WithError(err).Warn("cancel_signal handling failed, will retry")
		return err
	}
	return os.Remove(path)
}

// Watch runs a Watcher over stateDir, calling ProcessOnce on every detected
// change until ctx is cancelled.
func (p *Processor) Watch(ctx context.Context) {
	w := NewWatcher(p.stateDir, p.log)
	w.Run(ctx, func() {
		if err := p.ProcessOnce(ctx); err != nil {
			p.log.WithError(err).Debug("signal processing pass failed")
		}
	})
}
