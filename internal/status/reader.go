package status

import (
	"github.com/para-dev/para/internal/signal"
)

// Read loads the current Status document for a session's state directory,
// applying signal.ReadStatus's tolerant-empty-read retry.
func Read(stateDir string) (*Document, error) {
	data, err := signal.ReadStatus(stateDir)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Write atomically overwrites the Status document, used by the agent-side
// helper injected into a launched session.
func Write(stateDir string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	return signal.WriteStatus(stateDir, data)
}
