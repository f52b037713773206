package signal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/moby/sys/atomicwriter"
)

func rejectedPath(signalPath string) string { return signalPath + ".rejected" }
func errorPath(signalPath string) string    { return signalPath + ".error" }

// quarantine moves a malformed signal file to its .rejected companion and
// records cause in a sibling .error file, per §4.4 rule 2 and the error model.
func quarantine(signalPath string, cause error) error {
	if err := os.Rename(signalPath, rejectedPath(signalPath)); err != nil {
		return err
	}
	return atomicwriter.WriteFile(errorPath(signalPath), []byte(cause.Error()+"\n"), 0o644)
}

// WriteStatus atomically writes the Status document, used by whichever side
// of the protocol owns the current write (the agent during a session, or
// test harnesses exercising the host's read path).
func WriteStatus(stateDir string, data []byte) error {
	return atomicwriter.WriteFile(filepath.Join(stateDir, StatusFilename), data, 0o644)
}

// ReadStatus reads the Status document, tolerating the single empty read that
// can occur if the agent is mid-write when the host tails the file (§4.8 note
// that the Status Channel "must tolerate a momentary empty read"): a read
// that returns zero bytes is retried once after a short pause before being
// treated as the real content.
func ReadStatus(stateDir string) ([]byte, error) {
	path := filepath.Join(stateDir, StatusFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		time.Sleep(20 * time.Millisecond)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
