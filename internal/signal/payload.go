package signal

import "encoding/json"

// FinishFilename and CancelFilename are the well-known signal filenames of
// spec §4.4; StatusFilename names the Status document.
const (
	FinishFilename = "finish_signal"
	CancelFilename = "cancel_signal"
	StatusFilename = "status"
)

// FinishPayload is the body of a finish_signal file.
type FinishPayload struct {
	CommitMessage string `json:"commit_message"`
	Branch        string `json:"branch,omitempty"`
}

// CancelPayload is the body of a cancel_signal file.
type CancelPayload struct {
	Force bool `json:"force"`
}

// ParseFinishPayload decodes raw finish_signal bytes.
func ParseFinishPayload(data []byte) (FinishPayload, error) {
	var p FinishPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return FinishPayload{}, err
	}
	if p.CommitMessage == "" {
		return FinishPayload{}, errEmptyCommitMessage
	}
	return p, nil
}

// ParseCancelPayload decodes raw cancel_signal bytes. An empty body is valid
// and means force=false.
func ParseCancelPayload(data []byte) (CancelPayload, error) {
	var p CancelPayload
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return CancelPayload{}, err
	}
	return p, nil
}
