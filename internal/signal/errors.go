package signal

import "github.com/para-dev/para/internal/common/paraerr"

var errEmptyCommitMessage = paraerr.Protocol("finish_signal missing commit_message")

func errMalformedPayload(filename string, cause error) error {
	return paraerr.Wrap(paraerr.KindProtocol, "malformed "+filename+" payload", cause)
}
