package cli

import (
	"errors"

	"github.com/para-dev/para/internal/common/paraerr"
)

// ExitCodeFor maps a command's returned error to the exit codes enumerated
// in spec §6. A nil error is success; errDeclined is the one code the
// paraerr taxonomy has no Kind for, since declining a prompt is a CLI-layer
// concern, not a core-package error classification.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errDeclined) {
		return 5
	}
	var pe *paraerr.Error
	if errors.As(err, &pe) {
		return pe.Kind.ExitCode()
	}
	return 1
}
