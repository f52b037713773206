package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/para-dev/para/internal/common/paraerr"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, 0},
		{"declined confirmation", errDeclined, 5},
		{"wrapped decline", fmtErrorf(errDeclined), 5},
		{"validation error", paraerr.Validation("bad input"), 2},
		{"not found error", paraerr.NotFound("no such session"), 3},
		{"conflict error", paraerr.Conflict("already active"), 4},
		{"generic error", errors.New("boom"), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExitCodeFor(tc.err))
		})
	}
}

func fmtErrorf(err error) error {
	return errors.Join(errors.New("context"), err)
}
