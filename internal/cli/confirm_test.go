package cli

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func withStdin(t *testing.T, input string, fn func()) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = io.WriteString(w, input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	orig := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = orig }()

	fn()
}

func TestConfirmAccessible_Yes(t *testing.T) {
	withStdin(t, "y\n", func() {
		err := confirmAccessible("proceed?")
		require.NoError(t, err)
	})
}

func TestConfirmAccessible_No(t *testing.T) {
	withStdin(t, "n\n", func() {
		err := confirmAccessible("proceed?")
		require.True(t, errors.Is(err, errDeclined))
	})
}

func TestConfirm_AccessibleEnvBypassesForm(t *testing.T) {
	require.NoError(t, os.Setenv("ACCESSIBLE", "1"))
	defer func() { _ = os.Unsetenv("ACCESSIBLE") }()

	withStdin(t, "yes\n", func() {
		err := confirm("proceed?", "description")
		require.NoError(t, err)
	})
}
