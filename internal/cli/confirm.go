package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// errDeclined is returned by confirm when the user answers no, so a
// caller's RunE can distinguish "declined" (exit code 5, per §6) from every
// other failure mode.
var errDeclined = errors.New("user declined confirmation")

// confirm prompts title/description and returns errDeclined if the user
// answers no. Honors ACCESSIBLE=1 the same way the rest of the pack's huh
// prompts do, falling back to reading stdin instead of the TUI form when set.
func confirm(title, description string) error {
	if os.Getenv("ACCESSIBLE") != "" {
		return confirmAccessible(title)
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errDeclined
		}
		return err
	}
	if !confirmed {
		return errDeclined
	}
	return nil
}

// confirmAccessible reads a plain y/N line from stdin, for screen-reader
// users and for tests that set ACCESSIBLE=1 to bypass the interactive form.
func confirmAccessible(title string) error {
	os.Stdout.WriteString(title + " [y/N] ")
	var answer string
	_, _ = fmt.Fscanln(os.Stdin, &answer)
	switch answer {
	case "y", "Y", "yes":
		return nil
	default:
		return errDeclined
	}
}
