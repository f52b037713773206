// Package wizard implements the interactive first-run configuration prompt
// for `para config --interactive`, built on the same charmbracelet/huh forms
// used for confirmation prompts elsewhere in the CLI.
package wizard

import (
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/para-dev/para/internal/common/config"
)

// Run walks the user through the settings a first-time install most needs:
// the IDE command and branch prefix, the default sandbox profile and egress
// allowlist, and whether container mode is enabled with which image, then
// returns the populated config ready for config.Save. Fields the user leaves
// untouched keep cfg's existing values, so Run can be re-invoked against an
// already-loaded config to edit just a few settings.
func Run(cfg *config.Config) (*config.Config, error) {
	mode := cfg.Sandbox.DefaultProfile
	if mode == "" {
		mode = "standard"
	}
	allowlist := strings.Join(cfg.Sandbox.Allowlist, ",")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IDE command").
				Description("The command Para launches for host and sandboxed-host sessions").
				Value(&cfg.IDE.Command),
			huh.NewInput().
				Title("Default branch prefix").
				Description("Prefix applied to generated session branch names").
				Value(&cfg.SourceTree.BranchPrefix),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default sandbox profile").
				Options(
					huh.NewOption("standard", "standard"),
					huh.NewOption("standard-proxied", "standard-proxied"),
				).
				Value(&mode),
			huh.NewInput().
				Title("Egress allowlist").
				Description("Comma-separated domains permitted through the allowlist proxy").
				Value(&allowlist),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable container-mode sessions?").
				Value(&cfg.Container.Enabled),
			huh.NewInput().
				Title("Default container image").
				Value(&cfg.Container.DefaultImage),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	cfg.Sandbox.DefaultProfile = mode
	cfg.Sandbox.Allowlist = splitAndTrim(allowlist)
	return cfg, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
