// Package sandbox implements the Sandbox Policy Engine of spec §4.6: a
// declarative OS-level policy, parameterized by filesystem substitutions,
// restricting the ambient authority of an agent run directly on the host.
package sandbox

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/para-dev/para/internal/common/paraerr"
)

//go:embed profiles/*.sb.tmpl
var profileFS embed.FS

// Profile selects which policy to render. standard leaves the network open;
// standard-proxied restricts it to the localhost allowlist proxy (§4.7).
type Profile string

const (
	ProfileStandard        Profile = "standard"
	ProfileStandardProxied Profile = "standard-proxied"
)

// Substitutions is the four (five, including CacheDir) bindings the policy
// template requires, per §4.6: TARGET_DIR, MAIN_REPO_DIR, TMP_DIR, HOME_DIR,
// CACHE_DIR.
type Substitutions struct {
	TargetDir   string
	MainRepoDir string
	TmpDir      string
	HomeDir     string
	CacheDir    string
}

// Render produces the policy text for profile with subs bound in. The
// returned text is the literal sandbox-exec profile language on macOS; on
// other platforms it is still rendered (policy files are versioned data
// independent of the platform that applies them) but Engine.Apply is a no-op.
func Render(profile Profile, subs Substitutions) (string, error) {
	filename := "profiles/" + string(profile) + ".sb.tmpl"
	data, err := profileFS.ReadFile(filename)
	if err != nil {
		return "", paraerr.Validation(fmt.Sprintf("unknown sandbox profile %q", profile))
	}
	tmpl, err := template.New(string(profile)).Parse(string(data))
	if err != nil {
		return "", fmt.Errorf("parse sandbox profile template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, subs); err != nil {
		return "", fmt.Errorf("render sandbox profile: %w", err)
	}
	return buf.String(), nil
}

// ValidProfile reports whether name is one of the two shipped profiles.
func ValidProfile(name string) bool {
	return Profile(name) == ProfileStandard || Profile(name) == ProfileStandardProxied
}
