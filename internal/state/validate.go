package state

import (
	"regexp"
	"strings"

	"github.com/para-dev/para/internal/common/paraerr"
)

const MaxNameLength = 64

var reservedNames = map[string]bool{
	"current": true,
	"parent":  true,
	"archive": true,
	"lock":    true,
}

var validNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName enforces the session-name invariant of spec §3 and §7:
// non-empty, ≤64 chars, alphanumerics plus - and _, no path separators, no
// leading dot, no control characters, not a reserved name.
func ValidateName(name string) error {
	if name == "" {
		return paraerr.Validation("session name must not be empty")
	}
	if len(name) > MaxNameLength {
		return paraerr.Validation("session name must be at most 64 characters")
	}
	if strings.HasPrefix(name, ".") {
		return paraerr.Validation("session name must not start with a dot")
	}
	if strings.ContainsAny(name, "/\\") {
		return paraerr.Validation("session name must not contain path separators")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return paraerr.Validation("session name must not contain control characters")
		}
	}
	if reservedNames[strings.ToLower(name)] {
		return paraerr.Validation("session name \"" + name + "\" is reserved")
	}
	if !validNamePattern.MatchString(name) {
		return paraerr.Validation("session name must contain only alphanumerics, '-' and '_'")
	}
	return nil
}
