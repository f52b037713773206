package worktree

import (
	"crypto/rand"
	"regexp"
	"strings"
	"unicode"
)

const branchSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// BranchName returns the default branch name for a session: <prefix>/<session-name>.
func BranchName(prefix, sessionName string) string {
	prefix = NormalizeBranchPrefix(prefix)
	return prefix + "/" + sessionName
}

// NormalizeBranchPrefix trims and falls back to "para" when empty.
func NormalizeBranchPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "para"
	}
	return trimmed
}

var sanitizeRunsOfHyphens = regexp.MustCompile(`-+`)

// SanitizeSessionName converts free text into a safe session-name component:
// lowercase, alphanumerics and hyphens only, no runs of hyphens, no leading
// or trailing hyphen, truncated to maxLen.
func SanitizeSessionName(title string, maxLen int) string {
	if title == "" {
		return ""
	}
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('-')
		}
	}
	result := sanitizeRunsOfHyphens.ReplaceAllString(sb.String(), "-")
	result = strings.Trim(result, "-")
	if len(result) > maxLen {
		result = strings.TrimRight(result[:maxLen], "-")
	}
	return result
}

// RandomSuffix returns a short random lowercase-alphanumeric suffix, used to
// disambiguate an auto-generated session name or a suggested alternative
// branch name after a collision.
func RandomSuffix(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("x", n)
	}
	for i := range buf {
		buf[i] = branchSuffixAlphabet[int(buf[i])%len(branchSuffixAlphabet)]
	}
	return string(buf)
}

var adjectives = []string{
	"brisk", "calm", "deft", "eager", "fleet", "gentle", "hardy", "keen",
	"lucid", "merry", "nimble", "placid", "quiet", "rapid", "sturdy", "vivid",
}

var nouns = []string{
	"falcon", "harbor", "lantern", "meadow", "otter", "pebble", "quartz",
	"river", "summit", "timber", "violet", "willow",
}

// GenerateSessionName produces a human-friendly adjective-noun-digits name
// for sessions started without an explicit name. Collision checking against
// active records and existing branches is the caller's responsibility.
func GenerateSessionName() string {
	adj := adjectives[randIndex(len(adjectives))]
	noun := nouns[randIndex(len(nouns))]
	return adj + "-" + noun + "-" + RandomSuffix(3)
}

func randIndex(n int) int {
	if n <= 0 {
		return 0
	}
	buf := make([]byte, 1)
	if _, err := rand.Read(buf); err != nil {
		return 0
	}
	return int(buf[0]) % n
}

