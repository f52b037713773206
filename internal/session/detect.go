package session

import (
	"path/filepath"
	"strings"
)

// DetectFromCWD is the pure function required by spec §9's redesign note:
// walk upward from cwd until it equals a known worktree-root entry, and
// return the session name that owns it. No I/O: worktreesRoot and
// activeNames are supplied by the caller, which is free to source them
// however it likes (including from the State Store and Worktree Manager).
func DetectFromCWD(cwd, worktreesRoot string, activeNames []string) (name string, ok bool) {
	cwd = filepath.Clean(cwd)
	root := filepath.Clean(worktreesRoot)

	for _, candidate := range activeNames {
		entry := filepath.Join(root, candidate)
		if cwd == entry || strings.HasPrefix(cwd, entry+string(filepath.Separator)) {
			return candidate, true
		}
	}
	return "", false
}
