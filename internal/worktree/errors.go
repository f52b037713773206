package worktree

import "github.com/para-dev/para/internal/common/paraerr"

func errBaseRefNotFound(ref string) error {
	return paraerr.NotFound("base ref " + ref + " does not resolve")
}

func errTargetDirExists(path string) error {
	return paraerr.Conflict("worktree directory already exists and is non-empty: " + path)
}

func errBranchCheckedOutElsewhere(branch string) error {
	return paraerr.Conflict("branch " + branch + " is already checked out in another worktree")
}

func errUncommittedChanges(session string) error {
	return paraerr.Validation("session " + session + " has uncommitted changes")
}

func errEmptySession(session string) error {
	return paraerr.Validation("nothing to commit for session " + session)
}

func errTargetBranchCollision(branch string, suggestion string) error {
	return paraerr.Conflict("target branch " + branch + " already exists, try " + suggestion)
}

func errWorktreeNotFound(session string) error {
	return paraerr.NotFound("no worktree for session " + session)
}

func errDivergentBranchCheckedOut(branch string) error {
	return paraerr.Conflict("branch " + branch + " has commits beyond parent and is not forced")
}
