package worktree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/para-dev/para/internal/common/paraerr"
)

// SourceTree is the capability trait named by the redesign notes: it exposes
// only the source-tree operations the Worktree Manager actually uses.
// The production implementation shells to the external git binary with a
// typed argument builder (never string interpolation); tests substitute an
// in-memory fake.
type SourceTree interface {
	ResolveRef(ctx context.Context, repoPath, ref string) (string, error)
	CreateWorktree(ctx context.Context, repoPath, worktreePath, branch, baseRef string, createBranch bool) error
	RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error
	CommitAll(ctx context.Context, worktreePath, message string, sign bool) (sha string, hadChanges bool, err error)
	RenameBranch(ctx context.Context, repoPath, from, to string) error
	DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error
	ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeListEntry, error)
	BranchExists(ctx context.Context, repoPath, branch string) (bool, error)
	CurrentBranch(ctx context.Context, repoPath string) (string, error)
	HasDivergentHistory(ctx context.Context, worktreePath, branch, parent string) (bool, error)
	IsDirty(ctx context.Context, worktreePath string) (bool, error)
}

// WorktreeListEntry is one row of `git worktree list --porcelain`.
type WorktreeListEntry struct {
	Path   string
	Branch string
	HEAD   string
}

const defaultCommandTimeout = 30 * time.Second

// gitSourceTree shells out to the git binary for every mutating operation,
// and uses go-git directly for read-only introspection where no exit-code
// contract needs preserving.
type gitSourceTree struct{}

// NewGitSourceTree returns the production SourceTree implementation.
func NewGitSourceTree() SourceTree { return &gitSourceTree{} }

// runGit is the typed command builder: every caller passes an explicit,
// already-split argument slice, never a pre-joined string.
func runGit(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = nonInteractiveGitEnv()
	cmd.WaitDelay = 5 * time.Second

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = strings.TrimSpace(outBuf.String())
	stderr = strings.TrimSpace(errBuf.String())

	if ctx.Err() == context.DeadlineExceeded {
		return stdout, stderr, paraerr.Transient(fmt.Sprintf("git %s timed out", strings.Join(args, " ")))
	}
	if runErr != nil {
		return stdout, stderr, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), runErr, stderr)
	}
	return stdout, stderr, nil
}

// nonInteractiveGitEnv prevents git from ever blocking on a credential
// prompt, which would otherwise hang a supervisor indefinitely.
func nonInteractiveGitEnv() []string {
	env := append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GCM_INTERACTIVE=Never",
		"GIT_ASKPASS=echo",
		"SSH_ASKPASS=/bin/false",
		"GIT_SSH_COMMAND=ssh -oBatchMode=yes",
	)
	return env
}

func (g *gitSourceTree) ResolveRef(ctx context.Context, repoPath, ref string) (string, error) {
	sha, _, err := runGit(ctx, repoPath, "rev-parse", "--verify", ref)
	if err != nil {
		return "", errBaseRefNotFound(ref)
	}
	return sha, nil
}

func (g *gitSourceTree) BranchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	_, _, err := runGit(ctx, repoPath, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (g *gitSourceTree) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repo for current-branch lookup: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", errors.New("HEAD is detached")
	}
	return head.Name().Short(), nil
}

func (g *gitSourceTree) CreateWorktree(ctx context.Context, repoPath, worktreePath, branch, baseRef string, createBranch bool) error {
	args := []string{"worktree", "add"}
	if createBranch {
		args = append(args, "-b", branch, worktreePath, baseRef)
	} else {
		args = append(args, worktreePath, branch)
	}
	_, _, err := runGit(ctx, repoPath, args...)
	return err
}

func (g *gitSourceTree) RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)
	_, _, err := runGit(ctx, repoPath, args...)
	if err != nil {
		// The directory may already be gone; prune stale metadata either way.
		_, _, _ = runGit(ctx, repoPath, "worktree", "prune")
	}
	return err
}

func (g *gitSourceTree) CommitAll(ctx context.Context, worktreePath, message string, sign bool) (string, bool, error) {
	if _, _, err := runGit(ctx, worktreePath, "add", "-A"); err != nil {
		return "", false, err
	}
	status, _, err := runGit(ctx, worktreePath, "status", "--porcelain")
	if err != nil {
		return "", false, err
	}
	if status == "" {
		sha, _, _ := runGit(ctx, worktreePath, "rev-parse", "HEAD")
		return sha, false, nil
	}
	args := []string{"commit", "-m", message}
	if sign {
		args = append(args, "-S")
	}
	if _, _, err := runGit(ctx, worktreePath, args...); err != nil {
		return "", false, err
	}
	sha, _, err := runGit(ctx, worktreePath, "rev-parse", "HEAD")
	return sha, true, err
}

func (g *gitSourceTree) RenameBranch(ctx context.Context, repoPath, from, to string) error {
	_, _, err := runGit(ctx, repoPath, "branch", "-m", from, to)
	return err
}

func (g *gitSourceTree) DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, _, err := runGit(ctx, repoPath, "branch", flag, branch)
	return err
}

func (g *gitSourceTree) ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeListEntry, error) {
	out, _, err := runGit(ctx, repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreePorcelain(out), nil
}

func parseWorktreePorcelain(out string) []WorktreeListEntry {
	var entries []WorktreeListEntry
	var cur WorktreeListEntry
	flush := func() {
		if cur.Path != "" {
			entries = append(entries, cur)
		}
		cur = WorktreeListEntry{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			cur.HEAD = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}
	flush()
	return entries
}

func (g *gitSourceTree) HasDivergentHistory(ctx context.Context, worktreePath, branch, parent string) (bool, error) {
	out, _, err := runGit(ctx, worktreePath, "rev-list", "--count", parent+".."+branch)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "0", nil
}

// IsDirty reports whether the worktree has staged or unstaged changes,
// using go-git's read-only status plumbing rather than shelling out.
func (g *gitSourceTree) IsDirty(ctx context.Context, worktreePath string) (bool, error) {
	repo, err := git.PlainOpen(worktreePath)
	if err != nil {
		return false, fmt.Errorf("open worktree for dirty-check: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree status: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("read worktree status: %w", err)
	}
	return !status.IsClean(), nil
}
