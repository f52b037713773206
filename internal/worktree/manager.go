// Package worktree owns the directory that contains all session checkouts:
// creating, listing, removing, and finalizing the linked git worktrees that
// back each Para session.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
)

// Record describes one managed worktree, independent of the Session Manager's
// own record format; it is what Worktree Manager operations return.
type Record struct {
	SessionName  string
	RepoPath     string
	WorktreePath string
	Branch       string
	ParentBranch string
}

// Manager owns worktree creation, removal, and finalization for one or more
// source repositories. It holds no session-level state of its own; the
// caller (Session Manager) is responsible for persisting Records.
type Manager struct {
	cfg    config.SourceTreeConfig
	dirs   config.DirsConfig
	tree   SourceTree
	log    *logger.Logger
	locks  map[string]*repoLockEntry
	locksM sync.Mutex
}

type repoLockEntry struct {
	mu       sync.Mutex
	refCount int
}

// NewManager constructs a Worktree Manager. tree may be a fake in tests.
func NewManager(cfg config.SourceTreeConfig, dirs config.DirsConfig, tree SourceTree, log *logger.Logger) *Manager {
	if tree == nil {
		tree = NewGitSourceTree()
	}
	return &Manager{
		cfg:   cfg,
		dirs:  dirs,
		tree:  tree,
		log:   log,
		locks: make(map[string]*repoLockEntry),
	}
}

func (m *Manager) getRepoLock(repoPath string) *repoLockEntry {
	m.locksM.Lock()
	defer m.locksM.Unlock()
	entry, ok := m.locks[repoPath]
	if !ok {
		entry = &repoLockEntry{}
		m.locks[repoPath] = entry
	}
	entry.refCount++
	return entry
}

func (m *Manager) releaseRepoLock(repoPath string, entry *repoLockEntry) {
	m.locksM.Lock()
	defer m.locksM.Unlock()
	entry.refCount--
	if entry.refCount <= 0 {
		delete(m.locks, repoPath)
	}
}

func (m *Manager) worktreePath(sessionName string) string {
	return filepath.Join(m.dirs.WorktreesDir, sessionName)
}

// Create materializes a new linked checkout at <worktrees_root>/<session_name>
// tracking branch, based on baseRef. See spec §4.2.
func (m *Manager) Create(ctx context.Context, repoPath, sessionName, branch, baseRef string) (rec *Record, err error) {
	lock := m.getRepoLock(repoPath)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		m.releaseRepoLock(repoPath, lock)
	}()

	if _, err := m.tree.ResolveRef(ctx, repoPath, baseRef); err != nil {
		return nil, err
	}

	target := m.worktreePath(sessionName)
	if dirNonEmpty(target) {
		return nil, errTargetDirExists(target)
	}

	exists, err := m.tree.BranchExists(ctx, repoPath, branch)
	if err != nil {
		return nil, fmt.Errorf("check branch existence: %w", err)
	}

	createdBranch := false
	if !exists {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("prepare worktrees root: %w", err)
		}
		if err := m.tree.CreateWorktree(ctx, repoPath, target, branch, baseRef, true); err != nil {
			return nil, fmt.Errorf("create worktree: %w", err)
		}
		createdBranch = true
	} else {
		entries, err := m.tree.ListWorktrees(ctx, repoPath)
		if err != nil {
			return nil, fmt.Errorf("list worktrees: %w", err)
		}
		for _, e := range entries {
			if e.Branch == branch {
				return nil, errBranchCheckedOutElsewhere(branch)
			}
		}
		if err := m.tree.CreateWorktree(ctx, repoPath, target, branch, baseRef, false); err != nil {
			return nil, fmt.Errorf("create worktree from existing branch: %w", err)
		}
	}

	// On any failure past this point, undo side effects: remove the
	// directory, and delete the branch if this call just created it.
	defer func() {
		if err != nil {
			_ = m.tree.RemoveWorktree(ctx, repoPath, target, true)
			if createdBranch {
				_ = m.tree.DeleteBranch(ctx, repoPath, branch, true)
			}
		}
	}()

	if err = ensureStateDirMirror(target, m.dirs.StateDir, sessionName); err != nil {
		return nil, fmt.Errorf("mirror state directory into worktree: %w", err)
	}

	return &Record{
		SessionName:  sessionName,
		RepoPath:     repoPath,
		WorktreePath: target,
		Branch:       branch,
		ParentBranch: baseRef,
	}, nil
}

// ensureStateDirMirror creates the per-session signal/status directory both
// under the worktree (for the in-container agent, per §6: "the state
// directory is also mirrored at the main repository root") and under the
// shared state root so the Container Supervisor can bind-mount a single path.
func ensureStateDirMirror(worktreePath, stateDir, sessionName string) error {
	inWorktree := filepath.Join(worktreePath, ".para-state")
	if err := os.MkdirAll(inWorktree, 0o755); err != nil {
		return err
	}
	shared := filepath.Join(stateDir, "signals", sessionName)
	return os.MkdirAll(shared, 0o755)
}

func dirNonEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// Remove deletes the checkout. If force is false, it fails on uncommitted changes.
func (m *Manager) Remove(ctx context.Context, repoPath string, rec *Record, force bool) error {
	if !force {
		dirty, err := m.tree.IsDirty(ctx, rec.WorktreePath)
		if err != nil {
			return fmt.Errorf("check worktree dirty state: %w", err)
		}
		if dirty {
			return errUncommittedChanges(rec.SessionName)
		}
	}
	return m.tree.RemoveWorktree(ctx, repoPath, rec.WorktreePath, force)
}

// List enumerates known checkouts by querying the source tree directly.
func (m *Manager) List(ctx context.Context, repoPath string) ([]WorktreeListEntry, error) {
	return m.tree.ListWorktrees(ctx, repoPath)
}

// FinalizeResult reports the outcome of Finalize.
type FinalizeResult struct {
	CommitSHA   string
	FinalBranch string
	HadChanges  bool
}

// Finalize stages, commits, and optionally renames the session branch, per
// spec §4.2 step 4. It never removes the worktree; the Session Manager does
// that after archiving.
func (m *Manager) Finalize(ctx context.Context, repoPath string, rec *Record, commitMessage, targetBranch string) (*FinalizeResult, error) {
	sha, hadChanges, err := m.tree.CommitAll(ctx, rec.WorktreePath, commitMessage, m.cfg.SignCommits)
	if err != nil {
		return nil, fmt.Errorf("commit all: %w", err)
	}

	if !hadChanges {
		diverged, err := m.tree.HasDivergentHistory(ctx, rec.WorktreePath, rec.Branch, rec.ParentBranch)
		if err != nil {
			return nil, fmt.Errorf("check divergent history: %w", err)
		}
		if !diverged {
			return nil, errEmptySession(rec.SessionName)
		}
	}

	finalBranch := rec.Branch
	if targetBranch != "" && targetBranch != rec.Branch {
		exists, err := m.tree.BranchExists(ctx, repoPath, targetBranch)
		if err != nil {
			return nil, fmt.Errorf("check target branch: %w", err)
		}
		if exists {
			return nil, errTargetBranchCollision(targetBranch, targetBranch+"-"+RandomSuffix(4))
		}
		if err := m.tree.RenameBranch(ctx, repoPath, rec.Branch, targetBranch); err != nil {
			return nil, fmt.Errorf("rename branch: %w", err)
		}
		finalBranch = targetBranch
	}

	return &FinalizeResult{CommitSHA: sha, FinalBranch: finalBranch, HadChanges: hadChanges}, nil
}

// Cancel tears down a session's worktree and branch. Without force it
// refuses if there are uncommitted changes or commits beyond parent.
func (m *Manager) Cancel(ctx context.Context, repoPath string, rec *Record, force bool) error {
	if !force {
		dirty, err := m.tree.IsDirty(ctx, rec.WorktreePath)
		if err != nil {
			return fmt.Errorf("check worktree dirty state: %w", err)
		}
		if dirty {
			return errUncommittedChanges(rec.SessionName)
		}
		diverged, err := m.tree.HasDivergentHistory(ctx, rec.WorktreePath, rec.Branch, rec.ParentBranch)
		if err != nil {
			return fmt.Errorf("check divergent history: %w", err)
		}
		if diverged {
			return errDivergentBranchCheckedOut(rec.Branch)
		}
	}

	if err := m.tree.RemoveWorktree(ctx, repoPath, rec.WorktreePath, true); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	return m.tree.DeleteBranch(ctx, repoPath, rec.Branch, true)
}

// IsValid reports whether the recorded worktree directory still exists and
// is registered with the source tree tool; a mismatch is the "worktree
// present on disk but missing from source-tree metadata" edge case of §4.2.
func (m *Manager) IsValid(ctx context.Context, repoPath string, rec *Record) (bool, error) {
	if _, err := os.Stat(rec.WorktreePath); err != nil {
		return false, nil
	}
	entries, err := m.tree.ListWorktrees(ctx, repoPath)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Path == rec.WorktreePath {
			return true, nil
		}
	}
	return false, nil
}

// CurrentBranch resolves the branch currently checked out in repoPath, used
// by Session Manager Start to determine the parent branch.
func (m *Manager) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	return m.tree.CurrentBranch(ctx, repoPath)
}

// BranchExists reports whether branch already exists in repoPath, used by
// Session Manager name generation to avoid colliding an auto-generated
// session with an unrelated, pre-existing branch.
func (m *Manager) BranchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	return m.tree.BranchExists(ctx, repoPath, branch)
}
