package worktree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/common/paraerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSourceTree is the in-memory capability-trait implementation named by
// the redesign notes (§9): tests never shell out to a real git binary.
type fakeSourceTree struct {
	branches     map[string]bool
	worktrees    map[string]WorktreeListEntry // path -> entry
	dirty        map[string]bool
	divergent    map[string]bool
	refused      map[string]bool
	resolvedRefs map[string]string
	commitCount  int
}

func newFakeSourceTree() *fakeSourceTree {
	return &fakeSourceTree{
		branches:     map[string]bool{"main": true},
		worktrees:    map[string]WorktreeListEntry{},
		dirty:        map[string]bool{},
		divergent:    map[string]bool{},
		refused:      map[string]bool{},
		resolvedRefs: map[string]string{"main": "deadbeef"},
	}
}

func (f *fakeSourceTree) ResolveRef(ctx context.Context, repoPath, ref string) (string, error) {
	sha, ok := f.resolvedRefs[ref]
	if !ok {
		return "", errBaseRefNotFound(ref)
	}
	return sha, nil
}

func (f *fakeSourceTree) CreateWorktree(ctx context.Context, repoPath, worktreePath, branch, baseRef string, createBranch bool) error {
	if createBranch {
		f.branches[branch] = true
	}
	if err := os.MkdirAll(worktreePath, 0o755); err != nil {
		return err
	}
	f.worktrees[worktreePath] = WorktreeListEntry{Path: worktreePath, Branch: branch}
	return nil
}

func (f *fakeSourceTree) RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error {
	delete(f.worktrees, worktreePath)
	_ = os.RemoveAll(worktreePath)
	return nil
}

func (f *fakeSourceTree) CommitAll(ctx context.Context, worktreePath, message string, sign bool) (string, bool, error) {
	if !f.dirty[worktreePath] {
		return "unchanged-sha", false, nil
	}
	f.commitCount++
	f.dirty[worktreePath] = false
	return "sha-" + message, true, nil
}

func (f *fakeSourceTree) RenameBranch(ctx context.Context, repoPath, from, to string) error {
	delete(f.branches, from)
	f.branches[to] = true
	return nil
}

func (f *fakeSourceTree) DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error {
	delete(f.branches, branch)
	return nil
}

func (f *fakeSourceTree) ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeListEntry, error) {
	var out []WorktreeListEntry
	for _, e := range f.worktrees {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeSourceTree) BranchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	return f.branches[branch], nil
}

func (f *fakeSourceTree) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	return "main", nil
}

func (f *fakeSourceTree) HasDivergentHistory(ctx context.Context, worktreePath, branch, parent string) (bool, error) {
	return f.divergent[worktreePath], nil
}

func (f *fakeSourceTree) IsDirty(ctx context.Context, worktreePath string) (bool, error) {
	return f.dirty[worktreePath], nil
}

func newTestManager(t *testing.T, tree *fakeSourceTree) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	dirs := config.DirsConfig{
		WorktreesDir: filepath.Join(root, "worktrees"),
		StateDir:     filepath.Join(root, "state"),
	}
	mgr := NewManager(config.SourceTreeConfig{BranchPrefix: "para"}, dirs, tree, logger.Default())
	return mgr, root
}

func TestManager_Create_NewBranch(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, _ := newTestManager(t, tree)

	rec, err := mgr.Create(context.Background(), "/repo", "auth-api", "para/auth-api", "main")
	require.NoError(t, err)
	assert.Equal(t, "auth-api", rec.SessionName)
	assert.True(t, tree.branches["para/auth-api"])
	assert.DirExists(t, rec.WorktreePath)
}

func TestManager_Create_BaseRefMissing(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, _ := newTestManager(t, tree)

	_, err := mgr.Create(context.Background(), "/repo", "x", "para/x", "does-not-exist")
	require.Error(t, err)
}

func TestManager_Create_TargetDirExists(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, root := newTestManager(t, tree)

	target := filepath.Join(root, "worktrees", "busy")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "f"), []byte("x"), 0o644))

	_, err := mgr.Create(context.Background(), "/repo", "busy", "para/busy", "main")
	require.Error(t, err)
}

func TestManager_Create_RollsBackOnStateMirrorFailure(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, root := newTestManager(t, tree)
	// Make the shared state dir a file so MkdirAll fails inside ensureStateDirMirror.
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "state"), []byte("not a dir"), 0o644))

	_, err := mgr.Create(context.Background(), "/repo", "broken", "para/broken", "main")
	require.Error(t, err)
	assert.False(t, tree.branches["para/broken"], "branch should be rolled back")
	_, exists := tree.worktrees[filepath.Join(root, "worktrees", "broken")]
	assert.False(t, exists, "worktree should be rolled back")
}

func TestManager_Finalize_EmptySession(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, _ := newTestManager(t, tree)
	rec, err := mgr.Create(context.Background(), "/repo", "probe", "para/probe", "main")
	require.NoError(t, err)

	_, err = mgr.Finalize(context.Background(), "/repo", rec, "msg", "")
	require.Error(t, err)
	assert.True(t, paraerr.IsValidation(err))
}

func TestManager_Finalize_CommitsAndRenames(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, _ := newTestManager(t, tree)
	rec, err := mgr.Create(context.Background(), "/repo", "ui", "para/ui", "main")
	require.NoError(t, err)
	tree.dirty[rec.WorktreePath] = true

	result, err := mgr.Finalize(context.Background(), "/repo", rec, "UI", "feature/new-ui")
	require.NoError(t, err)
	assert.Equal(t, "feature/new-ui", result.FinalBranch)
	assert.True(t, result.HadChanges)
	assert.True(t, tree.branches["feature/new-ui"])
	assert.False(t, tree.branches["para/ui"])
}

func TestManager_Finalize_TargetBranchCollision(t *testing.T) {
	tree := newFakeSourceTree()
	tree.branches["feature/taken"] = true
	mgr, _ := newTestManager(t, tree)
	rec, err := mgr.Create(context.Background(), "/repo", "ui2", "para/ui2", "main")
	require.NoError(t, err)
	tree.dirty[rec.WorktreePath] = true

	_, err = mgr.Finalize(context.Background(), "/repo", rec, "UI", "feature/taken")
	require.Error(t, err)
	assert.True(t, paraerr.IsConflict(err))
}

func TestManager_Cancel_RefusesUncommittedWithoutForce(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, _ := newTestManager(t, tree)
	rec, err := mgr.Create(context.Background(), "/repo", "probe", "para/probe", "main")
	require.NoError(t, err)
	tree.dirty[rec.WorktreePath] = true

	err = mgr.Cancel(context.Background(), "/repo", rec, false)
	require.Error(t, err)
}

func TestManager_Cancel_ForceRemoves(t *testing.T) {
	tree := newFakeSourceTree()
	mgr, _ := newTestManager(t, tree)
	rec, err := mgr.Create(context.Background(), "/repo", "probe", "para/probe", "main")
	require.NoError(t, err)
	tree.dirty[rec.WorktreePath] = true

	err = mgr.Cancel(context.Background(), "/repo", rec, true)
	require.NoError(t, err)
	assert.False(t, tree.branches["para/probe"])
	_, exists := tree.worktrees[rec.WorktreePath]
	assert.False(t, exists)
}
