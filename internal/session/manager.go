// Package session composes the State Store and Worktree Manager into the
// full session lifecycle of spec §4.3: Start, Finish, Cancel, Recover, Resume.
package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/constants"
	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/common/paraerr"
	"github.com/para-dev/para/internal/state"
	"github.com/para-dev/para/internal/worktree"
)

// StartOptions carries the caller's choices for Start.
type StartOptions struct {
	Mode            state.ExecutionMode
	SandboxProfile  string
	Image           string
	NetworkIsolated bool
	AllowedDomains  []string
	TaskFile        string
}

// Manager is the Session Manager of spec §4.3.
type Manager struct {
	cfg       config.Config
	store     *state.Store
	worktrees *worktree.Manager
	launchers LauncherSet
	log       *logger.Logger
	repoPath  string
}

// New constructs a Session Manager bound to a single source repository.
func New(cfg config.Config, store *state.Store, worktrees *worktree.Manager, launchers LauncherSet, log *logger.Logger, repoPath string) *Manager {
	return &Manager{cfg: cfg, store: store, worktrees: worktrees, launchers: launchers, log: log, repoPath: repoPath}
}

// Start resolves the name (generating one if absent), determines the parent
// branch, materializes the worktree, writes the Active record, then hands
// off to the launcher named by opts.Mode. Any failure after worktree
// creation rolls the worktree back.
func (m *Manager) Start(ctx context.Context, name string, opts StartOptions) (rec *state.Record, err error) {
	if name == "" {
		name, err = m.generateUniqueName(ctx)
		if err != nil {
			return nil, err
		}
	} else if err := state.ValidateName(name); err != nil {
		return nil, err
	} else if m.nameInUse(name) {
		return nil, paraerr.Conflict("session \"" + name + "\" is already active")
	}

	parentBranch, err := m.worktrees.CurrentBranch(ctx, m.repoPath)
	if err != nil {
		return nil, fmt.Errorf("determine parent branch: %w", err)
	}

	branch := worktree.BranchName(m.cfg.SourceTree.BranchPrefix, name)
	wtRec, err := m.worktrees.Create(ctx, m.repoPath, name, branch, parentBranch)
	if err != nil {
		return nil, err
	}

	rec = &state.Record{
		Name:            name,
		Branch:          branch,
		WorktreePath:    wtRec.WorktreePath,
		CreatedAt:       time.Now().UTC(),
		ParentBranch:    parentBranch,
		ExecutionMode:   opts.Mode,
		SandboxProfile:  opts.SandboxProfile,
		Image:           opts.Image,
		NetworkIsolated: opts.NetworkIsolated,
		AllowedDomains:  opts.AllowedDomains,
		State:           state.Active,
		TaskFile:        opts.TaskFile,
	}

	// Everything after this point rolls back the worktree on failure, per
	// §4.3: "If any step after worktree creation fails, roll back the worktree."
	defer func() {
		if err != nil {
			_ = m.worktrees.Remove(ctx, m.repoPath, wtRec, true)
		}
	}()

	if err = m.store.Put(rec, false); err != nil {
		return nil, err
	}

	launcher, ok := m.launchers[opts.Mode]
	if !ok {
		err = paraerr.Validation("no launcher registered for mode " + string(opts.Mode))
		return nil, err
	}
	launchCtx, cancel := context.WithTimeout(ctx, constants.AgentLaunchTimeout)
	defer cancel()
	if err = launcher.Launch(launchCtx, rec, ""); err != nil {
		return nil, fmt.Errorf("launch agent: %w", err)
	}

	return rec, nil
}

// generateUniqueName picks a name that collides with neither an active
// record nor an existing branch: a name that only avoided the former could
// still land the new session on an unrelated branch's history, since Start
// reuses rather than recreates a branch that already exists (§4.2).
func (m *Manager) generateUniqueName(ctx context.Context) (string, error) {
	for i := 0; i < 10; i++ {
		candidate := worktree.GenerateSessionName()
		if m.nameInUse(candidate) {
			continue
		}
		branch := worktree.BranchName(m.cfg.SourceTree.BranchPrefix, candidate)
		exists, err := m.worktrees.BranchExists(ctx, m.repoPath, branch)
		if err != nil {
			return "", fmt.Errorf("check branch existence: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", paraerr.Transient("failed to generate a unique session name")
}

func (m *Manager) nameInUse(name string) bool {
	if _, err := m.store.Get(name); err == nil {
		return true
	}
	return false
}

// resolveName implements the working-directory inference of §4.3: if name is
// empty, the session owning the current directory is the implicit target.
func (m *Manager) resolveName(ctx context.Context, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	records, err := m.store.List(state.FilterActiveOnly)
	if err != nil {
		return "", err
	}
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine current directory: %w", err)
	}
	detected, ok := DetectFromCWD(cwd, m.cfg.Dirs.WorktreesDir, names)
	if !ok {
		return "", paraerr.NotFound("no session name given and none could be inferred from the current directory")
	}
	return detected, nil
}

// Finish resolves the session, delegates commit and branch finalization to
// the Worktree Manager, transitions the record to Review, then archives it
// as Finished.
func (m *Manager) Finish(ctx context.Context, name, message, targetBranch string) (*state.Record, error) {
	name, err := m.resolveName(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := m.store.Get(name)
	if err != nil {
		return nil, err
	}

	wtRec := &worktree.Record{
		SessionName:  rec.Name,
		RepoPath:     m.repoPath,
		WorktreePath: rec.WorktreePath,
		Branch:       rec.Branch,
		ParentBranch: rec.ParentBranch,
	}
	result, err := m.worktrees.Finalize(ctx, m.repoPath, wtRec, message, targetBranch)
	if err != nil {
		return nil, err
	}

	rec.Branch = result.FinalBranch
	rec.State = state.Review
	if err := m.store.Put(rec, true); err != nil {
		return nil, err
	}

	rec.State = state.Finished
	if err := m.store.Put(rec, true); err != nil {
		return nil, err
	}
	if err := m.store.Archive(name); err != nil {
		return nil, err
	}
	return rec, nil
}

// Cancel resolves the session, stops any attached launcher, removes the
// worktree via the Worktree Manager, and archives the record as Cancelled.
func (m *Manager) Cancel(ctx context.Context, name string, force bool) (*state.Record, error) {
	name, err := m.resolveName(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := m.store.Get(name)
	if err != nil {
		return nil, err
	}

	if launcher, ok := m.launchers[rec.ExecutionMode]; ok {
		if err := launcher.Stop(ctx, rec); err != nil {
			m.log.WithError(err).Warn("launcher stop failed during cancel")
		}
	}

	wtRec := &worktree.Record{
		SessionName:  rec.Name,
		RepoPath:     m.repoPath,
		WorktreePath: rec.WorktreePath,
		Branch:       rec.Branch,
		ParentBranch: rec.ParentBranch,
	}
	if err := m.worktrees.Cancel(ctx, m.repoPath, wtRec, force); err != nil {
		return nil, err
	}

	rec.State = state.Cancelled
	if err := m.store.Put(rec, true); err != nil {
		return nil, err
	}
	if err := m.store.Archive(name); err != nil {
		return nil, err
	}
	return rec, nil
}

// Recover locates an archived record, restores its worktree if still
// present or recreates it from the preserved branch, and transitions the
// record back to Active.
func (m *Manager) Recover(ctx context.Context, name string) (*state.Record, error) {
	rec, err := m.store.GetArchived(name)
	if err != nil {
		return nil, err
	}

	wtRec := &worktree.Record{
		SessionName:  rec.Name,
		RepoPath:     m.repoPath,
		WorktreePath: rec.WorktreePath,
		Branch:       rec.Branch,
		ParentBranch: rec.ParentBranch,
	}
	valid, err := m.worktrees.IsValid(ctx, m.repoPath, wtRec)
	if err != nil {
		return nil, err
	}
	if !valid {
		recreated, err := m.worktrees.Create(ctx, m.repoPath, rec.Name, rec.Branch, rec.ParentBranch)
		if err != nil {
			return nil, fmt.Errorf("recreate worktree from preserved branch: %w", err)
		}
		rec.WorktreePath = recreated.WorktreePath
	}

	restored, err := m.store.Restore(name)
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// Resume re-opens an Active session by re-invoking its launcher, handing
// extraPrompt to that launcher. The task file is not modified.
func (m *Manager) Resume(ctx context.Context, name, extraPrompt string) (*state.Record, error) {
	name, err := m.resolveName(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := m.store.Get(name)
	if err != nil {
		return nil, err
	}
	launcher, ok := m.launchers[rec.ExecutionMode]
	if !ok {
		return nil, paraerr.Validation("no launcher registered for mode " + string(rec.ExecutionMode))
	}
	launchCtx, cancel := context.WithTimeout(ctx, constants.AgentLaunchTimeout)
	defer cancel()
	if err := launcher.Launch(launchCtx, rec, extraPrompt); err != nil {
		return nil, fmt.Errorf("resume agent: %w", err)
	}
	return rec, nil
}

// MarkRecoverable transitions an Active record to Recoverable and archives
// it, for a session whose container exited or vanished with no supervisor
// left to finalize it (§4.5's mid-run crash case, §7's CorruptState
// auto-transition). The worktree and branch are left exactly as they are so
// `para recover` can restore the session later.
func (m *Manager) MarkRecoverable(ctx context.Context, name string) (*state.Record, error) {
	rec, err := m.store.Get(name)
	if err != nil {
		return nil, err
	}
	rec.State = state.Recoverable
	if err := m.store.Put(rec, true); err != nil {
		return nil, err
	}
	if err := m.store.Archive(name); err != nil {
		return nil, err
	}
	return rec, nil
}

// List enumerates sessions, delegating to the State Store.
func (m *Manager) List(filter state.ListFilter) ([]*state.Record, error) {
	return m.store.List(filter)
}
