package status

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffStat is the "files changed / lines added-removed" summary attached to
// a Status document, computed from the worktree's pending changes.
type DiffStat struct {
	FilesChanged int `yaml:"files_changed"`
	LinesAdded   int `yaml:"lines_added"`
	LinesRemoved int `yaml:"lines_removed"`
}

// ComputeDiffStat compares worktreePath's working tree against HEAD, the
// same way worktree.IsDirty establishes dirtiness, and line-diffs each
// changed file against its HEAD blob to produce added/removed counts.
func ComputeDiffStat(worktreePath string) (*DiffStat, error) {
	repo, err := git.PlainOpen(worktreePath)
	if err != nil {
		return nil, fmt.Errorf("open worktree for diff stat: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree status: %w", err)
	}
	wtStatus, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("read worktree status: %w", err)
	}
	if wtStatus.IsClean() {
		return &DiffStat{}, nil
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD for diff stat: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit: %w", err)
	}

	dmp := diffmatchpatch.New()
	stat := &DiffStat{}
	for path, fileStatus := range wtStatus {
		if fileStatus.Worktree == git.Unmodified && fileStatus.Staging == git.Unmodified {
			continue
		}
		stat.FilesChanged++

		oldContent := ""
		if f, err := commit.File(path); err == nil {
			oldContent, _ = f.Contents()
		}
		newContent := ""
		if data, err := os.ReadFile(filepath.Join(worktreePath, path)); err == nil {
			newContent = string(data)
		}

		diffs := dmp.DiffMain(oldContent, newContent, false)
		added, removed := countLineChanges(diffs)
		stat.LinesAdded += added
		stat.LinesRemoved += removed
	}
	return stat, nil
}

// countLineChanges reduces a character-level diff to line-level add/remove
// counts by splitting each inserted or deleted span on newlines.
func countLineChanges(diffs []diffmatchpatch.Diff) (added, removed int) {
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}
	return added, removed
}

// ChangedFiles lists the paths (relative to worktreePath) with pending
// changes, for callers that need the file list without the line-level diff,
// such as the pre-finalize secret scan.
func ChangedFiles(worktreePath string) ([]string, error) {
	repo, err := git.PlainOpen(worktreePath)
	if err != nil {
		return nil, fmt.Errorf("open worktree for changed-files listing: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree status: %w", err)
	}
	wtStatus, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("read worktree status: %w", err)
	}
	var files []string
	for path, fileStatus := range wtStatus {
		if fileStatus.Worktree == git.Unmodified && fileStatus.Staging == git.Unmodified {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
