package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"
	"github.com/para-dev/para/internal/common/paraerr"
	"gopkg.in/yaml.v3"
)

// ListFilter selects which records List returns.
type ListFilter int

const (
	// FilterActiveOnly returns only non-archived records.
	FilterActiveOnly ListFilter = iota
	// FilterIncludeArchived returns both active and archived records.
	FilterIncludeArchived
)

const lockAcquireTimeout = 5 * time.Second
const lockRetryInterval = 20 * time.Millisecond

// Store is the State Store of spec §4.1: a directory of per-session records,
// one file per session, plus an archive subdirectory for Finished/Cancelled
// records retained for `recover`.
type Store struct {
	dir     string
	archive string
}

// New constructs a Store rooted at dir. dir and dir/archive are created if
// missing; if dir cannot be made writable, it returns a Fatal error per §7.
func New(dir string) (*Store, error) {
	archive := filepath.Join(dir, "archive")
	if err := os.MkdirAll(archive, 0o755); err != nil {
		return nil, paraerr.Fatal(fmt.Sprintf("records directory %s is not writable: %v", dir, err))
	}
	probe := filepath.Join(dir, ".write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return nil, paraerr.Fatal(fmt.Sprintf("records directory %s is not writable: %v", dir, err))
	}
	_ = os.Remove(probe)
	return &Store{dir: dir, archive: archive}, nil
}

func (s *Store) recordPath(name string) string  { return filepath.Join(s.dir, name+".yaml") }
func (s *Store) archivePath(name string) string { return filepath.Join(s.archive, name+".yaml") }
func (s *Store) lockPath(name string) string    { return filepath.Join(s.dir, "."+name+".lock") }

// acquireLock takes the per-name lock file that serializes cross-process
// writers; readers take no lock (spec §4.1).
func (s *Store) acquireLock(name string) (release func(), err error) {
	path := s.lockPath(name)
	deadline := time.Now().Add(lockAcquireTimeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire lock for %s: %w", name, err)
		}
		if time.Now().After(deadline) {
			return nil, paraerr.Conflict("another process is writing session " + name)
		}
		time.Sleep(lockRetryInterval)
	}
}

// Put serializes rec via write-temp-then-rename so a crash never leaves a
// half-written record. It succeeds only if the name is free, unless
// overwrite is true.
func (s *Store) Put(rec *Record, overwrite bool) error {
	if err := ValidateName(rec.Name); err != nil {
		return err
	}

	release, err := s.acquireLock(rec.Name)
	if err != nil {
		return err
	}
	defer release()

	path := s.recordPath(rec.Name)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return paraerr.Conflict("session name \"" + rec.Name + "\" is already in use")
		}
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := atomicwriter.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Get returns the active record for name, or a NotFound error.
func (s *Store) Get(name string) (*Record, error) {
	return readRecord(s.recordPath(name))
}

// GetArchived returns the archived record for name, or a NotFound error.
func (s *Store) GetArchived(name string) (*Record, error) {
	return readRecord(s.archivePath(name))
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, paraerr.NotFound("session record not found")
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, paraerr.CorruptState(fmt.Sprintf("record at %s is unreadable: %v", path, err))
	}
	return &rec, nil
}

// List enumerates records according to filter.
func (s *Store) List(filter ListFilter) ([]*Record, error) {
	records, err := listDir(s.dir)
	if err != nil {
		return nil, err
	}
	if filter == FilterActiveOnly {
		return records, nil
	}
	archived, err := listDir(s.archive)
	if err != nil {
		return nil, err
	}
	return append(records, archived...), nil
}

func listDir(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list records in %s: %w", dir, err)
	}
	var out []*Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, e.Name()))
		if err != nil {
			continue // a corrupt record is surfaced by Get, not by List
		}
		out = append(out, rec)
	}
	return out, nil
}

// Archive moves an active record into the archive subdirectory, preserving
// recoverability, and stamps ArchivedAt.
func (s *Store) Archive(name string) error {
	release, err := s.acquireLock(name)
	if err != nil {
		return err
	}
	defer release()

	rec, err := readRecord(s.recordPath(name))
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.ArchivedAt = &now

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := atomicwriter.WriteFile(s.archivePath(name), data, 0o644); err != nil {
		return fmt.Errorf("write archived record: %w", err)
	}
	return os.Remove(s.recordPath(name))
}

// Remove permanently deletes an archived record.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.archivePath(name)); err != nil {
		if os.IsNotExist(err) {
			return paraerr.NotFound("archived session record not found")
		}
		return err
	}
	return nil
}

// Restore moves an archived record back into the active directory, clearing
// ArchivedAt, for `recover`.
func (s *Store) Restore(name string) (*Record, error) {
	release, err := s.acquireLock(name)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := readRecord(s.archivePath(name))
	if err != nil {
		return nil, err
	}
	rec.ArchivedAt = nil
	rec.State = Active

	data, err := yaml.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	if err := atomicwriter.WriteFile(s.recordPath(name), data, 0o644); err != nil {
		return nil, fmt.Errorf("write restored record: %w", err)
	}
	if err := os.Remove(s.archivePath(name)); err != nil {
		return nil, fmt.Errorf("remove archived record: %w", err)
	}
	return rec, nil
}

// SweepRetention permanently deletes archived Finished/Cancelled records
// older than maxAge, the resolution of spec §9's open retention question.
func (s *Store) SweepRetention(maxAge time.Duration) (removed []string, err error) {
	archived, err := listDir(s.archive)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	for _, rec := range archived {
		if rec.ArchivedAt == nil || rec.ArchivedAt.After(cutoff) {
			continue
		}
		if rec.State != Finished && rec.State != Cancelled {
			continue
		}
		if err := s.Remove(rec.Name); err != nil {
			continue
		}
		removed = append(removed, rec.Name)
	}
	return removed, nil
}
