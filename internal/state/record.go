// Package state implements the State Store: the directory of per-session
// records that the Session Manager reads and writes. See spec §4.1.
package state

import "time"

// LifecycleState is one of the session lifecycle states of spec §3.
type LifecycleState string

const (
	Active      LifecycleState = "active"
	Review      LifecycleState = "review"
	Finished    LifecycleState = "finished"
	Cancelled   LifecycleState = "cancelled"
	Recoverable LifecycleState = "recoverable"
)

// ExecutionMode is one of the three launcher variants named in spec §9's
// redesign note ({HostIDE, SandboxedHost{profile}, Container{...}}).
type ExecutionMode string

const (
	ModeHost          ExecutionMode = "host"
	ModeSandboxedHost ExecutionMode = "sandboxed-host"
	ModeContainer     ExecutionMode = "container"
)

// Record is the on-disk representation of a Session (spec §3). Field names
// are lowercase so the YAML on disk is legible; unknown fields in an existing
// record are preserved only insofar as yaml.v3's lenient decode ignores them,
// satisfying the "must tolerate unknown fields" requirement of §6.
type Record struct {
	Name            string         `yaml:"name"`
	Branch          string         `yaml:"branch"`
	WorktreePath    string         `yaml:"worktree_path"`
	CreatedAt       time.Time      `yaml:"created_at"`
	ParentBranch    string         `yaml:"parent_branch"`
	ExecutionMode   ExecutionMode  `yaml:"execution_mode"`
	SandboxProfile  string         `yaml:"sandbox_profile,omitempty"`
	Image           string         `yaml:"image,omitempty"`
	NetworkIsolated bool           `yaml:"network_isolated,omitempty"`
	AllowedDomains  []string       `yaml:"allowed_domains,omitempty"`
	State           LifecycleState `yaml:"state"`
	TaskFile        string         `yaml:"task_file,omitempty"`
	ArchivedAt      *time.Time     `yaml:"archived_at,omitempty"`
	Warning         string         `yaml:"warning,omitempty"`
}
