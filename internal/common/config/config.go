// Package config provides configuration management for Para.
// It supports loading configuration from environment variables, a config file, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration sections recognized by Para, per the options
// enumerated for the external configuration surface: IDE launcher, filesystem
// layout roots, source-tree behavior, session/launcher behavior, container
// supervisor behavior, and sandbox policy.
type Config struct {
	IDE        IDEConfig        `mapstructure:"ide"`
	Dirs       DirsConfig       `mapstructure:"dirs"`
	SourceTree SourceTreeConfig `mapstructure:"sourceTree"`
	Session    SessionConfig    `mapstructure:"session"`
	Container  ContainerConfig  `mapstructure:"container"`
	Sandbox    SandboxConfig    `mapstructure:"sandbox"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// IDEConfig selects which launcher starts on host-mode sessions.
type IDEConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// DirsConfig names the filesystem layout roots.
type DirsConfig struct {
	StateDir     string `mapstructure:"stateDir"`
	WorktreesDir string `mapstructure:"worktreesDir"`
	SnapshotsDir string `mapstructure:"snapshotsDir"`
	RecordsDir   string `mapstructure:"recordsDir"`
}

// SourceTreeConfig governs finalize behavior of the Worktree Manager.
type SourceTreeConfig struct {
	DefaultBranch string `mapstructure:"defaultBranch"`
	BranchPrefix  string `mapstructure:"branchPrefix"`
	AutoStageAll  bool   `mapstructure:"autoStageAll"`
	SignCommits   bool   `mapstructure:"signCommits"`
}

// SessionConfig governs launcher behavior at the Session Manager level.
type SessionConfig struct {
	AutoDispatch     bool     `mapstructure:"autoDispatch"`
	KillPreviousIDE  bool     `mapstructure:"killPreviousIde"`
	IgnorePatterns   []string `mapstructure:"ignorePatterns"`
}

// ContainerConfig governs the Container Supervisor.
type ContainerConfig struct {
	Enabled            bool              `mapstructure:"enabled"`
	Host               string            `mapstructure:"host"`
	DefaultImage       string            `mapstructure:"defaultImage"`
	ImageMappings      map[string]string `mapstructure:"imageMappings"`
	DefaultMounts      []string          `mapstructure:"defaultMounts"`
	DefaultEnvironment map[string]string `mapstructure:"defaultEnvironment"`
	ForwardedEnvVars   []string          `mapstructure:"forwardedEnvVars"`
	ForwardCredentials bool              `mapstructure:"forwardCredentials"`
	CPULimit           float64           `mapstructure:"cpuLimit"`
	MemoryLimitMB      int64             `mapstructure:"memoryLimitMb"`
	NetworkMode        string            `mapstructure:"networkMode"`
	DNS                []string          `mapstructure:"dns"`
	BuildHookScript    string            `mapstructure:"buildHookScript"`
	Registry           string            `mapstructure:"registry"`
	DevToolsPackages   []string          `mapstructure:"devToolsPackages"`
	StopGracePeriod    int               `mapstructure:"stopGracePeriodSeconds"`
	ACPAttach          bool              `mapstructure:"acpAttach"`
}

// SandboxConfig governs the OS-level Sandbox Policy Engine and, when a
// profile requests network isolation, the Network Egress Filter.
type SandboxConfig struct {
	DefaultProfile string   `mapstructure:"defaultProfile"` // "standard" or "standard-proxied"
	ProxyPort      int      `mapstructure:"proxyPort"`
	Allowlist      []string `mapstructure:"allowlist"`
}

// RetentionConfig governs how long archived Finished/Cancelled records survive
// before the retention sweep removes them (§9 open question, resolved: 30 days default).
type RetentionConfig struct {
	Days int `mapstructure:"days"`
}

// NATSConfig is optional secondary Status Channel fan-out configuration.
// An empty URL disables NATS and falls back to the in-memory event bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// detectDefaultLogFormat mirrors the ambient-stack convention: JSON in
// production-like environments, a readable console format on a terminal.
func detectDefaultLogFormat() string {
	if env := os.Getenv("PARA_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

func defaultHomeSub(sub string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".para", sub)
	}
	return filepath.Join(home, ".para", sub)
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ide.command", "code")
	v.SetDefault("ide.args", []string{})

	v.SetDefault("dirs.stateDir", defaultHomeSub("state"))
	v.SetDefault("dirs.worktreesDir", defaultHomeSub("worktrees"))
	v.SetDefault("dirs.snapshotsDir", defaultHomeSub("snapshots"))
	v.SetDefault("dirs.recordsDir", defaultHomeSub("records"))

	v.SetDefault("sourceTree.defaultBranch", "main")
	v.SetDefault("sourceTree.branchPrefix", "para")
	v.SetDefault("sourceTree.autoStageAll", true)
	v.SetDefault("sourceTree.signCommits", false)

	v.SetDefault("session.autoDispatch", false)
	v.SetDefault("session.killPreviousIde", false)
	v.SetDefault("session.ignorePatterns", []string{".git", "node_modules"})

	v.SetDefault("container.enabled", true)
	v.SetDefault("container.host", DefaultDockerHost())
	v.SetDefault("container.defaultImage", "para/agent-runtime:latest")
	v.SetDefault("container.imageMappings", map[string]string{})
	v.SetDefault("container.defaultMounts", []string{})
	v.SetDefault("container.defaultEnvironment", map[string]string{})
	v.SetDefault("container.forwardedEnvVars", []string{})
	v.SetDefault("container.forwardCredentials", true)
	v.SetDefault("container.cpuLimit", 2.0)
	v.SetDefault("container.memoryLimitMb", int64(4096))
	v.SetDefault("container.networkMode", "bridge")
	v.SetDefault("container.dns", []string{})
	v.SetDefault("container.buildHookScript", "")
	v.SetDefault("container.registry", "")
	v.SetDefault("container.devToolsPackages", []string{})
	v.SetDefault("container.stopGracePeriodSeconds", 10)
	v.SetDefault("container.acpAttach", false)

	v.SetDefault("sandbox.defaultProfile", "standard")
	v.SetDefault("sandbox.proxyPort", 18080)
	v.SetDefault("sandbox.allowlist", []string{})

	v.SetDefault("retention.days", 30)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "para-client")
	v.SetDefault("nats.maxReconnects", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// DefaultDockerHost returns the platform-appropriate Docker socket path.
// Respects DOCKER_HOST as an override, the standard Docker convention.
func DefaultDockerHost() string {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return host
	}
	return "unix:///var/run/docker.sock"
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix PARA_.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified directory, or the
// default search paths if empty.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for keys whose env name would not otherwise derive
	// cleanly from the camelCase mapstructure path.
	_ = v.BindEnv("logging.level", "PARA_LOG_LEVEL")
	_ = v.BindEnv("container.host", "DOCKER_HOST")
	_ = v.BindEnv("sandbox.proxyPort", "PARA_PROXY_PORT")
	_ = v.BindEnv("retention.days", "PARA_RETENTION_DAYS")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".para"))
	}
	v.AddConfigPath("/etc/para/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// DefaultConfigDir returns the directory Load searches for config.yaml when
// no explicit path is given, for callers (the config CLI command, the setup
// wizard) that need to know where a write will land.
func DefaultConfigDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".para")
	}
	return "."
}

// Save writes cfg as config.yaml under dir, creating dir if necessary. It is
// the write side of Load/LoadWithPath: the setup wizard behind `para config
// --interactive` round-trips through this rather than hand-editing YAML.
func Save(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// validate checks that configuration values are internally consistent.
func validate(cfg *Config) error {
	var errs []string

	if cfg.SourceTree.BranchPrefix == "" {
		errs = append(errs, "sourceTree.branchPrefix must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if cfg.Sandbox.DefaultProfile != "standard" && cfg.Sandbox.DefaultProfile != "standard-proxied" {
		errs = append(errs, "sandbox.defaultProfile must be one of: standard, standard-proxied")
	}
	if cfg.Sandbox.ProxyPort <= 0 || cfg.Sandbox.ProxyPort > 65535 {
		errs = append(errs, "sandbox.proxyPort must be between 1 and 65535")
	}

	if cfg.Retention.Days <= 0 {
		errs = append(errs, "retention.days must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
