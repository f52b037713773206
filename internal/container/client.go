// Package container implements the Container Supervisor of spec §4.5: one
// supervisor per containerized session, provisioning and tearing down the
// agent's container and watching its signal directory.
package container

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
	"go.uber.org/zap"
)

// Spec describes the container to create for one session.
type Spec struct {
	Name        string
	Image       string
	Cmd         []string
	Env         []string
	WorkingDir  string
	Mounts      []Mount
	NetworkMode string
	MemoryBytes int64
	CPUQuota    int64
	Labels      map[string]string
}

// Mount is one bind mount into the container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Info is a snapshot of container state, as returned by Inspect and List.
type Info struct {
	ID         string
	Name       string
	Image      string
	State      string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
}

// Client wraps the Docker SDK for the operations the Container Supervisor needs.
type Client struct {
	cli *client.Client
	log *logger.Logger
	cfg config.ContainerConfig
}

// NewClient constructs a Client against the configured Docker host.
func NewClient(cfg config.ContainerConfig, log *logger.Logger) (*Client, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	log.Info("docker client created", zap.String("host", cfg.Host))
	return &Client{cli: cli, log: log, cfg: cfg}, nil
}

// Close releases the underlying Docker client.
func (c *Client) Close() error { return c.cli.Close() }

// Ping verifies the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cli.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	return nil
}

// Create materializes a container from spec without starting it.
func (c *Client) Create(ctx context.Context, spec Spec) (string, error) {
	mounts := make([]mount.Mount, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: m.Source, Target: m.Target, ReadOnly: m.ReadOnly})
	}

	containerCfg := &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Cmd,
		Env:        spec.Env,
		WorkingDir: spec.WorkingDir,
		Labels:     spec.Labels,
		Tty:        false,
	}
	hostCfg := &container.HostConfig{
		Mounts:      mounts,
		NetworkMode: container.NetworkMode(spec.NetworkMode),
		Resources:   container.Resources{Memory: spec.MemoryBytes, CPUQuota: spec.CPUQuota},
		DNS:         c.cfg.DNS,
	}

	resp, err := c.cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	c.log.Info("container created", zap.String("id", resp.ID), zap.String("name", spec.Name))
	return resp.ID, nil
}

// Start starts a created container.
func (c *Client) Start(ctx context.Context, id string) error {
	if err := c.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", id, err)
	}
	return nil
}

// Stop stops a container, giving it grace to exit cleanly before the daemon
// sends SIGKILL, per spec §4.5's teardown responsibility.
func (c *Client) Stop(ctx context.Context, id string, grace time.Duration) error {
	seconds := int(grace.Seconds())
	if err := c.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &seconds}); err != nil {
		return fmt.Errorf("stop container %s: %w", id, err)
	}
	return nil
}

// Kill sends SIGKILL immediately, used when Stop's grace period expires.
func (c *Client) Kill(ctx context.Context, id string) error {
	if err := c.cli.ContainerKill(ctx, id, "SIGKILL"); err != nil {
		return fmt.Errorf("kill container %s: %w", id, err)
	}
	return nil
}

// Remove deletes a stopped container and its anonymous volumes.
func (c *Client) Remove(ctx context.Context, id string, force bool) error {
	if err := c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: force, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("remove container %s: %w", id, err)
	}
	return nil
}

// Inspect returns the current state of a container.
func (c *Client) Inspect(ctx context.Context, id string) (*Info, error) {
	inspect, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inspect container %s: %w", id, err)
	}
	info := &Info{ID: inspect.ID, Name: inspect.Name, Image: inspect.Config.Image, State: inspect.State.Status, Status: inspect.State.Status}
	if inspect.State.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, inspect.State.StartedAt); err == nil {
			info.StartedAt = t
		}
	}
	if inspect.State.FinishedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, inspect.State.FinishedAt); err == nil {
			info.FinishedAt = t
		}
	}
	info.ExitCode = inspect.State.ExitCode
	return info, nil
}

// Logs streams combined stdout/stderr from a container.
func (c *Client) Logs(ctx context.Context, id string, follow bool, tail string) (io.ReadCloser, error) {
	reader, err := c.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: follow, Tail: tail})
	if err != nil {
		return nil, fmt.Errorf("container logs %s: %w", id, err)
	}
	return reader, nil
}

// Wait blocks until the container exits, returning its exit code.
func (c *Client) Wait(ctx context.Context, id string) (int64, error) {
	statusCh, errCh := c.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return -1, fmt.Errorf("wait container %s: %w", id, err)
		}
		return -1, nil
	case status := <-statusCh:
		return status.StatusCode, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Attach opens a bidirectional stream to a running container's stdio, for the
// ACP bridge to speak the Agent Client Protocol with an in-container agent
// process over stdin/stdout rather than a TCP port.
func (c *Client) Attach(ctx context.Context, id string) (types.HijackedResponse, error) {
	resp, err := c.cli.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: false,
	})
	if err != nil {
		return types.HijackedResponse{}, fmt.Errorf("attach container %s: %w", id, err)
	}
	return resp, nil
}

// List returns containers carrying the given labels, used to reconcile
// Recoverable sessions whose supervisor process no longer exists.
func (c *Client) List(ctx context.Context, labels map[string]string) ([]Info, error) {
	filterArgs := filters.NewArgs()
	for k, v := range labels {
		filterArgs.Add("label", fmt.Sprintf("%s=%s", k, v))
	}
	containers, err := c.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: filterArgs})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	infos := make([]Info, 0, len(containers))
	for _, ctr := range containers {
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		infos = append(infos, Info{ID: ctr.ID, Name: name, Image: ctr.Image, State: ctr.State, Status: ctr.Status})
	}
	return infos, nil
}
