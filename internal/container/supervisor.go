package container

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	acp "github.com/coder/acp-go-sdk"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/events"
	"github.com/para-dev/para/internal/events/bus"
	"github.com/para-dev/para/internal/signal"
	"github.com/para-dev/para/internal/state"
	"github.com/para-dev/para/internal/status"
	"go.uber.org/zap"
)

// Phase is one state of the containerized-session state machine of §4.5.
type Phase string

const (
	PhaseCreated         Phase = "created"
	PhaseStarting        Phase = "starting"
	PhaseRunning         Phase = "running"
	PhaseFinishRequested Phase = "finish_requested"
	PhaseFinalizing      Phase = "finalizing"
	PhaseFinished        Phase = "finished"
	PhaseCancelRequested Phase = "cancel_requested"
	PhaseCancelling      Phase = "cancelling"
	PhaseCancelled       Phase = "cancelled"
	PhaseCrashed         Phase = "crashed"
	PhaseRecoverable     Phase = "recoverable"
)

// SessionLifecycle is the subset of the Session Manager's API a supervisor
// drives directly: finalize on finish_signal, cancel on cancel_signal, mark
// recoverable when a crash reconciliation finds a dead container nobody
// finalized. This is a narrow interface rather than an import of the
// session package, so Container Supervisor and Session Manager can be wired
// together by their caller without a dependency cycle.
type SessionLifecycle interface {
	Finish(ctx context.Context, name, message, targetBranch string) (*state.Record, error)
	Cancel(ctx context.Context, name string, force bool) (*state.Record, error)
	MarkRecoverable(ctx context.Context, name string) (*state.Record, error)
}

// supervisorPIDPath is where a detached `para supervise` process records its
// PID, so a later Launch/Resume and the crash-reconciliation sweep can tell
// whether one is already watching a session's container.
func supervisorPIDPath(stateDir string) string {
	return filepath.Join(stateDir, "supervisor.pid")
}

// Manager supervises one container per active containerized session. It
// implements the session.Launcher interface (Launch, Stop) by structural
// typing, so it can be registered directly into a session.LauncherSet.
type Manager struct {
	client    *Client
	cfg       config.ContainerConfig
	lifecycle SessionLifecycle
	log       *logger.Logger
	events    bus.EventBus
	hub       *status.Hub

	mu          sync.Mutex
	supervisors map[string]*supervisor
}

// NewManager constructs a Container Supervisor manager.
func NewManager(client *Client, cfg config.ContainerConfig, lifecycle SessionLifecycle, log *logger.Logger) *Manager {
	return &Manager{client: client, cfg: cfg, lifecycle: lifecycle, log: log, supervisors: make(map[string]*supervisor)}
}

// WithEventBus attaches the event bus phase changes and lifecycle
// transitions are published to. A Manager with no bus attached supervises
// containers exactly as before; publishing is an optional, nil-safe extra.
func (m *Manager) WithEventBus(b bus.EventBus) *Manager {
	m.events = b
	return m
}

// WithStatusHub attaches the push-transport Hub that ACP attach-stream
// updates are published to, alongside being written to the Status document
// file. A Manager with no hub attached still writes status.yaml; only the
// websocket push side is skipped.
func (m *Manager) WithStatusHub(h *status.Hub) *Manager {
	m.hub = h
	return m
}

// supervisor owns one containerized session's full lifecycle, independent of
// every other supervisor (§4.5's "share no mutable state" scheduling model).
type supervisor struct {
	rec         *state.Record
	containerID string
	stateDir    string
	client      *Client
	lifecycle   SessionLifecycle
	cfg         config.ContainerConfig
	log         *logger.Logger
	events      bus.EventBus
	phase       Phase
	phaseMu     sync.Mutex
	cancelWatch context.CancelFunc
	acpConn     *acp.ClientSideConnection
	acpCloser   func()
}

func (s *supervisor) setPhase(p Phase) {
	s.phaseMu.Lock()
	s.phase = p
	s.phaseMu.Unlock()
	s.log.WithSession(s.rec.Name).Info("phase transition", zap.String("phase", string(p)))

	if s.events == nil {
		return
	}
	subject := events.BuildSessionSubject(s.rec.Name, events.ContainerPhaseChanged)
	evt := bus.NewEvent(events.ContainerPhaseChanged, "container-supervisor", map[string]interface{}{
		"session": s.rec.Name,
		"phase":   string(p),
	})
	if err := s.events.Publish(context.Background(), subject, evt); err != nil {
		s.log.WithError(err).Debug("failed to publish phase-change event")
	}
}

func (s *supervisor) Phase() Phase {
	s.phaseMu.Lock()
	defer s.phaseMu.Unlock()
	return s.phase
}

func (s *supervisor) publishSession(eventType string) {
	if s.events == nil {
		return
	}
	subject := events.BuildSessionSubject(s.rec.Name, eventType)
	evt := bus.NewEvent(eventType, "container-supervisor", map[string]interface{}{"session": s.rec.Name})
	if err := s.events.Publish(context.Background(), subject, evt); err != nil {
		s.log.WithError(err).Debug("failed to publish session event")
	}
}

// Launch provisions or reattaches to a container for rec, then ensures a
// detached `para supervise` process is watching its signal directory.
// Launch itself returns as soon as that hand-off is done; the watcher keeps
// running for the life of the session in its own OS process, independent of
// whatever invoked Launch, per §5: "long-lived supervisors are separate
// processes, one per container." This makes Resume idempotent: if a
// supervisor is already attached to a running container, Launch finds both
// and does nothing further.
func (m *Manager) Launch(ctx context.Context, rec *state.Record, extraPrompt string) error {
	stateDir := filepath.Join(rec.WorktreePath, ".para-state")

	if _, err := m.reattachOrCreate(ctx, rec); err != nil {
		return err
	}

	if supervisorAlive(stateDir) {
		m.log.WithSession(rec.Name).Debug("supervisor already watching this session")
		return nil
	}

	if err := spawnSupervisor(m, rec); err != nil {
		return fmt.Errorf("spawn supervisor process: %w", err)
	}
	return nil
}

// reattachOrCreate returns the ID of a running container for rec, reusing
// one left running by an earlier Launch (the Resume case of §4.3) instead of
// creating a duplicate, and provisions a fresh one otherwise.
func (m *Manager) reattachOrCreate(ctx context.Context, rec *state.Record) (string, error) {
	containers, err := m.client.List(ctx, map[string]string{"para.session": rec.Name})
	if err != nil {
		return "", fmt.Errorf("list containers for session %s: %w", rec.Name, err)
	}
	for _, c := range containers {
		if c.State == "running" {
			m.log.WithSession(rec.Name).Info("reattaching to running container", zap.String("container_id", c.ID))
			return c.ID, nil
		}
	}
	return m.create(ctx, rec)
}

// create provisions and starts a fresh container for rec.
func (m *Manager) create(ctx context.Context, rec *state.Record) (string, error) {
	image := m.cfg.DefaultImage
	if rec.Image != "" {
		image = rec.Image
	}
	if mapped, ok := m.cfg.ImageMappings[image]; ok {
		image = mapped
	}

	stateDir := filepath.Join(rec.WorktreePath, ".para-state")
	mounts := []Mount{
		{Source: rec.WorktreePath, Target: "/workspace", ReadOnly: false},
		{Source: stateDir, Target: "/workspace/.para-state", ReadOnly: false},
	}
	for _, extra := range m.cfg.DefaultMounts {
		mounts = append(mounts, Mount{Source: extra, Target: extra})
	}

	env := []string{"TERM=xterm-256color", "PARA_NONINTERACTIVE=1", "PARA_SESSION=" + rec.Name}
	for k, v := range m.cfg.DefaultEnvironment {
		env = append(env, k+"="+v)
	}
	credEnv, wipeCreds := ForwardedEnv(m.cfg)
	env = append(env, credEnv...)

	networkMode := m.cfg.NetworkMode
	if rec.NetworkIsolated {
		networkMode = "none"
	}

	spec := Spec{
		Name:        "para-" + rec.Name + "-" + uuid.NewString()[:8],
		Image:       image,
		Env:         env,
		WorkingDir:  "/workspace",
		Mounts:      mounts,
		NetworkMode: networkMode,
		MemoryBytes: m.cfg.MemoryLimitMB * 1024 * 1024,
		CPUQuota:    int64(m.cfg.CPULimit * 100000),
		Labels:      map[string]string{"para.session": rec.Name},
	}

	id, err := m.client.Create(ctx, spec)
	wipeCreds()
	if err != nil {
		return "", fmt.Errorf("provision container: %w", err)
	}
	m.publishPhase(rec.Name, PhaseCreated)

	m.publishPhase(rec.Name, PhaseStarting)
	if err := m.client.Start(ctx, id); err != nil {
		_ = m.client.Remove(ctx, id, true)
		return "", fmt.Errorf("start container: %w", err)
	}
	m.publishPhase(rec.Name, PhaseRunning)
	return id, nil
}

// Supervise is the body of the detached `para supervise` process: it
// attaches to rec's already-running container and watches its state
// directory until the session finishes or is cancelled. It blocks for the
// life of the session, which is the point of running it as its own process
// instead of a goroutine inside the one-shot `para start`/`para resume`
// command that provisioned the container.
func (m *Manager) Supervise(ctx context.Context, rec *state.Record) error {
	containers, err := m.client.List(ctx, map[string]string{"para.session": rec.Name})
	if err != nil {
		return fmt.Errorf("list containers for session %s: %w", rec.Name, err)
	}
	var containerID string
	for _, c := range containers {
		if c.State == "running" {
			containerID = c.ID
			break
		}
	}
	if containerID == "" {
		return fmt.Errorf("no running container found for session %q", rec.Name)
	}

	stateDir := filepath.Join(rec.WorktreePath, ".para-state")
	if err := writeSupervisorPID(stateDir); err != nil {
		m.log.WithSession(rec.Name).WithError(err).Warn("failed to write supervisor pidfile")
	}
	defer removeSupervisorPID(stateDir)

	watchCtx, cancel := context.WithCancel(ctx)
	sup := &supervisor{
		rec: rec, containerID: containerID, client: m.client, lifecycle: m.lifecycle,
		cfg: m.cfg, log: m.log, events: m.events, phase: PhaseRunning, stateDir: stateDir,
		cancelWatch: cancel,
	}

	m.mu.Lock()
	m.supervisors[rec.Name] = sup
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.supervisors, rec.Name)
		m.mu.Unlock()
	}()

	if m.cfg.ACPAttach {
		m.attachACP(ctx, sup, rec)
	}

	processor := signal.NewProcessor(stateDir, sup, m.log)
	processor.Watch(watchCtx)
	return nil
}

// ReconcileCrashed scans container-mode Active records for ones whose
// container exited or vanished with no supervisor left watching it, and
// transitions them to Recoverable. Nothing else notices a dead container
// between CLI invocations, so newApp runs this once per invocation
// alongside the retention sweep (§4.5's mid-run crash case, §7's
// CorruptState auto-transition).
func (m *Manager) ReconcileCrashed(ctx context.Context, records []*state.Record) {
	for _, rec := range records {
		if rec.ExecutionMode != state.ModeContainer || rec.State != state.Active {
			continue
		}
		stateDir := filepath.Join(rec.WorktreePath, ".para-state")
		if supervisorAlive(stateDir) {
			continue
		}

		containers, err := m.client.List(ctx, map[string]string{"para.session": rec.Name})
		if err != nil {
			m.log.WithSession(rec.Name).WithError(err).Debug("reconcile: failed to list containers")
			continue
		}
		running := false
		for _, c := range containers {
			if c.State == "running" {
				running = true
				break
			}
		}
		if running {
			// No supervisor, but the container is still alive: the next
			// Launch or Resume call will attach a fresh one.
			continue
		}

		m.publishPhase(rec.Name, PhaseCrashed)
		if _, err := m.lifecycle.MarkRecoverable(ctx, rec.Name); err != nil {
			m.log.WithSession(rec.Name).WithError(err).Warn("failed to mark crashed session recoverable")
			continue
		}
		m.publishPhase(rec.Name, PhaseRecoverable)
		m.log.WithSession(rec.Name).Warn("container exited with no active supervisor; session marked recoverable")
	}
}

// publishPhase emits a phase-change event with no live supervisor instance
// behind it, for reconciliation transitions that happen in a fresh process
// that never held one.
func (m *Manager) publishPhase(name string, phase Phase) {
	if m.events == nil {
		return
	}
	subject := events.BuildSessionSubject(name, events.ContainerPhaseChanged)
	evt := bus.NewEvent(events.ContainerPhaseChanged, "container-supervisor", map[string]interface{}{
		"session": name,
		"phase":   string(phase),
	})
	if err := m.events.Publish(context.Background(), subject, evt); err != nil {
		m.log.WithError(err).Debug("failed to publish phase-change event")
	}
}

// attachACP opens the container's attach stream and speaks the Agent Client
// Protocol over it, if the agent image supports it. This is best-effort: a
// container whose entrypoint doesn't speak ACP simply never sends a
// SessionNotification, and the Status Channel falls back to whatever the
// agent writes to status.yaml on its own.
func (m *Manager) attachACP(ctx context.Context, sup *supervisor, rec *state.Record) {
	resp, err := m.client.Attach(ctx, sup.containerID)
	if err != nil {
		m.log.WithSession(rec.Name).WithError(err).Debug("acp attach failed; continuing without it")
		return
	}

	// Docker multiplexes stdout/stderr over the attach connection with an
	// 8-byte frame header whenever the container has no TTY, which every
	// para container does not (Create always sets Tty: false so the
	// supervisor's own stdin/stdout aren't mistaken for a terminal). Demux
	// it onto a pipe so the ACP connection sees a clean JSON-RPC stream.
	stdoutR, stdoutW := io.Pipe()
	go func() {
		defer stdoutW.Close()
		_, _ = stdcopy.StdCopy(stdoutW, io.Discard, resp.Reader)
	}()

	client := newACPClient(m.log, rec.Name, rec.WorktreePath, sup.stateDir, m.hub)
	conn := acp.NewClientSideConnection(client, resp.Conn, stdoutR)
	sup.acpConn = conn
	sup.acpCloser = resp.Close

	if _, err := conn.Initialize(ctx, acp.InitializeRequest{
		ProtocolVersion: acp.ProtocolVersionNumber,
		ClientInfo:      &acp.Implementation{Name: "para", Version: "1"},
	}); err != nil {
		m.log.WithSession(rec.Name).WithError(err).Debug("acp handshake failed; continuing without it")
		resp.Close()
		sup.acpConn = nil
		sup.acpCloser = nil
	}
}

// Stop implements session.Launcher.Stop: it stops and removes rec's
// container and asks its detached supervise process to exit. Stop is most
// often called from a CLI process (`para cancel`) that never held an
// in-memory supervisor for this session — the one that provisioned the
// container exited as soon as Launch handed off to the supervise process —
// so it looks the container up by label rather than through m.supervisors,
// which is only ever populated inside that supervise process itself.
func (m *Manager) Stop(ctx context.Context, rec *state.Record) error {
	stateDir := filepath.Join(rec.WorktreePath, ".para-state")
	signalSupervisorExit(stateDir)

	containers, err := m.client.List(ctx, map[string]string{"para.session": rec.Name})
	if err != nil {
		return fmt.Errorf("list containers for session %s: %w", rec.Name, err)
	}

	grace := time.Duration(m.cfg.StopGracePeriod) * time.Second
	var lastErr error
	for _, c := range containers {
		if c.State != "running" {
			continue
		}
		if err := m.client.Stop(ctx, c.ID, grace); err != nil {
			_ = m.client.Kill(ctx, c.ID)
		}
		if err := m.client.Remove(ctx, c.ID, true); err != nil {
			lastErr = err
		}
	}

	m.mu.Lock()
	delete(m.supervisors, rec.Name)
	m.mu.Unlock()
	return lastErr
}

// HandleFinish implements signal.Handler: it delegates to the Session
// Manager's Finish, which performs Worktree Manager finalize and archives
// the record, then tears the container down per §4.5 step 4.
func (s *supervisor) HandleFinish(ctx context.Context, payload signal.FinishPayload) error {
	s.setPhase(PhaseFinishRequested)
	s.warnOnSecrets()
	s.setPhase(PhaseFinalizing)
	if _, err := s.lifecycle.Finish(ctx, s.rec.Name, payload.CommitMessage, payload.Branch); err != nil {
		return err
	}
	if s.acpCloser != nil {
		s.acpCloser()
	}
	grace := time.Duration(s.cfg.StopGracePeriod) * time.Second
	if err := s.client.Stop(ctx, s.containerID, grace); err != nil {
		_ = s.client.Kill(ctx, s.containerID)
	}
	_ = s.client.Remove(ctx, s.containerID, true)
	s.setPhase(PhaseFinished)
	s.publishSession(events.SessionFinished)
	// ProcessOnce calls this from inside processor.Watch's own callback, so
	// cancelling here unblocks Watch's select as soon as this handler
	// returns, letting the detached supervise process exit instead of
	// watching a directory nobody writes to again.
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	return nil
}

// warnOnSecrets runs the advisory pre-finalize secret scan and, if it finds
// anything, stamps a Warning onto the current Status document. It never
// blocks or fails the finish: a scan error or a missing status file is
// logged and ignored.
func (s *supervisor) warnOnSecrets() {
	files, err := status.ChangedFiles(s.rec.WorktreePath)
	if err != nil || len(files) == 0 {
		return
	}
	warning := status.ScanForSecrets(s.rec.WorktreePath, files)
	if warning == "" {
		return
	}
	doc, err := status.Read(s.stateDir)
	if err != nil {
		doc = &status.Document{Task: s.rec.Name}
	}
	doc.Warning = warning
	if err := status.Write(s.stateDir, doc); err != nil {
		s.log.WithError(err).Warn("failed to attach secret-scan warning to status document")
	}
}

// HandleCancel implements signal.Handler: stop the container first, per the
// component responsibility ordering in §4.5 step 4, then invoke Cancel.
func (s *supervisor) HandleCancel(ctx context.Context, payload signal.CancelPayload) error {
	s.setPhase(PhaseCancelRequested)
	s.setPhase(PhaseCancelling)
	if s.acpCloser != nil {
		s.acpCloser()
	}
	grace := time.Duration(s.cfg.StopGracePeriod) * time.Second
	if err := s.client.Stop(ctx, s.containerID, grace); err != nil {
		_ = s.client.Kill(ctx, s.containerID)
	}
	_ = s.client.Remove(ctx, s.containerID, true)
	if _, err := s.lifecycle.Cancel(ctx, s.rec.Name, payload.Force); err != nil {
		return err
	}
	s.setPhase(PhaseCancelled)
	s.publishSession(events.SessionCancelled)
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	return nil
}
