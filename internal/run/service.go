// Package run manages the interactive flutter run session for live
// development: one PTY-backed process, hot reload and restart commands,
// and realtime log streaming.
package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/forgelabs/appforge/internal/logs"
	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/store"
	"github.com/forgelabs/appforge/internal/toolchain"
	"github.com/forgelabs/appforge/internal/workflow"
	"github.com/forgelabs/appforge/internal/workflow/steps"
)

// ErrBusy is returned when a run session is requested while one is active.
var ErrBusy = errors.New("a run session is already active")

// ErrNotRunning is returned by session commands when no session is active.
var ErrNotRunning = errors.New("no run session is active")

// Config holds run service configuration.
type Config struct {
	FlutterBin  string
	ProjectsDir string
	StopGrace   time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FlutterBin:  "flutter",
		ProjectsDir: "./data/projects",
		StopGrace:   10 * time.Second,
	}
}

// session is the state of one live run. All interactive writes go through
// the commands channel so a single goroutine owns the PTY writer.
type session struct {
	runID     string
	deviceID  string
	projectID string
	appID     string
	mode      string

	cmd      *exec.Cmd
	ptmx     *os.File
	commands chan byte
	done     chan struct{}
	cancel   context.CancelFunc

	postSteps []models.StepConfig
	wctx      *workflow.Context
}

// Service owns the single live run session. Concurrent start attempts
// receive ErrBusy; session commands on an idle service get ErrNotRunning.
type Service struct {
	cfg       *Config
	store     store.Store
	toolchain *toolchain.Toolchain
	executor  *workflow.Executor
	emitter   logs.Emitter
	logger    *slog.Logger

	mu      sync.Mutex
	sess    *session
	runLogs []models.LogEntry
}

// NewService creates a run service.
func NewService(cfg *Config, st store.Store, tc *toolchain.Toolchain, executor *workflow.Executor, emitter logs.Emitter, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if emitter == nil {
		emitter = logs.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		store:     st,
		toolchain: tc,
		executor:  executor,
		emitter:   emitter,
		logger:    logger,
	}
}

// Start launches flutter run on the given device. When appID is set the
// app's run settings for the device's platform contribute extra args,
// dart-defines and pre/post steps resolved before the process spawns.
func (s *Service) Start(ctx context.Context, deviceID, projectID, appID, mode string) (string, error) {
	if projectID == "" {
		return "", fmt.Errorf("project id is required")
	}
	if deviceID == "" {
		return "", fmt.Errorf("device id is required")
	}
	buildMode := models.BuildMode(mode)
	if mode == "" {
		buildMode = models.BuildModeDebug
	}
	if !buildMode.Valid() {
		return "", fmt.Errorf("invalid run mode: %s", mode)
	}

	project, err := s.store.Projects().Get(projectID)
	if err != nil {
		return "", fmt.Errorf("project not found: %w", err)
	}

	argv := []string{s.cfg.FlutterBin, "run", "-d", deviceID, buildMode.Flag()}

	var (
		settings  *models.PhaseSettings
		wctx      *workflow.Context
		postSteps []models.StepConfig
	)
	if appID != "" {
		app, err := s.store.Apps().Get(appID)
		if err != nil {
			return "", fmt.Errorf("app not found: %w", err)
		}
		platformType := s.devicePlatform(ctx, project.Path, deviceID)
		if platformType != "" {
			settings = app.RunPhase(platformType)
		}
		wctx = &workflow.Context{
			ProjectID:   projectID,
			ProjectRoot: project.Path,
			AppID:       appID,
			App:         app,
			AppsDir:     filepath.Join(s.cfg.ProjectsDir, projectID, "apps"),
		}
	}

	if settings != nil {
		for _, arg := range settings.Args {
			if arg = strings.TrimSpace(arg); arg != "" {
				argv = append(argv, arg)
			}
		}
		for _, define := range settings.DartDefines {
			if define = strings.TrimSpace(define); define != "" {
				argv = append(argv, "--dart-define="+define)
			}
		}
		argv = append(argv, steps.ExtractCustomArgs(settings.PreSteps)...)
		postSteps = settings.PostSteps
	}

	runID := uuid.NewString()

	// The session outlives the start request; only Stop cancels it.
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.sess != nil {
		s.mu.Unlock()
		cancel()
		return "", ErrBusy
	}
	sess := &session{
		runID:     runID,
		deviceID:  deviceID,
		projectID: projectID,
		appID:     appID,
		mode:      string(buildMode),
		commands:  make(chan byte, 8),
		done:      make(chan struct{}),
		cancel:    cancel,
		postSteps: postSteps,
		wctx:      wctx,
	}
	s.sess = sess
	s.runLogs = nil
	s.mu.Unlock()

	if settings != nil && len(settings.PreSteps) > 0 {
		logFn := func(message string, level models.LogLevel) {
			s.appendLog(runID, message, level)
		}
		logFn(fmt.Sprintf("Running %d pre-run step(s)...", len(settings.PreSteps)), models.LogLevelInfo)
		sess.wctx.RunID = runID
		if ok, _ := s.executor.ExecuteSteps(sctx, settings.PreSteps, sess.wctx, logFn, true); !ok {
			s.abortStart(sess)
			return "", fmt.Errorf("pre-run steps failed")
		}
	}
	if sctx.Err() != nil {
		s.abortStart(sess)
		return "", fmt.Errorf("run session stopped before launch")
	}

	s.appendLog(runID, "Running command: "+strings.Join(argv, " "), models.LogLevelInfo)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = project.Path

	ptmx, err := pty.Start(cmd)
	if err != nil {
		s.abortStart(sess)
		return "", fmt.Errorf("starting flutter run: %w", err)
	}

	s.mu.Lock()
	sess.cmd = cmd
	sess.ptmx = ptmx
	s.mu.Unlock()

	go s.writeCommands(sess)
	go s.streamLogs(sess)

	s.emitter.Emit(logs.EventRunStatus, map[string]any{
		"status":     "running",
		"device":     deviceID,
		"project_id": projectID,
	})

	return runID, nil
}

// writeCommands is the sole writer to the session PTY. It drains the
// command channel until the session closes it during teardown.
func (s *Service) writeCommands(sess *session) {
	for key := range sess.commands {
		if _, err := sess.ptmx.Write([]byte{key}); err != nil {
			s.logger.Warn("failed to write run command",
				"run_id", sess.runID,
				"command", string(key),
				"error", err,
			)
		}
	}
}

// streamLogs reads process output until EOF, classifies each line and
// publishes it. It owns session teardown: when the process exits it runs
// post-steps, frees the slot and announces the stopped status.
func (s *Service) streamLogs(sess *session) {
	scanner := bufio.NewScanner(sess.ptmx)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.appendLog(sess.runID, line, DetectLogLevel(line))
	}

	// PTY reads fail with EIO once the process exits; the scanner error
	// is expected noise here.
	_ = sess.cmd.Wait()
	close(sess.commands)
	sess.ptmx.Close()

	if len(sess.postSteps) > 0 && sess.wctx != nil {
		logFn := func(message string, level models.LogLevel) {
			s.appendLog(sess.runID, message, level)
		}
		logFn(fmt.Sprintf("Running %d post-run step(s)...", len(sess.postSteps)), models.LogLevelInfo)
		if ok, _ := s.executor.ExecuteSteps(context.Background(), sess.postSteps, sess.wctx, logFn, false); !ok {
			logFn("Some post-run steps failed", models.LogLevelWarning)
		}
	}

	s.clearSession(sess)
	close(sess.done)

	s.emitter.Emit(logs.EventRunStatus, map[string]any{
		"status": "stopped",
		"device": nil,
	})
}

// Stop requests a graceful quit and escalates to a kill after the grace
// timeout. A session still in its pre-step window is cancelled before the
// process ever spawns. Stopping an idle service is a no-op.
func (s *Service) Stop() string {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess == nil {
		return "stopped"
	}

	sess.cancel()
	if err := s.sendKey(sess, 'q'); err != nil {
		s.logger.Warn("failed to send quit command", "run_id", sess.runID, "error", err)
	}

	select {
	case <-sess.done:
	case <-time.After(s.cfg.StopGrace):
		s.logger.Warn("run session did not exit in time, killing", "run_id", sess.runID)
		s.mu.Lock()
		var proc *os.Process
		if sess.cmd != nil {
			proc = sess.cmd.Process
		}
		s.mu.Unlock()
		if proc != nil {
			_ = proc.Kill()
		}
		<-sess.done
	}
	return "stopped"
}

// HotReload sends the hot reload key to the running session.
func (s *Service) HotReload() error {
	return s.command('r')
}

// HotRestart sends the hot restart key to the running session.
func (s *Service) HotRestart() error {
	return s.command('R')
}

func (s *Service) command(key byte) error {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess == nil {
		return ErrNotRunning
	}
	return s.sendKey(sess, key)
}

func (s *Service) sendKey(sess *session, key byte) error {
	defer func() {
		// The channel closes during teardown; a racing send is a
		// command to a session that is already gone.
		recover()
	}()
	select {
	case sess.commands <- key:
		return nil
	default:
		return fmt.Errorf("run session is not accepting commands")
	}
}

// Devices lists connected devices. When projectID is set the list is
// filtered to platforms the project's directory layout supports.
func (s *Service) Devices(ctx context.Context, projectID string) []models.Device {
	var projectRoot string
	if projectID != "" {
		if project, err := s.store.Projects().Get(projectID); err == nil {
			projectRoot = project.Path
		}
	}

	devices := s.toolchain.Devices(ctx, projectRoot)
	if projectRoot != "" {
		if supported := toolchain.ProjectPlatforms(projectRoot); len(supported) > 0 {
			devices = toolchain.FilterDevices(devices, supported)
		}
	}
	return devices
}

// Status reports whether a session is live and which device owns it.
func (s *Service) Status() (running bool, deviceID, projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return false, "", ""
	}
	return true, s.sess.deviceID, s.sess.projectID
}

// Logs returns the buffered log entries of the current or last session.
func (s *Service) Logs() []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.LogEntry, len(s.runLogs))
	copy(entries, s.runLogs)
	return entries
}

// abortStart releases a slot claimed by a session whose process never
// spawned, waking any Stop already waiting on it.
func (s *Service) abortStart(sess *session) {
	s.clearSession(sess)
	close(sess.done)
}

func (s *Service) clearSession(sess *session) {
	sess.cancel()
	s.mu.Lock()
	if s.sess == sess {
		s.sess = nil
	}
	s.mu.Unlock()
}

func (s *Service) appendLog(runID, message string, level models.LogLevel) {
	entry := models.NewLogEntry(message, level)

	s.mu.Lock()
	s.runLogs = append(s.runLogs, entry)
	s.mu.Unlock()

	s.emitter.Emit(logs.EventRunLog, map[string]any{
		"run_id":    runID,
		"log_entry": entry,
	})
}

// devicePlatform resolves a device id to its platform name by listing
// connected devices. Unknown devices resolve to the empty string and the
// session proceeds without platform settings.
func (s *Service) devicePlatform(ctx context.Context, projectRoot, deviceID string) string {
	for _, d := range s.toolchain.Devices(ctx, projectRoot) {
		if d.ID == deviceID {
			return d.PlatformType
		}
	}
	return ""
}

// DetectLogLevel classifies a flutter run output line by content.
func DetectLogLevel(line string) models.LogLevel {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "exception"):
		return models.LogLevelError
	case strings.Contains(lower, "warning") || strings.Contains(lower, "warn"):
		return models.LogLevelWarning
	case strings.Contains(lower, "success") || strings.Contains(lower, "built") || strings.Contains(lower, "synced"):
		return models.LogLevelSuccess
	case strings.HasPrefix(line, "I/") || strings.HasPrefix(line, "D/") || strings.Contains(lower, "info"):
		return models.LogLevelInfo
	default:
		return models.LogLevelTerminal
	}
}
