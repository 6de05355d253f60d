// Package build composes platform handlers, the workflow executor and
// subprocess supervision into the one-shot build pipeline.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgelabs/appforge/internal/logs"
	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/platform"
	"github.com/forgelabs/appforge/internal/store"
	"github.com/forgelabs/appforge/internal/toolchain"
	"github.com/forgelabs/appforge/internal/workflow"
	"github.com/forgelabs/appforge/internal/workflow/steps"
)

// ErrBusy is returned when a build is requested while another is in
// flight. The service owns a single build slot, not a scheduler.
var ErrBusy = errors.New("a build is already in progress")

// Runner is the subprocess supervision the pipeline needs: streamed
// execution plus terminate/kill escalation for the active process.
type Runner interface {
	toolchain.Runner
	Stop(grace time.Duration) bool
}

// Config holds build service configuration.
type Config struct {
	FlutterBin     string
	ProjectsDir    string
	BuildOutputDir string
	StopGrace      time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FlutterBin:     "flutter",
		ProjectsDir:    "./data/projects",
		BuildOutputDir: "./data/builds",
		StopGrace:      5 * time.Second,
	}
}

// Service runs the one-shot build pipeline. At most one build is in
// flight process-wide; concurrent start attempts receive ErrBusy.
type Service struct {
	cfg      *Config
	store    store.Store
	executor *workflow.Executor
	runner   Runner
	emitter  logs.Emitter
	logger   *slog.Logger

	mu             sync.Mutex
	currentBuildID string
	buildStart     time.Time
	buildLogs      map[string][]models.LogEntry
}

// NewService creates a build service.
func NewService(cfg *Config, st store.Store, executor *workflow.Executor, runner Runner, emitter logs.Emitter, logger *slog.Logger) *Service {
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
		executor:  executor,
		runner:    runner,
		emitter:   emitter,
		logger:    logger,
		buildLogs: make(map[string][]models.LogEntry),
	}
}

// Start runs the full build pipeline for an app and platform. It blocks
// until the pipeline finishes; cancellation happens through Stop from
// another goroutine. Configuration errors (unknown app, unsupported
// platform, invalid mode) surface before any subprocess is spawned.
func (s *Service) Start(ctx context.Context, appID, platformName, buildType, outputType string) (*models.BuildResult, error) {
	app, err := s.store.Apps().Get(appID)
	if err != nil {
		return nil, fmt.Errorf("app not found: %w", err)
	}
	if app.ProjectID == "" {
		return nil, fmt.Errorf("app %s is not associated with a project", appID)
	}

	project, err := s.store.Projects().Get(app.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	if !app.SupportsPlatform(platformName) {
		return nil, fmt.Errorf("platform %q is not supported by this app", platformName)
	}
	if !models.BuildMode(buildType).Valid() {
		return nil, fmt.Errorf("invalid build type: %s", buildType)
	}

	buildID := uuid.NewString()
	if err := s.acquire(buildID); err != nil {
		return nil, err
	}
	defer s.release(buildID)

	result, err := s.run(ctx, buildID, project, app, platformName, buildType, outputType)

	record := &models.BuildRecord{
		BuildID:         buildID,
		Timestamp:       time.Now(),
		Platform:        platformName,
		BuildType:       buildType,
		OutputType:      outputType,
		DurationSeconds: s.duration(),
	}
	if err != nil {
		record.Status = models.BuildStatusError
		record.ErrorMessage = err.Error()
	} else {
		record.Status = models.BuildStatusSuccess
		record.Filename = result.Filename
	}
	// History append is best-effort and never flips the build outcome.
	if histErr := s.store.History().Append(app.ProjectID, appID, record); histErr != nil {
		s.logger.Error("failed to append build history",
			"build_id", buildID,
			"error", histErr,
		)
	}

	return result, err
}

// run executes the pipeline stages in strict order.
func (s *Service) run(ctx context.Context, buildID string, project *models.Project, app *models.App, platformName, buildType, outputType string) (*models.BuildResult, error) {
	projectRoot := project.Path
	appsDir := filepath.Join(s.cfg.ProjectsDir, app.ProjectID, "apps")
	settings := app.BuildPhase(platformName)

	logFn := func(message string, level models.LogLevel) {
		s.log(buildID, message, level)
	}

	handler, err := platform.New(platformName, s.cfg.FlutterBin, projectRoot, appsDir, platform.LogFunc(logFn))
	if err != nil {
		logFn(fmt.Sprintf("Build failed: %v", err), models.LogLevelError)
		return nil, err
	}

	wctx := &workflow.Context{
		ProjectID:   app.ProjectID,
		ProjectRoot: projectRoot,
		AppID:       app.ID,
		App:         app,
		AppsDir:     appsDir,
		RunID:       buildID,
	}

	// Pre-steps abort the build before the toolchain is invoked.
	if len(settings.PreSteps) > 0 {
		logFn(fmt.Sprintf("Running %d pre-build step(s)...", len(settings.PreSteps)), models.LogLevelInfo)
		if ok, _ := s.executor.ExecuteSteps(ctx, settings.PreSteps, wctx, logFn, true); !ok {
			err := fmt.Errorf("pre-build steps failed")
			logFn("Build failed: pre-build steps failed", models.LogLevelError)
			return nil, err
		}
	}
	customArgs := steps.ExtractCustomArgs(settings.PreSteps)

	logFn(fmt.Sprintf("Step 1: Setting up %s configuration...", platformName), models.LogLevelInfo)
	if err := handler.Setup(app.ID, app); err != nil {
		logFn(fmt.Sprintf("Build failed: %v", err), models.LogLevelError)
		return nil, fmt.Errorf("platform setup: %w", err)
	}

	logFn(fmt.Sprintf("Step 2: Building %s %s...", platformName, outputType), models.LogLevelInfo)

	if err := s.runCommand(ctx, buildID, projectRoot, []string{s.cfg.FlutterBin, "clean"}, "Flutter clean"); err != nil {
		return nil, err
	}
	if err := s.runCommand(ctx, buildID, projectRoot, []string{s.cfg.FlutterBin, "pub", "get"}, "Flutter pub get"); err != nil {
		return nil, err
	}

	buildCommand := handler.BuildCommand(buildType, outputType)
	buildCommand = append(buildCommand, trimmedArgs(settings.Args)...)
	buildCommand = append(buildCommand, customArgs...)
	for _, define := range trimmedArgs(settings.DartDefines) {
		buildCommand = append(buildCommand, "--dart-define="+define)
	}

	logFn("Running command: "+strings.Join(buildCommand, " "), models.LogLevelInfo)
	if err := s.runCommand(ctx, buildID, projectRoot, buildCommand, "Flutter build"); err != nil {
		return nil, err
	}
	logFn("Flutter build completed", models.LogLevelSuccess)

	outputPath, err := handler.FindOutput(buildType, outputType)
	if err != nil {
		logFn(fmt.Sprintf("Build failed: %v", err), models.LogLevelError)
		return nil, err
	}

	ext := handler.OutputExtension(outputType)
	filename := fmt.Sprintf("%s_%s_%s_%s%s",
		strings.ReplaceAll(app.AppName, " ", "_"),
		platformName,
		buildType,
		time.Now().Format("20060102_150405"),
		ext,
	)
	finalPath := filepath.Join(s.cfg.BuildOutputDir, filename)

	if err := os.MkdirAll(s.cfg.BuildOutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating build output directory: %w", err)
	}
	if err := relocate(outputPath, finalPath); err != nil {
		logFn(fmt.Sprintf("Build failed: %v", err), models.LogLevelError)
		return nil, fmt.Errorf("relocating build output: %w", err)
	}

	wctx.SetValue("output_path", finalPath)
	wctx.SetValue("output_filename", filename)

	// Post-step failures degrade to warnings: the artifact already exists.
	if len(settings.PostSteps) > 0 {
		logFn(fmt.Sprintf("Running %d post-build step(s)...", len(settings.PostSteps)), models.LogLevelInfo)
		if ok, _ := s.executor.ExecuteSteps(ctx, settings.PostSteps, wctx, logFn, false); !ok {
			logFn("Some post-build steps failed", models.LogLevelWarning)
		}
	}

	logFn("Build completed successfully!", models.LogLevelSuccess)

	return &models.BuildResult{
		BuildID:    buildID,
		OutputPath: finalPath,
		Filename:   filename,
		Status:     "success",
		Platform:   platformName,
		OutputType: outputType,
	}, nil
}

// runCommand supervises one toolchain invocation, streaming every output
// line to the log sink tagged terminal. A non-zero exit is a hard failure.
func (s *Service) runCommand(ctx context.Context, buildID, dir string, argv []string, description string) error {
	s.log(buildID, fmt.Sprintf("Running %s...", description), models.LogLevelInfo)

	err := s.runner.Run(ctx, dir, argv, func(line string) {
		s.log(buildID, line, models.LogLevelTerminal)
	})
	if err != nil {
		var exitErr *toolchain.ExitError
		if errors.As(err, &exitErr) {
			s.log(buildID, fmt.Sprintf("%s failed with exit code %d", description, exitErr.Code), models.LogLevelError)
		} else {
			s.log(buildID, fmt.Sprintf("%s error: %v", description, err), models.LogLevelError)
		}
		return fmt.Errorf("%s: %w", description, err)
	}

	s.log(buildID, fmt.Sprintf("%s completed", description), models.LogLevelSuccess)
	return nil
}

// Stop sends a terminate signal to the active build's subprocess,
// escalating to a kill after the grace timeout. The blocked pipeline sees
// the process exit and finishes with an error; the slot frees there.
func (s *Service) Stop() string {
	s.mu.Lock()
	buildID := s.currentBuildID
	s.mu.Unlock()

	if buildID == "" {
		return "no_active_build"
	}

	if s.runner.Stop(s.cfg.StopGrace) {
		s.log(buildID, "Build stopped by user", models.LogLevelWarning)
	}
	return "stopped"
}

// Status reports the current build state and its buffered logs.
func (s *Service) Status() (building bool, buildID string, entries []models.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentBuildID == "" {
		return false, "", nil
	}
	logsCopy := make([]models.LogEntry, len(s.buildLogs[s.currentBuildID]))
	copy(logsCopy, s.buildLogs[s.currentBuildID])
	return true, s.currentBuildID, logsCopy
}

// Logs returns the buffered log entries for a build.
func (s *Service) Logs(buildID string) []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.LogEntry, len(s.buildLogs[buildID]))
	copy(entries, s.buildLogs[buildID])
	return entries
}

func (s *Service) acquire(buildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentBuildID != "" {
		return ErrBusy
	}
	s.currentBuildID = buildID
	s.buildStart = time.Now()
	s.buildLogs[buildID] = nil
	return nil
}

func (s *Service) release(buildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentBuildID == buildID {
		s.currentBuildID = ""
		s.buildStart = time.Time{}
	}
}

func (s *Service) duration() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buildStart.IsZero() {
		return 0
	}
	return int(time.Since(s.buildStart).Seconds())
}

// log appends an entry to the build's log buffer and mirrors it to the
// realtime emitter. Emission is best-effort and never aborts the pipeline.
func (s *Service) log(buildID, message string, level models.LogLevel) {
	entry := models.NewLogEntry(message, level)

	s.mu.Lock()
	s.buildLogs[buildID] = append(s.buildLogs[buildID], entry)
	s.mu.Unlock()

	s.logger.Info("build log", "build_id", buildID, "level", level, "message", message)

	s.emitter.Emit(logs.EventBuildLog, map[string]any{
		"build_id":  buildID,
		"log_entry": entry,
	})
}

// relocate renames src to dst, falling back to a copy when the rename
// crosses filesystems.
func relocate(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func trimmedArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
