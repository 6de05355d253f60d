// Package main provides the entry point for the build server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/forgelabs/appforge/internal/api"
	"github.com/forgelabs/appforge/internal/auth"
	"github.com/forgelabs/appforge/internal/build"
	"github.com/forgelabs/appforge/internal/logs"
	"github.com/forgelabs/appforge/internal/run"
	"github.com/forgelabs/appforge/internal/store/jsonfile"
	"github.com/forgelabs/appforge/internal/toolchain"
	"github.com/forgelabs/appforge/internal/workflow"
	"github.com/forgelabs/appforge/internal/workflow/steps"
	"github.com/forgelabs/appforge/pkg/config"
	"github.com/forgelabs/appforge/pkg/logger"
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(parseLevel(cfg.LogLevel), cfg.LogJSON)

	st, err := jsonfile.New(cfg.ProjectsDir, log.Logger)
	if err != nil {
		log.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	broker := logs.NewBroker(log.Logger)
	registry := steps.NewRegistry(
		steps.WithShell(cfg.Shell),
		steps.WithScriptTimeout(cfg.ScriptTimeout),
	)
	executor := workflow.NewExecutor(registry, broker, log.Logger)

	authService := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, log.Logger)
	if !authService.Enabled() {
		log.Warn("APPFORGE_JWT_SECRET not set, authentication disabled")
	}

	tc := toolchain.New(cfg.FlutterBin, log.Logger)

	buildService := build.NewService(&build.Config{
		FlutterBin:     cfg.FlutterBin,
		ProjectsDir:    cfg.ProjectsDir,
		BuildOutputDir: cfg.BuildOutputDir,
		StopGrace:      cfg.BuildStopGrace,
	}, st, executor, toolchain.NewCommandRunner(log.Logger), broker, log.Logger)

	runService := run.NewService(&run.Config{
		FlutterBin:  cfg.FlutterBin,
		ProjectsDir: cfg.ProjectsDir,
		StopGrace:   cfg.RunStopGrace,
	}, st, tc, executor, broker, log.Logger)

	server := api.NewServer(cfg, api.Deps{
		Store:        st,
		Auth:         authService,
		Registry:     registry,
		Executor:     executor,
		BuildService: buildService,
		RunService:   runService,
		Broker:       broker,
		Pinger:       st,
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		runService.Stop()
		buildService.Stop()
		cancel()
	}()

	log.Info("starting build server",
		"addr", cfg.Addr(),
		"projects_dir", cfg.ProjectsDir,
		"build_output_dir", cfg.BuildOutputDir,
	)

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// Give time for graceful shutdown
	time.Sleep(100 * time.Millisecond)
	log.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
