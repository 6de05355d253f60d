package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forgelabs/appforge/internal/build"
	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/store/jsonfile"
	"github.com/forgelabs/appforge/internal/toolchain"
	"github.com/forgelabs/appforge/internal/workflow"
	"github.com/forgelabs/appforge/internal/workflow/steps"
)

// ctxRecordingRunner captures the context state seen by each toolchain
// invocation and fabricates the build artifact.
type ctxRecordingRunner struct {
	mu          sync.Mutex
	ctxErrs     []error
	projectRoot string
}

func (r *ctxRecordingRunner) Run(ctx context.Context, dir string, argv []string, onLine toolchain.LineFunc) error {
	r.mu.Lock()
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	r.mu.Unlock()

	if len(argv) > 1 && argv[1] == "build" {
		apk := filepath.Join(r.projectRoot, "build", "app", "outputs", "flutter-apk", "app-release.apk")
		if err := os.MkdirAll(filepath.Dir(apk), 0o755); err != nil {
			return err
		}
		return os.WriteFile(apk, []byte("binary"), 0o644)
	}
	return nil
}

func (r *ctxRecordingRunner) Stop(grace time.Duration) bool { return false }

// A build outlives the request that started it: a client disconnect must
// not cancel the in-flight toolchain invocations.
func TestBuildStartSurvivesClientDisconnect(t *testing.T) {
	dataDir := t.TempDir()
	projectRoot := t.TempDir()

	st, err := jsonfile.New(filepath.Join(dataDir, "projects"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Projects().Put(&models.Project{ID: "p1", Name: "demo", Path: projectRoot}); err != nil {
		t.Fatal(err)
	}
	if err := st.Apps().Put(&models.App{
		ID:        "a1",
		ProjectID: "p1",
		AppName:   "My App",
		Platforms: []string{"android"},
	}); err != nil {
		t.Fatal(err)
	}

	runner := &ctxRecordingRunner{projectRoot: projectRoot}
	service := build.NewService(&build.Config{
		FlutterBin:     "flutter",
		ProjectsDir:    filepath.Join(dataDir, "projects"),
		BuildOutputDir: filepath.Join(dataDir, "builds"),
		StopGrace:      time.Second,
	}, st, workflow.NewExecutor(steps.NewRegistry(), nil, nil), runner, nil, nil)

	handler := NewBuildHandler(service, filepath.Join(dataDir, "builds"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := strings.NewReader(`{"app_id": "a1", "platform": "android"}`)
	req := httptest.NewRequest("POST", "/v1/build/start", body).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler.Start(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.ctxErrs) == 0 {
		t.Fatal("pipeline never reached the toolchain")
	}
	for i, err := range runner.ctxErrs {
		if err != nil {
			t.Errorf("toolchain call %d saw a cancelled context: %v", i, err)
		}
	}
}
