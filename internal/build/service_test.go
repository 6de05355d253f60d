package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/store/jsonfile"
	"github.com/forgelabs/appforge/internal/toolchain"
	"github.com/forgelabs/appforge/internal/workflow"
	"github.com/forgelabs/appforge/internal/workflow/steps"
)

// spyRunner counts invocations and fabricates toolchain side effects so
// the pipeline can be exercised without a Flutter installation.
type spyRunner struct {
	mu      sync.Mutex
	argvs   [][]string
	onBuild func()
	block   chan struct{}
	fail    bool
}

func (r *spyRunner) Run(ctx context.Context, dir string, argv []string, onLine toolchain.LineFunc) error {
	r.mu.Lock()
	r.argvs = append(r.argvs, argv)
	block := r.block
	r.mu.Unlock()

	if onLine != nil {
		onLine(strings.Join(argv, " "))
	}
	if block != nil {
		<-block
	}
	if r.fail {
		return errors.New("toolchain failed")
	}
	if len(argv) > 1 && argv[1] == "build" && r.onBuild != nil {
		r.onBuild()
	}
	return nil
}

func (r *spyRunner) Stop(grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.block != nil {
		close(r.block)
		r.block = nil
		return true
	}
	return false
}

func (r *spyRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.argvs)
}

type fixture struct {
	service     *Service
	runner      *spyRunner
	store       *jsonfile.Store
	projectRoot string
	outputDir   string
	app         *models.App
}

func newFixture(t *testing.T, app *models.App) *fixture {
	t.Helper()

	dataDir := t.TempDir()
	projectRoot := t.TempDir()
	outputDir := filepath.Join(dataDir, "builds")

	st, err := jsonfile.New(filepath.Join(dataDir, "projects"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Projects().Put(&models.Project{ID: "p1", Name: "demo", Path: projectRoot}); err != nil {
		t.Fatal(err)
	}
	app.ProjectID = "p1"
	if err := st.Apps().Put(app); err != nil {
		t.Fatal(err)
	}

	runner := &spyRunner{}
	runner.onBuild = func() {
		apk := filepath.Join(projectRoot, "build", "app", "outputs", "flutter-apk", "app-release.apk")
		if err := os.MkdirAll(filepath.Dir(apk), 0o755); err != nil {
			t.Error(err)
			return
		}
		if err := os.WriteFile(apk, []byte("binary"), 0o644); err != nil {
			t.Error(err)
		}
	}

	executor := workflow.NewExecutor(steps.NewRegistry(), nil, nil)
	service := NewService(&Config{
		FlutterBin:     "flutter",
		ProjectsDir:    filepath.Join(dataDir, "projects"),
		BuildOutputDir: outputDir,
		StopGrace:      time.Second,
	}, st, executor, runner, nil, nil)

	return &fixture{
		service:     service,
		runner:      runner,
		store:       st,
		projectRoot: projectRoot,
		outputDir:   outputDir,
		app:         app,
	}
}

func androidApp() *models.App {
	return &models.App{
		ID:        "a1",
		AppName:   "My App",
		PackageID: "com.example.app",
		Platforms: []string{"android"},
	}
}

func TestBuildSuccess(t *testing.T) {
	f := newFixture(t, androidApp())

	result, err := f.service.Start(context.Background(), "a1", "android", "release", "apk")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// clean, pub get, build.
	if got := f.runner.calls(); got != 3 {
		t.Errorf("runner invoked %d times, want 3", got)
	}

	if !strings.HasPrefix(result.Filename, "My_App_android_release_") {
		t.Errorf("artifact filename = %q, want My_App_android_release_ prefix", result.Filename)
	}
	if filepath.Ext(result.Filename) != ".apk" {
		t.Errorf("artifact extension = %q, want .apk", filepath.Ext(result.Filename))
	}
	if _, err := os.Stat(filepath.Join(f.outputDir, result.Filename)); err != nil {
		t.Errorf("artifact not in output directory: %v", err)
	}

	records, err := f.store.History().List("p1", "a1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != models.BuildStatusSuccess {
		t.Errorf("history = %+v, want one success record", records)
	}
}

func TestBuildAppendsArgsAndDartDefines(t *testing.T) {
	app := androidApp()
	app.BuildSettings = map[string]*models.AppPlatform{
		"android": {
			Build: &models.PhaseSettings{
				Args:        []string{"--obfuscate"},
				DartDefines: []string{"FLAVOR=prod"},
				PreSteps: []models.StepConfig{
					{Type: steps.TypeCustomArgs, Config: map[string]any{"arguments": "--no-tree-shake-icons"}},
				},
			},
		},
	}
	f := newFixture(t, app)

	if _, err := f.service.Start(context.Background(), "a1", "android", "release", "apk"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	buildArgv := f.runner.argvs[len(f.runner.argvs)-1]
	joined := strings.Join(buildArgv, " ")
	for _, want := range []string{"--obfuscate", "--dart-define=FLAVOR=prod", "--no-tree-shake-icons"} {
		if !strings.Contains(joined, want) {
			t.Errorf("build command %q missing %q", joined, want)
		}
	}
}

func TestBuildRejectsUnknownApp(t *testing.T) {
	f := newFixture(t, androidApp())

	if _, err := f.service.Start(context.Background(), "ghost", "android", "release", "apk"); err == nil {
		t.Fatal("Start() with unknown app succeeded")
	}
	if f.runner.calls() != 0 {
		t.Error("runner invoked for an unknown app")
	}
}

func TestBuildRejectsUnsupportedPlatform(t *testing.T) {
	f := newFixture(t, androidApp())

	if _, err := f.service.Start(context.Background(), "a1", "ios", "release", "ipa"); err == nil {
		t.Fatal("Start() for unsupported platform succeeded")
	}
	if f.runner.calls() != 0 {
		t.Error("runner invoked despite unsupported platform")
	}
}

func TestBuildRejectsInvalidBuildType(t *testing.T) {
	f := newFixture(t, androidApp())

	if _, err := f.service.Start(context.Background(), "a1", "android", "turbo", "apk"); err == nil {
		t.Fatal("Start() with invalid build type succeeded")
	}
	if f.runner.calls() != 0 {
		t.Error("runner invoked despite invalid build type")
	}
}

func TestBuildFailingPreStepAbortsBeforeToolchain(t *testing.T) {
	app := androidApp()
	app.BuildSettings = map[string]*models.AppPlatform{
		"android": {
			Build: &models.PhaseSettings{
				PreSteps: []models.StepConfig{
					{Type: steps.TypeRunScript, Config: map[string]any{"script": "exit 1", "shell": "/bin/sh"}},
				},
			},
		},
	}
	f := newFixture(t, app)

	if _, err := f.service.Start(context.Background(), "a1", "android", "release", "apk"); err == nil {
		t.Fatal("Start() with failing pre-step succeeded")
	}
	if f.runner.calls() != 0 {
		t.Error("toolchain invoked despite pre-step failure")
	}

	records, err := f.store.History().List("p1", "a1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != models.BuildStatusError {
		t.Errorf("history = %+v, want one error record", records)
	}
}

func TestBuildToolchainFailureRecordsError(t *testing.T) {
	f := newFixture(t, androidApp())
	f.runner.fail = true

	if _, err := f.service.Start(context.Background(), "a1", "android", "release", "apk"); err == nil {
		t.Fatal("Start() with failing toolchain succeeded")
	}

	records, err := f.store.History().List("p1", "a1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != models.BuildStatusError {
		t.Errorf("history = %+v, want one error record", records)
	}
}

func TestBuildBusy(t *testing.T) {
	f := newFixture(t, androidApp())
	f.runner.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.service.Start(context.Background(), "a1", "android", "release", "apk")
	}()

	// Wait for the first build to occupy the slot.
	deadline := time.After(5 * time.Second)
	for {
		if building, _, _ := f.service.Status(); building {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first build never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if _, err := f.service.Start(context.Background(), "a1", "android", "release", "apk"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Start() error = %v, want ErrBusy", err)
	}

	// Release the blocked runner via Stop and let the first build finish.
	f.service.Stop()
	<-done

	if building, _, _ := f.service.Status(); building {
		t.Error("slot still occupied after pipeline finished")
	}
}

func TestStopWithoutActiveBuild(t *testing.T) {
	f := newFixture(t, androidApp())

	if got := f.service.Stop(); got != "no_active_build" {
		t.Errorf("Stop() = %q, want no_active_build", got)
	}
}
