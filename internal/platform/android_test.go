package platform

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestHandler(t *testing.T, platform, projectRoot string) Handler {
	t.Helper()
	h, err := New(platform, "flutter", projectRoot, "", nil)
	if err != nil {
		t.Fatalf("New(%q) error = %v", platform, err)
	}
	return h
}

func TestNewUnsupportedPlatform(t *testing.T) {
	if _, err := New("playstation", "flutter", "/tmp", "", nil); err == nil {
		t.Error("unsupported platform accepted")
	}
}

func TestSupportedCoversAllHandlers(t *testing.T) {
	for _, p := range Supported() {
		if !IsSupported(p) {
			t.Errorf("Supported() lists %q but IsSupported is false", p)
		}
		if _, err := New(p, "flutter", "/tmp", "", nil); err != nil {
			t.Errorf("New(%q) error = %v", p, err)
		}
	}
}

func TestAndroidBuildCommand(t *testing.T) {
	h := newTestHandler(t, Android, t.TempDir())

	tests := []struct {
		buildType  string
		outputType string
		want       []string
	}{
		{"release", "apk", []string{"flutter", "build", "apk", "--release"}},
		{"debug", "appbundle", []string{"flutter", "build", "appbundle", "--debug"}},
		{"profile", "apk", []string{"flutter", "build", "apk", "--profile"}},
		// Unknown build types default to release.
		{"bogus", "apk", []string{"flutter", "build", "apk", "--release"}},
	}
	for _, tt := range tests {
		got := h.BuildCommand(tt.buildType, tt.outputType)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("BuildCommand(%q, %q) = %v, want %v", tt.buildType, tt.outputType, got, tt.want)
		}
	}
}

func TestAndroidOutputExtension(t *testing.T) {
	h := newTestHandler(t, Android, t.TempDir())

	if got := h.OutputExtension("appbundle"); got != ".aab" {
		t.Errorf("OutputExtension(appbundle) = %q, want .aab", got)
	}
	if got := h.OutputExtension("apk"); got != ".apk" {
		t.Errorf("OutputExtension(apk) = %q, want .apk", got)
	}
}

func TestAndroidFindOutput(t *testing.T) {
	root := t.TempDir()
	h := newTestHandler(t, Android, root)

	apk := filepath.Join(root, "build", "app", "outputs", "flutter-apk", "app-release.apk")
	if err := os.MkdirAll(filepath.Dir(apk), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(apk, []byte("binary"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := h.FindOutput("release", "apk")
	if err != nil {
		t.Fatalf("FindOutput() error = %v", err)
	}
	if got != apk {
		t.Errorf("FindOutput() = %q, want %q", got, apk)
	}
}

func TestAndroidFindOutputMissing(t *testing.T) {
	h := newTestHandler(t, Android, t.TempDir())

	_, err := h.FindOutput("release", "appbundle")
	if err == nil {
		t.Fatal("missing output did not error")
	}
	var notFound *OutputNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *OutputNotFoundError", err)
	}
	if notFound.Path == "" {
		t.Error("OutputNotFoundError has empty path")
	}
}

func TestWebFindOutputZipsBuildDir(t *testing.T) {
	root := t.TempDir()
	h := newTestHandler(t, Web, root)

	webDir := filepath.Join(root, "build", "web")
	if err := os.MkdirAll(webDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := h.FindOutput("release", "web")
	if err != nil {
		t.Fatalf("FindOutput() error = %v", err)
	}
	if filepath.Ext(got) != ".zip" {
		t.Errorf("FindOutput() = %q, want a .zip archive", got)
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("archive not created: %v", err)
	}
}

func TestWebFindOutputMissingBuild(t *testing.T) {
	h := newTestHandler(t, Web, t.TempDir())

	_, err := h.FindOutput("release", "web")
	var notFound *OutputNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *OutputNotFoundError", err)
	}
}
