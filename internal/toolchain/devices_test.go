package toolchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgelabs/appforge/internal/models"
)

func TestMapDevicePlatform(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"android-arm", "android"},
		{"android-arm64", "android"},
		{"android-x64", "android"},
		{"android-x86", "android"},
		{"android", "android"},
		{"ios", "ios"},
		{"darwin", "macos"},
		{"darwin-arm64", "macos"},
		{"darwin-x64", "macos"},
		{"linux-x64", "linux"},
		{"linux-arm64", "linux"},
		{"linux", "linux"},
		{"windows-x64", "windows"},
		{"windows", "windows"},
		{"web-javascript", "web"},
		{"chrome", "web"},
		{"web", "web"},
		{"fuchsia", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MapDevicePlatform(tt.target); got != tt.want {
			t.Errorf("MapDevicePlatform(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestProjectPlatforms(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"android", "web", "lib"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// A file named like a platform directory does not count.
	if err := os.WriteFile(filepath.Join(root, "ios"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	platforms := ProjectPlatforms(root)
	if !platforms["android"] || !platforms["web"] {
		t.Errorf("ProjectPlatforms() = %v, want android and web", platforms)
	}
	if platforms["ios"] || platforms["linux"] {
		t.Errorf("ProjectPlatforms() reported unsupported platforms: %v", platforms)
	}
}

func TestFilterDevices(t *testing.T) {
	devices := []models.Device{
		{ID: "emulator-5554", PlatformType: "android"},
		{ID: "chrome", PlatformType: "web"},
		{ID: "macbook", PlatformType: "macos"},
	}

	filtered := FilterDevices(devices, map[string]bool{"android": true, "web": true})
	if len(filtered) != 2 {
		t.Fatalf("FilterDevices() returned %d devices, want 2", len(filtered))
	}
	for _, d := range filtered {
		if d.PlatformType == "macos" {
			t.Error("FilterDevices() kept a device for an unsupported platform")
		}
	}
}
