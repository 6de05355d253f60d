package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/forgelabs/appforge/internal/models"
)

// devicePlatformMap maps the toolchain's raw targetPlatform identifiers to
// the six canonical platform names.
var devicePlatformMap = map[string]string{
	// Android platforms
	"android-arm":   "android",
	"android-arm64": "android",
	"android-x64":   "android",
	"android-x86":   "android",
	"android":       "android",
	// iOS
	"ios": "ios",
	// macOS desktop
	"darwin":       "macos",
	"darwin-arm64": "macos",
	"darwin-x64":   "macos",
	// Linux desktop
	"linux-x64":   "linux",
	"linux-arm64": "linux",
	"linux":       "linux",
	// Windows desktop
	"windows-x64": "windows",
	"windows":     "windows",
	// Web
	"web-javascript": "web",
	"chrome":         "web",
	"web":            "web",
}

// MapDevicePlatform maps a raw targetPlatform identifier to a canonical
// platform name, or "" when unknown.
func MapDevicePlatform(targetPlatform string) string {
	return devicePlatformMap[targetPlatform]
}

// Toolchain wraps device discovery on the Flutter CLI.
type Toolchain struct {
	bin    string
	logger *slog.Logger
}

// New creates a Toolchain for the given binary.
func New(bin string, logger *slog.Logger) *Toolchain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolchain{bin: bin, logger: logger}
}

// Bin returns the toolchain binary name.
func (t *Toolchain) Bin() string { return t.bin }

// rawDevice is the device entry shape of `devices --machine`.
type rawDevice struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TargetPlatform string `json:"targetPlatform"`
	Emulator       bool   `json:"emulator"`
}

// Devices runs the machine-readable device listing and maps raw platform
// identifiers to canonical platform names. A failing listing returns an
// empty list rather than an error: no devices is a normal condition.
func (t *Toolchain) Devices(ctx context.Context, projectDir string) []models.Device {
	cmd := exec.CommandContext(ctx, t.bin, "devices", "--machine")
	if projectDir != "" {
		cmd.Dir = projectDir
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		t.logger.Warn("device listing failed", "error", err)
		return nil
	}

	var raw []rawDevice
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		t.logger.Warn("parsing device listing", "error", err)
		return nil
	}

	devices := make([]models.Device, 0, len(raw))
	for _, d := range raw {
		target := d.TargetPlatform
		if target == "" {
			target = "unknown"
		}
		name := d.Name
		if name == "" {
			name = "Unknown"
		}
		devices = append(devices, models.Device{
			ID:             d.ID,
			Name:           name,
			TargetPlatform: target,
			PlatformType:   MapDevicePlatform(target),
			Emulator:       d.Emulator,
		})
	}
	return devices
}

// ProjectPlatforms probes a project's directory structure and returns the
// set of platforms it supports.
func ProjectPlatforms(projectRoot string) map[string]bool {
	platforms := make(map[string]bool)
	for _, name := range []string{"android", "ios", "web", "macos", "windows", "linux"} {
		if info, err := os.Stat(filepath.Join(projectRoot, name)); err == nil && info.IsDir() {
			platforms[name] = true
		}
	}
	return platforms
}

// FilterDevices keeps only devices whose platform the project supports.
// An empty platform set leaves the list unfiltered.
func FilterDevices(devices []models.Device, platforms map[string]bool) []models.Device {
	if len(platforms) == 0 {
		return devices
	}
	filtered := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if platforms[d.PlatformType] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
