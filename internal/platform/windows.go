package platform

import (
	"os"
	"path/filepath"

	"github.com/forgelabs/appforge/internal/models"
)

// windowsHandler builds the Windows runner directory and packages it into
// a zip.
type windowsHandler struct {
	handlerEnv
}

func newWindowsHandler(env handlerEnv) Handler {
	return &windowsHandler{handlerEnv: env}
}

func (h *windowsHandler) Platform() string { return Windows }

func (h *windowsHandler) Setup(appID string, app *models.App) error {
	h.logf(models.LogLevelInfo, "Setting up Windows configuration...")
	h.logf(models.LogLevelSuccess, "Windows setup completed (minimal configuration)")
	return nil
}

func (h *windowsHandler) BuildCommand(buildType, outputType string) []string {
	return []string{h.flutterBin, "build", "windows", models.BuildMode(buildType).Flag()}
}

func (h *windowsHandler) FindOutput(buildType, outputType string) (string, error) {
	config := "Debug"
	if buildType == "release" {
		config = "Release"
	}
	runnerDir := filepath.Join(h.projectRoot, "build", "windows", "x64", "runner", config)
	if _, err := os.Stat(runnerDir); err != nil {
		return "", &OutputNotFoundError{Path: runnerDir}
	}
	return zipDirectory(h.projectRoot, runnerDir, "windows_"+buildType)
}

func (h *windowsHandler) OutputExtension(outputType string) string {
	return ".zip"
}
