package platform

import (
	"os"
	"path/filepath"

	"github.com/forgelabs/appforge/internal/models"
)

// macosHandler builds the macOS products directory and packages it into a
// zip.
type macosHandler struct {
	handlerEnv
}

func newMacOSHandler(env handlerEnv) Handler {
	return &macosHandler{handlerEnv: env}
}

func (h *macosHandler) Platform() string { return MacOS }

func (h *macosHandler) Setup(appID string, app *models.App) error {
	h.logf(models.LogLevelInfo, "Setting up macOS configuration...")
	h.logf(models.LogLevelSuccess, "macOS setup completed (minimal configuration)")
	return nil
}

func (h *macosHandler) BuildCommand(buildType, outputType string) []string {
	return []string{h.flutterBin, "build", "macos", models.BuildMode(buildType).Flag()}
}

func (h *macosHandler) FindOutput(buildType, outputType string) (string, error) {
	config := "Debug"
	if buildType == "release" {
		config = "Release"
	}
	productsDir := filepath.Join(h.projectRoot, "build", "macos", "Build", "Products", config)
	if _, err := os.Stat(productsDir); err != nil {
		return "", &OutputNotFoundError{Path: productsDir}
	}
	return zipDirectory(h.projectRoot, productsDir, "macos_"+buildType)
}

func (h *macosHandler) OutputExtension(outputType string) string {
	return ".zip"
}
