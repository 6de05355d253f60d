package platform

import (
	"os"
	"path/filepath"

	"github.com/forgelabs/appforge/internal/models"
)

// linuxHandler builds the Linux bundle directory and packages it into a
// zip.
type linuxHandler struct {
	handlerEnv
}

func newLinuxHandler(env handlerEnv) Handler {
	return &linuxHandler{handlerEnv: env}
}

func (h *linuxHandler) Platform() string { return Linux }

func (h *linuxHandler) Setup(appID string, app *models.App) error {
	h.logf(models.LogLevelInfo, "Setting up Linux configuration...")
	h.logf(models.LogLevelSuccess, "Linux setup completed (minimal configuration)")
	return nil
}

func (h *linuxHandler) BuildCommand(buildType, outputType string) []string {
	return []string{h.flutterBin, "build", "linux", models.BuildMode(buildType).Flag()}
}

func (h *linuxHandler) FindOutput(buildType, outputType string) (string, error) {
	config := "debug"
	if buildType == "release" {
		config = "release"
	}
	bundleDir := filepath.Join(h.projectRoot, "build", "linux", "x64", config, "bundle")
	if _, err := os.Stat(bundleDir); err != nil {
		return "", &OutputNotFoundError{Path: bundleDir}
	}
	return zipDirectory(h.projectRoot, bundleDir, "linux_"+buildType)
}

func (h *linuxHandler) OutputExtension(outputType string) string {
	return ".zip"
}
