package platform

import (
	"os"
	"path/filepath"

	"github.com/forgelabs/appforge/internal/models"
)

// webHandler builds the web bundle and packages the output directory into
// a zip.
type webHandler struct {
	handlerEnv
}

func newWebHandler(env handlerEnv) Handler {
	return &webHandler{handlerEnv: env}
}

func (h *webHandler) Platform() string { return Web }

func (h *webHandler) Setup(appID string, app *models.App) error {
	h.logf(models.LogLevelInfo, "Setting up Web configuration...")
	h.logf(models.LogLevelSuccess, "Web setup completed (minimal configuration)")
	return nil
}

func (h *webHandler) BuildCommand(buildType, outputType string) []string {
	return []string{h.flutterBin, "build", "web", models.BuildMode(buildType).Flag()}
}

func (h *webHandler) FindOutput(buildType, outputType string) (string, error) {
	webDir := filepath.Join(h.projectRoot, "build", "web")
	if _, err := os.Stat(webDir); err != nil {
		return "", &OutputNotFoundError{Path: webDir}
	}
	return zipDirectory(h.projectRoot, webDir, "web_"+buildType)
}

func (h *webHandler) OutputExtension(outputType string) string {
	return ".zip"
}
