package platform

import (
	"os"
	"path/filepath"

	"github.com/forgelabs/appforge/internal/models"
)

// iosHandler builds the iOS app bundle without code signing and packages
// it into a zip.
type iosHandler struct {
	handlerEnv
}

func newIOSHandler(env handlerEnv) Handler {
	return &iosHandler{handlerEnv: env}
}

func (h *iosHandler) Platform() string { return IOS }

func (h *iosHandler) Setup(appID string, app *models.App) error {
	h.logf(models.LogLevelInfo, "Setting up iOS configuration...")
	h.logf(models.LogLevelSuccess, "iOS setup completed (minimal configuration)")
	return nil
}

func (h *iosHandler) BuildCommand(buildType, outputType string) []string {
	return []string{h.flutterBin, "build", "ios", models.BuildMode(buildType).Flag(), "--no-codesign"}
}

func (h *iosHandler) FindOutput(buildType, outputType string) (string, error) {
	appPath := filepath.Join(h.projectRoot, "build", "ios", "iphoneos", "Runner.app")
	if _, err := os.Stat(appPath); err != nil {
		return "", &OutputNotFoundError{Path: appPath}
	}
	return zipBundle(h.projectRoot, appPath, "ios_"+buildType)
}

func (h *iosHandler) OutputExtension(outputType string) string {
	// iOS builds are packaged as zip files containing the .app bundle.
	return ".zip"
}
