package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgelabs/appforge/internal/models"
)

// androidHandler builds APKs and app bundles. Project file mutation is
// delegated to the Android Setup workflow step, so Setup is a no-op.
type androidHandler struct {
	handlerEnv
}

func newAndroidHandler(env handlerEnv) Handler {
	return &androidHandler{handlerEnv: env}
}

func (h *androidHandler) Platform() string { return Android }

func (h *androidHandler) Setup(appID string, app *models.App) error {
	h.logf(models.LogLevelInfo, "Android setup is managed via workflow steps")
	h.logf(models.LogLevelInfo, "Add 'Android Setup' step to pre-build workflow for configuration")
	return nil
}

func (h *androidHandler) BuildCommand(buildType, outputType string) []string {
	target := "apk"
	if outputType == "appbundle" {
		target = "appbundle"
	}
	return []string{h.flutterBin, "build", target, models.BuildMode(buildType).Flag()}
}

func (h *androidHandler) FindOutput(buildType, outputType string) (string, error) {
	var path string
	if outputType == "appbundle" {
		path = filepath.Join(h.projectRoot, "build", "app", "outputs",
			"bundle", buildType, fmt.Sprintf("app-%s.aab", buildType))
	} else {
		path = filepath.Join(h.projectRoot, "build", "app", "outputs",
			"flutter-apk", fmt.Sprintf("app-%s.apk", buildType))
	}

	if _, err := os.Stat(path); err != nil {
		return "", &OutputNotFoundError{Path: path}
	}
	return path, nil
}

func (h *androidHandler) OutputExtension(outputType string) string {
	if outputType == "appbundle" {
		return ".aab"
	}
	return ".apk"
}
