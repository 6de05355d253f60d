// Package platform provides the per-target-platform strategy for build
// command construction, artifact resolution and output packaging.
package platform

import (
	"fmt"

	"github.com/forgelabs/appforge/internal/models"
)

// Canonical platform names.
const (
	Android = "android"
	IOS     = "ios"
	Web     = "web"
	MacOS   = "macos"
	Windows = "windows"
	Linux   = "linux"
)

// LogFunc receives handler log lines.
type LogFunc func(message string, level models.LogLevel)

// OutputNotFoundError reports that the expected build artifact is absent.
// Callers distinguish it from other I/O failures with errors.As.
type OutputNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *OutputNotFoundError) Error() string {
	return fmt.Sprintf("build output not found at: %s", e.Path)
}

// Handler is the per-platform strategy. A handler is constructed once per
// build, bound to the project root, the per-app assets directory and the
// build's log sink, and discarded after.
type Handler interface {
	// Platform returns the canonical platform name.
	Platform() string
	// Setup applies platform-specific configuration before the build.
	// It may be a no-op when configuration is delegated to workflow steps.
	Setup(appID string, app *models.App) error
	// BuildCommand returns the toolchain build argv for the mode and
	// output type.
	BuildCommand(buildType, outputType string) []string
	// FindOutput locates the build artifact, packaging directory outputs
	// into a zip where the platform requires it. It returns an
	// *OutputNotFoundError when the expected artifact is absent.
	FindOutput(buildType, outputType string) (string, error)
	// OutputExtension returns the artifact file extension, dot included.
	OutputExtension(outputType string) string
}

type constructor func(env handlerEnv) Handler

// handlerEnv is the shared state bound into every handler.
type handlerEnv struct {
	flutterBin  string
	projectRoot string
	appsDir     string
	log         LogFunc
}

func (e handlerEnv) logf(level models.LogLevel, format string, args ...any) {
	if e.log != nil {
		e.log(fmt.Sprintf(format, args...), level)
	}
}

var handlers = map[string]constructor{
	Android: newAndroidHandler,
	IOS:     newIOSHandler,
	Web:     newWebHandler,
	MacOS:   newMacOSHandler,
	Windows: newWindowsHandler,
	Linux:   newLinuxHandler,
}

// New returns the handler for a platform, or an error for unsupported
// platform names.
func New(platform, flutterBin, projectRoot, appsDir string, log LogFunc) (Handler, error) {
	ctor, ok := handlers[platform]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
	return ctor(handlerEnv{
		flutterBin:  flutterBin,
		projectRoot: projectRoot,
		appsDir:     appsDir,
		log:         log,
	}), nil
}

// Supported returns the canonical names of every supported platform.
func Supported() []string {
	return []string{Android, IOS, Web, MacOS, Windows, Linux}
}

// IsSupported reports whether a platform name has a handler.
func IsSupported(platform string) bool {
	_, ok := handlers[platform]
	return ok
}
