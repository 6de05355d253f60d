package models

import "time"

// Project is a checked-out Flutter project the server builds from.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// App is a buildable application configuration inside a project.
// One project can host multiple apps differing in name, package id,
// icons and per-platform build settings.
type App struct {
	ID            string                   `json:"id"`
	ProjectID     string                   `json:"project_id"`
	AppName       string                   `json:"appName"`
	PackageID     string                   `json:"packageId"`
	Platforms     []string                 `json:"platforms"`
	BuildSettings map[string]*AppPlatform  `json:"buildSettings,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// AppPlatform groups the build and run settings for one target platform.
type AppPlatform struct {
	Build *PhaseSettings `json:"build,omitempty"`
	Run   *PhaseSettings `json:"run,omitempty"`
}

// PhaseSettings configures one phase (build or run) for a platform:
// extra command arguments, dart-defines and the workflow steps executed
// around the toolchain invocation.
type PhaseSettings struct {
	Args        []string     `json:"args,omitempty"`
	DartDefines []string     `json:"dartDefines,omitempty"`
	PreSteps    []StepConfig `json:"preSteps,omitempty"`
	PostSteps   []StepConfig `json:"postSteps,omitempty"`
}

// SupportsPlatform reports whether the app lists the platform as buildable.
func (a *App) SupportsPlatform(platform string) bool {
	for _, p := range a.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// PlatformSettings returns the settings for a platform, never nil.
func (a *App) PlatformSettings(platform string) *AppPlatform {
	if s, ok := a.BuildSettings[platform]; ok && s != nil {
		return s
	}
	return &AppPlatform{}
}

// BuildPhase returns the build phase settings for a platform, never nil.
func (a *App) BuildPhase(platform string) *PhaseSettings {
	if s := a.PlatformSettings(platform).Build; s != nil {
		return s
	}
	return &PhaseSettings{}
}

// RunPhase returns the run phase settings for a platform, never nil.
func (a *App) RunPhase(platform string) *PhaseSettings {
	if s := a.PlatformSettings(platform).Run; s != nil {
		return s
	}
	return &PhaseSettings{}
}
