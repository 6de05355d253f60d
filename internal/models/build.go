package models

import "time"

// BuildMode is the compilation mode passed to the toolchain.
type BuildMode string

const (
	BuildModeRelease BuildMode = "release"
	BuildModeDebug   BuildMode = "debug"
	BuildModeProfile BuildMode = "profile"
)

// Valid returns true if the build mode is one of the known modes.
func (m BuildMode) Valid() bool {
	switch m {
	case BuildModeRelease, BuildModeDebug, BuildModeProfile:
		return true
	}
	return false
}

// Flag returns the toolchain command-line flag for the mode.
// Unknown modes default to release.
func (m BuildMode) Flag() string {
	switch m {
	case BuildModeDebug:
		return "--debug"
	case BuildModeProfile:
		return "--profile"
	default:
		return "--release"
	}
}

// BuildStatus is the terminal status of a build.
type BuildStatus string

const (
	BuildStatusSuccess BuildStatus = "success"
	BuildStatusError   BuildStatus = "error"
)

// BuildRecord is one entry in an app's build history, newest first.
type BuildRecord struct {
	BuildID         string      `json:"build_id"`
	Timestamp       time.Time   `json:"timestamp"`
	Platform        string      `json:"platform"`
	BuildType       string      `json:"build_type"`
	OutputType      string      `json:"output_type"`
	Status          BuildStatus `json:"status"`
	Filename        string      `json:"filename,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	DurationSeconds int         `json:"duration,omitempty"`
}

// BuildResult is returned to the caller when a build finishes.
type BuildResult struct {
	BuildID    string `json:"build_id"`
	OutputPath string `json:"output_path"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Platform   string `json:"platform"`
	OutputType string `json:"output_type"`
}
