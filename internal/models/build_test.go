package models

import "testing"

func TestBuildModeValid(t *testing.T) {
	for _, mode := range []BuildMode{BuildModeRelease, BuildModeDebug, BuildModeProfile} {
		if !mode.Valid() {
			t.Errorf("%q reported invalid", mode)
		}
	}
	for _, mode := range []BuildMode{"", "turbo", "Release"} {
		if mode.Valid() {
			t.Errorf("%q reported valid", mode)
		}
	}
}

func TestBuildModeFlag(t *testing.T) {
	tests := []struct {
		mode BuildMode
		want string
	}{
		{BuildModeRelease, "--release"},
		{BuildModeDebug, "--debug"},
		{BuildModeProfile, "--profile"},
		{"unknown", "--release"},
	}
	for _, tt := range tests {
		if got := tt.mode.Flag(); got != tt.want {
			t.Errorf("Flag(%q) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestAppPlatformAccessorsNeverNil(t *testing.T) {
	app := &App{Platforms: []string{"android"}}

	if app.BuildPhase("android") == nil {
		t.Error("BuildPhase returned nil for unset settings")
	}
	if app.RunPhase("web") == nil {
		t.Error("RunPhase returned nil for unknown platform")
	}
	if !app.SupportsPlatform("android") || app.SupportsPlatform("ios") {
		t.Error("SupportsPlatform mismatch")
	}
}
