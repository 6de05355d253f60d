package steps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// scaffoldAndroidProject lays out the minimal Android project files the
// setup step touches.
func scaffoldAndroidProject(t *testing.T, root string) {
	t.Helper()

	writeFile(t, filepath.Join(root, "android", "app", "src", "main", "res", "values", "strings.xml"),
		`<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">Old Name</string>
</resources>
`)
	writeFile(t, filepath.Join(root, "android", "app", "build.gradle.kts"),
		`android {
    namespace = "com.old.pkg"
    defaultConfig {
        applicationId = "com.old.pkg"
    }
}
`)
	writeFile(t, filepath.Join(root, "android", "app", "src", "main", "kotlin", "com", "old", "pkg", "MainActivity.kt"),
		`package com.old.pkg

import io.flutter.embedding.android.FlutterActivity

class MainActivity : FlutterActivity()
`)
}

func androidSetupContext(root string) *workflow.Context {
	return &workflow.Context{
		ProjectRoot: root,
		AppID:       "a1",
		App: &models.App{
			ID:        "a1",
			AppName:   "New Name",
			PackageID: "com.shiny.app",
		},
	}
}

func TestAndroidSetupRewritesProjectFiles(t *testing.T) {
	root := t.TempDir()
	scaffoldAndroidProject(t, root)

	step := newStep(t, TypeAndroidSetup, map[string]any{
		// No res.zip in the fixture; skip the icon stage.
		"apply_app_icon": false,
	})
	result := step.Execute(context.Background(), androidSetupContext(root))
	if !result.Success {
		t.Fatalf("Execute() failed: %s (%s)", result.Message, result.Error)
	}

	stringsXML := readFile(t, filepath.Join(root, "android", "app", "src", "main", "res", "values", "strings.xml"))
	if !strings.Contains(stringsXML, `<string name="app_name">New Name</string>`) {
		t.Errorf("app_name not rewritten: %s", stringsXML)
	}

	gradle := readFile(t, filepath.Join(root, "android", "app", "build.gradle.kts"))
	if !strings.Contains(gradle, `namespace = "com.shiny.app"`) {
		t.Errorf("namespace not rewritten: %s", gradle)
	}
	if !strings.Contains(gradle, `applicationId = "com.shiny.app"`) {
		t.Errorf("applicationId not rewritten: %s", gradle)
	}

	// MainActivity relocated under the new package path with a rewritten
	// package declaration; the old copy is gone.
	moved := filepath.Join(root, "android", "app", "src", "main", "kotlin", "com", "shiny", "app", "MainActivity.kt")
	content := readFile(t, moved)
	if !strings.HasPrefix(content, "package com.shiny.app") {
		t.Errorf("package declaration not rewritten: %s", content)
	}
	old := filepath.Join(root, "android", "app", "src", "main", "kotlin", "com", "old", "pkg", "MainActivity.kt")
	if _, err := os.Stat(old); err == nil {
		t.Error("old MainActivity.kt still present")
	}
}

func TestAndroidSetupAddsMissingAppName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "android", "app", "src", "main", "res", "values", "strings.xml"),
		"<resources>\n</resources>\n")

	step := newStep(t, TypeAndroidSetup, map[string]any{
		"update_package_id":    false,
		"update_main_activity": false,
		"apply_app_icon":       false,
	})
	result := step.Execute(context.Background(), androidSetupContext(root))
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}

	stringsXML := readFile(t, filepath.Join(root, "android", "app", "src", "main", "res", "values", "strings.xml"))
	if !strings.Contains(stringsXML, `<string name="app_name">New Name</string>`) {
		t.Errorf("app_name not inserted: %s", stringsXML)
	}
}

func TestAndroidSetupRequiresAppConfig(t *testing.T) {
	root := t.TempDir()
	scaffoldAndroidProject(t, root)

	step := newStep(t, TypeAndroidSetup, nil)
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: root})
	if result.Success {
		t.Error("setup without app config reported success")
	}
}

func TestAndroidSetupMissingFilesFails(t *testing.T) {
	root := t.TempDir()
	// Project root exists but has no android directory.

	step := newStep(t, TypeAndroidSetup, map[string]any{"apply_app_icon": false})
	result := step.Execute(context.Background(), androidSetupContext(root))
	if result.Success {
		t.Error("setup succeeded against an empty project")
	}
}

func TestAndroidSetupValidateRejectsAllDisabled(t *testing.T) {
	step := newStep(t, TypeAndroidSetup, map[string]any{
		"update_app_name":      false,
		"update_package_id":    false,
		"update_main_activity": false,
		"apply_app_icon":       false,
	})
	if err := step.Validate(); err == nil {
		t.Error("all operations disabled passed validation")
	}
}
