package steps

import (
	"archive/zip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// TypeAndroidSetup identifies the Android setup step.
const TypeAndroidSetup = "android_setup"

var androidSetupDescriptor = workflow.Descriptor{
	Type:        TypeAndroidSetup,
	DisplayName: "Android Setup",
	Description: "Configure Android project: app name, package ID, MainActivity, and app icon",
	Icon:        "Hammer",
	Category:    "build",
	ConfigFields: []workflow.ConfigField{
		{
			Name:        "update_app_name",
			Label:       "Update App Name",
			Kind:        workflow.FieldBoolean,
			Default:     true,
			Description: "Update app name in android/app/src/main/res/values/strings.xml",
		},
		{
			Name:        "update_package_id",
			Label:       "Update Package ID",
			Kind:        workflow.FieldBoolean,
			Default:     true,
			Description: "Update package ID in android/app/build.gradle.kts (namespace and applicationId)",
		},
		{
			Name:        "update_main_activity",
			Label:       "Update MainActivity",
			Kind:        workflow.FieldBoolean,
			Default:     true,
			Description: "Update MainActivity.kt package declaration and move to correct folder structure",
		},
		{
			Name:        "apply_app_icon",
			Label:       "Apply App Icon",
			Kind:        workflow.FieldBoolean,
			Default:     true,
			Description: "Extract and apply app icon from res.zip to android/app/src/main/res",
		},
		{
			Name:        "res_zip_file",
			Label:       "App Icon (res.zip)",
			Kind:        workflow.FieldFile,
			Description: "Upload res.zip containing mipmap folders for Android app icons",
			Accept:      ".zip",
		},
	},
}

var (
	appNameStringRe   = regexp.MustCompile(`<string name=["']app_name["']>.*?</string>`)
	namespaceRe       = regexp.MustCompile(`namespace\s*=\s*"[^"]*"`)
	applicationIDRe   = regexp.MustCompile(`applicationId\s*=\s*"[^"]*"`)
	packageDeclPrefix = "package "
)

// androidSetupStep mutates Android project files before a build: app-name
// text substitution, package-id substitutions in the gradle build file,
// MainActivity relocation into the package-derived directory and icon
// resource extraction from a res.zip archive.
type androidSetupStep struct {
	base
}

func newAndroidSetupStep(config map[string]any, log workflow.LogFunc) workflow.Step {
	return &androidSetupStep{base: newBase(config, log)}
}

func (s *androidSetupStep) Validate() error {
	if !s.boolOr("update_app_name", true) &&
		!s.boolOr("update_package_id", true) &&
		!s.boolOr("update_main_activity", true) &&
		!s.boolOr("apply_app_icon", true) {
		return fmt.Errorf("at least one setup operation must be enabled")
	}
	return nil
}

func (s *androidSetupStep) Execute(_ context.Context, wctx *workflow.Context) workflow.Result {
	if wctx == nil || wctx.ProjectRoot == "" {
		return failure("Project root not found", fmt.Errorf("missing project root in workflow context"))
	}
	if _, err := os.Stat(wctx.ProjectRoot); err != nil {
		return failuref(err, "Project root path does not exist: %s", wctx.ProjectRoot)
	}
	if wctx.App == nil {
		return failure("App configuration not provided", fmt.Errorf("app config is required in context"))
	}

	s.log("Starting Android setup...", models.LogLevelInfo)

	var operations []string
	var errs []string

	if s.boolOr("update_app_name", true) {
		s.log("Updating app name in strings.xml...", models.LogLevelInfo)
		if err := s.updateAppName(wctx.ProjectRoot, wctx.App); err != nil {
			errs = append(errs, fmt.Sprintf("failed to update app name: %v", err))
			s.log(fmt.Sprintf("Failed to update app name: %v", err), models.LogLevelError)
		} else {
			operations = append(operations, "app_name")
			s.log("App name updated successfully", models.LogLevelSuccess)
		}
	}

	if s.boolOr("update_package_id", true) {
		s.log("Updating package ID in build.gradle.kts...", models.LogLevelInfo)
		if err := s.updatePackageID(wctx.ProjectRoot, wctx.App); err != nil {
			errs = append(errs, fmt.Sprintf("failed to update package ID: %v", err))
			s.log(fmt.Sprintf("Failed to update package ID: %v", err), models.LogLevelError)
		} else {
			operations = append(operations, "package_id")
			s.log("Package ID updated successfully", models.LogLevelSuccess)
		}
	}

	if s.boolOr("update_main_activity", true) {
		s.log("Updating MainActivity.kt package and location...", models.LogLevelInfo)
		if err := s.updateMainActivity(wctx.ProjectRoot, wctx.App); err != nil {
			errs = append(errs, fmt.Sprintf("failed to update MainActivity: %v", err))
			s.log(fmt.Sprintf("Failed to update MainActivity: %v", err), models.LogLevelError)
		} else {
			operations = append(operations, "main_activity")
			s.log("MainActivity.kt updated successfully", models.LogLevelSuccess)
		}
	}

	if s.boolOr("apply_app_icon", true) {
		s.log("Applying app icon...", models.LogLevelInfo)
		applied, err := s.applyAppIcon(wctx.ProjectRoot, wctx.AppID, wctx.AppsDir)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("failed to apply app icon: %v", err))
			s.log(fmt.Sprintf("Failed to apply app icon: %v", err), models.LogLevelWarning)
		case applied:
			operations = append(operations, "app_icon")
			s.log("App icon applied successfully", models.LogLevelSuccess)
		default:
			s.log("No res.zip found, skipping app icon", models.LogLevelInfo)
		}
	}

	if len(errs) > 0 {
		return workflow.Result{
			Success: false,
			Message: "Android setup completed with errors",
			Output:  map[string]any{"operations": operations, "errors": errs},
			Error:   strings.Join(errs, "; "),
		}
	}

	s.log("Android setup completed successfully!", models.LogLevelSuccess)
	return workflow.Result{
		Success: true,
		Message: "Android setup completed: " + strings.Join(operations, ", "),
		Output:  map[string]any{"operations": operations},
	}
}

// updateAppName substitutes the app_name string resource, adding it when
// absent.
func (s *androidSetupStep) updateAppName(projectRoot string, app *models.App) error {
	stringsPath := filepath.Join(projectRoot, "android", "app", "src", "main", "res", "values", "strings.xml")

	data, err := os.ReadFile(stringsPath)
	if err != nil {
		return fmt.Errorf("strings.xml not found at %s: %w", stringsPath, err)
	}
	content := string(data)

	appName := app.AppName
	if appName == "" {
		appName = "App"
	}
	replacement := fmt.Sprintf(`<string name="app_name">%s</string>`, appName)

	switch {
	case appNameStringRe.MatchString(content):
		content = appNameStringRe.ReplaceAllString(content, replacement)
	case strings.Contains(content, "<resources>") && strings.Contains(content, "</resources>"):
		content = strings.Replace(content, "</resources>",
			"    "+replacement+"\n</resources>", 1)
	default:
		return fmt.Errorf("could not find or add app_name string in strings.xml")
	}

	return os.WriteFile(stringsPath, []byte(content), 0o644)
}

// updatePackageID rewrites namespace and applicationId in build.gradle.kts.
func (s *androidSetupStep) updatePackageID(projectRoot string, app *models.App) error {
	gradlePath := filepath.Join(projectRoot, "android", "app", "build.gradle.kts")

	data, err := os.ReadFile(gradlePath)
	if err != nil {
		return fmt.Errorf("build.gradle.kts not found at %s: %w", gradlePath, err)
	}

	if app.PackageID == "" {
		return fmt.Errorf("packageId not found in app config")
	}

	content := string(data)
	content = namespaceRe.ReplaceAllString(content, fmt.Sprintf(`namespace = "%s"`, app.PackageID))
	content = applicationIDRe.ReplaceAllString(content, fmt.Sprintf(`applicationId = "%s"`, app.PackageID))

	return os.WriteFile(gradlePath, []byte(content), 0o644)
}

// updateMainActivity rewrites MainActivity.kt's package declaration and
// relocates the file into the directory derived from the package id.
func (s *androidSetupStep) updateMainActivity(projectRoot string, app *models.App) error {
	if app.PackageID == "" {
		return fmt.Errorf("packageId not found in app config")
	}

	kotlinBase := filepath.Join(projectRoot, "android", "app", "src", "main", "kotlin")
	packageDir := filepath.Join(append([]string{kotlinBase}, strings.Split(app.PackageID, ".")...)...)

	if err := os.MkdirAll(packageDir, 0o755); err != nil {
		return err
	}

	src, err := findMainActivity(kotlinBase)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	updated := rewritePackageDecl(string(data), app.PackageID)

	dst := filepath.Join(packageDir, "MainActivity.kt")
	if err := os.WriteFile(dst, []byte(updated), 0o644); err != nil {
		return err
	}

	if src != dst {
		if err := os.Remove(src); err != nil {
			return err
		}
		// Best effort: drop the old directory when it is now empty.
		os.Remove(filepath.Dir(src))
	}
	return nil
}

func findMainActivity(kotlinBase string) (string, error) {
	var found string
	err := filepath.WalkDir(kotlinBase, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "MainActivity.kt" {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("MainActivity.kt not found")
	}
	return found, nil
}

// rewritePackageDecl replaces the package declaration, inserting one before
// the first non-import statement when the file has none.
func rewritePackageDecl(content, packageID string) string {
	lines := strings.Split(content, "\n")
	updated := make([]string, 0, len(lines)+2)
	inHeader := true

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case inHeader && strings.HasPrefix(trimmed, packageDeclPrefix):
			updated = append(updated, packageDeclPrefix+packageID)
			inHeader = false
		case inHeader && (strings.HasPrefix(trimmed, "import ") || trimmed == ""):
			updated = append(updated, line)
		case inHeader:
			updated = append(updated, packageDeclPrefix+packageID, "", line)
			inHeader = false
		default:
			updated = append(updated, line)
		}
	}
	return strings.Join(updated, "\n")
}

// applyAppIcon extracts mipmap folders from a res.zip archive over the
// Android res directory. The archive comes from an uploaded payload in the
// step config or from the conventional per-app asset path. Returns false
// when no archive is available.
func (s *androidSetupStep) applyAppIcon(projectRoot, appID, appsDir string) (bool, error) {
	resDst := filepath.Join(projectRoot, "android", "app", "src", "main", "res")

	if payload, ok := s.config["res_zip_file"].(map[string]any); ok {
		if data, ok := payload["data"].(string); ok && data != "" {
			name, _ := payload["filename"].(string)
			if name == "" {
				name = "unknown"
			}
			s.log("Using uploaded res.zip: "+name, models.LogLevelInfo)
			return s.extractBase64Zip(data, resDst)
		}
	}

	if appsDir != "" && appID != "" {
		zipPath := filepath.Join(appsDir, appID, "android", "app_icon", "res.zip")
		if _, err := os.Stat(zipPath); err == nil {
			s.log("Using res.zip from default location: "+zipPath, models.LogLevelInfo)
			return s.extractZipFile(zipPath, resDst)
		}
	}

	return false, nil
}

func (s *androidSetupStep) extractBase64Zip(encoded, resDst string) (bool, error) {
	// Strip a data URL prefix such as "data:application/zip;base64,".
	if idx := strings.Index(encoded, ","); idx >= 0 {
		encoded = encoded[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, fmt.Errorf("decoding res.zip payload: %w", err)
	}

	tmp, err := os.CreateTemp("", "res-*.zip")
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	return s.extractZipFile(tmpPath, resDst)
}

// extractZipFile unpacks the archive and copies any mipmap folders, found
// at the archive root or inside a res/ subfolder, over the existing ones.
func (s *androidSetupStep) extractZipFile(zipPath, resDst string) (bool, error) {
	tmpDir, err := os.MkdirTemp("", "res-zip-")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(tmpDir)

	if err := extractZip(zipPath, tmpDir); err != nil {
		return false, err
	}

	sourceDir := tmpDir
	if info, err := os.Stat(filepath.Join(tmpDir, "res")); err == nil && info.IsDir() {
		sourceDir = filepath.Join(tmpDir, "res")
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return false, err
	}

	found := false
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "mipmap") {
			continue
		}
		dst := filepath.Join(resDst, entry.Name())
		if err := os.RemoveAll(dst); err != nil {
			return found, err
		}
		if err := os.CopyFS(dst, os.DirFS(filepath.Join(sourceDir, entry.Name()))); err != nil {
			return found, err
		}
		found = true
		s.log("Copied "+entry.Name()+" to Android res", models.LogLevelInfo)
	}

	return found, nil
}

func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(destDir, file.Name)
		// Reject entries escaping the extraction root.
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry escapes extraction directory: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := file.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode().Perm())
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		out.Close()
		rc.Close()
	}
	return nil
}
