package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// TypeMoveFile identifies the move file step.
const TypeMoveFile = "move_file"

var moveFileDescriptor = workflow.Descriptor{
	Type:        TypeMoveFile,
	DisplayName: "Move File",
	Description: "Move a file or directory to a new location",
	Icon:        "FileOutput",
	Category:    "file",
	ConfigFields: []workflow.ConfigField{
		{
			Name:        "source",
			Label:       "Source Path",
			Kind:        workflow.FieldString,
			Required:    true,
			Description: "Path to the file or directory to move (relative to project root)",
			Placeholder: "build/app/outputs/flutter-apk/app-release.apk",
		},
		{
			Name:        "destination",
			Label:       "Destination Path",
			Kind:        workflow.FieldString,
			Required:    true,
			Description: "Destination path (relative to project root or absolute)",
			Placeholder: "releases/app.apk",
		},
		{
			Name:        "overwrite",
			Label:       "Overwrite Existing",
			Kind:        workflow.FieldBoolean,
			Default:     false,
			Description: "Overwrite if destination already exists",
		},
		{
			Name:        "createDirs",
			Label:       "Create Directories",
			Kind:        workflow.FieldBoolean,
			Default:     true,
			Description: "Create destination directories if they don't exist",
		},
	},
}

// moveFileStep moves a single file or directory, creating destination
// directories when configured.
type moveFileStep struct {
	base
}

func newMoveFileStep(config map[string]any, log workflow.LogFunc) workflow.Step {
	return &moveFileStep{base: newBase(config, log)}
}

func (s *moveFileStep) Validate() error {
	if strings.TrimSpace(s.str("source")) == "" {
		return fmt.Errorf("source path is required")
	}
	if strings.TrimSpace(s.str("destination")) == "" {
		return fmt.Errorf("destination path is required")
	}
	return nil
}

func (s *moveFileStep) Execute(_ context.Context, wctx *workflow.Context) workflow.Result {
	source := s.str("source")
	destination := s.str("destination")
	overwrite := s.boolOr("overwrite", false)
	createDirs := s.boolOr("createDirs", true)

	if wctx == nil || wctx.ProjectRoot == "" {
		return failure("Project root not provided", fmt.Errorf("missing project root in workflow context"))
	}
	projectRoot := wctx.ProjectRoot

	srcPath := source
	if !filepath.IsAbs(srcPath) {
		srcPath = filepath.Join(projectRoot, srcPath)
	}
	destPath := destination
	if !filepath.IsAbs(destPath) {
		destPath = filepath.Join(projectRoot, destPath)
	}

	if _, err := os.Stat(srcPath); err != nil {
		return failure(fmt.Sprintf("Source does not exist: %s", srcPath), fmt.Errorf("file not found: %s", source))
	}

	if _, err := os.Stat(destPath); err == nil {
		if !overwrite {
			return failure(fmt.Sprintf("Destination already exists: %s", destPath),
				fmt.Errorf("destination exists and overwrite is disabled"))
		}
		if err := os.RemoveAll(destPath); err != nil {
			return failuref(err, "Failed to remove existing destination: %s", destPath)
		}
	}

	if createDirs {
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return failuref(err, "Failed to create destination directory")
		}
	} else if _, err := os.Stat(filepath.Dir(destPath)); err != nil {
		return failuref(err, "Destination directory does not exist: %s", filepath.Dir(destPath))
	}

	s.log(fmt.Sprintf("Moving %s to %s", srcPath, destPath), models.LogLevelInfo)

	if err := moveTree(srcPath, destPath); err != nil {
		return failuref(err, "Move operation failed")
	}

	s.log(fmt.Sprintf("Successfully moved to %s", destPath), models.LogLevelSuccess)

	return workflow.Result{
		Success: true,
		Message: fmt.Sprintf("Moved %s to %s", source, destination),
		Output: map[string]any{
			"source":      srcPath,
			"destination": destPath,
		},
	}
}

// moveTree renames src to dst, falling back to copy-and-delete when the
// rename crosses filesystems.
func moveTree(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
			return err
		}
	} else {
		if err := copyFile(src, dst, info.Mode()); err != nil {
			return err
		}
	}
	return os.RemoveAll(src)
}
