package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// TypeCopyFiles identifies the copy files step.
const TypeCopyFiles = "copy_files"

var copyFilesDescriptor = workflow.Descriptor{
	Type:        TypeCopyFiles,
	DisplayName: "Copy Files",
	Description: "Copy files or directories to a new location",
	Icon:        "Copy",
	Category:    "file",
	ConfigFields: []workflow.ConfigField{
		{
			Name:        "source",
			Label:       "Source Path/Pattern",
			Kind:        workflow.FieldString,
			Required:    true,
			Description: "Path to file/directory or glob pattern (relative to project root)",
			Placeholder: "build/**/*.apk",
		},
		{
			Name:        "destination",
			Label:       "Destination Directory",
			Kind:        workflow.FieldString,
			Required:    true,
			Description: "Destination directory (relative to project root or absolute)",
			Placeholder: "releases/",
		},
		{
			Name:        "overwrite",
			Label:       "Overwrite Existing",
			Kind:        workflow.FieldBoolean,
			Default:     false,
			Description: "Overwrite if destination files already exist",
		},
		{
			Name:        "preserveStructure",
			Label:       "Preserve Directory Structure",
			Kind:        workflow.FieldBoolean,
			Default:     false,
			Description: "Preserve relative directory structure when copying with patterns",
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

// copyFilesStep copies files or directories, glob-aware, skipping existing
// destinations unless overwrite is set.
type copyFilesStep struct {
	base
}

func newCopyFilesStep(config map[string]any, log workflow.LogFunc) workflow.Step {
	return &copyFilesStep{base: newBase(config, log)}
}

func (s *copyFilesStep) Validate() error {
	if strings.TrimSpace(s.str("source")) == "" {
		return fmt.Errorf("source path/pattern is required")
	}
	if strings.TrimSpace(s.str("destination")) == "" {
		return fmt.Errorf("destination directory is required")
	}
	return nil
}

func (s *copyFilesStep) Execute(_ context.Context, wctx *workflow.Context) workflow.Result {
	source := s.str("source")
	destination := s.str("destination")
	overwrite := s.boolOr("overwrite", false)
	preserveStructure := s.boolOr("preserveStructure", false)
	createDirs := s.boolOr("createDirs", true)

	if wctx == nil || wctx.ProjectRoot == "" {
		return failure("Project root not provided", fmt.Errorf("missing project root in workflow context"))
	}
	projectRoot := wctx.ProjectRoot

	destDir := destination
	if !filepath.IsAbs(destDir) {
		destDir = filepath.Join(projectRoot, destDir)
	}

	if createDirs {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return failuref(err, "Failed to create destination directory: %s", destDir)
		}
	} else if _, err := os.Stat(destDir); err != nil {
		return failuref(err, "Destination directory does not exist: %s", destDir)
	}

	matches, err := resolveSources(projectRoot, source)
	if err != nil {
		return failuref(err, "Failed to resolve source pattern: %s", source)
	}
	if len(matches) == 0 {
		return failure(fmt.Sprintf("No files found matching: %s", source), fmt.Errorf("no matching files"))
	}

	s.log(fmt.Sprintf("Found %d file(s) to copy", len(matches)), models.LogLevelInfo)

	var copied []map[string]string
	for _, src := range matches {
		finalDest := filepath.Join(destDir, filepath.Base(src))
		if preserveStructure {
			if rel, err := filepath.Rel(projectRoot, src); err == nil && !strings.HasPrefix(rel, "..") {
				finalDest = filepath.Join(destDir, rel)
			}
		}

		if _, err := os.Stat(finalDest); err == nil && !overwrite {
			s.log(fmt.Sprintf("Skipping %s (already exists)", filepath.Base(src)), models.LogLevelWarning)
			continue
		}

		if createDirs {
			if err := os.MkdirAll(filepath.Dir(finalDest), 0o755); err != nil {
				return failuref(err, "Failed to create directory for %s", finalDest)
			}
		}

		s.log(fmt.Sprintf("Copying %s to %s", filepath.Base(src), finalDest), models.LogLevelInfo)

		if err := copyPath(src, finalDest, overwrite); err != nil {
			return failuref(err, "Copy operation failed")
		}

		copied = append(copied, map[string]string{
			"source":      src,
			"destination": finalDest,
		})
	}

	if len(copied) == 0 {
		return failure("No files were copied (all skipped or failed)", fmt.Errorf("no files copied"))
	}

	s.log(fmt.Sprintf("Successfully copied %d file(s)", len(copied)), models.LogLevelSuccess)

	return workflow.Result{
		Success: true,
		Message: fmt.Sprintf("Copied %d file(s) to %s", len(copied), destination),
		Output: map[string]any{
			"copied_files": copied,
			"count":        len(copied),
		},
	}
}

// resolveSources expands a source spec into concrete paths. Specs with glob
// metacharacters are matched with doublestar (supports **); plain paths are
// returned when they exist.
func resolveSources(projectRoot, source string) ([]string, error) {
	pattern := source
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(projectRoot, pattern)
	}

	if !strings.ContainsAny(source, "*?[") {
		if _, err := os.Stat(pattern); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		return []string{pattern}, nil
	}

	return doublestar.FilepathGlob(filepath.ToSlash(pattern))
}

// copyPath copies a file or directory tree from src to dst.
func copyPath(src, dst string, overwrite bool) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if overwrite {
			if err := os.RemoveAll(dst); err != nil {
				return err
			}
		}
		return os.CopyFS(dst, os.DirFS(src))
	}

	return copyFile(src, dst, info.Mode())
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
