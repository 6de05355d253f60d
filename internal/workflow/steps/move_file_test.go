package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgelabs/appforge/internal/workflow"
)

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	step := newStep(t, TypeMoveFile, map[string]any{
		"source":      "a.txt",
		"destination": "out/b.txt",
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Message)
	}
	if got := readFile(t, filepath.Join(dir, "out", "b.txt")); got != "hello" {
		t.Errorf("moved content = %q, want %q", got, "hello")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err == nil {
		t.Error("source still exists after move")
	}
}

func TestMoveFileRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "new")
	writeFile(t, filepath.Join(dir, "b.txt"), "old")

	step := newStep(t, TypeMoveFile, map[string]any{
		"source":      "a.txt",
		"destination": "b.txt",
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if result.Success {
		t.Error("move onto existing destination succeeded without overwrite")
	}
	if got := readFile(t, filepath.Join(dir, "b.txt")); got != "old" {
		t.Errorf("destination clobbered: got %q", got)
	}
}

func TestMoveFileOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "new")
	writeFile(t, filepath.Join(dir, "b.txt"), "old")

	step := newStep(t, TypeMoveFile, map[string]any{
		"source":      "a.txt",
		"destination": "b.txt",
		"overwrite":   true,
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Message)
	}
	if got := readFile(t, filepath.Join(dir, "b.txt")); got != "new" {
		t.Errorf("overwrite move content = %q, want %q", got, "new")
	}
}

func TestMoveFileMovesDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "nested", "a.txt"), "x")

	step := newStep(t, TypeMoveFile, map[string]any{
		"source":      "src",
		"destination": "dst",
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Message)
	}
	if got := readFile(t, filepath.Join(dir, "dst", "nested", "a.txt")); got != "x" {
		t.Errorf("directory move content = %q, want %q", got, "x")
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()

	step := newStep(t, TypeMoveFile, map[string]any{
		"source":      "nope.txt",
		"destination": "b.txt",
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if result.Success {
		t.Error("move of a missing source reported success")
	}
}

func TestMoveFileValidation(t *testing.T) {
	step := newStep(t, TypeMoveFile, map[string]any{"source": " ", "destination": "x"})
	if err := step.Validate(); err == nil {
		t.Error("blank source accepted")
	}
}
