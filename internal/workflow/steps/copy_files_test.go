package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgelabs/appforge/internal/workflow"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newStep(t *testing.T, stepType string, config map[string]any) workflow.Step {
	t.Helper()
	step, ok := NewRegistry().New(stepType, config, nil)
	if !ok {
		t.Fatalf("step type %q is not registered", stepType)
	}
	return step
}

func TestCopyFilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "hello")

	step := newStep(t, TypeCopyFiles, map[string]any{
		"source":      src,
		"destination": dst,
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Message)
	}
	if got := readFile(t, filepath.Join(dst, "a.txt")); got != "hello" {
		t.Errorf("copied content = %q, want %q", got, "hello")
	}
	// Source stays in place.
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source removed by copy: %v", err)
	}
}

func TestCopyFilesGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "src", "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "src", "c.log"), "c")
	dst := filepath.Join(dir, "dst")

	step := newStep(t, TypeCopyFiles, map[string]any{
		"source":      filepath.Join(dir, "src", "*.txt"),
		"destination": dst,
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Message)
	}

	for _, name := range []string{"a.txt", "b.txt"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("%s not copied: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "c.log")); err == nil {
		t.Error("c.log copied despite not matching the glob")
	}
}

func TestCopyFilesSkipsExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(dst, "a.txt"), "old")

	step := newStep(t, TypeCopyFiles, map[string]any{
		"source":      src,
		"destination": dst,
		"overwrite":   false,
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	// Every match was skipped, which the step reports as a failure.
	if result.Success {
		t.Error("all-skipped copy reported success")
	}
	if got := readFile(t, filepath.Join(dst, "a.txt")); got != "old" {
		t.Errorf("existing file clobbered without overwrite: got %q", got)
	}
}

func TestCopyFilesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(dst, "a.txt"), "old")

	step := newStep(t, TypeCopyFiles, map[string]any{
		"source":      src,
		"destination": dst,
		"overwrite":   true,
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Message)
	}
	if got := readFile(t, filepath.Join(dst, "a.txt")); got != "new" {
		t.Errorf("overwrite did not replace file: got %q", got)
	}
}

func TestCopyFilesValidation(t *testing.T) {
	step := newStep(t, TypeCopyFiles, map[string]any{"source": "", "destination": "x"})
	if err := step.Validate(); err == nil {
		t.Error("empty source accepted")
	}
	step = newStep(t, TypeCopyFiles, map[string]any{"source": "x", "destination": ""})
	if err := step.Validate(); err == nil {
		t.Error("empty destination accepted")
	}
}

func TestCopyFilesMissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, TypeCopyFiles, map[string]any{
		"source":      filepath.Join(dir, "missing.txt"),
		"destination": filepath.Join(dir, "dst"),
	})
	result := step.Execute(context.Background(), &workflow.Context{ProjectRoot: dir})
	if result.Success {
		t.Error("copy of a missing source reported success")
	}
}
