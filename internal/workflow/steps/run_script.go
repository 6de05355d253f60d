package steps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// TypeRunScript identifies the run script step.
const TypeRunScript = "run_script"

// defaultShell and defaultScriptTimeout apply when neither the step
// configuration nor the registry options pick a value.
const (
	defaultShell         = "/bin/bash"
	defaultScriptTimeout = 300 * time.Second
)

var runScriptDescriptor = workflow.Descriptor{
	Type:        TypeRunScript,
	DisplayName: "Run Script",
	Description: "Execute a shell command or script",
	Icon:        "Terminal",
	Category:    "utility",
	ConfigFields: []workflow.ConfigField{
		{
			Name:        "script",
			Label:       "Script",
			Kind:        workflow.FieldTextarea,
			Required:    true,
			Description: "Shell command or script to execute",
			Placeholder: "echo 'Hello World'\nls -la",
		},
		{
			Name:        "workingDir",
			Label:       "Working Directory",
			Kind:        workflow.FieldString,
			Description: "Directory to run the script in (relative to project root). Leave empty for project root.",
			Placeholder: ".",
		},
		{
			Name:        "timeout",
			Label:       "Timeout (seconds)",
			Kind:        workflow.FieldNumber,
			Default:     300,
			Description: "Maximum execution time in seconds (default: 300)",
		},
		{
			Name:        "failOnError",
			Label:       "Fail on Error",
			Kind:        workflow.FieldBoolean,
			Default:     true,
			Description: "Fail the step if the script returns a non-zero exit code",
		},
		{
			Name:        "shell",
			Label:       "Shell",
			Kind:        workflow.FieldSelect,
			Default:     "/bin/bash",
			Description: "Shell to use for execution",
			Options: []workflow.FieldOption{
				{Value: "/bin/bash", Label: "Bash"},
				{Value: "/bin/sh", Label: "sh"},
				{Value: "/bin/zsh", Label: "Zsh"},
			},
		},
	},
}

// runScriptStep spawns a shell, streams combined stdout/stderr line-by-line
// to the log sink and enforces a timeout.
type runScriptStep struct {
	base
	defaults defaults
}

func newRunScriptStep(config map[string]any, log workflow.LogFunc, d defaults) workflow.Step {
	return &runScriptStep{base: newBase(config, log), defaults: d}
}

func (s *runScriptStep) Validate() error {
	if strings.TrimSpace(s.str("script")) == "" {
		return fmt.Errorf("script is required")
	}
	if timeout := s.intOr("timeout", 300); timeout <= 0 {
		return fmt.Errorf("timeout must be a positive number")
	}
	return nil
}

func (s *runScriptStep) Execute(ctx context.Context, wctx *workflow.Context) workflow.Result {
	script := s.str("script")
	workingDir := s.str("workingDir")
	failOnError := s.boolOr("failOnError", true)
	shell := s.strOr("shell", s.defaults.shell)

	timeout := s.defaults.scriptTimeout
	if t := s.intOr("timeout", 0); t > 0 {
		timeout = time.Duration(t) * time.Second
	}

	if wctx == nil || wctx.ProjectRoot == "" {
		return failure("Project root not provided", fmt.Errorf("missing project root in workflow context"))
	}

	cwd := wctx.ProjectRoot
	if workingDir != "" {
		cwd = filepath.Join(wctx.ProjectRoot, workingDir)
	}
	if _, err := os.Stat(cwd); err != nil {
		return failuref(err, "Working directory does not exist: %s", cwd)
	}

	s.log(fmt.Sprintf("Executing script in %s", cwd), models.LogLevelInfo)
	s.log("Script:\n"+script, models.LogLevelTerminal)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, shell, "-c", script)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), envList(wctx.Env)...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		return failuref(err, "Script execution failed")
	}

	waitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitCh <- err
	}()

	var outputLines []string
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		outputLines = append(outputLines, line)
		s.log(line, models.LogLevelTerminal)
	}

	waitErr := <-waitCh

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return workflow.Result{
			Success: false,
			Message: fmt.Sprintf("Script timed out after %d seconds", int(timeout.Seconds())),
			Error:   "execution timeout",
			Output:  map[string]any{"stdout": strings.Join(outputLines, "\n")},
		}
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return failuref(waitErr, "Script execution failed")
		}
	}

	success := exitCode == 0 || !failOnError

	if exitCode != 0 {
		level := models.LogLevelError
		if !failOnError {
			level = models.LogLevelWarning
		}
		s.log(fmt.Sprintf("Script exited with code %d", exitCode), level)
	} else {
		s.log("Script completed successfully", models.LogLevelSuccess)
	}

	result := workflow.Result{
		Success: success,
		Message: fmt.Sprintf("Script %s with exit code %d", completedOrFailed(success), exitCode),
		Output: map[string]any{
			"exit_code": exitCode,
			"stdout":    strings.Join(outputLines, "\n"),
		},
	}
	if !success {
		result.Error = fmt.Sprintf("exit code: %d", exitCode)
	}
	return result
}

func completedOrFailed(success bool) string {
	if success {
		return "completed"
	}
	return "failed"
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	return list
}
