// Package toolchain supervises Flutter CLI invocations: streamed one-shot
// commands and machine-readable device discovery.
package toolchain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ExitError reports a toolchain command that exited non-zero.
type ExitError struct {
	Command string
	Code    int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
}

// LineFunc receives one line of combined stdout/stderr output.
type LineFunc func(line string)

// Runner executes a toolchain command, streaming its combined output
// line-by-line. Implementations must return an *ExitError for non-zero
// exits so callers can distinguish toolchain failures from spawn failures.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string, onLine LineFunc) error
}

// defaultWaitDelay bounds how long Run waits for the output pipe after
// the supervised process exits. Flutter is a wrapper script; a dart
// descendant can inherit the pipe and outlive it.
const defaultWaitDelay = 10 * time.Second

// CommandRunner is the real Runner. It tracks the currently supervised
// process so an external Stop call can signal it while the caller blocks
// on output. Children run in their own process group so signals reach
// the whole toolchain process tree, not just the wrapper script.
type CommandRunner struct {
	logger    *slog.Logger
	waitDelay time.Duration

	mu      sync.Mutex
	current *os.Process
	done    chan struct{}
}

// NewCommandRunner creates a CommandRunner.
func NewCommandRunner(logger *slog.Logger) *CommandRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRunner{logger: logger, waitDelay: defaultWaitDelay}
}

// Run starts argv in dir and blocks until the process exits, invoking
// onLine for every output line. Output arrives incrementally; lines are
// delivered in order.
func (r *CommandRunner) Run(ctx context.Context, dir string, argv []string, onLine LineFunc) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = r.waitDelay
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("starting %s: %w", argv[0], err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.current = cmd.Process
	r.done = done
	r.mu.Unlock()

	waitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitCh <- err
	}()

	if onLine != nil {
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				onLine(line)
			}
		}
	} else {
		io.Copy(io.Discard, pr)
	}

	waitErr := <-waitCh
	close(done)

	r.mu.Lock()
	r.current = nil
	r.done = nil
	r.mu.Unlock()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Command: argv[0], Code: exitErr.ExitCode()}
		}
		// The process exited cleanly but a descendant kept the output
		// pipe open past the wait delay.
		if errors.Is(waitErr, exec.ErrWaitDelay) {
			return nil
		}
		return fmt.Errorf("waiting for %s: %w", argv[0], waitErr)
	}
	return nil
}

// Stop terminates the currently supervised process group, escalating to a
// kill when it does not exit within grace. Signaling the group covers the
// dart descendants the flutter wrapper script spawns. It reports whether
// a process was signaled.
func (r *CommandRunner) Stop(grace time.Duration) bool {
	r.mu.Lock()
	process := r.current
	done := r.done
	r.mu.Unlock()

	if process == nil {
		return false
	}

	if err := syscall.Kill(-process.Pid, syscall.SIGTERM); err != nil {
		r.logger.Debug("terminate signal failed", "pid", process.Pid, "error", err)
		return false
	}

	select {
	case <-done:
	case <-time.After(grace):
		r.logger.Warn("process group did not exit after terminate, killing", "pid", process.Pid)
		syscall.Kill(-process.Pid, syscall.SIGKILL)
	}
	return true
}
