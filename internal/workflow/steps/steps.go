// Package steps contains the built-in workflow step implementations and
// their registration table.
package steps

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// defaults are the registry-wide fallbacks steps use when their
// configuration leaves a field empty.
type defaults struct {
	shell         string
	scriptTimeout time.Duration
}

// Option adjusts the registry-wide step defaults.
type Option func(*defaults)

// WithShell sets the shell scripts run under when a step does not pick
// one. Empty keeps the built-in default.
func WithShell(shell string) Option {
	return func(d *defaults) {
		if shell != "" {
			d.shell = shell
		}
	}
}

// WithScriptTimeout sets the fallback script execution timeout. Zero or
// negative keeps the built-in default.
func WithScriptTimeout(timeout time.Duration) Option {
	return func(d *defaults) {
		if timeout > 0 {
			d.scriptTimeout = timeout
		}
	}
}

// NewRegistry returns the registry of every compiled-in step type. Each
// type registers exactly once; the table is the single source of truth for
// step discovery.
func NewRegistry(opts ...Option) *workflow.Registry {
	d := defaults{shell: defaultShell, scriptTimeout: defaultScriptTimeout}
	for _, opt := range opts {
		opt(&d)
	}

	r := workflow.NewRegistry()
	r.MustRegister(customArgsDescriptor, newCustomArgsStep)
	r.MustRegister(copyFilesDescriptor, newCopyFilesStep)
	r.MustRegister(moveFileDescriptor, newMoveFileStep)
	r.MustRegister(runScriptDescriptor, func(config map[string]any, log workflow.LogFunc) workflow.Step {
		return newRunScriptStep(config, log, d)
	})
	r.MustRegister(androidSetupDescriptor, newAndroidSetupStep)
	return r
}

// base carries the configuration map and log sink shared by all steps.
type base struct {
	config map[string]any
	log    workflow.LogFunc
}

func newBase(config map[string]any, log workflow.LogFunc) base {
	if config == nil {
		config = map[string]any{}
	}
	if log == nil {
		log = func(string, models.LogLevel) {}
	}
	return base{config: config, log: log}
}

func (b base) str(key string) string {
	return cast.ToString(b.config[key])
}

func (b base) boolOr(key string, fallback bool) bool {
	v, ok := b.config[key]
	if !ok || v == nil {
		return fallback
	}
	return cast.ToBool(v)
}

func (b base) intOr(key string, fallback int) int {
	v, ok := b.config[key]
	if !ok || v == nil {
		return fallback
	}
	return cast.ToInt(v)
}

func (b base) strOr(key, fallback string) string {
	if s := b.str(key); s != "" {
		return s
	}
	return fallback
}

func failure(message string, err error) workflow.Result {
	errMsg := message
	if err != nil {
		errMsg = err.Error()
	}
	return workflow.Result{Success: false, Message: message, Error: errMsg}
}

func failuref(err error, format string, args ...any) workflow.Result {
	return failure(fmt.Sprintf(format, args...), err)
}
