package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgelabs/appforge/internal/logs"
	"github.com/forgelabs/appforge/internal/models"
)

// StepStatus is the per-step state machine:
// pending -> running -> {success, error, skipped}.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
	StepSkipped StepStatus = "skipped"
)

// RunStatus is the terminal state of a whole workflow run.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusSuccess RunStatus = "success"
	StatusError   RunStatus = "error"
	StatusStopped RunStatus = "stopped"
)

// StepOutcome pairs a step's identifier with its result.
type StepOutcome struct {
	StepID string `json:"step_id"`
	Result Result `json:"result"`
}

// RunResult is the aggregate outcome of one workflow execution.
type RunResult struct {
	RunID           string            `json:"run_id"`
	Status          RunStatus         `json:"status"`
	Message         string            `json:"message"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	DurationSeconds int               `json:"duration"`
	Steps           []StepOutcome     `json:"step_results"`
	Logs            []models.LogEntry `json:"logs"`
}

// Executor runs ordered step lists with stop-on-error semantics, per-step
// status events and cooperative cancellation. One execution is active at a
// time; the stop flag is checked between steps, never mid-step.
type Executor struct {
	registry *Registry
	emitter  logs.Emitter
	logger   *slog.Logger

	mu           sync.Mutex
	running      bool
	shouldStop   bool
	currentRunID string
	runLogs      map[string][]models.LogEntry
}

// NewExecutor creates a workflow executor publishing events to emitter.
func NewExecutor(registry *Registry, emitter logs.Emitter, logger *slog.Logger) *Executor {
	if emitter == nil {
		emitter = logs.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		emitter:  emitter,
		logger:   logger,
		runLogs:  make(map[string][]models.LogEntry),
	}
}

// Execute runs the step list with full bookkeeping: run id, workflow and
// per-step status events and a per-run log buffer.
func (e *Executor) Execute(ctx context.Context, name string, steps []models.StepConfig, wctx *Context, stopOnError bool) *RunResult {
	runID := uuid.NewString()
	start := time.Now()

	e.mu.Lock()
	e.running = true
	e.shouldStop = false
	e.currentRunID = runID
	e.runLogs[runID] = nil
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.currentRunID = ""
		e.mu.Unlock()
	}()

	if wctx != nil {
		wctx.RunID = runID
	}

	e.log(runID, fmt.Sprintf("Starting workflow: %s", name), models.LogLevelInfo, "", nil)
	e.emitWorkflowStatus(runID, StatusRunning, fmt.Sprintf("Starting workflow: %s", name))

	if len(steps) == 0 {
		e.log(runID, "Workflow has no steps", models.LogLevelWarning, "", nil)
		e.emitWorkflowStatus(runID, StatusSuccess, "Workflow has no steps")
		return e.buildResult(runID, StatusSuccess, "Workflow has no steps", start, nil)
	}

	e.log(runID, fmt.Sprintf("Executing %d step(s)", len(steps)), models.LogLevelInfo, "", nil)

	var outcomes []StepOutcome
	failed := false
	stopped := false

	for index, cfg := range steps {
		if e.stopRequested() || ctx.Err() != nil {
			stopped = true
			break
		}

		stepID := stepIdentifier(cfg, index)
		idx := index
		stepLog := func(message string, level models.LogLevel) {
			e.log(runID, message, level, stepID, &idx)
		}

		e.log(runID, fmt.Sprintf("Step %d/%d: %s", index+1, len(steps), cfg.DisplayName()), models.LogLevelInfo, stepID, &idx)
		e.emitStepStatus(runID, stepID, index, StepRunning, nil)

		result := e.runStep(ctx, cfg, wctx, stepLog)
		outcomes = append(outcomes, StepOutcome{StepID: stepID, Result: result})

		if result.Success {
			e.log(runID, fmt.Sprintf("Step completed: %s", result.Message), models.LogLevelSuccess, stepID, &idx)
			e.emitStepStatus(runID, stepID, index, StepSuccess, &result)
			continue
		}

		e.log(runID, fmt.Sprintf("Step failed: %s", result.Message), models.LogLevelError, stepID, &idx)
		e.emitStepStatus(runID, stepID, index, StepError, &result)

		if stopOnError {
			failed = true
			break
		}
	}

	// Steps that never started are reported skipped, never running.
	if failed || stopped {
		for index := len(outcomes); index < len(steps); index++ {
			e.emitStepStatus(runID, stepIdentifier(steps[index], index), index, StepSkipped, nil)
		}
	}

	switch {
	case stopped:
		e.log(runID, "Workflow stopped by user", models.LogLevelWarning, "", nil)
		e.emitWorkflowStatus(runID, StatusStopped, "Workflow stopped by user")
		return e.buildResult(runID, StatusStopped, "Stopped by user", start, outcomes)
	case failed:
		e.log(runID, "Workflow failed", models.LogLevelError, "", nil)
		e.emitWorkflowStatus(runID, StatusError, "Workflow failed")
		return e.buildResult(runID, StatusError, "Workflow failed", start, outcomes)
	default:
		allOK := true
		for _, o := range outcomes {
			allOK = allOK && o.Result.Success
		}
		if !allOK {
			e.log(runID, "Workflow completed with failed steps", models.LogLevelError, "", nil)
			e.emitWorkflowStatus(runID, StatusError, "Workflow completed with failed steps")
			return e.buildResult(runID, StatusError, "Workflow completed with failed steps", start, outcomes)
		}
		e.log(runID, "Workflow completed successfully", models.LogLevelSuccess, "", nil)
		e.emitWorkflowStatus(runID, StatusSuccess, "Workflow completed successfully")
		return e.buildResult(runID, StatusSuccess, "Workflow completed successfully", start, outcomes)
	}
}

// ExecuteSteps is the reduced form used by the build and run pipelines for
// pre/post hooks: same per-step semantics, no run id or status events.
// It reports overall success (the logical AND of all step successes) and
// the per-step outcomes.
func (e *Executor) ExecuteSteps(ctx context.Context, steps []models.StepConfig, wctx *Context, logFn LogFunc, stopOnError bool) (bool, []StepOutcome) {
	if len(steps) == 0 {
		return true, nil
	}
	if logFn == nil {
		logFn = func(string, models.LogLevel) {}
	}

	var outcomes []StepOutcome
	allSuccess := true

	for index, cfg := range steps {
		if ctx.Err() != nil {
			break
		}

		stepID := stepIdentifier(cfg, index)
		name := cfg.DisplayName()
		logFn(fmt.Sprintf("Executing step %d/%d: %s", index+1, len(steps), name), models.LogLevelInfo)

		stepLog := func(message string, level models.LogLevel) {
			logFn(fmt.Sprintf("  [%s] %s", name, message), level)
		}

		result := e.runStep(ctx, cfg, wctx, stepLog)
		outcomes = append(outcomes, StepOutcome{StepID: stepID, Result: result})

		if result.Success {
			logFn(fmt.Sprintf("Step completed: %s", result.Message), models.LogLevelSuccess)
			continue
		}

		logFn(fmt.Sprintf("Step failed: %s", result.Message), models.LogLevelError)
		allSuccess = false
		if stopOnError {
			break
		}
	}

	return allSuccess, outcomes
}

// runStep instantiates, validates and executes one step inside a failure
// boundary. Unknown types and invalid configs synthesize an error result
// without calling Execute; a panic during Execute becomes an error result
// and never propagates.
func (e *Executor) runStep(ctx context.Context, cfg models.StepConfig, wctx *Context, log LogFunc) (result Result) {
	step, ok := e.registry.New(cfg.Type, cfg.Config, log)
	if !ok {
		msg := fmt.Sprintf("unknown step type: %s", cfg.Type)
		log(msg, models.LogLevelError)
		return Result{Success: false, Message: msg, Error: msg}
	}

	if err := step.Validate(); err != nil {
		msg := fmt.Sprintf("step validation failed: %v", err)
		log(msg, models.LogLevelError)
		return Result{Success: false, Message: msg, Error: err.Error()}
	}

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("step execution error: %v", rec)
			log(msg, models.LogLevelError)
			result = Result{Success: false, Message: msg, Error: fmt.Sprint(rec)}
		}
	}()

	return step.Execute(ctx, wctx)
}

// Stop requests cooperative cancellation of the active workflow run. The
// flag is honored before the next step starts. It returns the run id being
// stopped, or ok=false when nothing is running.
func (e *Executor) Stop() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return "", false
	}
	e.shouldStop = true
	return e.currentRunID, true
}

// Status reports whether a workflow is executing and its run id.
func (e *Executor) Status() (running bool, runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running, e.currentRunID
}

// Logs returns the buffered log entries of a run.
func (e *Executor) Logs(runID string) []models.LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.runLogs[runID]
	out := make([]models.LogEntry, len(entries))
	copy(out, entries)
	return out
}

func (e *Executor) stopRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shouldStop
}

func (e *Executor) log(runID, message string, level models.LogLevel, stepID string, stepIndex *int) {
	entry := models.NewLogEntry(message, level)
	entry.StepID = stepID
	entry.StepIndex = stepIndex

	e.mu.Lock()
	e.runLogs[runID] = append(e.runLogs[runID], entry)
	e.mu.Unlock()

	e.logger.Info("workflow log", "run_id", runID, "level", level, "message", message)

	e.emitter.Emit(logs.EventWorkflowLog, map[string]any{
		"run_id":    runID,
		"log_entry": entry,
	})
}

func (e *Executor) emitStepStatus(runID, stepID string, stepIndex int, status StepStatus, result *Result) {
	payload := map[string]any{
		"run_id":     runID,
		"step_id":    stepID,
		"step_index": stepIndex,
		"status":     status,
	}
	if result != nil {
		payload["result"] = map[string]any{
			"success": result.Success,
			"message": result.Message,
			"error":   result.Error,
		}
	}
	e.emitter.Emit(logs.EventWorkflowStepStatus, payload)
}

func (e *Executor) emitWorkflowStatus(runID string, status RunStatus, message string) {
	e.emitter.Emit(logs.EventWorkflowStatus, map[string]any{
		"run_id":  runID,
		"status":  status,
		"message": message,
	})
}

func (e *Executor) buildResult(runID string, status RunStatus, message string, start time.Time, outcomes []StepOutcome) *RunResult {
	end := time.Now()
	return &RunResult{
		RunID:           runID,
		Status:          status,
		Message:         message,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: int(end.Sub(start).Seconds()),
		Steps:           outcomes,
		Logs:            e.Logs(runID),
	}
}

func stepIdentifier(cfg models.StepConfig, index int) string {
	if cfg.ID != "" {
		return cfg.ID
	}
	return fmt.Sprintf("step_%d", index)
}
