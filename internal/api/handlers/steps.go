package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// StepHandler serves step type metadata and ad-hoc workflow execution.
type StepHandler struct {
	registry *workflow.Registry
	executor *workflow.Executor
	logger   *slog.Logger
}

// NewStepHandler creates a step handler.
func NewStepHandler(registry *workflow.Registry, executor *workflow.Executor, logger *slog.Logger) *StepHandler {
	return &StepHandler{registry: registry, executor: executor, logger: logger}
}

// ListTypes returns the descriptors of every registered step type in
// registration order. Configuration UIs render forms from these.
func (h *StepHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"steps": h.registry.Descriptors(),
	})
}

type executeWorkflowRequest struct {
	Name        string              `json:"name"`
	ProjectID   string              `json:"project_id"`
	ProjectRoot string              `json:"project_root"`
	AppID       string              `json:"app_id"`
	Steps       []models.StepConfig `json:"steps"`
	StopOnError *bool               `json:"stop_on_error"`
}

// Execute runs an ad-hoc workflow of configured steps.
func (h *StepHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.Steps) == 0 {
		WriteBadRequest(w, "steps are required")
		return
	}

	stopOnError := true
	if req.StopOnError != nil {
		stopOnError = *req.StopOnError
	}

	wctx := &workflow.Context{
		ProjectID:   req.ProjectID,
		ProjectRoot: req.ProjectRoot,
		AppID:       req.AppID,
	}

	result := h.executor.Execute(r.Context(), req.Name, req.Steps, wctx, stopOnError)
	WriteJSON(w, http.StatusOK, result)
}

// Stop requests cancellation of the running workflow.
func (h *StepHandler) Stop(w http.ResponseWriter, r *http.Request) {
	runID, stopped := h.executor.Stop()
	if !stopped {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "no_active_workflow"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "stopping", "run_id": runID})
}

// Status reports whether a workflow run is active.
func (h *StepHandler) Status(w http.ResponseWriter, r *http.Request) {
	running, runID := h.executor.Status()
	WriteJSON(w, http.StatusOK, map[string]any{
		"is_running": running,
		"run_id":     runID,
	})
}

// Logs returns the buffered log entries of a workflow run.
func (h *StepHandler) Logs(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"logs":   h.executor.Logs(runID),
	})
}
