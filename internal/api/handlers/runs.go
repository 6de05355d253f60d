package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/run"
)

// RunHandler handles live run session requests.
type RunHandler struct {
	service *run.Service
	logger  *slog.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(service *run.Service, logger *slog.Logger) *RunHandler {
	return &RunHandler{service: service, logger: logger}
}

type startRunRequest struct {
	DeviceID  string `json:"device_id"`
	ProjectID string `json:"project_id"`
	AppID     string `json:"app_id"`
	Mode      string `json:"mode"`
}

// Start launches flutter run on a device.
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	runID, err := h.service.Start(r.Context(), req.DeviceID, req.ProjectID, req.AppID, req.Mode)
	if err != nil {
		if errors.Is(err, run.ErrBusy) {
			WriteConflict(w, err.Error())
			return
		}
		h.logger.Error("failed to start run session", "device_id", req.DeviceID, "error", err)
		WriteBadRequest(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "running",
		"run_id":     runID,
		"device":     req.DeviceID,
		"project_id": req.ProjectID,
	})
}

// Stop quits the active run session.
func (h *RunHandler) Stop(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": h.service.Stop()})
}

// HotReload triggers a hot reload on the active session.
func (h *RunHandler) HotReload(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HotReload(); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "reloading"})
}

// HotRestart triggers a hot restart on the active session.
func (h *RunHandler) HotRestart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HotRestart(); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "restarting"})
}

// Status reports the current run session state.
func (h *RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	running, deviceID, projectID := h.service.Status()
	resp := map[string]any{
		"is_running": running,
		"device":     nil,
		"project_id": nil,
	}
	if running {
		resp["device"] = deviceID
		resp["project_id"] = projectID
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Logs returns the buffered logs of the current or last session.
func (h *RunHandler) Logs(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"logs": h.service.Logs()})
}

// Devices lists connected devices, filtered to the project's platforms
// when a project_id query parameter is present.
func (h *RunHandler) Devices(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	devices := h.service.Devices(r.Context(), projectID)
	if devices == nil {
		devices = []models.Device{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"devices": devices})
}
