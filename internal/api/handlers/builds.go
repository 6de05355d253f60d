package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forgelabs/appforge/internal/build"
)

// BuildHandler handles build pipeline requests.
type BuildHandler struct {
	service   *build.Service
	outputDir string
	logger    *slog.Logger
}

// NewBuildHandler creates a build handler.
func NewBuildHandler(service *build.Service, outputDir string, logger *slog.Logger) *BuildHandler {
	return &BuildHandler{service: service, outputDir: outputDir, logger: logger}
}

type startBuildRequest struct {
	AppID      string `json:"app_id"`
	Platform   string `json:"platform"`
	BuildType  string `json:"build_type"`
	OutputType string `json:"output_type"`
}

// Start kicks off a build and blocks until the pipeline finishes. The
// client follows progress over the websocket feed; this response carries
// the final outcome.
func (h *BuildHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.AppID == "" || req.Platform == "" {
		WriteBadRequest(w, "app_id and platform are required")
		return
	}
	if req.BuildType == "" {
		req.BuildType = "release"
	}
	if req.OutputType == "" {
		req.OutputType = defaultOutputType(req.Platform)
	}

	// The pipeline keeps running even if the client goes away; only an
	// explicit stop cancels it.
	result, err := h.service.Start(context.WithoutCancel(r.Context()), req.AppID, req.Platform, req.BuildType, req.OutputType)
	if err != nil {
		if errors.Is(err, build.ErrBusy) {
			WriteConflict(w, err.Error())
			return
		}
		h.logger.Error("build failed", "app_id", req.AppID, "platform", req.Platform, "error", err)
		WriteJSON(w, http.StatusOK, map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Stop terminates the active build.
func (h *BuildHandler) Stop(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": h.service.Stop()})
}

// Status reports whether a build is active and returns its log buffer.
func (h *BuildHandler) Status(w http.ResponseWriter, r *http.Request) {
	building, buildID, entries := h.service.Status()
	WriteJSON(w, http.StatusOK, map[string]any{
		"is_building": building,
		"build_id":    buildID,
		"logs":        entries,
	})
}

// Logs returns the buffered log entries of a build.
func (h *BuildHandler) Logs(w http.ResponseWriter, r *http.Request) {
	buildID := chi.URLParam(r, "buildID")
	WriteJSON(w, http.StatusOK, map[string]any{
		"build_id": buildID,
		"logs":     h.service.Logs(buildID),
	})
}

// Download streams a finished build artifact by filename.
func (h *BuildHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	// Artifact names are generated server-side; reject anything that
	// escapes the output directory.
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		WriteBadRequest(w, "invalid filename")
		return
	}

	path := filepath.Join(h.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		WriteNotFound(w, "Artifact not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}

func defaultOutputType(platform string) string {
	if platform == "android" {
		return "apk"
	}
	return platform
}
