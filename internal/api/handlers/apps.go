package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/platform"
	"github.com/forgelabs/appforge/internal/store"
)

// AppHandler handles app configuration CRUD requests.
type AppHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewAppHandler creates an app handler.
func NewAppHandler(st store.Store, logger *slog.Logger) *AppHandler {
	return &AppHandler{store: st, logger: logger}
}

type appRequest struct {
	AppName       string                         `json:"appName"`
	PackageID     string                         `json:"packageId"`
	Platforms     []string                       `json:"platforms"`
	BuildSettings map[string]*models.AppPlatform `json:"buildSettings"`
}

func validatePlatforms(platforms []string) error {
	for _, p := range platforms {
		if !platform.IsSupported(p) {
			return errors.New("unsupported platform: " + p)
		}
	}
	return nil
}

// Create adds an app configuration to a project.
func (h *AppHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := h.store.Projects().Get(projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Project not found")
			return
		}
		h.logger.Error("failed to get project", "error", err)
		WriteInternalError(w, "Failed to get project")
		return
	}

	var req appRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.AppName == "" {
		WriteBadRequest(w, "appName is required")
		return
	}
	if err := validatePlatforms(req.Platforms); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	now := time.Now()
	app := &models.App{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		AppName:       req.AppName,
		PackageID:     req.PackageID,
		Platforms:     req.Platforms,
		BuildSettings: req.BuildSettings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.store.Apps().Put(app); err != nil {
		h.logger.Error("failed to create app", "error", err)
		WriteInternalError(w, "Failed to create app")
		return
	}

	WriteJSON(w, http.StatusCreated, app)
}

// List returns all apps of a project.
func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.store.Apps().List(chi.URLParam(r, "projectID"))
	if err != nil {
		h.logger.Error("failed to list apps", "error", err)
		WriteInternalError(w, "Failed to list apps")
		return
	}
	WriteJSON(w, http.StatusOK, apps)
}

// Get returns one app by ID.
func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.store.Apps().Get(chi.URLParam(r, "appID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "App not found")
			return
		}
		h.logger.Error("failed to get app", "error", err)
		WriteInternalError(w, "Failed to get app")
		return
	}
	WriteJSON(w, http.StatusOK, app)
}

// Update replaces the mutable fields of an app configuration.
func (h *AppHandler) Update(w http.ResponseWriter, r *http.Request) {
	app, err := h.store.Apps().Get(chi.URLParam(r, "appID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "App not found")
			return
		}
		h.logger.Error("failed to get app", "error", err)
		WriteInternalError(w, "Failed to get app")
		return
	}

	var req appRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Platforms != nil {
		if err := validatePlatforms(req.Platforms); err != nil {
			WriteBadRequest(w, err.Error())
			return
		}
		app.Platforms = req.Platforms
	}
	if req.AppName != "" {
		app.AppName = req.AppName
	}
	if req.PackageID != "" {
		app.PackageID = req.PackageID
	}
	if req.BuildSettings != nil {
		app.BuildSettings = req.BuildSettings
	}
	app.UpdatedAt = time.Now()

	if err := h.store.Apps().Put(app); err != nil {
		h.logger.Error("failed to update app", "error", err)
		WriteInternalError(w, "Failed to update app")
		return
	}
	WriteJSON(w, http.StatusOK, app)
}

// Delete removes an app configuration from its project.
func (h *AppHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	appID := chi.URLParam(r, "appID")
	if err := h.store.Apps().Delete(projectID, appID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "App not found")
			return
		}
		h.logger.Error("failed to delete app", "error", err)
		WriteInternalError(w, "Failed to delete app")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": appID})
}

// History returns the build history for an app, newest first.
func (h *AppHandler) History(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	appID := chi.URLParam(r, "appID")

	records, err := h.store.History().List(projectID, appID, 0)
	if err != nil {
		h.logger.Error("failed to list build history", "error", err)
		WriteInternalError(w, "Failed to list build history")
		return
	}
	WriteJSON(w, http.StatusOK, records)
}
