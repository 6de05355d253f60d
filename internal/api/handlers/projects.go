package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/store"
)

// ProjectHandler handles project CRUD requests.
type ProjectHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewProjectHandler creates a project handler.
func NewProjectHandler(st store.Store, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{store: st, logger: logger}
}

type createProjectRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Create registers a Flutter project checkout with the server.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" || req.Path == "" {
		WriteBadRequest(w, "name and path are required")
		return
	}
	if info, err := os.Stat(req.Path); err != nil || !info.IsDir() {
		WriteBadRequest(w, "path does not exist or is not a directory")
		return
	}

	project := &models.Project{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Path:      req.Path,
		CreatedAt: time.Now(),
	}
	if err := h.store.Projects().Put(project); err != nil {
		h.logger.Error("failed to create project", "error", err)
		WriteInternalError(w, "Failed to create project")
		return
	}

	WriteJSON(w, http.StatusCreated, project)
}

// List returns all registered projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.Projects().List()
	if err != nil {
		h.logger.Error("failed to list projects", "error", err)
		WriteInternalError(w, "Failed to list projects")
		return
	}
	WriteJSON(w, http.StatusOK, projects)
}

// Get returns one project by ID.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.Projects().Get(chi.URLParam(r, "projectID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Project not found")
			return
		}
		h.logger.Error("failed to get project", "error", err)
		WriteInternalError(w, "Failed to get project")
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// Update renames a project or repoints its checkout path.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.Projects().Get(chi.URLParam(r, "projectID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Project not found")
			return
		}
		h.logger.Error("failed to get project", "error", err)
		WriteInternalError(w, "Failed to get project")
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Name != "" {
		project.Name = req.Name
	}
	if req.Path != "" {
		if info, err := os.Stat(req.Path); err != nil || !info.IsDir() {
			WriteBadRequest(w, "path does not exist or is not a directory")
			return
		}
		project.Path = req.Path
	}

	if err := h.store.Projects().Put(project); err != nil {
		h.logger.Error("failed to update project", "error", err)
		WriteInternalError(w, "Failed to update project")
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// Delete removes a project registration. Apps under the project are
// removed with it; the checkout on disk is left alone.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := h.store.Projects().Delete(projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Project not found")
			return
		}
		h.logger.Error("failed to delete project", "error", err)
		WriteInternalError(w, "Failed to delete project")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": projectID})
}
