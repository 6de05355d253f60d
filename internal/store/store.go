// Package store provides persistence interfaces for projects, apps and
// build history. The build and run services consult these as external
// collaborators; the jsonfile subpackage is the file-backed implementation.
package store

import (
	"errors"

	"github.com/forgelabs/appforge/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// ProjectStore defines operations for project records.
type ProjectStore interface {
	// Get retrieves a project by ID.
	Get(id string) (*models.Project, error)
	// List retrieves all projects.
	List() ([]*models.Project, error)
	// Put creates or replaces a project.
	Put(project *models.Project) error
	// Delete removes a project.
	Delete(id string) error
}

// AppStore defines operations for app records scoped by project.
type AppStore interface {
	// Get retrieves an app by ID, searching all projects.
	Get(appID string) (*models.App, error)
	// List retrieves all apps for a project.
	List(projectID string) ([]*models.App, error)
	// Put creates or replaces an app within its project.
	Put(app *models.App) error
	// Delete removes an app from a project.
	Delete(projectID, appID string) error
}

// HistoryStore defines append-only build history per app.
type HistoryStore interface {
	// Append prepends a record to the app's history, evicting the oldest
	// entry beyond the retention cap.
	Append(projectID, appID string, record *models.BuildRecord) error
	// List returns up to limit records, newest first. limit <= 0 means all
	// retained records.
	List(projectID, appID string, limit int) ([]*models.BuildRecord, error)
}

// Store aggregates the persistence interfaces.
type Store interface {
	// Projects returns the ProjectStore for project operations.
	Projects() ProjectStore
	// Apps returns the AppStore for app operations.
	Apps() AppStore
	// History returns the HistoryStore for build history operations.
	History() HistoryStore
}
