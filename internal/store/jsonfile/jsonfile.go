// Package jsonfile implements the store interfaces on top of keyed JSON
// files under the projects directory:
//
//	<projectsDir>/projects.json
//	<projectsDir>/<projectID>/apps/apps.json
//	<projectsDir>/<projectID>/apps/<appID>/build_history.json
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/store"
)

// Store is a JSON-file backed implementation of store.Store.
type Store struct {
	projectsDir string
	logger      *slog.Logger

	mu sync.Mutex

	projects *projectStore
	apps     *appStore
	history  *historyStore
}

// New creates a Store rooted at projectsDir, creating it if missing.
func New(projectsDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(projectsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating projects directory: %w", err)
	}

	s := &Store{
		projectsDir: projectsDir,
		logger:      logger,
	}
	s.projects = &projectStore{root: s}
	s.apps = &appStore{root: s}
	s.history = &historyStore{root: s}
	return s, nil
}

// Projects returns the ProjectStore.
func (s *Store) Projects() store.ProjectStore { return s.projects }

// Apps returns the AppStore.
func (s *Store) Apps() store.AppStore { return s.apps }

// History returns the HistoryStore.
func (s *Store) History() store.HistoryStore { return s.history }

// Ping verifies the projects directory is accessible.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.projectsDir); err != nil {
		return fmt.Errorf("projects directory: %w", err)
	}
	return nil
}

// AppsDir returns the per-project apps directory, where per-app assets
// such as icon archives live.
func (s *Store) AppsDir(projectID string) string {
	return filepath.Join(s.projectsDir, projectID, "apps")
}

func (s *Store) projectsFile() string {
	return filepath.Join(s.projectsDir, "projects.json")
}

func (s *Store) appsFile(projectID string) string {
	return filepath.Join(s.AppsDir(projectID), "apps.json")
}

func (s *Store) historyFile(projectID, appID string) string {
	return filepath.Join(s.AppsDir(projectID), appID, "build_history.json")
}

// readJSON decodes the file at path into v. Missing files leave v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// writeJSON encodes v to path, creating parent directories as needed.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

type projectStore struct {
	root *Store
}

func (p *projectStore) load() (map[string]*models.Project, error) {
	projects := make(map[string]*models.Project)
	if err := readJSON(p.root.projectsFile(), &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (p *projectStore) Get(id string) (*models.Project, error) {
	p.root.mu.Lock()
	defer p.root.mu.Unlock()

	projects, err := p.load()
	if err != nil {
		return nil, err
	}
	project, ok := projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	return project, nil
}

func (p *projectStore) List() ([]*models.Project, error) {
	p.root.mu.Lock()
	defer p.root.mu.Unlock()

	projects, err := p.load()
	if err != nil {
		return nil, err
	}
	list := make([]*models.Project, 0, len(projects))
	for _, project := range projects {
		list = append(list, project)
	}
	return list, nil
}

func (p *projectStore) Put(project *models.Project) error {
	p.root.mu.Lock()
	defer p.root.mu.Unlock()

	projects, err := p.load()
	if err != nil {
		return err
	}
	projects[project.ID] = project
	return writeJSON(p.root.projectsFile(), projects)
}

func (p *projectStore) Delete(id string) error {
	p.root.mu.Lock()
	defer p.root.mu.Unlock()

	projects, err := p.load()
	if err != nil {
		return err
	}
	if _, ok := projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	delete(projects, id)
	return writeJSON(p.root.projectsFile(), projects)
}

type appStore struct {
	root *Store
}

func (a *appStore) load(projectID string) (map[string]*models.App, error) {
	apps := make(map[string]*models.App)
	if err := readJSON(a.root.appsFile(projectID), &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (a *appStore) Get(appID string) (*models.App, error) {
	a.root.mu.Lock()
	defer a.root.mu.Unlock()

	projects := make(map[string]*models.Project)
	if err := readJSON(a.root.projectsFile(), &projects); err != nil {
		return nil, err
	}

	for projectID := range projects {
		apps, err := a.load(projectID)
		if err != nil {
			return nil, err
		}
		if app, ok := apps[appID]; ok {
			return app, nil
		}
	}
	return nil, fmt.Errorf("app %s: %w", appID, store.ErrNotFound)
}

func (a *appStore) List(projectID string) ([]*models.App, error) {
	a.root.mu.Lock()
	defer a.root.mu.Unlock()

	apps, err := a.load(projectID)
	if err != nil {
		return nil, err
	}
	list := make([]*models.App, 0, len(apps))
	for _, app := range apps {
		list = append(list, app)
	}
	return list, nil
}

func (a *appStore) Put(app *models.App) error {
	if app.ProjectID == "" {
		return fmt.Errorf("app %s has no project id", app.ID)
	}

	a.root.mu.Lock()
	defer a.root.mu.Unlock()

	apps, err := a.load(app.ProjectID)
	if err != nil {
		return err
	}
	apps[app.ID] = app
	return writeJSON(a.root.appsFile(app.ProjectID), apps)
}

func (a *appStore) Delete(projectID, appID string) error {
	a.root.mu.Lock()
	defer a.root.mu.Unlock()

	apps, err := a.load(projectID)
	if err != nil {
		return err
	}
	if _, ok := apps[appID]; !ok {
		return fmt.Errorf("app %s: %w", appID, store.ErrNotFound)
	}
	delete(apps, appID)
	return writeJSON(a.root.appsFile(projectID), apps)
}
