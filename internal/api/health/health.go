// Package health provides health check functionality for API components.
package health

import (
	"context"
	"net/http"
	"os/exec"
	"time"

	"github.com/forgelabs/appforge/internal/api/handlers"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is an interface for components that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs health checks for the storage layer and the Flutter
// toolchain.
type Checker struct {
	storage    Pinger
	flutterBin string
	startTime  time.Time
	version    string
	timeout    time.Duration
}

// NewChecker creates a new health checker.
func NewChecker(storage Pinger, flutterBin, version string) *Checker {
	return &Checker{
		storage:    storage,
		flutterBin: flutterBin,
		startTime:  time.Now(),
		version:    version,
		timeout:    5 * time.Second,
	}
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	components := map[string]ComponentStatus{
		"storage": c.checkStorage(checkCtx),
		"flutter": c.checkFlutter(),
	}

	overall := StatusHealthy
	for _, comp := range components {
		switch comp.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	return &Response{
		Status:     overall,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func (c *Checker) checkStorage(ctx context.Context) ComponentStatus {
	if c.storage == nil {
		return ComponentStatus{Status: StatusDegraded, Message: "storage not configured"}
	}
	if err := c.storage.Ping(ctx); err != nil {
		return ComponentStatus{Status: StatusUnhealthy, Message: err.Error()}
	}
	return ComponentStatus{Status: StatusHealthy}
}

// checkFlutter degrades rather than fails: the API still serves
// configuration CRUD when the toolchain is missing.
func (c *Checker) checkFlutter() ComponentStatus {
	if _, err := exec.LookPath(c.flutterBin); err != nil {
		return ComponentStatus{Status: StatusDegraded, Message: "flutter binary not found"}
	}
	return ComponentStatus{Status: StatusHealthy}
}

// Handler returns an HTTP handler serving the health check.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Check(r.Context())
		status := http.StatusOK
		if resp.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		handlers.WriteJSON(w, status, resp)
	}
}
