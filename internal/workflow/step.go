// Package workflow defines the step contract and the executor that runs
// ordered step lists around build and run pipelines.
package workflow

import (
	"context"

	"github.com/forgelabs/appforge/internal/models"
)

// LogFunc receives log lines produced while a step executes.
type LogFunc func(message string, level models.LogLevel)

// Result is returned by every step execution. The executor never mutates
// a Result, it only aggregates them.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Output  map[string]any `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Step is one configurable unit of work. Validate must be side-effect-free
// and is always checked before Execute.
type Step interface {
	// Validate checks the step configuration. A nil error means the step
	// may execute.
	Validate() error
	// Execute runs the step against the shared pipeline context.
	Execute(ctx context.Context, wctx *Context) Result
}

// Constructor builds a step instance from its configuration and log sink.
// Instances are owned by the executor for one execution and discarded after.
type Constructor func(config map[string]any, log LogFunc) Step

// FieldKind enumerates the config field input kinds published for UI
// consumption.
type FieldKind string

const (
	FieldString      FieldKind = "string"
	FieldNumber      FieldKind = "number"
	FieldBoolean     FieldKind = "boolean"
	FieldSelect      FieldKind = "select"
	FieldMultiSelect FieldKind = "multiselect"
	FieldTextarea    FieldKind = "textarea"
	FieldFile        FieldKind = "file"
)

// FieldOption is one choice of a select or multiselect field.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ConfigField declares the shape of one step configuration value.
type ConfigField struct {
	Name        string        `json:"name"`
	Label       string        `json:"label"`
	Kind        FieldKind     `json:"type"`
	Required    bool          `json:"required"`
	Default     any           `json:"default,omitempty"`
	Description string        `json:"description,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Accept      string        `json:"accept,omitempty"`
}

// Descriptor is the static metadata of a step type, immutable once
// registered.
type Descriptor struct {
	Type         string        `json:"type"`
	DisplayName  string        `json:"displayName"`
	Description  string        `json:"description"`
	Icon         string        `json:"icon,omitempty"`
	Category     string        `json:"category"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Context is the execution context shared by every step of one pipeline
// run. Steps may read any field; additions a step produces for others are
// harvested from its Result by the pipeline owner, not injected back here.
type Context struct {
	ProjectID   string
	ProjectRoot string
	AppID       string
	App         *models.App
	AppsDir     string
	RunID       string
	Env         map[string]string

	// Values carries keys appended mid-pipeline by the pipeline owner,
	// such as the output path and filename once known.
	Values map[string]any
}

// SetValue records a pipeline-owned key on the context.
func (c *Context) SetValue(key string, v any) {
	if c.Values == nil {
		c.Values = make(map[string]any)
	}
	c.Values[key] = v
}
