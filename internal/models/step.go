package models

// StepConfig is the step configuration payload consumed from callers.
// Config carries the step-type specific settings declared by the step's
// config fields.
type StepConfig struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Config map[string]any `json:"config"`
}

// DisplayName returns the configured name, falling back to the step type.
func (s StepConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Type
}
