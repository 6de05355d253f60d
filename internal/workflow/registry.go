package workflow

import "fmt"

// Registration pairs a step type's metadata with its constructor.
type Registration struct {
	Descriptor  Descriptor
	Constructor Constructor
}

// Registry maps step-type identifiers to constructors. Registration
// happens explicitly at process init so discovery is deterministic and
// exhaustive; registering the same type twice is a configuration error.
type Registry struct {
	order   []string
	entries map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Registration),
	}
}

// Register adds a step type. It returns an error on an empty type or a
// duplicate-type collision.
func (r *Registry) Register(desc Descriptor, constructor Constructor) error {
	if desc.Type == "" {
		return fmt.Errorf("step descriptor has no type")
	}
	if _, exists := r.entries[desc.Type]; exists {
		return fmt.Errorf("step type %q registered twice", desc.Type)
	}
	if constructor == nil {
		return fmt.Errorf("step type %q has no constructor", desc.Type)
	}
	r.entries[desc.Type] = Registration{Descriptor: desc, Constructor: constructor}
	r.order = append(r.order, desc.Type)
	return nil
}

// MustRegister registers a step type and panics on error. Intended for
// process-init registration tables where a failure is a programming error.
func (r *Registry) MustRegister(desc Descriptor, constructor Constructor) {
	if err := r.Register(desc, constructor); err != nil {
		panic(err)
	}
}

// Lookup returns the registration for a step type. Unknown types return
// ok=false; they never panic.
func (r *Registry) Lookup(stepType string) (Registration, bool) {
	reg, ok := r.entries[stepType]
	return reg, ok
}

// New constructs a step instance for the given type. ok=false means the
// type is unknown and the caller should synthesize a failure result.
func (r *Registry) New(stepType string, config map[string]any, log LogFunc) (Step, bool) {
	reg, ok := r.entries[stepType]
	if !ok {
		return nil, false
	}
	return reg.Constructor(config, log), true
}

// Descriptors returns the metadata of every registered step type in
// registration order.
func (r *Registry) Descriptors() []Descriptor {
	descs := make([]Descriptor, 0, len(r.order))
	for _, t := range r.order {
		descs = append(descs, r.entries[t].Descriptor)
	}
	return descs
}

// Types returns the registered step type identifiers in registration order.
func (r *Registry) Types() []string {
	types := make([]string, len(r.order))
	copy(types, r.order)
	return types
}
