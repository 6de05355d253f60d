package workflow

import (
	"testing"
)

func nopConstructor(config map[string]any, log LogFunc) Step {
	return fakeStep{config: config}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Descriptor{Type: "one", DisplayName: "One"}, nopConstructor); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	reg, ok := r.Lookup("one")
	if !ok {
		t.Fatal("Lookup() did not find registered type")
	}
	if reg.Descriptor.DisplayName != "One" {
		t.Errorf("DisplayName = %q, want %q", reg.Descriptor.DisplayName, "One")
	}

	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup() found an unregistered type")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Descriptor{Type: "dup"}, nopConstructor); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register(Descriptor{Type: "dup"}, nopConstructor); err == nil {
		t.Error("duplicate Register() did not error")
	}
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Descriptor{Type: ""}, nopConstructor); err == nil {
		t.Error("empty type accepted")
	}
	if err := r.Register(Descriptor{Type: "ok"}, nil); err == nil {
		t.Error("nil constructor accepted")
	}
}

func TestRegistryDescriptorsPreserveOrder(t *testing.T) {
	r := NewRegistry()
	for _, typ := range []string{"c", "a", "b"} {
		if err := r.Register(Descriptor{Type: typ}, nopConstructor); err != nil {
			t.Fatalf("Register(%q) error = %v", typ, err)
		}
	}

	descs := r.Descriptors()
	want := []string{"c", "a", "b"}
	if len(descs) != len(want) {
		t.Fatalf("got %d descriptors, want %d", len(descs), len(want))
	}
	for i, d := range descs {
		if d.Type != want[i] {
			t.Errorf("descriptor %d = %q, want %q", i, d.Type, want[i])
		}
	}
}

func TestRegistryNewUnknownType(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.New("ghost", nil, nil); ok {
		t.Error("New() constructed an unregistered type")
	}
}
