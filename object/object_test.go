package object

import "testing"

type noopBehavior struct{}

func (noopBehavior) Define(obj *Object, width, height int)   {}
func (noopBehavior) Generate(obj *Object, width, height int) {}
func (noopBehavior) Run(obj *Object, t float32) error        { return nil }

func TestNewIsDirtyAndIncomplete(t *testing.T) {
	o := New(0, "a", KindMesh, noopBehavior{})
	if !o.IsDirty() {
		t.Fatal("a newly constructed object should start dirty")
	}
	if o.IsComplete() {
		t.Fatal("a newly constructed object should not start complete")
	}
	if o.Output != Null {
		t.Fatalf("Output = %v, want Null", o.Output)
	}
}

func TestMarkDirtyCleanRoundTrip(t *testing.T) {
	o := New(0, "a", KindMesh, noopBehavior{})
	o.MarkClean()
	if o.IsDirty() {
		t.Fatal("MarkClean should clear the dirty bit")
	}
	o.MarkDirty()
	if !o.IsDirty() {
		t.Fatal("MarkDirty should set the dirty bit")
	}
}

func TestIsTimeDependentRequiresInputZero(t *testing.T) {
	o := New(0, "a", KindCamera, noopBehavior{})
	if o.IsTimeDependent() {
		t.Fatal("object with no inputs should not be time dependent")
	}
	o.DeclareInput("mesh", InputMesh)
	if o.IsTimeDependent() {
		t.Fatal("a non-time input at index 0 should not make the object time dependent")
	}

	o2 := New(1, "b", KindCamera, noopBehavior{})
	o2.DeclareInput("time", InputTime)
	if !o2.IsTimeDependent() {
		t.Fatal("a time input at index 0 should make the object time dependent")
	}
}

func TestInputIndex(t *testing.T) {
	o := New(0, "a", KindMesh, noopBehavior{})
	o.DeclareInput("first", InputAny)
	o.DeclareInput("second", InputAny)
	if idx := o.InputIndex("second"); idx != 1 {
		t.Fatalf("InputIndex(second) = %d, want 1", idx)
	}
	if idx := o.InputIndex("missing"); idx != -1 {
		t.Fatalf("InputIndex(missing) = %d, want -1", idx)
	}
}

func TestIdentityTransformLocal(t *testing.T) {
	tr := IdentityTransform()
	m := tr.Local()
	id := m
	if id[0] != 1 || id[5] != 1 || id[10] != 1 || id[15] != 1 {
		t.Fatalf("identity transform's Local() is not the identity matrix: %v", m)
	}
}
