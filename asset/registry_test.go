package asset

import (
	"testing"

	"github.com/brightloom/corerender/object"
)

type noopBehavior struct{ defined bool }

func (b *noopBehavior) Define(obj *object.Object, width, height int)   { b.defined = true }
func (b *noopBehavior) Generate(obj *object.Object, width, height int) {}
func (b *noopBehavior) Run(obj *object.Object, t float32) error        { return nil }

func testFactories() map[object.Kind]Factory {
	return map[object.Kind]Factory{
		object.KindMesh:     func() object.Behavior { return &noopBehavior{} },
		object.KindMaterial: func() object.Behavior { return &noopBehavior{} },
	}
}

func TestAddObjectCallsDefine(t *testing.T) {
	r := NewRegistry(testFactories())
	obj, err := r.AddObject(object.KindMesh, "m1")
	if err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if !obj.Behavior.(*noopBehavior).defined {
		t.Fatal("AddObject should call Define once on construction")
	}
}

func TestAddObjectUnknownKind(t *testing.T) {
	r := NewRegistry(testFactories())
	if _, err := r.AddObject(object.Kind("zzzz"), "x"); err == nil {
		t.Fatal("AddObject with an unregistered kind should fail loudly")
	}
}

func TestAddObjectDuplicateName(t *testing.T) {
	r := NewRegistry(testFactories())
	if _, err := r.AddObject(object.KindMesh, "dup"); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if _, err := r.AddObject(object.KindMesh, "dup"); err == nil {
		t.Fatal("AddObject with a duplicate name should fail")
	}
}

func TestFindObjAndGetObj(t *testing.T) {
	r := NewRegistry(testFactories())
	obj, _ := r.AddObject(object.KindMesh, "m1")
	got, ok := r.FindObj("m1")
	if !ok || got != obj {
		t.Fatalf("FindObj(m1) = %v, %v; want %v, true", got, ok, obj)
	}
	if g := r.GetObj(obj.ID); g != obj {
		t.Fatalf("GetObj(%v) = %v, want %v", obj.ID, g, obj)
	}
	if g := r.GetObj(object.ID(999)); g != nil {
		t.Fatal("GetObj with an out-of-range id should return nil")
	}
}

func TestFindObjMiss(t *testing.T) {
	r := NewRegistry(testFactories())
	if _, ok := r.FindObj("nope"); ok {
		t.Fatal("FindObj miss should report ok=false, not an error")
	}
}

func TestDeleteObjectNullsSlotWithoutCompacting(t *testing.T) {
	r := NewRegistry(testFactories())
	a, _ := r.AddObject(object.KindMesh, "a")
	b, _ := r.AddObject(object.KindMesh, "b")
	r.DeleteObject(a)

	if r.GetObj(a.ID) != nil {
		t.Fatal("deleted object's slot should be nil")
	}
	if r.GetObj(b.ID) != b {
		t.Fatal("deleting a should not disturb b's slot")
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 after deleting one of two objects", r.Count())
	}
}

func TestCount(t *testing.T) {
	r := NewRegistry(testFactories())
	if r.Count() != 0 {
		t.Fatalf("Count() on empty registry = %d, want 0", r.Count())
	}
	r.AddObject(object.KindMesh, "a")
	r.AddObject(object.KindMesh, "b")
	if r.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", r.Count())
	}
}
