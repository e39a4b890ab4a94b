package scene

import (
	"testing"

	"github.com/brightloom/corerender/asset"
	"github.com/brightloom/corerender/object"
)

type countingBehavior struct{ runs *int }

func (b countingBehavior) Define(obj *object.Object, width, height int)   {}
func (b countingBehavior) Generate(obj *object.Object, width, height int) {}
func (b countingBehavior) Run(obj *object.Object, t float32) error {
	*b.runs++
	obj.MarkClean()
	return nil
}

// selfDirtying never converges, exercising the fixed-point bailout.
type selfDirtying struct{}

func (selfDirtying) Define(obj *object.Object, width, height int)   {}
func (selfDirtying) Generate(obj *object.Object, width, height int) {}
func (selfDirtying) Run(obj *object.Object, t float32) error {
	obj.MarkDirty() // never cleans: dirty count never decreases
	return nil
}

func newTestRegistry(behavior func() object.Behavior) *asset.Registry {
	return asset.NewRegistry(map[object.Kind]asset.Factory{
		object.KindMesh: behavior,
	})
}

func TestAddIsIdempotent(t *testing.T) {
	reg := newTestRegistry(func() object.Behavior { return countingBehavior{runs: new(int)} })
	s := New("test", reg)
	obj, _ := reg.AddObject(object.KindMesh, "a")
	s.Add(obj.ID)
	s.Add(obj.ID)
	if len(s.List()) != 1 {
		t.Fatalf("len(List()) = %d, want 1 (Add should be idempotent)", len(s.List()))
	}
}

func TestRemove(t *testing.T) {
	reg := newTestRegistry(func() object.Behavior { return countingBehavior{runs: new(int)} })
	s := New("test", reg)
	a, _ := reg.AddObject(object.KindMesh, "a")
	b, _ := reg.AddObject(object.KindMesh, "b")
	s.Add(a.ID)
	s.Add(b.ID)
	s.Remove(a.ID)
	if len(s.List()) != 1 || s.List()[0] != b.ID {
		t.Fatalf("List() after Remove = %v, want [%v]", s.List(), b.ID)
	}
}

func TestExecuteRunsDirtyObjectsUntilStable(t *testing.T) {
	reg := newTestRegistry(func() object.Behavior { return countingBehavior{runs: new(int)} })
	s := New("test", reg)
	obj, _ := reg.AddObject(object.KindMesh, "a")
	s.Add(obj.ID)

	// AddObject leaves the object dirty; Execute with advance=false should
	// run it once and stabilize with no further dirty objects.
	if err := s.Execute(false, 0, 0, false); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if obj.IsDirty() {
		t.Fatal("object should be clean after Execute stabilizes")
	}
}

func TestExecuteAdvanceRespectsTimeRange(t *testing.T) {
	reg := newTestRegistry(func() object.Behavior { return countingBehavior{runs: new(int)} })
	s := New("test", reg)
	obj, _ := reg.AddObject(object.KindMesh, "a")
	obj.DeclareInput("time", object.InputTime)
	obj.TimeRange = object.TimeRange{Start: 1, End: 2}
	obj.MarkClean()
	s.Add(obj.ID)

	if err := s.Execute(true, 0, 0, false); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if obj.IsDirty() {
		t.Fatal("object outside its time range should be marked clean, not run")
	}

	if err := s.Execute(true, 1.5, 0, false); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if obj.IsDirty() {
		t.Fatal("object should have been run and cleaned when t falls inside its time range")
	}
}

func TestExecuteBailsOutOnNonConvergingFixedPoint(t *testing.T) {
	reg := asset.NewRegistry(map[object.Kind]asset.Factory{
		object.KindMesh: func() object.Behavior { return selfDirtying{} },
	})
	s := New("test", reg)
	obj, _ := reg.AddObject(object.KindMesh, "a")
	s.Add(obj.ID)

	if err := s.Execute(false, 0, 0, false); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestRegistryAccessor(t *testing.T) {
	reg := newTestRegistry(func() object.Behavior { return countingBehavior{runs: new(int)} })
	s := New("test", reg)
	if s.Registry() != reg {
		t.Fatal("Registry() should return the backing registry")
	}
}
