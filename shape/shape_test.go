package shape

import (
	"testing"

	"github.com/brightloom/corerender/object"
)

func TestContainerAdd(t *testing.T) {
	c := NewContainer(object.ID(1))
	s := c.Add()
	s.MeshIDs[0] = 7
	if len(c.Shapes) != 1 {
		t.Fatalf("len(Shapes) = %d, want 1", len(c.Shapes))
	}
	if c.Shapes[0].MeshIDs[0] != 7 {
		t.Fatal("Add should return a pointer into the backing slice")
	}
}

func TestContainerDeleteSwapsWithLast(t *testing.T) {
	c := NewContainer(object.Null)
	c.AddShapeByCopy(Shape{MeshIDs: MeshIDs{1, 0, 0, 0}})
	c.AddShapeByCopy(Shape{MeshIDs: MeshIDs{2, 0, 0, 0}})
	c.AddShapeByCopy(Shape{MeshIDs: MeshIDs{3, 0, 0, 0}})

	c.Delete(0)

	if len(c.Shapes) != 2 {
		t.Fatalf("len(Shapes) = %d, want 2", len(c.Shapes))
	}
	if c.Shapes[0].MeshIDs[0] != 3 {
		t.Fatalf("Delete(0) should move the last shape into slot 0, got mesh id %v", c.Shapes[0].MeshIDs[0])
	}
}

func TestContainerAddFromFiltersByLOD(t *testing.T) {
	src := NewContainer(object.Null)
	src.AddShapeByCopy(Shape{LOD: 0})
	src.AddShapeByCopy(Shape{LOD: 2})
	src.AddShapeByCopy(Shape{LOD: 5})

	dst := NewContainer(object.Null)
	dst.AddFrom(src, 2)

	if len(dst.Shapes) != 2 {
		t.Fatalf("AddFrom(maxLOD=2) kept %d shapes, want 2", len(dst.Shapes))
	}
}

func TestContainerCopyFromIsDeep(t *testing.T) {
	src := NewContainer(object.Null)
	src.AddShapeByCopy(Shape{MeshIDs: MeshIDs{1, 0, 0, 0}})
	_ = src.Side("age")

	dst := NewContainer(object.Null)
	dst.CopyFrom(src)

	dst.Shapes[0].MeshIDs[0] = 999
	if src.Shapes[0].MeshIDs[0] == 999 {
		t.Fatal("CopyFrom should deep copy, not alias, the shape buffer")
	}
}

func TestContainerClear(t *testing.T) {
	c := NewContainer(object.Null)
	c.AddShapeByCopy(Shape{})
	_ = c.Side("velocity")
	c.Clear()
	if len(c.Shapes) != 0 {
		t.Fatalf("len(Shapes) after Clear = %d, want 0", len(c.Shapes))
	}
	if len(c.side) != 0 {
		t.Fatalf("len(side) after Clear = %d, want 0", len(c.side))
	}
}

func TestMatIDsLowHigh(t *testing.T) {
	var m MatIDs
	m.SetLow(12)
	m.SetHigh(34)
	if m.Low() != 12 || m.High() != 34 {
		t.Fatalf("Low/High = %d/%d, want 12/34", m.Low(), m.High())
	}
}

func TestLocalXformIdentity(t *testing.T) {
	s := &Shape{Scale: [3]float32{1, 1, 1}, Rot: [4]float32{0, 0, 0, 1}}
	m := s.LocalXform()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Fatalf("LocalXform of a default shape should be the identity, got %v", m)
	}
}
