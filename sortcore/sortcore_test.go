package sortcore

import (
	"testing"

	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/shape"
)

type fixedResolver struct{ shaderID uint32 }

func (r fixedResolver) ResolveShader(materialAssetID uint32) (uint32, bool) {
	return r.shaderID, true
}

type failingResolver struct{ failFor uint32 }

func (r failingResolver) ResolveShader(materialAssetID uint32) (uint32, bool) {
	if materialAssetID == r.failFor {
		return 0, false
	}
	return 1, true
}

type noGroups struct{}

func (noGroups) ContainerFor(uint32) (*shape.Container, bool) { return nil, false }

func makeShape(meshID, materialID uint32) shape.Shape {
	var s shape.Shape
	s.MeshIDs[0] = float32(meshID)
	s.MatIDs.SetLow(uint16(materialID))
	s.Scale = [3]float32{1, 1, 1}
	s.Rot = [4]float32{0, 0, 0, 1}
	return s
}

func TestKeyPacking(t *testing.T) {
	k := Key(0x1234, 0x56, 0x789A)
	if k&0xFFFF != 0x1234 {
		t.Fatalf("material bits = %x, want 0x1234", k&0xFFFF)
	}
	if (k>>16)&0xFF != 0x56 {
		t.Fatalf("shader bits = %x, want 0x56", (k>>16)&0xFF)
	}
	if (k>>24)&0xFFFF != 0x789A {
		t.Fatalf("mesh bits = %x, want 0x789A", (k>>24)&0xFFFF)
	}
}

func TestInsertAndSortGroupsByKey(t *testing.T) {
	c := NewCore()
	root := shape.NewContainer(0)
	root.AddShapeByCopy(makeShape(1, 10))
	root.AddShapeByCopy(makeShape(1, 10))
	root.AddShapeByCopy(makeShape(2, 10))

	resolver := fixedResolver{shaderID: 3}
	c.InsertShapes(root, linmath.Identity(), resolver, noGroups{})

	if got := c.EmittedCount(); got != 3 {
		t.Fatalf("EmittedCount() = %d, want 3", got)
	}

	total := c.PrefixScanShapes()
	if total != 3 {
		t.Fatalf("PrefixScanShapes() = %d, want 3", total)
	}

	c.SortShapes(root, linmath.Identity(), resolver, noGroups{}, total)

	groups := c.Groups()
	if len(groups) != 2 {
		t.Fatalf("len(Groups()) = %d, want 2 (two distinct mesh ids)", len(groups))
	}

	sum := int32(0)
	for _, g := range groups {
		sum += g.Count
	}
	if sum != 3 {
		t.Fatalf("sum of group counts = %d, want 3 (invariant: counts partition all emitted shapes)", sum)
	}

	if len(c.SortedShapes) != 2 {
		t.Fatalf("len(SortedShapes) = %d, want 2 contiguous buckets", len(c.SortedShapes))
	}
}

func TestInsertShapesSkipsUnresolvedMaterial(t *testing.T) {
	c := NewCore()
	root := shape.NewContainer(0)
	root.AddShapeByCopy(makeShape(1, 10))
	root.AddShapeByCopy(makeShape(1, 99)) // unresolved

	resolver := failingResolver{failFor: 99}
	c.InsertShapes(root, linmath.Identity(), resolver, noGroups{})

	if got := c.EmittedCount(); got != 1 {
		t.Fatalf("EmittedCount() = %d, want 1 (the unresolved shape should be skipped this frame)", got)
	}
}

func TestInsertShapesSkipsInvisible(t *testing.T) {
	c := NewCore()
	root := shape.NewContainer(0)
	s := makeShape(1, 10)
	s.Invisible = 1
	root.AddShapeByCopy(s)
	root.AddShapeByCopy(makeShape(1, 10))

	c.InsertShapes(root, linmath.Identity(), fixedResolver{shaderID: 1}, noGroups{})
	if got := c.EmittedCount(); got != 1 {
		t.Fatalf("EmittedCount() = %d, want 1 (invisible shape must not be emitted)", got)
	}
}

func TestSortShapesStaysAlignedAroundUnresolvedMaterial(t *testing.T) {
	c := NewCore()
	root := shape.NewContainer(0)
	root.AddShapeByCopy(makeShape(1, 10))
	root.AddShapeByCopy(makeShape(2, 99)) // unresolved: sits between two resolved shapes
	root.AddShapeByCopy(makeShape(3, 10))

	resolver := failingResolver{failFor: 99}
	c.InsertShapes(root, linmath.Identity(), resolver, noGroups{})
	if got := c.EmittedCount(); got != 2 {
		t.Fatalf("EmittedCount() = %d, want 2 (the unresolved-material shape skipped)", got)
	}

	total := c.PrefixScanShapes()
	c.SortShapes(root, linmath.Identity(), resolver, noGroups{}, total)

	flat := c.FlatShapes()
	if int32(len(flat)) != total {
		t.Fatalf("len(FlatShapes()) = %d, want %d", len(flat), total)
	}
	seenMesh := map[uint32]bool{}
	for _, s := range flat {
		seenMesh[uint32(s.MeshIDs[0])] = true
	}
	if !seenMesh[1] || !seenMesh[3] {
		t.Fatalf("expected mesh 1 and mesh 3 in the flat buffer, got %v (mesh 2's unresolved shape should be entirely absent, not misplace a neighbor)", seenMesh)
	}
	if seenMesh[2] {
		t.Fatal("mesh 2's unresolved-material shape should never appear in the flat buffer")
	}
}

func TestChecksumStableAcrossIdenticalFrames(t *testing.T) {
	c := NewCore()
	root := shape.NewContainer(0)
	root.AddShapeByCopy(makeShape(1, 10))

	run := func() (uint64, bool) {
		resolver := fixedResolver{shaderID: 1}
		c.InsertShapes(root, linmath.Identity(), resolver, noGroups{})
		total := c.PrefixScanShapes()
		c.SortShapes(root, linmath.Identity(), resolver, noGroups{}, total)
		return c.Checksum()
	}

	sum1, changed1 := run()
	if !changed1 {
		t.Fatal("first frame's checksum should report changed=true versus the zero-value previous checksum")
	}
	sum2, changed2 := run()
	if changed2 {
		t.Fatal("an identical second frame should report changed=false")
	}
	if sum1 != sum2 {
		t.Fatalf("checksum of two identical frames differ: %d vs %d", sum1, sum2)
	}
}

func TestChecksumChangesWithPosition(t *testing.T) {
	c := NewCore()
	root := shape.NewContainer(0)
	root.AddShapeByCopy(makeShape(1, 10))

	resolver := fixedResolver{shaderID: 1}
	c.InsertShapes(root, linmath.Identity(), resolver, noGroups{})
	total := c.PrefixScanShapes()
	c.SortShapes(root, linmath.Identity(), resolver, noGroups{}, total)
	sum1, _ := c.Checksum()

	root.Shapes[0].Pos[0] = 5
	c.InsertShapes(root, linmath.Identity(), resolver, noGroups{})
	total = c.PrefixScanShapes()
	c.SortShapes(root, linmath.Identity(), resolver, noGroups{}, total)
	sum2, changed := c.Checksum()

	if !changed || sum1 == sum2 {
		t.Fatal("moving a shape should change the checksum")
	}
}
