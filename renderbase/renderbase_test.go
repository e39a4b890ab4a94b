package renderbase

import (
	"testing"

	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/shape"
)

type fakeSource struct {
	shaders  map[uint32]uint32
	textures map[uint32]uint64
}

func (f fakeSource) BackendHandleForTexture(assetID uint32) (uint64, bool) {
	h, ok := f.textures[assetID]
	return h, ok
}
func (f fakeSource) BackendHandleForMaterial(assetID uint32) (uint32, bool) {
	s, ok := f.shaders[assetID]
	return s, ok
}

type noGroups struct{}

func (noGroups) ContainerFor(uint32) (*shape.Container, bool) { return nil, false }

func TestResolveShaderDelegatesToSource(t *testing.T) {
	src := fakeSource{shaders: map[uint32]uint32{5: 42}}
	b := NewBase(src)
	shaderID, ok := b.ResolveShader(5)
	if !ok || shaderID != 42 {
		t.Fatalf("ResolveShader(5) = %v, %v; want 42, true", shaderID, ok)
	}
	if _, ok := b.ResolveShader(99); ok {
		t.Fatal("ResolveShader for an unknown material should report ok=false")
	}
}

func TestResolveMaterialCaches(t *testing.T) {
	src := fakeSource{shaders: map[uint32]uint32{1: 7}}
	b := NewBase(src)
	m1, ok := b.ResolveMaterial(1)
	if !ok {
		t.Fatal("ResolveMaterial(1) should succeed")
	}
	m2, _ := b.ResolveMaterial(1)
	if m1 != m2 {
		t.Fatal("ResolveMaterial should return the same cached pointer on repeat calls")
	}
}

func TestResolveTextureCountsNullSlotsReady(t *testing.T) {
	src := fakeSource{textures: map[uint32]uint64{3: 100}}
	b := NewBase(src)
	tex := b.ResolveTexture([4]uint32{0, 3, 0, 0})
	if !tex.Ready() {
		t.Fatalf("texture with 3 null slots + 1 resolved should be Ready, readyCount incomplete")
	}
	if tex.BackendHandle != 100 {
		t.Fatalf("BackendHandle = %v, want 100", tex.BackendHandle)
	}
}

func TestResolveTextureNotReadyWhenUnresolved(t *testing.T) {
	src := fakeSource{}
	b := NewBase(src)
	tex := b.ResolveTexture([4]uint32{1, 0, 0, 0})
	if tex.Ready() {
		t.Fatal("a material with one unresolved texture slot should not be Ready")
	}
}

func TestInsertAndSortShapesReportsChecksumChange(t *testing.T) {
	src := fakeSource{shaders: map[uint32]uint32{10: 1}}
	b := NewBase(src)
	root := shape.NewContainer(0)
	var s shape.Shape
	s.MeshIDs[0] = 1
	s.MatIDs.SetLow(10)
	s.Scale = [3]float32{1, 1, 1}
	root.AddShapeByCopy(s)

	groups, total, changed := b.InsertAndSortShapes(root, linmath.Identity(), noGroups{})
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if !changed {
		t.Fatal("first frame should report changed=true")
	}
}
