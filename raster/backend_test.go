package raster

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/brightloom/corerender/engine/renderer/bind_group_provider"
	"github.com/brightloom/corerender/engine/renderer/pipeline"
	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/shape"
	"github.com/brightloom/corerender/sortcore"
)

// fakeDevice is a renderDevice + framebufferReader fake that records
// DrawCall invocations instead of touching a real GPU, exercising
// Backend.StartRender/Render(BeautyPass)/EndRender/SaveFrame end to end
// without any wgpu dependency.
type fakeDevice struct {
	began, ended, presented bool
	draws                   int
	lastInstanceCount       uint32
	width, height           int
}

func (f *fakeDevice) BeginFrame() error { f.began = true; return nil }

func (f *fakeDevice) DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) {
	f.draws++
	f.lastInstanceCount = instanceCount
}

func (f *fakeDevice) EndFrame() { f.ended = true }
func (f *fakeDevice) Present()  { f.presented = true }

func (f *fakeDevice) ReadFramebuffer() ([]byte, int, int, error) {
	if f.width == 0 || f.height == 0 {
		return nil, 0, 0, fmt.Errorf("fakeDevice: no frame rendered")
	}
	return make([]byte, f.width*f.height*4), f.width, f.height, nil
}

func TestBackendDrivesStartRenderBeautyPassEndRenderSaveFrame(t *testing.T) {
	dev := &fakeDevice{width: 4, height: 4}
	b := NewBackend(dev, nil, DefaultCascadeSplits, 2048)
	b.RegisterMesh(5, nil)

	groups := []sortcore.Group{
		{MeshIDs: shape.MeshIDs{5, 0, 0, 0}, Shader: 1, Count: 3},
	}
	b.SetFrameInputs(groups, nil, nil)

	if err := b.StartRender(4, 4); err != nil {
		t.Fatalf("StartRender: %v", err)
	}
	complete, err := b.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !complete {
		t.Fatal("raster Backend.Render should always report complete=true")
	}
	if err := b.EndRender(); err != nil {
		t.Fatalf("EndRender: %v", err)
	}

	if !dev.began || !dev.ended || !dev.presented {
		t.Fatalf("expected BeginFrame/EndFrame/Present all called, got %+v", dev)
	}
	if dev.draws != 1 {
		t.Fatalf("draws = %d, want 1", dev.draws)
	}
	if dev.lastInstanceCount != 3 {
		t.Fatalf("lastInstanceCount = %d, want 3", dev.lastInstanceCount)
	}

	outPath := filepath.Join(t.TempDir(), "frame.png")
	if err := b.SaveFrame(outPath); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
}

func TestBackendBeautyPassSkipsUnregisteredMesh(t *testing.T) {
	dev := &fakeDevice{}
	b := NewBackend(dev, nil, DefaultCascadeSplits, 2048)

	groups := []sortcore.Group{
		{MeshIDs: shape.MeshIDs{99, 0, 0, 0}, Shader: 1, Count: 5},
	}
	if err := b.BeautyPass(groups, nil, nil); err != nil {
		t.Fatalf("BeautyPass: %v", err)
	}
	if dev.draws != 0 {
		t.Fatalf("draws = %d, want 0 for an unregistered mesh", dev.draws)
	}
}

func TestBackendSaveFrameWithoutFramebufferReaderFails(t *testing.T) {
	b := NewBackend(nil, nil, DefaultCascadeSplits, 2048)
	if err := b.SaveFrame(filepath.Join(t.TempDir(), "frame.png")); err == nil {
		t.Fatal("SaveFrame should fail when the device has no framebuffer readback")
	}
}

func TestBackendProgressiveIsFalse(t *testing.T) {
	b := NewBackend(nil, nil, DefaultCascadeSplits, 2048)
	if b.Progressive() {
		t.Fatal("raster.Backend.Progressive should be false")
	}
}

func TestBackendHandleForTextureAssignsSlotsOnce(t *testing.T) {
	b := NewBackend(nil, nil, DefaultCascadeSplits, 2048)
	h1, ok := b.BackendHandleForTexture(10)
	if !ok {
		t.Fatal("first texture resolution should succeed")
	}
	h2, ok := b.BackendHandleForTexture(10)
	if !ok || h2 != h1 {
		t.Fatalf("repeat resolution of the same asset should return the cached slot: %v vs %v", h1, h2)
	}
	h3, ok := b.BackendHandleForTexture(11)
	if !ok || h3 == h1 {
		t.Fatal("a different asset id should get a distinct slot")
	}
}

func TestBackendHandleForTextureNullAssetIsZero(t *testing.T) {
	b := NewBackend(nil, nil, DefaultCascadeSplits, 2048)
	h, ok := b.BackendHandleForTexture(0)
	if !ok || h != 0 {
		t.Fatalf("asset id 0 should resolve to handle 0, ok=true; got %v, %v", h, ok)
	}
}

func TestBackendHandleForTexturePoolExhaustion(t *testing.T) {
	b := NewBackend(nil, nil, DefaultCascadeSplits, 2048)
	for i := uint32(1); i <= TexturePoolSlots; i++ {
		if _, ok := b.BackendHandleForTexture(i); !ok {
			t.Fatalf("slot %d should still fit within the %d-slot pool", i, TexturePoolSlots)
		}
	}
	if _, ok := b.BackendHandleForTexture(TexturePoolSlots + 1); ok {
		t.Fatal("resolving past the pool capacity should fail")
	}
}

func TestRegisterMaterialShaderThenResolve(t *testing.T) {
	b := NewBackend(nil, nil, DefaultCascadeSplits, 2048)
	if _, ok := b.BackendHandleForMaterial(5); ok {
		t.Fatal("an unregistered material should not resolve")
	}
	b.RegisterMaterialShader(5, 77)
	shaderID, ok := b.BackendHandleForMaterial(5)
	if !ok || shaderID != 77 {
		t.Fatalf("BackendHandleForMaterial(5) = %v, %v; want 77, true", shaderID, ok)
	}
}

func TestShadowCascadeProducesOneSplitPerConfiguredCount(t *testing.T) {
	b := NewBackend(nil, nil, 3, 2048)
	cam := CameraState{
		Eye: linmath.Vec3{0, 0, 5}, Forward: linmath.Vec3{0, 0, -1},
		Up: linmath.Vec3{0, 1, 0}, Right: linmath.Vec3{1, 0, 0},
		FovY: 1.0, Aspect: 1.0, Near: 0.1, Far: 100,
		View: linmath.Identity(), Proj: linmath.Perspective(1.0, 1.0, 0.1, 100),
	}
	splits := b.ShadowCascade(cam, linmath.Vec3{10, 10, 10}, linmath.Vec3{0, 0, 0})
	if len(splits) != 3 {
		t.Fatalf("len(splits) = %d, want 3", len(splits))
	}
	for i, s := range splits {
		if s.Far <= s.Near {
			t.Fatalf("split %d: far (%v) should exceed near (%v)", i, s.Far, s.Near)
		}
	}
}
