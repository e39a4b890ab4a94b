package pathtrace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/renderbase"
	"github.com/brightloom/corerender/shape"
	"github.com/brightloom/corerender/sortcore"
)

type fakeAccelerator struct {
	samples   int
	instances []InstanceGroup
	uploadedM map[uint32]bool
	uploadedT map[uint32]bool
}

func newFakeAccelerator() *fakeAccelerator {
	return &fakeAccelerator{uploadedM: make(map[uint32]bool), uploadedT: make(map[uint32]bool)}
}

func (a *fakeAccelerator) UploadMesh(meshID uint32, positions []linmath.Vec3, indices []uint32) error {
	a.uploadedM[meshID] = true
	return nil
}
func (a *fakeAccelerator) UploadMaterial(materialID uint32, mat *renderbase.Material) error {
	a.uploadedT[materialID] = true
	return nil
}
func (a *fakeAccelerator) UploadTexture(textureID uint32, data []byte, width, height int) error {
	return nil
}
func (a *fakeAccelerator) SetInstances(groups []InstanceGroup) error {
	a.instances = groups
	return nil
}
func (a *fakeAccelerator) RenderSample(regionX, regionY, regionW, regionH int) error {
	a.samples++
	return nil
}
func (a *fakeAccelerator) Resolve() ([]byte, int, int, error) {
	return []byte{1, 2, 3}, 1, 1, nil
}

type fakeMeshSource struct{}

func (fakeMeshSource) MeshGeometry(meshID uint32) ([]linmath.Vec3, []uint32, bool) {
	return []linmath.Vec3{{0, 0, 0}}, []uint32{0, 0, 0}, true
}

type fixedResolver struct{ unresolved map[uint32]bool }

func (r fixedResolver) ResolveShader(materialAssetID uint32) (uint32, bool) {
	if r.unresolved[materialAssetID] {
		return 0, false
	}
	return 1, true
}

func TestStartNewFrameResetsSampleIndex(t *testing.T) {
	b := NewBackend(newFakeAccelerator(), fakeMeshSource{}, 4)
	b.sampleIndex = 3
	b.StartNewFrame()
	if b.SampleIndex() != 0 {
		t.Fatalf("SampleIndex() = %d, want 0 after StartNewFrame", b.SampleIndex())
	}
}

func TestCompleteAtSampleBudget(t *testing.T) {
	accel := newFakeAccelerator()
	b := NewBackend(accel, fakeMeshSource{}, 2)
	if b.Complete() {
		t.Fatal("fresh backend should not be complete")
	}
	complete, err := b.Render()
	if err != nil || complete {
		t.Fatalf("first Render: complete=%v err=%v, want false, nil", complete, err)
	}
	complete, err = b.Render()
	if err != nil || !complete {
		t.Fatalf("second Render: complete=%v err=%v, want true, nil (budget reached)", complete, err)
	}
	if accel.samples != 2 {
		t.Fatalf("accel.samples = %d, want 2", accel.samples)
	}
}

func TestRenderAfterCompleteIsNoop(t *testing.T) {
	accel := newFakeAccelerator()
	b := NewBackend(accel, fakeMeshSource{}, 1)
	b.Render()
	complete, err := b.Render()
	if err != nil || !complete {
		t.Fatalf("Render past budget: complete=%v err=%v", complete, err)
	}
	if accel.samples != 1 {
		t.Fatalf("accel.samples = %d, want 1 (no further RenderSample calls once complete)", accel.samples)
	}
}

func TestBuildInstanceGroupsSkipsUnresolvedMaterial(t *testing.T) {
	b := NewBackend(newFakeAccelerator(), fakeMeshSource{}, 4)

	var s1, s2 shape.Shape
	s1.MeshIDs[0] = 1
	s1.MatIDs.SetLow(10)
	s2.MeshIDs[0] = 1
	s2.MatIDs.SetLow(99) // unresolved

	shapes := []shape.Shape{s1, s2}
	xforms := []linmath.Mat4{linmath.Identity(), linmath.Identity()}
	groups := []sortcore.Group{{MeshIDs: shape.MeshIDs{1, 0, 0, 0}, Offset: 0, Count: 2}}

	resolver := fixedResolver{unresolved: map[uint32]bool{99: true}}
	out := b.BuildInstanceGroups(groups, xforms, shapes, resolver)

	if len(out) != 1 {
		t.Fatalf("len(InstanceGroups) = %d, want 1 (unresolved-material shape excluded)", len(out))
	}
	if len(out[0].Xforms) != 1 {
		t.Fatalf("len(Xforms) = %d, want 1", len(out[0].Xforms))
	}
}

func TestSyncResourcesUploadsOnceAndSetsInstances(t *testing.T) {
	accel := newFakeAccelerator()
	b := NewBackend(accel, fakeMeshSource{}, 4)
	groups := []InstanceGroup{{MeshID: 1, MaterialID: 2, Xforms: []linmath.Mat4{linmath.Identity()}}}
	mats := map[uint32]*renderbase.Material{2: {}}

	if err := b.SyncResources(groups, mats); err != nil {
		t.Fatalf("SyncResources: %v", err)
	}
	if !accel.uploadedM[1] {
		t.Fatal("mesh 1 should have been uploaded")
	}
	if !accel.uploadedT[2] {
		t.Fatal("material 2 should have been uploaded")
	}
	if len(accel.instances) != 1 {
		t.Fatalf("accel.instances = %v, want 1 group", accel.instances)
	}

	// A second sync with the same groups should not re-upload.
	accel.uploadedM[1] = false
	if err := b.SyncResources(groups, mats); err != nil {
		t.Fatalf("SyncResources (second call): %v", err)
	}
	if accel.uploadedM[1] {
		t.Fatal("already-uploaded mesh should not be re-uploaded")
	}
}

func TestStartRenderRejectsNonPositiveSize(t *testing.T) {
	b := NewBackend(newFakeAccelerator(), fakeMeshSource{}, 4)
	if err := b.StartRender(0, 10); err == nil {
		t.Fatal("StartRender should reject a non-positive width")
	}
	if err := b.StartRender(10, 10); err != nil {
		t.Fatalf("StartRender(10, 10): %v", err)
	}
}

func TestEndRenderIsNoop(t *testing.T) {
	b := NewBackend(newFakeAccelerator(), fakeMeshSource{}, 4)
	if err := b.EndRender(); err != nil {
		t.Fatalf("EndRender: %v", err)
	}
}

func TestProgressiveIsTrue(t *testing.T) {
	b := NewBackend(newFakeAccelerator(), fakeMeshSource{}, 4)
	if !b.Progressive() {
		t.Fatal("pathtrace.Backend.Progressive should be true")
	}
}

type fixedSizeAccelerator struct {
	fakeAccelerator
	pixels        []byte
	width, height int
}

func (a *fixedSizeAccelerator) Resolve() ([]byte, int, int, error) {
	return a.pixels, a.width, a.height, nil
}

func TestSaveFrameWritesTIFF48(t *testing.T) {
	accel := &fixedSizeAccelerator{
		fakeAccelerator: *newFakeAccelerator(),
		pixels:          make([]byte, 2*2*6),
		width:           2,
		height:          2,
	}
	b := NewBackend(accel, fakeMeshSource{}, 4)

	path := filepath.Join(t.TempDir(), "frame.tiff")
	if err := b.SaveFrame(path); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}
