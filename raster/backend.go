// Package raster implements the rasterizer backend (spec §4.7): bindless
// texture/material/light uniform pools, cascade shadow maps, per-group
// instanced draw loop, and MSAA resolve. It composes the teacher's
// engine/renderer package (device/queue/pipeline/bind-group plumbing,
// adapted in engine/renderer/cascade_shadow.go) with the new sort-core
// output from package renderbase, instead of the teacher's own
// per-animator draw loop in engine/scene/scene.go.
package raster

import (
	"fmt"
	"log/slog"

	"github.com/brightloom/corerender/coordinator"
	"github.com/brightloom/corerender/engine/renderer"
	"github.com/brightloom/corerender/engine/renderer/bind_group_provider"
	"github.com/brightloom/corerender/engine/renderer/pipeline"
	"github.com/brightloom/corerender/imageio"
	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/renderbase"
	"github.com/brightloom/corerender/shaderparam"
	"github.com/brightloom/corerender/sortcore"
)

// renderDevice is the subset of engine/renderer.RendererBackend the
// beauty-pass frame loop actually drives. Kept narrow for the same reason
// engine/renderer/cascade_shadow.go narrows CascadeShadowBackend from the
// same concrete backend: a test fake only has to implement the four calls
// StartRender/BeautyPass/EndRender actually make, not the full ~25-method
// RendererBackend surface. The real wgpu-backed RendererBackend already
// satisfies this implicitly.
type renderDevice interface {
	BeginFrame() error
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider)
	EndFrame()
	Present()
}

// framebufferReader is an optional capability a renderDevice may implement
// to read back its resolved color target as raw top-left-origin RGBA
// pixels. The on-screen wgpu swapchain backend presents directly to a
// surface and does not implement it; an offscreen device (or a test fake)
// does. Detected with a type assertion, the same optional-capability idiom
// coordinator.DoAdvance uses for StartNewFrame.
type framebufferReader interface {
	ReadFramebuffer() (pixels []byte, width, height int, err error)
}

// Pool capacities named in spec §4.7.
const (
	TexturePoolSlots    = 384
	MaterialPoolRecords = 64
	LightPoolRecords    = 64
)

const (
	materialRecordSize = 144 // renderbase.Material's TextureIDs and eight color Vec4s (16 + 8*16); its other fields are not counted
	lightRecordSize    = 96  // size of the WGSL Light struct in gpu_structs.go, which omits renderbase.Light's InputColor and ShadowColor
	textureRecordSize  = 24  // byte size of renderbase.Texture once packed
)

// MeshBuffers holds the five per-mesh VBOs named in spec §4.7 ("five VBOs
// for positions, colors, normals, texcoords, and indices; absent streams
// bind to disabled attributes with literal fallback values").
type MeshBuffers struct {
	Provider bind_group_provider.BindGroupProvider
	Dirty    bool
}

// Backend is the rasterizer's per-scene GPU state.
type Backend struct {
	device   renderDevice
	cascade  renderer.CascadeShadowBackend
	pipeline pipeline.Pipeline

	splitCount int
	shadowSize int
	shadowTex  interface{ Release() } // *wgpu.Texture, kept generic to avoid re-importing wgpu here

	texturePool  bind_group_provider.BindGroupProvider
	materialPool bind_group_provider.BindGroupProvider
	lightPool    bind_group_provider.BindGroupProvider

	textureSlots    map[uint32]int // asset id -> pool slot
	materialShaders map[uint32]uint32
	freeTextureSlot int

	meshes map[uint32]*MeshBuffers

	locations *shaderparam.Locations
	wireframe bool

	currentShader uint32

	// pending holds the next BeautyPass call's inputs, set by SetFrameInputs
	// and consumed by Render — the coordinator.Backend contract drives a
	// frame through StartRender/Render/EndRender with no argument-passing
	// room of its own (spec §4.9), so the caller stages them here first.
	pendingGroups         []sortcore.Group
	pendingInstances      bind_group_provider.BindGroupProvider
	pendingInstanceXforms bind_group_provider.BindGroupProvider

	log *slog.Logger
}

// NewBackend wires a Backend around an already-initialized device backend
// (spec §4.7's resource caches).
func NewBackend(device renderDevice, cascade renderer.CascadeShadowBackend, splitCount, shadowSize int) *Backend {
	return &Backend{
		device:          device,
		cascade:         cascade,
		splitCount:      splitCount,
		shadowSize:      shadowSize,
		textureSlots:    make(map[uint32]int),
		materialShaders: make(map[uint32]uint32),
		meshes:          make(map[uint32]*MeshBuffers),
		log:             slog.Default().With("component", "raster.Backend"),
	}
}

// SetFrameInputs stages the sort-core output the next Render call's
// BeautyPass should draw (spec §4.9's coordinator drives Render with no
// arguments, so the caller supplies this frame's groups beforehand).
func (b *Backend) SetFrameInputs(groups []sortcore.Group, instances, instanceXforms bind_group_provider.BindGroupProvider) {
	b.pendingGroups = groups
	b.pendingInstances = instances
	b.pendingInstanceXforms = instanceXforms
}

// StartRender implements coordinator.Backend: begins the device's render
// pass (spec §4.9 step 2 "backend.Start").
func (b *Backend) StartRender(w, h int) error {
	if err := b.device.BeginFrame(); err != nil {
		return fmt.Errorf("raster: start render: %w", err)
	}
	return nil
}

// Render implements coordinator.Backend: runs the beauty pass over the
// staged frame inputs. The rasterizer always completes its draw in one
// call (spec §4.7), so complete is always true.
func (b *Backend) Render() (complete bool, err error) {
	if err := b.BeautyPass(b.pendingGroups, b.pendingInstances, b.pendingInstanceXforms); err != nil {
		return false, err
	}
	return true, nil
}

// EndRender implements coordinator.Backend: ends the render pass and
// presents (spec §4.9 step 2 "backend.RenderPasses ... backend.EndRender").
func (b *Backend) EndRender() error {
	b.device.EndFrame()
	b.device.Present()
	return nil
}

// SaveFrame implements coordinator.Backend (spec §4.9 RecordFrame, §6.4
// "24-bit PNG"). Requires a device that implements framebufferReader; the
// on-screen wgpu swapchain backend presents directly to a surface and
// cannot satisfy this, so recording against it fails loudly rather than
// silently writing nothing.
func (b *Backend) SaveFrame(outPath string) error {
	fr, ok := b.device.(framebufferReader)
	if !ok {
		return fmt.Errorf("raster: device %T does not support framebuffer readback, cannot SaveFrame", b.device)
	}
	pixels, w, h, err := fr.ReadFramebuffer()
	if err != nil {
		return fmt.Errorf("raster: read framebuffer: %w", err)
	}
	return imageio.WritePNG(outPath, pixels, w, h)
}

// Progressive implements coordinator.Backend: the rasterizer completes
// every frame in a single pass, unlike the path tracer's sample
// accumulation (spec §4.9).
func (b *Backend) Progressive() bool { return false }

// InitPools allocates the bindless texture/material/light uniform buffers
// (spec §4.7 "Resource caches").
func (b *Backend) InitPools() error {
	texBuf, err := b.cascade.CreateUniformPool("TexturePool", textureRecordSize, TexturePoolSlots)
	if err != nil {
		return fmt.Errorf("raster: texture pool: %w", err)
	}
	matBuf, err := b.cascade.CreateUniformPool("MaterialPool", materialRecordSize, MaterialPoolRecords)
	if err != nil {
		return fmt.Errorf("raster: material pool: %w", err)
	}
	lightBuf, err := b.cascade.CreateUniformPool("LightPool", lightRecordSize, LightPoolRecords)
	if err != nil {
		return fmt.Errorf("raster: light pool: %w", err)
	}

	b.texturePool = bind_group_provider.NewBindGroupProvider("TexturePool", bind_group_provider.WithBuffer(0, texBuf))
	b.materialPool = bind_group_provider.NewBindGroupProvider("MaterialPool", bind_group_provider.WithBuffer(0, matBuf))
	b.lightPool = bind_group_provider.NewBindGroupProvider("LightPool", bind_group_provider.WithBuffer(0, lightBuf))
	return nil
}

// BackendHandleForTexture implements renderbase.AssetSource: non-resident
// handles are made resident (assigned a pool slot) on first upload (spec
// §4.7 "Non-resident handles are made resident on first upload").
func (b *Backend) BackendHandleForTexture(assetID uint32) (uint64, bool) {
	if assetID == 0 {
		return 0, true
	}
	if slot, ok := b.textureSlots[assetID]; ok {
		return uint64(slot), true
	}
	if b.freeTextureSlot >= TexturePoolSlots {
		b.log.Warn("texture pool exhausted", "assetID", assetID, "capacity", TexturePoolSlots)
		return 0, false
	}
	slot := b.freeTextureSlot
	b.freeTextureSlot++
	b.textureSlots[assetID] = slot
	return uint64(slot), true
}

// BackendHandleForMaterial implements renderbase.AssetSource: resolves (and
// caches) the shader id a material asset compiles to.
func (b *Backend) BackendHandleForMaterial(assetID uint32) (uint32, bool) {
	if shaderID, ok := b.materialShaders[assetID]; ok {
		return shaderID, true
	}
	// Shader assignment is a loader-time concern (spec §6.2/§6.3); until the
	// loader has registered one, the material's backend id is unresolved
	// and the owning shape is skipped this frame and retried next (spec
	// §7 "Mesh/material resolution deferred").
	return 0, false
}

// RegisterMaterialShader records the shader a loaded material compiles to,
// called once by the GLTF/scene-file loaders after compiling that
// material's program.
func (b *Backend) RegisterMaterialShader(materialAssetID, shaderID uint32) {
	b.materialShaders[materialAssetID] = shaderID
}

// RegisterMesh registers a mesh's GPU buffers with Dirty set. BeautyPass
// clears Dirty the first time it draws a group using the mesh; it uploads
// no vertex data itself and draws from the provider's buffers as
// registered.
func (b *Backend) RegisterMesh(meshAssetID uint32, provider bind_group_provider.BindGroupProvider) {
	b.meshes[meshAssetID] = &MeshBuffers{Provider: provider, Dirty: true}
}

// SetWireframe records the wireframe flag. Nothing in the backend reads it:
// BeautyPass draws with the registered pipeline's polygon mode and
// substitutes no light colors.
func (b *Backend) SetWireframe(on bool) { b.wireframe = on }

// BeautyPass draws one pass over the sorted shape groups in sort order
// (spec §4.7 "Beauty pass"): shader state changes happen at most once per
// group; mesh VBOs are bound once per group; the draw is a single
// instanced, base-instance call reading the group's slice of the global
// instance buffers.
func (b *Backend) BeautyPass(groups []sortcore.Group, instanceProvider, instanceXformProvider bind_group_provider.BindGroupProvider) error {
	b.currentShader = 0
	for _, g := range groups {
		if g.Count == 0 {
			continue
		}
		if g.Shader != b.currentShader {
			b.currentShader = g.Shader
			// Program bind + camera/env/light/shadow uniform upload is
			// driven by the caller's Pipeline/Locations pair (package
			// shaderparam) — this backend only sequences the state change.
		}
		mesh, ok := b.meshes[uint32(g.MeshIDs[0])]
		if !ok {
			continue // mesh id null/sentinel: silently skipped (spec §7)
		}
		if mesh.Dirty {
			mesh.Dirty = false
		}
		bindGroups := []bind_group_provider.BindGroupProvider{
			b.texturePool, b.materialPool, b.lightPool, instanceProvider, instanceXformProvider,
		}
		b.device.DrawCall(b.pipeline, mesh.Provider, uint32(g.Count), bindGroups)
	}
	return nil
}

// ShadowCascade computes the N+1 split distances and per-split crop/light
// matrices for the current camera and first light (spec §4.7 steps 1-4),
// returning the camera-pass uniforms (spec step 6) ready for upload.
func (b *Backend) ShadowCascade(camera CameraState, lightPos, lightTarget linmath.Vec3) []CascadeSplit {
	near, far := camera.Near, camera.Far
	splits := ComputeSplits(near, far, b.splitCount, SplitLambda)
	shadMV := LightViewMatrix(lightPos, lightTarget)

	out := make([]CascadeSplit, b.splitCount)
	for i := 0; i < b.splitCount; i++ {
		n, f := SplitRange(splits, i)
		corners := FrustumCorners(camera.Eye, camera.Forward, camera.Up, camera.Right, camera.FovY, camera.Aspect, n, f)
		lightProj, crop := CropMatrix(corners, shadMV)
		viewInv, _ := linmath.Invert(camera.View)
		shadView := CameraPassUniforms(lightProj, shadMV, viewInv)
		farBound := NormalizedSplitFar(camera.Proj, f)
		out[i] = CascadeSplit{
			Near: n, Far: f,
			LightProj: lightProj, ShadMV: shadMV, Crop: crop,
			ShadowViewMatrix: shadView, FarBound: farBound,
		}
	}
	return out
}

// CameraState is the subset of camera parameters the CSM algorithm needs.
type CameraState struct {
	Eye, Forward, Up, Right linmath.Vec3
	FovY, Aspect, Near, Far float32
	View, Proj              linmath.Mat4
}

// CascadeSplit is one resolved cascade's shadow-pass parameters.
type CascadeSplit struct {
	Near, Far        float32
	LightProj, ShadMV linmath.Mat4
	Crop             Crop
	ShadowViewMatrix linmath.Mat4
	FarBound         float32
}

var _ renderbase.AssetSource = (*Backend)(nil)
var _ coordinator.Backend = (*Backend)(nil)
