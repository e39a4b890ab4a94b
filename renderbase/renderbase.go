// Package renderbase implements the backend-agnostic render driver (spec
// §4.6): it owns the sort core's BST pool and instance buffers and the
// asset-id-to-backend-handle resolution helpers every shape-producing node
// needs. Modeled on engine/renderer/renderer.go's resolve-on-demand pattern
// (InitBindGroup/WriteBindGroup), generalized here from a single
// per-model bind group to per-(texture,material) handle caches shared by
// every render backend.
package renderbase

import (
	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/shape"
	"github.com/brightloom/corerender/sortcore"
)

// Material is the compact GPU-facing material record (spec §3.5).
type Material struct {
	TextureIDs        [4]uint32
	Ambient           linmath.Vec4
	Diffuse           linmath.Vec4
	Specular          linmath.Vec4
	Env               linmath.Vec4
	Shadow            linmath.Vec4
	Reflection        linmath.Vec4
	Refraction        linmath.Vec4
	Emission          linmath.Vec4
	SpecularPower     float32
	LightWidth        float32
	ShadowBias        float32
	ReflectionWidth   float32
	ReflectionBias    float32
	RefractionWidth   float32
	RefractionBias    float32
	RefractionIOR     float32
	Displacement0     linmath.Vec4
	Displacement1     linmath.Vec4

	ShaderID uint32
	dirty    bool
}

// Light is the compact GPU-facing light record (spec §3.5).
type Light struct {
	Pos         linmath.Vec3
	Target      linmath.Vec3
	Ambient     linmath.Vec4
	Diffuse     linmath.Vec4
	Specular    linmath.Vec4
	InputColor  linmath.Vec4
	ShadowColor linmath.Vec4
	ConeInner   float32
	ConeMid     float32
	ConeOuter   float32
}

// Texture is the compact GPU-facing texture record (spec §3.5).
type Texture struct {
	AssetID      uint32
	TextureID    uint32
	BackendHandle uint64
	FilterMode   int32
	BindTarget   int32
	readyCount   int
}

// Ready reports whether all four texture slots on the owning material have
// been resolved or confirmed null (spec §4.6).
func (t *Texture) Ready() bool { return t.readyCount == 4 }

// AssetSource resolves an asset id (material or texture) to the render-id
// vector recorded on it by the loader, and assigns it a backend-native
// handle on first use. Implemented per-backend (raster/pathtrace).
type AssetSource interface {
	BackendHandleForTexture(assetID uint32) (handle uint64, ok bool)
	BackendHandleForMaterial(assetID uint32) (shaderID uint32, ok bool)
}

// Base owns the sort core and the resolved material/texture caches, shared
// by every registered render backend (spec §5 "sort-core buffers ... are
// owned exclusively by RenderBase").
type Base struct {
	Sort *sortcore.Core

	materials map[uint32]*Material
	textures  map[uint32]*Texture

	source AssetSource
}

// NewBase returns a Base with a fresh sort core.
func NewBase(source AssetSource) *Base {
	return &Base{
		Sort:      sortcore.NewCore(),
		materials: make(map[uint32]*Material),
		textures:  make(map[uint32]*Texture),
		source:    source,
	}
}

// ResolveShader implements sortcore.MaterialResolver by delegating to the
// backend's asset source, satisfying the sort core's Phase 1 dependency
// without coupling it to any concrete backend.
func (b *Base) ResolveShader(materialAssetID uint32) (uint32, bool) {
	return b.source.BackendHandleForMaterial(materialAssetID)
}

// ResolveTexture resolves up to four texture-id slots on a material, caching
// backend handles as they become resident (spec §4.6).
func (b *Base) ResolveTexture(assetIDs [4]uint32) *Texture {
	tex := &Texture{}
	for _, id := range assetIDs {
		if id == 0 {
			tex.readyCount++
			continue
		}
		if handle, ok := b.source.BackendHandleForTexture(id); ok {
			tex.BackendHandle = handle
			tex.readyCount++
		}
	}
	return tex
}

// ResolveMaterial resolves a material's shader id, caching the result.
func (b *Base) ResolveMaterial(assetID uint32) (*Material, bool) {
	if m, ok := b.materials[assetID]; ok {
		return m, true
	}
	shaderID, ok := b.source.BackendHandleForMaterial(assetID)
	if !ok {
		return nil, false
	}
	m := &Material{ShaderID: shaderID, dirty: true}
	b.materials[assetID] = m
	return m, true
}

// InsertAndSortShapes runs the sort core's four phases against the given
// scene container (spec §4.6 "InsertAndSortShapes() which runs the four
// phases against scene.sceneList"). Returns the live group list, the total
// instance count, and whether the instance buffer content changed since the
// previous frame (Phase 4's skip-transmission signal).
func (b *Base) InsertAndSortShapes(root *shape.Container, rootXform linmath.Mat4, xs sortcore.XformSource) (groups []sortcore.Group, total int32, changed bool) {
	b.Sort.InsertShapes(root, rootXform, b, xs)
	total = b.Sort.PrefixScanShapes()
	b.Sort.SortShapes(root, rootXform, b, xs, total)
	_, changed = b.Sort.Checksum()
	return b.Sort.Groups(), total, changed
}

var _ sortcore.MaterialResolver = (*Base)(nil)
