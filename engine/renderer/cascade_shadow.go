package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// CascadeShadowBackend extends RendererBackend with the cascade shadow map
// and bindless uniform pool resources the rasterizer (package raster) needs
// on top of the teacher's single shadow-map support in
// engine/light/shadow.go. Kept as a separate interface so the existing
// RendererBackend surface (and its single-shadow-map callers) is untouched.
type CascadeShadowBackend interface {
	// CreateShadowCascadeArrayTexture creates a Depth32Float
	// TEXTURE_2D_ARRAY with one layer per configured split (spec §4.7:
	// "each a depthSize x depthSize x 1 layer of a TEXTURE_2D_ARRAY depth
	// texture").
	CreateShadowCascadeArrayTexture(depthSize, splitCount int) (*wgpu.Texture, error)

	// ShadowCascadeLayerView returns a single-layer view into the cascade
	// array texture, used as the render target for that split's depth pass.
	ShadowCascadeLayerView(tex *wgpu.Texture, layer int) (*wgpu.TextureView, error)

	// ShadowCascadeSampledView returns a view over all layers for sampling
	// in the beauty pass fragment shader.
	ShadowCascadeSampledView(tex *wgpu.Texture, splitCount int) (*wgpu.TextureView, error)

	// CreateUniformPool allocates a uniform buffer sized for count records
	// of recordSize bytes each — the texture pool (384 slots), material
	// pool (64 records), and light pool (64 records) named in spec §4.7.
	CreateUniformPool(label string, recordSize, count int) (*wgpu.Buffer, error)

	// WritePoolRange uploads data into a uniform pool buffer starting at
	// byteOffset, used whenever any pool record is dirty (spec §4.7
	// "rewritten in a single mapped range whenever any material is
	// dirty").
	WritePoolRange(buf *wgpu.Buffer, byteOffset uint64, data []byte)
}

// CreateShadowCascadeArrayTexture implements CascadeShadowBackend.
func (b *wgpuRendererBackendImpl) CreateShadowCascadeArrayTexture(depthSize, splitCount int) (*wgpu.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Cascade Shadow Depth Array",
		Size: wgpu.Extent3D{
			Width:              uint32(depthSize),
			Height:             uint32(depthSize),
			DepthOrArrayLayers: uint32(splitCount),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("cascade shadow: create array texture: %w", err)
	}
	return tex, nil
}

// ShadowCascadeLayerView implements CascadeShadowBackend.
func (b *wgpuRendererBackendImpl) ShadowCascadeLayerView(tex *wgpu.Texture, layer int) (*wgpu.TextureView, error) {
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           fmt.Sprintf("Cascade Layer %d View", layer),
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseArrayLayer:  uint32(layer),
		ArrayLayerCount: 1,
		MipLevelCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("cascade shadow: layer %d view: %w", layer, err)
	}
	return view, nil
}

// ShadowCascadeSampledView implements CascadeShadowBackend.
func (b *wgpuRendererBackendImpl) ShadowCascadeSampledView(tex *wgpu.Texture, splitCount int) (*wgpu.TextureView, error) {
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Cascade Sampled View",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseArrayLayer:  0,
		ArrayLayerCount: uint32(splitCount),
		MipLevelCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("cascade shadow: sampled view: %w", err)
	}
	return view, nil
}

// CreateUniformPool implements CascadeShadowBackend.
func (b *wgpuRendererBackendImpl) CreateUniformPool(label string, recordSize, count int) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(recordSize * count),
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDST,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("cascade shadow: pool %q: %w", label, err)
	}
	return buf, nil
}

// WritePoolRange implements CascadeShadowBackend.
func (b *wgpuRendererBackendImpl) WritePoolRange(buf *wgpu.Buffer, byteOffset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(buf, byteOffset, data)
}

var _ CascadeShadowBackend = &wgpuRendererBackendImpl{}
