package main

import (
	"fmt"

	"github.com/brightloom/corerender/engine/renderer/bind_group_provider"
	"github.com/brightloom/corerender/engine/renderer/pipeline"
)

// softwareDevice is a minimal, headless CPU framebuffer standing in for a
// real wgpu surface (engine/renderer/wgpu_renderer_backend.go), which needs
// a window this CLI never creates (spec §6.5: coreview is "out of core
// scope" and has no interactive presentation target). Grounded on
// gogpu-gg's own raster backend package doc, which describes its purpose
// as "architecture validation" and a "reference implementation" rather
// than a production renderer: softwareDevice plays the same role for
// raster.Backend here, proving the StartRender/Render/EndRender/SaveFrame
// sequence drives real DrawCall invocations end to end. It does not
// rasterize triangles — no software rasterizer exists anywhere in the
// retrieval pack, and this file does not claim to be one.
type softwareDevice struct {
	width, height int
	pixels        []byte
	draws         int
}

func newSoftwareDevice(width, height int) *softwareDevice {
	return &softwareDevice{width: width, height: height, pixels: make([]byte, width*height*4)}
}

func (d *softwareDevice) BeginFrame() error {
	for i := range d.pixels {
		d.pixels[i] = 0
	}
	d.draws = 0
	return nil
}

// DrawCall paints a horizontal band with a flat color keyed off draw order,
// the only signal available this deep into the draw loop without a real
// GPU to evaluate the pipeline's shaders.
func (d *softwareDevice) DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) {
	if d.width <= 0 || d.height <= 0 {
		return
	}
	shade := byte((d.draws*53 + 31) % 256)
	band := d.height / 8
	if band < 1 {
		band = 1
	}
	start := (d.draws % 8) * band
	end := start + band
	if end > d.height {
		end = d.height
	}
	for y := start; y < end; y++ {
		for x := 0; x < d.width; x++ {
			o := (y*d.width + x) * 4
			d.pixels[o] = shade
			d.pixels[o+1] = shade / 2
			d.pixels[o+2] = 255 - shade
			d.pixels[o+3] = 255
		}
	}
	d.draws++
}

func (d *softwareDevice) EndFrame() {}
func (d *softwareDevice) Present()  {}

func (d *softwareDevice) ReadFramebuffer() ([]byte, int, int, error) {
	if d.width <= 0 || d.height <= 0 {
		return nil, 0, 0, fmt.Errorf("coreview: softwareDevice: no framebuffer")
	}
	return d.pixels, d.width, d.height, nil
}
