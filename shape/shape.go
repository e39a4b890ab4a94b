// Package shape implements the Shape instance record and its columnar
// container (spec §3.2, §4.3). Grounded on the staged-write byte-buffer
// pattern in engine/renderer/bind_group_provider/buffer_write.go and the
// amortized-growth instance arrays in
// engine/renderer/animator/simple_animator_backend.go, generalized from a
// single per-model instance array into the fixed 16-field record shared by
// both render backends.
package shape

import (
	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/object"
)

// Type discriminates how a Shape's meshids.x field should be
// interpreted (spec §3.2: a plain mesh asset id, or — for Type == Group —
// the id of another Container to recurse into).
type Type int8

const (
	TypeMesh  Type = 0
	TypeGroup Type = 1 // meshids.x is a Container id; sort traversal recurses
)

// MatIDs is 8 u16 lanes: lane 0 holds the material asset id (Low) and lane
// 1 a backend-resolved index (High) (spec §3.2 "matids (8×u16):
// material asset id in low half; resolved per-backend indices in high
// half").
type MatIDs [8]uint16

// Low returns the material asset id half.
func (m MatIDs) Low() uint16 { return m[0] }

// SetLow sets the material asset id half, leaving resolved indices (High)
// untouched.
func (m *MatIDs) SetLow(id uint16) { m[0] = id }

// High returns the resolved backend-index half, stored in lane 1 by
// convention (the remaining lanes are reserved for multi-pass backends that
// need more than one resolved index per shape, e.g. rasterizer + picking).
func (m MatIDs) High() uint16 { return m[1] }

// SetHigh caches a resolved backend index.
func (m *MatIDs) SetHigh(idx uint16) { m[1] = idx }

// MeshIDs is {mesh id, shader id, face count or 0, face offset or 0}
// (spec §3.2).
type MeshIDs [4]float32

// TexSub is the texture sub-rectangle (u0, v0, du, dv) (spec §3.2).
type TexSub [4]float32

// Shape is the fixed 16-field per-instance record (spec §3.2). Its fields
// feed the GPU vertex-attribute locations named in spec §6.3
// (4=pos,5=rot,6=scale,7=pivot,8=color,9=matids,10=texsub,12..15=xform);
// the struct's field order is not that attribute order, and the locations
// are listed in shaderparam.InstanceAttributeLocations.
type Shape struct {
	Pos   [3]float32
	Rot   [4]float32 // quaternion xyzw
	Scale [3]float32
	Pivot [3]float32

	IDs [4]float32 // picking identifiers

	MatIDs  MatIDs
	MeshIDs MeshIDs
	TexSub  TexSub

	Color uint32 // packed RGBA

	Type      Type
	Invisible int8
	LOD       uint8
}

// LocalXform returns the shape's local transform matrix, used by the sort
// core's Phase 3 world-transform composition (spec §4.5 Phase 3 step 2).
func (s *Shape) LocalXform() linmath.Mat4 {
	return linmath.Transform(s.Pos, s.Rot, s.Scale, s.Pivot)
}

// Container is the columnar buffer holding a Shape[] plus optional named
// side-buffers (spec §4.3: "level, parent index, next-sibling, variant
// tuple, velocity, direction, age, growth"). Sub-buffers are created lazily
// by whichever consumer needs them, keyed by name.
type Container struct {
	OwnerID object.ID
	Shapes  []Shape

	side map[string][]float32
}

// NewContainer returns an empty shape container owned by the given object.
func NewContainer(owner object.ID) *Container {
	return &Container{OwnerID: owner, side: make(map[string][]float32)}
}

// Add appends a zero-valued Shape and returns a pointer to it for the
// caller to populate (spec §4.3 "Add(out_index) -> &Shape").
func (c *Container) Add() *Shape {
	c.Shapes = append(c.Shapes, Shape{})
	return &c.Shapes[len(c.Shapes)-1]
}

// AddShapeByCopy appends a copy of s.
func (c *Container) AddShapeByCopy(s Shape) {
	c.Shapes = append(c.Shapes, s)
}

// Delete removes the shape at index i by swap-with-last, matching the
// amortized-growth discipline used throughout the sort core (order within a
// container is not semantically meaningful until the sort core buckets it).
func (c *Container) Delete(i int) {
	if i < 0 || i >= len(c.Shapes) {
		return
	}
	last := len(c.Shapes) - 1
	c.Shapes[i] = c.Shapes[last]
	c.Shapes = c.Shapes[:last]
}

// AddFrom copies every shape from src whose LOD is <= maxLOD (spec §4.3
// "AddFrom(src, lod, max_lod) (filters by lod)").
func (c *Container) AddFrom(src *Container, maxLOD uint8) {
	for _, s := range src.Shapes {
		if s.LOD <= maxLOD {
			c.AddShapeByCopy(s)
		}
	}
}

// CopyFrom replaces this container's contents with a deep copy of src's
// (spec §4.3 "CopyFrom(src) (deep copy of the shape buffer)").
func (c *Container) CopyFrom(src *Container) {
	c.Shapes = append(c.Shapes[:0], src.Shapes...)
	for k, v := range src.side {
		cp := make([]float32, len(v))
		copy(cp, v)
		c.side[k] = cp
	}
}

// Clear empties the container without releasing its backing array capacity.
func (c *Container) Clear() {
	c.Shapes = c.Shapes[:0]
	for k := range c.side {
		delete(c.side, k)
	}
}

// Side returns the named side-buffer, creating it on first use sized to the
// current shape count.
func (c *Container) Side(name string) []float32 {
	buf, ok := c.side[name]
	if !ok {
		buf = make([]float32, len(c.Shapes))
		c.side[name] = buf
	}
	return buf
}
