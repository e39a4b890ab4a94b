// Package sortcore implements the state-sort core (spec §4.5): a
// pool-backed, not-rebalanced BST keyed on render state, built fresh every
// frame and exploiting emission-order coherence via a cached last-hit node.
// The teacher groups strictly by model/animator (one instance buffer per
// model — see engine/renderer/animator), so this package has no direct
// teacher analogue; it is grounded instead on the sibling example repo
// gazed-vu's render/packet.go (amortized Packets.GetPacket growth) and
// frame.go (the two-pass "flatten, then render.SortDraws" shape), and is
// why the package exists standalone rather than living inside the
// renderer: the teacher's whole draw pipeline is reorganized around this
// new design.
package sortcore

import (
	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/shape"
)

// KeyNull is the sentinel value for an unused group slot (spec §3.4).
const KeyNull uint64 = 0x2540BE400

// NodeNull is the sentinel BST child index (spec §3.4).
const NodeNull int32 = -1

// Key composes the 64-bit render-state key from three asset ids (spec §4.5
// "Keys"): material in bits 0..15, shader in bits 16..23, mesh in bits
// 24..39.
func Key(materialID, shaderID, meshID uint32) uint64 {
	return uint64(materialID&0xFFFF) |
		uint64(shaderID&0xFF)<<16 |
		uint64(meshID&0xFFFF)<<24
}

// Group is a transient per-frame BST node (spec §3.4).
type Group struct {
	Key     uint64
	MeshIDs shape.MeshIDs
	Shader  uint32
	Left    int32
	Right   int32
	Count   int32
	Offset  int32
	Name    string
}

// resetGroup reinitializes a pool slot for reuse this frame.
func resetGroup(g *Group) {
	*g = Group{Key: KeyNull, Left: NodeNull, Right: NodeNull}
}

// MaterialResolver resolves a shape's material asset id to the shader id it
// compiles to (ok=false while unresolved) — the render-base resolution step described in spec §4.6,
// injected here so the sort core stays backend-agnostic.
type MaterialResolver interface {
	ResolveShader(materialAssetID uint32) (shaderID uint32, ok bool)
}

// XformSource resolves a SHAPEGRP shape's meshids.x into the nested
// Container to recurse into. The world transform (spec §4.5 Phase 3 step 2:
// "world = objectXform * shape.localXform()") is composed by walk, not
// supplied here.
type XformSource interface {
	ContainerFor(groupShapeMeshIDX uint32) (*shape.Container, bool)
}

// Core owns the BST pool and the sort output buffers, reused across frames
// via power-of-two growth (spec §5 "Shared-resource policy").
type Core struct {
	pool     []Group
	poolUsed int32
	root     int32
	lastHit  int32

	bins    []int32 // per-emitted-shape: group pool index
	offsets []int32 // per-emitted-shape: offset within that group

	SortedShapes [][]shape.Shape
	SortedXforms [][]linmath.Mat4

	// flat views populated by PrefixScanShapes/SortShapes for callers that
	// want the whole frame as one contiguous slice instead of per-bucket.
	flatShapes []shape.Shape
	flatXforms []linmath.Mat4

	prevChecksum uint64
	emittedCount int32
}

// NewCore returns an empty sort core with an initial pool capacity.
func NewCore() *Core {
	c := &Core{root: NodeNull, lastHit: NodeNull}
	c.growPool(64)
	return c
}

func (c *Core) growPool(minCap int) {
	if len(c.pool) >= minCap {
		return
	}
	newCap := len(c.pool)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < minCap {
		newCap *= 2
	}
	grown := make([]Group, newCap)
	copy(grown, c.pool)
	for i := len(c.pool); i < newCap; i++ {
		resetGroup(&grown[i])
	}
	c.pool = grown
}

// Reset clears the BST for a new frame without releasing pool capacity.
func (c *Core) Reset() {
	for i := int32(0); i < c.poolUsed; i++ {
		resetGroup(&c.pool[i])
	}
	c.poolUsed = 0
	c.root = NodeNull
	c.lastHit = NodeNull
	c.emittedCount = 0
}

// emission is one flattened (shape, owning-container-world-transform) pair
// produced by a depth-first walk so that Phase 1 and Phase 3 (spec §5
// ordering guarantee: "must traverse ... in identical order") can share one
// traversal function.
type emission struct {
	s     *shape.Shape
	xform linmath.Mat4
}

// walk performs the identical depth-first traversal used by both Insert and
// Sort, invoking visit(shape, worldXform) for every non-invisible, non-group
// leaf shape in emission order.
func walk(root *shape.Container, rootXform linmath.Mat4, xs XformSource, visit func(s *shape.Shape, worldXform linmath.Mat4)) {
	var rec func(c *shape.Container, parent linmath.Mat4)
	rec = func(c *shape.Container, parent linmath.Mat4) {
		for i := range c.Shapes {
			s := &c.Shapes[i]
			if s.Invisible != 0 {
				continue
			}
			world := linmath.Mul(parent, s.LocalXform())
			if s.Type == shape.TypeGroup {
				if nested, ok := xs.ContainerFor(uint32(s.MeshIDs[0])); ok {
					rec(nested, world)
				}
				continue
			}
			visit(s, world)
		}
	}
	rec(root, rootXform)
}

// InsertShapes is Phase 1 (spec §4.5). It walks the scene's emitted shapes,
// resolves each one's render-state key, finds-or-inserts its BST group
// starting from the cached last-hit node, and records (bin, offset) in the
// parallel side buffers.
func (c *Core) InsertShapes(root *shape.Container, rootXform linmath.Mat4, resolver MaterialResolver, xs XformSource) {
	c.Reset()
	estimate := len(root.Shapes)
	if cap(c.bins) < estimate {
		c.bins = make([]int32, 0, estimate)
		c.offsets = make([]int32, 0, estimate)
	}
	c.bins = c.bins[:0]
	c.offsets = c.offsets[:0]

	walk(root, rootXform, xs, func(s *shape.Shape, _ linmath.Mat4) {
		shaderID, ok := resolver.ResolveShader(uint32(s.MatIDs.Low()))
		if !ok {
			// Material backend ids unresolved: skip this frame, retried
			// next (spec §7 "Mesh/material resolution deferred").
			return
		}
		s.MatIDs.SetHigh(uint16(shaderID))
		meshID := uint32(s.MeshIDs[0])
		key := Key(uint32(s.MatIDs.Low()), shaderID, meshID)

		node := c.findOrInsert(key, s, shaderID)
		c.bins = append(c.bins, node)
		c.offsets = append(c.offsets, c.pool[node].Count)
		c.pool[node].Count++
		c.emittedCount++
	})
}

// findOrInsert searches the BST from the cached last-hit node, falling back
// to root, and inserts a fresh leaf when the search runs off the tree (spec
// §4.5 Phase 1 step 4). The tree is never rebalanced.
func (c *Core) findOrInsert(key uint64, s *shape.Shape, shaderID uint32) int32 {
	start := c.lastHit
	if start == NodeNull || c.pool[start].Key == KeyNull {
		start = c.root
	}

	if start == NodeNull {
		return c.newLeaf(key, s, shaderID, &c.root)
	}

	cur := start
	var parent int32 = NodeNull
	var goLeft bool
	for cur != NodeNull {
		g := &c.pool[cur]
		if g.Key == key {
			c.lastHit = cur
			return cur
		}
		parent = cur
		if key < g.Key {
			goLeft = true
			cur = g.Left
		} else {
			goLeft = false
			cur = g.Right
		}
	}

	var slot *int32
	if goLeft {
		slot = &c.pool[parent].Left
	} else {
		slot = &c.pool[parent].Right
	}
	node := c.newLeaf(key, s, shaderID, slot)
	c.lastHit = node
	return node
}

func (c *Core) newLeaf(key uint64, s *shape.Shape, shaderID uint32, link *int32) int32 {
	c.growPool(int(c.poolUsed) + 1)
	idx := c.poolUsed
	c.poolUsed++
	g := &c.pool[idx]
	*g = Group{Key: key, MeshIDs: s.MeshIDs, Shader: shaderID, Left: NodeNull, Right: NodeNull}
	*link = idx
	return idx
}

// PrefixScanShapes is Phase 2 (spec §4.5): sets each live group's Offset to
// the running sum of prior groups' Count, in pool creation order, and
// returns the total instance count.
func (c *Core) PrefixScanShapes() int32 {
	var total int32
	for i := int32(0); i < c.poolUsed; i++ {
		g := &c.pool[i]
		if g.Key == KeyNull {
			continue
		}
		g.Offset = total
		total += g.Count
	}
	return total
}

// SortShapes is Phase 3 (spec §4.5). It re-walks the scene in the same
// order as InsertShapes, deep-copying each shape into its bucketed slot and
// composing its world transform. resolver must be the same MaterialResolver
// InsertShapes used: c.bins/c.offsets only hold one entry per shape whose
// material resolved there, so this walk has to skip unresolved shapes
// identically or every subsequent shape reads another shape's bin/offset
// entry.
func (c *Core) SortShapes(root *shape.Container, rootXform linmath.Mat4, resolver MaterialResolver, xs XformSource, total int32) {
	if int32(len(c.flatShapes)) < total {
		c.flatShapes = make([]shape.Shape, total)
		c.flatXforms = make([]linmath.Mat4, total)
	}

	i := 0
	walk(root, rootXform, xs, func(s *shape.Shape, world linmath.Mat4) {
		if _, ok := resolver.ResolveShader(uint32(s.MatIDs.Low())); !ok {
			return
		}
		if i >= len(c.bins) {
			return
		}
		bin := c.bins[i]
		ndx := c.offsets[i]
		g := &c.pool[bin]
		dest := g.Offset + ndx
		c.flatShapes[dest] = *s
		c.flatXforms[dest] = world
		i++
	})

	c.partitionByGroups()
}

// partitionByGroups slices the flat sorted arrays into per-group views for
// callers that want to iterate groups directly (spec §4.5 invariant 3: each
// group's contiguous slice shares one key).
func (c *Core) partitionByGroups() {
	c.SortedShapes = c.SortedShapes[:0]
	c.SortedXforms = c.SortedXforms[:0]
	for i := int32(0); i < c.poolUsed; i++ {
		g := &c.pool[i]
		if g.Key == KeyNull || g.Count == 0 {
			continue
		}
		c.SortedShapes = append(c.SortedShapes, c.flatShapes[g.Offset:g.Offset+g.Count])
		c.SortedXforms = append(c.SortedXforms, c.flatXforms[g.Offset:g.Offset+g.Count])
	}
}

// Groups returns every live group in pool creation order.
func (c *Core) Groups() []Group {
	out := make([]Group, 0, c.poolUsed)
	for i := int32(0); i < c.poolUsed; i++ {
		if c.pool[i].Key != KeyNull {
			out = append(out, c.pool[i])
		}
	}
	return out
}

// FlatShapes returns the full contiguous sorted-shape buffer produced by
// the most recent SortShapes call.
func (c *Core) FlatShapes() []shape.Shape { return c.flatShapes }

// FlatXforms returns the full contiguous sorted-transform buffer produced
// by the most recent SortShapes call.
func (c *Core) FlatXforms() []linmath.Mat4 { return c.flatXforms }

// EmittedCount returns the number of non-invisible leaf shapes the most
// recent InsertShapes call inserted; shapes whose material did not resolve
// are not counted (spec §8 invariant 4: "Σ group.count
// over all groups equals the total emitted visible shape count").
func (c *Core) EmittedCount() int32 { return c.emittedCount }

// Checksum computes Σ (meshID ⊕ quantizedPos ⊕ quantizedScale) over the
// sorted buffer (spec §4.5 Phase 4) and reports whether it differs from the
// previous frame's, caching the new value either way.
func (c *Core) Checksum() (sum uint64, changed bool) {
	for i := range c.flatShapes {
		s := &c.flatShapes[i]
		meshID := uint64(uint32(s.MeshIDs[0]))
		qp := quantize(s.Pos)
		qs := quantize(s.Scale)
		sum += meshID ^ qp ^ qs
	}
	changed = sum != c.prevChecksum
	c.prevChecksum = sum
	return sum, changed
}

func quantize(v [3]float32) uint64 {
	q := func(f float32) uint64 { return uint64(int32(f * 1000)) }
	return q(v[0])<<32 | q(v[1])<<16 | q(v[2])
}
