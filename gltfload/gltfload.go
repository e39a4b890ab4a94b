package gltfload

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/brightloom/corerender/asset"
	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/object"
	"github.com/brightloom/corerender/param"
)

// transpSuffix is appended to a material's asset name when its base color
// alpha falls below the threshold (spec §6.2 "Materials whose alpha < 0.5
// are suffixed TRANSP").
const transpSuffix = "TRANSP"

// transparencyThreshold is the alpha cutoff named in spec §6.2.
const transparencyThreshold = 0.5

// Result summarizes what Load materialized, for logging/diagnostics.
type Result struct {
	MaterialNames []string
	MeshNames     []string
}

// Load parses path as ASCII glTF 2.0 and materializes its materials and
// node x primitive meshes into reg (spec §6.2). reg must already have
// factories registered for object.KindMaterial and object.KindMesh.
func Load(reg *asset.Registry, path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gltfload: read %q: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("gltfload: parse %q: %w", path, err)
	}

	buffers, err := loadBuffers(&doc, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	res := &Result{}

	matNames := make([]string, len(doc.Materials))
	for i, m := range doc.Materials {
		name, err := materializeMaterial(reg, &doc, buffers, i, m)
		if err != nil {
			return nil, err
		}
		matNames[i] = name
		res.MaterialNames = append(res.MaterialNames, name)
	}

	for nodeIdx, n := range doc.Nodes {
		if n.Mesh == nil {
			continue
		}
		xform := nodeLocalTransform(n)
		gm := doc.Meshes[*n.Mesh]
		for primIdx, prim := range gm.Primitives {
			meshName := fmt.Sprintf("%s_n%d_p%d", baseName(gm.Name, *n.Mesh), nodeIdx, primIdx)

			skipTransform := false
			if prim.Material != nil && strings.HasSuffix(matNames[*prim.Material], transpSuffix) {
				skipTransform = true // spec §6.2: "the current loader skips their transforms"
			}

			name, err := materializeMeshPrimitive(reg, &doc, buffers, meshName, prim, xform, skipTransform)
			if err != nil {
				return nil, err
			}
			res.MeshNames = append(res.MeshNames, name)
		}
	}

	return res, nil
}

func baseName(name string, idx int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("mesh%d", idx)
}

// nodeLocalTransform resolves a node's matrix, or its TRS fields, into a
// linmath.Transform (spec: "applying the node's world transform" — full
// parent-chain accumulation is left to the scene graph's own transform
// composition once the MESH object is parented, matching how shape.Shape's
// world transform is composed in package sortcore).
func nodeLocalTransform(n node) object.Transform {
	t := object.IdentityTransform()
	if n.Matrix != nil {
		t.Pos, t.Rot, t.Scale = decomposeMatrix(*n.Matrix)
		return t
	}
	if n.Translation != nil {
		t.Pos = linmath.Vec3{n.Translation[0], n.Translation[1], n.Translation[2]}
	}
	if n.Rotation != nil {
		t.Rot = linmath.Quat{n.Rotation[0], n.Rotation[1], n.Rotation[2], n.Rotation[3]}
	}
	if n.Scale != nil {
		t.Scale = linmath.Vec3{n.Scale[0], n.Scale[1], n.Scale[2]}
	}
	return t
}

// decomposeMatrix extracts translation, rotation (as a quaternion) and
// scale from a column-major 4x4 glTF node matrix.
func decomposeMatrix(m [16]float32) (pos linmath.Vec3, rot linmath.Quat, scale linmath.Vec3) {
	pos = linmath.Vec3{m[12], m[13], m[14]}

	sx := vecLen(m[0], m[1], m[2])
	sy := vecLen(m[4], m[5], m[6])
	sz := vecLen(m[8], m[9], m[10])
	scale = linmath.Vec3{sx, sy, sz}

	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	if sz == 0 {
		sz = 1
	}
	r00, r01, r02 := m[0]/sx, m[4]/sy, m[8]/sz
	r10, r11, r12 := m[1]/sx, m[5]/sy, m[9]/sz
	r20, r21, r22 := m[2]/sx, m[6]/sy, m[10]/sz

	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		s := float32(math.Sqrt(float64(trace)+1.0)) * 2
		rot = linmath.Quat{(r21 - r12) / s, (r02 - r20) / s, (r10 - r01) / s, 0.25 * s}
	case r00 > r11 && r00 > r22:
		s := float32(math.Sqrt(float64(1+r00-r11-r22))) * 2
		rot = linmath.Quat{0.25 * s, (r01 + r10) / s, (r02 + r20) / s, (r21 - r12) / s}
	case r11 > r22:
		s := float32(math.Sqrt(float64(1+r11-r00-r22))) * 2
		rot = linmath.Quat{(r01 + r10) / s, 0.25 * s, (r12 + r21) / s, (r02 - r20) / s}
	default:
		s := float32(math.Sqrt(float64(1+r22-r00-r11))) * 2
		rot = linmath.Quat{(r02 + r20) / s, (r12 + r21) / s, 0.25 * s, (r10 - r01) / s}
	}
	return pos, rot, scale
}

func vecLen(x, y, z float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y + z*z)))
}

func loadBuffers(doc *document, baseDir string) ([][]byte, error) {
	out := make([][]byte, len(doc.Buffers))
	for i, b := range doc.Buffers {
		if b.URI == "" {
			return nil, fmt.Errorf("gltfload: buffer %d: GLB-embedded buffers are not supported", i)
		}
		if strings.HasPrefix(b.URI, "data:") {
			comma := strings.IndexByte(b.URI, ',')
			if comma < 0 {
				return nil, fmt.Errorf("gltfload: buffer %d: malformed data URI", i)
			}
			decoded, err := base64.StdEncoding.DecodeString(b.URI[comma+1:])
			if err != nil {
				return nil, fmt.Errorf("gltfload: buffer %d: decode data URI: %w", i, err)
			}
			out[i] = decoded
			continue
		}
		data, err := os.ReadFile(filepath.Join(baseDir, b.URI))
		if err != nil {
			return nil, fmt.Errorf("gltfload: buffer %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}

func accessorBytes(doc *document, buffers [][]byte, accessorIdx int) ([]byte, *accessor, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, nil, fmt.Errorf("gltfload: accessor index %d out of range", accessorIdx)
	}
	acc := &doc.Accessors[accessorIdx]
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("gltfload: accessor %d has no bufferView (sparse accessors unsupported)", accessorIdx)
	}
	bv := doc.BufferViews[*acc.BufferView]
	buf := buffers[bv.Buffer]
	start := bv.ByteOffset + acc.ByteOffset
	return buf[start:], acc, nil
}

func readVec3Accessor(doc *document, buffers [][]byte, accessorIdx int) ([][3]float32, error) {
	data, acc, err := accessorBytes(doc, buffers, accessorIdx)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorTypeVec3 || acc.ComponentType != componentTypeFloat {
		return nil, fmt.Errorf("gltfload: accessor %d: expected VEC3/FLOAT", accessorIdx)
	}
	out := make([][3]float32, acc.Count)
	for i := range out {
		off := i * 12
		out[i][0] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		out[i][1] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
		out[i][2] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:]))
	}
	return out, nil
}

func readVec2Accessor(doc *document, buffers [][]byte, accessorIdx int) ([][2]float32, error) {
	data, acc, err := accessorBytes(doc, buffers, accessorIdx)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorTypeVec2 || acc.ComponentType != componentTypeFloat {
		return nil, fmt.Errorf("gltfload: accessor %d: expected VEC2/FLOAT", accessorIdx)
	}
	out := make([][2]float32, acc.Count)
	for i := range out {
		off := i * 8
		out[i][0] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		out[i][1] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
	}
	return out, nil
}

// readIndicesAccessor reads a triangle index accessor, promoting 16-bit
// indices to 32-bit (spec §6.2: "16-bit indices are promoted to 32-bit").
func readIndicesAccessor(doc *document, buffers [][]byte, accessorIdx int) ([]uint32, error) {
	data, acc, err := accessorBytes(doc, buffers, accessorIdx)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorTypeScalar {
		return nil, fmt.Errorf("gltfload: accessor %d: expected SCALAR indices", accessorIdx)
	}
	out := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case componentTypeUnsignedShort:
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case componentTypeUnsignedInt:
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	default:
		return nil, fmt.Errorf("gltfload: accessor %d: unsupported index component type %d", accessorIdx, acc.ComponentType)
	}
	return out, nil
}

// materializeMaterial creates a MATERIAL asset object per spec §6.2's
// mapping: diffuse color from baseColorFactor, metallic/roughness
// heuristically mapped to reflection/environment terms, base-color texture
// as a "texture" input, metallicRoughness as a "diffuse" bump with a fixed
// displacement.
func materializeMaterial(reg *asset.Registry, doc *document, buffers [][]byte, idx int, m material) (string, error) {
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("material%d", idx)
	}

	alpha := float32(1.0)
	baseColor := [4]float32{1, 1, 1, 1}
	metallic := float32(1.0)
	roughness := float32(1.0)
	var baseColorTex, metalRoughTex *textureInfo

	if m.PbrMetallicRoughness != nil {
		pbr := m.PbrMetallicRoughness
		if pbr.BaseColorFactor != nil {
			baseColor = *pbr.BaseColorFactor
			alpha = baseColor[3]
		}
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
		baseColorTex = pbr.BaseColorTexture
		metalRoughTex = pbr.MetallicRoughnessTexture
	}
	if m.AlphaCutoff != nil {
		// alphaCutoff is parsed but not applied: the TRANSP test below keys
		// off the base color alpha alone, whatever the alphaMode.
		_ = m.AlphaCutoff
	}
	if alpha < transparencyThreshold {
		name = name + transpSuffix
	}

	obj, err := reg.AddObject(object.KindMaterial, name)
	if err != nil {
		return "", fmt.Errorf("gltfload: material %q: %w", name, err)
	}

	// reflectionWidth/environmentAmount are the heuristic reflection and
	// environment terms: reflectionWidth is 1 - roughness (a glossier
	// material gets a larger value) and environmentAmount is the metallic
	// factor as is.
	reflectionWidth := 1 - roughness
	envAmount := metallic

	_ = obj.Params.SetTyped("diffuse", []param.Value{{Kind: param.KindVec3, V3: [3]float32{baseColor[0], baseColor[1], baseColor[2]}}})
	_ = obj.Params.SetTyped("reflectionWidth", []param.Value{{Kind: param.KindFloat, F: reflectionWidth}})
	_ = obj.Params.SetTyped("environmentAmount", []param.Value{{Kind: param.KindFloat, F: envAmount}})
	_ = obj.Params.SetTyped("alpha", []param.Value{{Kind: param.KindFloat, F: alpha}})

	if baseColorTex != nil {
		if texName, ok := textureAssetName(doc, baseColorTex.Index); ok {
			obj.DeclareInput("texture", object.InputTexture)
			_ = obj.Params.SetTyped("texture", []param.Value{{Kind: param.KindString, S: texName}})
		}
	}
	if metalRoughTex != nil {
		if texName, ok := textureAssetName(doc, metalRoughTex.Index); ok {
			// "metallicRoughness as a diffuse bump with a fixed displacement"
			_ = obj.Params.SetTyped("diffuseBumpTexture", []param.Value{{Kind: param.KindString, S: texName}})
			_ = obj.Params.SetTyped("diffuseBumpDisplacement", []param.Value{{Kind: param.KindFloat, F: 0.02}})
		}
	}

	return name, nil
}

func textureAssetName(doc *document, texIdx int) (string, bool) {
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return "", false
	}
	src := doc.Textures[texIdx].Source
	if src == nil || *src >= len(doc.Images) {
		return "", false
	}
	img := doc.Images[*src]
	if img.URI == "" {
		return "", false
	}
	return img.URI, true
}

// materializeMeshPrimitive creates a MESH (transform) asset object for one
// node x primitive pair (spec §6.2).
func materializeMeshPrimitive(reg *asset.Registry, doc *document, buffers [][]byte, name string, prim primitive, xform object.Transform, skipTransform bool) (string, error) {
	if prim.Mode != nil && *prim.Mode != primitiveModeTriangles {
		return "", fmt.Errorf("gltfload: primitive %q: only TRIANGLES mode is supported", name)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return "", fmt.Errorf("gltfload: primitive %q: missing POSITION attribute", name)
	}
	positions, err := readVec3Accessor(doc, buffers, posAccessor)
	if err != nil {
		return "", fmt.Errorf("gltfload: primitive %q: %w", name, err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err = readVec3Accessor(doc, buffers, idx)
		if err != nil {
			return "", fmt.Errorf("gltfload: primitive %q: %w", name, err)
		}
	}

	var uvs [][2]float32
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err = readVec2Accessor(doc, buffers, idx)
		if err != nil {
			return "", fmt.Errorf("gltfload: primitive %q: %w", name, err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = readIndicesAccessor(doc, buffers, *prim.Indices)
		if err != nil {
			return "", fmt.Errorf("gltfload: primitive %q: %w", name, err)
		}
	}

	obj, err := reg.AddObject(object.KindMesh, name)
	if err != nil {
		return "", fmt.Errorf("gltfload: mesh %q: %w", name, err)
	}

	if !skipTransform {
		obj.Transform = xform
	}

	if prim.Material != nil {
		obj.DeclareInput("material", object.InputMaterial)
	}

	_ = obj.Params.SetTyped("vertexCount", []param.Value{{Kind: param.KindInt, I: int32(len(positions))}})
	_ = obj.Params.SetTyped("indexCount", []param.Value{{Kind: param.KindInt, I: int32(len(indices))}})
	_ = obj.Params.SetTyped("hasNormals", []param.Value{{Kind: param.KindInt, I: boolToInt(len(normals) > 0)}})
	_ = obj.Params.SetTyped("hasUVs", []param.Value{{Kind: param.KindInt, I: boolToInt(len(uvs) > 0)}})

	return name, nil
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
