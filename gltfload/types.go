// Package gltfload implements the GLTF loader external interface (spec
// §6.2): it parses an ASCII glTF 2.0 document and materializes a MATERIAL
// asset per glTF material and a MESH asset per node x primitive into an
// asset registry, applying the mapping rules spec §6.2 names. Directly
// adapted from engine/loader/gltf_types.go and gltf_parser.go's JSON
// schema and accessor-reading conventions — those types are unexported and
// package-private to engine/loader, so the schema subset this loader needs
// is re-declared here rather than imported, trimmed to the fields the
// mapping rules actually read (skins/animations/morph targets are left to
// the out-of-scope skeletal/animation extractors the teacher keeps
// separate in gltf_skeleton_extractor.go/gltf_animation_extractor.go).
package gltfload

// document is the root of a glTF JSON document, grounded on
// engine/loader/gltf_types.go's gltfDocument.
type document struct {
	Asset       asset        `json:"asset"`
	Nodes       []node       `json:"nodes,omitempty"`
	Meshes      []mesh       `json:"meshes,omitempty"`
	Accessors   []accessor   `json:"accessors,omitempty"`
	BufferViews []bufferView `json:"bufferViews,omitempty"`
	Buffers     []buffer     `json:"buffers,omitempty"`
	Materials   []material   `json:"materials,omitempty"`
	Textures    []texture    `json:"textures,omitempty"`
	Images      []image      `json:"images,omitempty"`
}

type asset struct {
	Version string `json:"version"`
}

type node struct {
	Name        string     `json:"name,omitempty"`
	Children    []int      `json:"children,omitempty"`
	Mesh        *int       `json:"mesh,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
}

type mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []primitive `json:"primitives"`
}

type primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

type accessor struct {
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
}

type bufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

type buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

type material struct {
	Name                  string                 `json:"name,omitempty"`
	PbrMetallicRoughness  *pbrMetallicRoughness  `json:"pbrMetallicRoughness,omitempty"`
	AlphaMode             string                 `json:"alphaMode,omitempty"`
	AlphaCutoff           *float32               `json:"alphaCutoff,omitempty"`
}

type pbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *textureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *textureInfo `json:"metallicRoughnessTexture,omitempty"`
}

type textureInfo struct {
	Index int `json:"index"`
}

type texture struct {
	Source *int `json:"source,omitempty"`
}

type image struct {
	URI string `json:"uri,omitempty"`
}

// Component/accessor type constants, grounded on gltf_types.go's constant
// block of the same names.
const (
	componentTypeUnsignedShort = 5123
	componentTypeUnsignedInt   = 5125
	componentTypeFloat         = 5126
)

const (
	accessorTypeScalar = "SCALAR"
	accessorTypeVec2   = "VEC2"
	accessorTypeVec3   = "VEC3"
)

const primitiveModeTriangles = 4
