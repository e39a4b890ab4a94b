package gltfload

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brightloom/corerender/asset"
	"github.com/brightloom/corerender/object"
)

func testRegistry() *asset.Registry {
	return asset.NewRegistry(map[object.Kind]asset.Factory{
		object.KindMaterial: func() object.Behavior { return noopBehavior{} },
		object.KindMesh:     func() object.Behavior { return noopBehavior{} },
	})
}

type noopBehavior struct{}

func (noopBehavior) Define(obj *object.Object, width, height int)   {}
func (noopBehavior) Generate(obj *object.Object, width, height int) {}
func (noopBehavior) Run(obj *object.Object, t float32) error        { return nil }

func f32le(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// buildTriangleGLTF returns a minimal single-triangle glTF document string
// with one transparent material (alpha 0.3), embedding its buffer as a data
// URI so the test needs no external files.
func buildTriangleGLTF() string {
	var buf []byte
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	posOffset := len(buf)
	for _, p := range positions {
		buf = append(buf, f32le(p[0])...)
		buf = append(buf, f32le(p[1])...)
		buf = append(buf, f32le(p[2])...)
	}
	idxOffset := len(buf)
	for _, idx := range []uint16{0, 1, 2} {
		buf = append(buf, u16le(idx)...)
	}

	encoded := base64.StdEncoding.EncodeToString(buf)

	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "buffers": [{"uri": "data:application/octet-stream;base64,%s", "byteLength": %d}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": %d, "byteLength": %d},
    {"buffer": 0, "byteOffset": %d, "byteLength": %d}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "materials": [
    {"name": "Glass", "pbrMetallicRoughness": {"baseColorFactor": [1,1,1,0.3], "metallicFactor": 0, "roughnessFactor": 0.5}}
  ],
  "meshes": [
    {"name": "Tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0, "mode": 4}]}
  ],
  "nodes": [
    {"name": "TriNode", "mesh": 0, "translation": [1,2,3]}
  ]
}`, encoded, len(buf), posOffset, idxOffset-posOffset, idxOffset, len(buf)-idxOffset)
}

func TestLoadMaterializesMaterialAndMesh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")
	if err := os.WriteFile(path, []byte(buildTriangleGLTF()), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	reg := testRegistry()
	res, err := Load(reg, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(res.MaterialNames) != 1 {
		t.Fatalf("len(MaterialNames) = %d, want 1", len(res.MaterialNames))
	}
	if res.MaterialNames[0] != "Glass"+transpSuffix {
		t.Fatalf("material name = %q, want alpha<0.5 to suffix TRANSP", res.MaterialNames[0])
	}

	matObj, ok := reg.FindObj("Glass" + transpSuffix)
	if !ok {
		t.Fatal("material object not registered under its TRANSP-suffixed name")
	}
	alpha, err := matObj.Params.Float("alpha", 0)
	if err != nil || alpha != float32(0.3) {
		t.Fatalf("material alpha = %v, %v; want 0.3", alpha, err)
	}

	if len(res.MeshNames) != 1 {
		t.Fatalf("len(MeshNames) = %d, want 1", len(res.MeshNames))
	}
	meshObj, ok := reg.FindObj(res.MeshNames[0])
	if !ok {
		t.Fatal("mesh object not registered")
	}
	// Transparent material's mesh should have its node transform skipped.
	if meshObj.Transform.Pos != (object.IdentityTransform().Pos) {
		t.Fatalf("mesh transform should be left at identity when its material is TRANSP, got %v", meshObj.Transform.Pos)
	}

	vc, err := meshObj.Params.Int("vertexCount", 0)
	if err != nil || vc != 3 {
		t.Fatalf("vertexCount = %v, %v; want 3", vc, err)
	}
	ic, err := meshObj.Params.Int("indexCount", 0)
	if err != nil || ic != 3 {
		t.Fatalf("indexCount = %v, %v; want 3 (16-bit indices promoted to 32-bit count)", ic, err)
	}
}

func TestLoadOpaqueMaterialKeepsTransform(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")
	doc := buildTriangleGLTF()
	// Flip the fixture's alpha to opaque by replacing the factor directly.
	doc = strings.Replace(doc, `"baseColorFactor": [1,1,1,0.3]`, `"baseColorFactor": [1,1,1,1]`, 1)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	reg := testRegistry()
	res, err := Load(reg, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.MaterialNames[0] != "Glass" {
		t.Fatalf("opaque material should not be TRANSP-suffixed, got %q", res.MaterialNames[0])
	}
	meshObj, _ := reg.FindObj(res.MeshNames[0])
	if meshObj.Transform.Pos != ([3]float32{1, 2, 3}) {
		t.Fatalf("opaque-backed mesh should keep its node translation, got %v", meshObj.Transform.Pos)
	}
}
