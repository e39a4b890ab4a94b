// Package sceneload bridges a parsed sceneformat.Document into a live
// asset.Registry and scene.Scene (spec §6.1): it is the scene-text-format
// analogue of package gltfload, materializing ObjectDecls into Objects and
// applying their pos/xform/input/param/time fields, dispatching anything
// else via object.CommandRunner. Grounded on engine/scene/scene.go's
// AddGameObject-from-declaration pattern (there: programmatic construction
// from Go call sites; here: construction from a parsed text document).
package sceneload

import (
	"fmt"
	"math"

	"github.com/brightloom/corerender/asset"
	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/object"
	"github.com/brightloom/corerender/scene"
	"github.com/brightloom/corerender/sceneformat"
)

// typeTags maps the scene format's registered type names to the four-byte
// Kind tags object.Kind uses (spec §6.1: "Type tags are four-character
// codes").
var typeTags = map[string]object.Kind{
	"GLOBALS":     object.KindGlobals,
	"MODULE":      object.KindModule,
	"SCATTER":     object.KindScatter,
	"INSTANCE":    object.KindInstance,
	"LIGHTS":      object.KindLights,
	"CAMERA":      object.KindCamera,
	"MESH":        object.KindMesh,
	"LOFT":        object.KindLoft,
	"HEIGHTFIELD": object.KindHeightfield,
	"DISPLACE":    object.KindDisplace,
	"POINTSYS":    object.KindPointsys,
	"CHARACTER":   object.KindCharacter,
	"MOTION":      object.KindMotion,
	"PARTS":       object.KindParts,
	"MUSCLES":     object.KindMuscles,
	"VOLUME":      object.KindVolume,
	"MATERIAL":    object.KindMaterial,
	"SHAPES":      object.KindShapes,
	"IMAGE":       object.KindImage,
	"SHADER":      object.KindShader,
	"POINTS":      object.KindPoints,
	"PARAMS":      object.KindParams,
}

// Build materializes every ObjectDecl in doc into reg, appends each
// resulting object to scn in declaration order, and returns the count of
// objects successfully added. Disabled objects (#[TYPE] headers) are
// skipped entirely, matching spec §6.1's "#[TYPE] disables an object".
func Build(reg *asset.Registry, scn *scene.Scene, doc *sceneformat.Document) (int, error) {
	added := 0
	for _, decl := range doc.Objects {
		if decl.Disabled {
			continue
		}
		kind, ok := typeTags[decl.Type]
		if !ok {
			return added, fmt.Errorf("sceneload: line %d: unregistered type %q", decl.Line, decl.Type)
		}
		obj, err := reg.AddObject(kind, decl.Name)
		if err != nil {
			return added, fmt.Errorf("sceneload: line %d: %w", decl.Line, err)
		}
		if err := applyDecl(obj, decl); err != nil {
			return added, err
		}
		scn.Add(obj.ID)
		added++
	}
	return added, nil
}

func applyDecl(obj *object.Object, decl sceneformat.ObjectDecl) error {
	if decl.Visible != nil {
		obj.Visible = *decl.Visible
	}
	if decl.Pos != nil {
		obj.Transform.Pos = linmath.Vec3{decl.Pos[0], decl.Pos[1], decl.Pos[2]}
	}
	if decl.XformPos != nil {
		obj.Transform.Pos = linmath.Vec3{decl.XformPos[0], decl.XformPos[1], decl.XformPos[2]}
		obj.Transform.Scale = linmath.Vec3{decl.XformScl[0], decl.XformScl[1], decl.XformScl[2]}
		obj.Transform.Rot = eulerDegToQuat(*decl.XformRotD)
	}
	for _, in := range decl.Inputs {
		idx := obj.InputIndex(in.InputName)
		if idx < 0 {
			return fmt.Errorf("sceneload: line %d: object %q has no input %q declared", decl.Line, obj.Name, in.InputName)
		}
		obj.Inputs[idx].Asset = in.AssetName
	}
	for _, p := range decl.Params {
		if err := obj.Params.SetParam(p.Name, p.Value); err != nil {
			return fmt.Errorf("sceneload: line %d: %w", decl.Line, err)
		}
	}
	if decl.TimeStart != nil {
		obj.TimeRange = object.TimeRange{Start: *decl.TimeStart, End: *decl.TimeEnd}
	}
	for _, cmd := range decl.Commands {
		runner, ok := obj.Behavior.(object.CommandRunner)
		if !ok {
			return fmt.Errorf("sceneload: line %d: object %q does not handle command %q", decl.Line, obj.Name, cmd.Key)
		}
		if err := runner.RunCommand(obj, cmd.Key, cmd.Args); err != nil {
			return fmt.Errorf("sceneload: line %d: command %q: %w", decl.Line, cmd.Key, err)
		}
	}
	return nil
}

// eulerDegToQuat converts Euler degrees (XYZ order) to a rotation
// quaternion, matching the xform grammar's rotation field (spec §6.1
// "Euler rotation in degrees").
func eulerDegToQuat(degXYZ [3]float32) linmath.Quat {
	const deg2rad = 3.14159265358979323846 / 180
	hx, hy, hz := degXYZ[0]*deg2rad*0.5, degXYZ[1]*deg2rad*0.5, degXYZ[2]*deg2rad*0.5
	cx, sx := float32(math.Cos(float64(hx))), float32(math.Sin(float64(hx)))
	cy, sy := float32(math.Cos(float64(hy))), float32(math.Sin(float64(hy)))
	cz, sz := float32(math.Cos(float64(hz))), float32(math.Sin(float64(hz)))

	return linmath.Quat{
		sx*cy*cz - cx*sy*sz,
		cx*sy*cz + sx*cy*sz,
		cx*cy*sz - sx*sy*cz,
		cx*cy*cz + sx*sy*sz,
	}
}
