// Package object implements the lazily-evaluated directed object graph node
// (spec §3.1, §4.2). It is modeled on engine/game_object/game_object.go's
// shape (id, enabled, ephemeral, derived transform) generalized with the
// input/output/parameter-store/dirty-mark protocol spec.md requires, and on
// engine/loader/loader.go's "one registry owns everything, everyone else
// holds an id" ownership rule (see package asset).
package object

import (
	"log/slog"

	"github.com/brightloom/corerender/linmath"
	"github.com/brightloom/corerender/param"
)

// ID is a stable, dense integer identifier into the asset registry.
type ID int64

// Sentinel object ids (spec §3.1).
const (
	Null     ID = -1
	ShapeGrp ID = -2
)

// Kind is the four-character type tag carried by every object (spec §6.1).
// Twenty-odd kinds with a fixed method table replace the reference's
// inheritance hierarchy per spec §9's "deep polymorphism" design note.
type Kind string

const (
	KindGlobals     Kind = "glbs"
	KindModule      Kind = "modl"
	KindScatter     Kind = "scat"
	KindInstance    Kind = "inst"
	KindLights      Kind = "lite"
	KindCamera      Kind = "came"
	KindMesh        Kind = "mesh"
	KindLoft        Kind = "loft"
	KindHeightfield Kind = "hgtf"
	KindDisplace    Kind = "disp"
	KindPointsys    Kind = "pnts"
	KindCharacter   Kind = "chrc"
	KindMotion      Kind = "motn"
	KindParts       Kind = "part"
	KindMuscles     Kind = "musc"
	KindVolume      Kind = "volu"
	KindMaterial    Kind = "matl"
	KindShapes      Kind = "shps"
	KindImage       Kind = "imag"
	KindShader      Kind = "shdr"
	KindPoints      Kind = "pts "
	KindParams      Kind = "prms"
)

// Mark is a bit flag set recording the node's evaluation state (spec §4.4).
type Mark uint8

const (
	MarkDirty    Mark = 1 << 0
	MarkClean    Mark = 1 << 1
	MarkComplete Mark = 1 << 2
)

// InputType constrains what an input slot may be connected to.
type InputType string

const (
	InputTime     InputType = "time"
	InputMesh     InputType = "mesh"
	InputMaterial InputType = "material"
	InputTexture  InputType = "texture"
	InputList     InputType = "list" // variadic: AppendListInput adds further slots
	InputAny      InputType = "any"
)

// Input is one declared input slot.
type Input struct {
	Name     string
	Type     InputType
	Asset    string // asset name bound to the slot, "" if unbound
	Resolved ID     // resolved producer id, object.Null if unbound
}

// Transform is the node's local position/rotation/scale/pivot (spec §3.1).
type Transform struct {
	Pos   linmath.Vec3
	Rot   linmath.Quat
	Scale linmath.Vec3
	Pivot linmath.Vec3
}

// IdentityTransform returns the identity local transform.
func IdentityTransform() Transform {
	return Transform{Scale: linmath.Vec3{1, 1, 1}, Rot: linmath.IdentityQuat()}
}

// Local returns the 4x4 matrix equivalent of the transform.
func (t Transform) Local() linmath.Mat4 {
	return linmath.Transform(t.Pos, t.Rot, t.Scale, t.Pivot)
}

// TimeRange is the [start, end] window (spec §3.1, §6.1 "time" key) during
// which a time-dependent object is marked dirty on Scene.Execute's advance.
type TimeRange struct{ Start, End float32 }

// Behavior is the fixed method table every Kind implements (spec §9). Define
// is invoked once at creation; Generate on structural rebuild; Run each
// dirty frame; Sketch (the Sketcher interface) is an optional debug-drawing
// hook that kinds which don't need it do not implement.
type Behavior interface {
	Define(obj *Object, width, height int)
	Generate(obj *Object, width, height int)
	Run(obj *Object, t float32) error
}

// Sketcher is implemented by kinds offering debug drawing.
type Sketcher interface {
	Sketch(obj *Object, width, height int, camera ID)
}

// CommandRunner is implemented by kinds that handle unrecognized scene-file
// keys (spec §6.1: "Unknown keys are dispatched via obj.RunCommand(key,
// args)"). Kinds without kind-specific commands simply don't implement it;
// the dispatcher then reports the key as unhandled.
type CommandRunner interface {
	RunCommand(obj *Object, key, args string) error
}

// Object is one node of the scene graph.
type Object struct {
	ID        ID
	Name      string
	Kind      Kind
	Mark      Mark
	Visible   bool
	Ephemeral bool

	Inputs []Input
	Output ID

	Params *param.Store

	Transform Transform
	TimeRange TimeRange

	Behavior Behavior

	log *slog.Logger
}

// New constructs an object in its as-created state: dirty, incomplete, no
// output, an empty parameter store. Define is not called here — the
// registry calls it once immediately after construction (spec §4.2).
func New(id ID, name string, kind Kind, behavior Behavior) *Object {
	return &Object{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Mark:      MarkDirty,
		Visible:   true,
		Output:    Null,
		Params:    param.NewStore(),
		Transform: IdentityTransform(),
		Behavior:  behavior,
		log:       slog.Default().With("object", name, "kind", string(kind)),
	}
}

// IsDirty reports whether the node needs re-evaluation.
func (o *Object) IsDirty() bool { return o.Mark&MarkDirty != 0 }

// IsComplete reports whether every ancestor this node depends on has
// succeeded at least once (spec §3.1 invariant).
func (o *Object) IsComplete() bool { return o.Mark&MarkComplete != 0 }

// MarkDirty sets the dirty bit. Per spec §3.1, dirty propagates forward:
// callers are responsible for also dirtying Output, never Inputs.
func (o *Object) MarkDirty() { o.Mark |= MarkDirty; o.Mark &^= MarkClean }

// MarkClean clears dirty and sets the clean bit; Run must call this on
// success (spec §4.2).
func (o *Object) MarkClean() { o.Mark &^= MarkDirty; o.Mark |= MarkClean }

// MarkCompleteFlag sets the complete bit once the node has produced a result.
func (o *Object) MarkCompleteFlag() { o.Mark |= MarkComplete }

// IsTimeDependent reports whether input 0 is a time input (spec §3.1
// invariant: a time input, when present, must be at index 0).
func (o *Object) IsTimeDependent() bool {
	return len(o.Inputs) > 0 && o.Inputs[0].Type == InputTime
}

// DeclareInput appends an input slot declaration; used by Define.
func (o *Object) DeclareInput(name string, t InputType) {
	o.Inputs = append(o.Inputs, Input{Name: name, Type: t, Resolved: Null})
}

// InputIndex finds a declared input by name, or -1.
func (o *Object) InputIndex(name string) int {
	for i, in := range o.Inputs {
		if in.Name == name {
			return i
		}
	}
	return -1
}

// bindInput is the low-level slot write: it sets one input slot's asset name
// and resolved producer id.
func (o *Object) bindInput(idx int, assetName string, resolved ID) {
	o.Inputs[idx].Asset = assetName
	o.Inputs[idx].Resolved = resolved
}

// AppendListInput appends a new, unbound slot with the given name and type,
// used when an input is declared InputList and a further binding arrives
// (spec §4.2 "variadic" input semantics).
func (o *Object) AppendListInput(name string, t InputType) int {
	o.Inputs = append(o.Inputs, Input{Name: name, Type: t, Resolved: Null})
	return len(o.Inputs) - 1
}
