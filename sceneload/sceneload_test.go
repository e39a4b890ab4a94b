package sceneload

import (
	"strings"
	"testing"

	"github.com/brightloom/corerender/asset"
	"github.com/brightloom/corerender/object"
	"github.com/brightloom/corerender/scene"
	"github.com/brightloom/corerender/sceneformat"
)

type recordingBehavior struct{ commands []string }

func (b *recordingBehavior) Define(obj *object.Object, width, height int) {
	obj.DeclareInput("material", object.InputMaterial)
}
func (b *recordingBehavior) Generate(obj *object.Object, width, height int) {}
func (b *recordingBehavior) Run(obj *object.Object, t float32) error        { return nil }
func (b *recordingBehavior) RunCommand(obj *object.Object, key, args string) error {
	b.commands = append(b.commands, key+"="+args)
	return nil
}

type plainBehavior struct{}

func (plainBehavior) Define(obj *object.Object, width, height int)   {}
func (plainBehavior) Generate(obj *object.Object, width, height int) {}
func (plainBehavior) Run(obj *object.Object, t float32) error        { return nil }

func testRegistry() *asset.Registry {
	return asset.NewRegistry(map[object.Kind]asset.Factory{
		object.KindMesh:     func() object.Behavior { return &recordingBehavior{} },
		object.KindMaterial: func() object.Behavior { return plainBehavior{} },
		object.KindCamera:   func() object.Behavior { return plainBehavior{} },
	})
}

func TestBuildMaterializesObjectsInOrder(t *testing.T) {
	src := `[CAMERA] Cam
  pos: <0,1,2>

[MESH] Box
  xform: <1,2,3>; <1,1,1>; <0,90,0>
  input: material = Wood
  param: vertexCount, 8
`
	doc, err := sceneformat.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	reg := testRegistry()
	scn := scene.New("t", reg)
	count, err := Build(reg, scn, doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if len(scn.List()) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(scn.List()))
	}

	box, ok := reg.FindObj("Box")
	if !ok {
		t.Fatal("Box not registered")
	}
	if box.Transform.Pos != ([3]float32{1, 2, 3}) {
		t.Fatalf("Box.Transform.Pos = %v, want [1 2 3]", box.Transform.Pos)
	}
	vc, err := box.Params.Int("vertexCount", 0)
	if err != nil || vc != 8 {
		t.Fatalf("vertexCount = %v, %v; want 8", vc, err)
	}
}

func TestBuildSkipsDisabledObjects(t *testing.T) {
	src := "#[CAMERA] Cam\n  pos: <0,0,0>\n"
	doc, err := sceneformat.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := testRegistry()
	scn := scene.New("t", reg)
	count, err := Build(reg, scn, doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 (disabled object should be skipped)", count)
	}
}

func TestBuildErrorsOnUnknownInput(t *testing.T) {
	src := "[CAMERA] Cam\n  input: nonexistent = Foo\n"
	doc, err := sceneformat.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := testRegistry()
	scn := scene.New("t", reg)
	if _, err := Build(reg, scn, doc); err == nil {
		t.Fatal("binding an undeclared input should error")
	}
}

func TestBuildDispatchesUnknownKeysToCommandRunner(t *testing.T) {
	src := "[MESH] Box\n  customKey: hello world\n"
	doc, err := sceneformat.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := testRegistry()
	scn := scene.New("t", reg)
	if _, err := Build(reg, scn, doc); err != nil {
		t.Fatalf("Build: %v", err)
	}
	box, _ := reg.FindObj("Box")
	rb := box.Behavior.(*recordingBehavior)
	if len(rb.commands) != 1 || rb.commands[0] != "customKey=hello world" {
		t.Fatalf("commands = %v, want [customKey=hello world]", rb.commands)
	}
}

func TestBuildErrorsWhenBehaviorCannotRunCommand(t *testing.T) {
	src := "[CAMERA] Cam\n  customKey: hello\n"
	doc, err := sceneformat.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := testRegistry()
	scn := scene.New("t", reg)
	if _, err := Build(reg, scn, doc); err == nil {
		t.Fatal("a command for a Behavior without CommandRunner should error")
	}
}

func TestEulerDegToQuatIdentity(t *testing.T) {
	q := eulerDegToQuat([3]float32{0, 0, 0})
	if q != ([4]float32{0, 0, 0, 1}) {
		t.Fatalf("eulerDegToQuat(0,0,0) = %v, want identity quaternion", q)
	}
}
