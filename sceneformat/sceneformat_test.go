package sceneformat

import (
	"bytes"
	"strings"
	"testing"
)

const sample = `[CAMERA] MainCam
  visible: true
  pos: <0,1,2>
  param: fov, 60

#[MESH] DisabledMesh
  pos: <0,0,0>

[MESH] Box
  xform: <1,2,3>; <1,1,1>; <0,45,0>
  input: material = Wood
  param: color, <1,0,0>
  time: <0,10,0>
  customCommand: some args
`

func TestParseBasicDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Objects) != 3 {
		t.Fatalf("len(Objects) = %d, want 3", len(doc.Objects))
	}

	cam := doc.Objects[0]
	if cam.Type != "CAMERA" || cam.Name != "MainCam" {
		t.Fatalf("cam = %+v", cam)
	}
	if cam.Visible == nil || !*cam.Visible {
		t.Fatal("cam.Visible should be true")
	}
	if cam.Pos == nil || *cam.Pos != [3]float32{0, 1, 2} {
		t.Fatalf("cam.Pos = %v, want [0 1 2]", cam.Pos)
	}
	if len(cam.Params) != 1 || cam.Params[0].Name != "fov" {
		t.Fatalf("cam.Params = %+v", cam.Params)
	}

	disabled := doc.Objects[1]
	if !disabled.Disabled {
		t.Fatal("#[MESH] header should mark the object Disabled")
	}

	box := doc.Objects[2]
	if box.XformPos == nil || box.XformScl == nil || box.XformRotD == nil {
		t.Fatalf("box xform fields not all populated: %+v", box)
	}
	if len(box.Inputs) != 1 || box.Inputs[0].InputName != "material" || box.Inputs[0].AssetName != "Wood" {
		t.Fatalf("box.Inputs = %+v", box.Inputs)
	}
	if box.TimeStart == nil || *box.TimeStart != 0 || box.TimeEnd == nil || *box.TimeEnd != 10 {
		t.Fatalf("box time range = %v..%v", box.TimeStart, box.TimeEnd)
	}
	if len(box.Commands) != 1 || box.Commands[0].Key != "customCommand" {
		t.Fatalf("box.Commands = %+v", box.Commands)
	}
}

func TestParseKeyOutsideObjectErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("pos: <0,0,0>\n"))
	if err == nil {
		t.Fatal("a key line before any object header should be a parse error")
	}
	var pe *ParseError
	if !errorsAs(err, &pe) {
		t.Fatalf("error should be a *ParseError, got %T", err)
	}
	if pe.Line != 1 {
		t.Fatalf("ParseError.Line = %d, want 1", pe.Line)
	}
}

func TestParseMalformedValueErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("[CAMERA] C\n  visible: maybe\n"))
	if err == nil {
		t.Fatal("an unparsable bool should be a parse error")
	}
}

func TestParseUnregisteredTypeSkipsKeys(t *testing.T) {
	doc, err := Parse(strings.NewReader("[WIDGET] Foo\n  pos: <1,2,3>\n[CAMERA] Cam\n  visible: true\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Objects) != 1 || doc.Objects[0].Name != "Cam" {
		t.Fatalf("an unregistered type header should be skipped along with its keys: %+v", doc.Objects)
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	doc2, err := Parse(&buf)
	if err != nil {
		t.Fatalf("re-Parse of written document: %v", err)
	}
	if len(doc2.Objects) != len(doc.Objects) {
		t.Fatalf("round-tripped object count = %d, want %d", len(doc2.Objects), len(doc.Objects))
	}
	for i := range doc.Objects {
		if doc.Objects[i].Name != doc2.Objects[i].Name || doc.Objects[i].Type != doc2.Objects[i].Type {
			t.Fatalf("object %d identity changed across round trip: %+v vs %+v", i, doc.Objects[i], doc2.Objects[i])
		}
	}
}

func errorsAs(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if !ok {
		return false
	}
	*target = pe
	return true
}
