package shaderparam

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocationsUnsetReturnsAbsent(t *testing.T) {
	loc := NewLocations()
	if loc.Location(PViewMtx) != Absent {
		t.Fatalf("Location(PViewMtx) = %d, want Absent", loc.Location(PViewMtx))
	}
	loc.Set(PViewMtx, 3)
	if loc.Location(PViewMtx) != 3 {
		t.Fatalf("Location(PViewMtx) = %d, want 3", loc.Location(PViewMtx))
	}
}

func TestPSMtxOffsetsFromRoleCount(t *testing.T) {
	if PSMtx(0) != roleCount {
		t.Fatalf("PSMtx(0) = %d, want %d", PSMtx(0), roleCount)
	}
	if PSMtx(2)-PSMtx(0) != 2 {
		t.Fatal("PSMtx should space consecutive splits by 1")
	}
}

type fakeReflector struct{ locations map[string]int32 }

func (r fakeReflector) UniformLocation(name string) (int32, bool) {
	l, ok := r.locations[name]
	return l, ok
}

func TestReflectResolvesKnownNamesAndMarksRestAbsent(t *testing.T) {
	r := fakeReflector{locations: map[string]int32{
		"u_viewMatrix":    0,
		"u_projMatrix":    1,
		"u_shadowMatrix[0]": 10,
		"u_shadowMatrix[1]": 11,
	}}
	loc := Reflect(r, 2)
	if loc.Location(PViewMtx) != 0 {
		t.Fatalf("PViewMtx = %d, want 0", loc.Location(PViewMtx))
	}
	if loc.Location(PProjMtx) != 1 {
		t.Fatalf("PProjMtx = %d, want 1", loc.Location(PProjMtx))
	}
	if loc.Location(PCamPos) != Absent {
		t.Fatal("an unreflected role should resolve to Absent")
	}
	if loc.Location(PSMtx(0)) != 10 || loc.Location(PSMtx(1)) != 11 {
		t.Fatalf("PSMtx locations = %d, %d; want 10, 11", loc.Location(PSMtx(0)), loc.Location(PSMtx(1)))
	}
}

func TestLocateStagesRequiresVertexStage(t *testing.T) {
	dir := t.TempDir()
	fragPath := filepath.Join(dir, "phong.frag.glsl")
	if err := os.WriteFile(fragPath, []byte("// frag"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LocateStages(fragPath); err == nil {
		t.Fatal("missing vertex companion should error")
	}

	vertPath := filepath.Join(dir, "phong.vert.glsl")
	if err := os.WriteFile(vertPath, []byte("// vert"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	set, err := LocateStages(fragPath)
	if err != nil {
		t.Fatalf("LocateStages: %v", err)
	}
	if set.Vertex != vertPath {
		t.Fatalf("Vertex = %q, want %q", set.Vertex, vertPath)
	}
	if set.Geometry != "" {
		t.Fatalf("Geometry = %q, want empty (no geom file present)", set.Geometry)
	}
}

func TestLocateStagesFindsOptionalGeometryStage(t *testing.T) {
	dir := t.TempDir()
	fragPath := filepath.Join(dir, "water.frag.glsl")
	vertPath := filepath.Join(dir, "water.vert.glsl")
	geomPath := filepath.Join(dir, "water.geom.glsl")
	for _, p := range []string{fragPath, vertPath, geomPath} {
		if err := os.WriteFile(p, []byte("// stage"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}
	set, err := LocateStages(fragPath)
	if err != nil {
		t.Fatalf("LocateStages: %v", err)
	}
	if set.Geometry != geomPath {
		t.Fatalf("Geometry = %q, want %q", set.Geometry, geomPath)
	}
}

func TestLocateStagesRejectsNonFragPath(t *testing.T) {
	if _, err := LocateStages("/tmp/whatever.glsl"); err == nil {
		t.Fatal("a path not ending in .frag.glsl should be rejected")
	}
}
