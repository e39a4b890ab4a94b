// Package shaderparam implements the shader uniform-role map (spec §4.7)
// and the companion-file convention (spec §6.3). Grounded on
// engine/renderer/shader/annotations.go's comment-directive reflection (the
// teacher's WGSL "@oxy:" annotations drive automatic bind-group wiring);
// generalized here from WGSL-specific annotations to a fixed small integer
// per uniform role, resolved once per compiled program and cached, with -1
// denoting an absent uniform exactly as spec §4.7 requires.
package shaderparam

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Role is a fixed uniform-role index (spec §4.7).
type Role int

const (
	PViewMtx Role = iota
	PProjMtx
	PCamPos
	PEnvMap
	PLightCnt
	PSFar1
	PSFar2
	PSTex
	PSSize
	PTexturePoolBinding
	PMaterialPoolBinding
	PLightPoolBinding
	roleCount
)

// PSMtx returns the role for cascade split i's shadow matrix uniform
// (spec §4.7 "P_SMTX[N]" — one role per configured split).
func PSMtx(split int) Role { return roleCount + Role(split) }

// Absent is returned by Locations.Location for an unresolved role (spec
// §4.7: "-1 denotes absent").
const Absent = -1

// Locations is the per-program uniform-location table populated by the
// base shader loader's reflection pass.
type Locations struct {
	byRole map[Role]int32
}

// NewLocations returns an empty location table.
func NewLocations() *Locations { return &Locations{byRole: make(map[Role]int32)} }

// Set records the resolved location for a role.
func (l *Locations) Set(role Role, location int32) { l.byRole[role] = location }

// Location returns the resolved location for a role, or Absent.
func (l *Locations) Location(role Role) int32 {
	if loc, ok := l.byRole[role]; ok {
		return loc
	}
	return Absent
}

// Reflector resolves a uniform or attribute name to its compiled-program
// location. Kept as an interface so this package has no GPU-API
// dependency; no type in this module implements it.
type Reflector interface {
	UniformLocation(name string) (int32, bool)
}

// roleNames is the fixed mapping from role to the uniform name the
// rasterizer's shaders declare it under, matching the fixed role set named
// in spec §4.7.
var roleNames = map[Role]string{
	PViewMtx:             "u_viewMatrix",
	PProjMtx:             "u_projMatrix",
	PCamPos:              "u_camPos",
	PEnvMap:              "u_envMap",
	PLightCnt:            "u_lightCount",
	PSFar1:               "u_shadowFar1",
	PSFar2:               "u_shadowFar2",
	PSTex:                "u_shadowTex",
	PSSize:               "u_shadowMapSize",
	PTexturePoolBinding:  "u_texturePool",
	PMaterialPoolBinding: "u_materialPool",
	PLightPoolBinding:    "u_lightPool",
}

// Reflect resolves every fixed role plus the per-split shadow-matrix roles
// against a compiled program, recording Absent (-1) for anything the
// program does not declare (spec §4.7).
func Reflect(r Reflector, cascadeSplits int) *Locations {
	loc := NewLocations()
	for role, name := range roleNames {
		if l, ok := r.UniformLocation(name); ok {
			loc.Set(role, l)
		} else {
			loc.Set(role, Absent)
		}
	}
	for i := 0; i < cascadeSplits; i++ {
		name := fmt.Sprintf("u_shadowMatrix[%d]", i)
		if l, ok := r.UniformLocation(name); ok {
			loc.Set(PSMtx(i), l)
		} else {
			loc.Set(PSMtx(i), Absent)
		}
	}
	return loc
}

// StageSet is the set of companion source files found for one shader name
// (spec §6.3: "for a name foo.frag.glsl, the loader also seeks
// foo.vert.glsl (required) and foo.geom.glsl (optional)").
type StageSet struct {
	Name     string
	Fragment string
	Vertex   string
	Geometry string // "" if absent
}

// LocateStages finds the companion vertex/geometry files for a given
// fragment shader path, failing if the required vertex stage is missing.
func LocateStages(fragPath string) (*StageSet, error) {
	base := filepath.Base(fragPath)
	if !strings.HasSuffix(base, ".frag.glsl") {
		return nil, fmt.Errorf("shaderparam: %q is not a *.frag.glsl file", fragPath)
	}
	name := strings.TrimSuffix(base, ".frag.glsl")
	dir := filepath.Dir(fragPath)

	vertPath := filepath.Join(dir, name+".vert.glsl")
	if _, err := os.Stat(vertPath); err != nil {
		return nil, fmt.Errorf("shaderparam: required vertex stage %q not found: %w", vertPath, err)
	}

	set := &StageSet{Name: name, Fragment: fragPath, Vertex: vertPath}
	geomPath := filepath.Join(dir, name+".geom.glsl")
	if _, err := os.Stat(geomPath); err == nil {
		set.Geometry = geomPath
	}
	return set, nil
}

// InstanceAttributeLocations is the fixed per-instance vertex attribute
// layout every compiled program's vertex stage must declare (spec §6.3):
// 4=pos, 5=rot, 6=scale, 7=pivot, 8=color, 9=matids, 10=texsub,
// 12..15=xform rows.
var InstanceAttributeLocations = map[string]int{
	"pos":     4,
	"rot":     5,
	"scale":   6,
	"pivot":   7,
	"color":   8,
	"matids":  9,
	"texsub":  10,
	"xform0":  12,
	"xform1":  13,
	"xform2":  14,
	"xform3":  15,
}
