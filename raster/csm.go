// Cascade shadow map math (spec §4.7 "Cascade Shadow Maps (CSM)"). Kept
// free of any wgpu dependency so it is unit-testable without a live GPU
// device, the same separation the teacher's
// engine/renderer/shader/wgsl_parser.go (pure parsing) keeps from
// engine/renderer/wgpu_renderer_backend.go (device calls). The teacher has
// no cascade logic at all — engine/light/shadow.go carries only single-map
// constants — so this file is new, implementing the algorithm spec.md
// describes rather than adapting an existing one.
package raster

import (
	"math"

	"github.com/brightloom/corerender/linmath"
)

// DefaultCascadeSplits is the configurable split count named in spec §4.7
// ("Four splits (configurable)").
const DefaultCascadeSplits = 4

// SplitLambda blends the logarithmic and linear partitions (spec §4.7 step
// 1, "λ ≈ 0.5").
const SplitLambda = 0.5

// SplitOverlap is the 0.5% adjacent-slice overlap named in spec §4.7 step 1.
const SplitOverlap = 0.005

// ComputeSplits returns n+1 near/far distances along the camera view ray,
// blending a practical-split logarithmic partition with a linear one (spec
// §4.7 step 1):
//
//	z_i = λ·near·(far/near)^(i/n) + (1-λ)·(near + (far-near)·i/n)
//
// The returned distances are not overlapped; SplitRange applies
// SplitOverlap.
func ComputeSplits(near, far float32, n int, lambda float32) []float32 {
	splits := make([]float32, n+1)
	splits[0] = near
	for i := 1; i <= n; i++ {
		t := float32(i) / float32(n)
		log := near * pow32(far/near, t)
		lin := near + (far-near)*t
		splits[i] = lambda*log + (1-lambda)*lin
	}
	return splits
}

// SplitRange returns the overlapped (near, far) range for cascade i out of
// n given the base split distances from ComputeSplits.
func SplitRange(splits []float32, i int) (near, far float32) {
	near = splits[i]
	far = splits[i+1]
	if i > 0 {
		near -= (far - near) * SplitOverlap
	}
	return near, far
}

// FrustumCorners computes the eight world-space corners of the sub-frustum
// bounded by [near, far] along the camera's view direction (spec §4.7 step
// 2).
// eye is the camera position; forward/up/right form an orthonormal basis;
// fovY/aspect describe the perspective frustum shape.
func FrustumCorners(eye, forward, up, right linmath.Vec3, fovY, aspect, near, far float32) [8]linmath.Vec3 {
	tanHalfFovY := tan32(fovY / 2)
	nearHeight := tanHalfFovY * near
	nearWidth := nearHeight * aspect
	farHeight := tanHalfFovY * far
	farWidth := farHeight * aspect

	nc := addScaled(eye, forward, near)
	fc := addScaled(eye, forward, far)

	mk := func(center linmath.Vec3, halfW, halfH float32) [4]linmath.Vec3 {
		ru := addScaled(linmath.Vec3{}, right, halfW)
		uu := addScaled(linmath.Vec3{}, up, halfH)
		return [4]linmath.Vec3{
			sub3(add3(center, uu), ru), // top-left
			add3(add3(center, uu), ru), // top-right
			sub3(sub3(center, uu), ru), // bottom-left
			add3(sub3(center, uu), ru), // bottom-right
		}
	}

	n4 := mk(nc, nearWidth, nearHeight)
	f4 := mk(fc, farWidth, farHeight)

	return [8]linmath.Vec3{n4[0], n4[1], n4[2], n4[3], f4[0], f4[1], f4[2], f4[3]}
}

// LightViewMatrix builds the orthogonal lookAt view matrix for the shadow
// pass from the first light's (pos - target) direction (spec §4.7 step 3).
func LightViewMatrix(lightPos, lightTarget linmath.Vec3) linmath.Mat4 {
	up := linmath.Vec3{0, 1, 0}
	dir := sub3(lightPos, lightTarget)
	if nearZero(dir) {
		dir = linmath.Vec3{0, -1, 0}
	}
	if isParallel(dir, up) {
		up = linmath.Vec3{0, 0, 1}
	}
	return linmath.LookAt(lightPos, lightTarget, up)
}

// Crop is the 2D crop transform spec §4.7 step 4 derives so a split's
// projected corners fill the shadow map.
type Crop struct {
	ScaleX, ScaleY   float32
	OffsetX, OffsetY float32
}

// CropMatrix builds the per-split crop orthographic projection: projects
// corners into light space under shadMV, derives the z extent for an
// orthographic projection, then the XY crop so the slice fills the map
// (spec §4.7 step 4).
func CropMatrix(corners [8]linmath.Vec3, shadMV linmath.Mat4) (lightProj linmath.Mat4, crop Crop) {
	minX, minY, minZ := float32(1e30), float32(1e30), float32(1e30)
	maxX, maxY, maxZ := float32(-1e30), float32(-1e30), float32(-1e30)

	for _, c := range corners {
		p := transformPoint(shadMV, c)
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
		if p[2] < minZ {
			minZ = p[2]
		}
		if p[2] > maxZ {
			maxZ = p[2]
		}
	}

	lightProj = linmath.Orthographic(minX, maxX, minY, maxY, -maxZ, -minZ)

	width := maxX - minX
	height := maxY - minY
	if width == 0 {
		width = 1e-4
	}
	if height == 0 {
		height = 1e-4
	}
	crop = Crop{
		ScaleX:  2 / width,
		ScaleY:  2 / height,
		OffsetX: -(maxX + minX) / width,
		OffsetY: -(maxY + minY) / height,
	}
	return lightProj, crop
}

// BiasMatrix maps clip space [-1,1] to texture space [0,1] (spec §4.7 step
// 6 "Tbias").
func BiasMatrix() linmath.Mat4 {
	m := linmath.Identity()
	m[0], m[5], m[10] = 0.5, 0.5, 0.5
	m[12], m[13], m[14] = 0.5, 0.5, 0.5
	// WebGPU depth range is [0,1], not [-1,1]; Z needs no bias, only XY.
	m[10], m[14] = 1, 0
	return m
}

// CameraPassUniforms computes, for one split, shadViewMatrix =
// Tbias * lightProj * shadMV * cameraViewInverse (spec §4.7 step 6).
func CameraPassUniforms(lightProj, shadMV, cameraViewInverse linmath.Mat4) linmath.Mat4 {
	return linmath.Mul(BiasMatrix(), linmath.Mul(lightProj, linmath.Mul(shadMV, cameraViewInverse)))
}

// NormalizedSplitFar converts a split's far distance (view-space) to a
// normalized device depth value in [0,1] under the given projection, so the
// fragment shader can select the correct cascade per pixel (spec §4.7 step
// 6, invariant 6 in spec §8).
func NormalizedSplitFar(proj linmath.Mat4, viewSpaceFar float32) float32 {
	clipZ := proj[10]*(-viewSpaceFar) + proj[14]
	clipW := proj[11] * (-viewSpaceFar)
	if clipW == 0 {
		return 1
	}
	return clipZ / clipW
}

func addScaled(a, dir linmath.Vec3, s float32) linmath.Vec3 {
	return linmath.Vec3{a[0] + dir[0]*s, a[1] + dir[1]*s, a[2] + dir[2]*s}
}
func add3(a, b linmath.Vec3) linmath.Vec3 { return linmath.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub3(a, b linmath.Vec3) linmath.Vec3 { return linmath.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func transformPoint(m linmath.Mat4, p linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

func nearZero(v linmath.Vec3) bool {
	const eps = 1e-8
	return v[0]*v[0]+v[1]*v[1]+v[2]*v[2] < eps
}

func isParallel(a, b linmath.Vec3) bool {
	cx := a[1]*b[2] - a[2]*b[1]
	cy := a[2]*b[0] - a[0]*b[2]
	cz := a[0]*b[1] - a[1]*b[0]
	const eps = 1e-6
	return cx*cx+cy*cy+cz*cz < eps
}

func pow32(base, exp float32) float32 {
	if base <= 0 {
		return 0
	}
	return float32(math.Pow(float64(base), float64(exp)))
}

func tan32(rad float32) float32 {
	return float32(math.Tan(float64(rad)))
}
