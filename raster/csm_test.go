package raster

import (
	"testing"

	"github.com/brightloom/corerender/linmath"
)

func TestComputeSplitsBounds(t *testing.T) {
	splits := ComputeSplits(0.1, 100, DefaultCascadeSplits, SplitLambda)
	if len(splits) != DefaultCascadeSplits+1 {
		t.Fatalf("len(splits) = %d, want %d", len(splits), DefaultCascadeSplits+1)
	}
	if splits[0] != 0.1 {
		t.Fatalf("splits[0] = %v, want near (0.1)", splits[0])
	}
	if splits[len(splits)-1] != 100 {
		t.Fatalf("splits[last] = %v, want far (100)", splits[len(splits)-1])
	}
	for i := 1; i < len(splits); i++ {
		if splits[i] <= splits[i-1] {
			t.Fatalf("splits must be strictly increasing: splits[%d]=%v <= splits[%d]=%v", i, splits[i], i-1, splits[i-1])
		}
	}
}

func TestSplitRangeOverlapsExceptFirst(t *testing.T) {
	splits := ComputeSplits(1, 100, 4, SplitLambda)
	near0, far0 := SplitRange(splits, 0)
	if near0 != splits[0] {
		t.Fatalf("first split should not be overlap-adjusted: near=%v, want %v", near0, splits[0])
	}
	near1, far1 := SplitRange(splits, 1)
	if near1 >= splits[1] {
		t.Fatalf("split 1's near (%v) should be pulled earlier than splits[1] (%v) by the overlap", near1, splits[1])
	}
	if far1 != splits[2] {
		t.Fatalf("far bound should equal the next split boundary unmodified")
	}
}

func TestFrustumCornersSymmetric(t *testing.T) {
	corners := FrustumCorners(
		linmath.Vec3{0, 0, 0}, linmath.Vec3{0, 0, -1}, linmath.Vec3{0, 1, 0}, linmath.Vec3{1, 0, 0},
		1.0, 1.0, 1, 10,
	)
	// Near top-left and bottom-right corners should be symmetric about the
	// view axis for a symmetric frustum centered at the origin.
	nearTL, nearBR := corners[0], corners[3]
	if !approxEq(nearTL[0], -nearBR[0], 1e-4) || !approxEq(nearTL[1], -nearBR[1], 1e-4) {
		t.Fatalf("near corners not symmetric: TL=%v BR=%v", nearTL, nearBR)
	}
}

func TestLightViewMatrixHandlesParallelUp(t *testing.T) {
	// Light looking straight down (-Y), parallel to the default up vector:
	// LightViewMatrix must not produce a degenerate basis.
	m := LightViewMatrix(linmath.Vec3{0, 10, 0}, linmath.Vec3{0, 0, 0})
	// Row 1 (the computed "up" basis vector) should be non-zero.
	row1 := linmath.Vec3{m[1], m[5], m[9]}
	if row1[0] == 0 && row1[1] == 0 && row1[2] == 0 {
		t.Fatal("LightViewMatrix produced a degenerate up basis for a straight-down light")
	}
}

func TestCropMatrixFillsUnitRange(t *testing.T) {
	corners := [8]linmath.Vec3{
		{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
		{-2, -2, 10}, {2, -2, 10}, {-2, 2, 10}, {2, 2, 10},
	}
	_, crop := CropMatrix(corners, linmath.Identity())
	if crop.ScaleX <= 0 || crop.ScaleY <= 0 {
		t.Fatalf("crop scale should be positive: %+v", crop)
	}
}

func TestBiasMatrixMapsClipToTexture(t *testing.T) {
	b := BiasMatrix()
	// Clip-space corner (-1,-1) should map to texture-space (0,0).
	x := b[0]*-1 + b[12]
	y := b[5]*-1 + b[13]
	if !approxEq(x, 0, 1e-5) || !approxEq(y, 0, 1e-5) {
		t.Fatalf("BiasMatrix maps (-1,-1) to (%v,%v), want (0,0)", x, y)
	}
	// Clip-space corner (1,1) should map to texture-space (1,1).
	x = b[0]*1 + b[12]
	y = b[5]*1 + b[13]
	if !approxEq(x, 1, 1e-5) || !approxEq(y, 1, 1e-5) {
		t.Fatalf("BiasMatrix maps (1,1) to (%v,%v), want (1,1)", x, y)
	}
}

func TestNormalizedSplitFarMonotonic(t *testing.T) {
	proj := linmath.Perspective(1.0, 1.0, 0.1, 100)
	near := NormalizedSplitFar(proj, 1)
	far := NormalizedSplitFar(proj, 50)
	if far <= near {
		t.Fatalf("normalized depth should increase with view-space distance: near=%v far=%v", near, far)
	}
}

func approxEq(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
