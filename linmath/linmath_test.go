package linmath

import (
	"math"
	"testing"
)

func approxEq(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestIdentityMul(t *testing.T) {
	id := Identity()
	m := Mat4{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	got := Mul(id, m)
	for i := range m {
		if !approxEq(got[i], m[i], 1e-5) {
			t.Fatalf("Mul(identity, m)[%d] = %v, want %v", i, got[i], m[i])
		}
	}
}

func TestInvertRoundTrip(t *testing.T) {
	m := Transform(Vec3{1, 2, 3}, IdentityQuat(), Vec3{1, 1, 1}, Vec3{})
	inv, ok := Invert(m)
	if !ok {
		t.Fatal("Invert reported singular for a valid transform")
	}
	prod := Mul(m, inv)
	id := Identity()
	for i := range id {
		if !approxEq(prod[i], id[i], 1e-4) {
			t.Fatalf("m*inv(m)[%d] = %v, want %v", i, prod[i], id[i])
		}
	}
}

func TestInvertSingular(t *testing.T) {
	var zero Mat4
	if _, ok := Invert(zero); ok {
		t.Fatal("Invert reported ok=true for a singular (zero) matrix")
	}
}

func TestQuatToMat4Identity(t *testing.T) {
	m := QuatToMat4(IdentityQuat())
	id := Identity()
	for i := range id {
		if !approxEq(m[i], id[i], 1e-6) {
			t.Fatalf("QuatToMat4(identity)[%d] = %v, want %v", i, m[i], id[i])
		}
	}
}

func TestTransformTranslationOnly(t *testing.T) {
	m := Transform(Vec3{5, -2, 3}, IdentityQuat(), Vec3{1, 1, 1}, Vec3{})
	if !approxEq(m[12], 5, 1e-6) || !approxEq(m[13], -2, 1e-6) || !approxEq(m[14], 3, 1e-6) {
		t.Fatalf("translation column = (%v,%v,%v), want (5,-2,3)", m[12], m[13], m[14])
	}
}

func TestPerspectiveClipW(t *testing.T) {
	m := Perspective(float32(math.Pi)/2, 1.5, 0.1, 100)
	if m[11] != -1 {
		t.Fatalf("Perspective()[11] = %v, want -1 (perspective divide row)", m[11])
	}
	if m[15] != 0 {
		t.Fatalf("Perspective()[15] = %v, want 0", m[15])
	}
}

func TestLookAtOrthonormalBasis(t *testing.T) {
	m := LookAt(Vec3{0, 0, 5}, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	x := Vec3{m[0], m[4], m[8]}
	y := Vec3{m[1], m[5], m[9]}
	lx := float32(math.Sqrt(float64(dot(x, x))))
	ly := float32(math.Sqrt(float64(dot(y, y))))
	if !approxEq(lx, 1, 1e-4) || !approxEq(ly, 1, 1e-4) {
		t.Fatalf("LookAt basis rows not unit length: |x|=%v |y|=%v", lx, ly)
	}
}
