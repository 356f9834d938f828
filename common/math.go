package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LerpVec3 linearly interpolates between two vectors.
//
// Parameters:
//   - a: the start vector
//   - b: the end vector
//   - t: the interpolation factor
//
// Returns:
//   - mgl32.Vec3: the interpolated vector
func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Nlerp performs a normalized linear interpolation between two rotations, taking the shorter arc.
// Unlike mgl32.QuatNlerp it flips the second quaternion when the two lie in opposite hemispheres.
//
// Parameters:
//   - a: the start rotation
//   - b: the end rotation
//   - t: the interpolation factor
//
// Returns:
//   - mgl32.Quat: the interpolated unit rotation
func Nlerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	inv := 1 - t
	if a.Dot(b) < 0 {
		t = -t
	}
	res := mgl32.Quat{
		W: a.W*inv + b.W*t,
		V: mgl32.Vec3{
			a.V[0]*inv + b.V[0]*t,
			a.V[1]*inv + b.V[1]*t,
			a.V[2]*inv + b.V[2]*t,
		},
	}
	return NormalizeQuat(res)
}

// NormalizeQuat returns q scaled to unit length, or the identity rotation if q has zero length.
func NormalizeQuat(q mgl32.Quat) mgl32.Quat {
	l := q.Len()
	if l == 0 {
		return mgl32.QuatIdent()
	}
	return q.Scale(1 / l)
}

// RotationBetween returns the shortest rotation that takes direction a onto direction b.
// Zero-length inputs yield the identity rotation.
//
// Parameters:
//   - a: the source direction
//   - b: the destination direction
//
// Returns:
//   - mgl32.Quat: the rotation from a to b
func RotationBetween(a, b mgl32.Vec3) mgl32.Quat {
	if a.Len() == 0 || b.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return NormalizeQuat(mgl32.QuatBetweenVectors(a.Normalize(), b.Normalize()))
}

// Clamp restricts v to the range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return float32(math.Max(float64(lo), math.Min(float64(hi), float64(v))))
}

// Coalesce returns the first argument that is not the zero value of T.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
