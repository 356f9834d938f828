package common

import "github.com/go-gl/mathgl/mgl32"

// RigidTransform is a translation and rotation with no scale.
// Root motion deltas and IK working transforms use this representation.
type RigidTransform struct {
	// Pos is the translation.
	Pos mgl32.Vec3

	// Rot is the unit rotation.
	Rot mgl32.Quat
}

// IdentityTransform returns the transform that leaves everything in place.
//
// Returns:
//   - RigidTransform: the identity transform
func IdentityTransform() RigidTransform {
	return RigidTransform{Rot: mgl32.QuatIdent()}
}

// Mul composes two transforms, applying rhs first and then t.
//
// Parameters:
//   - rhs: the transform to apply first
//
// Returns:
//   - RigidTransform: the composition t * rhs
func (t RigidTransform) Mul(rhs RigidTransform) RigidTransform {
	return RigidTransform{
		Pos: t.Pos.Add(t.Rot.Rotate(rhs.Pos)),
		Rot: t.Rot.Mul(rhs.Rot),
	}
}

// Inverted returns the transform that undoes t.
//
// Returns:
//   - RigidTransform: the inverse of t
func (t RigidTransform) Inverted() RigidTransform {
	conj := t.Rot.Conjugate()
	return RigidTransform{
		Pos: conj.Rotate(t.Pos).Mul(-1),
		Rot: conj,
	}
}

// Interpolate blends toward other by factor f, lerping the translation and nlerping the rotation.
//
// Parameters:
//   - other: the target transform
//   - f: the interpolation factor
//
// Returns:
//   - RigidTransform: the blended transform
func (t RigidTransform) Interpolate(other RigidTransform, f float32) RigidTransform {
	return RigidTransform{
		Pos: LerpVec3(t.Pos, other.Pos, f),
		Rot: Nlerp(t.Rot, other.Rot, f),
	}
}

// ApproxEqual reports whether both components of t and o differ by no more than eps.
// Rotations q and -q compare equal.
func (t RigidTransform) ApproxEqual(o RigidTransform, eps float32) bool {
	if !t.Pos.ApproxEqualThreshold(o.Pos, eps) {
		return false
	}
	d := t.Rot.Dot(o.Rot)
	if d < 0 {
		d = -d
	}
	return d >= 1-eps
}
