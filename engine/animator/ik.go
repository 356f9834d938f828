package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// ikSlot is the gameplay-driven state of one IK chain.
type ikSlot struct {
	weight float32
	target mgl32.Vec3
}

// absoluteTransform returns a bone's model-space transform in a relative pose.
func absoluteTransform(pose *model.Pose, skel *model.Skeleton, bone int) common.RigidTransform {
	tr := pose.Transform(bone)
	for parent := skel.Bones[bone].ParentIndex; parent >= 0; parent = skel.Bones[parent].ParentIndex {
		tr = pose.Transform(int(parent)).Mul(tr)
	}
	return tr
}

// towards returns the unit direction from a to b, or fallback when the points coincide.
func towards(a, b, fallback mgl32.Vec3) mgl32.Vec3 {
	d := b.Sub(a)
	if l := d.Len(); l > 1e-6 {
		return d.Mul(1 / l)
	}
	return fallback
}

// solveIK bends a bone chain of a relative pose so its tip reaches target (model space) using
// FABRIK, then blends the result into the pose by weight. The first bone keeps its position.
//
// Parameters:
//   - chain: the chain definition, root first
//   - slot: the target and blend weight
//   - pose: the relative pose to modify
//   - m: the model the pose belongs to
//
// Returns:
//   - bool: false if the chain was skipped because a bone is unknown to the model
func solveIK(chain controller.IKChain, slot ikSlot, pose *model.Pose, m model.Model) bool {
	count := len(chain.Bones)
	if count < 2 || count > controller.MaxIKBones {
		return false
	}
	var indices [controller.MaxIKBones]int
	for i, name := range chain.Bones {
		idx, ok := m.BoneIndex(name)
		if !ok {
			return false
		}
		indices[i] = idx
	}

	skel := m.Skeleton()
	rootParent := common.IdentityTransform()
	if parent := skel.Bones[indices[0]].ParentIndex; parent >= 0 {
		rootParent = absoluteTransform(pose, skel, int(parent))
	}

	var (
		transforms [controller.MaxIKBones]common.RigidTransform
		oldPos     [controller.MaxIKBones]mgl32.Vec3
		lengths    [controller.MaxIKBones - 1]float32
		reach      float32
	)
	parent := rootParent
	for i := range count {
		transforms[i] = parent.Mul(pose.Transform(indices[i]))
		oldPos[i] = transforms[i].Pos
		if i > 0 {
			lengths[i-1] = transforms[i].Pos.Sub(transforms[i-1].Pos).Len()
			reach += lengths[i-1]
		}
		parent = transforms[i]
	}

	target := slot.target
	if toTarget := target.Sub(transforms[0].Pos); reach*reach < toTarget.Dot(toTarget) {
		target = transforms[0].Pos.Add(toTarget.Normalize().Mul(reach))
	}

	for range chain.MaxIterations {
		transforms[count-1].Pos = target
		for i := count - 1; i > 1; i-- {
			dir := towards(transforms[i].Pos, transforms[i-1].Pos, mgl32.Vec3{0, -1, 0})
			transforms[i-1].Pos = transforms[i].Pos.Add(dir.Mul(lengths[i-1]))
		}
		for i := 1; i < count; i++ {
			dir := towards(transforms[i-1].Pos, transforms[i].Pos, mgl32.Vec3{0, 1, 0})
			transforms[i].Pos = transforms[i-1].Pos.Add(dir.Mul(lengths[i-1]))
		}
	}

	for i := count - 2; i >= 0; i-- {
		rel := common.RotationBetween(oldPos[i+1].Sub(oldPos[i]), transforms[i+1].Pos.Sub(transforms[i].Pos))
		transforms[i].Rot = common.NormalizeQuat(rel.Mul(transforms[i].Rot))
	}

	// Back to parent space. Iterating tip first keeps each parent in model space while it is used.
	var out [controller.MaxIKBones]common.RigidTransform
	for i := count - 1; i > 0; i-- {
		transforms[i] = transforms[i-1].Inverted().Mul(transforms[i])
		out[i].Pos = transforms[i].Pos
	}
	for i := count - 2; i > 0; i-- {
		out[i].Rot = transforms[i].Rot
	}
	out[count-1].Rot = pose.Rotations[indices[count-1]]
	out[0].Pos = pose.Positions[indices[0]]
	out[0].Rot = rootParent.Rot.Conjugate().Mul(transforms[0].Rot)

	w := common.Clamp(slot.weight, 0, 1)
	for i := range count {
		idx := indices[i]
		pose.Positions[idx] = common.LerpVec3(pose.Positions[idx], out[i].Pos, w)
		pose.Rotations[idx] = common.Nlerp(pose.Rotations[idx], out[i].Rot, w)
	}
	return true
}
