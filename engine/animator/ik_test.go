package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindPose(m model.Model) *model.Pose {
	pose := model.NewPose(m.BoneCount())
	m.GetRelativePose(pose)
	return pose
}

func TestSolveIKReachesTarget(t *testing.T) {
	m := armModel(t)
	chain := controller.IKChain{MaxIterations: 10, Bones: []string{"upper", "lower", "hand"}}

	for _, target := range []mgl32.Vec3{{1, 1, 0}, {1.2, 0.8, 0.3}, {0, 1.5, -0.5}} {
		pose := bindPose(m)
		require.True(t, solveIK(chain, ikSlot{weight: 1, target: target}, pose, m))
		pose.ComputeAbsolute(m.Skeleton())

		hand, _ := m.BoneIndex("hand")
		lower, _ := m.BoneIndex("lower")
		upper, _ := m.BoneIndex("upper")
		assert.InDelta(t, 0, pose.Positions[hand].Sub(target).Len(), 1e-3, "target %v", target)
		assert.InDelta(t, 1, pose.Positions[lower].Sub(pose.Positions[upper]).Len(), 1e-4)
		assert.InDelta(t, 1, pose.Positions[hand].Sub(pose.Positions[lower]).Len(), 1e-4)
		assert.InDelta(t, 0, pose.Positions[upper].Len(), 1e-6, "chain root must not move")
	}
}

func TestSolveIKClampsUnreachableTarget(t *testing.T) {
	m := armModel(t)
	chain := controller.IKChain{MaxIterations: 20, Bones: []string{"upper", "lower", "hand"}}
	pose := bindPose(m)
	require.True(t, solveIK(chain, ikSlot{weight: 1, target: mgl32.Vec3{3, 0, 0}}, pose, m))
	pose.ComputeAbsolute(m.Skeleton())

	hand, _ := m.BoneIndex("hand")
	assert.InDelta(t, 0, pose.Positions[hand].Sub(mgl32.Vec3{2, 0, 0}).Len(), 0.05)
}

func TestSolveIKPartialWeightAndSkips(t *testing.T) {
	m := armModel(t)
	hand, _ := m.BoneIndex("hand")
	target := mgl32.Vec3{1, 1, 0}

	full := bindPose(m)
	solveIK(controller.IKChain{MaxIterations: 10, Bones: []string{"upper", "lower", "hand"}}, ikSlot{weight: 1, target: target}, full, m)
	half := bindPose(m)
	solveIK(controller.IKChain{MaxIterations: 10, Bones: []string{"upper", "lower", "hand"}}, ikSlot{weight: 0.5, target: target}, half, m)
	full.ComputeAbsolute(m.Skeleton())
	half.ComputeAbsolute(m.Skeleton())
	bind := bindPose(m)
	bind.ComputeAbsolute(m.Skeleton())

	dFull := full.Positions[hand].Sub(target).Len()
	dHalf := half.Positions[hand].Sub(target).Len()
	dBind := bind.Positions[hand].Sub(target).Len()
	assert.Less(t, dFull, dHalf)
	assert.Less(t, dHalf, dBind)

	pose := bindPose(m)
	assert.False(t, solveIK(controller.IKChain{MaxIterations: 10, Bones: []string{"upper", "elbow", "hand"}}, ikSlot{weight: 1, target: target}, pose, m))
	assert.Equal(t, bindPose(m), pose, "unresolved chains leave the pose untouched")
	assert.False(t, solveIK(controller.IKChain{MaxIterations: 10, Bones: []string{"hand"}}, ikSlot{weight: 1, target: target}, pose, m))
}
