package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainBones() []Bone {
	quarter := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	return []Bone{
		{Name: "root", ParentIndex: -1, BindTransform: common.IdentityTransform()},
		{Name: "upper", ParentIndex: 0, BindTransform: common.RigidTransform{Pos: mgl32.Vec3{0, 1, 0}, Rot: quarter}},
		{Name: "lower", ParentIndex: 1, BindTransform: common.RigidTransform{Pos: mgl32.Vec3{0, 1, 0}, Rot: mgl32.QuatIdent()}},
	}
}

func TestNewSkeleton(t *testing.T) {
	s, err := NewSkeleton(chainBones())
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, s.RootBoneIndices)
	assert.Equal(t, int32(2), s.BoneNameToIndex["lower"])

	bad := chainBones()
	bad[1].ParentIndex = 2
	_, err = NewSkeleton(bad)
	assert.ErrorIs(t, err, ErrBoneOrder)
}

func TestModelLookup(t *testing.T) {
	s, err := NewSkeleton(chainBones())
	require.NoError(t, err)
	m := NewModel(WithName("arm"), WithSkeleton(s))

	assert.Equal(t, "arm", m.Name())
	assert.Equal(t, 3, m.BoneCount())
	assert.True(t, m.Ready())

	idx, ok := m.BoneIndex("upper")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = m.BoneIndex("tail")
	assert.False(t, ok)
	assert.Equal(t, -1, idx)

	m.SetReady(false)
	assert.False(t, m.Ready())
	assert.False(t, NewModel(WithReady(false)).Ready())
}

func TestPoseAbsoluteRoundTrip(t *testing.T) {
	s, err := NewSkeleton(chainBones())
	require.NoError(t, err)
	m := NewModel(WithSkeleton(s))

	pose := NewPose(m.BoneCount())
	m.GetRelativePose(pose)
	relative := append([]mgl32.Vec3(nil), pose.Positions...)

	pose.ComputeAbsolute(s)
	assert.True(t, pose.IsAbsolute)
	// upper is rotated 90 degrees about z, so lower's +y offset lands on -x
	assert.True(t, pose.Positions[2].ApproxEqualThreshold(mgl32.Vec3{-1, 1, 0}, 1e-5))

	pose.ComputeRelative(s)
	assert.False(t, pose.IsAbsolute)
	for i := range relative {
		assert.True(t, pose.Positions[i].ApproxEqualThreshold(relative[i], 1e-5))
	}
}
