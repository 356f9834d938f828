package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

// armModel is a hips bone carrying a three bone arm of unit segments pointing up +Y.
func armModel(t *testing.T) model.Model {
	t.Helper()
	bone := func(name string, parent int32, pos mgl32.Vec3) model.Bone {
		return model.Bone{Name: name, ParentIndex: parent, BindTransform: common.RigidTransform{Pos: pos, Rot: mgl32.QuatIdent()}}
	}
	skel, err := model.NewSkeleton([]model.Bone{
		bone("hips", -1, mgl32.Vec3{}),
		bone("upper", 0, mgl32.Vec3{}),
		bone("lower", 1, mgl32.Vec3{0, 1, 0}),
		bone("hand", 2, mgl32.Vec3{0, 1, 0}),
	})
	require.NoError(t, err)
	return model.NewModel(model.WithName("arm"), model.WithSkeleton(skel))
}

// walkClip lasts one second: hips rise from y0 to y1 while the root travels 2 units along +Z.
func walkClip(t *testing.T, y0, y1 float32) *clip.Animation {
	t.Helper()
	const frames = 31
	hips := clip.BoneKeys{Bone: "hips"}
	root := clip.BoneKeys{}
	for f := range frames {
		s := float32(f) / (frames - 1)
		hips.Positions = append(hips.Positions, mgl32.Vec3{0, y0 + (y1-y0)*s, 0})
		root.Positions = append(root.Positions, mgl32.Vec3{0, 0, 2 * s})
		root.Rotations = append(root.Rotations, mgl32.QuatIdent())
	}
	a, err := clip.Encode(clip.Keyframes{
		Name:       "walk",
		FPS:        30,
		Frames:     frames,
		Bones:      []clip.BoneKeys{hips},
		RootMotion: &root,
	}, clip.DefaultEncodeOptions())
	require.NoError(t, err)
	return a
}
