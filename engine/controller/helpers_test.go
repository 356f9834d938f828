package controller

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

// fakeClip poses every bone at (marker, 0, 0) and moves the root along +Y while turning about Y,
// stride units and speed radians per second.
type fakeClip struct {
	marker float32
	length common.Time
	stride float32
	speed  float32
	ready  bool
}

func newFakeClip(marker, seconds float32) *fakeClip {
	return &fakeClip{marker: marker, length: common.TimeFromSeconds(seconds), stride: 1, ready: true}
}

func (c *fakeClip) Ready() bool         { return c.ready }
func (c *fakeClip) Length() common.Time { return c.length }

func (c *fakeClip) SampleRelativePose(pose *model.Pose, m model.Model, t common.Time, weight float32, mask *model.BoneMask) {
	target := mgl32.Vec3{c.marker, 0, 0}
	for i, b := range m.Skeleton().Bones {
		if !mask.Contains(b.Name) {
			continue
		}
		if weight >= 0.9999 {
			pose.Positions[i] = target
		} else {
			pose.Positions[i] = common.LerpVec3(pose.Positions[i], target, weight)
		}
	}
}

func (c *fakeClip) SampleRootMotion(t common.Time) common.RigidTransform {
	s := t.Min(c.length).Seconds()
	return common.RigidTransform{
		Pos: mgl32.Vec3{0, s * c.stride, 0},
		Rot: mgl32.QuatRotate(s*c.speed, mgl32.Vec3{0, 1, 0}),
	}
}

func testModel(t *testing.T) model.Model {
	t.Helper()
	skel, err := model.NewSkeleton([]model.Bone{
		{Name: "hips", ParentIndex: -1, BindTransform: common.IdentityTransform()},
		{Name: "spine", ParentIndex: 0, BindTransform: common.IdentityTransform()},
	})
	require.NoError(t, err)
	return model.NewModel(model.WithName("test"), model.WithSkeleton(skel))
}

// slotsOf builds one entry per clip in set 0, slot i bound to clips[i].
func slotsOf(clips ...Animation) []ControllerBuilderOption {
	names := make([]string, len(clips))
	entries := make([]AnimationEntry, len(clips))
	for i, c := range clips {
		names[i] = string(rune('a' + i))
		entries[i] = AnimationEntry{Set: 0, Slot: uint32(i), Path: names[i] + ".anim", Animation: c}
	}
	return []ControllerBuilderOption{WithSlots(names...), WithEntries(entries...)}
}

func seconds(s float32) common.Time {
	return common.TimeFromSeconds(s)
}

func evalPose(t *testing.T, c *Controller, ctx *RuntimeContext) *model.Pose {
	t.Helper()
	pose := model.NewPose(ctx.Model().BoneCount())
	ctx.Model().GetRelativePose(pose)
	c.GetPose(ctx, pose)
	return pose
}

func peekGroup(ctx *RuntimeContext) groupRecord {
	var r streamReader
	r.reset(ctx.prev)
	return r.readGroup()
}

func peekSelect(ctx *RuntimeContext) selectRecord {
	var r streamReader
	r.reset(ctx.prev)
	return r.readSelect()
}

func peekCondition(ctx *RuntimeContext) conditionRecord {
	var r streamReader
	r.reset(ctx.prev)
	return r.readCondition()
}
