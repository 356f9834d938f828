package ecs

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

func TestDonburiSinkPublishesCopies(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)

	var received []AnimationEvent
	AnimationEventType.Subscribe(world, func(w donburi.World, e AnimationEvent) {
		received = append(received, e)
	})

	payload := []byte("step")
	sink.Emit(42, []controller.Event{
		{Type: 3, RelTime: 0xffff, Payload: payload},
		{Type: 4},
	})
	payload[0] = 'X'

	// Events are queued until processed.
	assert.Empty(t, received)
	AnimationEventType.ProcessEvents(world)

	require.Len(t, received, 2)
	assert.Equal(t, donburi.Entity(42), received[0].Entity)
	assert.Equal(t, uint32(3), received[0].Type)
	assert.Equal(t, float32(1), received[0].RelTime)
	assert.Equal(t, []byte("step"), received[0].Payload)
	assert.Equal(t, uint32(4), received[1].Type)
	assert.Empty(t, received[1].Payload)
}

func TestDonburiTransformStore(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiTransformStore(world)
	moving := world.Create(Transform)
	static := world.Create()

	tr, ok := store.Transform(AnimatorEntity(moving))
	require.True(t, ok)
	assert.Equal(t, common.IdentityTransform(), tr)

	want := common.RigidTransform{Pos: mgl32.Vec3{1, 2, 3}, Rot: mgl32.QuatIdent()}
	store.SetTransform(AnimatorEntity(moving), want)
	tr, ok = store.Transform(AnimatorEntity(moving))
	require.True(t, ok)
	assert.Equal(t, want, tr)
	assert.Equal(t, want, *Transform.Get(world.Entry(moving)))

	_, ok = store.Transform(AnimatorEntity(static))
	assert.False(t, ok)
	store.SetTransform(AnimatorEntity(static), want)
	assert.False(t, world.Entry(static).HasComponent(Transform))

	world.Remove(moving)
	_, ok = store.Transform(AnimatorEntity(moving))
	assert.False(t, ok)
}

func TestAnimatorDrivesDonburiWorld(t *testing.T) {
	skel, err := model.NewSkeleton([]model.Bone{{Name: "hips", ParentIndex: -1, BindTransform: common.IdentityTransform()}})
	require.NoError(t, err)
	m := model.NewModel(model.WithSkeleton(skel))

	root := clip.BoneKeys{}
	for f := range 11 {
		root.Positions = append(root.Positions, mgl32.Vec3{0, 0, float32(f) / 10})
		root.Rotations = append(root.Rotations, mgl32.QuatIdent())
	}
	walk, err := clip.Encode(clip.Keyframes{Name: "walk", FPS: 10, Frames: 11, RootMotion: &root}, clip.DefaultEncodeOptions())
	require.NoError(t, err)

	var track controller.EventTrackBuilder
	track.Add(9, 0.5, []byte("left"))
	c, err := controller.New(
		&controller.AnimationNode{NodeBase: controller.NodeBase{EventData: track.Bytes()}, Slot: 0, Flags: controller.FlagLooped},
		controller.WithSlots("walk"),
		controller.WithEntries(controller.AnimationEntry{Slot: 0, Path: "walk.anim", Animation: walk}),
	)
	require.NoError(t, err)

	world := donburi.NewWorld()
	poses := animator.NewMemoryPoseStore()
	anim := animator.NewAnimator(
		animator.WithWorkers(2),
		animator.WithPoseStore(poses),
		animator.WithEventSink(NewDonburiSink(world)),
		animator.WithTransformStore(NewDonburiTransformStore(world)),
	)
	t.Cleanup(anim.Release)

	var steps []AnimationEvent
	AnimationEventType.Subscribe(world, func(w donburi.World, e AnimationEvent) {
		steps = append(steps, e)
	})

	e := world.Create(Transform)
	ae := AnimatorEntity(e)
	poses.SetModel(ae, m)
	require.NoError(t, anim.AddAnimator(ae))
	require.NoError(t, anim.SetSource(ae, c))
	anim.SetUseRootMotion(ae, true)

	anim.Update(0.75)
	AnimationEventType.ProcessEvents(world)

	tr := Transform.Get(world.Entry(e))
	assert.InDelta(t, 0.75, tr.Pos.Z(), 1e-3)
	require.Len(t, steps, 1)
	assert.Equal(t, e, steps[0].Entity)
	assert.Equal(t, []byte("left"), steps[0].Payload)
}
