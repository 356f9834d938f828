package controller

import (
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

func looped(slot uint32) *AnimationNode {
	return &AnimationNode{Slot: slot, Flags: FlagLooped}
}

func TestAnimationNodeLoopedRootMotion(t *testing.T) {
	clip := newFakeClip(1, 2)
	clip.speed = 0.3
	c, err := New(looped(0), slotsOf(clip)...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)
	assert.Equal(t, timeRecordSize, ctx.StateSize())

	rm := c.Update(ctx, seconds(1.5))
	assert.InDelta(t, 1.5, rm.Pos.Y(), eps)

	// 1.5s -> 2.5s wraps the 2s loop; the split motion equals one second of travel.
	rm = c.Update(ctx, seconds(1))
	want := common.RigidTransform{Pos: mgl32.Vec3{0, 1, 0}, Rot: mgl32.QuatRotate(0.3, mgl32.Vec3{0, 1, 0})}
	assert.True(t, rm.ApproxEqual(want, eps), "got %v want %v", rm, want)
}

func TestAnimationNodeClampsWhenNotLooped(t *testing.T) {
	clip := newFakeClip(1, 2)
	c, err := New(&AnimationNode{Slot: 0}, slotsOf(clip)...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	c.Update(ctx, seconds(1.5))
	rm := c.Update(ctx, seconds(1))
	assert.InDelta(t, 0.5, rm.Pos.Y(), eps)
	assert.Equal(t, seconds(2), c.Root().time(beginReadFor(ctx)))

	rm = c.Update(ctx, seconds(1))
	assert.True(t, rm.ApproxEqual(common.IdentityTransform(), eps))
}

// beginReadFor rewinds the read cursor so a node can peek its record.
func beginReadFor(ctx *RuntimeContext) *RuntimeContext {
	ctx.beginRead()
	return ctx
}

func TestAnimationNodeNotReady(t *testing.T) {
	clip := newFakeClip(1, 2)
	clip.ready = false
	c, err := New(looped(0), slotsOf(clip)...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	rm := c.Update(ctx, seconds(0.5))
	assert.True(t, rm.ApproxEqual(common.IdentityTransform(), eps))
	pose := evalPose(t, c, ctx)
	assert.Equal(t, mgl32.Vec3{}, pose.Positions[0])
}

func TestRootMotionComposition(t *testing.T) {
	clip := newFakeClip(0, 2)
	clip.speed = 0.7
	rng := rand.New(rand.NewSource(7))
	for range 100 {
		t0 := common.Time(rng.Int63n(int64(clip.length)))
		t1 := common.Time(rng.Int63n(int64(clip.length)))
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		direct := rootMotion(clip, t0, t1)
		composed := rootMotion(clip, 0, t0).Inverted().Mul(rootMotion(clip, 0, t1))
		assert.True(t, direct.ApproxEqual(composed, eps), "t0=%d t1=%d", t0, t1)
	}
}

func TestRootMotionWrapMatchesDoubledClip(t *testing.T) {
	clip := newFakeClip(0, 2)
	clip.speed = 0.4
	doubled := newFakeClip(0, 4)
	doubled.speed = 0.4

	wrapped := rootMotion(clip, seconds(1.25), seconds(2.75))
	direct := rootMotion(doubled, seconds(1.25), seconds(2.75))
	assert.True(t, wrapped.ApproxEqual(direct, eps), "wrapped %v direct %v", wrapped, direct)
}

func TestAnimationNodeEventsWrap(t *testing.T) {
	var track EventTrackBuilder
	track.Add(1, 0.025, []byte("l")).Add(2, 0.5, []byte("mid")).Add(3, 0.975, []byte("r"))

	clip := newFakeClip(0, 2)
	root := looped(0)
	root.EventData = track.Bytes()
	c, err := New(root, slotsOf(clip)...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	c.Update(ctx, seconds(1.9))
	c.Update(ctx, seconds(0.2))
	events := ctx.Events()
	require.Len(t, events, 2)
	assert.Equal(t, uint32(3), events[0].Type)
	assert.Equal(t, []byte("r"), events[0].Payload)
	assert.Equal(t, uint32(1), events[1].Type)
	assert.InDelta(t, 0.025, events[1].RelativeTime(), 1e-3)

	c.Update(ctx, seconds(0.2))
	assert.Empty(t, ctx.Events())
}

func TestEventTrackDecodeDropsTruncatedRecord(t *testing.T) {
	var track EventTrackBuilder
	track.Add(9, 0.5, []byte{1, 2, 3})
	data := track.Bytes()

	assert.Len(t, DecodeEvents(data), 1)
	assert.Empty(t, DecodeEvents(data[:len(data)-1]))
}

func blend1DController(t *testing.T) (*Controller, *RuntimeContext) {
	t.Helper()
	root := &Blend1DNode{
		Input:    0,
		Children: []Blend1DChild{{Value: 0, Slot: 0}, {Value: 1, Slot: 1}, {Value: 2, Slot: 2}},
	}
	opts := append(slotsOf(newFakeClip(0, 1), newFakeClip(1, 1), newFakeClip(2, 2)),
		WithInputs(Input{Name: "speed", Type: InputFloat}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	return c, c.CreateRuntime(testModel(t), 0)
}

func TestBlend1DPose(t *testing.T) {
	tests := []struct {
		name  string
		speed float32
		want  float32
	}{
		{"below first key", -1, 0},
		{"at first key", 0, 0},
		{"between keys", 0.5, 0.5},
		{"at inner key", 1, 1},
		{"at last key", 2, 2},
		{"above last key", 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ctx := blend1DController(t)
			require.True(t, ctx.SetFloat(0, tt.speed))
			c.Update(ctx, seconds(0.1))
			pose := evalPose(t, c, ctx)
			assert.InDelta(t, tt.want, pose.Positions[0].X(), eps)
			assert.InDelta(t, tt.want, pose.Positions[1].X(), eps)
		})
	}
}

func TestBlend1DAdvancesSynchronizedTime(t *testing.T) {
	c, ctx := blend1DController(t)
	require.True(t, ctx.SetFloat(0, 1.5))

	// lerp(1s, 2s, 0.5) = 1.5s, so 0.75s is half the blended loop.
	c.Update(ctx, seconds(0.75))
	var r streamReader
	r.reset(ctx.prev)
	assert.InDelta(t, 0.5, r.readF32(), eps)
	assert.Equal(t, seconds(1.5), c.Root().length(ctx))
}

func TestBlend1DRootMotion(t *testing.T) {
	slow, fast := newFakeClip(0, 1), newFakeClip(1, 1)
	slow.speed = 0.2
	fast.stride = 3
	fast.speed = 1
	root := &Blend1DNode{Input: 0, Children: []Blend1DChild{{Value: 0, Slot: 0}, {Value: 1, Slot: 1}}}
	opts := append(slotsOf(slow, fast), WithInputs(Input{Name: "speed", Type: InputFloat}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	require.True(t, ctx.SetFloat(0, 0.25))
	rm := c.Update(ctx, seconds(0.5))
	want := rootMotion(slow, 0, seconds(0.5)).Interpolate(rootMotion(fast, 0, seconds(0.5)), 0.25)
	assert.True(t, rm.ApproxEqual(want, eps), "got %v want %v", rm, want)
	assert.InDelta(t, 0.75, rm.Pos.Y(), eps)
}

func blend2DController(t *testing.T, points ...mgl32.Vec2) (*Controller, *RuntimeContext, []*fakeClip) {
	t.Helper()
	root := &Blend2DNode{XInput: 0, YInput: 1}
	var clips []Animation
	var fakes []*fakeClip
	for i, p := range points {
		clip := newFakeClip(float32(i), 1)
		fakes = append(fakes, clip)
		clips = append(clips, clip)
		root.Children = append(root.Children, Blend2DChild{Value: p, Slot: uint32(i)})
	}
	opts := append(slotsOf(clips...),
		WithInputs(Input{Name: "x", Type: InputFloat}, Input{Name: "y", Type: InputFloat}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	return c, c.CreateRuntime(testModel(t), 0), fakes
}

func TestBlend2DPose(t *testing.T) {
	c, ctx, _ := blend2DController(t, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{0, 1})
	require.Equal(t, 1, c.Root().(*Blend2DNode).TriangleCount())

	ctx.SetFloat(0, 0.25)
	ctx.SetFloat(1, 0.25)
	c.Update(ctx, seconds(0.1))
	pose := evalPose(t, c, ctx)
	// Barycentric weights (0.5, 0.25, 0.25) over markers (0, 1, 2).
	assert.InDelta(t, 0.75, pose.Positions[0].X(), eps)

	ctx.SetFloat(0, 5)
	ctx.SetFloat(1, 5)
	pose = evalPose(t, c, ctx)
	assert.InDelta(t, 0, pose.Positions[0].X(), eps)
}

func TestBlend2DRootMotionFold(t *testing.T) {
	c, ctx, clips := blend2DController(t, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{0, 1})
	for i, stride := range []float32{1, 2, 4} {
		clips[i].stride = stride
		clips[i].speed = 0.5 * float32(i)
	}
	ctx.SetFloat(0, 0.25)
	ctx.SetFloat(1, 0.25)
	trio, ok := c.Root().(*Blend2DNode).activeTrio(ctx)
	require.True(t, ok)

	rm := c.Update(ctx, seconds(0.5))
	motion := func(i int) common.RigidTransform { return rootMotion(clips[i], 0, seconds(0.5)) }
	want := motion(trio.A).
		Interpolate(motion(trio.B), trio.Tb/(trio.Ta+trio.Tb)).
		Interpolate(motion(trio.C), trio.Tc)
	assert.True(t, rm.ApproxEqual(want, eps), "got %v want %v", rm, want)
	// Translation folds back to the barycentric mix 0.5*(0.5*1 + 0.25*2 + 0.25*4).
	assert.InDelta(t, 1, rm.Pos.Y(), eps)
}

func TestBlend2DDegenerateUsesNearestChild(t *testing.T) {
	c, ctx, _ := blend2DController(t, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{2, 0})
	assert.Zero(t, c.Root().(*Blend2DNode).TriangleCount())

	ctx.SetFloat(0, 1.9)
	c.Update(ctx, seconds(0.1))
	pose := evalPose(t, c, ctx)
	assert.InDelta(t, 2, pose.Positions[0].X(), eps)
}

func TestBlend2DHoldsTimeWhenClipNotReady(t *testing.T) {
	c, ctx, clips := blend2DController(t, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{0, 1})
	clips[1].ready = false
	ctx.SetFloat(0, 0.25)
	ctx.SetFloat(1, 0.25)

	rm := c.Update(ctx, seconds(0.5))
	assert.True(t, rm.ApproxEqual(common.IdentityTransform(), eps))
	var r streamReader
	r.reset(ctx.prev)
	assert.Zero(t, r.readF32())
}

func conditionController(t *testing.T, blend float32) (*Controller, *RuntimeContext) {
	t.Helper()
	root := &ConditionNode{
		Condition:   "flag",
		BlendLength: seconds(blend),
		True:        looped(1),
		False:       looped(0),
	}
	opts := append(slotsOf(newFakeClip(0, 1), newFakeClip(1, 1)),
		WithInputs(Input{Name: "flag", Type: InputBool}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	return c, c.CreateRuntime(testModel(t), 0)
}

func TestConditionCrossfade(t *testing.T) {
	c, ctx := conditionController(t, 1)
	assert.Equal(t, conditionRecordSize+timeRecordSize, ctx.StateSize())
	assert.False(t, peekCondition(ctx).IsTrue)

	ctx.SetBool(0, true)
	c.Update(ctx, seconds(0.5))
	assert.Equal(t, conditionRecordSize+2*timeRecordSize, ctx.StateSize())
	assert.Equal(t, conditionRecord{T: 0, IsTrue: true}, peekCondition(ctx))
	assert.InDelta(t, 0, evalPose(t, c, ctx).Positions[0].X(), eps)

	c.Update(ctx, seconds(0.5))
	assert.InDelta(t, 0.5, evalPose(t, c, ctx).Positions[0].X(), eps)

	c.Update(ctx, seconds(0.6))
	assert.Equal(t, conditionRecordSize+timeRecordSize, ctx.StateSize())
	assert.InDelta(t, 1, evalPose(t, c, ctx).Positions[0].X(), eps)
}

// crossfadeClips returns two looped clips that differ in both stride and turn rate.
func crossfadeClips() (*fakeClip, *fakeClip) {
	from, to := newFakeClip(0, 1), newFakeClip(1, 1)
	from.speed = 0.5
	to.stride = 3
	to.speed = 1.5
	return from, to
}

func TestConditionCrossfadeRootMotion(t *testing.T) {
	from, to := crossfadeClips()
	root := &ConditionNode{Condition: "flag", BlendLength: seconds(1), True: looped(1), False: looped(0)}
	opts := append(slotsOf(from, to), WithInputs(Input{Name: "flag", Type: InputBool}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	ctx.SetBool(0, true)
	d := seconds(0.25)
	rm := c.Update(ctx, d)
	assert.True(t, rm.ApproxEqual(rootMotion(from, 0, d), eps))

	rm = c.Update(ctx, d)
	want := rootMotion(from, d, 2*d).Interpolate(rootMotion(to, 0, d), 0.25)
	assert.True(t, rm.ApproxEqual(want, eps), "got %v want %v", rm, want)
}

func TestConditionInstantSwitch(t *testing.T) {
	c, ctx := conditionController(t, 0)
	ctx.SetBool(0, true)
	c.Update(ctx, seconds(0.1))
	assert.Equal(t, conditionRecordSize+timeRecordSize, ctx.StateSize())
	assert.InDelta(t, 1, evalPose(t, c, ctx).Positions[0].X(), eps)
}

func TestConditionMissingBranchIsInert(t *testing.T) {
	root := &ConditionNode{Condition: "", True: looped(0)}
	c, err := New(root, slotsOf(newFakeClip(1, 1))...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	assert.Zero(t, ctx.StateSize())
	rm := c.Update(ctx, seconds(0.5))
	assert.True(t, rm.ApproxEqual(common.IdentityTransform(), eps))
}

func TestSelectCrossfade(t *testing.T) {
	root := &SelectNode{
		BlendLength: seconds(0.2),
		Input:       0,
		Children:    []SelectChild{{MaxValue: 0.5, Node: looped(0)}, {MaxValue: 10, Node: looped(1)}},
	}
	opts := append(slotsOf(newFakeClip(0, 1), newFakeClip(1, 1)), WithInputs(Input{Name: "speed", Type: InputFloat}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)
	assert.Equal(t, selectRecord{From: 0, To: 0}, peekSelect(ctx))

	ctx.SetFloat(0, 1)
	c.Update(ctx, seconds(0.1))
	assert.Equal(t, selectRecord{From: 0, To: 1}, peekSelect(ctx))
	assert.Equal(t, selectRecordSize+2*timeRecordSize, ctx.StateSize())

	c.Update(ctx, seconds(0.1))
	assert.InDelta(t, 0.5, evalPose(t, c, ctx).Positions[0].X(), 1e-3)

	c.Update(ctx, seconds(0.15))
	rec := peekSelect(ctx)
	assert.Equal(t, uint32(1), rec.From)
	assert.Equal(t, uint32(1), rec.To)
	assert.Equal(t, selectRecordSize+timeRecordSize, ctx.StateSize())
	assert.InDelta(t, 1, evalPose(t, c, ctx).Positions[0].X(), eps)
}

func TestSelectCrossfadeRootMotion(t *testing.T) {
	from, to := crossfadeClips()
	root := &SelectNode{
		BlendLength: seconds(0.2),
		Input:       0,
		Children:    []SelectChild{{MaxValue: 0.5, Node: looped(0)}, {MaxValue: 10, Node: looped(1)}},
	}
	opts := append(slotsOf(from, to), WithInputs(Input{Name: "speed", Type: InputFloat}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	ctx.SetFloat(0, 1)
	d := seconds(0.1)
	c.Update(ctx, d)
	rm := c.Update(ctx, d)
	want := rootMotion(from, d, 2*d).Interpolate(rootMotion(to, 0, d), blendFactor(d, root.BlendLength))
	assert.True(t, rm.ApproxEqual(want, eps), "got %v want %v", rm, want)
	assert.InDelta(t, 0.5, blendFactor(d, root.BlendLength), 1e-3)
}

func locomotionGroup() *GroupNode {
	return &GroupNode{
		BlendLength: seconds(0.3),
		Children: []GroupChild{
			{Node: &AnimationNode{NodeBase: NodeBase{NodeName: "idle"}, Slot: 0, Flags: FlagLooped}, Flags: GroupSelectable, Condition: "speed <= 0"},
			{Node: &AnimationNode{NodeBase: NodeBase{NodeName: "run"}, Slot: 1, Flags: FlagLooped}, Flags: GroupSelectable, Condition: "speed > 0"},
		},
		Transitions: []Transition{{From: AnyChild, To: 1, BlendLength: seconds(0.2), ExitTime: -1}},
	}
}

func groupController(t *testing.T, root *GroupNode) (*Controller, *RuntimeContext) {
	t.Helper()
	opts := append(slotsOf(newFakeClip(0, 1), newFakeClip(1, 1)), WithInputs(Input{Name: "speed", Type: InputFloat}))
	c, err := New(root, opts...)
	require.NoError(t, err)
	return c, c.CreateRuntime(testModel(t), 0)
}

func TestGroupTransitionCrossfade(t *testing.T) {
	c, ctx := groupController(t, locomotionGroup())
	assert.Equal(t, groupRecord{}, peekGroup(ctx))

	ctx.SetFloat(0, 1)
	c.Update(ctx, seconds(0.05))
	rec := peekGroup(ctx)
	require.Equal(t, uint32(0), rec.From)
	require.Equal(t, uint32(1), rec.To)
	assert.Equal(t, seconds(0.2), rec.BlendLength)
	assert.Zero(t, rec.T)

	prevT := rec.T
	transitioning := 0
	finished := false
	for range 10 {
		c.Update(ctx, seconds(0.05))
		rec = peekGroup(ctx)
		if rec.From != rec.To {
			require.False(t, finished, "transition restarted")
			assert.Greater(t, rec.T, prevT)
			assert.LessOrEqual(t, rec.T, rec.BlendLength)
			prevT = rec.T
			transitioning++
			continue
		}
		finished = true
		assert.Equal(t, uint32(1), rec.From)
	}
	assert.True(t, finished)
	assert.GreaterOrEqual(t, transitioning, 3)
	assert.InDelta(t, 1, evalPose(t, c, ctx).Positions[0].X(), eps)
}

func TestGroupWaitsForExitTime(t *testing.T) {
	root := locomotionGroup()
	root.Transitions = []Transition{{From: 0, To: 1, BlendLength: 0, ExitTime: 0.5}}
	c, ctx := groupController(t, root)
	ctx.SetFloat(0, 1)

	// The idle loop is 1s; its phase crosses 0.5 during the third 0.2s step.
	c.Update(ctx, seconds(0.2))
	assert.Equal(t, uint32(0), peekGroup(ctx).To)
	c.Update(ctx, seconds(0.2))
	assert.Equal(t, uint32(0), peekGroup(ctx).To)
	c.Update(ctx, seconds(0.2))
	rec := peekGroup(ctx)
	assert.Equal(t, uint32(0), rec.From)
	assert.Equal(t, uint32(1), rec.To)

	c.Update(ctx, seconds(0.2))
	rec = peekGroup(ctx)
	assert.Equal(t, uint32(1), rec.From)
	assert.Equal(t, uint32(1), rec.To)
}

func TestGroupFallsBackToSelectableChild(t *testing.T) {
	root := locomotionGroup()
	root.Transitions = nil
	c, ctx := groupController(t, root)
	ctx.SetFloat(0, 1)

	c.Update(ctx, seconds(0.05))
	rec := peekGroup(ctx)
	assert.Equal(t, uint32(1), rec.To)
	assert.Equal(t, seconds(0.3), rec.BlendLength)
}

func TestGroupNonSelectableStateWaitsForTransition(t *testing.T) {
	root := &GroupNode{
		BlendLength: seconds(0.1),
		Children: []GroupChild{
			{Node: looped(0), Flags: GroupSelectable, Condition: "speed <= 0"},
			{Node: looped(1)},
		},
		Transitions: []Transition{{From: 0, To: 1, BlendLength: 0, ExitTime: -1}},
	}
	c, ctx := groupController(t, root)
	ctx.SetFloat(0, 1)
	c.Update(ctx, seconds(0.05))
	c.Update(ctx, seconds(0.05))
	rec := peekGroup(ctx)
	require.Equal(t, uint32(1), rec.From)
	require.Equal(t, uint32(1), rec.To)

	// Idle holds again, but nothing leads out of the one-shot state.
	ctx.SetFloat(0, 0)
	for range 3 {
		c.Update(ctx, seconds(0.05))
		rec = peekGroup(ctx)
		assert.Equal(t, uint32(1), rec.From)
		assert.Equal(t, uint32(1), rec.To)
	}
	assert.InDelta(t, 1, evalPose(t, c, ctx).Positions[0].X(), eps)
}

func TestGroupWildcardLeavesNonSelectableState(t *testing.T) {
	root := &GroupNode{
		BlendLength: seconds(0.1),
		Children: []GroupChild{
			{Node: looped(0), Flags: GroupSelectable, Condition: "speed <= 0"},
			{Node: looped(1)},
		},
		Transitions: []Transition{
			{From: 0, To: 1, BlendLength: 0, ExitTime: -1},
			{From: 1, To: AnyChild, ExitTime: -1},
		},
	}
	c, ctx := groupController(t, root)
	ctx.SetFloat(0, 1)
	c.Update(ctx, seconds(0.05))
	c.Update(ctx, seconds(0.05))
	require.Equal(t, uint32(1), peekGroup(ctx).From)

	ctx.SetFloat(0, 0)
	c.Update(ctx, seconds(0.05))
	rec := peekGroup(ctx)
	assert.Equal(t, uint32(1), rec.From)
	assert.Equal(t, uint32(0), rec.To)
	assert.Equal(t, seconds(0.1), rec.BlendLength)
}

func TestGroupCrossfadeRootMotion(t *testing.T) {
	from, to := crossfadeClips()
	opts := append(slotsOf(from, to), WithInputs(Input{Name: "speed", Type: InputFloat}))
	c, err := New(locomotionGroup(), opts...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)

	ctx.SetFloat(0, 1)
	d := seconds(0.05)
	c.Update(ctx, d)
	rm := c.Update(ctx, d)
	want := rootMotion(from, d, 2*d).Interpolate(rootMotion(to, 0, d), blendFactor(d, seconds(0.2)))
	assert.True(t, rm.ApproxEqual(want, eps), "got %v want %v", rm, want)
}

func TestEmptyGroupKeepsRecord(t *testing.T) {
	c, err := New(&GroupNode{})
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)
	assert.Equal(t, groupRecordSize, ctx.StateSize())
	c.Update(ctx, seconds(0.1))
	assert.Equal(t, groupRecordSize, ctx.StateSize())
}

func TestLayersMasksAndRootMotion(t *testing.T) {
	base := newFakeClip(0, 1)
	upper := newFakeClip(1, 1)
	upper.stride = 3
	root := &LayersNode{Layers: []Layer{
		{Name: "base", Mask: NoMask, Node: looped(0)},
		{Name: "upper", Mask: 0, Node: looped(1)},
	}}
	opts := append(slotsOf(base, upper), WithMasks(model.NewBoneMask("upper", "spine")))
	c, err := New(root, opts...)
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)
	assert.Equal(t, 2*timeRecordSize, ctx.StateSize())

	rm := c.Update(ctx, seconds(0.5))
	assert.InDelta(t, 0.5, rm.Pos.Y(), eps)

	pose := evalPose(t, c, ctx)
	assert.InDelta(t, 0, pose.Positions[0].X(), eps)
	assert.InDelta(t, 1, pose.Positions[1].X(), eps)
}

func TestStreamRecordSizes(t *testing.T) {
	tests := []struct {
		name string
		root Node
		want int
	}{
		{"animation", looped(0), 4},
		{"blend1d", &Blend1DNode{Children: []Blend1DChild{{Slot: 0}}}, 4},
		{"blend2d", &Blend2DNode{Children: []Blend2DChild{{Slot: 0}}}, 4},
		{"condition", &ConditionNode{True: looped(0), False: looped(0)}, 9},
		{"select", &SelectNode{Children: []SelectChild{{Node: looped(0)}}}, 16},
		{"group", &GroupNode{Children: []GroupChild{{Node: looped(0), Flags: GroupSelectable}}}, 20},
		{"layers", &LayersNode{Layers: []Layer{{Mask: NoMask, Node: looped(0)}, {Mask: NoMask, Node: looped(0)}}}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append(slotsOf(newFakeClip(0, 1)), WithInputs(Input{Name: "v", Type: InputFloat}))
			c, err := New(tt.root, opts...)
			require.NoError(t, err)
			ctx := c.CreateRuntime(testModel(t), 0)
			assert.Equal(t, tt.want, ctx.StateSize())
			c.Update(ctx, seconds(0.1))
			assert.Equal(t, tt.want, ctx.StateSize())
		})
	}
}

func TestApplySetRebindsSlots(t *testing.T) {
	walk := newFakeClip(1, 1)
	sneak := newFakeClip(5, 1)
	c, err := New(looped(0), WithSlots("move"), WithEntries(
		AnimationEntry{Set: 0, Slot: 0, Animation: walk},
		AnimationEntry{Set: 1, Slot: 0, Animation: sneak},
	))
	require.NoError(t, err)
	ctx := c.CreateRuntime(testModel(t), 0)
	assert.Same(t, walk, ctx.Animation(0))

	c.ApplySet(ctx, 1)
	assert.Same(t, sneak, ctx.Animation(0))
	assert.InDelta(t, 5, evalPose(t, c, ctx).Positions[0].X(), eps)
}

func TestNewRejectsInvalidReferences(t *testing.T) {
	_, err := New(looped(3), WithSlots("a"))
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = New(&Blend1DNode{Input: 2}, WithSlots("a"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(&ConditionNode{Condition: "missing > 1", True: looped(0), False: looped(0)}, WithSlots("a"))
	assert.ErrorIs(t, err, ErrCondition)

	_, err = New(looped(0), WithSlots("a"), WithIK(IKChain{Bones: []string{"only"}}))
	assert.ErrorIs(t, err, ErrInvalidIK)

	_, err = New(nil)
	assert.ErrorIs(t, err, ErrInvalidNode)
}
