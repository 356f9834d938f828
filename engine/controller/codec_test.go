package controller

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullController(t *testing.T) *Controller {
	t.Helper()
	var track EventTrackBuilder
	track.Add(7, 0.5, []byte("step"))

	root := &LayersNode{
		NodeBase: NodeBase{NodeName: "layers"},
		Layers: []Layer{
			{Name: "base", Mask: NoMask, Node: &GroupNode{
				NodeBase:    NodeBase{NodeName: "locomotion"},
				BlendLength: seconds(0.25),
				Children: []GroupChild{
					{Node: &AnimationNode{NodeBase: NodeBase{NodeName: "idle", EventData: track.Bytes()}, Slot: 0, Flags: FlagLooped}, Flags: GroupSelectable, Condition: "speed <= 0"},
					{Node: &Blend1DNode{NodeBase: NodeBase{NodeName: "move"}, Input: 0, Children: []Blend1DChild{{Value: 0, Slot: 0}, {Value: 4, Slot: 1}}}, Flags: GroupSelectable, Condition: "speed > 0"},
					{Node: &Blend2DNode{NodeBase: NodeBase{NodeName: "strafe"}, XInput: 0, YInput: 2, Children: []Blend2DChild{
						{Value: mgl32.Vec2{0, 0}, Slot: 0}, {Value: mgl32.Vec2{1, 0}, Slot: 1}, {Value: mgl32.Vec2{0, 1}, Slot: 2},
					}}, Condition: "aiming and speed > 0"},
				},
				Transitions: []Transition{
					{From: 0, To: 1, BlendLength: seconds(0.2), ExitTime: -1},
					{From: AnyChild, To: 2, BlendLength: seconds(0.1), ExitTime: 0.5},
				},
			}},
			{Name: "upper", Mask: 0, Node: &SelectNode{
				NodeBase:    NodeBase{NodeName: "weapon"},
				BlendLength: seconds(0.3),
				Input:       3,
				Children: []SelectChild{
					{MaxValue: 0, Node: &AnimationNode{Slot: 2}},
					{MaxValue: 1, Node: &ConditionNode{
						Condition:   "aiming",
						BlendLength: seconds(0.15),
						True:        &AnimationNode{Slot: 1, Flags: FlagLooped},
						False:       &AnimationNode{Slot: 0, Flags: FlagLooped},
					}},
				},
			}},
		},
	}
	c, err := New(root,
		WithInputs(
			Input{Name: "speed", Type: InputFloat},
			Input{Name: "aiming", Type: InputBool},
			Input{Name: "strafe", Type: InputFloat},
			Input{Name: "weapon", Type: InputI32},
		),
		WithSlots("idle", "walk", "aim"),
		WithEntries(
			AnimationEntry{Set: 0, Slot: 0, Path: "idle.anim"},
			AnimationEntry{Set: 0, Slot: 1, Path: "walk.anim"},
			AnimationEntry{Set: 1, Slot: 1, Path: "sneak.anim"},
			AnimationEntry{Set: 0, Slot: 2, Path: "aim.anim"},
		),
		WithMasks(model.NewBoneMask("upper", "spine", "chest")),
		WithIK(IKChain{MaxIterations: 5, Bones: []string{"upper_arm", "forearm", "hand"}}),
		WithRootMotionBone("hips"),
	)
	require.NoError(t, err)
	return c
}

func TestControllerMarshalRoundTrip(t *testing.T) {
	c := fullController(t)
	data := c.Marshal()

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, data, decoded.Marshal())

	assert.Equal(t, 4, decoded.Inputs().Len())
	assert.Equal(t, 3, decoded.InputIndex("weapon"))
	assert.Equal(t, []string{"idle", "walk", "aim"}, decoded.Slots())
	assert.Equal(t, 2, decoded.SlotIndex("aim"))
	assert.Len(t, decoded.Entries(), 4)
	assert.Equal(t, uint32(0), decoded.MaskIndex("upper"))
	assert.Equal(t, uint32(NoMask), decoded.MaskIndex("lower"))
	assert.Equal(t, []string{"upper_arm", "forearm", "hand"}, decoded.IKChains()[0].Bones)
	assert.Equal(t, "hips", decoded.RootMotionBone())

	layers := decoded.Root().(*LayersNode)
	group := layers.Layers[0].Node.(*GroupNode)
	assert.Equal(t, "locomotion", group.Name())
	assert.Equal(t, 1, group.Children[2].Node.(*Blend2DNode).TriangleCount())
	assert.Len(t, DecodeEvents(group.Children[0].Node.Events()), 1)
}

func TestControllerRuntimeFromDecodedAsset(t *testing.T) {
	decoded, err := Unmarshal(fullController(t).Marshal())
	require.NoError(t, err)
	clips := map[string]Animation{
		"idle.anim":  newFakeClip(0, 1),
		"walk.anim":  newFakeClip(1, 1),
		"sneak.anim": newFakeClip(2, 1),
		"aim.anim":   newFakeClip(3, 1),
	}
	require.NoError(t, decoded.ResolveEntries(func(path string) (Animation, error) {
		return clips[path], nil
	}))

	ctx := decoded.CreateRuntime(testModel(t), 0)
	size := ctx.StateSize()
	ctx.SetFloat(decoded.InputIndex("speed"), 2)
	ctx.SetI32(decoded.InputIndex("weapon"), 1)
	for range 20 {
		decoded.Update(ctx, seconds(1.0/30))
	}
	assert.Greater(t, ctx.StateSize(), 0)
	assert.NotEqual(t, 0, size)
	evalPose(t, decoded, ctx)
}

func TestUnmarshalErrors(t *testing.T) {
	c, err := New(&AnimationNode{Slot: 0}, WithSlots("a"))
	require.NoError(t, err)
	data := c.Marshal()

	badMagic := append([]byte(nil), data...)
	badMagic[0] ^= 0xff
	_, err = Unmarshal(badMagic)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	newer := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(newer[4:], Version+1)
	_, err = Unmarshal(newer)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	// The root animation node body is an empty name, an empty event blob, slot and flags.
	unknown := append([]byte(nil), data...)
	unknown[len(unknown)-17] = 99
	_, err = Unmarshal(unknown)
	assert.ErrorIs(t, err, ErrUnknownNodeType)

	_, err = Unmarshal(data[:len(data)-3])
	assert.ErrorIs(t, err, blob.ErrShortRead)

	_, err = Unmarshal(nil)
	assert.ErrorIs(t, err, blob.ErrShortRead)
}
