package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

// NodeType identifies the kind of a node in the compiled format.
type NodeType uint8

const (
	NodeNone NodeType = iota
	NodeAnimation
	NodeBlend1D
	NodeBlend2D
	NodeCondition
	NodeSelect
	NodeGroup
	NodeLayers
)

var nodeTypeNames = map[NodeType]string{
	NodeAnimation: "animation",
	NodeBlend1D:   "blend1d",
	NodeBlend2D:   "blend2d",
	NodeCondition: "condition",
	NodeSelect:    "select",
	NodeGroup:     "group",
	NodeLayers:    "layers",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// ParseNodeType maps a node type name to its NodeType.
func ParseNodeType(s string) (NodeType, bool) {
	for t, name := range nodeTypeNames {
		if name == s {
			return t, true
		}
	}
	return NodeNone, false
}

// NoMask selects no bone mask: every bone may be written.
const NoMask = 0xffffffff

// Node is a blend-tree node. Nodes hold static configuration only; all per-instance state lives
// in the RuntimeContext state stream. The set of node kinds is closed.
type Node interface {
	// Type returns the node kind.
	Type() NodeType

	// Name returns the node's name.
	Name() string

	// Events returns the node's packed event track.
	Events() []byte

	// update advances the node by ctx.timeDelta, rewriting its record(s) and writing its root motion to rm.
	update(ctx *RuntimeContext, rm *common.RigidTransform)

	// enter writes the node's initial record(s).
	enter(ctx *RuntimeContext)

	// skip advances the read cursor past the node's record(s).
	skip(ctx *RuntimeContext)

	// pose reads the node's record(s) and blends its sample into pose.
	pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32)

	// length returns the duration of the node's loop.
	length(ctx *RuntimeContext) common.Time

	// time peeks the node's elapsed time without advancing the read cursor.
	time(ctx *RuntimeContext) common.Time

	// prepare compiles derived data and validates references against the owning controller.
	prepare(c *Controller) error

	serialize(w *blob.Writer)
	deserialize(r *blob.Reader) error
}

// NodeBase holds the fields every node kind shares. Only animation and blend nodes play EventData;
// condition, select, group and layers nodes keep the field for the binary layout and leave it empty.
type NodeBase struct {
	NodeName  string
	EventData []byte
}

func (n *NodeBase) Name() string {
	return n.NodeName
}

func (n *NodeBase) Events() []byte {
	return n.EventData
}

func (n *NodeBase) serializeBase(w *blob.Writer) {
	w.String(n.NodeName)
	w.Blob(n.EventData)
}

func (n *NodeBase) deserializeBase(r *blob.Reader) {
	n.NodeName = r.String()
	n.EventData = r.Blob()
	if len(n.EventData) == 0 {
		n.EventData = nil
	}
}

// newNode creates an empty node of the given kind.
func newNode(t NodeType) (Node, error) {
	switch t {
	case NodeAnimation:
		return &AnimationNode{}, nil
	case NodeBlend1D:
		return &Blend1DNode{}, nil
	case NodeBlend2D:
		return &Blend2DNode{}, nil
	case NodeCondition:
		return &ConditionNode{}, nil
	case NodeSelect:
		return &SelectNode{}, nil
	case NodeGroup:
		return &GroupNode{}, nil
	case NodeLayers:
		return &LayersNode{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownNodeType, uint8(t))
}

func writeNode(w *blob.Writer, n Node) {
	w.U8(uint8(n.Type()))
	n.serialize(w)
}

func readNode(r *blob.Reader) (Node, error) {
	t := NodeType(r.U8())
	if err := r.Err(); err != nil {
		return nil, err
	}
	n, err := newNode(t)
	if err != nil {
		return nil, err
	}
	if err := n.deserialize(r); err != nil {
		return nil, err
	}
	return n, r.Err()
}

// rootMotionSpan returns the motion between two times within one loop, t0 <= t1.
func rootMotionSpan(a Animation, t0, t1 common.Time) common.RigidTransform {
	return a.SampleRootMotion(t0).Inverted().Mul(a.SampleRootMotion(t1))
}

// rootMotion returns the motion a clip imparts between two absolute times, splitting the window at
// the loop boundary when it wraps.
func rootMotion(a Animation, t0, t1 common.Time) common.RigidTransform {
	length := a.Length()
	if length == 0 {
		return common.IdentityTransform()
	}
	t0 = t0.Mod(length)
	t1 = t1.Mod(length)
	if t0 <= t1 {
		return rootMotionSpan(a, t0, t1)
	}
	return rootMotionSpan(a, t0, length).Mul(rootMotionSpan(a, 0, t1))
}

// samplePose blends a slot's clip into pose at absolute time t.
func samplePose(ctx *RuntimeContext, t common.Time, weight float32, slot uint32, pose *model.Pose, mask uint32, looped bool) {
	anim := ctx.Animation(slot)
	if !ready(anim) || ctx.model == nil || !ctx.model.Ready() {
		return
	}
	length := anim.Length()
	if looped {
		t = t.Mod(length)
	} else {
		t = t.Min(length)
	}
	anim.SampleRelativePose(pose, ctx.model, t, weight, ctx.controller.mask(mask))
}

// samplePoseRelative blends a slot's clip into pose at a fraction of its length.
func samplePoseRelative(ctx *RuntimeContext, rel float32, weight float32, slot uint32, pose *model.Pose, mask uint32) {
	anim := ctx.Animation(slot)
	if !ready(anim) {
		return
	}
	samplePose(ctx, anim.Length().Scale(rel), weight, slot, pose, mask, true)
}

// blendFactor returns the crossfade progress t/blend clamped to [0, 1]. A zero-length blend is complete.
func blendFactor(t, blend common.Time) float32 {
	if blend == 0 {
		return 1
	}
	return common.Clamp(t.Seconds()/blend.Seconds(), 0, 1)
}

// wrapUnit reduces a relative time into [0, 1).
func wrapUnit(v float32) float32 {
	v -= float32(int(v))
	if v < 0 {
		v += 1
	}
	return v
}
