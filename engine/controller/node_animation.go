package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

// FlagLooped makes an Animation node wrap around its clip instead of holding the last frame.
const FlagLooped uint32 = 1 << 0

// AnimationNode plays the clip bound to a slot.
type AnimationNode struct {
	NodeBase
	Slot  uint32
	Flags uint32
}

var _ Node = (*AnimationNode)(nil)

func (n *AnimationNode) Type() NodeType {
	return NodeAnimation
}

// Looped reports whether the node wraps around its clip.
func (n *AnimationNode) Looped() bool {
	return n.Flags&FlagLooped != 0
}

func (n *AnimationNode) update(ctx *RuntimeContext, rm *common.RigidTransform) {
	prev := ctx.in.readTime()
	t := prev + ctx.timeDelta
	anim := ctx.Animation(n.Slot)
	if !ready(anim) {
		*rm = common.IdentityTransform()
		ctx.out.writeTime(t)
		return
	}
	length := anim.Length()
	if !n.Looped() {
		prev = prev.Min(length)
		t = t.Min(length)
	}
	emitEvents(ctx, n.EventData, prev, t, length)
	*rm = rootMotion(anim, prev, t)
	ctx.out.writeTime(t)
}

func (n *AnimationNode) enter(ctx *RuntimeContext) {
	ctx.out.writeTime(0)
}

func (n *AnimationNode) skip(ctx *RuntimeContext) {
	ctx.in.skip(timeRecordSize)
}

func (n *AnimationNode) pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32) {
	t := ctx.in.readTime()
	samplePose(ctx, t, weight, n.Slot, pose, mask, n.Looped())
}

func (n *AnimationNode) length(ctx *RuntimeContext) common.Time {
	anim := ctx.Animation(n.Slot)
	if anim == nil {
		return 0
	}
	return anim.Length()
}

func (n *AnimationNode) time(ctx *RuntimeContext) common.Time {
	return ctx.in.peekTime()
}

func (n *AnimationNode) prepare(c *Controller) error {
	if int(n.Slot) >= len(c.slots) {
		return fmt.Errorf("%w: animation node %q slot %d", ErrInvalidSlot, n.NodeName, n.Slot)
	}
	return nil
}

func (n *AnimationNode) serialize(w *blob.Writer) {
	n.serializeBase(w)
	w.U32(n.Slot)
	w.U32(n.Flags)
}

func (n *AnimationNode) deserialize(r *blob.Reader) error {
	n.deserializeBase(r)
	n.Slot = r.U32()
	n.Flags = r.U32()
	return r.Err()
}
