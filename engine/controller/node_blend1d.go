package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

// Blend1DChild positions a slot's clip at a key of a 1D blend space.
type Blend1DChild struct {
	Value float32
	Slot  uint32
}

// Blend1DNode blends the two clips bracketing a float input. Children are sorted by Value.
type Blend1DNode struct {
	NodeBase
	Input    uint32
	Children []Blend1DChild
}

var _ Node = (*Blend1DNode)(nil)

func (n *Blend1DNode) Type() NodeType {
	return NodeBlend1D
}

// activePair returns the children bracketing the input and the weight of b. b is -1 when a single
// child is active.
func (n *Blend1DNode) activePair(ctx *RuntimeContext) (a, b int, t float32) {
	if len(n.Children) == 0 {
		return -1, -1, 0
	}
	in := ctx.inputValue(n.Input)
	last := len(n.Children) - 1
	if in <= n.Children[0].Value {
		return 0, -1, 0
	}
	if in >= n.Children[last].Value {
		return last, -1, 0
	}
	for i := 1; i <= last; i++ {
		if in < n.Children[i].Value {
			lo, hi := n.Children[i-1].Value, n.Children[i].Value
			return i - 1, i, (in - lo) / (hi - lo)
		}
	}
	return last, -1, 0
}

func (n *Blend1DNode) child(ctx *RuntimeContext, i int) Animation {
	if i < 0 {
		return nil
	}
	return ctx.Animation(n.Children[i].Slot)
}

// weightedLength returns the loop length of the blended pair.
func (n *Blend1DNode) weightedLength(ctx *RuntimeContext, a, b int, t float32) common.Time {
	animA := n.child(ctx, a)
	if !ready(animA) {
		return common.OneSecond
	}
	lenA := animA.Length()
	lenB := lenA
	if animB := n.child(ctx, b); ready(animB) {
		lenB = animB.Length()
	}
	return common.LerpTime(lenA, lenB, t)
}

func (n *Blend1DNode) update(ctx *RuntimeContext, rm *common.RigidTransform) {
	relt0 := ctx.in.readF32()
	a, b, t := n.activePair(ctx)
	wlen := n.weightedLength(ctx, a, b, t)
	relt := relt0
	if wlen > 0 {
		relt = wrapUnit(relt0 + float32(ctx.timeDelta)/float32(wlen))
	}
	ctx.out.writeF32(relt)

	*rm = common.IdentityTransform()
	animA := n.child(ctx, a)
	if !ready(animA) {
		return
	}
	lenA := animA.Length()
	emitEvents(ctx, n.EventData, wlen.Scale(relt0), wlen.Scale(relt), wlen)
	*rm = rootMotion(animA, lenA.Scale(relt0), lenA.Scale(relt))
	if animB := n.child(ctx, b); ready(animB) {
		lenB := animB.Length()
		*rm = rm.Interpolate(rootMotion(animB, lenB.Scale(relt0), lenB.Scale(relt)), t)
	}
}

func (n *Blend1DNode) enter(ctx *RuntimeContext) {
	ctx.out.writeF32(0)
}

func (n *Blend1DNode) skip(ctx *RuntimeContext) {
	ctx.in.skip(blendRecordSize)
}

func (n *Blend1DNode) pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32) {
	relt := ctx.in.readF32()
	a, b, t := n.activePair(ctx)
	if a < 0 {
		return
	}
	samplePoseRelative(ctx, relt, weight, n.Children[a].Slot, pose, mask)
	if b >= 0 && t > 0 {
		samplePoseRelative(ctx, relt, weight*t, n.Children[b].Slot, pose, mask)
	}
}

func (n *Blend1DNode) length(ctx *RuntimeContext) common.Time {
	a, b, t := n.activePair(ctx)
	return n.weightedLength(ctx, a, b, t)
}

func (n *Blend1DNode) time(ctx *RuntimeContext) common.Time {
	return n.length(ctx).Scale(ctx.in.peekF32())
}

func (n *Blend1DNode) prepare(c *Controller) error {
	if int(n.Input) >= c.inputs.Len() {
		return fmt.Errorf("%w: blend1d node %q input %d", ErrInvalidInput, n.NodeName, n.Input)
	}
	for i, child := range n.Children {
		if int(child.Slot) >= len(c.slots) {
			return fmt.Errorf("%w: blend1d node %q child %d slot %d", ErrInvalidSlot, n.NodeName, i, child.Slot)
		}
		if i > 0 && child.Value < n.Children[i-1].Value {
			return fmt.Errorf("%w: blend1d node %q children not sorted", ErrInvalidNode, n.NodeName)
		}
	}
	return nil
}

func (n *Blend1DNode) serialize(w *blob.Writer) {
	n.serializeBase(w)
	w.U32(n.Input)
	w.U32(uint32(len(n.Children)))
	for _, c := range n.Children {
		w.F32(c.Value)
		w.U32(c.Slot)
	}
}

func (n *Blend1DNode) deserialize(r *blob.Reader) error {
	n.deserializeBase(r)
	n.Input = r.U32()
	count := r.Count(8)
	n.Children = make([]Blend1DChild, 0, count)
	for range count {
		n.Children = append(n.Children, Blend1DChild{Value: r.F32(), Slot: r.U32()})
	}
	return r.Err()
}
