package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

// SelectChild is a subtree active while the input is at most MaxValue.
type SelectChild struct {
	MaxValue float32
	Node     Node
}

// SelectNode activates the first child whose MaxValue is not below an input, crossfading over
// BlendLength when the active child changes. Children are sorted by MaxValue.
type SelectNode struct {
	NodeBase
	BlendLength common.Time
	Input       uint32
	Children    []SelectChild
}

var _ Node = (*SelectNode)(nil)

func (n *SelectNode) Type() NodeType {
	return NodeSelect
}

func (n *SelectNode) childIndex(ctx *RuntimeContext) uint32 {
	in := ctx.inputValue(n.Input)
	for i, c := range n.Children {
		if in <= c.MaxValue {
			return uint32(i)
		}
	}
	return uint32(len(n.Children) - 1)
}

func (n *SelectNode) child(i uint32) Node {
	assertf(int(i) < len(n.Children), "select node %q child %d out of %d", n.NodeName, i, len(n.Children))
	if int(i) >= len(n.Children) {
		return nil
	}
	return n.Children[i].Node
}

func (n *SelectNode) update(ctx *RuntimeContext, rm *common.RigidTransform) {
	*rm = common.IdentityTransform()
	if len(n.Children) == 0 {
		return
	}
	rec := ctx.in.readSelect()
	from, to := n.child(rec.From), n.child(rec.To)
	if from == nil || to == nil {
		return
	}
	if rec.From != rec.To {
		rec.T += ctx.timeDelta
		if n.BlendLength < rec.T {
			from.skip(ctx)
			rec.From = rec.To
			rec.T = 0
			ctx.out.writeSelect(rec)
			to.update(ctx, rm)
			return
		}
		ctx.out.writeSelect(rec)
		from.update(ctx, rm)
		tmp := common.IdentityTransform()
		to.update(ctx, &tmp)
		*rm = rm.Interpolate(tmp, blendFactor(rec.T, n.BlendLength))
		return
	}

	if idx := n.childIndex(ctx); idx != rec.From {
		rec.To = idx
		rec.T = 0
		ctx.out.writeSelect(rec)
		from.update(ctx, rm)
		n.Children[idx].Node.enter(ctx)
		return
	}
	rec.T += ctx.timeDelta
	ctx.out.writeSelect(rec)
	from.update(ctx, rm)
}

func (n *SelectNode) enter(ctx *RuntimeContext) {
	if len(n.Children) == 0 {
		return
	}
	idx := n.childIndex(ctx)
	ctx.out.writeSelect(selectRecord{From: idx, To: idx})
	n.Children[idx].Node.enter(ctx)
}

func (n *SelectNode) skip(ctx *RuntimeContext) {
	if len(n.Children) == 0 {
		return
	}
	rec := ctx.in.readSelect()
	if from := n.child(rec.From); from != nil {
		from.skip(ctx)
	}
	if rec.From != rec.To {
		if to := n.child(rec.To); to != nil {
			to.skip(ctx)
		}
	}
}

func (n *SelectNode) pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32) {
	if len(n.Children) == 0 {
		return
	}
	rec := ctx.in.readSelect()
	from, to := n.child(rec.From), n.child(rec.To)
	if from == nil || to == nil {
		return
	}
	from.pose(ctx, weight, pose, mask)
	if rec.From != rec.To {
		to.pose(ctx, weight*blendFactor(rec.T, n.BlendLength), pose, mask)
	}
}

func (n *SelectNode) length(ctx *RuntimeContext) common.Time {
	return common.OneSecond
}

func (n *SelectNode) time(ctx *RuntimeContext) common.Time {
	return 0
}

func (n *SelectNode) prepare(c *Controller) error {
	if len(n.Children) > 0 && int(n.Input) >= c.inputs.Len() {
		return fmt.Errorf("%w: select node %q input %d", ErrInvalidInput, n.NodeName, n.Input)
	}
	for i, child := range n.Children {
		if child.Node == nil {
			return fmt.Errorf("%w: select node %q child %d is empty", ErrInvalidNode, n.NodeName, i)
		}
		if i > 0 && child.MaxValue < n.Children[i-1].MaxValue {
			return fmt.Errorf("%w: select node %q children not sorted", ErrInvalidNode, n.NodeName)
		}
		if err := child.Node.prepare(c); err != nil {
			return err
		}
	}
	return nil
}

func (n *SelectNode) serialize(w *blob.Writer) {
	n.serializeBase(w)
	w.U32(uint32(n.BlendLength))
	w.U32(n.Input)
	w.U32(uint32(len(n.Children)))
	for _, c := range n.Children {
		w.F32(c.MaxValue)
		writeNode(w, c.Node)
	}
}

func (n *SelectNode) deserialize(r *blob.Reader) error {
	n.deserializeBase(r)
	n.BlendLength = common.Time(r.U32())
	n.Input = r.U32()
	count := r.Count(5)
	n.Children = make([]SelectChild, 0, count)
	for range count {
		maxValue := r.F32()
		child, err := readNode(r)
		if err != nil {
			return err
		}
		n.Children = append(n.Children, SelectChild{MaxValue: maxValue, Node: child})
	}
	return r.Err()
}
