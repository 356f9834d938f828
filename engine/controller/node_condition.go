package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

// ConditionNode switches between two subtrees on a boolean expression over the inputs,
// crossfading over BlendLength. A node missing either branch is inert.
type ConditionNode struct {
	NodeBase
	Condition   string
	BlendLength common.Time
	True        Node
	False       Node

	compiled Condition
}

var _ Node = (*ConditionNode)(nil)

func (n *ConditionNode) Type() NodeType {
	return NodeCondition
}

func (n *ConditionNode) inert() bool {
	return n.True == nil || n.False == nil
}

func (n *ConditionNode) branch(isTrue bool) Node {
	if isTrue {
		return n.True
	}
	return n.False
}

func (n *ConditionNode) update(ctx *RuntimeContext, rm *common.RigidTransform) {
	*rm = common.IdentityTransform()
	if n.inert() {
		return
	}
	rec := ctx.in.readCondition()
	if rec.T < n.BlendLength {
		rec.T += ctx.timeDelta
		if rec.T >= n.BlendLength {
			n.branch(!rec.IsTrue).skip(ctx)
			ctx.out.writeCondition(rec)
			n.branch(rec.IsTrue).update(ctx, rm)
			return
		}
		ctx.out.writeCondition(rec)
		n.branch(!rec.IsTrue).update(ctx, rm)
		tmp := common.IdentityTransform()
		n.branch(rec.IsTrue).update(ctx, &tmp)
		*rm = rm.Interpolate(tmp, blendFactor(rec.T, n.BlendLength))
		return
	}

	isTrue := n.compiled.Eval(&ctx.Inputs)
	if isTrue == rec.IsTrue {
		ctx.out.writeCondition(rec)
		n.branch(rec.IsTrue).update(ctx, rm)
		return
	}
	if n.BlendLength == 0 {
		n.branch(rec.IsTrue).skip(ctx)
		ctx.out.writeCondition(conditionRecord{T: 0, IsTrue: isTrue})
		n.branch(isTrue).enter(ctx)
		return
	}
	ctx.out.writeCondition(conditionRecord{T: 0, IsTrue: isTrue})
	n.branch(rec.IsTrue).update(ctx, rm)
	n.branch(isTrue).enter(ctx)
}

func (n *ConditionNode) enter(ctx *RuntimeContext) {
	if n.inert() {
		return
	}
	isTrue := n.compiled.Eval(&ctx.Inputs)
	ctx.out.writeCondition(conditionRecord{T: n.BlendLength, IsTrue: isTrue})
	n.branch(isTrue).enter(ctx)
}

func (n *ConditionNode) skip(ctx *RuntimeContext) {
	if n.inert() {
		return
	}
	rec := ctx.in.readCondition()
	if rec.T < n.BlendLength {
		n.branch(!rec.IsTrue).skip(ctx)
	}
	n.branch(rec.IsTrue).skip(ctx)
}

func (n *ConditionNode) pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32) {
	if n.inert() {
		return
	}
	rec := ctx.in.readCondition()
	if rec.T < n.BlendLength {
		n.branch(!rec.IsTrue).pose(ctx, weight, pose, mask)
		n.branch(rec.IsTrue).pose(ctx, weight*blendFactor(rec.T, n.BlendLength), pose, mask)
		return
	}
	n.branch(rec.IsTrue).pose(ctx, weight, pose, mask)
}

func (n *ConditionNode) length(ctx *RuntimeContext) common.Time {
	return common.OneSecond
}

func (n *ConditionNode) time(ctx *RuntimeContext) common.Time {
	return 0
}

func (n *ConditionNode) prepare(c *Controller) error {
	compiled, err := CompileCondition(n.Condition, &c.inputs)
	if err != nil {
		return fmt.Errorf("condition node %q: %w", n.NodeName, err)
	}
	n.compiled = compiled
	for _, child := range []Node{n.True, n.False} {
		if child == nil {
			continue
		}
		if err := child.prepare(c); err != nil {
			return err
		}
	}
	return nil
}

func (n *ConditionNode) serialize(w *blob.Writer) {
	n.serializeBase(w)
	w.String(n.Condition)
	w.U32(uint32(n.BlendLength))
	for _, child := range []Node{n.True, n.False} {
		w.Bool(child != nil)
		if child != nil {
			writeNode(w, child)
		}
	}
}

func (n *ConditionNode) deserialize(r *blob.Reader) error {
	n.deserializeBase(r)
	n.Condition = r.String()
	n.BlendLength = common.Time(r.U32())
	for _, dst := range []*Node{&n.True, &n.False} {
		if !r.Bool() {
			continue
		}
		child, err := readNode(r)
		if err != nil {
			return err
		}
		*dst = child
	}
	return r.Err()
}
