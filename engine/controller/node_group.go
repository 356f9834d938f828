package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

// AnyChild matches every child as a transition source, and lets a transition target any
// selectable child whose condition holds.
const AnyChild uint32 = 0xffffffff

// GroupSelectable lets a group child become active without an explicit transition.
const GroupSelectable uint32 = 1 << 0

// GroupChild is a state of a group.
type GroupChild struct {
	Node      Node
	Flags     uint32
	Condition string

	compiled Condition
}

// Selectable reports whether the child may be entered without an explicit transition.
func (c *GroupChild) Selectable() bool {
	return c.Flags&GroupSelectable != 0
}

// Transition is an edge of a group's state machine. ExitTime is a fraction of the source
// child's loop; a negative ExitTime fires as soon as the transition matches.
type Transition struct {
	From        uint32
	To          uint32
	BlendLength common.Time
	ExitTime    float32
}

// GroupNode is a state machine over its children. The active child stays active while it is
// selectable and its condition holds; otherwise transitions are scanned in table order.
type GroupNode struct {
	NodeBase
	BlendLength common.Time
	Children    []GroupChild
	Transitions []Transition
}

var _ Node = (*GroupNode)(nil)

func (n *GroupNode) Type() NodeType {
	return NodeGroup
}

func (n *GroupNode) child(i uint32) *GroupChild {
	assertf(int(i) < len(n.Children), "group node %q child %d out of %d", n.NodeName, i, len(n.Children))
	if int(i) >= len(n.Children) {
		return nil
	}
	return &n.Children[i]
}

func (n *GroupNode) holds(ctx *RuntimeContext, i uint32) bool {
	return n.Children[i].compiled.Eval(&ctx.Inputs)
}

// exitReached reports whether the point exit (a fraction of the child's loop) lies in the window the
// child traverses this tick.
func exitReached(ctx *RuntimeContext, child Node, exit float32) bool {
	length := child.length(ctx)
	beg := child.time(ctx)
	end := beg + ctx.timeDelta
	loopStart := beg - beg.Mod(length)
	t := loopStart + common.TimeFromSeconds(exit*length.Seconds())
	return t >= beg && t < end
}

func (n *GroupNode) update(ctx *RuntimeContext, rm *common.RigidTransform) {
	*rm = common.IdentityTransform()
	rec := ctx.in.readGroup()
	if len(n.Children) == 0 {
		ctx.out.writeGroup(rec)
		return
	}
	from, to := n.child(rec.From), n.child(rec.To)
	if from == nil || to == nil {
		return
	}

	if rec.From != rec.To {
		rec.T += ctx.timeDelta
		if rec.BlendLength < rec.T {
			from.Node.skip(ctx)
			rec.From = rec.To
			rec.T = 0
			ctx.out.writeGroup(rec)
			to.Node.update(ctx, rm)
			return
		}
		ctx.out.writeGroup(rec)
		from.Node.update(ctx, rm)
		tmp := common.IdentityTransform()
		to.Node.update(ctx, &tmp)
		*rm = rm.Interpolate(tmp, blendFactor(rec.T, rec.BlendLength))
		return
	}

	if !from.Selectable() || !n.holds(ctx, rec.From) {
		waiting, goAnywhere := false, false
		for _, tr := range n.Transitions {
			if tr.To == rec.To {
				continue
			}
			if tr.From != rec.From && tr.From != AnyChild {
				continue
			}
			if tr.To != AnyChild && !n.holds(ctx, tr.To) {
				continue
			}
			if tr.ExitTime >= 0 {
				waiting = true
				if !exitReached(ctx, from.Node, tr.ExitTime) {
					continue
				}
			}
			if tr.To == AnyChild {
				waiting = false
				goAnywhere = true
				break
			}
			n.start(ctx, rec, tr.To, tr.BlendLength, rm)
			return
		}

		// A non-selectable state that still holds is only left through a transition.
		if (!n.holds(ctx, rec.From) || goAnywhere) && !waiting {
			for i := range n.Children {
				idx := uint32(i)
				if idx != rec.From && n.Children[i].Selectable() && n.holds(ctx, idx) {
					n.start(ctx, rec, idx, n.BlendLength, rm)
					return
				}
			}
		}
	}

	rec.T += ctx.timeDelta
	ctx.out.writeGroup(rec)
	from.Node.update(ctx, rm)
}

// start begins a crossfade from the active child to child to.
func (n *GroupNode) start(ctx *RuntimeContext, rec groupRecord, to uint32, blend common.Time, rm *common.RigidTransform) {
	from := rec.From
	rec.To = to
	rec.BlendLength = blend
	rec.T = 0
	ctx.out.writeGroup(rec)
	n.Children[from].Node.update(ctx, rm)
	n.Children[to].Node.enter(ctx)
}

func (n *GroupNode) enter(ctx *RuntimeContext) {
	for i := range n.Children {
		idx := uint32(i)
		if n.Children[i].Selectable() && n.holds(ctx, idx) {
			ctx.out.writeGroup(groupRecord{From: idx, To: idx})
			n.Children[i].Node.enter(ctx)
			return
		}
	}
	ctx.out.writeGroup(groupRecord{})
	if len(n.Children) > 0 {
		n.Children[0].Node.enter(ctx)
	}
}

func (n *GroupNode) skip(ctx *RuntimeContext) {
	rec := ctx.in.readGroup()
	if len(n.Children) == 0 {
		return
	}
	if from := n.child(rec.From); from != nil {
		from.Node.skip(ctx)
	}
	if rec.From != rec.To {
		if to := n.child(rec.To); to != nil {
			to.Node.skip(ctx)
		}
	}
}

func (n *GroupNode) pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32) {
	rec := ctx.in.readGroup()
	if len(n.Children) == 0 {
		return
	}
	from, to := n.child(rec.From), n.child(rec.To)
	if from == nil || to == nil {
		return
	}
	from.Node.pose(ctx, weight, pose, mask)
	if rec.From != rec.To {
		to.Node.pose(ctx, weight*blendFactor(rec.T, rec.BlendLength), pose, mask)
	}
}

func (n *GroupNode) length(ctx *RuntimeContext) common.Time {
	return common.OneSecond
}

func (n *GroupNode) time(ctx *RuntimeContext) common.Time {
	return 0
}

func (n *GroupNode) prepare(c *Controller) error {
	for i := range n.Children {
		child := &n.Children[i]
		if child.Node == nil {
			return fmt.Errorf("%w: group node %q child %d is empty", ErrInvalidNode, n.NodeName, i)
		}
		compiled, err := CompileCondition(child.Condition, &c.inputs)
		if err != nil {
			return fmt.Errorf("group node %q child %d: %w", n.NodeName, i, err)
		}
		child.compiled = compiled
		if err := child.Node.prepare(c); err != nil {
			return err
		}
	}
	count := uint32(len(n.Children))
	for i, tr := range n.Transitions {
		if (tr.From != AnyChild && tr.From >= count) || (tr.To != AnyChild && tr.To >= count) {
			return fmt.Errorf("%w: group node %q transition %d (%d -> %d)", ErrInvalidNode, n.NodeName, i, tr.From, tr.To)
		}
	}
	return nil
}

func (n *GroupNode) serialize(w *blob.Writer) {
	n.serializeBase(w)
	w.U32(uint32(n.BlendLength))
	w.U32(uint32(len(n.Children)))
	for _, c := range n.Children {
		w.U32(c.Flags)
		w.String(c.Condition)
		writeNode(w, c.Node)
	}
	w.U32(uint32(len(n.Transitions)))
	for _, tr := range n.Transitions {
		w.U32(tr.From)
		w.U32(tr.To)
		w.U32(uint32(tr.BlendLength))
		w.F32(tr.ExitTime)
	}
}

func (n *GroupNode) deserialize(r *blob.Reader) error {
	n.deserializeBase(r)
	n.BlendLength = common.Time(r.U32())
	count := r.Count(9)
	n.Children = make([]GroupChild, 0, count)
	for range count {
		flags := r.U32()
		cond := r.String()
		child, err := readNode(r)
		if err != nil {
			return err
		}
		n.Children = append(n.Children, GroupChild{Node: child, Flags: flags, Condition: cond})
	}
	tcount := r.Count(16)
	n.Transitions = make([]Transition, 0, tcount)
	for range tcount {
		n.Transitions = append(n.Transitions, Transition{
			From:        r.U32(),
			To:          r.U32(),
			BlendLength: common.Time(r.U32()),
			ExitTime:    r.F32(),
		})
	}
	return r.Err()
}
