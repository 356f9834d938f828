package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

// Layer is an independently updated subtree restricted to a bone mask.
type Layer struct {
	Name string
	Mask uint32
	Node Node
}

// LayersNode evaluates its layers in order; later layers overwrite earlier ones on the bones their
// masks admit. Only the first layer contributes root motion.
type LayersNode struct {
	NodeBase
	Layers []Layer
}

var _ Node = (*LayersNode)(nil)

func (n *LayersNode) Type() NodeType {
	return NodeLayers
}

func (n *LayersNode) update(ctx *RuntimeContext, rm *common.RigidTransform) {
	*rm = common.IdentityTransform()
	for i, l := range n.Layers {
		if i == 0 {
			l.Node.update(ctx, rm)
			continue
		}
		discard := common.IdentityTransform()
		l.Node.update(ctx, &discard)
	}
}

func (n *LayersNode) enter(ctx *RuntimeContext) {
	for _, l := range n.Layers {
		l.Node.enter(ctx)
	}
}

func (n *LayersNode) skip(ctx *RuntimeContext) {
	for _, l := range n.Layers {
		l.Node.skip(ctx)
	}
}

func (n *LayersNode) pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32) {
	for _, l := range n.Layers {
		l.Node.pose(ctx, weight, pose, l.Mask)
	}
}

func (n *LayersNode) length(ctx *RuntimeContext) common.Time {
	return common.OneSecond
}

func (n *LayersNode) time(ctx *RuntimeContext) common.Time {
	return 0
}

func (n *LayersNode) prepare(c *Controller) error {
	for i, l := range n.Layers {
		if l.Node == nil {
			return fmt.Errorf("%w: layers node %q layer %d is empty", ErrInvalidNode, n.NodeName, i)
		}
		if l.Mask != NoMask && int(l.Mask) >= len(c.masks) {
			return fmt.Errorf("%w: layers node %q layer %q mask %d", ErrInvalidNode, n.NodeName, l.Name, l.Mask)
		}
		if err := l.Node.prepare(c); err != nil {
			return err
		}
	}
	return nil
}

func (n *LayersNode) serialize(w *blob.Writer) {
	n.serializeBase(w)
	w.U32(uint32(len(n.Layers)))
	for _, l := range n.Layers {
		w.String(l.Name)
		w.U32(l.Mask)
		writeNode(w, l.Node)
	}
}

func (n *LayersNode) deserialize(r *blob.Reader) error {
	n.deserializeBase(r)
	count := r.Count(9)
	n.Layers = make([]Layer, 0, count)
	for range count {
		name := r.String()
		mask := r.U32()
		child, err := readNode(r)
		if err != nil {
			return err
		}
		n.Layers = append(n.Layers, Layer{Name: name, Mask: mask, Node: child})
	}
	return r.Err()
}
