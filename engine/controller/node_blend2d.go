package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
	"github.com/go-gl/mathgl/mgl32"
)

// Blend2DChild positions a slot's clip at a point of a 2D blend space.
type Blend2DChild struct {
	Value mgl32.Vec2
	Slot  uint32
}

// Blend2DNode blends the three clips of the blend-space triangle containing a 2D input.
type Blend2DNode struct {
	NodeBase
	XInput   uint32
	YInput   uint32
	Children []Blend2DChild

	triangles []triangle
}

var _ Node = (*Blend2DNode)(nil)

// blendTrio is the set of children contributing to a 2D blend and their barycentric weights.
// B and C are -1 when a single child is active.
type blendTrio struct {
	A, B, C    int
	Ta, Tb, Tc float32
}

func (n *Blend2DNode) Type() NodeType {
	return NodeBlend2D
}

// Triangulate rebuilds the blend-space triangles. It must be called after Children change.
func (n *Blend2DNode) Triangulate() {
	points := make([]mgl32.Vec2, len(n.Children))
	for i, c := range n.Children {
		points[i] = c.Value
	}
	n.triangles = triangulate(points)
}

// TriangleCount returns the number of blend-space triangles.
func (n *Blend2DNode) TriangleCount() int {
	return len(n.triangles)
}

func (n *Blend2DNode) activeTrio(ctx *RuntimeContext) (blendTrio, bool) {
	if len(n.Children) == 0 {
		return blendTrio{}, false
	}
	p := mgl32.Vec2{ctx.inputValue(n.XInput), ctx.inputValue(n.YInput)}
	if len(n.triangles) == 0 {
		return blendTrio{A: n.nearest(p), B: -1, C: -1, Ta: 1}, true
	}
	for _, tri := range n.triangles {
		u, v, inside := barycentric(p, n.Children[tri.A].Value, n.Children[tri.B].Value, n.Children[tri.C].Value)
		if inside {
			return blendTrio{A: tri.A, B: tri.B, C: tri.C, Ta: 1 - u - v, Tb: u, Tc: v}, true
		}
	}
	return blendTrio{A: 0, B: -1, C: -1, Ta: 1}, true
}

func (n *Blend2DNode) nearest(p mgl32.Vec2) int {
	best := 0
	bestDist := float32(-1)
	for i, c := range n.Children {
		d := c.Value.Sub(p)
		if dist := d.Dot(d); bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func (n *Blend2DNode) child(ctx *RuntimeContext, i int) Animation {
	if i < 0 {
		return nil
	}
	return ctx.Animation(n.Children[i].Slot)
}

// clips returns the trio's clips and whether every contributing clip is ready.
func (n *Blend2DNode) clips(ctx *RuntimeContext, trio blendTrio) ([3]Animation, bool) {
	anims := [3]Animation{n.child(ctx, trio.A), n.child(ctx, trio.B), n.child(ctx, trio.C)}
	for i, idx := range [3]int{trio.A, trio.B, trio.C} {
		if idx >= 0 && !ready(anims[i]) {
			return anims, false
		}
	}
	return anims, true
}

func (n *Blend2DNode) weightedLength(anims [3]Animation, trio blendTrio) common.Time {
	weights := [3]float32{trio.Ta, trio.Tb, trio.Tc}
	var seconds float32
	for i, a := range anims {
		if a != nil && weights[i] > 0 {
			seconds += a.Length().Seconds() * weights[i]
		}
	}
	return common.TimeFromSeconds(seconds)
}

func (n *Blend2DNode) update(ctx *RuntimeContext, rm *common.RigidTransform) {
	relt0 := ctx.in.readF32()
	*rm = common.IdentityTransform()
	trio, ok := n.activeTrio(ctx)
	if !ok {
		ctx.out.writeF32(relt0)
		return
	}
	anims, allReady := n.clips(ctx, trio)
	if !allReady {
		ctx.out.writeF32(relt0)
		return
	}
	wlen := n.weightedLength(anims, trio)
	relt := relt0
	if wlen > 0 {
		relt = wrapUnit(relt0 + float32(ctx.timeDelta)/float32(wlen))
	}
	ctx.out.writeF32(relt)

	emitEvents(ctx, n.EventData, wlen.Scale(relt0), wlen.Scale(relt), wlen)
	motion := func(a Animation) common.RigidTransform {
		l := a.Length()
		return rootMotion(a, l.Scale(relt0), l.Scale(relt))
	}
	*rm = motion(anims[0])
	if trio.Tb > 0 && anims[1] != nil {
		*rm = rm.Interpolate(motion(anims[1]), trio.Tb/(trio.Ta+trio.Tb))
	}
	if trio.Tc > 0 && anims[2] != nil {
		*rm = rm.Interpolate(motion(anims[2]), trio.Tc)
	}
}

func (n *Blend2DNode) enter(ctx *RuntimeContext) {
	ctx.out.writeF32(0)
}

func (n *Blend2DNode) skip(ctx *RuntimeContext) {
	ctx.in.skip(blendRecordSize)
}

func (n *Blend2DNode) pose(ctx *RuntimeContext, weight float32, pose *model.Pose, mask uint32) {
	relt := ctx.in.readF32()
	trio, ok := n.activeTrio(ctx)
	if !ok {
		return
	}
	// Samples fold in sequentially like the root motion, so b is weighted against a alone.
	samplePoseRelative(ctx, relt, weight, n.Children[trio.A].Slot, pose, mask)
	if trio.B >= 0 && trio.Tb > 0 {
		samplePoseRelative(ctx, relt, weight*trio.Tb/(trio.Ta+trio.Tb), n.Children[trio.B].Slot, pose, mask)
	}
	if trio.C >= 0 && trio.Tc > 0 {
		samplePoseRelative(ctx, relt, weight*trio.Tc, n.Children[trio.C].Slot, pose, mask)
	}
}

func (n *Blend2DNode) length(ctx *RuntimeContext) common.Time {
	trio, ok := n.activeTrio(ctx)
	if !ok {
		return common.OneSecond
	}
	anims, allReady := n.clips(ctx, trio)
	if !allReady {
		return common.OneSecond
	}
	return n.weightedLength(anims, trio)
}

func (n *Blend2DNode) time(ctx *RuntimeContext) common.Time {
	return n.length(ctx).Scale(ctx.in.peekF32())
}

func (n *Blend2DNode) prepare(c *Controller) error {
	if int(n.XInput) >= c.inputs.Len() || int(n.YInput) >= c.inputs.Len() {
		return fmt.Errorf("%w: blend2d node %q inputs (%d, %d)", ErrInvalidInput, n.NodeName, n.XInput, n.YInput)
	}
	for i, child := range n.Children {
		if int(child.Slot) >= len(c.slots) {
			return fmt.Errorf("%w: blend2d node %q child %d slot %d", ErrInvalidSlot, n.NodeName, i, child.Slot)
		}
	}
	n.Triangulate()
	return nil
}

func (n *Blend2DNode) serialize(w *blob.Writer) {
	n.serializeBase(w)
	w.U32(n.XInput)
	w.U32(n.YInput)
	w.U32(uint32(len(n.Children)))
	for _, c := range n.Children {
		w.F32(c.Value[0])
		w.F32(c.Value[1])
		w.U32(c.Slot)
	}
}

func (n *Blend2DNode) deserialize(r *blob.Reader) error {
	n.deserializeBase(r)
	n.XInput = r.U32()
	n.YInput = r.U32()
	count := r.Count(12)
	n.Children = make([]Blend2DChild, 0, count)
	for range count {
		n.Children = append(n.Children, Blend2DChild{Value: mgl32.Vec2{r.F32(), r.F32()}, Slot: r.U32()})
	}
	return r.Err()
}
