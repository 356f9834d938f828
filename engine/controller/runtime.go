package controller

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// Animation is a clip the runtime can sample. Implementations must be safe for concurrent reads.
type Animation interface {
	// Ready reports whether the clip can be sampled.
	Ready() bool

	// Length returns the clip duration.
	Length() common.Time

	// SampleRelativePose blends the clip at time t into pose with the given weight,
	// touching only bones admitted by mask.
	SampleRelativePose(pose *model.Pose, m model.Model, t common.Time, weight float32, mask *model.BoneMask)

	// SampleRootMotion returns the accumulated root transform at time t.
	SampleRootMotion(t common.Time) common.RigidTransform
}

func ready(a Animation) bool {
	return a != nil && a.Ready()
}

// RuntimeContext is the per-entity state of a controller: input values, the double-buffered
// state stream, the slot to clip bindings, and the events emitted by the last update.
// A RuntimeContext is owned by one goroutine at a time.
type RuntimeContext struct {
	Inputs

	controller *Controller
	model      model.Model
	animations []Animation
	timeDelta  common.Time

	in  streamReader
	out streamWriter

	// prev holds the state written by the last pass; in reads from it.
	prev []byte

	events []byte
}

// Controller returns the controller this runtime was created from.
func (ctx *RuntimeContext) Controller() *Controller {
	return ctx.controller
}

// Model returns the model poses are sampled for.
func (ctx *RuntimeContext) Model() model.Model {
	return ctx.model
}

// SetModel changes the model poses are sampled for.
func (ctx *RuntimeContext) SetModel(m model.Model) {
	ctx.model = m
}

// TimeDelta returns the time step of the last update.
func (ctx *RuntimeContext) TimeDelta() common.Time {
	return ctx.timeDelta
}

// SetAnimation binds a clip to a slot. Out-of-range slots are ignored.
func (ctx *RuntimeContext) SetAnimation(slot uint32, anim Animation) {
	if int(slot) < len(ctx.animations) {
		ctx.animations[slot] = anim
	}
}

// Animation returns the clip bound to a slot, or nil.
func (ctx *RuntimeContext) Animation(slot uint32) Animation {
	if int(slot) >= len(ctx.animations) {
		return nil
	}
	return ctx.animations[slot]
}

// EventData returns the packed events emitted by the last update.
func (ctx *RuntimeContext) EventData() []byte {
	return ctx.events
}

// Events decodes the events emitted by the last update.
func (ctx *RuntimeContext) Events() []Event {
	return DecodeEvents(ctx.events)
}

// StateSize returns the size in bytes of the current state stream.
func (ctx *RuntimeContext) StateSize() int {
	return len(ctx.prev)
}

// inputValue reads an input as a float for blend and select nodes.
func (ctx *RuntimeContext) inputValue(i uint32) float32 {
	return ctx.Value(int(i))
}

// beginWrite starts a pass that rewrites the state stream from the previous one.
func (ctx *RuntimeContext) beginWrite() {
	ctx.in.reset(ctx.prev)
	ctx.out.buf = ctx.out.buf[:0]
}

// endWrite makes the freshly written stream the one the next pass reads.
func (ctx *RuntimeContext) endWrite() {
	assertf(ctx.in.pos == len(ctx.prev), "state stream consumed %d of %d bytes", ctx.in.pos, len(ctx.prev))
	ctx.prev, ctx.out.buf = ctx.out.buf, ctx.prev
}

// beginRead starts a read-only pass over the current state stream.
func (ctx *RuntimeContext) beginRead() {
	ctx.in.reset(ctx.prev)
}
