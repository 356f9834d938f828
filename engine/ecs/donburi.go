package ecs

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// AnimationEvent is an animation event emitted by an entity's animator.
type AnimationEvent struct {
	Entity  donburi.Entity
	Type    uint32
	RelTime float32
	Payload []byte
}

// AnimationEventType is the Donburi event type for animation events.
// Subscribe to this in your ECS systems to receive footsteps, sounds and other clip markers.
var AnimationEventType = events.NewEventType[AnimationEvent]()

// Transform is the world transform root motion is applied to.
var Transform = donburi.NewComponentType[common.RigidTransform](common.IdentityTransform())

// AnimatorEntity converts a Donburi entity to the handle the animator uses for it.
func AnimatorEntity(e donburi.Entity) animator.Entity {
	return animator.Entity(e)
}

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink that publishes to AnimationEventType.
// Payloads are copied since they are only valid during Emit.
func NewDonburiSink(world donburi.World) animator.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) Emit(e animator.Entity, evs []controller.Event) {
	for _, ev := range evs {
		AnimationEventType.Publish(s.world, AnimationEvent{
			Entity:  donburi.Entity(e),
			Type:    ev.Type,
			RelTime: ev.RelativeTime(),
			Payload: append([]byte(nil), ev.Payload...),
		})
	}
}

type donburiTransformStore struct {
	world donburi.World
}

// NewDonburiTransformStore creates a TransformStore over the Transform component.
// Entities without the component are not moved by root motion.
func NewDonburiTransformStore(world donburi.World) animator.TransformStore {
	return &donburiTransformStore{world: world}
}

func (s *donburiTransformStore) entry(e animator.Entity) *donburi.Entry {
	id := donburi.Entity(e)
	if !s.world.Valid(id) {
		return nil
	}
	entry := s.world.Entry(id)
	if !entry.HasComponent(Transform) {
		return nil
	}
	return entry
}

func (s *donburiTransformStore) Transform(e animator.Entity) (common.RigidTransform, bool) {
	entry := s.entry(e)
	if entry == nil {
		return common.RigidTransform{}, false
	}
	return *Transform.Get(entry), true
}

func (s *donburiTransformStore) SetTransform(e animator.Entity, t common.RigidTransform) {
	if entry := s.entry(e); entry != nil {
		Transform.SetValue(entry, t)
	}
}
