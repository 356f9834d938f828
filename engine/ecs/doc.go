// Package ecs connects the animator to a Donburi world.
//
// Animation events are published as AnimationEvent values on AnimationEventType, and root motion
// is written to the Transform component. Animator entities are the Donburi entity IDs converted
// with AnimatorEntity.
//
//	world := donburi.NewWorld()
//	anim := animator.NewAnimator(
//		animator.WithEventSink(ecs.NewDonburiSink(world)),
//		animator.WithTransformStore(ecs.NewDonburiTransformStore(world)),
//	)
//	ecs.AnimationEventType.Subscribe(world, onFootstep)
//
//	anim.Update(dt)
//	ecs.AnimationEventType.ProcessEvents(world)
package ecs
