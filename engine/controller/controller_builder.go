package controller

import "github.com/Carmen-Shannon/oxy-anim/engine/model"

// ControllerBuilderOption is a functional option for configuring a Controller via New.
type ControllerBuilderOption func(*Controller)

// WithInputs is an option builder that declares the controller inputs.
//
// Parameters:
//   - inputs: the inputs, in declaration order; offsets are recomputed
//
// Returns:
//   - ControllerBuilderOption: a function that applies the inputs option to a controller
func WithInputs(inputs ...Input) ControllerBuilderOption {
	return func(c *Controller) {
		c.inputs = InputDecl{}
		for _, in := range inputs {
			c.inputs.Add(in.Name, in.Type)
		}
	}
}

// WithSlots is an option builder that declares the animation slot names.
func WithSlots(slots ...string) ControllerBuilderOption {
	return func(c *Controller) {
		c.slots = slots
	}
}

// WithEntries is an option builder that sets the animation set entries.
func WithEntries(entries ...AnimationEntry) ControllerBuilderOption {
	return func(c *Controller) {
		c.entries = entries
	}
}

// WithMasks is an option builder that sets the bone masks layers refer to by index.
func WithMasks(masks ...*model.BoneMask) ControllerBuilderOption {
	return func(c *Controller) {
		c.masks = masks
	}
}

// WithIK is an option builder that sets the IK chains, at most MaxIKChains.
func WithIK(chains ...IKChain) ControllerBuilderOption {
	return func(c *Controller) {
		c.ik = chains
	}
}

// WithRootMotionBone is an option builder that names the bone root motion is extracted from.
func WithRootMotionBone(bone string) ControllerBuilderOption {
	return func(c *Controller) {
		c.rootMotionBone = bone
	}
}
