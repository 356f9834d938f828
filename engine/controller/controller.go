package controller

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

const (
	// MaxIKChains is the number of IK chains a controller may declare.
	MaxIKChains = 4

	// MaxIKBones is the maximum length of an IK chain.
	MaxIKBones = 32
)

var (
	// ErrInvalidMagic is returned when data does not start with the controller magic.
	ErrInvalidMagic = errors.New("controller: invalid magic")

	// ErrUnsupportedVersion is returned for assets written by a newer compiler.
	ErrUnsupportedVersion = errors.New("controller: unsupported version")

	// ErrUnknownNodeType is returned when a serialized node has an unknown type tag.
	ErrUnknownNodeType = errors.New("controller: unknown node type")

	// ErrInvalidInput is returned when a node references an undeclared input.
	ErrInvalidInput = errors.New("controller: invalid input")

	// ErrInvalidSlot is returned when a node or entry references an undeclared slot.
	ErrInvalidSlot = errors.New("controller: invalid slot")

	// ErrInvalidNode is returned for structurally invalid nodes.
	ErrInvalidNode = errors.New("controller: invalid node")

	// ErrInvalidIK is returned for IK chains outside the supported limits.
	ErrInvalidIK = errors.New("controller: invalid ik chain")
)

// AnimationEntry binds the clip at Path to a slot when animation set Set is applied.
type AnimationEntry struct {
	Set  uint32
	Slot uint32
	Path string

	// Animation is the resolved clip, filled by ResolveEntries.
	Animation Animation
}

// IKChain is an ordered list of bones, root first, solved toward a target.
type IKChain struct {
	MaxIterations uint32
	Bones         []string
}

// Controller is a compiled blend tree together with its inputs, animation slots, bone masks and IK
// chains. A Controller is immutable once created and may be shared by any number of runtimes.
type Controller struct {
	root           Node
	inputs         InputDecl
	slots          []string
	entries        []AnimationEntry
	masks          []*model.BoneMask
	ik             []IKChain
	rootMotionBone string
}

// New creates a Controller around a root node and validates the tree against the declared
// inputs, slots and masks.
//
// Parameters:
//   - root: the root node of the blend tree
//   - options: a variadic list of ControllerBuilderOption functions to configure the Controller
//
// Returns:
//   - *Controller: the new controller
//   - error: an error if the tree references undeclared inputs, slots or masks, or a condition fails to compile
func New(root Node, options ...ControllerBuilderOption) (*Controller, error) {
	c := &Controller{root: root}
	for _, opt := range options {
		opt(c)
	}
	if err := c.prepare(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) prepare() error {
	if c.root == nil {
		return fmt.Errorf("%w: missing root", ErrInvalidNode)
	}
	for i, e := range c.entries {
		if int(e.Slot) >= len(c.slots) {
			return fmt.Errorf("%w: entry %d (%s) slot %d", ErrInvalidSlot, i, e.Path, e.Slot)
		}
	}
	if len(c.ik) > MaxIKChains {
		return fmt.Errorf("%w: %d chains, at most %d", ErrInvalidIK, len(c.ik), MaxIKChains)
	}
	for i, chain := range c.ik {
		if len(chain.Bones) < 2 || len(chain.Bones) > MaxIKBones {
			return fmt.Errorf("%w: chain %d has %d bones", ErrInvalidIK, i, len(chain.Bones))
		}
	}
	return c.root.prepare(c)
}

// Root returns the root node of the blend tree.
func (c *Controller) Root() Node {
	return c.root
}

// Inputs returns the input declaration.
func (c *Controller) Inputs() *InputDecl {
	return &c.inputs
}

// InputIndex returns the index of the named input, or -1.
func (c *Controller) InputIndex(name string) int {
	return c.inputs.Index(name)
}

// Slots returns the animation slot names.
func (c *Controller) Slots() []string {
	return c.slots
}

// SlotIndex returns the index of the named slot, or -1.
func (c *Controller) SlotIndex(name string) int {
	for i, s := range c.slots {
		if s == name {
			return i
		}
	}
	return -1
}

// Entries returns the animation set entries.
func (c *Controller) Entries() []AnimationEntry {
	return c.entries
}

// Masks returns the bone masks.
func (c *Controller) Masks() []*model.BoneMask {
	return c.masks
}

// MaskIndex returns the index of the named mask, or NoMask.
func (c *Controller) MaskIndex(name string) uint32 {
	for i, m := range c.masks {
		if m.Name == name {
			return uint32(i)
		}
	}
	return NoMask
}

func (c *Controller) mask(i uint32) *model.BoneMask {
	if i == NoMask || int(i) >= len(c.masks) {
		return nil
	}
	return c.masks[i]
}

// IKChains returns the IK chain definitions.
func (c *Controller) IKChains() []IKChain {
	return c.ik
}

// RootMotionBone returns the name of the bone root motion is extracted from.
func (c *Controller) RootMotionBone() string {
	return c.rootMotionBone
}

// ResolveEntries binds a clip to every animation entry.
//
// Parameters:
//   - resolve: loads the clip at a path
//
// Returns:
//   - error: the first resolve error, wrapped with the entry path
func (c *Controller) ResolveEntries(resolve func(path string) (Animation, error)) error {
	for i := range c.entries {
		anim, err := resolve(c.entries[i].Path)
		if err != nil {
			return fmt.Errorf("controller: resolve %q: %w", c.entries[i].Path, err)
		}
		c.entries[i].Animation = anim
	}
	return nil
}

// CreateRuntime creates the per-entity state of the controller: it applies the default animation
// set and enters the tree so the first Update has a state stream to read.
//
// Parameters:
//   - m: the model poses are sampled for
//   - defaultSet: the animation set bound to the slots
//
// Returns:
//   - *RuntimeContext: the new runtime
func (c *Controller) CreateRuntime(m model.Model, defaultSet uint32) *RuntimeContext {
	ctx := &RuntimeContext{
		Inputs:     newInputs(&c.inputs),
		controller: c,
		model:      m,
		animations: make([]Animation, len(c.slots)),
	}
	c.ApplySet(ctx, defaultSet)
	ctx.beginWrite()
	c.root.enter(ctx)
	ctx.endWrite()
	return ctx
}

// ApplySet binds the clips of an animation set to their slots. Slots the set does not mention keep
// their current clip.
func (c *Controller) ApplySet(ctx *RuntimeContext, set uint32) {
	for _, e := range c.entries {
		if e.Set == set {
			ctx.SetAnimation(e.Slot, e.Animation)
		}
	}
}

// Update advances the runtime by dt, rewriting its state stream and collecting events.
//
// Parameters:
//   - ctx: the runtime to advance
//   - dt: the time step
//
// Returns:
//   - common.RigidTransform: the root motion accumulated over the step
func (c *Controller) Update(ctx *RuntimeContext, dt common.Time) common.RigidTransform {
	ctx.timeDelta = dt
	ctx.events = ctx.events[:0]
	rm := common.IdentityTransform()
	ctx.beginWrite()
	c.root.update(ctx, &rm)
	ctx.endWrite()
	return rm
}

// GetPose blends the tree's current state into pose. The pose should hold the model's relative bind
// pose beforehand; bones no clip touches keep it.
func (c *Controller) GetPose(ctx *RuntimeContext, pose *model.Pose) {
	ctx.beginRead()
	c.root.pose(ctx, 1, pose, NoMask)
}
