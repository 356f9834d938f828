package animator

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxIKSlots is the number of IK targets an animator drives, one per controller IK chain.
const MaxIKSlots = controller.MaxIKChains

var (
	// ErrUnknownEntity is returned for entities that have no animator or animable.
	ErrUnknownEntity = errors.New("animator: unknown entity")

	// ErrEntityExists is returned when adding a second animator or animable to an entity.
	ErrEntityExists = errors.New("animator: entity already registered")

	// ErrNoLoader is returned by path-based operations when no Loader was configured.
	ErrNoLoader = errors.New("animator: no loader configured")
)

// instance is the per-entity state of a blend-tree animator.
type instance struct {
	entity        Entity
	source        *controller.Controller
	sourcePath    string
	runtime       *controller.RuntimeContext
	defaultSet    uint32
	useRootMotion bool
	rootMotion    common.RigidTransform
	ik            [MaxIKSlots]ikSlot

	// Filled by the parallel phase, consumed by the serial one.
	events  []controller.Event
	updated bool
}

// animable plays a single clip in a loop.
type animable struct {
	entity   Entity
	clip     controller.Animation
	clipPath string
	time     common.Time
	updated  bool
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu sync.Mutex

	workers    int
	pool       worker.DynamicWorkerPool
	logger     *slog.Logger
	metrics    *metrics
	poses      PoseStore
	transforms TransformStore
	sink       EventSink
	loader     loader.Loader

	animators *arena[*instance]
	animables *arena[*animable]
}

// Animator drives the blend-tree animators and single-clip animables of many entities.
//
// Each Update fans the per-entity work out to a worker pool: controller update, pose evaluation
// into the PoseStore, and IK. Root motion and events are then applied serially. Gameplay
// operations must not run concurrently with Update.
type Animator interface {
	// AddAnimator registers a blend-tree animator for an entity. It has no controller until
	// SetSource or LoadSource is called.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - error: ErrEntityExists if the entity already has an animator
	AddAnimator(e Entity) error

	// RemoveAnimator unregisters an entity's animator, releasing its loaded controller.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - bool: false if the entity had no animator
	RemoveAnimator(e Entity) bool

	// AnimatorCount returns the number of registered animators.
	//
	// Returns:
	//   - int: the animator count
	AnimatorCount() int

	// SetSource replaces an entity's controller. The runtime state is discarded and recreated,
	// entering the new tree with the default animation set. A nil controller leaves the animator idle.
	//
	// Parameters:
	//   - e: the entity
	//   - c: the controller, or nil
	//
	// Returns:
	//   - error: ErrUnknownEntity if the entity has no animator
	SetSource(e Entity, c *controller.Controller) error

	// LoadSource loads a controller through the configured Loader and makes it the entity's source.
	//
	// Parameters:
	//   - e: the entity
	//   - path: the controller path
	//
	// Returns:
	//   - error: ErrUnknownEntity, ErrNoLoader, or the load error
	LoadSource(e Entity, path string) error

	// Source returns an entity's controller, or nil.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - *controller.Controller: the controller
	Source(e Entity) *controller.Controller

	// SetDefaultSet selects the animation set applied when the runtime is next created.
	//
	// Parameters:
	//   - e: the entity
	//   - set: the animation set
	SetDefaultSet(e Entity, set uint32)

	// DefaultSet returns the entity's default animation set.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - uint32: the default set
	DefaultSet(e Entity) uint32

	// ApplySet binds the clips of an animation set to the entity's slots immediately.
	//
	// Parameters:
	//   - e: the entity
	//   - set: the animation set
	ApplySet(e Entity, set uint32)

	// SetUseRootMotion enables moving the entity's transform by the root motion of each update.
	//
	// Parameters:
	//   - e: the entity
	//   - use: true to apply root motion
	SetUseRootMotion(e Entity, use bool)

	// UseRootMotion reports whether root motion is applied to the entity's transform.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - bool: true if root motion is applied
	UseRootMotion(e Entity) bool

	// RootMotion returns the root motion of the entity's last update.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - common.RigidTransform: the root motion delta, identity if the animator is idle
	RootMotion(e Entity) common.RigidTransform

	// InputIndex looks up an input of the entity's controller by name.
	//
	// Parameters:
	//   - e: the entity
	//   - name: the input name
	//
	// Returns:
	//   - int: the input index, or -1
	InputIndex(e Entity, name string) int

	// SetFloatInput sets a float input. Type mismatches are logged and ignored.
	SetFloatInput(e Entity, input int, value float32)

	// SetBoolInput sets a bool input. Type mismatches are logged and ignored.
	SetBoolInput(e Entity, input int, value bool)

	// SetI32Input sets an i32 input. Type mismatches are logged and ignored.
	SetI32Input(e Entity, input int, value int32)

	// FloatInput returns a float input, or 0.
	FloatInput(e Entity, input int) float32

	// BoolInput returns a bool input, or false.
	BoolInput(e Entity, input int) bool

	// I32Input returns an i32 input, or 0.
	I32Input(e Entity, input int) int32

	// SetIKTarget sets the model-space target of an IK slot.
	//
	// Parameters:
	//   - e: the entity
	//   - slot: the IK slot, below MaxIKSlots
	//   - target: the target position in model space
	SetIKTarget(e Entity, slot int, target mgl32.Vec3)

	// SetIKWeight sets the blend weight of an IK slot, clamped to [0, 1]. IK evaluation stops at
	// the first slot with zero weight.
	//
	// Parameters:
	//   - e: the entity
	//   - slot: the IK slot, below MaxIKSlots
	//   - weight: the blend weight
	SetIKWeight(e Entity, slot int, weight float32)

	// IKWeight returns the blend weight of an IK slot.
	IKWeight(e Entity, slot int) float32

	// Events returns the events the entity's animator emitted during the last update.
	// The payloads are valid until the next Update.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - []controller.Event: the events
	Events(e Entity) []controller.Event

	// AddAnimable registers a single looping clip for an entity.
	//
	// Parameters:
	//   - e: the entity
	//   - clip: the clip, may be nil
	//
	// Returns:
	//   - error: ErrEntityExists if the entity already has an animable
	AddAnimable(e Entity, clip controller.Animation) error

	// RemoveAnimable unregisters an entity's animable, releasing its loaded clip.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - bool: false if the entity had no animable
	RemoveAnimable(e Entity) bool

	// AnimableCount returns the number of registered animables.
	AnimableCount() int

	// SetAnimableClip replaces an animable's clip and rewinds it.
	//
	// Parameters:
	//   - e: the entity
	//   - clip: the clip, may be nil
	//
	// Returns:
	//   - error: ErrUnknownEntity if the entity has no animable
	SetAnimableClip(e Entity, clip controller.Animation) error

	// LoadAnimableClip loads a clip through the configured Loader and makes it the animable's clip.
	//
	// Parameters:
	//   - e: the entity
	//   - path: the clip path
	//
	// Returns:
	//   - error: ErrUnknownEntity, ErrNoLoader, or the load error
	LoadAnimableClip(e Entity, path string) error

	// AnimableTime returns the playback position of an animable.
	AnimableTime(e Entity) common.Time

	// UpdateAnimable advances a single animable by deltaTime seconds outside of Update.
	// Negative deltas play backwards.
	//
	// Parameters:
	//   - e: the entity
	//   - deltaTime: the time step in seconds
	UpdateAnimable(e Entity, deltaTime float32)

	// Update advances every animable and animator by deltaTime seconds.
	// Animables play backwards for negative deltas; animators treat them as zero.
	//
	// Parameters:
	//   - deltaTime: the time step in seconds
	Update(deltaTime float32)

	// Release stops the worker pool and releases every loaded resource.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates an Animator with its worker pool sized by WithWorkers, defaulting to one
// worker per CPU beyond the calling goroutine's.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: a new Animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		workers:   max(runtime.NumCPU()-1, 1),
		logger:    logging.NewNop(),
		animators: newArena[*instance](),
		animables: newArena[*animable](),
	}
	for _, opt := range options {
		opt(a)
	}
	// Created after options so WithWorkers can size it. 256 queued tasks covers a tick's burst
	// before SubmitTask blocks.
	a.pool = worker.NewDynamicWorkerPool(a.workers, 256, 1*time.Second)
	return a
}

func (a *animator) AddAnimator(e Entity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.animators.add(e, &instance{entity: e, rootMotion: common.IdentityTransform()}) {
		return fmt.Errorf("%w: %d", ErrEntityExists, e)
	}
	return nil
}

func (a *animator) RemoveAnimator(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.animators.remove(e)
	if ok {
		a.releasePath(inst.sourcePath)
	}
	return ok
}

func (a *animator) AnimatorCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animators.len()
}

func (a *animator) SetSource(e Entity, c *controller.Controller) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.animators.get(e)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, e)
	}
	a.setSource(inst, c, "")
	return nil
}

func (a *animator) LoadSource(e Entity, path string) error {
	if a.loader == nil {
		return ErrNoLoader
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.animators.get(e)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, e)
	}
	c, err := a.loader.LoadController(path)
	if err != nil {
		return err
	}
	a.setSource(inst, c, path)
	return nil
}

// setSource swaps the controller and rebuilds the runtime. The old source's loader reference,
// if any, is returned after the swap so a reload of the same path keeps the resource cached.
func (a *animator) setSource(inst *instance, c *controller.Controller, path string) {
	oldPath := inst.sourcePath
	inst.source = c
	inst.sourcePath = path
	inst.runtime = nil
	inst.events = inst.events[:0]
	inst.rootMotion = common.IdentityTransform()
	if c != nil {
		inst.runtime = c.CreateRuntime(a.model(inst.entity), inst.defaultSet)
	}
	a.releasePath(oldPath)
	a.logger.Debug("animator source set", "entity", inst.entity, "path", path, "has_source", c != nil)
}

func (a *animator) releasePath(path string) {
	if path != "" && a.loader != nil {
		a.loader.Release(path)
	}
}

func (a *animator) Source(e Entity) *controller.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		return inst.source
	}
	return nil
}

func (a *animator) SetDefaultSet(e Entity, set uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		inst.defaultSet = set
	}
}

func (a *animator) DefaultSet(e Entity) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		return inst.defaultSet
	}
	return 0
}

func (a *animator) ApplySet(e Entity, set uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok && inst.runtime != nil {
		inst.source.ApplySet(inst.runtime, set)
	}
}

func (a *animator) SetUseRootMotion(e Entity, use bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		inst.useRootMotion = use
	}
}

func (a *animator) UseRootMotion(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		return inst.useRootMotion
	}
	return false
}

func (a *animator) RootMotion(e Entity) common.RigidTransform {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		return inst.rootMotion
	}
	return common.IdentityTransform()
}

func (a *animator) InputIndex(e Entity, name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok && inst.source != nil {
		return inst.source.InputIndex(name)
	}
	return -1
}

// runtimeFor returns the entity's runtime, or nil if it has no animator or no source.
// Callers hold a.mu.
func (a *animator) runtimeFor(e Entity) *controller.RuntimeContext {
	if inst, ok := a.animators.get(e); ok {
		return inst.runtime
	}
	return nil
}

func (a *animator) warnMismatch(e Entity, input int, want controller.InputType) {
	a.logger.Warn("animator input type mismatch", "entity", e, "input", input, "want", want.String())
}

func (a *animator) SetFloatInput(e Entity, input int, value float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt := a.runtimeFor(e); rt != nil && !rt.SetFloat(input, value) {
		a.warnMismatch(e, input, controller.InputFloat)
	}
}

func (a *animator) SetBoolInput(e Entity, input int, value bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt := a.runtimeFor(e); rt != nil && !rt.SetBool(input, value) {
		a.warnMismatch(e, input, controller.InputBool)
	}
}

func (a *animator) SetI32Input(e Entity, input int, value int32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt := a.runtimeFor(e); rt != nil && !rt.SetI32(input, value) {
		a.warnMismatch(e, input, controller.InputI32)
	}
}

func (a *animator) FloatInput(e Entity, input int) float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt := a.runtimeFor(e); rt != nil {
		return rt.Float(input)
	}
	return 0
}

func (a *animator) BoolInput(e Entity, input int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt := a.runtimeFor(e); rt != nil {
		return rt.Bool(input)
	}
	return false
}

func (a *animator) I32Input(e Entity, input int) int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt := a.runtimeFor(e); rt != nil {
		return rt.I32(input)
	}
	return 0
}

func (a *animator) SetIKTarget(e Entity, slot int, target mgl32.Vec3) {
	if slot < 0 || slot >= MaxIKSlots {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		inst.ik[slot].target = target
	}
}

func (a *animator) SetIKWeight(e Entity, slot int, weight float32) {
	if slot < 0 || slot >= MaxIKSlots {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		inst.ik[slot].weight = common.Clamp(weight, 0, 1)
	}
}

func (a *animator) IKWeight(e Entity, slot int) float32 {
	if slot < 0 || slot >= MaxIKSlots {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		return inst.ik[slot].weight
	}
	return 0
}

func (a *animator) Events(e Entity) []controller.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, ok := a.animators.get(e); ok {
		return inst.events
	}
	return nil
}

func (a *animator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pool.Stop()
	for _, inst := range a.animators.items {
		a.releasePath(inst.sourcePath)
		inst.sourcePath = ""
	}
	for _, an := range a.animables.items {
		a.releasePath(an.clipPath)
		an.clipPath = ""
	}
}
