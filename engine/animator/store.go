package animator

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// Entity identifies an animated object. It is an opaque handle owned by the caller's world.
type Entity uint64

// PoseStore owns the model and pose buffer of each entity.
// LockPose and UnlockPose are called from worker goroutines, at most once concurrently per entity.
type PoseStore interface {
	// Model returns the entity's model, or nil if it has none.
	Model(e Entity) model.Model

	// LockPose acquires the entity's pose buffer for writing, or returns nil if it has none.
	LockPose(e Entity) *model.Pose

	// UnlockPose releases a pose acquired with LockPose. The pose is absolute on release.
	UnlockPose(e Entity)
}

// TransformStore reads and writes entity transforms for root motion.
type TransformStore interface {
	// Transform returns the entity transform and whether the entity has one.
	Transform(e Entity) (common.RigidTransform, bool)

	// SetTransform replaces the entity transform.
	SetTransform(e Entity, t common.RigidTransform)
}

// EventSink receives the events an entity's animator emitted during a tick.
// Emit is called serially after the parallel phase; the payloads are only valid during the call.
type EventSink interface {
	Emit(e Entity, events []controller.Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(e Entity, events []controller.Event)

func (f EventSinkFunc) Emit(e Entity, events []controller.Event) {
	f(e, events)
}

type poseSlot struct {
	mu    sync.Mutex
	model model.Model
	pose  *model.Pose
}

// MemoryPoseStore is an in-process PoseStore holding one pose buffer per entity.
type MemoryPoseStore struct {
	mu    sync.RWMutex
	slots map[Entity]*poseSlot
}

var _ PoseStore = &MemoryPoseStore{}

// NewMemoryPoseStore creates an empty MemoryPoseStore.
func NewMemoryPoseStore() *MemoryPoseStore {
	return &MemoryPoseStore{slots: make(map[Entity]*poseSlot)}
}

// SetModel assigns a model to the entity and allocates its pose buffer. A nil model removes the entity.
//
// Parameters:
//   - e: the entity
//   - m: the model, or nil
func (s *MemoryPoseStore) SetModel(e Entity, m model.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == nil {
		delete(s.slots, e)
		return
	}
	pose := model.NewPose(m.BoneCount())
	m.GetRelativePose(pose)
	s.slots[e] = &poseSlot{model: m, pose: pose}
}

func (s *MemoryPoseStore) slot(e Entity) *poseSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[e]
}

func (s *MemoryPoseStore) Model(e Entity) model.Model {
	if slot := s.slot(e); slot != nil {
		return slot.model
	}
	return nil
}

func (s *MemoryPoseStore) LockPose(e Entity) *model.Pose {
	slot := s.slot(e)
	if slot == nil {
		return nil
	}
	slot.mu.Lock()
	return slot.pose
}

func (s *MemoryPoseStore) UnlockPose(e Entity) {
	if slot := s.slot(e); slot != nil {
		slot.mu.Unlock()
	}
}

// Pose returns a copy of the entity's last released pose, or nil.
func (s *MemoryPoseStore) Pose(e Entity) *model.Pose {
	slot := s.slot(e)
	if slot == nil {
		return nil
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return &model.Pose{
		Positions:  append(slot.pose.Positions[:0:0], slot.pose.Positions...),
		Rotations:  append(slot.pose.Rotations[:0:0], slot.pose.Rotations...),
		IsAbsolute: slot.pose.IsAbsolute,
	}
}

// MemoryTransformStore is an in-process TransformStore.
type MemoryTransformStore struct {
	mu         sync.RWMutex
	transforms map[Entity]common.RigidTransform
}

var _ TransformStore = &MemoryTransformStore{}

// NewMemoryTransformStore creates an empty MemoryTransformStore.
func NewMemoryTransformStore() *MemoryTransformStore {
	return &MemoryTransformStore{transforms: make(map[Entity]common.RigidTransform)}
}

func (s *MemoryTransformStore) Transform(e Entity) (common.RigidTransform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transforms[e]
	return t, ok
}

func (s *MemoryTransformStore) SetTransform(e Entity, t common.RigidTransform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transforms[e] = t
}
