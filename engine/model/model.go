package model

import "sync/atomic"

// model is the implementation of the Model interface.
type model struct {
	name     string
	skeleton *Skeleton
	ready    atomic.Bool
}

// Model defines the interface for a skinned model consumed by the animation runtime.
// A Model exposes its bone hierarchy, a bind pose, and a readiness flag: animators skip
// models that are not ready yet and pick them up on the first tick after they become ready.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Skeleton retrieves the bone hierarchy for this model.
	//
	// Returns:
	//   - *Skeleton: the skeleton, never nil
	Skeleton() *Skeleton

	// BoneCount returns the number of bones in the skeleton.
	//
	// Returns:
	//   - int: the bone count
	BoneCount() int

	// BoneIndex looks up a bone by name.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - int: the bone index, or -1 if not found
	//   - bool: true if the bone exists
	BoneIndex(name string) (int, bool)

	// Ready reports whether the model's data is loaded and usable.
	//
	// Returns:
	//   - bool: true if ready
	Ready() bool

	// SetReady updates the readiness flag.
	//
	// Parameters:
	//   - ready: the new readiness state
	SetReady(ready bool)

	// GetRelativePose fills pose with the bind transforms of every bone, in parent space.
	//
	// Parameters:
	//   - pose: the pose buffer to fill, sized by BoneCount
	GetRelativePose(pose *Pose)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// Models start ready unless WithReady(false) is passed.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{skeleton: &Skeleton{BoneNameToIndex: map[string]int32{}}}
	m.ready.Store(true)
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Skeleton() *Skeleton {
	return m.skeleton
}

func (m *model) BoneCount() int {
	return len(m.skeleton.Bones)
}

func (m *model) BoneIndex(name string) (int, bool) {
	idx, ok := m.skeleton.BoneNameToIndex[name]
	if !ok {
		return -1, false
	}
	return int(idx), true
}

func (m *model) Ready() bool {
	return m.ready.Load()
}

func (m *model) SetReady(ready bool) {
	m.ready.Store(ready)
}

func (m *model) GetRelativePose(pose *Pose) {
	for i, b := range m.skeleton.Bones {
		if i >= pose.Count() {
			break
		}
		pose.Positions[i] = b.BindTransform.Pos
		pose.Rotations[i] = b.BindTransform.Rot
	}
	pose.IsAbsolute = false
}
