package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrBoneOrder is returned when a bone references a parent that does not precede it.
var ErrBoneOrder = errors.New("model: bone parent must precede child")

// --- Skeleton Types ---

// Bone represents a single bone in a skeleton hierarchy.
type Bone struct {
	// Name is the bone's identifier used by animation tracks, masks and IK chains.
	Name string

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// BindTransform is the bone's rest transform relative to its parent.
	BindTransform common.RigidTransform
}

// Skeleton represents a bone hierarchy for skeletal animation.
// Bones are stored parent-first, so a single forward pass visits every parent before its children.
type Skeleton struct {
	// Bones is the array of all bones in the skeleton.
	Bones []Bone

	// RootBoneIndices are indices of bones with no parent.
	RootBoneIndices []int32

	// BoneNameToIndex maps bone names to their indices for quick lookup.
	BoneNameToIndex map[string]int32
}

// NewSkeleton builds a Skeleton from parent-first ordered bones, filling the root list and name lookup.
//
// Parameters:
//   - bones: the bones, each parent preceding its children
//
// Returns:
//   - *Skeleton: the skeleton
//   - error: ErrBoneOrder if a parent index does not precede its child
func NewSkeleton(bones []Bone) (*Skeleton, error) {
	s := &Skeleton{
		Bones:           bones,
		BoneNameToIndex: make(map[string]int32, len(bones)),
	}
	for i, b := range bones {
		if b.ParentIndex >= int32(i) {
			return nil, fmt.Errorf("%w: bone %q (index %d) has parent %d", ErrBoneOrder, b.Name, i, b.ParentIndex)
		}
		if b.ParentIndex < 0 {
			s.RootBoneIndices = append(s.RootBoneIndices, int32(i))
		}
		s.BoneNameToIndex[b.Name] = int32(i)
	}
	return s, nil
}

// --- Pose Types ---

// Pose is a per-bone buffer of positions and rotations.
// A relative pose holds each bone's transform in its parent's space; an absolute pose holds
// model-space transforms.
type Pose struct {
	// Positions holds one translation per bone.
	Positions []mgl32.Vec3

	// Rotations holds one rotation per bone.
	Rotations []mgl32.Quat

	// IsAbsolute reports whether the pose is in model space.
	IsAbsolute bool
}

// NewPose allocates a relative pose for boneCount bones initialized to identity transforms.
//
// Parameters:
//   - boneCount: the number of bones
//
// Returns:
//   - *Pose: the new pose
func NewPose(boneCount int) *Pose {
	p := &Pose{
		Positions: make([]mgl32.Vec3, boneCount),
		Rotations: make([]mgl32.Quat, boneCount),
	}
	for i := range p.Rotations {
		p.Rotations[i] = mgl32.QuatIdent()
	}
	return p
}

// Count returns the number of bones the pose holds.
func (p *Pose) Count() int {
	return len(p.Positions)
}

// Transform returns the bone's transform as a RigidTransform.
func (p *Pose) Transform(bone int) common.RigidTransform {
	return common.RigidTransform{Pos: p.Positions[bone], Rot: p.Rotations[bone]}
}

// ComputeAbsolute converts a relative pose to model space in place. No-op if already absolute.
//
// Parameters:
//   - skeleton: the bone hierarchy the pose belongs to
func (p *Pose) ComputeAbsolute(skeleton *Skeleton) {
	if p.IsAbsolute {
		return
	}
	for i := range p.Positions {
		parent := skeleton.Bones[i].ParentIndex
		if parent < 0 {
			continue
		}
		p.Positions[i] = p.Rotations[parent].Rotate(p.Positions[i]).Add(p.Positions[parent])
		p.Rotations[i] = p.Rotations[parent].Mul(p.Rotations[i])
	}
	p.IsAbsolute = true
}

// ComputeRelative converts a model-space pose back to parent-relative transforms in place.
// No-op if already relative.
//
// Parameters:
//   - skeleton: the bone hierarchy the pose belongs to
func (p *Pose) ComputeRelative(skeleton *Skeleton) {
	if !p.IsAbsolute {
		return
	}
	for i := len(p.Positions) - 1; i >= 0; i-- {
		parent := skeleton.Bones[i].ParentIndex
		if parent < 0 {
			continue
		}
		inv := p.Rotations[parent].Conjugate()
		p.Positions[i] = inv.Rotate(p.Positions[i].Sub(p.Positions[parent]))
		p.Rotations[i] = inv.Mul(p.Rotations[i])
	}
	p.IsAbsolute = false
}
