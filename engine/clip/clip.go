// Package clip implements compressed skeletal animation clips: per-bone translation and rotation
// curves quantized to a per-channel bit width and packed frame by frame into bit streams.
package clip

import (
	"math"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// fullWeight is the weight at or above which a sample overwrites the pose instead of blending.
const fullWeight = 0.9999

// Animation is a loaded animation clip. It is immutable once decoded and safe for concurrent sampling.
type Animation struct {
	name   string
	fps    float32
	frames uint32
	bones  trackSet
	root   *trackSet
	ready  atomic.Bool
}

// Name returns the clip name.
func (a *Animation) Name() string {
	return a.name
}

// FPS returns the sampling rate of the clip.
func (a *Animation) FPS() float32 {
	return a.fps
}

// FrameCount returns the number of stored frames.
func (a *Animation) FrameCount() uint32 {
	return a.frames
}

// HasRootMotion reports whether the clip carries a root motion track.
func (a *Animation) HasRootMotion() bool {
	return a.root != nil
}

// TrackCount returns the number of translation and rotation tracks.
func (a *Animation) TrackCount() (translations, rotations int) {
	return len(a.bones.Translations), len(a.bones.Rotations)
}

// Bones returns the names of the animated bones, translation tracks first, without duplicates.
func (a *Animation) Bones() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, t := range a.bones.Translations {
		add(t.Bone)
	}
	for _, t := range a.bones.Rotations {
		add(t.Bone)
	}
	return names
}

// Ready reports whether the clip can be sampled.
func (a *Animation) Ready() bool {
	return a != nil && a.ready.Load()
}

// SetReady updates the readiness flag. Loaders clear it while a clip is being replaced.
func (a *Animation) SetReady(ready bool) {
	a.ready.Store(ready)
}

// Length returns the duration of the clip. Frame 0 plays at time zero and the last frame at Length.
//
// Returns:
//   - common.Time: the clip length
func (a *Animation) Length() common.Time {
	if a.frames < 2 || a.fps <= 0 {
		return 0
	}
	return common.TimeFromSeconds(float32(a.frames-1) / a.fps)
}

// frameAt maps a time to the bracketing frame pair and the blend factor between them.
func (a *Animation) frameAt(t common.Time) (uint32, uint32, float32) {
	if a.frames == 0 {
		return 0, 0, 0
	}
	last := a.frames - 1
	pos := float64(t.Seconds()) * float64(a.fps)
	f := math.Floor(pos)
	if f >= float64(last) {
		return last, last, 0
	}
	f0 := uint32(f)
	return f0, f0 + 1, float32(pos - f)
}

// SampleRelativePose writes the clip's bone transforms at time t into pose.
// With weight at or above 0.9999 the sample overwrites the pose; otherwise the pose is blended toward
// it by weight. Tracks whose bone is missing from the model or excluded by mask are skipped.
//
// Parameters:
//   - pose: the relative pose to write into
//   - m: the model that maps track bone names to pose indices
//   - t: the sample time, clamped to the clip length
//   - weight: the blend weight of this sample
//   - mask: the bones that may be written, or nil for all bones
func (a *Animation) SampleRelativePose(pose *model.Pose, m model.Model, t common.Time, weight float32, mask *model.BoneMask) {
	if !a.Ready() {
		return
	}
	f0, f1, alpha := a.frameAt(t.Min(a.Length()))
	set := &a.bones
	for i := range set.Translations {
		bone := set.Translations[i].Bone
		idx, ok := m.BoneIndex(bone)
		if !ok || idx >= pose.Count() || !mask.Contains(bone) {
			continue
		}
		p := set.sampleTranslation(i, f0, f1, alpha)
		if weight >= fullWeight {
			pose.Positions[idx] = p
		} else {
			pose.Positions[idx] = common.LerpVec3(pose.Positions[idx], p, weight)
		}
	}
	for i := range set.Rotations {
		bone := set.Rotations[i].Bone
		idx, ok := m.BoneIndex(bone)
		if !ok || idx >= pose.Count() || !mask.Contains(bone) {
			continue
		}
		r := set.sampleRotation(i, f0, f1, alpha)
		if weight >= fullWeight {
			pose.Rotations[idx] = r
		} else {
			pose.Rotations[idx] = common.Nlerp(pose.Rotations[idx], r, weight)
		}
	}
}

// SampleRootMotion returns the accumulated root transform at time t, relative to the start of the clip.
// Clips without a root motion track return the identity transform.
//
// Parameters:
//   - t: the sample time, clamped to the clip length
//
// Returns:
//   - common.RigidTransform: the root transform at t
func (a *Animation) SampleRootMotion(t common.Time) common.RigidTransform {
	if !a.Ready() || a.root == nil {
		return common.IdentityTransform()
	}
	f0, f1, alpha := a.frameAt(t.Min(a.Length()))
	tr := common.IdentityTransform()
	if len(a.root.Translations) > 0 {
		tr.Pos = a.root.sampleTranslation(0, f0, f1, alpha)
	}
	if len(a.root.Rotations) > 0 {
		tr.Rot = a.root.sampleRotation(0, f0, f1, alpha)
	}
	return tr
}
