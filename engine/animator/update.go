package animator

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

func (a *animator) model(e Entity) model.Model {
	if a.poses == nil {
		return nil
	}
	return a.poses.Model(e)
}

func (a *animator) Update(deltaTime float32) {
	start := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()

	dt := common.TimeFromSeconds(deltaTime)

	// Phase 1: per-entity work on the pool. Each task owns one runtime and one pose.
	// A WaitGroup is the per-tick barrier; pool.Wait only returns once workers go idle.
	var wg sync.WaitGroup
	taskID := 0
	for _, an := range a.animables.items {
		wg.Add(1)
		anCap := an
		a.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				a.updateAnimable(anCap, deltaTime)
				return nil, nil
			},
		})
		taskID++
	}
	for _, inst := range a.animators.items {
		wg.Add(1)
		instCap := inst
		a.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				a.updateInstance(instCap, dt)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()

	// Phase 2: serial side effects.
	updated := 0
	for _, an := range a.animables.items {
		if an.updated {
			updated++
		}
	}
	dispatched := 0
	for _, inst := range a.animators.items {
		if !inst.updated {
			continue
		}
		updated++
		if inst.useRootMotion {
			a.applyRootMotion(inst)
		}
		if len(inst.events) > 0 {
			dispatched += len(inst.events)
			if a.sink != nil {
				a.sink.Emit(inst.entity, inst.events)
			}
		}
	}
	a.metrics.addEvents(dispatched)
	a.metrics.observeTick(start, updated)
}

// updateInstance advances one animator and writes its pose. It runs on a worker.
func (a *animator) updateInstance(inst *instance, dt common.Time) {
	inst.updated = false
	inst.events = inst.events[:0]
	inst.rootMotion = common.IdentityTransform()
	if inst.runtime == nil {
		return
	}
	m := a.model(inst.entity)
	if m == nil || !m.Ready() {
		return
	}
	pose := a.poses.LockPose(inst.entity)
	if pose == nil {
		return
	}
	defer a.poses.UnlockPose(inst.entity)

	inst.runtime.SetModel(m)
	inst.rootMotion = inst.source.Update(inst.runtime, dt)
	inst.events = append(inst.events, inst.runtime.Events()...)
	inst.updated = true

	pose.IsAbsolute = false
	m.GetRelativePose(pose)
	inst.source.GetPose(inst.runtime, pose)

	chains := inst.source.IKChains()
	for i, slot := range inst.ik {
		if slot.weight == 0 || i >= len(chains) {
			break
		}
		solveIK(chains[i], slot, pose, m)
	}
	pose.ComputeAbsolute(m.Skeleton())
}

// applyRootMotion moves the entity by its last root motion, expressed in the entity's frame.
func (a *animator) applyRootMotion(inst *instance) {
	if a.transforms == nil {
		return
	}
	tr, ok := a.transforms.Transform(inst.entity)
	if !ok {
		return
	}
	tr.Pos = tr.Pos.Add(tr.Rot.Rotate(inst.rootMotion.Pos))
	tr.Rot = common.NormalizeQuat(inst.rootMotion.Rot.Mul(tr.Rot))
	a.transforms.SetTransform(inst.entity, tr)
}

// advanceLooped moves t by deltaTime seconds within a loop of the given length. Negative deltas
// move backwards.
func advanceLooped(t, length common.Time, deltaTime float32) common.Time {
	if length == 0 {
		return 0
	}
	if deltaTime >= 0 {
		return (t + common.TimeFromSeconds(deltaTime)).Mod(length)
	}
	back := common.TimeFromSeconds(-deltaTime).Mod(length)
	return (t + length - back).Mod(length)
}

// updateAnimable samples an animable's clip at its current time, then advances it.
func (a *animator) updateAnimable(an *animable, deltaTime float32) {
	an.updated = false
	if an.clip == nil || !an.clip.Ready() {
		return
	}
	if m := a.model(an.entity); m != nil && m.Ready() {
		if pose := a.poses.LockPose(an.entity); pose != nil {
			pose.IsAbsolute = false
			m.GetRelativePose(pose)
			an.clip.SampleRelativePose(pose, m, an.time, 1, nil)
			pose.ComputeAbsolute(m.Skeleton())
			a.poses.UnlockPose(an.entity)
		}
	}
	an.time = advanceLooped(an.time, an.clip.Length(), deltaTime)
	an.updated = true
}

func (a *animator) AddAnimable(e Entity, clip controller.Animation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.animables.add(e, &animable{entity: e, clip: clip}) {
		return fmt.Errorf("%w: %d", ErrEntityExists, e)
	}
	return nil
}

func (a *animator) RemoveAnimable(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	an, ok := a.animables.remove(e)
	if ok {
		a.releasePath(an.clipPath)
	}
	return ok
}

func (a *animator) AnimableCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animables.len()
}

func (a *animator) SetAnimableClip(e Entity, clip controller.Animation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	an, ok := a.animables.get(e)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, e)
	}
	a.setAnimableClip(an, clip, "")
	return nil
}

func (a *animator) LoadAnimableClip(e Entity, path string) error {
	if a.loader == nil {
		return ErrNoLoader
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	an, ok := a.animables.get(e)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, e)
	}
	clip, err := a.loader.LoadClip(path)
	if err != nil {
		return err
	}
	a.setAnimableClip(an, clip, path)
	return nil
}

func (a *animator) setAnimableClip(an *animable, clip controller.Animation, path string) {
	oldPath := an.clipPath
	an.clip = clip
	an.clipPath = path
	an.time = 0
	a.releasePath(oldPath)
}

func (a *animator) AnimableTime(e Entity) common.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	if an, ok := a.animables.get(e); ok {
		return an.time
	}
	return 0
}

func (a *animator) UpdateAnimable(e Entity, deltaTime float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if an, ok := a.animables.get(e); ok {
		a.updateAnimable(an, deltaTime)
	}
}
