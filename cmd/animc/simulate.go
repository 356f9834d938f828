package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// simulateOptions are the flags of the simulate command.
type simulateOptions struct {
	entities   int
	ticks      int
	fps        float64
	workers    int
	set        uint32
	rootMotion bool
	ikWeight   float32
	interval   time.Duration
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <controller>",
	Short: "Run a controller headless on many entities",
	Long: `Loads a controller and its clips, then steps an animator over a number of entities at a fixed
rate as fast as possible. Float inputs sweep back and forth, bools toggle and i32 inputs cycle
so every branch of the tree gets exercised. The skeleton is synthesized from the bones the
controller and its clips reference.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var opts simulateOptions
		opts.entities, _ = flags.GetInt("entities")
		opts.ticks, _ = flags.GetInt("ticks")
		opts.fps, _ = flags.GetFloat64("fps")
		opts.workers, _ = flags.GetInt("workers")
		opts.set, _ = flags.GetUint32("set")
		opts.rootMotion, _ = flags.GetBool("root-motion")
		opts.ikWeight, _ = flags.GetFloat32("ik-weight")
		opts.interval, _ = flags.GetDuration("report-interval")
		return runSimulate(cmd, args[0], opts)
	},
}

func init() {
	simulateCmd.Flags().Int("entities", 64, "Number of animated entities")
	simulateCmd.Flags().Int("ticks", 600, "Number of updates to run")
	simulateCmd.Flags().Float64("fps", 60, "Simulated update rate")
	simulateCmd.Flags().Int("workers", 0, "Worker pool size (0 uses one per CPU)")
	simulateCmd.Flags().Uint32("set", 0, "Default animation set")
	simulateCmd.Flags().Bool("root-motion", true, "Apply root motion to entity transforms")
	simulateCmd.Flags().Float32("ik-weight", 0, "Weight of the first IK chain, tracking a circling target")
	simulateCmd.Flags().Duration("report-interval", time.Second, "Profiler report interval")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, file string, opts simulateOptions) error {
	if opts.entities <= 0 || opts.ticks < 0 || opts.fps <= 0 {
		return fmt.Errorf("invalid simulation: %d entities, %d ticks at %g fps", opts.entities, opts.ticks, opts.fps)
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	name := filepath.ToSlash(filepath.Base(file))
	l := loader.NewLoader(loader.WithFS(os.DirFS(filepath.Dir(file))), loader.WithLogger(logger))
	c, err := l.LoadController(name)
	if err != nil {
		return err
	}
	defer l.Release(name)

	m, err := simulationModel(c)
	if err != nil {
		return err
	}
	logger.Info("simulation model", "bones", m.BoneCount())

	reg := prometheus.NewRegistry()
	poses := animator.NewMemoryPoseStore()
	transforms := animator.NewMemoryTransformStore()
	events := 0
	options := []animator.AnimatorBuilderOption{
		animator.WithLogger(logger),
		animator.WithMetrics(reg),
		animator.WithLoader(l),
		animator.WithPoseStore(poses),
		animator.WithTransformStore(transforms),
		animator.WithEventSink(animator.EventSinkFunc(func(e animator.Entity, evs []controller.Event) {
			events += len(evs)
		})),
	}
	if opts.workers > 0 {
		options = append(options, animator.WithWorkers(opts.workers))
	}
	anim := animator.NewAnimator(options...)
	defer anim.Release()

	for i := range opts.entities {
		e := animator.Entity(i + 1)
		poses.SetModel(e, m)
		transforms.SetTransform(e, common.IdentityTransform())
		if err := anim.AddAnimator(e); err != nil {
			return err
		}
		anim.SetDefaultSet(e, opts.set)
		if err := anim.LoadSource(e, name); err != nil {
			return err
		}
		anim.SetUseRootMotion(e, opts.rootMotion)
		if len(c.IKChains()) > 0 {
			anim.SetIKWeight(e, 0, opts.ikWeight)
		}
	}

	prof := profiler.NewProfiler(profiler.WithLogger(logger), profiler.WithInterval(opts.interval))
	dt := 1 / opts.fps
	start := time.Now()
	for tick := range opts.ticks {
		now := float64(tick) * dt
		for i := range opts.entities {
			e := animator.Entity(i + 1)
			driveInputs(anim, e, c.Inputs(), now+float64(i)*0.37)
			if opts.ikWeight > 0 {
				angle := now + float64(i)
				anim.SetIKTarget(e, 0, mgl32.Vec3{float32(math.Cos(angle)), 1.5, float32(math.Sin(angle))})
			}
		}
		anim.Update(float32(dt))
		prof.Tick()
	}
	wall := time.Since(start)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "entities: %d\n", opts.entities)
	fmt.Fprintf(w, "ticks: %d (%.2fs simulated, %s wall)\n", opts.ticks, float64(opts.ticks)*dt, wall.Round(time.Microsecond))
	fmt.Fprintf(w, "events: %d\n", events)
	if tr, ok := transforms.Transform(1); ok {
		fmt.Fprintf(w, "entity 1 position: (%.3f, %.3f, %.3f)\n", tr.Pos.X(), tr.Pos.Y(), tr.Pos.Z())
	}
	return writeMetrics(w, reg)
}

// driveInputs sets every input from a phase: floats sweep a sine, bools toggle every two seconds
// and i32 inputs cycle through 0..3 once per second.
func driveInputs(anim animator.Animator, e animator.Entity, inputs *controller.InputDecl, phase float64) {
	for i := range inputs.Len() {
		p := phase + float64(i)
		switch inputs.Input(i).Type {
		case controller.InputFloat:
			anim.SetFloatInput(e, i, float32(1+math.Sin(p)))
		case controller.InputBool:
			anim.SetBoolInput(e, i, int(p/2)%2 == 1)
		case controller.InputI32:
			anim.SetI32Input(e, i, int32(p)%4)
		}
	}
}

// simulationModel builds a skeleton holding every bone the controller can touch. IK chain bones
// are parented in chain order one unit apart; everything else hangs off a root bone.
func simulationModel(c *controller.Controller) (model.Model, error) {
	bones := []model.Bone{{Name: "root", ParentIndex: -1, BindTransform: common.IdentityTransform()}}
	index := map[string]int32{"root": 0}
	add := func(name string, parent int32, offset mgl32.Vec3) int32 {
		if i, ok := index[name]; ok {
			return i
		}
		i := int32(len(bones))
		bones = append(bones, model.Bone{Name: name, ParentIndex: parent, BindTransform: common.RigidTransform{Pos: offset, Rot: mgl32.QuatIdent()}})
		index[name] = i
		return i
	}

	for _, chain := range c.IKChains() {
		parent := int32(0)
		for j, b := range chain.Bones {
			offset := mgl32.Vec3{0, 1, 0}
			if j == 0 {
				offset = mgl32.Vec3{}
			}
			parent = add(b, parent, offset)
		}
	}
	if b := c.RootMotionBone(); b != "" {
		add(b, 0, mgl32.Vec3{})
	}
	for _, mask := range c.Masks() {
		for _, b := range mask.Bones() {
			add(b, 0, mgl32.Vec3{})
		}
	}
	for _, e := range c.Entries() {
		if a, ok := e.Animation.(*clip.Animation); ok {
			for _, b := range a.Bones() {
				add(b, 0, mgl32.Vec3{})
			}
		}
	}

	skel, err := model.NewSkeleton(bones)
	if err != nil {
		return nil, err
	}
	return model.NewModel(model.WithName("simulation"), model.WithSkeleton(skel)), nil
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				fmt.Fprintf(w, "%s: %g\n", mf.GetName(), metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				mean := 0.0
				if h.GetSampleCount() > 0 {
					mean = h.GetSampleSum() / float64(h.GetSampleCount())
				}
				fmt.Fprintf(w, "%s: %d samples, mean %.6fs\n", mf.GetName(), h.GetSampleCount(), mean)
			}
		}
	}
	return nil
}
