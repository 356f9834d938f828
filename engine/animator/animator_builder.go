package animator

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/prometheus/client_golang/prometheus"
)

// AnimatorBuilderOption is a functional option for configuring an Animator via NewAnimator.
type AnimatorBuilderOption func(*animator)

// WithWorkers is an option builder that sets the maximum number of pool workers used by Update.
//
// Parameters:
//   - workers: the worker count, at least 1
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the workers option to an animator
func WithWorkers(workers int) AnimatorBuilderOption {
	return func(a *animator) {
		a.workers = max(workers, 1)
	}
}

// WithLogger is an option builder that sets the logger for input mismatches and source changes.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the logger option to an animator
func WithLogger(logger *slog.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		a.logger = logger
	}
}

// WithMetrics is an option builder that registers the animator's collectors on reg.
// It panics if they are already registered there.
//
// Parameters:
//   - reg: the Prometheus registerer
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the metrics option to an animator
func WithMetrics(reg prometheus.Registerer) AnimatorBuilderOption {
	return func(a *animator) {
		a.metrics = newMetrics(reg)
	}
}

// WithPoseStore is an option builder that sets where models are read from and poses written to.
// Without one, animators advance but produce no poses.
//
// Parameters:
//   - store: the pose store
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the pose store option to an animator
func WithPoseStore(store PoseStore) AnimatorBuilderOption {
	return func(a *animator) {
		a.poses = store
	}
}

// WithTransformStore is an option builder that sets the transforms root motion is applied to.
//
// Parameters:
//   - store: the transform store
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the transform store option to an animator
func WithTransformStore(store TransformStore) AnimatorBuilderOption {
	return func(a *animator) {
		a.transforms = store
	}
}

// WithEventSink is an option builder that sets the receiver of emitted animation events.
//
// Parameters:
//   - sink: the event sink
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the event sink option to an animator
func WithEventSink(sink EventSink) AnimatorBuilderOption {
	return func(a *animator) {
		a.sink = sink
	}
}

// WithLoader is an option builder that sets the Loader used by LoadSource and LoadAnimableClip.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the loader option to an animator
func WithLoader(l loader.Loader) AnimatorBuilderOption {
	return func(a *animator) {
		a.loader = l
	}
}
