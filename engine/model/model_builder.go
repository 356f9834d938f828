package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSkeleton is an option builder that sets the bone hierarchy of the Model.
// A nil skeleton is ignored.
//
// Parameters:
//   - skeleton: the skeleton to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the skeleton option to a model
func WithSkeleton(skeleton *Skeleton) ModelBuilderOption {
	return func(m *model) {
		if skeleton != nil {
			m.skeleton = skeleton
		}
	}
}

// WithReady is an option builder that sets the initial readiness of the Model.
//
// Parameters:
//   - ready: the initial readiness state
//
// Returns:
//   - ModelBuilderOption: a function that applies the readiness option to a model
func WithReady(ready bool) ModelBuilderOption {
	return func(m *model) {
		m.ready.Store(ready)
	}
}
