package loader

import (
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS is an option builder that sets the file system resources are read from.
//
// Parameters:
//   - fsys: the file system
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = fsys
	}
}

// WithLogger is an option builder that sets the logger load failures and evictions are reported to.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = logger
	}
}

// WithBackend is an option builder that registers a backend for a file extension,
// replacing any built-in backend for it.
//
// Parameters:
//   - ext: the extension including the dot, matched case-insensitively
//   - backend: the decoder
//
// Returns:
//   - LoaderBuilderOption: a function that applies the backend option to a loader
func WithBackend(ext string, backend Backend) LoaderBuilderOption {
	return func(l *loader) {
		l.backends[strings.ToLower(ext)] = backend
	}
}

// WithResource is an option builder that pre-populates the cache with a resource.
// The resource starts with one reference held by the loader itself, so it is never evicted.
//
// Parameters:
//   - p: the cache path
//   - resource: a *controller.Controller or *clip.Animation
//
// Returns:
//   - LoaderBuilderOption: a function that applies the resource option to a loader
func WithResource(p string, resource any) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[path.Clean(p)] = &entry{resource: resource, refs: 1}
	}
}
