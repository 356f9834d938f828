package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
)

var (
	// ErrUnsupportedFormat is returned for paths whose extension has no backend.
	ErrUnsupportedFormat = errors.New("loader: unsupported format")

	// ErrWrongKind is returned when a path decodes to a different resource kind than requested.
	ErrWrongKind = errors.New("loader: wrong resource kind")
)

// entry is a cached resource and the resources it holds references to.
type entry struct {
	resource any
	refs     int
	deps     []string
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.Mutex

	fsys     fs.FS
	logger   *slog.Logger
	backends map[string]Backend

	cache map[string]*entry
}

// Loader loads controllers and clips from a file system and shares them between users.
// Every successful Load* call takes a reference that must be returned with Release; a resource
// is evicted when its last reference is released. Controllers hold references to the clips
// their animation entries name, resolved relative to the controller's directory.
type Loader interface {
	// LoadController loads a compiled (.ctrl) or source (.yaml, .yml) controller and the clips
	// of its animation entries.
	//
	// Parameters:
	//   - p: the slash-separated path within the loader's file system
	//
	// Returns:
	//   - *controller.Controller: the shared controller
	//   - error: a read, decode or dependency error
	LoadController(p string) (*controller.Controller, error)

	// LoadClip loads a compiled (.anim) clip.
	//
	// Parameters:
	//   - p: the slash-separated path within the loader's file system
	//
	// Returns:
	//   - *clip.Animation: the shared clip
	//   - error: a read or decode error
	LoadClip(p string) (*clip.Animation, error)

	// Release returns one reference to a resource. Unknown paths are ignored.
	//
	// Parameters:
	//   - p: the path the resource was loaded from
	Release(p string)

	// RefCount returns the number of outstanding references to a resource.
	//
	// Parameters:
	//   - p: the resource path
	//
	// Returns:
	//   - int: the reference count, 0 if the resource is not cached
	RefCount(p string) int

	// Resources returns the sorted paths of every cached resource.
	//
	// Returns:
	//   - []string: the cached paths
	Resources() []string
}

var _ Loader = &loader{}

// NewLoader creates a Loader reading from the working directory with the default backends.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		fsys:     os.DirFS("."),
		logger:   logging.NewNop(),
		backends: defaultBackends(),
		cache:    make(map[string]*entry),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadController(p string) (*controller.Controller, error) {
	res, err := l.acquire(p)
	if err != nil {
		return nil, err
	}
	c, ok := res.(*controller.Controller)
	if !ok {
		l.Release(p)
		return nil, fmt.Errorf("%w: %s is %T, not a controller", ErrWrongKind, p, res)
	}
	return c, nil
}

func (l *loader) LoadClip(p string) (*clip.Animation, error) {
	res, err := l.acquire(p)
	if err != nil {
		return nil, err
	}
	a, ok := res.(*clip.Animation)
	if !ok {
		l.Release(p)
		return nil, fmt.Errorf("%w: %s is %T, not a clip", ErrWrongKind, p, res)
	}
	return a, nil
}

func (l *loader) Release(p string) {
	p = path.Clean(p)
	l.mu.Lock()
	e, ok := l.cache[p]
	if !ok {
		l.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		l.mu.Unlock()
		return
	}
	delete(l.cache, p)
	l.mu.Unlock()

	l.logger.Debug("released resource", "path", p)
	for _, dep := range e.deps {
		l.Release(dep)
	}
}

func (l *loader) RefCount(p string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.cache[path.Clean(p)]; ok {
		return e.refs
	}
	return 0
}

func (l *loader) Resources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	paths := make([]string, 0, len(l.cache))
	for p := range l.cache {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// acquire returns the cached resource at p, loading it on first use, and takes a reference.
func (l *loader) acquire(p string) (any, error) {
	p = path.Clean(p)
	l.mu.Lock()
	if e, ok := l.cache[p]; ok {
		e.refs++
		l.mu.Unlock()
		return e.resource, nil
	}
	l.mu.Unlock()

	res, deps, err := l.load(p)
	if err != nil {
		l.logger.Error("failed to load resource", "path", p, "error", err)
		return nil, err
	}

	l.mu.Lock()
	if e, ok := l.cache[p]; ok {
		// Another goroutine loaded it first; keep theirs.
		e.refs++
		l.mu.Unlock()
		for _, dep := range deps {
			l.Release(dep)
		}
		return e.resource, nil
	}
	l.cache[p] = &entry{resource: res, refs: 1, deps: deps}
	l.mu.Unlock()

	l.logger.Debug("loaded resource", "path", p, "kind", fmt.Sprintf("%T", res), "deps", len(deps))
	return res, nil
}

// load reads and decodes p, then acquires the resources it depends on.
func (l *loader) load(p string) (any, []string, error) {
	backend, err := l.resolveBackend(p)
	if err != nil {
		return nil, nil, err
	}
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: read %s: %w", p, err)
	}
	res, err := backend.Decode(p, data)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: decode %s: %w", p, err)
	}

	c, ok := res.(*controller.Controller)
	if !ok {
		return res, nil, nil
	}
	var deps []string
	err = c.ResolveEntries(func(entryPath string) (controller.Animation, error) {
		dep := path.Join(path.Dir(p), entryPath)
		a, err := l.LoadClip(dep)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
		return a, nil
	})
	if err != nil {
		for _, dep := range deps {
			l.Release(dep)
		}
		return nil, nil, fmt.Errorf("loader: controller %s: %w", p, err)
	}
	return c, deps, nil
}

// resolveBackend selects the backend registered for the path's extension.
func (l *loader) resolveBackend(p string) (Backend, error) {
	ext := strings.ToLower(path.Ext(p))
	if b, ok := l.backends[ext]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
