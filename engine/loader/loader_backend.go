package loader

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
)

// Backend decodes one resource file format.
type Backend interface {
	// Decode builds a resource from file contents.
	//
	// Parameters:
	//   - p: the path the data was read from, for error messages
	//   - data: the file contents
	//
	// Returns:
	//   - any: the decoded resource
	//   - error: error if the data is malformed
	Decode(p string, data []byte) (any, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(p string, data []byte) (any, error)

func (f BackendFunc) Decode(p string, data []byte) (any, error) {
	return f(p, data)
}

// defaultBackends maps file extensions to the built-in decoders.
func defaultBackends() map[string]Backend {
	compiled := BackendFunc(func(_ string, data []byte) (any, error) {
		return controller.Unmarshal(data)
	})
	source := BackendFunc(func(_ string, data []byte) (any, error) {
		return controller.CompileSource(data)
	})
	anim := BackendFunc(func(_ string, data []byte) (any, error) {
		return clip.Unmarshal(data)
	})
	return map[string]Backend{
		".ctrl": compiled,
		".yaml": source,
		".yml":  source,
		".anim": anim,
	}
}
