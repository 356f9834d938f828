package controller

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
)

const (
	// Magic identifies a compiled controller asset ("OXAN" little-endian).
	Magic uint32 = 0x4e41584f

	// Version is the current compiled controller version.
	Version uint32 = 1
)

// Marshal serializes the controller to the compiled asset format. Resolved clips are not written;
// only entry paths are.
//
// Returns:
//   - []byte: the serialized controller
func (c *Controller) Marshal() []byte {
	var w blob.Writer
	w.U32(Magic)
	w.U32(Version)

	w.U32(uint32(c.inputs.Len()))
	for _, in := range c.inputs.inputs {
		w.String(in.Name)
		w.U8(uint8(in.Type))
	}

	w.U32(uint32(len(c.slots)))
	for _, s := range c.slots {
		w.String(s)
	}

	w.U32(uint32(len(c.entries)))
	for _, e := range c.entries {
		w.U32(e.Set)
		w.U32(e.Slot)
		w.String(e.Path)
	}

	w.U32(uint32(len(c.masks)))
	for _, m := range c.masks {
		w.String(m.Name)
		bones := m.Bones()
		w.U32(uint32(len(bones)))
		for _, b := range bones {
			w.String(b)
		}
	}

	w.U32(uint32(len(c.ik)))
	for _, chain := range c.ik {
		w.U32(chain.MaxIterations)
		w.U32(uint32(len(chain.Bones)))
		for _, b := range chain.Bones {
			w.String(b)
		}
	}

	w.String(c.rootMotionBone)
	writeNode(&w, c.root)
	return w.Bytes()
}

// Unmarshal decodes a compiled controller and validates it like New. Entries are unresolved;
// call ResolveEntries to bind clips.
//
// Parameters:
//   - data: the serialized controller
//
// Returns:
//   - *Controller: the decoded controller
//   - error: an error wrapping ErrInvalidMagic, ErrUnsupportedVersion, ErrUnknownNodeType,
//     blob.ErrShortRead or a validation error
func Unmarshal(data []byte) (*Controller, error) {
	r := blob.NewReader(data)
	if magic := r.U32(); r.Err() == nil && magic != Magic {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidMagic, magic)
	}
	if version := r.U32(); r.Err() == nil && version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	c := &Controller{}
	for range r.Count(5) {
		name := r.String()
		typ := InputType(r.U8())
		if typ > InputI32 {
			return nil, fmt.Errorf("%w: input %q type %d", ErrInvalidInput, name, typ)
		}
		c.inputs.Add(name, typ)
	}

	if n := r.Count(4); n > 0 {
		c.slots = make([]string, 0, n)
		for range n {
			c.slots = append(c.slots, r.String())
		}
	}

	if n := r.Count(12); n > 0 {
		c.entries = make([]AnimationEntry, 0, n)
		for range n {
			c.entries = append(c.entries, AnimationEntry{Set: r.U32(), Slot: r.U32(), Path: r.String()})
		}
	}

	for range r.Count(8) {
		name := r.String()
		bones := readStrings(r)
		c.masks = append(c.masks, model.NewBoneMask(name, bones...))
	}

	for range r.Count(8) {
		iterations := r.U32()
		c.ik = append(c.ik, IKChain{MaxIterations: iterations, Bones: readStrings(r)})
	}

	c.rootMotionBone = r.String()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("controller: decode header: %w", err)
	}

	root, err := readNode(r)
	if err != nil {
		return nil, fmt.Errorf("controller: decode tree: %w", err)
	}
	c.root = root
	if err := c.prepare(); err != nil {
		return nil, err
	}
	return c, nil
}

func readStrings(r *blob.Reader) []string {
	n := r.Count(4)
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for range n {
		out = append(out, r.String())
	}
	return out
}
