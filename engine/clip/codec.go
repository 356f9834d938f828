package clip

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/internal/blob"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Magic identifies a compiled clip file ("ANIM" little-endian).
	Magic uint32 = 0x4d494e41

	// Version is the current clip file version.
	Version uint32 = 1
)

var (
	// ErrInvalidMagic is returned when the data does not start with the clip magic.
	ErrInvalidMagic = errors.New("clip: invalid magic")

	// ErrUnsupportedVersion is returned for files written by a newer encoder.
	ErrUnsupportedVersion = errors.New("clip: unsupported version")
)

// Marshal serializes the clip to the compiled .anim format.
//
// Returns:
//   - []byte: the serialized clip
func (a *Animation) Marshal() []byte {
	var w blob.Writer
	w.U32(Magic)
	w.U32(Version)
	w.String(a.name)
	w.F32(a.fps)
	w.U32(a.frames)
	writeSet(&w, &a.bones)
	w.Bool(a.root != nil)
	if a.root != nil {
		writeSet(&w, a.root)
	}
	return w.Bytes()
}

// Unmarshal decodes a compiled clip. The returned clip is ready.
//
// Parameters:
//   - data: the serialized clip
//
// Returns:
//   - *Animation: the decoded clip
//   - error: an error wrapping ErrInvalidMagic, ErrUnsupportedVersion or blob.ErrShortRead
func Unmarshal(data []byte) (*Animation, error) {
	r := blob.NewReader(data)
	if magic := r.U32(); r.Err() == nil && magic != Magic {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidMagic, magic)
	}
	if version := r.U32(); r.Err() == nil && version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	a := &Animation{}
	a.name = r.String()
	a.fps = r.F32()
	a.frames = r.U32()
	readSet(r, &a.bones)
	if r.Bool() {
		a.root = &trackSet{}
		readSet(r, a.root)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("clip: decode %q: %w", a.name, err)
	}
	a.ready.Store(true)
	return a, nil
}

func writeChannel(w *blob.Writer, c channel) {
	w.F32(c.Min)
	w.F32(c.Step)
	w.U8(c.Bits)
}

func readChannel(r *blob.Reader) channel {
	return channel{Min: r.F32(), Step: r.F32(), Bits: r.U8()}
}

func writeSet(w *blob.Writer, s *trackSet) {
	w.U32(uint32(len(s.Translations)))
	for _, t := range s.Translations {
		w.String(t.Bone)
		w.Bool(t.Constant)
		if t.Constant {
			w.F32(t.Value[0])
			w.F32(t.Value[1])
			w.F32(t.Value[2])
			continue
		}
		for _, c := range t.Channels {
			writeChannel(w, c)
		}
		w.U32(t.Offset)
	}
	w.U32(uint32(len(s.Rotations)))
	for _, t := range s.Rotations {
		w.String(t.Bone)
		w.Bool(t.Constant)
		if t.Constant {
			w.F32(t.Value.V[0])
			w.F32(t.Value.V[1])
			w.F32(t.Value.V[2])
			w.F32(t.Value.W)
			continue
		}
		w.U8(t.Skipped)
		for i, c := range t.Channels {
			if uint8(i) != t.Skipped {
				writeChannel(w, c)
			}
		}
		w.U32(t.Offset)
	}
	w.U32(s.TranslationRow)
	w.Blob(s.TranslationData)
	w.U32(s.RotationRow)
	w.Blob(s.RotationData)
}

func readSet(r *blob.Reader, s *trackSet) {
	s.Translations = make([]translationTrack, r.Count(5))
	for i := range s.Translations {
		t := &s.Translations[i]
		t.Bone = r.String()
		t.Constant = r.Bool()
		if t.Constant {
			t.Value = mgl32.Vec3{r.F32(), r.F32(), r.F32()}
			continue
		}
		for c := range t.Channels {
			t.Channels[c] = readChannel(r)
		}
		t.Offset = r.U32()
	}
	s.Rotations = make([]rotationTrack, r.Count(5))
	for i := range s.Rotations {
		t := &s.Rotations[i]
		t.Bone = r.String()
		t.Constant = r.Bool()
		if t.Constant {
			x, y, z, qw := r.F32(), r.F32(), r.F32(), r.F32()
			t.Value = mgl32.Quat{W: qw, V: mgl32.Vec3{x, y, z}}
			continue
		}
		t.Skipped = r.U8()
		if t.Skipped > 3 {
			r.Fail(fmt.Errorf("clip: rotation track %q skips channel %d", t.Bone, t.Skipped))
			return
		}
		for c := range t.Channels {
			if uint8(c) != t.Skipped {
				t.Channels[c] = readChannel(r)
			}
		}
		t.Offset = r.U32()
	}
	s.TranslationRow = r.U32()
	s.TranslationData = r.Blob()
	s.RotationRow = r.U32()
	s.RotationData = r.Blob()
}
