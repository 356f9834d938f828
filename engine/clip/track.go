package clip

import (
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// maxChannelBits caps the width of a single quantized channel so a rotation row (three channels
// plus a sign bit) stays within 64 bits.
const maxChannelBits = 20

// channel is the quantization of one scalar component: value = Min + q*Step with q in [0, 2^Bits).
type channel struct {
	Min  float32
	Step float32
	Bits uint8
}

func newChannel(lo, hi, maxError float32) channel {
	rng := hi - lo
	if rng <= 0 || maxError <= 0 {
		return channel{Min: lo}
	}
	bits := int(math.Ceil(math.Log2(float64(rng)/(2*float64(maxError)) + 1)))
	bits = max(0, min(bits, maxChannelBits))
	if bits == 0 {
		return channel{Min: lo}
	}
	return channel{Min: lo, Step: rng / float32(uint32(1)<<bits-1), Bits: uint8(bits)}
}

func (c channel) pack(v float32) uint64 {
	if c.Bits == 0 || c.Step == 0 {
		return 0
	}
	q := math.Round(float64((v - c.Min) / c.Step))
	top := float64(uint64(1)<<c.Bits - 1)
	return uint64(max(0, min(q, top)))
}

func (c channel) unpack(q uint64) float32 {
	return c.Min + float32(q)*c.Step
}

// translationTrack is the quantized position curve of one bone.
type translationTrack struct {
	Bone     string
	Constant bool
	Value    mgl32.Vec3
	Channels [3]channel
	Offset   uint32
}

func (t *translationTrack) rowBits() uint32 {
	if t.Constant {
		return 0
	}
	return uint32(t.Channels[0].Bits) + uint32(t.Channels[1].Bits) + uint32(t.Channels[2].Bits)
}

func (t *translationTrack) write(w *BitWriter, p mgl32.Vec3) {
	for i, c := range t.Channels {
		w.Write(c.pack(p[i]), uint(c.Bits))
	}
}

func (t *translationTrack) read(r *BitReader) mgl32.Vec3 {
	var p mgl32.Vec3
	for i, c := range t.Channels {
		p[i] = c.unpack(r.Read(uint(c.Bits)))
	}
	return p
}

// rotationTrack is the quantized rotation curve of one bone. The Skipped component is not
// stored; it is rebuilt from the unit-length constraint and a per-frame sign bit.
type rotationTrack struct {
	Bone     string
	Constant bool
	Value    mgl32.Quat
	Skipped  uint8
	Channels [4]channel
	Offset   uint32
}

func (t *rotationTrack) rowBits() uint32 {
	if t.Constant {
		return 0
	}
	bits := uint32(1)
	for i, c := range t.Channels {
		if uint8(i) != t.Skipped {
			bits += uint32(c.Bits)
		}
	}
	return bits
}

func (t *rotationTrack) write(w *BitWriter, q mgl32.Quat) {
	var sign uint64
	if quatChannel(q, int(t.Skipped)) < 0 {
		sign = 1
	}
	w.Write(sign, 1)
	for i, c := range t.Channels {
		if uint8(i) == t.Skipped {
			continue
		}
		w.Write(c.pack(quatChannel(q, i)), uint(c.Bits))
	}
}

func (t *rotationTrack) read(r *BitReader) mgl32.Quat {
	negative := r.Read(1) == 1
	var comps [4]float32
	var sum float32
	for i, c := range t.Channels {
		if uint8(i) == t.Skipped {
			continue
		}
		comps[i] = c.unpack(r.Read(uint(c.Bits)))
		sum += comps[i] * comps[i]
	}
	rest := float32(math.Sqrt(float64(max(0, 1-sum))))
	if negative {
		rest = -rest
	}
	comps[t.Skipped] = rest
	return common.NormalizeQuat(mgl32.Quat{W: comps[3], V: mgl32.Vec3{comps[0], comps[1], comps[2]}})
}

// quatChannel returns component i of q in x, y, z, w order.
func quatChannel(q mgl32.Quat, i int) float32 {
	if i == 3 {
		return q.W
	}
	return q.V[i]
}

// trackSet holds a group of tracks sharing two packed frame streams, one row per frame.
type trackSet struct {
	Translations    []translationTrack
	Rotations       []rotationTrack
	TranslationRow  uint32
	TranslationData []byte
	RotationRow     uint32
	RotationData    []byte
}

func (s *trackSet) translation(i int, frame uint32) mgl32.Vec3 {
	t := &s.Translations[i]
	if t.Constant {
		return t.Value
	}
	r := NewBitReader(s.TranslationData)
	r.Seek(uint64(frame)*uint64(s.TranslationRow) + uint64(t.Offset))
	return t.read(r)
}

func (s *trackSet) rotation(i int, frame uint32) mgl32.Quat {
	t := &s.Rotations[i]
	if t.Constant {
		return t.Value
	}
	r := NewBitReader(s.RotationData)
	r.Seek(uint64(frame)*uint64(s.RotationRow) + uint64(t.Offset))
	return t.read(r)
}

func (s *trackSet) sampleTranslation(i int, f0, f1 uint32, alpha float32) mgl32.Vec3 {
	a := s.translation(i, f0)
	if f0 == f1 || s.Translations[i].Constant {
		return a
	}
	return common.LerpVec3(a, s.translation(i, f1), alpha)
}

func (s *trackSet) sampleRotation(i int, f0, f1 uint32, alpha float32) mgl32.Quat {
	a := s.rotation(i, f0)
	if f0 == f1 || s.Rotations[i].Constant {
		return a
	}
	return common.Nlerp(a, s.rotation(i, f1), alpha)
}
