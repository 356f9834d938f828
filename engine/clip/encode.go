package clip

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidKeyframes is returned when raw keyframes cannot be encoded.
var ErrInvalidKeyframes = errors.New("clip: invalid keyframes")

// BoneKeys holds one sample per frame for a single bone. Either slice may be empty, in which
// case the bone gets no track of that kind.
type BoneKeys struct {
	Bone      string
	Positions []mgl32.Vec3
	Rotations []mgl32.Quat
}

// Keyframes is the raw, uniformly sampled input to Encode.
type Keyframes struct {
	Name       string
	FPS        float32
	Frames     int
	Bones      []BoneKeys
	RootMotion *BoneKeys
}

// EncodeOptions bounds the quantization error of each channel.
type EncodeOptions struct {
	// TranslationError is the largest tolerated per-component position error.
	TranslationError float32

	// RotationError is the largest tolerated per-component quaternion error.
	RotationError float32
}

// DefaultEncodeOptions returns tolerances suitable for character animation.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{TranslationError: 1e-4, RotationError: 1e-5}
}

// Encode quantizes raw keyframes into a ready Animation.
//
// Parameters:
//   - k: the raw keyframes
//   - opts: the quantization tolerances
//
// Returns:
//   - *Animation: the encoded clip
//   - error: ErrInvalidKeyframes if frame counts disagree or the sampling rate is invalid
func Encode(k Keyframes, opts EncodeOptions) (*Animation, error) {
	if k.Frames <= 0 || k.FPS <= 0 {
		return nil, fmt.Errorf("%w: %d frames at %v fps", ErrInvalidKeyframes, k.Frames, k.FPS)
	}
	bones, err := encodeSet(k.Bones, k.Frames, opts)
	if err != nil {
		return nil, err
	}
	a := &Animation{name: k.Name, fps: k.FPS, frames: uint32(k.Frames), bones: *bones}
	if k.RootMotion != nil {
		root := *k.RootMotion
		root.Bone = ""
		a.root, err = encodeSet([]BoneKeys{root}, k.Frames, opts)
		if err != nil {
			return nil, err
		}
	}
	a.ready.Store(true)
	return a, nil
}

func encodeSet(keys []BoneKeys, frames int, opts EncodeOptions) (*trackSet, error) {
	set := &trackSet{}
	var tkeys [][]mgl32.Vec3
	var rkeys [][]mgl32.Quat
	for _, bk := range keys {
		if len(bk.Positions) > 0 {
			if len(bk.Positions) != frames {
				return nil, fmt.Errorf("%w: bone %q has %d positions, want %d", ErrInvalidKeyframes, bk.Bone, len(bk.Positions), frames)
			}
			track := newTranslationTrack(bk.Bone, bk.Positions, opts.TranslationError)
			track.Offset = set.TranslationRow
			set.TranslationRow += track.rowBits()
			set.Translations = append(set.Translations, track)
			tkeys = append(tkeys, bk.Positions)
		}
		if len(bk.Rotations) > 0 {
			if len(bk.Rotations) != frames {
				return nil, fmt.Errorf("%w: bone %q has %d rotations, want %d", ErrInvalidKeyframes, bk.Bone, len(bk.Rotations), frames)
			}
			rots := continuousRotations(bk.Rotations)
			track := newRotationTrack(bk.Bone, rots, opts.RotationError)
			track.Offset = set.RotationRow
			set.RotationRow += track.rowBits()
			set.Rotations = append(set.Rotations, track)
			rkeys = append(rkeys, rots)
		}
	}

	var tw, rw BitWriter
	for f := 0; f < frames; f++ {
		for i := range set.Translations {
			if t := &set.Translations[i]; !t.Constant {
				t.write(&tw, tkeys[i][f])
			}
		}
		tw.Pad(uint64(f+1) * uint64(set.TranslationRow))
		for i := range set.Rotations {
			if t := &set.Rotations[i]; !t.Constant {
				t.write(&rw, rkeys[i][f])
			}
		}
		rw.Pad(uint64(f+1) * uint64(set.RotationRow))
	}
	set.TranslationData = tw.Bytes()
	set.RotationData = rw.Bytes()
	return set, nil
}

func newTranslationTrack(bone string, keys []mgl32.Vec3, maxError float32) translationTrack {
	lo, hi := keys[0], keys[0]
	for _, p := range keys[1:] {
		for c := 0; c < 3; c++ {
			lo[c] = min(lo[c], p[c])
			hi[c] = max(hi[c], p[c])
		}
	}
	t := translationTrack{Bone: bone}
	for c := 0; c < 3; c++ {
		t.Channels[c] = newChannel(lo[c], hi[c], maxError)
	}
	if t.rowBits() == 0 {
		return translationTrack{Bone: bone, Constant: true, Value: keys[0]}
	}
	return t
}

func newRotationTrack(bone string, keys []mgl32.Quat, maxError float32) rotationTrack {
	var lo, hi [4]float32
	minAbs := [4]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	for c := 0; c < 4; c++ {
		lo[c], hi[c] = quatChannel(keys[0], c), quatChannel(keys[0], c)
	}
	for _, q := range keys {
		for c := 0; c < 4; c++ {
			v := quatChannel(q, c)
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
			minAbs[c] = min(minAbs[c], float32(math.Abs(float64(v))))
		}
	}
	t := rotationTrack{Bone: bone}
	var total int
	for c := 0; c < 4; c++ {
		t.Channels[c] = newChannel(lo[c], hi[c], maxError)
		total += int(t.Channels[c].Bits)
		if minAbs[c] > minAbs[t.Skipped] {
			t.Skipped = uint8(c)
		}
	}
	if total == 0 {
		return rotationTrack{Bone: bone, Constant: true, Value: keys[0]}
	}
	t.Channels[t.Skipped] = channel{}
	return t
}

// continuousRotations normalizes the keys and flips each one into the hemisphere of its predecessor
// so interpolation and quantization ranges follow the short arc.
func continuousRotations(keys []mgl32.Quat) []mgl32.Quat {
	out := make([]mgl32.Quat, len(keys))
	for i, q := range keys {
		q = common.NormalizeQuat(q)
		if i > 0 && out[i-1].Dot(q) < 0 {
			q = q.Scale(-1)
		}
		out[i] = q
	}
	return out
}
