package common

// OneSecond is the number of Time ticks in one second.
const OneSecond = 1 << 15

// Time is a fixed-point timestamp or duration measured in 1/32768ths of a second.
// Arithmetic on Time is exact and wraps with clip lengths via Mod, avoiding the drift a
// float accumulator would show on long-running loops.
type Time uint32

// TimeFromSeconds converts a duration in seconds to Time. Negative durations clamp to zero.
//
// Parameters:
//   - seconds: the duration in seconds
//
// Returns:
//   - Time: the fixed-point duration
func TimeFromSeconds(seconds float32) Time {
	if seconds <= 0 {
		return 0
	}
	return Time(seconds * OneSecond)
}

// Seconds converts the Time to seconds.
//
// Returns:
//   - float32: the duration in seconds
func (t Time) Seconds() float32 {
	return float32(t) / OneSecond
}

// Mod reduces the Time modulo length. A zero length yields zero.
//
// Parameters:
//   - length: the loop length
//
// Returns:
//   - Time: t mod length
func (t Time) Mod(length Time) Time {
	if length == 0 {
		return 0
	}
	return t % length
}

// Scale multiplies the Time by a float factor. Negative results clamp to zero.
//
// Parameters:
//   - f: the factor
//
// Returns:
//   - Time: the scaled Time
func (t Time) Scale(f float32) Time {
	v := float64(t) * float64(f)
	if v <= 0 {
		return 0
	}
	return Time(v)
}

// Min returns the smaller of t and o.
func (t Time) Min(o Time) Time {
	if o < t {
		return o
	}
	return t
}

// LerpTime linearly interpolates between two durations.
//
// Parameters:
//   - a: the start duration
//   - b: the end duration
//   - t: the interpolation factor
//
// Returns:
//   - Time: the interpolated duration
func LerpTime(a, b Time, t float32) Time {
	v := float64(a) + (float64(b)-float64(a))*float64(t)
	if v <= 0 {
		return 0
	}
	return Time(v)
}
