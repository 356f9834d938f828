package controller

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// Fixed record sizes of the runtime state stream. Records carry no type tags; nodes read and
// write them in the same traversal order every pass.
const (
	timeRecordSize      = 4
	blendRecordSize     = 4
	conditionRecordSize = 5
	selectRecordSize    = 12
	groupRecordSize     = 16
)

type conditionRecord struct {
	T      common.Time
	IsTrue bool
}

type selectRecord struct {
	From, To uint32
	T        common.Time
}

type groupRecord struct {
	From, To    uint32
	T           common.Time
	BlendLength common.Time
}

// assertf panics with a formatted message when debug checks are compiled in and cond is false.
func assertf(cond bool, format string, args ...any) {
	if debugChecks && !cond {
		panic(fmt.Sprintf("controller: "+format, args...))
	}
}

// streamReader reads records from the previous tick's state.
// Reads past the end return zero values, or panic in debug builds.
type streamReader struct {
	buf []byte
	pos int
}

func (r *streamReader) reset(buf []byte) {
	r.buf = buf
	r.pos = 0
}

func (r *streamReader) bytes(n int, advance bool) []byte {
	assertf(r.pos+n <= len(r.buf), "state stream read of %d bytes at %d overruns %d", n, r.pos, len(r.buf))
	if r.pos+n > len(r.buf) {
		if advance {
			r.pos += n
		}
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	if advance {
		r.pos += n
	}
	return b
}

func (r *streamReader) skip(n int) {
	r.bytes(n, true)
}

func (r *streamReader) readU32() uint32 {
	b := r.bytes(4, true)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *streamReader) readTime() common.Time {
	return common.Time(r.readU32())
}

func (r *streamReader) peekTime() common.Time {
	b := r.bytes(4, false)
	if b == nil {
		return 0
	}
	return common.Time(binary.LittleEndian.Uint32(b))
}

func (r *streamReader) readF32() float32 {
	return math.Float32frombits(r.readU32())
}

func (r *streamReader) peekF32() float32 {
	b := r.bytes(4, false)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *streamReader) readCondition() conditionRecord {
	t := r.readTime()
	b := r.bytes(1, true)
	return conditionRecord{T: t, IsTrue: b != nil && b[0] != 0}
}

func (r *streamReader) readSelect() selectRecord {
	return selectRecord{From: r.readU32(), To: r.readU32(), T: r.readTime()}
}

func (r *streamReader) readGroup() groupRecord {
	return groupRecord{From: r.readU32(), To: r.readU32(), T: r.readTime(), BlendLength: r.readTime()}
}

// streamWriter appends records for the current tick.
type streamWriter struct {
	buf []byte
}

func (w *streamWriter) writeU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *streamWriter) writeTime(t common.Time) {
	w.writeU32(uint32(t))
}

func (w *streamWriter) writeF32(v float32) {
	w.writeU32(math.Float32bits(v))
}

func (w *streamWriter) writeCondition(rec conditionRecord) {
	w.writeTime(rec.T)
	if rec.IsTrue {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *streamWriter) writeSelect(rec selectRecord) {
	w.writeU32(rec.From)
	w.writeU32(rec.To)
	w.writeTime(rec.T)
}

func (w *streamWriter) writeGroup(rec groupRecord) {
	w.writeU32(rec.From)
	w.writeU32(rec.To)
	w.writeTime(rec.T)
	w.writeTime(rec.BlendLength)
}
