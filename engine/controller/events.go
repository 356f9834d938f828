package controller

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// eventHeaderSize is the size of the (type u32, size u16, relTime u16) header preceding each payload.
const eventHeaderSize = 8

// maxRelTime is the quantized relative time of the end of a loop.
const maxRelTime = 0xffff

// Event is a decoded animation event.
type Event struct {
	// Type is the user-defined event type.
	Type uint32

	// RelTime is the event position in its loop, quantized to 0..0xFFFF.
	RelTime uint16

	// Payload is the event data. It aliases the runtime's event buffer until the next update.
	Payload []byte
}

// RelativeTime returns the event position as a fraction of the loop length.
func (e Event) RelativeTime() float32 {
	return float32(e.RelTime) / maxRelTime
}

// EventTrackBuilder assembles a packed event track for a node.
type EventTrackBuilder struct {
	buf []byte
}

// Add appends an event at relative position rel (0..1) of the loop.
//
// Parameters:
//   - typ: the event type
//   - rel: the event position as a fraction of the loop length, clamped to [0, 1]
//   - payload: the event data, at most 65535 bytes
func (b *EventTrackBuilder) Add(typ uint32, rel float32, payload []byte) *EventTrackBuilder {
	rel = common.Clamp(rel, 0, 1)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, typ)
	b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(len(payload)))
	b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(rel*maxRelTime+0.5))
	b.buf = append(b.buf, payload...)
	return b
}

// Bytes returns the packed track.
func (b *EventTrackBuilder) Bytes() []byte {
	return b.buf
}

// DecodeEvents splits a packed event buffer into events. A truncated trailing record is dropped.
func DecodeEvents(data []byte) []Event {
	var out []Event
	for len(data) >= eventHeaderSize {
		size := int(binary.LittleEndian.Uint16(data[4:]))
		if len(data) < eventHeaderSize+size {
			break
		}
		out = append(out, Event{
			Type:    binary.LittleEndian.Uint32(data),
			RelTime: binary.LittleEndian.Uint16(data[6:]),
			Payload: data[eventHeaderSize : eventHeaderSize+size],
		})
		data = data[eventHeaderSize+size:]
	}
	return out
}

// quantizeRelTime maps a time within a loop to 0..0xFFFF.
func quantizeRelTime(t, loopLength common.Time) uint32 {
	return uint32(maxRelTime * uint64(t) / uint64(loopLength))
}

// emitEvents copies every event of track whose position lies in the traversed window
// [oldTime, newTime) of a loop of loopLength into the runtime's event buffer. When the window wraps
// past the loop end it is split into [old, end] and [start, new).
func emitEvents(ctx *RuntimeContext, track []byte, oldTime, newTime, loopLength common.Time) {
	if len(track) == 0 || loopLength == 0 {
		return
	}
	t0 := oldTime.Mod(loopLength)
	t1 := newTime.Mod(loopLength)
	from := quantizeRelTime(t0, loopLength)
	to := quantizeRelTime(t1, loopLength)
	if t1 >= t0 {
		copyEvents(ctx, track, from, to)
		return
	}
	copyEvents(ctx, track, from, maxRelTime+1)
	copyEvents(ctx, track, 0, to)
}

// copyEvents appends the records whose relTime lies in [from, to).
func copyEvents(ctx *RuntimeContext, track []byte, from, to uint32) {
	for len(track) >= eventHeaderSize {
		size := int(binary.LittleEndian.Uint16(track[4:]))
		rel := uint32(binary.LittleEndian.Uint16(track[6:]))
		end := min(eventHeaderSize+size, len(track))
		if rel >= from && rel < to {
			ctx.events = append(ctx.events, track[:end]...)
		}
		track = track[end:]
	}
}
