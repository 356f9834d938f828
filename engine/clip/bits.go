package clip

// BitWriter packs unsigned values of arbitrary bit width into a byte slice, least significant bit first.
type BitWriter struct {
	buf    []byte
	cursor uint64
}

// Write appends the low `bits` bits of v.
//
// Parameters:
//   - v: the value to write
//   - bits: the number of bits to write, at most 64
func (w *BitWriter) Write(v uint64, bits uint) {
	for bits > 0 {
		idx := w.cursor / 8
		for uint64(len(w.buf)) <= idx {
			w.buf = append(w.buf, 0)
		}
		shift := uint(w.cursor % 8)
		n := min(8-shift, bits)
		w.buf[idx] |= byte((v & (1<<n - 1)) << shift)
		v >>= n
		bits -= n
		w.cursor += uint64(n)
	}
}

// Pad advances the cursor to bit position pos, leaving zero bits in between. No-op if already past it.
func (w *BitWriter) Pad(pos uint64) {
	for w.cursor < pos {
		w.Write(0, uint(min(pos-w.cursor, 32)))
	}
}

// Bits returns the number of bits written.
func (w *BitWriter) Bits() uint64 {
	return w.cursor
}

// Bytes returns the packed data.
func (w *BitWriter) Bytes() []byte {
	return w.buf
}

// BitReader extracts values written by BitWriter. Reads past the end yield zero bits.
type BitReader struct {
	data   []byte
	cursor uint64
}

// NewBitReader creates a BitReader positioned at the first bit of data.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// Seek moves the cursor to an absolute bit position.
func (r *BitReader) Seek(bit uint64) {
	r.cursor = bit
}

// Read consumes `bits` bits and returns them as the low bits of the result.
//
// Parameters:
//   - bits: the number of bits to read, at most 64
//
// Returns:
//   - uint64: the value read
func (r *BitReader) Read(bits uint) uint64 {
	var v uint64
	var done uint
	for done < bits {
		idx := r.cursor / 8
		shift := uint(r.cursor % 8)
		n := min(8-shift, bits-done)
		var b byte
		if idx < uint64(len(r.data)) {
			b = r.data[idx]
		}
		v |= (uint64(b>>shift) & (1<<n - 1)) << done
		done += n
		r.cursor += uint64(n)
	}
	return v
}
