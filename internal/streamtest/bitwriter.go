// Package streamtest builds V3C sample streams for tests.
package streamtest

// BitWriter accumulates MSB-first bit fields.
type BitWriter struct {
	buf   []byte
	nbits int
}

// WriteBits appends the low n bits of v.
func (w *BitWriter) WriteBits(v uint64, n int) *BitWriter {
	for i := n - 1; i >= 0; i-- {
		if w.nbits%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 == 1 {
			w.buf[len(w.buf)-1] |= 0x80 >> uint(w.nbits%8)
		}
		w.nbits++
	}
	return w
}

// WriteFlag appends one bit.
func (w *BitWriter) WriteFlag(b bool) *BitWriter {
	if b {
		return w.WriteBits(1, 1)
	}
	return w.WriteBits(0, 1)
}

// WriteUE appends an unsigned exp-Golomb code.
func (w *BitWriter) WriteUE(v uint32) *BitWriter {
	x := uint64(v) + 1
	n := 0
	for t := x; t > 1; t >>= 1 {
		n++
	}
	w.WriteBits(0, n)
	return w.WriteBits(x, n+1)
}

// WriteSE appends a signed exp-Golomb code.
func (w *BitWriter) WriteSE(v int32) *BitWriter {
	if v > 0 {
		return w.WriteUE(uint32(2*v - 1))
	}
	return w.WriteUE(uint32(-2 * v))
}

// Align pads with zero bits to the next byte boundary.
func (w *BitWriter) Align() *BitWriter {
	for w.nbits%8 != 0 {
		w.WriteBits(0, 1)
	}
	return w
}

// WriteBytes appends whole bytes after aligning.
func (w *BitWriter) WriteBytes(b []byte) *BitWriter {
	w.Align()
	w.buf = append(w.buf, b...)
	w.nbits += len(b) * 8
	return w
}

// Len returns the number of bits written.
func (w *BitWriter) Len() int {
	return w.nbits
}

// Bytes returns the written bytes, zero padded to a byte boundary.
func (w *BitWriter) Bytes() []byte {
	return append([]byte(nil), w.buf...)
}
