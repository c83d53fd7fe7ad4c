// Package bitstream provides an MSB-first bit reader over a byte buffer.
package bitstream

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/bits"
)

var (
	// ErrOutOfData is returned when a read needs more bits than remain,
	// including an exp-Golomb code that is not terminated before the end.
	ErrOutOfData = errors.New("bitstream: out of data")

	// ErrNotAligned is returned when a byte-aligned read is attempted mid-byte.
	ErrNotAligned = errors.New("bitstream: not byte aligned")

	// ErrInvalidWidth is returned for field widths outside 0..64.
	ErrInvalidWidth = errors.New("bitstream: invalid field width")
)

// Reader reads fixed-width and exp-Golomb fields from a byte buffer.
// The cursor only moves forward; a failed read leaves it unchanged.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a reader positioned at the first bit of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the cursor position in bits.
func (r *Reader) Pos() int {
	return r.pos
}

// RemainingBits returns the number of unread bits.
func (r *Reader) RemainingBits() int {
	return len(r.buf)*8 - r.pos
}

// Remaining returns the number of whole unread bytes.
func (r *Reader) Remaining() int {
	return r.RemainingBits() / 8
}

// IsAligned reports whether the cursor sits on a byte boundary.
func (r *Reader) IsAligned() bool {
	return r.pos%8 == 0
}

// ByteAlign skips to the next byte boundary.
func (r *Reader) ByteAlign() {
	if rem := r.pos % 8; rem != 0 {
		r.pos += 8 - rem
	}
}

// Skip advances the cursor by n bits.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadBits reads an n-bit unsigned field, 0 <= n <= 64.
func (r *Reader) ReadBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}
	if n == 0 {
		return 0, nil
	}
	if err := r.need(n); err != nil {
		return 0, err
	}
	if n <= 32 {
		return bits.ReadBitsUnsafe(r.buf, &r.pos, n), nil
	}
	hi := bits.ReadBitsUnsafe(r.buf, &r.pos, n-32)
	lo := bits.ReadBitsUnsafe(r.buf, &r.pos, 32)
	return hi<<32 | lo, nil
}

// ReadUint reads an n-bit unsigned field narrowed to uint32, 0 <= n <= 32.
func (r *Reader) ReadUint(n int) (uint32, error) {
	if n > 32 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}
	v, err := r.ReadBits(n)
	return uint32(v), err
}

// ReadSigned reads an n-bit two's complement field.
func (r *Reader) ReadSigned(n int) (int64, error) {
	v, err := r.ReadBits(n)
	if err != nil || n == 0 {
		return 0, err
	}
	if n < 64 && v&(1<<(n-1)) != 0 {
		return int64(v) - int64(1)<<n, nil
	}
	return int64(v), nil
}

// ReadFlag reads a single bit.
func (r *Reader) ReadFlag() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	return bits.ReadFlagUnsafe(r.buf, &r.pos), nil
}

// ReadUE reads an unsigned exp-Golomb code, ue(v).
func (r *Reader) ReadUE() (uint32, error) {
	pos := r.pos
	v, err := bits.ReadGolombUnsigned(r.buf, &pos)
	if err != nil {
		return 0, fmt.Errorf("%w: ue(v) at bit %d: %v", ErrOutOfData, r.pos, err)
	}
	r.pos = pos
	return v, nil
}

// ReadSE reads a signed exp-Golomb code, se(v).
func (r *Reader) ReadSE() (int32, error) {
	k, err := r.ReadUE()
	if err != nil {
		return 0, err
	}
	if k%2 == 1 {
		return int32((k + 1) / 2), nil
	}
	return -int32(k / 2), nil
}

// ReadBytes returns the next n bytes as a sub-slice of the buffer.
// The cursor must be byte aligned.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if !r.IsAligned() {
		return nil, fmt.Errorf("%w: bit %d", ErrNotAligned, r.pos)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrOutOfData, n)
	}
	if err := r.need(n * 8); err != nil {
		return nil, err
	}
	start := r.pos / 8
	r.pos += n * 8
	return r.buf[start : start+n], nil
}

// Rest returns all remaining whole bytes. The cursor must be byte aligned.
func (r *Reader) Rest() ([]byte, error) {
	return r.ReadBytes(r.Remaining())
}

func (r *Reader) need(n int) error {
	if err := bits.HasSpace(r.buf, r.pos, n); err != nil {
		return fmt.Errorf("%w: need %d bits at bit %d, have %d", ErrOutOfData, n, r.pos, r.RemainingBits())
	}
	return nil
}
