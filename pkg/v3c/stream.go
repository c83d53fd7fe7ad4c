package v3c

import (
	"fmt"

	"github.com/user/vpccdec/pkg/bitstream"
)

// RawUnit is one framed V3C unit: header plus payload, not yet decoded.
type RawUnit struct {
	// Index is the zero-based position of the unit in the stream.
	Index int
	// Offset is the byte offset of Data within the stream buffer.
	Offset int
	// Data holds the unit header followed by its payload.
	Data []byte
}

// Type returns the unit type code without validating it.
func (u RawUnit) Type() UnitType {
	return UnitType(u.Data[0] >> 3)
}

// Header decodes the unit header.
func (u RawUnit) Header() (UnitHeader, error) {
	return ParseUnitHeader(bitstream.NewReader(u.Data))
}

// Payload returns the bytes following the unit header.
func (u RawUnit) Payload() []byte {
	return u.Data[unitHeaderSize:]
}

// SampleStream splits a sample-stream-format buffer into units.
// The whole buffer is framed up front, so a framing error is reported
// before any unit is handed out. Iteration is forward only.
type SampleStream struct {
	precision int
	units     []RawUnit
	next      int
}

// NewSampleStream reads the sample stream header and frames every unit.
func NewSampleStream(buf []byte) (*SampleStream, error) {
	r := bitstream.NewReader(buf)

	p, err := r.ReadUint(3)
	if err != nil {
		return nil, fmt.Errorf("%w: missing sample stream header", ErrFraming)
	}
	if err := r.Skip(5); err != nil {
		return nil, fmt.Errorf("%w: truncated sample stream header", ErrFraming)
	}

	s := &SampleStream{precision: int(p) + 1}
	for r.RemainingBits() > 0 {
		sizeOffset := r.Pos() / 8
		size, err := r.ReadBits(8 * s.precision)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated size field of unit %d at byte %d", ErrFraming, len(s.units), sizeOffset)
		}
		if size > uint64(r.Remaining()) {
			return nil, fmt.Errorf("%w: unit %d declares %d bytes, %d remain", ErrFraming, len(s.units), size, r.Remaining())
		}
		if size < unitHeaderSize {
			return nil, fmt.Errorf("%w: unit %d is %d bytes, shorter than its header", ErrFraming, len(s.units), size)
		}
		offset := r.Pos() / 8
		data, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("%w: unit %d: %v", ErrFraming, len(s.units), err)
		}
		s.units = append(s.units, RawUnit{Index: len(s.units), Offset: offset, Data: data})
	}

	return s, nil
}

// PrecisionBytes returns the width of the unit size fields.
func (s *SampleStream) PrecisionBytes() int {
	return s.precision
}

// Len returns the total number of units in the stream.
func (s *SampleStream) Len() int {
	return len(s.units)
}

// Remaining returns the number of units not yet returned.
func (s *SampleStream) Remaining() int {
	return len(s.units) - s.next
}

// Next returns the next unit, or false once the stream is exhausted.
func (s *SampleStream) Next() (RawUnit, bool) {
	if s.next >= len(s.units) {
		return RawUnit{}, false
	}
	u := s.units[s.next]
	s.next++
	return u, true
}

// NextGroup returns the next run of units sharing one parameter-set
// activation. A group ends before a parameter-set unit that follows
// any other unit type.
func (s *SampleStream) NextGroup() ([]RawUnit, bool) {
	if s.next >= len(s.units) {
		return nil, false
	}

	var group []RawUnit
	seenOther := false
	for s.next < len(s.units) {
		u := s.units[s.next]
		isVPS := u.Type() == UnitParameterSet
		if isVPS && seenOther {
			break
		}
		if !isVPS {
			seenOther = true
		}
		group = append(group, u)
		s.next++
	}
	return group, true
}
