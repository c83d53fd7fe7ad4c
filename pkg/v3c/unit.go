// Package v3c parses the V3C sample stream container and the unit payloads
// that carry parameter sets and video sub-streams.
package v3c

import (
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/bitstream"
)

var (
	// ErrFraming is returned when the sample stream framing is broken:
	// a truncated size field or a size larger than the remaining bytes.
	ErrFraming = errors.New("v3c: framing error")

	// ErrUnknownUnitType is returned for unit type codes this decoder does not handle.
	ErrUnknownUnitType = errors.New("v3c: unknown unit type")

	// ErrUnsupported is returned for parameter-set features outside the decoded profile.
	ErrUnsupported = errors.New("v3c: unsupported parameter set")

	// ErrMalformed is returned when a unit header or parameter set cannot be parsed.
	ErrMalformed = errors.New("v3c: malformed unit")
)

// UnitType is the vuh_unit_type code of a V3C unit.
type UnitType uint8

const (
	UnitParameterSet   UnitType = 0
	UnitAtlasData      UnitType = 1
	UnitOccupancyVideo UnitType = 2
	UnitGeometryVideo  UnitType = 3
	UnitAttributeVideo UnitType = 4
)

const (
	unitHeaderSize       = 4
	maxSupportedUnitType = UnitAttributeVideo
)

// String returns the short V3C name of the unit type.
func (t UnitType) String() string {
	switch t {
	case UnitParameterSet:
		return "VPS"
	case UnitAtlasData:
		return "AD"
	case UnitOccupancyVideo:
		return "OVD"
	case UnitGeometryVideo:
		return "GVD"
	case UnitAttributeVideo:
		return "AVD"
	default:
		return fmt.Sprintf("UNIT(%d)", uint8(t))
	}
}

// IsVideo reports whether units of this type carry a video sub-stream.
func (t UnitType) IsVideo() bool {
	return t == UnitOccupancyVideo || t == UnitGeometryVideo || t == UnitAttributeVideo
}

// UnitHeader is the fixed 32-bit v3c_unit_header.
type UnitHeader struct {
	Type               UnitType
	ParameterSetID     uint8
	AtlasID            uint8
	AttributeIndex     uint8
	AttributePartition uint8
	MapIndex           uint8
	Auxiliary          bool
}

// String formats the header for logs.
func (h UnitHeader) String() string {
	switch h.Type {
	case UnitParameterSet:
		return h.Type.String()
	case UnitAttributeVideo:
		return fmt.Sprintf("%s(vps=%d atlas=%d attr=%d map=%d)", h.Type, h.ParameterSetID, h.AtlasID, h.AttributeIndex, h.MapIndex)
	case UnitGeometryVideo:
		return fmt.Sprintf("%s(vps=%d atlas=%d map=%d)", h.Type, h.ParameterSetID, h.AtlasID, h.MapIndex)
	default:
		return fmt.Sprintf("%s(vps=%d atlas=%d)", h.Type, h.ParameterSetID, h.AtlasID)
	}
}

// ParseUnitHeader reads a v3c_unit_header.
func ParseUnitHeader(r *bitstream.Reader) (UnitHeader, error) {
	var h UnitHeader

	t, err := r.ReadUint(5)
	if err != nil {
		return h, fmt.Errorf("%w: unit type: %v", ErrMalformed, err)
	}
	h.Type = UnitType(t)
	if h.Type > maxSupportedUnitType {
		return h, fmt.Errorf("%w: %d", ErrUnknownUnitType, t)
	}

	if h.Type == UnitParameterSet {
		if err := r.Skip(27); err != nil {
			return h, fmt.Errorf("%w: reserved bits: %v", ErrMalformed, err)
		}
		return h, nil
	}

	// All remaining fields fit in the 27 bits following the type.
	v, err := r.ReadUint(27)
	if err != nil {
		return h, fmt.Errorf("%w: header fields: %v", ErrMalformed, err)
	}
	h.ParameterSetID = uint8(v >> 23 & 0xF)
	h.AtlasID = uint8(v >> 17 & 0x3F)

	switch h.Type {
	case UnitAttributeVideo:
		h.AttributeIndex = uint8(v >> 10 & 0x7F)
		h.AttributePartition = uint8(v >> 5 & 0x1F)
		h.MapIndex = uint8(v >> 1 & 0xF)
		h.Auxiliary = v&1 == 1
	case UnitGeometryVideo:
		h.MapIndex = uint8(v >> 13 & 0xF)
		h.Auxiliary = v>>12&1 == 1
	}

	return h, nil
}
