package v3c

import (
	"fmt"

	"github.com/user/vpccdec/pkg/atlas"
)

// Payload is the decoded content of a unit. The set of implementations
// is closed: *ParameterSet, *AtlasData and *VideoData.
type Payload interface {
	isPayload()
}

// AtlasData is the payload of an atlas data unit.
type AtlasData struct {
	AtlasID uint8
	Group   *atlas.PatchDataGroup
}

func (*AtlasData) isPayload() {}

// VideoKind names the video component a sub-stream carries.
type VideoKind uint8

const (
	VideoOccupancy VideoKind = iota
	VideoGeometry
	VideoAttribute
)

// String returns the component name.
func (k VideoKind) String() string {
	switch k {
	case VideoOccupancy:
		return "occupancy"
	case VideoGeometry:
		return "geometry"
	case VideoAttribute:
		return "attribute"
	default:
		return fmt.Sprintf("video(%d)", uint8(k))
	}
}

// VideoData is the payload of an occupancy, geometry or attribute video unit.
// Data is the compressed sub-stream exactly as carried in the unit.
type VideoData struct {
	Kind           VideoKind
	AtlasID        uint8
	AttributeIndex uint8
	MapIndex       uint8
	Data           []byte
}

func (*VideoData) isPayload() {}

// Unit is a decoded V3C unit.
type Unit struct {
	Header  UnitHeader
	Payload Payload
}

// DecodeUnit decodes the header and payload of a framed unit.
// Parameter-set and header errors are returned; atlas record errors are
// carried inside the AtlasData group.
func DecodeUnit(raw RawUnit) (Unit, error) {
	h, err := raw.Header()
	if err != nil {
		return Unit{}, fmt.Errorf("unit %d: %w", raw.Index, err)
	}
	u := Unit{Header: h}
	payload := raw.Payload()

	switch h.Type {
	case UnitParameterSet:
		ps, err := DecodeParameterSet(payload)
		if err != nil {
			return u, fmt.Errorf("unit %d: %w", raw.Index, err)
		}
		u.Payload = ps

	case UnitAtlasData:
		g, err := atlas.DecodePatchDataGroup(payload)
		if err != nil {
			return u, fmt.Errorf("unit %d: %w", raw.Index, err)
		}
		u.Payload = &AtlasData{AtlasID: h.AtlasID, Group: g}

	case UnitOccupancyVideo, UnitGeometryVideo, UnitAttributeVideo:
		u.Payload = &VideoData{
			Kind:           videoKind(h.Type),
			AtlasID:        h.AtlasID,
			AttributeIndex: h.AttributeIndex,
			MapIndex:       h.MapIndex,
			Data:           payload,
		}

	default:
		return u, fmt.Errorf("unit %d: %w: %d", raw.Index, ErrUnknownUnitType, h.Type)
	}

	return u, nil
}

func videoKind(t UnitType) VideoKind {
	switch t {
	case UnitOccupancyVideo:
		return VideoOccupancy
	case UnitGeometryVideo:
		return VideoGeometry
	default:
		return VideoAttribute
	}
}
