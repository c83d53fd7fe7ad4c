package streamtest

// Unit type codes as they appear in vuh_unit_type.
const (
	TypeVPS = 0
	TypeAD  = 1
	TypeOVD = 2
	TypeGVD = 3
	TypeAVD = 4
)

// SampleStream frames units with size fields of precision bytes.
func SampleStream(precision int, units ...[]byte) []byte {
	w := &BitWriter{}
	w.WriteBits(uint64(precision-1), 3).WriteBits(0, 5)
	for _, u := range units {
		w.WriteBits(uint64(len(u)), 8*precision)
		w.WriteBytes(u)
	}
	return w.Bytes()
}

// VPSUnit wraps a parameter set payload in a unit header.
func VPSUnit(payload []byte) []byte {
	w := &BitWriter{}
	w.WriteBits(TypeVPS, 5).WriteBits(0, 27)
	return w.WriteBytes(payload).Bytes()
}

// AtlasUnit wraps an atlas data payload in a unit header.
func AtlasUnit(vps, atlas uint8, payload []byte) []byte {
	w := &BitWriter{}
	w.WriteBits(TypeAD, 5).WriteBits(uint64(vps), 4).WriteBits(uint64(atlas), 6).WriteBits(0, 17)
	return w.WriteBytes(payload).Bytes()
}

// VideoUnit wraps a video payload of the given unit type in a unit header.
func VideoUnit(unitType int, vps, atlas, attrIndex uint8, payload []byte) []byte {
	w := &BitWriter{}
	w.WriteBits(uint64(unitType), 5).WriteBits(uint64(vps), 4).WriteBits(uint64(atlas), 6)
	switch unitType {
	case TypeAVD:
		w.WriteBits(uint64(attrIndex), 7).WriteBits(0, 5).WriteBits(0, 4).WriteBits(0, 1)
	default:
		w.WriteBits(0, 17)
	}
	return w.WriteBytes(payload).Bytes()
}

// UnitWithType builds a unit with an arbitrary 5-bit type code.
func UnitWithType(code int, payload []byte) []byte {
	w := &BitWriter{}
	w.WriteBits(uint64(code), 5).WriteBits(0, 27)
	return w.WriteBytes(payload).Bytes()
}

// AttributeSpec describes one attribute of an atlas.
type AttributeSpec struct {
	Type      uint8
	Codec     uint8
	Dimension int
	BitDepth  int
}

// AtlasSpec describes one atlas of a parameter set.
type AtlasSpec struct {
	ID              uint8
	Width           int
	Height          int
	OccupancyCodec  uint8
	GeometryCodec   uint8
	OccupancyDepth  int
	GeometryDepth   int
	Geometry3DDepth int
	MapCount        int
	Auxiliary       bool
	NoOccupancy     bool
	Attributes      []AttributeSpec
}

// ParameterSetSpec describes a parameter set payload.
type ParameterSetSpec struct {
	ID         uint8
	CodecGroup uint8
	Atlases    []AtlasSpec
	Extension  bool
}

// RawGroup is the codec group code for uncompressed sub-streams.
const RawGroup = 127

// ParameterSet encodes a parameter set payload.
func ParameterSet(spec ParameterSetSpec) []byte {
	w := &BitWriter{}
	w.WriteBits(0, 1).WriteBits(uint64(spec.CodecGroup), 7)
	w.WriteBits(0, 8).WriteBits(0, 8).WriteBits(30, 8)
	w.WriteBits(uint64(spec.ID), 4).WriteBits(0, 8)
	w.WriteBits(uint64(len(spec.Atlases)-1), 6)

	for _, a := range spec.Atlases {
		maps := a.MapCount
		if maps == 0 {
			maps = 1
		}
		w.WriteBits(uint64(a.ID), 6)
		w.WriteUE(uint32(a.Width)).WriteUE(uint32(a.Height))
		w.WriteBits(uint64(maps-1), 4)
		w.WriteFlag(a.Auxiliary)
		w.WriteFlag(!a.NoOccupancy)
		w.WriteFlag(true)
		w.WriteFlag(len(a.Attributes) > 0)

		if a.NoOccupancy {
			continue
		}
		w.WriteBits(uint64(a.OccupancyCodec), 8).WriteBits(0, 8)
		w.WriteBits(uint64(depthOr(a.OccupancyDepth, 8)-1), 5).WriteFlag(false)
		w.WriteBits(uint64(a.GeometryCodec), 8)
		w.WriteBits(uint64(depthOr(a.GeometryDepth, 8)-1), 5).WriteFlag(false)
		w.WriteBits(uint64(depthOr(a.Geometry3DDepth, 10)-1), 5)

		if len(a.Attributes) > 0 {
			w.WriteBits(uint64(len(a.Attributes)), 7)
			for _, attr := range a.Attributes {
				w.WriteBits(uint64(attr.Type), 4).WriteBits(uint64(attr.Codec), 8)
				w.WriteBits(uint64(attr.Dimension-1), 6)
				w.WriteBits(uint64(depthOr(attr.BitDepth, 8)-1), 5).WriteFlag(false)
			}
		}
	}

	w.WriteFlag(spec.Extension)
	return w.Align().Bytes()
}

func depthOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Texture returns a 3-channel 8-bit texture attribute.
func Texture() AttributeSpec {
	return AttributeSpec{Type: 0, Dimension: 3, BitDepth: 8}
}
