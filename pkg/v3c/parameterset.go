package v3c

import (
	"fmt"
	"sort"

	"github.com/user/vpccdec/pkg/bitstream"
)

// CodecGroup is ptl_profile_codec_group_idc.
type CodecGroup uint8

const (
	CodecGroupAVC        CodecGroup = 0
	CodecGroupHEVCMain10 CodecGroup = 1
	CodecGroupHEVC444    CodecGroup = 2
	CodecGroupVVCMain10  CodecGroup = 3
	CodecGroupRaw        CodecGroup = 127
)

// Codec identifies the video codec of one sub-stream.
type Codec uint8

const (
	CodecInherit Codec = 0
	CodecAVC     Codec = 1
	CodecHEVC    Codec = 2
	CodecVVC     Codec = 3
	CodecRaw     Codec = 255
)

// String returns a short codec name.
func (c Codec) String() string {
	switch c {
	case CodecAVC:
		return "avc"
	case CodecHEVC:
		return "hevc"
	case CodecVVC:
		return "vvc"
	case CodecRaw:
		return "raw"
	case CodecInherit:
		return "inherit"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

func (g CodecGroup) codec() (Codec, bool) {
	switch g {
	case CodecGroupAVC:
		return CodecAVC, true
	case CodecGroupHEVCMain10, CodecGroupHEVC444:
		return CodecHEVC, true
	case CodecGroupVVCMain10:
		return CodecVVC, true
	case CodecGroupRaw:
		return CodecRaw, true
	default:
		return 0, false
	}
}

// AttributeType is ai_attribute_type_id.
type AttributeType uint8

const (
	AttributeTexture      AttributeType = 0
	AttributeMaterialID   AttributeType = 1
	AttributeTransparency AttributeType = 2
	AttributeReflectance  AttributeType = 3
	AttributeNormal       AttributeType = 4
)

// ProfileTierLevel is the profile_tier_level() structure.
type ProfileTierLevel struct {
	Tier           bool
	CodecGroup     CodecGroup
	Toolset        uint8
	Reconstruction uint8
	Level          uint8
}

// OccupancyInfo describes the occupancy sub-stream of an atlas.
type OccupancyInfo struct {
	Codec          Codec
	LossyThreshold uint8
	BitDepth       int
	MSBAlign       bool
}

// GeometryInfo describes the geometry sub-stream of an atlas.
type GeometryInfo struct {
	Codec      Codec
	BitDepth   int
	MSBAlign   bool
	BitDepth3D int
}

// AttributeInfo describes one attribute sub-stream of an atlas.
type AttributeInfo struct {
	Type      AttributeType
	Codec     Codec
	Dimension int
	BitDepth  int
	MSBAlign  bool
}

// IsTexture reports whether the attribute carries 3-component color.
func (a AttributeInfo) IsTexture() bool {
	return a.Type == AttributeTexture && a.Dimension == 3
}

// AtlasInfo is the per-atlas part of a parameter set.
type AtlasInfo struct {
	ID          uint8
	FrameWidth  int
	FrameHeight int
	Occupancy   OccupancyInfo
	Geometry    GeometryInfo
	Attributes  []AttributeInfo
}

// TextureIndex returns the index of the first texture attribute, or -1.
func (a *AtlasInfo) TextureIndex() int {
	for i, attr := range a.Attributes {
		if attr.IsTexture() {
			return i
		}
	}
	return -1
}

// ParameterSet is a decoded V3C parameter set.
type ParameterSet struct {
	ID      uint8
	Profile ProfileTierLevel
	Atlases []AtlasInfo
}

func (*ParameterSet) isPayload() {}

// Atlas returns the atlas with the given id.
func (ps *ParameterSet) Atlas(id uint8) (*AtlasInfo, bool) {
	for i := range ps.Atlases {
		if ps.Atlases[i].ID == id {
			return &ps.Atlases[i], true
		}
	}
	return nil, false
}

// AtlasIDs returns the declared atlas ids in ascending order.
func (ps *ParameterSet) AtlasIDs() []uint8 {
	ids := make([]uint8, 0, len(ps.Atlases))
	for _, a := range ps.Atlases {
		ids = append(ids, a.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DecodeParameterSet parses a V3C parameter set payload.
func DecodeParameterSet(payload []byte) (*ParameterSet, error) {
	p := psParser{r: bitstream.NewReader(payload)}
	ps := &ParameterSet{}

	ps.Profile.Tier = p.flag("ptl_tier_flag")
	ps.Profile.CodecGroup = CodecGroup(p.u(7, "ptl_profile_codec_group_idc"))
	ps.Profile.Toolset = uint8(p.u(8, "ptl_profile_toolset_idc"))
	ps.Profile.Reconstruction = uint8(p.u(8, "ptl_profile_reconstruction_idc"))
	ps.Profile.Level = uint8(p.u(8, "ptl_level_idc"))
	ps.ID = uint8(p.u(4, "vps_v3c_parameter_set_id"))
	p.u(8, "vps_reserved_zero_8bits")
	atlasCount := int(p.u(6, "vps_atlas_count_minus1")) + 1
	if p.err != nil {
		return nil, p.err
	}

	groupCodec, ok := ps.Profile.CodecGroup.codec()
	if !ok {
		return nil, fmt.Errorf("%w: codec group %d", ErrUnsupported, ps.Profile.CodecGroup)
	}

	seen := make(map[uint8]bool)
	for i := 0; i < atlasCount; i++ {
		a, err := p.atlas(groupCodec)
		if err != nil {
			return nil, fmt.Errorf("atlas %d: %w", i, err)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: duplicate atlas id %d", ErrUnsupported, a.ID)
		}
		seen[a.ID] = true
		ps.Atlases = append(ps.Atlases, a)
	}

	if p.flag("vps_extension_present_flag") {
		return nil, fmt.Errorf("%w: parameter set extensions", ErrUnsupported)
	}
	if p.err != nil {
		return nil, p.err
	}

	return ps, nil
}

// psParser records the first read error so field lists read linearly.
type psParser struct {
	r   *bitstream.Reader
	err error
}

func (p *psParser) u(n int, field string) uint32 {
	if p.err != nil {
		return 0
	}
	v, err := p.r.ReadUint(n)
	if err != nil {
		p.err = fmt.Errorf("%w: %s: %v", ErrMalformed, field, err)
	}
	return v
}

func (p *psParser) ue(field string) uint32 {
	if p.err != nil {
		return 0
	}
	v, err := p.r.ReadUE()
	if err != nil {
		p.err = fmt.Errorf("%w: %s: %v", ErrMalformed, field, err)
	}
	return v
}

func (p *psParser) flag(field string) bool {
	return p.u(1, field) == 1
}

func (p *psParser) atlas(groupCodec Codec) (AtlasInfo, error) {
	var a AtlasInfo

	a.ID = uint8(p.u(6, "vps_atlas_id"))
	a.FrameWidth = int(p.ue("vps_frame_width"))
	a.FrameHeight = int(p.ue("vps_frame_height"))
	mapCount := p.u(4, "vps_map_count_minus1") + 1
	auxiliary := p.flag("vps_auxiliary_video_present_flag")
	hasOccupancy := p.flag("vps_occupancy_video_present_flag")
	hasGeometry := p.flag("vps_geometry_video_present_flag")
	hasAttributes := p.flag("vps_attribute_video_present_flag")
	if p.err != nil {
		return a, p.err
	}

	switch {
	case a.FrameWidth == 0 || a.FrameHeight == 0:
		return a, fmt.Errorf("%w: frame size %dx%d", ErrUnsupported, a.FrameWidth, a.FrameHeight)
	case mapCount > 1:
		return a, fmt.Errorf("%w: %d geometry maps", ErrUnsupported, mapCount)
	case auxiliary:
		return a, fmt.Errorf("%w: auxiliary video", ErrUnsupported)
	case !hasOccupancy || !hasGeometry:
		return a, fmt.Errorf("%w: occupancy and geometry video are required", ErrUnsupported)
	}

	a.Occupancy.Codec = p.codec(groupCodec, "oi_occupancy_codec_id")
	a.Occupancy.LossyThreshold = uint8(p.u(8, "oi_lossy_occupancy_compression_threshold"))
	a.Occupancy.BitDepth = int(p.u(5, "oi_occupancy_2d_bit_depth_minus1")) + 1
	a.Occupancy.MSBAlign = p.flag("oi_occupancy_MSB_align_flag")

	a.Geometry.Codec = p.codec(groupCodec, "gi_geometry_codec_id")
	a.Geometry.BitDepth = int(p.u(5, "gi_geometry_2d_bit_depth_minus1")) + 1
	a.Geometry.MSBAlign = p.flag("gi_geometry_MSB_align_flag")
	a.Geometry.BitDepth3D = int(p.u(5, "gi_geometry_3d_coordinates_bit_depth_minus1")) + 1

	if hasAttributes {
		count := int(p.u(7, "ai_attribute_count"))
		if p.err == nil && count == 0 {
			return a, fmt.Errorf("%w: attribute video present with no attributes", ErrUnsupported)
		}
		for i := 0; i < count && p.err == nil; i++ {
			var attr AttributeInfo
			attr.Type = AttributeType(p.u(4, "ai_attribute_type_id"))
			attr.Codec = p.codec(groupCodec, "ai_attribute_codec_id")
			attr.Dimension = int(p.u(6, "ai_attribute_dimension_minus1")) + 1
			attr.BitDepth = int(p.u(5, "ai_attribute_2d_bit_depth_minus1")) + 1
			attr.MSBAlign = p.flag("ai_attribute_MSB_align_flag")
			a.Attributes = append(a.Attributes, attr)
		}
	}

	return a, p.err
}

func (p *psParser) codec(groupCodec Codec, field string) Codec {
	c := Codec(p.u(8, field))
	if p.err != nil {
		return 0
	}
	switch c {
	case CodecInherit:
		return groupCodec
	case CodecAVC, CodecHEVC, CodecVVC, CodecRaw:
		return c
	default:
		p.err = fmt.Errorf("%w: %s %d", ErrUnsupported, field, uint8(c))
		return 0
	}
}
