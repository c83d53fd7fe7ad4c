package streamtest

import (
	"github.com/user/vpccdec/pkg/adapters/rawvideo"
	"github.com/user/vpccdec/pkg/pipeline"
)

// Picture returns a picture with every sample of every plane set to v.
func Picture(w, h, planes, depth int, v uint16) pipeline.SampleBuffer {
	b := pipeline.NewSampleBuffer(w, h, planes, depth)
	for p := range b.Planes {
		for i := range b.Planes[p] {
			b.Planes[p][i] = v
		}
	}
	return b
}

// Repeat returns n copies of pic.
func Repeat(pic pipeline.SampleBuffer, n int) []pipeline.SampleBuffer {
	out := make([]pipeline.SampleBuffer, n)
	for i := range out {
		out[i] = pic.Clone()
	}
	return out
}

// RawVideo encodes pictures as a raw video sub-stream. It panics on
// inconsistent pictures.
func RawVideo(pics ...pipeline.SampleBuffer) []byte {
	data, err := rawvideo.Encode(pics)
	if err != nil {
		panic(err)
	}
	return data
}

// SquareAtlas is an 8x8 atlas coded with raw sub-streams and no attributes.
func SquareAtlas(id uint8) AtlasSpec {
	return AtlasSpec{ID: id, Width: 8, Height: 8}
}

// SquareParameterSet declares the given 8x8 raw atlases.
func SquareParameterSet(id uint8, atlases ...AtlasSpec) []byte {
	return VPSUnit(ParameterSet(ParameterSetSpec{ID: id, CodecGroup: RawGroup, Atlases: atlases}))
}

// SquarePatches returns frames each holding one intra 8x8 patch at depth
// offset d.
func SquarePatches(frames, d int) []byte {
	spec := GroupSpec{}
	for i := 0; i < frames; i++ {
		spec.Frames = append(spec.Frames, FrameSpec{Records: []RecordSpec{
			Intra(PatchSpec{W: 8, H: 8, D: d, ProjectionID: 2}),
		}})
	}
	return PatchDataGroup(spec)
}

// SquareStream is a complete single-atlas stream: frames copies of a fully
// occupied 8x8 patch whose geometry is the constant depth.
func SquareStream(frames int, depth uint16) []byte {
	return SampleStream(4,
		SquareParameterSet(0, SquareAtlas(0)),
		AtlasUnit(0, 0, SquarePatches(frames, 0)),
		VideoUnit(TypeOVD, 0, 0, 0, RawVideo(Repeat(Picture(8, 8, 1, 8, 1), frames)...)),
		VideoUnit(TypeGVD, 0, 0, 0, RawVideo(Repeat(Picture(8, 8, 1, 8, depth), frames)...)),
	)
}
