package ports

import (
	"context"
	"errors"

	"github.com/user/vpccdec/pkg/pipeline"
)

// ErrVideoDecode is returned when an embedded video sub-stream cannot be decoded.
var ErrVideoDecode = errors.New("video decode failed")

// VideoComponent names the role of a video sub-stream.
type VideoComponent string

const (
	ComponentOccupancy VideoComponent = "occupancy"
	ComponentGeometry  VideoComponent = "geometry"
	ComponentAttribute VideoComponent = "attribute"
)

// VideoCodec names the codec a sub-stream is coded with.
type VideoCodec string

const (
	CodecAVC  VideoCodec = "avc"
	CodecHEVC VideoCodec = "hevc"
	CodecVVC  VideoCodec = "vvc"
	CodecRaw  VideoCodec = "raw"
)

// VideoStream is one compressed video sub-stream and what is known about it
// from the parameter set.
type VideoStream struct {
	Component VideoComponent
	Codec     VideoCodec
	BitDepth  int
	// Width and Height are the nominal atlas frame size. Occupancy and
	// attribute pictures may be smaller by an integer factor.
	Width  int
	Height int
	// Planes is 1 for occupancy and geometry, the attribute dimension otherwise.
	Planes int
	Data   []byte
	// Label identifies the stream in logs and intermediate file names.
	Label string
}

// VideoDecoder abstracts decoding of embedded 2D video sub-streams.
type VideoDecoder interface {
	// Decode returns one sample buffer per coded picture, in output order.
	// Failures wrap ErrVideoDecode.
	Decode(ctx context.Context, stream VideoStream) ([]pipeline.SampleBuffer, error)
}
