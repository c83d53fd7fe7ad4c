// Package rawvideo decodes uncompressed video sub-streams.
//
// A raw sub-stream starts with a fixed header followed by the pictures
// back to back, each stored plane by plane in raster order:
//
//	magic    "RAWV"
//	width    u16
//	height   u16
//	planes   u8
//	bitDepth u8
//	frames   u16
//
// Samples are one byte when bitDepth <= 8 and two big-endian bytes otherwise.
package rawvideo

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

const headerSize = 12

var magic = []byte("RAWV")

// Header describes a raw sub-stream.
type Header struct {
	Width    int
	Height   int
	Planes   int
	BitDepth int
	Frames   int
}

func (h Header) sampleSize() int {
	if h.BitDepth <= 8 {
		return 1
	}
	return 2
}

func (h Header) frameSize() int {
	return h.Width * h.Height * h.Planes * h.sampleSize()
}

// Decoder implements ports.VideoDecoder for raw sub-streams.
type Decoder struct{}

// New creates a raw video decoder.
func New() *Decoder {
	return &Decoder{}
}

// Decode parses every picture of stream.Data.
func (d *Decoder) Decode(ctx context.Context, stream ports.VideoStream) ([]pipeline.SampleBuffer, error) {
	h, err := ParseHeader(stream.Data)
	if err != nil {
		return nil, err
	}

	body := stream.Data[headerSize:]
	if want := h.Frames * h.frameSize(); len(body) != want {
		return nil, fmt.Errorf("%w: raw stream %s holds %d bytes, header needs %d", ports.ErrVideoDecode, stream.Label, len(body), want)
	}

	bufs := make([]pipeline.SampleBuffer, h.Frames)
	for i := range bufs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bufs[i] = readFrame(h, body[i*h.frameSize():])
	}
	return bufs, nil
}

// ParseHeader validates and decodes the header of a raw sub-stream.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic) {
		return Header{}, fmt.Errorf("%w: not a raw video stream", ports.ErrVideoDecode)
	}
	h := Header{
		Width:    int(binary.BigEndian.Uint16(data[4:])),
		Height:   int(binary.BigEndian.Uint16(data[6:])),
		Planes:   int(data[8]),
		BitDepth: int(data[9]),
		Frames:   int(binary.BigEndian.Uint16(data[10:])),
	}
	if h.Width == 0 || h.Height == 0 || h.Planes == 0 || h.BitDepth == 0 || h.BitDepth > 16 {
		return Header{}, fmt.Errorf("%w: invalid raw header %+v", ports.ErrVideoDecode, h)
	}
	return h, nil
}

func readFrame(h Header, data []byte) pipeline.SampleBuffer {
	b := pipeline.NewSampleBuffer(h.Width, h.Height, h.Planes, h.BitDepth)
	size := h.sampleSize()
	off := 0
	for p := 0; p < h.Planes; p++ {
		for i := range b.Planes[p] {
			if size == 1 {
				b.Planes[p][i] = uint16(data[off])
			} else {
				b.Planes[p][i] = binary.BigEndian.Uint16(data[off:])
			}
			off += size
		}
	}
	return b
}

// Encode writes pictures in the raw sub-stream format. All buffers must
// share the size, plane count and bit depth of the first one.
func Encode(bufs []pipeline.SampleBuffer) ([]byte, error) {
	if len(bufs) == 0 {
		return nil, fmt.Errorf("rawvideo: no pictures")
	}
	first := bufs[0]
	h := Header{
		Width:    first.Width,
		Height:   first.Height,
		Planes:   len(first.Planes),
		BitDepth: first.BitDepth,
		Frames:   len(bufs),
	}

	out := make([]byte, headerSize, headerSize+h.Frames*h.frameSize())
	copy(out, magic)
	binary.BigEndian.PutUint16(out[4:], uint16(h.Width))
	binary.BigEndian.PutUint16(out[6:], uint16(h.Height))
	out[8] = byte(h.Planes)
	out[9] = byte(h.BitDepth)
	binary.BigEndian.PutUint16(out[10:], uint16(h.Frames))

	for i, b := range bufs {
		if b.Width != h.Width || b.Height != h.Height || len(b.Planes) != h.Planes || b.BitDepth != h.BitDepth {
			return nil, fmt.Errorf("rawvideo: picture %d differs from picture 0", i)
		}
		for _, plane := range b.Planes {
			for _, v := range plane {
				if h.sampleSize() == 1 {
					out = append(out, byte(v))
				} else {
					out = binary.BigEndian.AppendUint16(out, v)
				}
			}
		}
	}
	return out, nil
}

var _ ports.VideoDecoder = (*Decoder)(nil)
