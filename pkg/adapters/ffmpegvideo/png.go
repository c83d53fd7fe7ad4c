package ffmpegvideo

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// readPictures loads frame_00001.png, frame_00002.png, ... until the first
// missing file.
func readPictures(fs ports.FileSystem, dir string, stream ports.VideoStream, preserveYUV bool) ([]pipeline.SampleBuffer, error) {
	var bufs []pipeline.SampleBuffer
	for i := 1; ; i++ {
		path := filepath.Join(dir, fmt.Sprintf(framePattern, i))
		ok, err := fs.Exists(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return bufs, nil
		}

		data, err := fs.ReadFile(path)
		if err != nil {
			return nil, err
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		bufs = append(bufs, toSampleBuffer(img, stream, preserveYUV))
	}
}

// toSampleBuffer converts a decoded picture to planar samples at the
// stream's bit depth.
func toSampleBuffer(img image.Image, stream ports.VideoStream, preserveYUV bool) pipeline.SampleBuffer {
	bounds := img.Bounds()
	depth := stream.BitDepth
	if depth <= 0 || depth > 16 {
		depth = 8
	}
	shift := uint(16 - depth)

	planes := 1
	if stream.Planes > 1 {
		planes = 3
	}
	b := pipeline.NewSampleBuffer(bounds.Dx(), bounds.Dy(), planes, depth)

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			if planes == 1 {
				g := color.Gray16Model.Convert(c).(color.Gray16)
				b.Set(0, x, y, g.Y>>shift)
				continue
			}
			r, g, bl, _ := c.RGBA()
			if preserveYUV {
				// Y, U and V travel in G, B and R.
				r, g, bl = g, bl, r
			}
			b.Set(0, x, y, uint16(r)>>shift)
			b.Set(1, x, y, uint16(g)>>shift)
			b.Set(2, x, y, uint16(bl)>>shift)
		}
	}
	return b
}
