package reconstruct

import (
	"encoding/binary"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/user/vpccdec/pkg/pipeline"
)

// pictures are the buffers of one frame, all at geometry resolution.
type pictures struct {
	occupancy pipeline.SampleBuffer
	geometry  pipeline.SampleBuffer
	texture   pipeline.SampleBuffer
	// precision is the occupancy block size before upscaling.
	precision int
}

func (e *Engine) prepare(in Input) (*pictures, error) {
	geo := in.Geometry
	if geo.Empty() {
		return nil, fmt.Errorf("%w: empty geometry picture", ErrOutOfBounds)
	}

	occ := in.Occupancy
	precision, err := scaleFactor(occ, geo)
	if err != nil {
		return nil, fmt.Errorf("occupancy: %w", err)
	}
	if precision > 1 {
		occ = upscale(occ, geo.Width, geo.Height)
	}
	if e.opts.OccupancySynthesis && precision > 1 {
		occ = occ.Clone()
		synthesizeOccupancy(&occ, &geo, precision)
	}

	pics := &pictures{occupancy: occ, geometry: geo, precision: precision}
	if in.Texture != nil {
		tex := *in.Texture
		if tex.Width != geo.Width || tex.Height != geo.Height {
			if !e.opts.PatchColorSubsampling {
				return nil, fmt.Errorf("%w: attribute picture %dx%d, geometry %dx%d",
					ErrOutOfBounds, tex.Width, tex.Height, geo.Width, geo.Height)
			}
			if _, err := scaleFactor(tex, geo); err != nil {
				return nil, fmt.Errorf("attribute: %w", err)
			}
			tex = upscale(tex, geo.Width, geo.Height)
		}
		pics.texture = tex
	}
	return pics, nil
}

// scaleFactor returns the integer factor by which small must be enlarged
// to match ref.
func scaleFactor(small, ref pipeline.SampleBuffer) (int, error) {
	if small.Empty() {
		return 0, fmt.Errorf("%w: empty picture", ErrOutOfBounds)
	}
	if small.Width > ref.Width || ref.Width%small.Width != 0 || ref.Height%small.Height != 0 {
		return 0, fmt.Errorf("%w: %dx%d is not a divisor of %dx%d",
			ErrOutOfBounds, small.Width, small.Height, ref.Width, ref.Height)
	}
	fx, fy := ref.Width/small.Width, ref.Height/small.Height
	if fx != fy {
		return 0, fmt.Errorf("%w: anisotropic scale %dx%d", ErrOutOfBounds, fx, fy)
	}
	return fx, nil
}

// upscale enlarges every plane to width x height with nearest-neighbour
// sampling.
func upscale(b pipeline.SampleBuffer, width, height int) pipeline.SampleBuffer {
	out := pipeline.NewSampleBuffer(width, height, len(b.Planes), b.BitDepth)
	for p := range b.Planes {
		src := toGray16(b, p)
		dst := image.NewGray16(image.Rect(0, 0, width, height))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		fromGray16(dst, out.Planes[p])
	}
	return out
}

func toGray16(b pipeline.SampleBuffer, plane int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, b.Width, b.Height))
	for i, v := range b.Planes[plane] {
		binary.BigEndian.PutUint16(img.Pix[2*i:], v)
	}
	return img
}

func fromGray16(img *image.Gray16, dst []uint16) {
	for i := range dst {
		dst[i] = binary.BigEndian.Uint16(img.Pix[2*i:])
	}
}

// synthesizeOccupancy clears occupied samples on the border of each
// precision block whose geometry sample is zero.
func synthesizeOccupancy(occ, geo *pipeline.SampleBuffer, block int) {
	for y := 0; y < occ.Height; y++ {
		for x := 0; x < occ.Width; x++ {
			if occ.At(0, x, y) == 0 || geo.At(0, x, y) != 0 {
				continue
			}
			bx, by := x%block, y%block
			if bx == 0 || by == 0 || bx == block-1 || by == block-1 {
				occ.Set(0, x, y, 0)
			}
		}
	}
}
