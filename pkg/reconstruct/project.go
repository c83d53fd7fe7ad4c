package reconstruct

import (
	"fmt"
	"image"

	"github.com/user/vpccdec/pkg/atlas"
	"github.com/user/vpccdec/pkg/pipeline"
)

// pointMeta remembers where a baseline point came from so later passes
// can revisit its sample.
type pointMeta struct {
	patch  int
	lx, ly int
	depth  int
}

type builder struct {
	pics  *pictures
	cloud pipeline.PointCloud
	meta  []pointMeta
}

func newBuilder(pics *pictures, withColors bool) *builder {
	return &builder{
		pics:  pics,
		cloud: pipeline.NewPointCloud(withColors, 0),
	}
}

// patch unprojects the occupied samples of p in raster order.
func (b *builder) patch(idx int, p atlas.Patch) error {
	if err := b.checkRect(p.Rect()); err != nil {
		return err
	}
	for ly := 0; ly < p.Height; ly++ {
		for lx := 0; lx < p.Width; lx++ {
			ax, ay := p.X+lx, p.Y+ly
			if b.pics.occupancy.At(0, ax, ay) == 0 {
				continue
			}
			d := b.depth(p, ax, ay)
			b.cloud.Add(place(p, lx, ly, d), b.color(ax, ay))
			b.meta = append(b.meta, pointMeta{patch: idx, lx: lx, ly: ly, depth: d})
		}
	}
	return nil
}

func (b *builder) checkRect(r image.Rectangle) error {
	bounds := image.Rect(0, 0, b.pics.geometry.Width, b.pics.geometry.Height)
	if r.Empty() || !r.In(bounds) {
		return fmt.Errorf("%w: rect %v outside %v", ErrOutOfBounds, r, bounds)
	}
	return nil
}

// depth reads the geometry sample at (ax, ay), clamped to the patch range.
func (b *builder) depth(p atlas.Patch, ax, ay int) int {
	d := int(b.pics.geometry.At(0, ax, ay))
	if p.RangeD > 0 && d > p.RangeD {
		d = p.RangeD
	}
	return d
}

// color reads the texture at (ax, ay) scaled to 8 bits.
func (b *builder) color(ax, ay int) pipeline.Color {
	if !b.cloud.WithColors {
		return pipeline.Color{}
	}
	tex := &b.pics.texture
	var c [3]uint16
	for i := range c {
		plane := i
		if plane >= len(tex.Planes) {
			plane = 0
		}
		c[i] = to8(tex.At(plane, ax, ay), tex.BitDepth)
	}
	return pipeline.Color{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2])}
}

// colorOf returns the color already assigned to point i.
func (b *builder) colorOf(i int) pipeline.Color {
	if !b.cloud.WithColors {
		return pipeline.Color{}
	}
	return b.cloud.Colors[i]
}

func to8(v uint16, bitDepth int) uint16 {
	if bitDepth > 8 {
		v >>= uint(bitDepth - 8)
	}
	if v > 255 {
		v = 255
	}
	return v
}

// place unprojects local sample (lx, ly) of p at depth d.
func place(p atlas.Patch, lx, ly, d int) pipeline.Point3 {
	u, v := orient(p.Orientation, lx, ly, p.Width, p.Height)
	n := int(p.Axis)
	t, bt := tangentAxes(n)

	var pos [3]int
	if p.Projection == atlas.ProjectionFar {
		pos[n] = p.OffsetD - d
	} else {
		pos[n] = p.OffsetD + d
	}
	pos[t] = p.OffsetU + u
	pos[bt] = p.OffsetV + v

	return pipeline.Point3{X: float32(pos[0]), Y: float32(pos[1]), Z: float32(pos[2])}
}

// tangentAxes returns the tangent and bitangent axes of normal axis n.
func tangentAxes(n int) (int, int) {
	switch n {
	case 0:
		return 2, 1
	case 1:
		return 2, 0
	default:
		return 0, 1
	}
}

// orient maps local rect coordinates to patch (u, v).
func orient(o atlas.Orientation, lx, ly, w, h int) (int, int) {
	switch o {
	case 1:
		return ly, lx
	case 2:
		return ly, w - 1 - lx
	case 3:
		return w - 1 - lx, h - 1 - ly
	case 4:
		return h - 1 - ly, lx
	case 5:
		return w - 1 - lx, ly
	case 6:
		return h - 1 - ly, w - 1 - lx
	case 7:
		return lx, h - 1 - ly
	default:
		return lx, ly
	}
}
