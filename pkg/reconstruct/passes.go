package reconstruct

import (
	"fmt"
	"math"

	"github.com/user/vpccdec/pkg/atlas"
	"github.com/user/vpccdec/pkg/pipeline"
)

const smoothingGrid = 8

// deinterleave adds a second point for samples on the even checkerboard
// cells whose right neighbour carries a different depth.
func (b *builder) deinterleave(patches []atlas.Patch, baseline int) {
	for i := 0; i < baseline; i++ {
		m := b.meta[i]
		p := patches[m.patch]
		if (p.X+m.lx+p.Y+m.ly)%2 != 0 {
			continue
		}
		nd, ok := b.neighbourDepth(p, m.lx+1, m.ly)
		if !ok || nd == m.depth {
			continue
		}
		b.cloud.Add(place(p, m.lx, m.ly, nd), b.colorOf(i))
	}
}

// pointLocal applies each patch's PLR mode to its baseline points.
func (b *builder) pointLocal(patches []atlas.Patch, baseline int) {
	for i := 0; i < baseline; i++ {
		m := b.meta[i]
		p := patches[m.patch]
		switch p.PLR {
		case atlas.PLRFill:
			b.cloud.Add(place(p, m.lx, m.ly, m.depth+1), b.colorOf(i))
		case atlas.PLRInterpolate:
			nd, ok := b.neighbourDepth(p, m.lx+1, m.ly)
			if !ok {
				continue
			}
			gap := nd - m.depth
			if gap < 0 {
				gap = -gap
			}
			if gap > 1 {
				b.cloud.Add(place(p, m.lx, m.ly, (m.depth+nd)/2), b.colorOf(i))
			}
		}
	}
}

func (b *builder) neighbourDepth(p atlas.Patch, lx, ly int) (int, bool) {
	if lx >= p.Width || ly >= p.Height {
		return 0, false
	}
	ax, ay := p.X+lx, p.Y+ly
	if b.pics.occupancy.At(0, ax, ay) == 0 {
		return 0, false
	}
	return b.depth(p, ax, ay), true
}

// enhancedOccupancy adds a point for every set occupancy bit 1..bits of
// each baseline sample. Colors come from the EOM patches in order, then
// from the surface point once they run out.
func (b *builder) enhancedOccupancy(patches []atlas.Patch, eom []atlas.EOMPatch, bits, baseline int) error {
	if bits < 1 {
		bits = 1
	}

	var colors []pipeline.Color
	if b.cloud.WithColors {
		for i, ep := range eom {
			if err := b.checkRect(ep.Rect()); err != nil {
				return fmt.Errorf("eom patch %d: %w", i, err)
			}
			n := min(ep.PointCount, ep.Width*ep.Height)
			for k := 0; k < n; k++ {
				colors = append(colors, b.color(ep.X+k%ep.Width, ep.Y+k/ep.Width))
			}
		}
	}

	next := 0
	for i := 0; i < baseline; i++ {
		m := b.meta[i]
		p := patches[m.patch]
		occ := b.pics.occupancy.At(0, p.X+m.lx, p.Y+m.ly)
		for bit := 1; bit <= bits; bit++ {
			if occ&(1<<uint(bit)) == 0 {
				continue
			}
			c := b.colorOf(i)
			if next < len(colors) {
				c = colors[next]
			}
			next++
			b.cloud.Add(place(p, m.lx, m.ly, m.depth+bit), c)
		}
	}
	return nil
}

// raw adds the directly coded points of rp.
func (b *builder) raw(rp atlas.RawPatch) error {
	if err := b.checkRect(rp.Rect()); err != nil {
		return err
	}
	n := rp.PointCount
	if 3*n > rp.Width*rp.Height {
		return fmt.Errorf("%w: %d raw points do not fit %dx%d", ErrOutOfBounds, n, rp.Width, rp.Height)
	}

	sample := func(k int) int {
		return int(b.pics.geometry.At(0, rp.X+k%rp.Width, rp.Y+k/rp.Width))
	}
	for k := 0; k < n; k++ {
		pos := pipeline.Point3{
			X: float32(rp.OffsetU + sample(k)),
			Y: float32(rp.OffsetV + sample(n+k)),
			Z: float32(rp.OffsetD + sample(2*n+k)),
		}
		b.cloud.Add(pos, b.color(rp.X+k%rp.Width, rp.Y+k/rp.Width))
	}
	return nil
}

// removeDuplicates keeps the first point at each position.
func removeDuplicates(pc pipeline.PointCloud) pipeline.PointCloud {
	seen := make(map[pipeline.Point3]struct{}, pc.Len())
	out := pipeline.NewPointCloud(pc.WithColors, pc.Len())
	for i, p := range pc.Positions {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		var c pipeline.Color
		if pc.WithColors {
			c = pc.Colors[i]
		}
		out.Add(p, c)
	}
	return out
}

type cellKey [3]int32

func cellOf(p pipeline.Point3, grid float64) cellKey {
	return cellKey{
		int32(math.Floor(float64(p.X) / grid)),
		int32(math.Floor(float64(p.Y) / grid)),
		int32(math.Floor(float64(p.Z) / grid)),
	}
}

type accumulator struct {
	sum [3]float64
	n   int
}

func (a *accumulator) add(x, y, z float64) {
	a.sum[0] += x
	a.sum[1] += y
	a.sum[2] += z
	a.n++
}

func (a *accumulator) mean() [3]float64 {
	return [3]float64{a.sum[0] / float64(a.n), a.sum[1] / float64(a.n), a.sum[2] / float64(a.n)}
}

// smoothGeometry moves each point halfway to the centroid of its grid
// cell when the cell holds at least two points.
func smoothGeometry(pc *pipeline.PointCloud, grid float64) {
	cells := make(map[cellKey]*accumulator)
	for _, p := range pc.Positions {
		k := cellOf(p, grid)
		a, ok := cells[k]
		if !ok {
			a = &accumulator{}
			cells[k] = a
		}
		a.add(float64(p.X), float64(p.Y), float64(p.Z))
	}
	for i, p := range pc.Positions {
		a := cells[cellOf(p, grid)]
		if a.n < 2 {
			continue
		}
		c := a.mean()
		pc.Positions[i] = pipeline.Point3{
			X: float32((float64(p.X) + c[0]) / 2),
			Y: float32((float64(p.Y) + c[1]) / 2),
			Z: float32((float64(p.Z) + c[2]) / 2),
		}
	}
}

// transferAttributes gives points at identical positions their mean color.
func transferAttributes(pc *pipeline.PointCloud) {
	groups := make(map[pipeline.Point3]*accumulator)
	for i, p := range pc.Positions {
		a, ok := groups[p]
		if !ok {
			a = &accumulator{}
			groups[p] = a
		}
		c := pc.Colors[i]
		a.add(float64(c.R), float64(c.G), float64(c.B))
	}
	for i, p := range pc.Positions {
		if a := groups[p]; a.n > 1 {
			pc.Colors[i] = toColor(a.mean())
		}
	}
}

// smoothAttributes blends each color halfway to the mean color of its
// grid cell when the cell holds at least two points.
func smoothAttributes(pc *pipeline.PointCloud, grid float64) {
	cells := make(map[cellKey]*accumulator)
	for i, p := range pc.Positions {
		k := cellOf(p, grid)
		a, ok := cells[k]
		if !ok {
			a = &accumulator{}
			cells[k] = a
		}
		c := pc.Colors[i]
		a.add(float64(c.R), float64(c.G), float64(c.B))
	}
	for i, p := range pc.Positions {
		a := cells[cellOf(p, grid)]
		if a.n < 2 {
			continue
		}
		m := a.mean()
		c := pc.Colors[i]
		pc.Colors[i] = toColor([3]float64{
			(float64(c.R) + m[0]) / 2,
			(float64(c.G) + m[1]) / 2,
			(float64(c.B) + m[2]) / 2,
		})
	}
}

func toColor(v [3]float64) pipeline.Color {
	clamp := func(f float64) uint8 {
		return uint8(math.Max(0, math.Min(255, math.Round(f))))
	}
	return pipeline.Color{R: clamp(v[0]), G: clamp(v[1]), B: clamp(v[2])}
}
