// Package ggpreview renders flat previews of point clouds using the gg library.
package ggpreview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"sort"

	"github.com/HugoSmits86/nativewebp"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

const (
	// supersample is the oversampling factor applied before the final scale.
	supersample = 2
	margin      = 0.05
)

// DefaultOptions returns a 512x512 preview looking along Z.
func DefaultOptions() ports.PreviewOptions {
	return ports.PreviewOptions{
		Width:      512,
		Height:     512,
		Axis:       2,
		PointSize:  1,
		Background: color.Black,
		Foreground: color.White,
	}
}

// Renderer implements ports.PreviewRenderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render draws an orthographic projection of cloud. Points further along
// the viewing axis are drawn on top.
func (r *Renderer) Render(cloud pipeline.PointCloud, opts ports.PreviewOptions) image.Image {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	if opts.Foreground == nil {
		opts.Foreground = color.White
	}
	size := opts.PointSize
	if size <= 0 {
		size = 1
	}

	w, h := opts.Width*supersample, opts.Height*supersample
	dc := gg.NewContext(w, h)
	dc.SetColor(opts.Background)
	dc.Clear()

	if cloud.Len() > 0 {
		proj := newProjection(cloud.Positions, opts.Axis, w, h)
		for _, i := range proj.order {
			x, y := proj.point(cloud.Positions[i])
			if cloud.WithColors {
				c := cloud.Colors[i]
				dc.SetRGB255(int(c.R), int(c.G), int(c.B))
			} else {
				dc.SetColor(opts.Foreground)
			}
			s := size * supersample
			dc.DrawRectangle(x-s/2, y-s/2, s, s)
			dc.Fill()
		}
	}

	if opts.Caption != "" {
		dc.SetColor(opts.Foreground)
		dc.DrawStringAnchored(opts.Caption, 8*supersample, float64(h)-8*supersample, 0, 0)
	}

	return downscale(dc.Image(), opts.Width, opts.Height)
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	case ports.FormatWebP:
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("encode WebP: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

func downscale(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// projection maps 3D positions onto the image plane of one axis.
type projection struct {
	n, t, b    int
	minT, minB float64
	scale      float64
	offX, offY float64
	height     float64
	order      []int
}

func newProjection(pts []pipeline.Point3, axis, width, height int) *projection {
	p := &projection{n: axis % 3}
	p.t, p.b = planeAxes(p.n)
	p.height = float64(height)

	minT, maxT := math.Inf(1), math.Inf(-1)
	minB, maxB := math.Inf(1), math.Inf(-1)
	for _, pt := range pts {
		t, b := coord(pt, p.t), coord(pt, p.b)
		minT, maxT = math.Min(minT, t), math.Max(maxT, t)
		minB, maxB = math.Min(minB, b), math.Max(maxB, b)
	}
	spanT := math.Max(maxT-minT, 1)
	spanB := math.Max(maxB-minB, 1)

	usableW := float64(width) * (1 - 2*margin)
	usableH := float64(height) * (1 - 2*margin)
	p.scale = math.Min(usableW/spanT, usableH/spanB)
	p.minT, p.minB = minT, minB
	p.offX = (float64(width) - spanT*p.scale) / 2
	p.offY = (float64(height) - spanB*p.scale) / 2

	p.order = make([]int, len(pts))
	for i := range p.order {
		p.order[i] = i
	}
	sort.SliceStable(p.order, func(i, j int) bool {
		return coord(pts[p.order[i]], p.n) < coord(pts[p.order[j]], p.n)
	})
	return p
}

func (p *projection) point(pt pipeline.Point3) (float64, float64) {
	x := p.offX + (coord(pt, p.t)-p.minT)*p.scale
	y := p.offY + (coord(pt, p.b)-p.minB)*p.scale
	return x, p.height - y
}

// planeAxes returns the horizontal and vertical axes seen when looking
// along axis n.
func planeAxes(n int) (int, int) {
	switch n {
	case 0:
		return 2, 1
	case 1:
		return 2, 0
	default:
		return 0, 1
	}
}

func coord(p pipeline.Point3, axis int) float64 {
	switch axis {
	case 0:
		return float64(p.X)
	case 1:
		return float64(p.Y)
	default:
		return float64(p.Z)
	}
}

// Ensure Renderer implements ports.PreviewRenderer
var _ ports.PreviewRenderer = (*Renderer)(nil)
