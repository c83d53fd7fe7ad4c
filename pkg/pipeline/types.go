package pipeline

import (
	"errors"
	"fmt"
)

// =============================================================================
// Point Cloud Types
// =============================================================================

// Point3 is a reconstructed 3D position.
type Point3 struct {
	X float32
	Y float32
	Z float32
}

// Color is an 8-bit RGB color attached to a point.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// ErrColorMismatch is returned by Validate when colors and positions disagree.
var ErrColorMismatch = errors.New("pipeline: colors do not match positions")

// PointCloud is the output of reconstruction for one frame.
// When WithColors is set, Colors has exactly one entry per position;
// otherwise Colors is empty.
type PointCloud struct {
	Positions  []Point3
	Colors     []Color
	WithColors bool
}

// NewPointCloud returns an empty cloud with room for capacity points.
func NewPointCloud(withColors bool, capacity int) PointCloud {
	pc := PointCloud{
		Positions:  make([]Point3, 0, capacity),
		WithColors: withColors,
	}
	if withColors {
		pc.Colors = make([]Color, 0, capacity)
	}
	return pc
}

// Len returns the number of points.
func (pc *PointCloud) Len() int {
	return len(pc.Positions)
}

// Add appends a point. The color is ignored when the cloud has no colors.
func (pc *PointCloud) Add(p Point3, c Color) {
	pc.Positions = append(pc.Positions, p)
	if pc.WithColors {
		pc.Colors = append(pc.Colors, c)
	}
}

// Append concatenates other onto pc. Both clouds must agree on WithColors.
func (pc *PointCloud) Append(other PointCloud) {
	pc.Positions = append(pc.Positions, other.Positions...)
	if pc.WithColors {
		pc.Colors = append(pc.Colors, other.Colors...)
	}
}

// Validate checks the positions/colors length parity.
func (pc *PointCloud) Validate() error {
	if pc.WithColors && len(pc.Colors) != len(pc.Positions) {
		return fmt.Errorf("%w: %d colors for %d positions", ErrColorMismatch, len(pc.Colors), len(pc.Positions))
	}
	if !pc.WithColors && len(pc.Colors) != 0 {
		return fmt.Errorf("%w: %d colors on a cloud without colors", ErrColorMismatch, len(pc.Colors))
	}
	return nil
}

// Frame is a decoded point cloud together with its global frame index.
type Frame struct {
	Index int
	Cloud PointCloud
}

// =============================================================================
// Sample Buffers
// =============================================================================

// SampleBuffer is one decoded 2D video picture stored as planar samples.
// Plane p holds Width*Height samples in raster order.
type SampleBuffer struct {
	Width    int
	Height   int
	BitDepth int
	Planes   [][]uint16
}

// NewSampleBuffer allocates a zeroed buffer.
func NewSampleBuffer(width, height, planes, bitDepth int) SampleBuffer {
	b := SampleBuffer{
		Width:    width,
		Height:   height,
		BitDepth: bitDepth,
		Planes:   make([][]uint16, planes),
	}
	for i := range b.Planes {
		b.Planes[i] = make([]uint16, width*height)
	}
	return b
}

// Empty reports whether the buffer holds no samples.
func (b *SampleBuffer) Empty() bool {
	return b.Width == 0 || b.Height == 0 || len(b.Planes) == 0
}

// Contains reports whether (x, y) lies inside the buffer.
func (b *SampleBuffer) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// At returns the sample of plane p at (x, y). The caller checks bounds.
func (b *SampleBuffer) At(p, x, y int) uint16 {
	return b.Planes[p][y*b.Width+x]
}

// Set stores a sample of plane p at (x, y). The caller checks bounds.
func (b *SampleBuffer) Set(p, x, y int, v uint16) {
	b.Planes[p][y*b.Width+x] = v
}

// Clone returns a deep copy.
func (b *SampleBuffer) Clone() SampleBuffer {
	c := SampleBuffer{
		Width:    b.Width,
		Height:   b.Height,
		BitDepth: b.BitDepth,
		Planes:   make([][]uint16, len(b.Planes)),
	}
	for i, p := range b.Planes {
		c.Planes[i] = append([]uint16(nil), p...)
	}
	return c
}
