// Package atlas decodes atlas patch data and resolves delta-coded patch lists.
package atlas

import (
	"fmt"
	"image"
)

// Axis is the projection normal axis of a patch.
type Axis uint8

const (
	AxisX Axis = 0
	AxisY Axis = 1
	AxisZ Axis = 2
)

// ProjectionMode selects the near or far projection plane.
type ProjectionMode uint8

const (
	ProjectionNear ProjectionMode = 0
	ProjectionFar  ProjectionMode = 1
)

// Orientation is the patch orientation index, 0..7.
type Orientation uint8

// PLRMode is the point local reconstruction mode of a patch.
type PLRMode uint8

const (
	PLRNone        PLRMode = 0
	PLRFill        PLRMode = 1
	PLRInterpolate PLRMode = 2
)

const maxProjectionID = 5

// projectionFromID splits a projection id into its axis and plane.
func projectionFromID(id uint32) (Axis, ProjectionMode, bool) {
	if id > maxProjectionID {
		return 0, 0, false
	}
	mode := ProjectionNear
	if id >= 3 {
		mode = ProjectionFar
	}
	return Axis(id % 3), mode, true
}

// Patch is one regular patch: a rectangle of video samples and the
// placement used to unproject them.
type Patch struct {
	// X, Y, Width and Height locate the patch in the atlas frame, in samples.
	X      int
	Y      int
	Width  int
	Height int

	// OffsetU, OffsetV and OffsetD place the patch in 3D along the
	// tangent, bitangent and normal axes.
	OffsetU int
	OffsetV int
	OffsetD int

	// RangeD clamps decoded depth values; zero disables clamping.
	RangeD int

	Axis        Axis
	Projection  ProjectionMode
	Orientation Orientation
	PLR         PLRMode
}

// Rect returns the patch rectangle in atlas sample coordinates.
func (p Patch) Rect() image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height)
}

// Validate checks that the patch has a positive size and non-negative offsets.
func (p Patch) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidPatch, p.Width, p.Height)
	}
	if p.X < 0 || p.Y < 0 {
		return fmt.Errorf("%w: position (%d,%d)", ErrInvalidPatch, p.X, p.Y)
	}
	if p.OffsetU < 0 || p.OffsetV < 0 || p.OffsetD < 0 || p.RangeD < 0 {
		return fmt.Errorf("%w: offsets (%d,%d,%d) range %d", ErrInvalidPatch, p.OffsetU, p.OffsetV, p.OffsetD, p.RangeD)
	}
	if p.Orientation > 7 {
		return fmt.Errorf("%w: orientation %d", ErrInvalidPatch, p.Orientation)
	}
	return nil
}

// RawPatch holds points coded directly as coordinates. The rectangle
// carries PointCount X values, then PointCount Y values, then PointCount
// Z values in raster order; each is added to the 3D offset.
type RawPatch struct {
	X          int
	Y          int
	Width      int
	Height     int
	OffsetU    int
	OffsetV    int
	OffsetD    int
	PointCount int
}

// Rect returns the raw patch rectangle.
func (p RawPatch) Rect() image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height)
}

// EOMPatch holds the colors of enhanced occupancy mode points, one per
// sample in raster order.
type EOMPatch struct {
	X          int
	Y          int
	Width      int
	Height     int
	PointCount int
}

// Rect returns the EOM patch rectangle.
func (p EOMPatch) Rect() image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height)
}
