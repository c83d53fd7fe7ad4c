package ports

import (
	"image"
	"image/color"

	"github.com/user/vpccdec/pkg/pipeline"
)

// PreviewRenderer draws point clouds as flat images.
type PreviewRenderer interface {
	// Render projects a cloud onto the plane orthogonal to opts.Axis.
	Render(cloud pipeline.PointCloud, opts PreviewOptions) image.Image

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)
}

// PreviewOptions configures preview rendering.
type PreviewOptions struct {
	Width      int
	Height     int
	Axis       int // 0 looks along X, 1 along Y, 2 along Z
	PointSize  float64
	Background color.Color
	// Foreground is used for clouds without colors.
	Foreground color.Color
	Caption    string
}

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	FormatWebP
)

// Ext returns the file extension of the format, without the dot.
func (f ImageFormat) Ext() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatWebP:
		return "webp"
	default:
		return "png"
	}
}
