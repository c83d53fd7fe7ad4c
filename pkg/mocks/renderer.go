package mocks

import (
	"image"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// Renderer is a mock implementation of ports.PreviewRenderer.
type Renderer struct {
	RenderFunc      func(cloud pipeline.PointCloud, opts ports.PreviewOptions) image.Image
	EncodeImageFunc func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)

	Rendered []ports.PreviewOptions
}

func (m *Renderer) Render(cloud pipeline.PointCloud, opts ports.PreviewOptions) image.Image {
	m.Rendered = append(m.Rendered, opts)
	if m.RenderFunc != nil {
		return m.RenderFunc(cloud, opts)
	}
	return image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

var _ ports.PreviewRenderer = (*Renderer)(nil)
