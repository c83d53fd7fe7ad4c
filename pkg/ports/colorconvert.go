package ports

import (
	"context"

	"github.com/user/vpccdec/pkg/pipeline"
)

// ColorConverter converts decoded attribute pictures to RGB.
type ColorConverter interface {
	// Convert returns the converted buffers, one per input buffer.
	Convert(ctx context.Context, bufs []pipeline.SampleBuffer) ([]pipeline.SampleBuffer, error)
}
