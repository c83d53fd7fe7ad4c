package ports

import (
	"image"

	"github.com/user/vpccdec/pkg/pipeline"
)

// DebugSink receives intermediate decode results.
// Every method is a no-op when the sink is disabled.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveUnit saves the raw bytes of a V3C unit.
	SaveUnit(index int, unitType string, data []byte) error

	// SaveSubstream saves a compressed video sub-stream as carried in the bitstream.
	SaveSubstream(label string, data []byte) error

	// SaveFrame saves a reconstructed frame.
	SaveFrame(frame pipeline.Frame) error

	// SavePreview saves a rendered preview of a frame.
	SavePreview(index int, img image.Image) error
}
