// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
// It discards all debug output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveUnit does nothing.
func (s *Sink) SaveUnit(index int, unitType string, data []byte) error {
	return nil
}

// SaveSubstream does nothing.
func (s *Sink) SaveSubstream(label string, data []byte) error {
	return nil
}

// SaveFrame does nothing.
func (s *Sink) SaveFrame(frame pipeline.Frame) error {
	return nil
}

// SavePreview does nothing.
func (s *Sink) SavePreview(index int, img image.Image) error {
	return nil
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
