package mocks

import (
	"context"
	"sync"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// VideoDecoder is a mock implementation of ports.VideoDecoder. Without
// DecodeFunc it returns Results[stream.Label], or Err.
type VideoDecoder struct {
	mu sync.Mutex

	DecodeFunc func(ctx context.Context, stream ports.VideoStream) ([]pipeline.SampleBuffer, error)
	Results    map[string][]pipeline.SampleBuffer
	Err        error

	Streams []ports.VideoStream
}

// NewVideoDecoder creates a new mock VideoDecoder.
func NewVideoDecoder() *VideoDecoder {
	return &VideoDecoder{Results: make(map[string][]pipeline.SampleBuffer)}
}

func (m *VideoDecoder) Decode(ctx context.Context, stream ports.VideoStream) ([]pipeline.SampleBuffer, error) {
	m.mu.Lock()
	m.Streams = append(m.Streams, stream)
	m.mu.Unlock()

	if m.DecodeFunc != nil {
		return m.DecodeFunc(ctx, stream)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results[stream.Label], nil
}

// Calls returns the streams passed to Decode so far.
func (m *VideoDecoder) Calls() []ports.VideoStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.VideoStream(nil), m.Streams...)
}

var _ ports.VideoDecoder = (*VideoDecoder)(nil)

// ColorConverter is a mock implementation of ports.ColorConverter.
// Without ConvertFunc it returns its input unchanged.
type ColorConverter struct {
	ConvertFunc func(ctx context.Context, bufs []pipeline.SampleBuffer) ([]pipeline.SampleBuffer, error)
	Calls       int
}

func (m *ColorConverter) Convert(ctx context.Context, bufs []pipeline.SampleBuffer) ([]pipeline.SampleBuffer, error) {
	m.Calls++
	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, bufs)
	}
	return bufs, nil
}

var _ ports.ColorConverter = (*ColorConverter)(nil)
