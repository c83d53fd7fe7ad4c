package mocks

import (
	"image"
	"sync"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Units      map[int][]byte
	UnitTypes  map[int]string
	Substreams map[string][]byte
	Frames     []pipeline.Frame
	Previews   map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:    enabled,
		Units:      make(map[int][]byte),
		UnitTypes:  make(map[int]string),
		Substreams: make(map[string][]byte),
		Previews:   make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveUnit(index int, unitType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Units[index] = data
	m.UnitTypes[index] = unitType
	return nil
}

func (m *DebugSink) SaveSubstream(label string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Substreams[label] = data
	return nil
}

func (m *DebugSink) SaveFrame(frame pipeline.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, frame)
	return nil
}

func (m *DebugSink) SavePreview(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Previews[index] = img
	return nil
}

// FrameCount returns the number of saved frames.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Frames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
