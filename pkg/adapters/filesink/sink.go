// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
	"github.com/user/vpccdec/pkg/writer"
)

// Sink saves debug output to files under a base directory:
//
//	units/unit-00000-VPS.bin
//	substreams/<label>.bin
//	frames/frame-0000.ply
//	previews/frame-0000.png
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.PreviewRenderer
	format   writer.Format
	preview  ports.ImageFormat
}

// New creates a new FileSink. Frames are written as ASCII PLY.
func New(baseDir string, fs ports.FileSystem, renderer ports.PreviewRenderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
		format:   writer.FormatASCII,
		preview:  ports.FormatPNG,
	}
}

// WithFormat sets the PLY encoding used by SaveFrame.
func (s *Sink) WithFormat(f writer.Format) *Sink {
	s.format = f
	return s
}

// WithPreviewFormat sets the image format used by SavePreview.
func (s *Sink) WithPreviewFormat(f ports.ImageFormat) *Sink {
	s.preview = f
	return s
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveUnit saves the raw bytes of a V3C unit.
func (s *Sink) SaveUnit(index int, unitType string, data []byte) error {
	name := fmt.Sprintf("unit-%05d-%s.bin", index, safeName(unitType))
	return s.write("units", name, data)
}

// SaveSubstream saves a compressed video sub-stream.
func (s *Sink) SaveSubstream(label string, data []byte) error {
	return s.write("substreams", safeName(label)+".bin", data)
}

// SaveFrame saves a reconstructed frame as PLY.
func (s *Sink) SaveFrame(frame pipeline.Frame) error {
	data, err := writer.Marshal(frame.Cloud, s.format)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", frame.Index, err)
	}
	return s.write("frames", fmt.Sprintf("frame-%04d.ply", frame.Index), data)
}

// SavePreview saves a rendered preview image.
func (s *Sink) SavePreview(index int, img image.Image) error {
	data, err := s.renderer.EncodeImage(img, s.preview, 90)
	if err != nil {
		return fmt.Errorf("encode preview %d: %w", index, err)
	}
	return s.write("previews", fmt.Sprintf("frame-%04d.%s", index, s.preview.Ext()), data)
}

func (s *Sink) write(subdir, name string, data []byte) error {
	dir := filepath.Join(s.baseDir, subdir)
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(dir, name), data)
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '(', ')', '[', ']', '=':
			return '_'
		}
		return r
	}, s)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
