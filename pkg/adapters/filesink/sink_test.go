package filesink

import (
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/vpccdec/pkg/mocks"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
	"github.com/user/vpccdec/pkg/writer"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{})

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveUnit(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	data := []byte{0x00, 0x01, 0x02}
	if err := sink.SaveUnit(3, "AVD", data); err != nil {
		t.Fatalf("SaveUnit failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "units", "unit-00003-AVD.bin")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	if string(saved) != string(data) {
		t.Errorf("expected %v, got %v", data, saved)
	}
}

func TestSink_SaveSubstream(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	if err := sink.SaveSubstream("atlas0 attribute[0]", []byte{1}); err != nil {
		t.Fatalf("SaveSubstream failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "substreams", "atlas0_attribute_0_.bin")
	if _, ok := fs.GetFile(expectedPath); !ok {
		t.Errorf("expected file to be saved at %s, have %v", expectedPath, fs.GetAllFiles())
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	cloud := pipeline.NewPointCloud(false, 1)
	cloud.Add(pipeline.Point3{X: 1, Y: 2, Z: 3}, pipeline.Color{})
	if err := sink.SaveFrame(pipeline.Frame{Index: 7, Cloud: cloud}); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "frames", "frame-0007.ply")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	if !strings.HasPrefix(string(saved), "ply\nformat ascii 1.0\n") {
		t.Errorf("unexpected PLY header: %q", saved)
	}
}

func TestSink_SaveFrameBinary(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{}).WithFormat(writer.FormatBinary)

	if err := sink.SaveFrame(pipeline.Frame{Index: 0, Cloud: pipeline.NewPointCloud(true, 0)}); err != nil {
		t.Fatal(err)
	}
	saved, _ := fs.GetFile(filepath.Join(testBaseDir, "frames", "frame-0000.ply"))
	if !strings.Contains(string(saved), "binary_little_endian") {
		t.Errorf("expected binary PLY, got %q", saved)
	}
}

func TestSink_SavePreview(t *testing.T) {
	fs := mocks.NewFileSystem()
	var gotFormat ports.ImageFormat = -1
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			gotFormat = format
			return []byte{0x89, 0x50, 0x4E, 0x47}, nil
		},
	}
	sink := New(testBaseDir, fs, renderer)

	if err := sink.SavePreview(5, image.NewRGBA(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatalf("SavePreview failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "previews", "frame-0005.png")
	if _, ok := fs.GetFile(expectedPath); !ok {
		t.Errorf("expected file to be saved at %s", expectedPath)
	}
	if gotFormat != ports.FormatPNG {
		t.Errorf("expected PNG encoding, got %d", gotFormat)
	}
}

func TestSink_SavePreviewWebP(t *testing.T) {
	fs := mocks.NewFileSystem()
	var gotFormat ports.ImageFormat = -1
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			gotFormat = format
			return []byte("RIFF"), nil
		},
	}
	sink := New(testBaseDir, fs, renderer).WithPreviewFormat(ports.FormatWebP)

	if err := sink.SavePreview(2, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("SavePreview failed: %v", err)
	}
	if _, ok := fs.GetFile(filepath.Join(testBaseDir, "previews", "frame-0002.webp")); !ok {
		t.Error("expected a .webp preview")
	}
	if gotFormat != ports.FormatWebP {
		t.Errorf("expected WebP encoding, got %d", gotFormat)
	}
}

func TestSink_SavePreviewEncodeError(t *testing.T) {
	fs := mocks.NewFileSystem()
	boom := errors.New("boom")
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(image.Image, ports.ImageFormat, int) ([]byte, error) {
			return nil, boom
		},
	}
	sink := New(testBaseDir, fs, renderer)

	if err := sink.SavePreview(0, image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, boom) {
		t.Errorf("expected wrapped encode error, got %v", err)
	}
	if len(fs.GetAllFiles()) != 0 {
		t.Error("nothing should be written on encode failure")
	}
}

func TestSink_MultipleUnits(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	for i := 0; i < 10; i++ {
		if err := sink.SaveUnit(i, "AD", []byte{0xFF}); err != nil {
			t.Fatalf("SaveUnit %d failed: %v", i, err)
		}
	}

	if count := len(fs.GetAllFiles()); count != 10 {
		t.Errorf("expected 10 files, got %d", count)
	}
}
