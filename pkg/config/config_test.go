package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/vpccdec/pkg/decoder"
	"github.com/user/vpccdec/pkg/orchestrator"
	"github.com/user/vpccdec/pkg/ports"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpccdec.yaml")
	yaml := `
input: longdress.bin
output: out
video_decoder_path: /usr/local/bin/ffmpeg
keep_intermediate_files: true
intermediate_dir: work
failure_policy: abort
reconstruction:
  point_local_reconstruction: true
  raw_points: true
logging:
  level: debug
  file: vpccdec.log
preview:
  axis: x
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Input != "longdress.bin" || cfg.OutputDir != "out" || cfg.OutputFormat != "ascii" {
		t.Errorf("io settings = %q %q %q", cfg.Input, cfg.OutputDir, cfg.OutputFormat)
	}
	if cfg.Logging.LogLevel() != ports.LevelDebug || cfg.Logging.FileConfig().Path != "vpccdec.log" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != 50 || cfg.Preview.Width != 512 {
		t.Error("keys missing from the file should keep their defaults")
	}

	params, err := cfg.ToParams()
	if err != nil {
		t.Fatalf("ToParams: %v", err)
	}
	if params.Source.Path() != "longdress.bin" || params.VideoDecoderPath != "/usr/local/bin/ffmpeg" {
		t.Errorf("params = %+v", params)
	}
	if !params.KeepIntermediateFiles || params.IntermediateDir != "work" {
		t.Errorf("intermediate = %v %q", params.KeepIntermediateFiles, params.IntermediateDir)
	}
	if params.FailurePolicy != orchestrator.Abort {
		t.Errorf("failure policy = %s", params.FailurePolicy)
	}
	want := decoder.Reconstruction{PointLocalReconstruction: true, RawPoints: true}
	if params.Reconstruction != want {
		t.Errorf("reconstruction = %+v", params.Reconstruction)
	}
	if params.Preview.Axis != 0 || params.Preview.Background != (color.RGBA{A: 255}) {
		t.Errorf("preview = %+v", params.Preview)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("input: [unterminated"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestToParams_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		is     error
	}{
		{"no input", func(c *Config) {}, decoder.ErrNoSource},
		{"bad policy", func(c *Config) { c.Input = "a.bin"; c.FailurePolicy = "retry" }, nil},
		{"bad axis", func(c *Config) { c.Input = "a.bin"; c.Preview.Axis = "w" }, nil},
		{"tool without config", func(c *Config) { c.Input = "a.bin"; c.ColorSpaceConversionPath = "/opt/convert" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			_, err := cfg.ToParams()
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#1a1a2e", color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 255}},
		{"FFFFFF", color.RGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#fff", color.Black},
		{"#zzzzzz", color.Black},
		{"", color.Black},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPreviewConfig_ImageFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ports.ImageFormat
		wantErr bool
	}{
		{"", ports.FormatPNG, false},
		{"png", ports.FormatPNG, false},
		{"JPEG", ports.FormatJPEG, false},
		{"webp", ports.FormatWebP, false},
		{"gif", ports.FormatPNG, true},
	}
	for _, tt := range tests {
		got, err := PreviewConfig{Format: tt.in}.ImageFormat()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ImageFormat(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseAxis(t *testing.T) {
	for in, want := range map[string]int{"x": 0, "Y": 1, "z": 2, "": 2} {
		got, err := ParseAxis(in)
		if err != nil || got != want {
			t.Errorf("ParseAxis(%q) = %d, %v", in, got, err)
		}
	}
}

func TestReconstructionConfig_Enable(t *testing.T) {
	var r ReconstructionConfig
	if err := r.Enable("raw-points", " Geometry_Smoothing "); err != nil {
		t.Fatal(err)
	}
	if got := r.Enabled(); len(got) != 2 || got[0] != "raw_points" || got[1] != "geometry_smoothing" {
		t.Errorf("Enabled = %v", got)
	}

	if err := r.Enable("teleportation"); err == nil {
		t.Error("unknown pass should be rejected")
	}

	var all ReconstructionConfig
	all.Enable("all")
	if all.toDecoder() != decoder.All() {
		t.Errorf("all = %+v", all)
	}
}
