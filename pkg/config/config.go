// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/vpccdec/pkg/adapters/logger"
	"github.com/user/vpccdec/pkg/decoder"
	"github.com/user/vpccdec/pkg/orchestrator"
	"github.com/user/vpccdec/pkg/ports"
	"github.com/user/vpccdec/pkg/writer"
)

// Config represents the full configuration for vpccdec.
type Config struct {
	// Input/Output
	Input        string `yaml:"input"`
	OutputDir    string `yaml:"output"`
	OutputFormat string `yaml:"output_format"`

	// Video
	VideoDecoderPath      string `yaml:"video_decoder_path"`
	KeepIntermediateFiles bool   `yaml:"keep_intermediate_files"`
	IntermediateDir       string `yaml:"intermediate_dir"`

	// Color
	PatchColorSubsampling             bool   `yaml:"patch_color_subsampling"`
	ColorSpaceConversionPath          string `yaml:"color_space_conversion_path"`
	InverseColorSpaceConversionConfig string `yaml:"inverse_color_space_conversion_config"`

	Reconstruction ReconstructionConfig `yaml:"reconstruction"`
	FailurePolicy  string               `yaml:"failure_policy"`

	Logging LoggingConfig `yaml:"logging"`

	// Debug
	Debug    bool          `yaml:"debug"`
	DebugDir string        `yaml:"debug_dir"`
	Preview  PreviewConfig `yaml:"preview"`
}

// ReconstructionConfig switches the optional reconstruction passes.
type ReconstructionConfig struct {
	PixelDeinterleaving      bool `yaml:"pixel_deinterleaving"`
	PointLocalReconstruction bool `yaml:"point_local_reconstruction"`
	EnhancedOccupancy        bool `yaml:"enhanced_occupancy"`
	DuplicatedPointRemoval   bool `yaml:"duplicated_point_removal"`
	RawPoints                bool `yaml:"raw_points"`
	GeometrySmoothing        bool `yaml:"geometry_smoothing"`
	AttributeSmoothing       bool `yaml:"attribute_smoothing"`
	AttributeTransferFilter  bool `yaml:"attribute_transfer_filter"`
	OccupancySynthesis       bool `yaml:"occupancy_synthesis"`
}

// LoggingConfig represents log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// PreviewConfig represents the debug preview images.
type PreviewConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Axis       string  `yaml:"axis"`
	PointSize  float64 `yaml:"point_size"`
	Background string  `yaml:"background"`
	Foreground string  `yaml:"foreground"`
	Format     string  `yaml:"format"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	file := logger.DefaultFileConfig("")
	return Config{
		OutputDir:     "./frames",
		OutputFormat:  writer.FormatASCII.String(),
		FailurePolicy: orchestrator.SkipFrame.String(),

		Logging: LoggingConfig{
			Level:      ports.LevelInfo.String(),
			MaxSizeMB:  file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAgeDays: file.MaxAgeDays,
			Compress:   file.Compress,
		},

		DebugDir: "./debug",
		Preview: PreviewConfig{
			Width:      512,
			Height:     512,
			Axis:       "z",
			PointSize:  1,
			Background: "#000000",
			Foreground: "#ffffff",
			Format:     "png",
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ToParams converts Config to decoder parameters.
func (c Config) ToParams() (decoder.Params, error) {
	if c.Input == "" {
		return decoder.Params{}, decoder.ErrNoSource
	}
	policy, err := orchestrator.ParseFailurePolicy(c.FailurePolicy)
	if err != nil {
		return decoder.Params{}, err
	}
	preview, err := c.Preview.ToOptions()
	if err != nil {
		return decoder.Params{}, err
	}

	b := decoder.NewParamsBuilder(decoder.FileSource(c.Input)).
		WithVideoDecoderPath(c.VideoDecoderPath).
		WithPatchColorSubsampling(c.PatchColorSubsampling).
		WithColorSpaceConversion(c.ColorSpaceConversionPath, c.InverseColorSpaceConversionConfig).
		WithReconstruction(c.Reconstruction.toDecoder()).
		WithFailurePolicy(policy).
		WithPreview(preview)
	if c.KeepIntermediateFiles {
		b.WithIntermediateFiles(c.IntermediateDir)
	}

	params := b.Build()
	if err := params.Validate(); err != nil {
		return decoder.Params{}, err
	}
	return params, nil
}

func (r ReconstructionConfig) toDecoder() decoder.Reconstruction {
	return decoder.Reconstruction{
		PixelDeinterleaving:      r.PixelDeinterleaving,
		PointLocalReconstruction: r.PointLocalReconstruction,
		EnhancedOccupancy:        r.EnhancedOccupancy,
		DuplicatedPointRemoval:   r.DuplicatedPointRemoval,
		RawPoints:                r.RawPoints,
		GeometrySmoothing:        r.GeometrySmoothing,
		AttributeSmoothing:       r.AttributeSmoothing,
		AttributeTransferFilter:  r.AttributeTransferFilter,
		OccupancySynthesis:       r.OccupancySynthesis,
	}
}

// reconstructionPasses maps pass names to their switch.
var reconstructionPasses = []struct {
	name string
	flag func(*ReconstructionConfig) *bool
}{
	{"pixel_deinterleaving", func(r *ReconstructionConfig) *bool { return &r.PixelDeinterleaving }},
	{"point_local_reconstruction", func(r *ReconstructionConfig) *bool { return &r.PointLocalReconstruction }},
	{"enhanced_occupancy", func(r *ReconstructionConfig) *bool { return &r.EnhancedOccupancy }},
	{"duplicated_point_removal", func(r *ReconstructionConfig) *bool { return &r.DuplicatedPointRemoval }},
	{"raw_points", func(r *ReconstructionConfig) *bool { return &r.RawPoints }},
	{"geometry_smoothing", func(r *ReconstructionConfig) *bool { return &r.GeometrySmoothing }},
	{"attribute_smoothing", func(r *ReconstructionConfig) *bool { return &r.AttributeSmoothing }},
	{"attribute_transfer_filter", func(r *ReconstructionConfig) *bool { return &r.AttributeTransferFilter }},
	{"occupancy_synthesis", func(r *ReconstructionConfig) *bool { return &r.OccupancySynthesis }},
}

// Enable switches on the named passes. "all" enables every pass.
// Dashes and underscores are interchangeable.
func (r *ReconstructionConfig) Enable(names ...string) error {
	for _, name := range names {
		name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
		if name == "all" {
			for _, p := range reconstructionPasses {
				*p.flag(r) = true
			}
			continue
		}
		found := false
		for _, p := range reconstructionPasses {
			if p.name == name {
				*p.flag(r) = true
				found = true
			}
		}
		if !found {
			return fmt.Errorf("unknown reconstruction pass %q", name)
		}
	}
	return nil
}

// Enabled returns the names of the enabled passes.
func (r ReconstructionConfig) Enabled() []string {
	var out []string
	for _, p := range reconstructionPasses {
		if *p.flag(&r) {
			out = append(out, p.name)
		}
	}
	return out
}

// LogLevel returns the configured log level.
func (l LoggingConfig) LogLevel() ports.LogLevel {
	return ports.ParseLogLevel(l.Level)
}

// FileConfig returns the rotating file settings for the zap logger.
func (l LoggingConfig) FileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

// ToOptions converts the preview settings to renderer options.
func (p PreviewConfig) ToOptions() (ports.PreviewOptions, error) {
	axis, err := ParseAxis(p.Axis)
	if err != nil {
		return ports.PreviewOptions{}, err
	}
	return ports.PreviewOptions{
		Width:      p.Width,
		Height:     p.Height,
		Axis:       axis,
		PointSize:  p.PointSize,
		Background: ParseColor(p.Background),
		Foreground: ParseColor(p.Foreground),
	}, nil
}

// ImageFormat parses the preview image format: png, jpeg or webp.
func (p PreviewConfig) ImageFormat() (ports.ImageFormat, error) {
	switch strings.ToLower(p.Format) {
	case "", "png":
		return ports.FormatPNG, nil
	case "jpg", "jpeg":
		return ports.FormatJPEG, nil
	case "webp":
		return ports.FormatWebP, nil
	default:
		return ports.FormatPNG, fmt.Errorf("unknown preview format %q", p.Format)
	}
}

// ParseAxis parses "x", "y" or "z". Empty means z.
func ParseAxis(s string) (int, error) {
	switch strings.ToLower(s) {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "", "z":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown preview axis %q", s)
	}
}

// ParseColor parses a hex color string such as "#1a1a2e" to color.Color.
// Malformed values give black.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
