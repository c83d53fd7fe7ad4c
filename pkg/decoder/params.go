package decoder

import (
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/bitstream"
	"github.com/user/vpccdec/pkg/orchestrator"
	"github.com/user/vpccdec/pkg/ports"
	"github.com/user/vpccdec/pkg/reconstruct"
)

// ErrNoSource is returned when Params carries neither a file nor bytes.
var ErrNoSource = errors.New("decoder: no bitstream source")

// Source is where the bitstream comes from: a file path or bytes already
// in memory. The zero value is no source.
type Source struct {
	path     string
	data     []byte
	inMemory bool
}

// FileSource reads the bitstream from path when the decoder starts.
func FileSource(path string) Source {
	return Source{path: path}
}

// MemorySource decodes data directly. The slice must not be modified
// while the decoder runs.
func MemorySource(data []byte) Source {
	return Source{data: data, inMemory: true}
}

// IsZero reports whether no source was set.
func (s Source) IsZero() bool {
	return !s.inMemory && s.path == ""
}

// Path returns the file path, empty for memory sources.
func (s Source) Path() string {
	return s.path
}

// String describes the source for logs.
func (s Source) String() string {
	if s.inMemory {
		return fmt.Sprintf("memory (%d bytes)", len(s.data))
	}
	return s.path
}

// Load returns the whole bitstream.
func (s Source) Load(fs ports.FileSystem) ([]byte, error) {
	switch {
	case s.inMemory:
		if len(s.data) == 0 {
			return nil, fmt.Errorf("%w: memory source", bitstream.ErrEmptySource)
		}
		return s.data, nil
	case s.path != "":
		return bitstream.LoadSource(fs, s.path)
	default:
		return nil, ErrNoSource
	}
}

// Reconstruction switches the optional reconstruction passes. All are
// off by default.
type Reconstruction struct {
	PixelDeinterleaving      bool
	PointLocalReconstruction bool
	EnhancedOccupancy        bool
	DuplicatedPointRemoval   bool
	RawPoints                bool
	GeometrySmoothing        bool
	AttributeSmoothing       bool
	AttributeTransferFilter  bool
	OccupancySynthesis       bool
}

// All returns a Reconstruction with every pass enabled.
func All() Reconstruction {
	return Reconstruction{
		PixelDeinterleaving:      true,
		PointLocalReconstruction: true,
		EnhancedOccupancy:        true,
		DuplicatedPointRemoval:   true,
		RawPoints:                true,
		GeometrySmoothing:        true,
		AttributeSmoothing:       true,
		AttributeTransferFilter:  true,
		OccupancySynthesis:       true,
	}
}

// Params configures a decoder. It is copied when the decoder is created.
type Params struct {
	Source Source

	// VideoDecoderPath is the ffmpeg binary. Empty searches the usual places.
	VideoDecoderPath string

	// KeepIntermediateFiles leaves extracted sub-streams and decoded
	// pictures on disk under IntermediateDir.
	KeepIntermediateFiles bool
	IntermediateDir       string

	PatchColorSubsampling bool

	// ColorSpaceConversionPath is an external conversion tool run on
	// attribute pictures with InverseColorSpaceConversionConfig. When only
	// the config is set the built-in BT.709 conversion is used.
	ColorSpaceConversionPath          string
	InverseColorSpaceConversionConfig string

	Reconstruction Reconstruction
	FailurePolicy  orchestrator.FailurePolicy

	// Preview sizes the images an enabled debug sink receives.
	Preview ports.PreviewOptions
}

// DefaultParams returns the defaults for source.
func DefaultParams(source Source) Params {
	return Params{
		Source:        source,
		FailurePolicy: orchestrator.SkipFrame,
	}
}

// Validate checks the parameters before a decode starts.
func (p Params) Validate() error {
	if p.Source.IsZero() {
		return ErrNoSource
	}
	if p.ColorSpaceConversionPath != "" && p.InverseColorSpaceConversionConfig == "" {
		return fmt.Errorf("decoder: color space conversion tool %s needs an inverse conversion config", p.ColorSpaceConversionPath)
	}
	return nil
}

// convertsColor reports whether attribute pictures go through a color
// converter instead of being returned as RGB by the video decoder.
func (p Params) convertsColor() bool {
	return p.ColorSpaceConversionPath != "" || p.InverseColorSpaceConversionConfig != ""
}

func (p Params) engineOptions() reconstruct.Options {
	r := p.Reconstruction
	return reconstruct.Options{
		PixelDeinterleaving:      r.PixelDeinterleaving,
		PointLocalReconstruction: r.PointLocalReconstruction,
		EnhancedOccupancy:        r.EnhancedOccupancy,
		DuplicatedPointRemoval:   r.DuplicatedPointRemoval,
		RawPoints:                r.RawPoints,
		GeometrySmoothing:        r.GeometrySmoothing,
		AttributeSmoothing:       r.AttributeSmoothing,
		AttributeTransferFilter:  r.AttributeTransferFilter,
		OccupancySynthesis:       r.OccupancySynthesis,
		PatchColorSubsampling:    p.PatchColorSubsampling,
	}
}

// ParamsBuilder provides a fluent interface for building Params.
type ParamsBuilder struct {
	params Params
}

// NewParamsBuilder creates a builder with the defaults for source.
func NewParamsBuilder(source Source) *ParamsBuilder {
	return &ParamsBuilder{params: DefaultParams(source)}
}

// Build returns the final Params.
func (b *ParamsBuilder) Build() Params {
	p := b.params
	if p.KeepIntermediateFiles && p.IntermediateDir == "" {
		p.IntermediateDir = "."
	}
	return p
}

// WithVideoDecoderPath sets the ffmpeg binary.
func (b *ParamsBuilder) WithVideoDecoderPath(path string) *ParamsBuilder {
	b.params.VideoDecoderPath = path
	return b
}

// WithIntermediateFiles keeps intermediate files under dir.
// An empty dir means the working directory.
func (b *ParamsBuilder) WithIntermediateFiles(dir string) *ParamsBuilder {
	b.params.KeepIntermediateFiles = true
	b.params.IntermediateDir = dir
	return b
}

// WithPatchColorSubsampling accepts attribute pictures smaller than geometry.
func (b *ParamsBuilder) WithPatchColorSubsampling(enabled bool) *ParamsBuilder {
	b.params.PatchColorSubsampling = enabled
	return b
}

// WithColorSpaceConversion sets the conversion tool and its inverse config.
func (b *ParamsBuilder) WithColorSpaceConversion(toolPath, inverseConfig string) *ParamsBuilder {
	b.params.ColorSpaceConversionPath = toolPath
	b.params.InverseColorSpaceConversionConfig = inverseConfig
	return b
}

// WithReconstruction replaces the reconstruction switches.
func (b *ParamsBuilder) WithReconstruction(r Reconstruction) *ParamsBuilder {
	b.params.Reconstruction = r
	return b
}

// WithFailurePolicy sets what happens when a frame fails.
func (b *ParamsBuilder) WithFailurePolicy(policy orchestrator.FailurePolicy) *ParamsBuilder {
	b.params.FailurePolicy = policy
	return b
}

// WithPreview sets the preview image options.
func (b *ParamsBuilder) WithPreview(opts ports.PreviewOptions) *ParamsBuilder {
	b.params.Preview = opts
	return b
}
