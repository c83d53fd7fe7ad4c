// Package reconstruct turns decoded occupancy, geometry and attribute
// pictures plus a resolved patch list into a point cloud.
//
// The baseline pass unprojects every occupied sample of every patch, in
// patch-list order and raster order within a patch. Optional passes,
// each switched by a field of Options, append points or edit them in
// place; none of them reorders points already produced.
package reconstruct

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/atlas"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// ErrOutOfBounds is returned when a patch or a sample read falls outside
// the decoded pictures. It fails only the frame being reconstructed.
var ErrOutOfBounds = errors.New("reconstruct: out of bounds")

// Options switches the optional reconstruction passes. The zero value is
// the baseline profile.
type Options struct {
	PixelDeinterleaving      bool
	PointLocalReconstruction bool
	EnhancedOccupancy        bool
	DuplicatedPointRemoval   bool
	RawPoints                bool
	GeometrySmoothing        bool
	AttributeSmoothing       bool
	AttributeTransferFilter  bool
	OccupancySynthesis       bool

	// PatchColorSubsampling allows attribute pictures smaller than the
	// geometry picture; they are upscaled before colors are read.
	PatchColorSubsampling bool
}

// Input is one atlas frame ready for reconstruction.
type Input struct {
	Patches     []atlas.Patch
	Raw         []atlas.RawPatch
	EOM         []atlas.EOMPatch
	EOMBitCount int

	Occupancy pipeline.SampleBuffer
	Geometry  pipeline.SampleBuffer
	// Texture is nil when the atlas carries no color.
	Texture *pipeline.SampleBuffer
}

// Engine reconstructs point clouds. It holds no per-frame state and may be
// reused across frames.
type Engine struct {
	opts   Options
	logger ports.Logger
}

// New creates an engine with the given pass switches.
func New(opts Options, logger ports.Logger) *Engine {
	return &Engine{
		opts:   opts,
		logger: logger.WithComponent("reconstruct"),
	}
}

// Options returns the pass switches of the engine.
func (e *Engine) Options() Options {
	return e.opts
}

// Execute reconstructs one atlas frame.
func (e *Engine) Execute(ctx context.Context, in Input) (pipeline.PointCloud, error) {
	pics, err := e.prepare(in)
	if err != nil {
		return pipeline.PointCloud{}, err
	}

	b := newBuilder(pics, in.Texture != nil)
	for i, p := range in.Patches {
		if err := ctx.Err(); err != nil {
			return pipeline.PointCloud{}, err
		}
		if err := b.patch(i, p); err != nil {
			return pipeline.PointCloud{}, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	baseline := b.cloud.Len()

	if e.opts.PixelDeinterleaving {
		b.deinterleave(in.Patches, baseline)
	}
	if e.opts.PointLocalReconstruction {
		b.pointLocal(in.Patches, baseline)
	}
	if e.opts.EnhancedOccupancy {
		if err := b.enhancedOccupancy(in.Patches, in.EOM, in.EOMBitCount, baseline); err != nil {
			return pipeline.PointCloud{}, err
		}
	}
	if e.opts.RawPoints {
		for i, rp := range in.Raw {
			if err := b.raw(rp); err != nil {
				return pipeline.PointCloud{}, fmt.Errorf("raw patch %d: %w", i, err)
			}
		}
	}

	cloud := b.cloud
	if e.opts.DuplicatedPointRemoval {
		cloud = removeDuplicates(cloud)
	}
	if e.opts.GeometrySmoothing {
		smoothGeometry(&cloud, smoothingGrid)
	}
	if e.opts.AttributeTransferFilter && cloud.WithColors {
		transferAttributes(&cloud)
	}
	if e.opts.AttributeSmoothing && cloud.WithColors {
		smoothAttributes(&cloud, smoothingGrid)
	}

	if baseline != cloud.Len() {
		e.logger.Debug("Passes changed point count: %d -> %d", baseline, cloud.Len())
	}
	return cloud, nil
}

var _ pipeline.Stage[Input, pipeline.PointCloud] = (*Engine)(nil)
