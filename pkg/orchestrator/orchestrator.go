// Package orchestrator runs the decode loop: it walks the unit groups of a
// sample stream, feeds each unit to the decode context, drives the video
// decoder and the reconstruction engine, and hands finished frames to an
// emit callback in index order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
	"github.com/user/vpccdec/pkg/reconstruct"
	"github.com/user/vpccdec/pkg/state"
	"github.com/user/vpccdec/pkg/v3c"
)

var (
	// ErrBufferCountMismatch is returned when a video sub-stream decodes to a
	// different number of pictures than the atlas has frames.
	ErrBufferCountMismatch = errors.New("orchestrator: buffer count mismatch")

	// ErrIncompleteFrame is returned for frames still missing data when
	// their unit group ends.
	ErrIncompleteFrame = errors.New("orchestrator: frame incomplete at end of group")
)

// FailurePolicy decides what happens when a frame or sub-stream fails.
type FailurePolicy int

const (
	// SkipFrame drops the affected frames and keeps decoding.
	SkipFrame FailurePolicy = iota
	// Abort ends the decode pass on the first frame or sub-stream failure.
	Abort
)

// String returns the configuration name of the policy.
func (p FailurePolicy) String() string {
	if p == Abort {
		return "abort"
	}
	return "skip-frame"
}

// ParseFailurePolicy parses "skip-frame" or "abort".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "skip-frame", "skip":
		return SkipFrame, nil
	case "abort":
		return Abort, nil
	default:
		return SkipFrame, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Config contains the orchestrator settings.
type Config struct {
	FailurePolicy FailurePolicy
	// Preview configures the images saved to an enabled debug sink.
	Preview ports.PreviewOptions
}

// EmitFunc receives each finished frame. A non-nil error stops the loop
// and is returned from Run.
type EmitFunc func(ctx context.Context, frame pipeline.Frame) error

// Orchestrator runs decode passes. Run may be called once at a time.
type Orchestrator struct {
	video    ports.VideoDecoder
	colors   ports.ColorConverter
	engine   pipeline.Stage[reconstruct.Input, pipeline.PointCloud]
	sink     ports.DebugSink
	renderer ports.PreviewRenderer
	logger   ports.Logger
	config   Config
	stats    counters
}

// New creates a new Orchestrator. colors and renderer may be nil.
func New(
	video ports.VideoDecoder,
	colors ports.ColorConverter,
	engine pipeline.Stage[reconstruct.Input, pipeline.PointCloud],
	sink ports.DebugSink,
	renderer ports.PreviewRenderer,
	logger ports.Logger,
	config Config,
) *Orchestrator {
	return &Orchestrator{
		video:    video,
		colors:   colors,
		engine:   engine,
		sink:     sink,
		renderer: renderer,
		logger:   logger,
		config:   config,
	}
}

// Stats returns a snapshot of the counters. Safe for concurrent use.
func (o *Orchestrator) Stats() Stats {
	return o.stats.snapshot()
}

// group is the per-group decode state.
type group struct {
	ctx  *state.Context
	base int
	next int
}

// Run decodes data and calls emit for every reconstructed frame.
// Framing and unit-type errors end the pass; frame and sub-stream errors
// end it only under the Abort policy.
func (o *Orchestrator) Run(ctx context.Context, data []byte, emit EmitFunc) error {
	stream, err := v3c.NewSampleStream(data)
	if err != nil {
		o.logger.Error("Decode aborted: %v", err)
		return err
	}

	var active *v3c.ParameterSet
	nextIndex := 0
	for {
		units, ok := stream.NextGroup()
		if !ok {
			break
		}
		o.stats.groups.Add(1)

		g := &group{ctx: state.NewWithActive(active), base: nextIndex}
		if err := o.runGroup(ctx, g, units, emit); err != nil {
			return err
		}

		active, _ = g.ctx.Active()
		nextIndex = g.base + g.next
	}

	s := o.Stats()
	o.logger.Info("Decode finished: %d frames emitted, %d skipped", s.FramesEmitted, s.FramesSkipped)
	return nil
}

func (o *Orchestrator) runGroup(ctx context.Context, g *group, units []v3c.RawUnit, emit EmitFunc) error {
	for _, raw := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.unit(ctx, g, raw); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				o.logger.Error("Decode aborted: %v", err)
			}
			return err
		}
		if err := o.emitReady(ctx, g, emit, false); err != nil {
			return err
		}
	}
	return o.emitReady(ctx, g, emit, true)
}

// unit applies one unit to the group context.
func (o *Orchestrator) unit(ctx context.Context, g *group, raw v3c.RawUnit) error {
	o.stats.units.Add(1)

	h, err := raw.Header()
	if err != nil {
		return fmt.Errorf("unit %d: %w", raw.Index, err)
	}
	o.logger.Debug("Unit %d: %s, %d bytes", raw.Index, h, len(raw.Data))
	if o.sink.Enabled() {
		o.sink.SaveUnit(raw.Index, h.Type.String(), raw.Data)
	}

	if err := g.ctx.CheckUnit(h); err != nil {
		return fmt.Errorf("unit %d: %w", raw.Index, err)
	}

	u, err := v3c.DecodeUnit(raw)
	if err != nil {
		if h.Type == v3c.UnitAtlasData {
			// The patch data header is unreadable: the unit contributes
			// no frames.
			o.logger.Warn("Atlas data unit %d stopped early: %v", raw.Index, err)
			return o.policy(err)
		}
		return err
	}

	switch p := u.Payload.(type) {
	case *v3c.ParameterSet:
		g.ctx.Activate(p)
		o.logger.Info("Parameter set %d activated: %d atlases", p.ID, len(p.Atlases))
		return nil
	case *v3c.AtlasData:
		return o.atlasData(g, raw.Index, p)
	case *v3c.VideoData:
		return o.videoData(ctx, g, p)
	default:
		return fmt.Errorf("unit %d: %w: %s", raw.Index, v3c.ErrUnknownUnitType, h.Type)
	}
}

func (o *Orchestrator) atlasData(g *group, index int, ad *v3c.AtlasData) error {
	a := g.ctx.Atlas(ad.AtlasID)
	first := a.FrameCount()
	failed := a.AppendGroup(ad.Group)

	if ad.Group.Err != nil {
		o.logger.Warn("Atlas data unit %d stopped early: %v", index, ad.Group.Err)
	}
	for _, fe := range failed {
		if err := o.policy(fmt.Errorf("atlas %d frame %d: %w", a.ID, fe.Index, fe.Err)); err != nil {
			return err
		}
	}
	o.logger.Debug("Atlas %d: %d frames of patch data", a.ID, a.FrameCount()-first)
	return nil
}

func (o *Orchestrator) videoData(ctx context.Context, g *group, vd *v3c.VideoData) error {
	ps, err := g.ctx.Active()
	if err != nil {
		return err
	}
	info, _ := ps.Atlas(vd.AtlasID)
	stream, key, err := videoStream(info, vd)
	if err != nil {
		return err
	}
	a := g.ctx.Atlas(vd.AtlasID)
	o.stats.video.Add(1)

	if o.sink.Enabled() {
		o.sink.SaveSubstream(stream.Label, stream.Data)
	}

	bufs, err := o.video.Decode(ctx, stream)
	if err == nil && key.Kind == v3c.VideoAttribute && o.colors != nil && stream.Planes == 3 {
		bufs, err = o.colors.Convert(ctx, bufs)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, ports.ErrVideoDecode) {
			err = fmt.Errorf("%w: %v", ports.ErrVideoDecode, err)
		}
		a.FailComponent(key, err)
		o.logger.Warn("%s video of atlas %d failed: %v", key, a.ID, err)
		return o.policy(err)
	}

	a.StoreBuffers(key, bufs)
	return nil
}

// checkCounts fails components whose accumulated picture count differs
// from the patch frame count. It runs when the group ends, once no more
// atlas data or video units can arrive.
func (o *Orchestrator) checkCounts(a *state.Atlas) error {
	if !a.HasPatchData() {
		return nil
	}
	frames := a.FrameCount()
	for _, key := range a.Components() {
		n, ok := a.BufferCount(key)
		if !ok || n == frames {
			continue
		}
		err := fmt.Errorf("%w: %s video of atlas %d has %d pictures, %d frames", ErrBufferCountMismatch, key, a.ID, n, frames)
		a.FailComponent(key, err)
		o.logger.Warn("%s video of atlas %d failed: %v", key, a.ID, err)
		if err := o.policy(err); err != nil {
			return err
		}
	}
	return nil
}

// policy returns err under Abort and nil under SkipFrame.
func (o *Orchestrator) policy(err error) error {
	if o.config.FailurePolicy == Abort {
		return err
	}
	return nil
}

func videoStream(info *v3c.AtlasInfo, vd *v3c.VideoData) (ports.VideoStream, state.ComponentKey, error) {
	s := ports.VideoStream{
		Width:  info.FrameWidth,
		Height: info.FrameHeight,
		Planes: 1,
		Data:   vd.Data,
	}
	var key state.ComponentKey
	var codec v3c.Codec

	switch vd.Kind {
	case v3c.VideoOccupancy:
		key = state.OccupancyKey
		s.Component = ports.ComponentOccupancy
		codec, s.BitDepth = info.Occupancy.Codec, info.Occupancy.BitDepth
	case v3c.VideoGeometry:
		key = state.GeometryKey
		s.Component = ports.ComponentGeometry
		codec, s.BitDepth = info.Geometry.Codec, info.Geometry.BitDepth
	default:
		idx := int(vd.AttributeIndex)
		if idx >= len(info.Attributes) {
			return s, key, fmt.Errorf("%w: atlas %d has no attribute %d", v3c.ErrUnsupported, info.ID, idx)
		}
		attr := info.Attributes[idx]
		key = state.AttributeKey(idx)
		s.Component = ports.ComponentAttribute
		s.Planes = attr.Dimension
		codec, s.BitDepth = attr.Codec, attr.BitDepth
	}

	s.Codec = videoCodec(codec)
	s.Label = fmt.Sprintf("atlas%d-%s", info.ID, key)
	return s, key, nil
}

func videoCodec(c v3c.Codec) ports.VideoCodec {
	switch c {
	case v3c.CodecAVC:
		return ports.CodecAVC
	case v3c.CodecHEVC:
		return ports.CodecHEVC
	case v3c.CodecVVC:
		return ports.CodecVVC
	default:
		return ports.CodecRaw
	}
}
