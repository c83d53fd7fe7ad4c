package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/reconstruct"
	"github.com/user/vpccdec/pkg/state"
	"github.com/user/vpccdec/pkg/v3c"
)

// emitReady emits frames from the next unemitted index while they are
// ready, skipping failed ones. It stops at the first pending frame unless
// final is set, in which case pending frames are skipped too.
func (o *Orchestrator) emitReady(ctx context.Context, g *group, emit EmitFunc, final bool) error {
	ps, err := g.ctx.Active()
	if err != nil {
		return nil
	}

	if final {
		for _, a := range g.ctx.Atlases() {
			if err := o.checkCounts(a); err != nil {
				return err
			}
		}
	}

	total := frameTotal(g.ctx, ps)
	for g.next < total {
		f := g.next
		readiness, reason := frameReadiness(g.ctx, ps, f)

		switch readiness {
		case state.Pending:
			if !final {
				return nil
			}
			if err := o.skip(g, f, fmt.Errorf("%w: %v", ErrIncompleteFrame, reason)); err != nil {
				return err
			}
		case state.Failed:
			if err := o.skip(g, f, reason); err != nil {
				return err
			}
		case state.Ready:
			cloud, err := o.build(ctx, g.ctx, ps, f)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if err := o.skip(g, f, err); err != nil {
					return err
				}
				continue
			}
			if err := o.publish(ctx, g, pipeline.Frame{Index: g.base + f, Cloud: cloud}, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, g *group, frame pipeline.Frame, emit EmitFunc) error {
	o.stats.built.Add(1)
	if o.sink.Enabled() {
		o.sink.SaveFrame(frame)
		if o.renderer != nil {
			opts := o.config.Preview
			opts.Caption = fmt.Sprintf("#%d  %d points", frame.Index, frame.Cloud.Len())
			o.sink.SavePreview(frame.Index, o.renderer.Render(frame.Cloud, opts))
		}
	}

	f := g.next
	g.next++
	for _, a := range g.ctx.Atlases() {
		a.Release(f)
	}

	if err := emit(ctx, frame); err != nil {
		return err
	}
	o.stats.emitted.Add(1)
	o.logger.Debug("Frame %d emitted: %d points", frame.Index, frame.Cloud.Len())
	return nil
}

func (o *Orchestrator) skip(g *group, f int, reason error) error {
	index := g.base + f
	g.next++
	for _, a := range g.ctx.Atlases() {
		a.Release(f)
	}
	o.stats.skipped.Add(1)
	o.logger.Warn("Skipping frame %d: %v", index, reason)
	return o.policy(fmt.Errorf("frame %d: %w", index, reason))
}

// frameTotal is the largest patch frame count over the declared atlases.
func frameTotal(ctx *state.Context, ps *v3c.ParameterSet) int {
	total := 0
	for _, id := range ps.AtlasIDs() {
		if n := ctx.Atlas(id).FrameCount(); n > total {
			total = n
		}
	}
	return total
}

// frameReadiness combines the readiness of frame f over every declared
// atlas. Any failed atlas fails the frame.
func frameReadiness(ctx *state.Context, ps *v3c.ParameterSet, f int) (state.Readiness, error) {
	result := state.Ready
	var reason error
	for _, id := range ps.AtlasIDs() {
		info, _ := ps.Atlas(id)
		a := ctx.Atlas(id)
		required := state.RequiredComponents(info)

		switch a.Readiness(f, required) {
		case state.Failed:
			return state.Failed, failureReason(a, f, required)
		case state.Pending:
			result = state.Pending
			if reason == nil {
				reason = fmt.Errorf("atlas %d is missing data", id)
			}
		}
	}
	return result, reason
}

func failureReason(a *state.Atlas, f int, required []state.ComponentKey) error {
	if rec, ok := a.Frame(f); ok && rec.Err != nil {
		return fmt.Errorf("atlas %d: %w", a.ID, rec.Err)
	}
	for _, key := range required {
		if err := a.ComponentErr(key); err != nil {
			return fmt.Errorf("atlas %d: %w", a.ID, err)
		}
	}
	return fmt.Errorf("atlas %d: %w: no %s picture for frame %d", a.ID, ErrBufferCountMismatch, required, f)
}

// build reconstructs frame f of every atlas and concatenates the clouds
// in atlas id order.
func (o *Orchestrator) build(ctx context.Context, sc *state.Context, ps *v3c.ParameterSet, f int) (pipeline.PointCloud, error) {
	var clouds []pipeline.PointCloud
	withColors := true
	size := 0

	for _, id := range ps.AtlasIDs() {
		info, _ := ps.Atlas(id)
		in, err := reconstructInput(sc.Atlas(id), info, f)
		if err != nil {
			return pipeline.PointCloud{}, err
		}
		cloud, err := o.engine.Execute(ctx, in)
		if err != nil {
			return pipeline.PointCloud{}, fmt.Errorf("atlas %d: %w", id, err)
		}
		withColors = withColors && cloud.WithColors
		size += cloud.Len()
		clouds = append(clouds, cloud)
	}

	out := pipeline.NewPointCloud(withColors, size)
	for _, c := range clouds {
		if !withColors {
			c.Colors, c.WithColors = nil, false
		}
		out.Append(c)
	}
	if err := out.Validate(); err != nil {
		return pipeline.PointCloud{}, err
	}
	return out, nil
}

var errMissingBuffer = errors.New("orchestrator: missing picture")

func reconstructInput(a *state.Atlas, info *v3c.AtlasInfo, f int) (reconstruct.Input, error) {
	rec, _ := a.Frame(f)
	in := reconstruct.Input{
		Patches:     rec.Patches,
		Raw:         rec.Raw,
		EOM:         rec.EOM,
		EOMBitCount: a.EOMBitCount,
	}

	var ok bool
	if in.Occupancy, ok = a.Buffer(state.OccupancyKey, f); !ok {
		return in, fmt.Errorf("%w: atlas %d occupancy frame %d", errMissingBuffer, a.ID, f)
	}
	if in.Geometry, ok = a.Buffer(state.GeometryKey, f); !ok {
		return in, fmt.Errorf("%w: atlas %d geometry frame %d", errMissingBuffer, a.ID, f)
	}
	if i := info.TextureIndex(); i >= 0 {
		tex, ok := a.Buffer(state.AttributeKey(i), f)
		if !ok {
			return in, fmt.Errorf("%w: atlas %d texture frame %d", errMissingBuffer, a.ID, f)
		}
		in.Texture = &tex
	}
	return in, nil
}
