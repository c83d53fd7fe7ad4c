package reconstruct

import (
	"context"
	"errors"
	"testing"

	"github.com/user/vpccdec/pkg/atlas"
	"github.com/user/vpccdec/pkg/mocks"
	"github.com/user/vpccdec/pkg/pipeline"
)

func filled(w, h, planes, depth int, v uint16) pipeline.SampleBuffer {
	b := pipeline.NewSampleBuffer(w, h, planes, depth)
	for p := range b.Planes {
		for i := range b.Planes[p] {
			b.Planes[p][i] = v
		}
	}
	return b
}

func newEngine(opts Options) *Engine {
	return New(opts, mocks.NewLogger())
}

func squarePatch(size int) atlas.Patch {
	return atlas.Patch{Width: size, Height: size, Axis: atlas.AxisZ}
}

func TestExecute_ConstantDepthSquare(t *testing.T) {
	in := Input{
		Patches:   []atlas.Patch{squarePatch(8)},
		Occupancy: filled(8, 8, 1, 8, 1),
		Geometry:  filled(8, 8, 1, 8, 100),
	}

	cloud, err := newEngine(Options{}).Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if cloud.Len() != 64 {
		t.Fatalf("expected 64 points, got %d", cloud.Len())
	}
	if cloud.WithColors || len(cloud.Colors) != 0 {
		t.Error("cloud without texture should carry no colors")
	}
	for i, p := range cloud.Positions {
		if p.Z != 100 {
			t.Fatalf("point %d: Z = %v, want 100", i, p.Z)
		}
	}
	if p := cloud.Positions[1]; p.X != 1 || p.Y != 0 {
		t.Errorf("points should follow raster order, second point = %+v", p)
	}
	if p := cloud.Positions[63]; p.X != 7 || p.Y != 7 {
		t.Errorf("last point = %+v", p)
	}
}

func TestExecute_FarProjectionAndRange(t *testing.T) {
	p := atlas.Patch{
		Width: 1, Height: 1,
		OffsetU: 3, OffsetV: 4, OffsetD: 200, RangeD: 50,
		Axis: atlas.AxisX, Projection: atlas.ProjectionFar,
	}
	in := Input{
		Patches:   []atlas.Patch{p},
		Occupancy: filled(1, 1, 1, 8, 1),
		Geometry:  filled(1, 1, 1, 8, 100),
	}

	cloud, err := newEngine(Options{}).Execute(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	want := pipeline.Point3{X: 150, Y: 4, Z: 3}
	if cloud.Len() != 1 || cloud.Positions[0] != want {
		t.Errorf("positions = %+v, want [%+v]", cloud.Positions, want)
	}
}

func TestExecute_SkipsUnoccupied(t *testing.T) {
	occ := filled(4, 4, 1, 8, 0)
	occ.Set(0, 2, 1, 1)
	in := Input{
		Patches:   []atlas.Patch{squarePatch(4)},
		Occupancy: occ,
		Geometry:  filled(4, 4, 1, 8, 5),
	}

	cloud, err := newEngine(Options{}).Execute(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if cloud.Len() != 1 || cloud.Positions[0] != (pipeline.Point3{X: 2, Y: 1, Z: 5}) {
		t.Errorf("positions = %+v", cloud.Positions)
	}
}

func TestExecute_PatchOrder(t *testing.T) {
	first := atlas.Patch{X: 2, Width: 1, Height: 1, OffsetD: 10, Axis: atlas.AxisZ}
	second := atlas.Patch{X: 0, Width: 1, Height: 1, OffsetD: 20, Axis: atlas.AxisZ}
	in := Input{
		Patches:   []atlas.Patch{first, second},
		Occupancy: filled(4, 1, 1, 8, 1),
		Geometry:  filled(4, 1, 1, 8, 0),
	}

	cloud, err := newEngine(Options{}).Execute(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if cloud.Len() != 2 || cloud.Positions[0].Z != 10 || cloud.Positions[1].Z != 20 {
		t.Errorf("points should follow patch-list order: %+v", cloud.Positions)
	}
}

func TestExecute_Colors(t *testing.T) {
	tex := pipeline.NewSampleBuffer(2, 1, 3, 10)
	tex.Set(0, 1, 0, 1023)
	tex.Set(1, 1, 0, 512)
	tex.Set(2, 1, 0, 4)
	in := Input{
		Patches:   []atlas.Patch{{Width: 2, Height: 1, Axis: atlas.AxisZ}},
		Occupancy: filled(2, 1, 1, 8, 1),
		Geometry:  filled(2, 1, 1, 8, 0),
		Texture:   &tex,
	}

	cloud, err := newEngine(Options{}).Execute(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if err := cloud.Validate(); err != nil {
		t.Fatal(err)
	}
	want := pipeline.Color{R: 255, G: 128, B: 1}
	if cloud.Colors[1] != want {
		t.Errorf("color = %+v, want %+v", cloud.Colors[1], want)
	}
}

func TestExecute_OccupancyUpscale(t *testing.T) {
	occ := filled(4, 4, 1, 8, 0)
	occ.Set(0, 0, 0, 1)
	in := Input{
		Patches:   []atlas.Patch{squarePatch(8)},
		Occupancy: occ,
		Geometry:  filled(8, 8, 1, 8, 1),
	}

	cloud, err := newEngine(Options{}).Execute(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if cloud.Len() != 4 {
		t.Fatalf("one occupancy sample at precision 2 should give 4 points, got %d", cloud.Len())
	}
	for _, p := range cloud.Positions {
		if p.X > 1 || p.Y > 1 {
			t.Errorf("point %+v outside the upscaled block", p)
		}
	}
}

func TestExecute_Errors(t *testing.T) {
	small := filled(4, 4, 3, 8, 0)

	tests := []struct {
		name string
		in   Input
	}{
		{"patch outside geometry", Input{
			Patches:   []atlas.Patch{{X: 6, Width: 4, Height: 4}},
			Occupancy: filled(8, 8, 1, 8, 1),
			Geometry:  filled(8, 8, 1, 8, 1),
		}},
		{"occupancy not a divisor", Input{
			Occupancy: filled(3, 3, 1, 8, 1),
			Geometry:  filled(8, 8, 1, 8, 1),
		}},
		{"occupancy larger than geometry", Input{
			Occupancy: filled(16, 16, 1, 8, 1),
			Geometry:  filled(8, 8, 1, 8, 1),
		}},
		{"empty geometry", Input{
			Occupancy: filled(8, 8, 1, 8, 1),
		}},
		{"subsampled texture without switch", Input{
			Occupancy: filled(8, 8, 1, 8, 1),
			Geometry:  filled(8, 8, 1, 8, 1),
			Texture:   &small,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEngine(Options{}).Execute(context.Background(), tt.in)
			if !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("expected ErrOutOfBounds, got %v", err)
			}
		})
	}
}

func TestExecute_PatchColorSubsampling(t *testing.T) {
	tex := filled(4, 4, 3, 8, 0)
	tex.Set(0, 3, 3, 200)
	in := Input{
		Patches:   []atlas.Patch{squarePatch(8)},
		Occupancy: filled(8, 8, 1, 8, 1),
		Geometry:  filled(8, 8, 1, 8, 1),
		Texture:   &tex,
	}

	cloud, err := newEngine(Options{PatchColorSubsampling: true}).Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := cloud.Colors[63].R; got != 200 {
		t.Errorf("bottom-right color R = %d, want 200", got)
	}
	if got := cloud.Colors[0].R; got != 0 {
		t.Errorf("top-left color R = %d, want 0", got)
	}
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := Input{
		Patches:   []atlas.Patch{squarePatch(2)},
		Occupancy: filled(2, 2, 1, 8, 1),
		Geometry:  filled(2, 2, 1, 8, 1),
	}
	if _, err := newEngine(Options{}).Execute(ctx, in); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOrient(t *testing.T) {
	// 3x2 rect, local sample (0, 1)
	tests := []struct {
		o    atlas.Orientation
		u, v int
	}{
		{0, 0, 1},
		{1, 1, 0},
		{2, 1, 2},
		{3, 2, 0},
		{4, 0, 0},
		{5, 2, 1},
		{6, 0, 2},
		{7, 0, 0},
	}
	for _, tt := range tests {
		u, v := orient(tt.o, 0, 1, 3, 2)
		if u != tt.u || v != tt.v {
			t.Errorf("orient(%d) = (%d,%d), want (%d,%d)", tt.o, u, v, tt.u, tt.v)
		}
	}
}

func TestPlace_Axes(t *testing.T) {
	tests := []struct {
		axis atlas.Axis
		want pipeline.Point3
	}{
		{atlas.AxisX, pipeline.Point3{X: 9, Y: 2, Z: 1}},
		{atlas.AxisY, pipeline.Point3{X: 2, Y: 9, Z: 1}},
		{atlas.AxisZ, pipeline.Point3{X: 1, Y: 2, Z: 9}},
	}
	for _, tt := range tests {
		p := atlas.Patch{Width: 4, Height: 4, OffsetU: 1, OffsetV: 2, OffsetD: 4, Axis: tt.axis}
		if got := place(p, 0, 0, 5); got != tt.want {
			t.Errorf("axis %d: place = %+v, want %+v", tt.axis, got, tt.want)
		}
	}
}
