package state

import (
	"errors"
	"testing"

	"github.com/user/vpccdec/pkg/atlas"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/v3c"
)

func testParameterSet(id uint8, atlasIDs ...uint8) *v3c.ParameterSet {
	ps := &v3c.ParameterSet{ID: id}
	for _, a := range atlasIDs {
		ps.Atlases = append(ps.Atlases, v3c.AtlasInfo{ID: a, FrameWidth: 16, FrameHeight: 16})
	}
	return ps
}

func intraFrame(patches ...atlas.Patch) atlas.CodedFrame {
	f := atlas.CodedFrame{Type: atlas.FrameIntra}
	for _, p := range patches {
		f.Edits = append(f.Edits, atlas.Edit{Kind: atlas.EditAdd, Patch: p})
	}
	return f
}

func buffers(n int) []pipeline.SampleBuffer {
	out := make([]pipeline.SampleBuffer, n)
	for i := range out {
		out[i] = pipeline.NewSampleBuffer(16, 16, 1, 8)
	}
	return out
}

var square = atlas.Patch{Width: 8, Height: 8}

func TestContext_Active(t *testing.T) {
	c := New()
	if _, err := c.Active(); !errors.Is(err, ErrNoParameterSet) {
		t.Fatalf("expected ErrNoParameterSet, got %v", err)
	}

	ps := testParameterSet(1, 0)
	c.Activate(ps)
	got, err := c.Active()
	if err != nil || got != ps {
		t.Fatalf("Active = %v, %v", got, err)
	}

	carried := NewWithActive(ps)
	if got, _ := carried.Active(); got != ps {
		t.Error("NewWithActive did not carry the parameter set")
	}
}

func TestContext_AtlasGetOrCreate(t *testing.T) {
	c := New()
	a := c.Atlas(3)
	if c.Atlas(3) != a {
		t.Error("Atlas should return the same state for the same id")
	}
	c.Atlas(1)

	all := c.Atlases()
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 3 {
		t.Errorf("Atlases not ordered by id: %v", all)
	}

	c.Activate(testParameterSet(0, 1))
	if len(c.Atlases()) != 1 {
		t.Error("Activate should drop undeclared atlases")
	}
}

func TestContext_CheckUnit(t *testing.T) {
	tests := []struct {
		name   string
		active *v3c.ParameterSet
		header v3c.UnitHeader
		want   error
	}{
		{"parameter set always passes", nil, v3c.UnitHeader{Type: v3c.UnitParameterSet}, nil},
		{"no active set", nil, v3c.UnitHeader{Type: v3c.UnitAtlasData}, ErrNoParameterSet},
		{"matching", testParameterSet(2, 0), v3c.UnitHeader{Type: v3c.UnitGeometryVideo, ParameterSetID: 2}, nil},
		{"id mismatch", testParameterSet(2, 0), v3c.UnitHeader{Type: v3c.UnitAtlasData, ParameterSetID: 3}, ErrParameterSetMismatch},
		{"unknown atlas", testParameterSet(2, 0), v3c.UnitHeader{Type: v3c.UnitOccupancyVideo, ParameterSetID: 2, AtlasID: 4}, ErrUnknownAtlas},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithActive(tt.active)
			err := c.CheckUnit(tt.header)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAtlas_AppendGroupAcrossUnits(t *testing.T) {
	a := newAtlas(0)

	failed := a.AppendGroup(&atlas.PatchDataGroup{
		BlockSize: 4,
		Declared:  1,
		Frames:    []atlas.CodedFrame{intraFrame(square)},
	})
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}

	moved := square
	moved.X = 8
	failed = a.AppendGroup(&atlas.PatchDataGroup{
		BlockSize: 4,
		Declared:  1,
		Frames: []atlas.CodedFrame{{
			Type: atlas.FrameDelta,
			Edits: []atlas.Edit{
				{Kind: atlas.EditRemove, Ref: 0},
				{Kind: atlas.EditAdd, Patch: moved},
			},
		}},
	})
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}

	if a.FrameCount() != 2 || !a.HasPatchData() {
		t.Fatalf("FrameCount = %d", a.FrameCount())
	}
	patches, err := a.PatchList(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 1 || patches[0].X != 8 {
		t.Errorf("frame 1 patches = %+v, want only the moved patch", patches)
	}
}

func TestAtlas_AppendGroupFailures(t *testing.T) {
	a := newAtlas(0)

	failed := a.AppendGroup(&atlas.PatchDataGroup{
		Declared: 4,
		Frames: []atlas.CodedFrame{
			{Type: atlas.FrameDelta},
			{Type: atlas.FrameDelta},
			intraFrame(square),
		},
		Err: atlas.ErrUnknownPatchMode,
	})

	if a.FrameCount() != 4 {
		t.Fatalf("FrameCount = %d, want 4", a.FrameCount())
	}
	if len(failed) != 3 {
		t.Fatalf("expected 3 failed frames, got %v", failed)
	}
	if failed[0].Index != 0 || !errors.Is(failed[0].Err, atlas.ErrUnresolvedDelta) {
		t.Errorf("frame 0 failure = %+v", failed[0])
	}
	if failed[1].Index != 1 || !errors.Is(failed[1].Err, atlas.ErrUnresolvedDelta) {
		t.Errorf("frame 1 failure = %+v", failed[1])
	}
	if failed[2].Index != 3 || !errors.Is(failed[2].Err, atlas.ErrUnknownPatchMode) {
		t.Errorf("frame 3 failure = %+v", failed[2])
	}
	if _, err := a.PatchList(2); err != nil {
		t.Errorf("intra frame after failures should resolve: %v", err)
	}
}

func TestAtlas_Readiness(t *testing.T) {
	required := []ComponentKey{OccupancyKey, GeometryKey}

	a := newAtlas(0)
	if got := a.Readiness(0, required); got != Pending {
		t.Fatalf("no patch data: %s, want pending", got)
	}

	a.AppendGroup(&atlas.PatchDataGroup{Declared: 2, Frames: []atlas.CodedFrame{intraFrame(square), intraFrame(square)}})
	if got := a.Readiness(0, required); got != Pending {
		t.Fatalf("no video: %s, want pending", got)
	}

	a.StoreBuffers(OccupancyKey, buffers(2))
	a.StoreBuffers(GeometryKey, buffers(2))
	if got := a.Readiness(1, required); got != Ready {
		t.Fatalf("all present: %s, want ready", got)
	}
	if _, ok := a.Buffer(GeometryKey, 1); !ok {
		t.Error("Buffer(geometry, 1) missing")
	}

	a.FailComponent(GeometryKey, errors.New("boom"))
	if got := a.Readiness(0, required); got != Failed {
		t.Fatalf("failed component: %s, want failed", got)
	}
	if _, ok := a.BufferCount(GeometryKey); ok {
		t.Error("failed component should report no buffers")
	}
	if a.ComponentErr(GeometryKey) == nil {
		t.Error("ComponentErr should return the failure")
	}

	keys := a.Components()
	if len(keys) != 2 || keys[0] != OccupancyKey || keys[1] != GeometryKey {
		t.Errorf("Components = %v", keys)
	}
}

func TestAtlas_StoreBuffersAppends(t *testing.T) {
	required := []ComponentKey{OccupancyKey, GeometryKey}
	a := newAtlas(0)
	a.AppendGroup(&atlas.PatchDataGroup{Declared: 1, Frames: []atlas.CodedFrame{intraFrame(square)}})
	a.StoreBuffers(OccupancyKey, buffers(1))
	a.StoreBuffers(GeometryKey, buffers(1))
	a.Release(0)

	a.AppendGroup(&atlas.PatchDataGroup{Declared: 1, Frames: []atlas.CodedFrame{intraFrame(square)}})
	if got := a.Readiness(1, required); got != Pending {
		t.Fatalf("before second video unit: %s, want pending", got)
	}

	a.StoreBuffers(OccupancyKey, buffers(1))
	if got := a.Readiness(1, required); got != Pending {
		t.Fatalf("geometry behind occupancy: %s, want pending", got)
	}
	a.StoreBuffers(GeometryKey, buffers(1))
	if got := a.Readiness(1, required); got != Ready {
		t.Fatalf("counts settled: %s, want ready", got)
	}
	if n, _ := a.BufferCount(GeometryKey); n != 2 {
		t.Errorf("BufferCount = %d, want 2", n)
	}
	if _, ok := a.Buffer(GeometryKey, 1); !ok {
		t.Error("appended buffer should be addressed by frame index 1")
	}

	a.FailComponent(OccupancyKey, errors.New("boom"))
	a.StoreBuffers(OccupancyKey, buffers(1))
	if _, ok := a.BufferCount(OccupancyKey); ok {
		t.Error("storing into a failed component should keep it failed")
	}
}

func TestAtlas_Release(t *testing.T) {
	a := newAtlas(0)
	a.StoreBuffers(OccupancyKey, buffers(3))

	a.Release(1)
	if _, ok := a.Buffer(OccupancyKey, 1); ok {
		t.Error("released buffer still available")
	}
	if _, ok := a.Buffer(OccupancyKey, 2); !ok {
		t.Error("unreleased buffer missing")
	}
	if n, _ := a.BufferCount(OccupancyKey); n != 3 {
		t.Errorf("BufferCount = %d, want 3", n)
	}
}

func TestRequiredComponents(t *testing.T) {
	info := &v3c.AtlasInfo{Attributes: []v3c.AttributeInfo{
		{Type: v3c.AttributeReflectance, Dimension: 1},
		{Type: v3c.AttributeTexture, Dimension: 3},
	}}
	keys := RequiredComponents(info)
	if len(keys) != 3 || keys[2] != AttributeKey(1) {
		t.Errorf("RequiredComponents = %v", keys)
	}
	if keys := RequiredComponents(&v3c.AtlasInfo{}); len(keys) != 2 {
		t.Errorf("without attributes = %v", keys)
	}
}
