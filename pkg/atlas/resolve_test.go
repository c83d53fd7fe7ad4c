package atlas

import (
	"errors"
	"reflect"
	"testing"
)

func patchAt(x int) Patch {
	return Patch{X: x, Y: 0, Width: 4, Height: 4, OffsetD: 10}
}

func TestResolve_Intra(t *testing.T) {
	edits := []Edit{
		{Kind: EditAdd, Patch: patchAt(0)},
		{Kind: EditAdd, Patch: patchAt(4)},
	}

	got, err := Resolve(nil, edits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Patch{patchAt(0), patchAt(4)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolve_Delta(t *testing.T) {
	previous := []Patch{patchAt(0), patchAt(4), patchAt(8)}
	snapshot := append([]Patch(nil), previous...)

	edits := []Edit{
		{Kind: EditAdd, Patch: patchAt(20)},
		{Kind: EditRemove, Ref: 1},
		{Kind: EditUpdate, Ref: 2, Delta: PatchDelta{X: 4, Width: -2, OffsetD: 5}},
	}

	got, err := Resolve(previous, edits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := patchAt(12)
	updated.Width = 2
	updated.OffsetD = 15
	want := []Patch{patchAt(0), updated, patchAt(20)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %+v\nwant %+v", got, want)
	}

	if !reflect.DeepEqual(previous, snapshot) {
		t.Error("Resolve modified the previous list")
	}
}

func TestResolve_RemoveAndAdd(t *testing.T) {
	previous := []Patch{patchAt(0)}
	edits := []Edit{
		{Kind: EditRemove, Ref: 0},
		{Kind: EditAdd, Patch: patchAt(8)},
	}

	got, err := Resolve(previous, edits)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].X != 8 {
		t.Errorf("Resolve = %+v, want only the new patch", got)
	}
}

func TestResolve_NoEditsCarriesOver(t *testing.T) {
	previous := []Patch{patchAt(0), patchAt(4)}
	got, err := Resolve(previous, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, previous) {
		t.Errorf("Resolve = %+v, want %+v", got, previous)
	}
}

func TestResolve_Errors(t *testing.T) {
	previous := []Patch{patchAt(0)}

	tests := []struct {
		name     string
		previous []Patch
		edits    []Edit
		want     error
	}{
		{"update without previous", nil, []Edit{{Kind: EditUpdate, Ref: 0}}, ErrUnresolvedDelta},
		{"remove out of range", previous, []Edit{{Kind: EditRemove, Ref: 3}}, ErrUnresolvedDelta},
		{"negative ref", previous, []Edit{{Kind: EditUpdate, Ref: -1}}, ErrUnresolvedDelta},
		{"double edit", previous, []Edit{{Kind: EditUpdate, Ref: 0}, {Kind: EditRemove, Ref: 0}}, ErrUnresolvedDelta},
		{"update to empty size", previous, []Edit{{Kind: EditUpdate, Ref: 0, Delta: PatchDelta{Width: -4}}}, ErrInvalidPatch},
		{"update to negative offset", previous, []Edit{{Kind: EditUpdate, Ref: 0, Delta: PatchDelta{OffsetD: -11}}}, ErrInvalidPatch},
		{"add invalid", nil, []Edit{{Kind: EditAdd, Patch: Patch{Width: 0, Height: 1}}}, ErrInvalidPatch},
		{"unknown kind", nil, []Edit{{Kind: EditKind(9)}}, ErrUnknownPatchMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.previous, tt.edits)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
