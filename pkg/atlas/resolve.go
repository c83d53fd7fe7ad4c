package atlas

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedDelta is returned when a delta edit cannot be applied
	// to the previous frame's patch list.
	ErrUnresolvedDelta = errors.New("atlas: unresolved delta")

	// ErrInvalidPatch is returned when a patch has impossible geometry.
	ErrInvalidPatch = errors.New("atlas: invalid patch")

	// ErrUnknownPatchMode is returned for patch mode codes outside the known set.
	ErrUnknownPatchMode = errors.New("atlas: unknown patch mode")
)

// EditKind is the operation an Edit performs.
type EditKind uint8

const (
	EditAdd EditKind = iota
	EditUpdate
	EditRemove
)

// String returns the edit kind name.
func (k EditKind) String() string {
	switch k {
	case EditAdd:
		return "add"
	case EditUpdate:
		return "update"
	case EditRemove:
		return "remove"
	default:
		return fmt.Sprintf("edit(%d)", uint8(k))
	}
}

// PatchDelta holds signed adjustments applied by an update edit.
// Position and size are in samples.
type PatchDelta struct {
	X       int
	Y       int
	Width   int
	Height  int
	OffsetU int
	OffsetV int
	OffsetD int
	RangeD  int
}

// Edit is one record of a patch list. Intra lists hold only adds.
type Edit struct {
	Kind EditKind
	// Ref indexes the previous frame's resolved list for update and remove.
	Ref int
	// Patch is the new patch for add.
	Patch Patch
	// Delta is applied to previous[Ref] for update.
	Delta PatchDelta
}

// Resolve applies edits to previous and returns the resolved patch list.
// Patches not referenced by an edit carry over in their original order,
// updates replace their patch in place, removes drop it, and adds are
// appended in edit order. previous is never modified.
func Resolve(previous []Patch, edits []Edit) ([]Patch, error) {
	out := make([]Patch, len(previous), len(previous)+len(edits))
	copy(out, previous)
	removed := make([]bool, len(previous))
	touched := make([]bool, len(previous))
	var added []Patch

	for i, e := range edits {
		switch e.Kind {
		case EditAdd:
			if err := e.Patch.Validate(); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			added = append(added, e.Patch)

		case EditUpdate, EditRemove:
			if e.Ref < 0 || e.Ref >= len(previous) {
				return nil, fmt.Errorf("%w: record %d %s references patch %d of %d", ErrUnresolvedDelta, i, e.Kind, e.Ref, len(previous))
			}
			if touched[e.Ref] {
				return nil, fmt.Errorf("%w: record %d edits patch %d twice", ErrUnresolvedDelta, i, e.Ref)
			}
			touched[e.Ref] = true

			if e.Kind == EditRemove {
				removed[e.Ref] = true
				continue
			}
			p := applyDelta(previous[e.Ref], e.Delta)
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("record %d: update of patch %d: %w", i, e.Ref, err)
			}
			out[e.Ref] = p

		default:
			return nil, fmt.Errorf("%w: record %d kind %d", ErrUnknownPatchMode, i, e.Kind)
		}
	}

	resolved := out[:0]
	for i, p := range out {
		if !removed[i] {
			resolved = append(resolved, p)
		}
	}
	return append(resolved, added...), nil
}

func applyDelta(p Patch, d PatchDelta) Patch {
	p.X += d.X
	p.Y += d.Y
	p.Width += d.Width
	p.Height += d.Height
	p.OffsetU += d.OffsetU
	p.OffsetV += d.OffsetV
	p.OffsetD += d.OffsetD
	p.RangeD += d.RangeD
	return p
}
