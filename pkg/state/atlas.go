package state

import (
	"fmt"
	"sort"

	"github.com/user/vpccdec/pkg/atlas"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/v3c"
)

// Readiness says whether a frame can be reconstructed.
type Readiness uint8

const (
	// Pending frames are still missing patch data or video.
	Pending Readiness = iota
	// Ready frames have everything reconstruction needs.
	Ready
	// Failed frames can never be reconstructed.
	Failed
)

// String returns the readiness name.
func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// ComponentKey identifies a video component of an atlas.
type ComponentKey struct {
	Kind      v3c.VideoKind
	Attribute uint8
}

// String returns a short label such as "geometry" or "attribute[1]".
func (k ComponentKey) String() string {
	if k.Kind == v3c.VideoAttribute {
		return fmt.Sprintf("%s[%d]", k.Kind, k.Attribute)
	}
	return k.Kind.String()
}

var (
	OccupancyKey = ComponentKey{Kind: v3c.VideoOccupancy}
	GeometryKey  = ComponentKey{Kind: v3c.VideoGeometry}
)

// AttributeKey returns the key of attribute video i.
func AttributeKey(i int) ComponentKey {
	return ComponentKey{Kind: v3c.VideoAttribute, Attribute: uint8(i)}
}

// RequiredComponents lists the video components a frame of info needs:
// occupancy, geometry and the texture attribute when one is declared.
func RequiredComponents(info *v3c.AtlasInfo) []ComponentKey {
	keys := []ComponentKey{OccupancyKey, GeometryKey}
	if i := info.TextureIndex(); i >= 0 {
		keys = append(keys, AttributeKey(i))
	}
	return keys
}

// FrameRecord is the patch information of one frame. Either Err is set or
// Patches holds the resolved regular patch list.
type FrameRecord struct {
	Patches []atlas.Patch
	Raw     []atlas.RawPatch
	EOM     []atlas.EOMPatch
	Err     error
}

// FrameError reports a frame whose patch information failed.
type FrameError struct {
	Index int
	Err   error
}

type component struct {
	buffers []pipeline.SampleBuffer
	err     error
}

// Atlas is the accumulated state of one atlas within a unit group.
type Atlas struct {
	ID uint8

	BlockSize   int
	PLREnabled  bool
	EOMBitCount int

	frames     []FrameRecord
	patchUnits int
	components map[ComponentKey]*component
}

func newAtlas(id uint8) *Atlas {
	return &Atlas{
		ID:          id,
		BlockSize:   1,
		EOMBitCount: 1,
		components:  make(map[ComponentKey]*component),
	}
}

// FrameCount returns the number of frames with patch information, failed
// frames included.
func (a *Atlas) FrameCount() int {
	return len(a.frames)
}

// HasPatchData reports whether an atlas data unit has been applied.
func (a *Atlas) HasPatchData() bool {
	return a.patchUnits > 0
}

// AppendGroup resolves the frames of a decoded atlas data unit and appends
// them. Delta frames resolve against the previous frame's list, which may
// come from an earlier unit. Frames the unit declared but could not parse
// are appended as failed. The returned slice lists every failed frame.
func (a *Atlas) AppendGroup(g *atlas.PatchDataGroup) []FrameError {
	a.patchUnits++
	a.BlockSize = g.BlockSize
	a.PLREnabled = g.PLREnabled
	a.EOMBitCount = g.EOMBitCount

	var failed []FrameError
	for _, f := range g.Frames {
		rec := a.resolve(f)
		if rec.Err != nil {
			failed = append(failed, FrameError{Index: len(a.frames), Err: rec.Err})
		}
		a.frames = append(a.frames, rec)
	}

	if g.Err != nil {
		start := len(a.frames)
		a.FailFrames(g.Declared-len(g.Frames), g.Err)
		for i := start; i < len(a.frames); i++ {
			failed = append(failed, FrameError{Index: i, Err: g.Err})
		}
	}
	return failed
}

func (a *Atlas) resolve(f atlas.CodedFrame) FrameRecord {
	rec := FrameRecord{Raw: f.Raw, EOM: f.EOM}

	var previous []atlas.Patch
	if f.Type == atlas.FrameDelta {
		if len(a.frames) == 0 {
			rec.Err = fmt.Errorf("%w: delta frame without a previous frame", atlas.ErrUnresolvedDelta)
			return rec
		}
		prev := a.frames[len(a.frames)-1]
		if prev.Err != nil {
			rec.Err = fmt.Errorf("%w: previous frame failed", atlas.ErrUnresolvedDelta)
			return rec
		}
		previous = prev.Patches
	}

	patches, err := atlas.Resolve(previous, f.Edits)
	if err != nil {
		rec.Err = err
		return rec
	}
	rec.Patches = patches
	return rec
}

// FailFrames appends n failed frames.
func (a *Atlas) FailFrames(n int, err error) {
	for i := 0; i < n; i++ {
		a.frames = append(a.frames, FrameRecord{Err: err})
	}
}

// Frame returns the patch record of frame f.
func (a *Atlas) Frame(f int) (FrameRecord, bool) {
	if f < 0 || f >= len(a.frames) {
		return FrameRecord{}, false
	}
	return a.frames[f], true
}

// PatchList returns the resolved regular patches of frame f.
func (a *Atlas) PatchList(f int) ([]atlas.Patch, error) {
	rec, ok := a.Frame(f)
	if !ok {
		return nil, fmt.Errorf("atlas %d: frame %d has no patch data", a.ID, f)
	}
	if rec.Err != nil {
		return nil, rec.Err
	}
	return rec.Patches, nil
}

// StoreBuffers appends the decoded pictures of a video unit to a component.
// Pictures continue the frame indices of earlier units of the same
// component. A failed component stays failed.
func (a *Atlas) StoreBuffers(key ComponentKey, bufs []pipeline.SampleBuffer) {
	c, ok := a.components[key]
	if !ok {
		c = &component{}
		a.components[key] = c
	}
	if c.err != nil {
		return
	}
	c.buffers = append(c.buffers, bufs...)
}

// FailComponent marks every frame of a component as failed.
func (a *Atlas) FailComponent(key ComponentKey, err error) {
	c, ok := a.components[key]
	if !ok {
		c = &component{}
		a.components[key] = c
	}
	c.buffers = nil
	c.err = err
}

// Components returns the keys of components that were stored or failed,
// in kind then attribute order.
func (a *Atlas) Components() []ComponentKey {
	keys := make([]ComponentKey, 0, len(a.components))
	for k := range a.components {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].Attribute < keys[j].Attribute
	})
	return keys
}

// BufferCount returns the number of stored buffers of a component and
// whether it is stored and not failed.
func (a *Atlas) BufferCount(key ComponentKey) (int, bool) {
	c, ok := a.components[key]
	if !ok || c.err != nil {
		return 0, false
	}
	return len(c.buffers), true
}

// ComponentErr returns the failure of a component, if any.
func (a *Atlas) ComponentErr(key ComponentKey) error {
	if c, ok := a.components[key]; ok {
		return c.err
	}
	return nil
}

// Buffer returns the decoded picture of a component for frame f.
func (a *Atlas) Buffer(key ComponentKey, f int) (pipeline.SampleBuffer, bool) {
	c, ok := a.components[key]
	if !ok || c.err != nil || f < 0 || f >= len(c.buffers) {
		return pipeline.SampleBuffer{}, false
	}
	b := c.buffers[f]
	if b.Empty() {
		return pipeline.SampleBuffer{}, false
	}
	return b, true
}

// Readiness reports whether frame f has its patch data and the required
// components. A frame stays pending while any required component holds a
// different number of pictures than the atlas has frames, since the counts
// are only final at the end of the group.
func (a *Atlas) Readiness(f int, required []ComponentKey) Readiness {
	rec, ok := a.Frame(f)
	if !ok {
		return Pending
	}
	if rec.Err != nil {
		return Failed
	}
	for _, key := range required {
		c, ok := a.components[key]
		if !ok {
			return Pending
		}
		if c.err != nil {
			return Failed
		}
		if len(c.buffers) != len(a.frames) {
			return Pending
		}
	}
	return Ready
}

// Release drops the video buffers of every frame up to and including f.
func (a *Atlas) Release(f int) {
	for _, c := range a.components {
		for i := 0; i <= f && i < len(c.buffers); i++ {
			c.buffers[i] = pipeline.SampleBuffer{}
		}
	}
}
