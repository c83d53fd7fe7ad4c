package atlas

import (
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/bitstream"
)

// ErrMalformed is returned when the patch data group header cannot be read.
var ErrMalformed = errors.New("atlas: malformed patch data group")

// FrameType says how a coded frame's patch list is expressed.
type FrameType uint8

const (
	FrameIntra FrameType = 0
	FrameDelta FrameType = 1
)

// String returns the frame type name.
func (t FrameType) String() string {
	if t == FrameDelta {
		return "delta"
	}
	return "intra"
}

// Patch mode codes of a patch data group record.
const (
	modeIntra  = 0
	modeUpdate = 1
	modeRemove = 2
	modeRaw    = 3
	modeEOM    = 4
)

const minFrameBits = 2

// CodedFrame is the patch information of one frame as it appears in the
// bitstream, before delta resolution.
type CodedFrame struct {
	Type  FrameType
	Edits []Edit
	Raw   []RawPatch
	EOM   []EOMPatch
}

// PatchDataGroup is the decoded payload of one atlas data unit.
type PatchDataGroup struct {
	BlockSize   int
	PLREnabled  bool
	EOMBitCount int

	// Declared is the number of frames the unit announces.
	Declared int
	// Frames holds the frames decoded before any parse error.
	Frames []CodedFrame
	// Err is the parse error that stopped decoding, if any. Frames
	// Frames[len(Frames):Declared] are lost.
	Err error
}

// DecodePatchDataGroup parses an atlas data payload. An error is returned
// only when the group header is unreadable; record-level failures are
// reported through PatchDataGroup.Err so earlier frames stay usable.
func DecodePatchDataGroup(payload []byte) (*PatchDataGroup, error) {
	r := bitstream.NewReader(payload)

	count, err := r.ReadUE()
	if err != nil {
		return nil, fmt.Errorf("%w: frame count: %v", ErrMalformed, err)
	}
	log2Block, err := r.ReadUint(3)
	if err != nil {
		return nil, fmt.Errorf("%w: block size: %v", ErrMalformed, err)
	}
	plr, err := r.ReadFlag()
	if err != nil {
		return nil, fmt.Errorf("%w: plr flag: %v", ErrMalformed, err)
	}
	eomBits, err := r.ReadUint(3)
	if err != nil {
		return nil, fmt.Errorf("%w: eom bit count: %v", ErrMalformed, err)
	}

	// A frame takes at least its delta flag and a one-bit record count.
	if int64(count) > int64(r.RemainingBits()/minFrameBits) {
		return nil, fmt.Errorf("%w: %d frames declared, %d bits left", ErrMalformed, count, r.RemainingBits())
	}

	g := &PatchDataGroup{
		BlockSize:   1 << log2Block,
		PLREnabled:  plr,
		EOMBitCount: int(eomBits) + 1,
		Declared:    int(count),
	}

	d := recordDecoder{r: r, block: g.BlockSize, plr: plr}
	for i := 0; i < g.Declared; i++ {
		f, err := d.frame()
		if err != nil {
			g.Err = fmt.Errorf("frame %d of %d: %w", i, g.Declared, err)
			break
		}
		g.Frames = append(g.Frames, f)
	}

	return g, nil
}

type recordDecoder struct {
	r     *bitstream.Reader
	block int
	plr   bool
}

func (d *recordDecoder) frame() (CodedFrame, error) {
	var f CodedFrame

	delta, err := d.r.ReadFlag()
	if err != nil {
		return f, err
	}
	if delta {
		f.Type = FrameDelta
	}
	n, err := d.r.ReadUE()
	if err != nil {
		return f, err
	}

	for i := uint32(0); i < n; i++ {
		mode, err := d.r.ReadUE()
		if err != nil {
			return f, err
		}
		switch mode {
		case modeIntra:
			p, err := d.intra()
			if err != nil {
				return f, fmt.Errorf("record %d: %w", i, err)
			}
			f.Edits = append(f.Edits, Edit{Kind: EditAdd, Patch: p})
		case modeUpdate:
			e, err := d.update()
			if err != nil {
				return f, fmt.Errorf("record %d: %w", i, err)
			}
			f.Edits = append(f.Edits, e)
		case modeRemove:
			ref, err := d.r.ReadUE()
			if err != nil {
				return f, fmt.Errorf("record %d: %w", i, err)
			}
			f.Edits = append(f.Edits, Edit{Kind: EditRemove, Ref: int(ref)})
		case modeRaw:
			p, err := d.raw()
			if err != nil {
				return f, fmt.Errorf("record %d: %w", i, err)
			}
			f.Raw = append(f.Raw, p)
		case modeEOM:
			p, err := d.eom()
			if err != nil {
				return f, fmt.Errorf("record %d: %w", i, err)
			}
			f.EOM = append(f.EOM, p)
		default:
			return f, fmt.Errorf("%w: record %d mode %d", ErrUnknownPatchMode, i, mode)
		}
	}

	return f, nil
}

// ues reads len(dst) unsigned exp-Golomb values.
func (d *recordDecoder) ues(dst ...*int) error {
	for _, p := range dst {
		v, err := d.r.ReadUE()
		if err != nil {
			return err
		}
		*p = int(v)
	}
	return nil
}

func (d *recordDecoder) ses(dst ...*int) error {
	for _, p := range dst {
		v, err := d.r.ReadSE()
		if err != nil {
			return err
		}
		*p = int(v)
	}
	return nil
}

// rect reads a block-aligned position and a minus-one size and scales both to samples.
func (d *recordDecoder) rect() (x, y, w, h int, err error) {
	if err = d.ues(&x, &y, &w, &h); err != nil {
		return
	}
	return x * d.block, y * d.block, (w + 1) * d.block, (h + 1) * d.block, nil
}

func (d *recordDecoder) intra() (Patch, error) {
	var p Patch
	var err error

	if p.X, p.Y, p.Width, p.Height, err = d.rect(); err != nil {
		return p, err
	}
	if err := d.ues(&p.OffsetU, &p.OffsetV, &p.OffsetD, &p.RangeD); err != nil {
		return p, err
	}

	id, err := d.r.ReadUint(3)
	if err != nil {
		return p, err
	}
	axis, mode, ok := projectionFromID(id)
	if !ok {
		return p, fmt.Errorf("%w: projection id %d", ErrInvalidPatch, id)
	}
	p.Axis, p.Projection = axis, mode

	o, err := d.r.ReadUint(3)
	if err != nil {
		return p, err
	}
	p.Orientation = Orientation(o)

	if d.plr {
		m, err := d.r.ReadUint(2)
		if err != nil {
			return p, err
		}
		if m > uint32(PLRInterpolate) {
			return p, fmt.Errorf("%w: plr mode %d", ErrInvalidPatch, m)
		}
		p.PLR = PLRMode(m)
	}

	return p, nil
}

func (d *recordDecoder) update() (Edit, error) {
	e := Edit{Kind: EditUpdate}

	ref, err := d.r.ReadUE()
	if err != nil {
		return e, err
	}
	e.Ref = int(ref)

	dl := &e.Delta
	if err := d.ses(&dl.X, &dl.Y, &dl.Width, &dl.Height, &dl.OffsetU, &dl.OffsetV, &dl.OffsetD, &dl.RangeD); err != nil {
		return e, err
	}
	dl.X *= d.block
	dl.Y *= d.block
	dl.Width *= d.block
	dl.Height *= d.block

	return e, nil
}

func (d *recordDecoder) raw() (RawPatch, error) {
	var p RawPatch
	var err error

	if p.X, p.Y, p.Width, p.Height, err = d.rect(); err != nil {
		return p, err
	}
	err = d.ues(&p.OffsetU, &p.OffsetV, &p.OffsetD, &p.PointCount)
	return p, err
}

func (d *recordDecoder) eom() (EOMPatch, error) {
	var p EOMPatch
	var err error

	if p.X, p.Y, p.Width, p.Height, err = d.rect(); err != nil {
		return p, err
	}
	err = d.ues(&p.PointCount)
	return p, err
}
