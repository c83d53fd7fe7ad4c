package streamtest

// Record modes of a patch data group.
const (
	ModeIntra  = 0
	ModeUpdate = 1
	ModeRemove = 2
	ModeRaw    = 3
	ModeEOM    = 4
)

// PatchSpec describes a patch record. Position and size are in blocks;
// W and H are the real block counts, not minus one.
type PatchSpec struct {
	X, Y, W, H   int
	U, V, D      int
	Range        int
	ProjectionID int
	Orientation  int
	PLR          int
	PointCount   int
}

// RecordSpec is one record of a coded frame.
type RecordSpec struct {
	Mode  int
	Patch PatchSpec
	Ref   int
	// Delta holds x, y, w, h (in blocks), u, v, d and range adjustments.
	Delta [8]int
}

// FrameSpec is one coded frame.
type FrameSpec struct {
	Delta   bool
	Records []RecordSpec
}

// GroupSpec describes a patch data group payload.
type GroupSpec struct {
	Log2Block int
	PLR       bool
	EOMBits   int
	Frames    []FrameSpec
	// Declared overrides the frame count when non-zero.
	Declared int
}

// Intra returns an add record.
func Intra(p PatchSpec) RecordSpec {
	return RecordSpec{Mode: ModeIntra, Patch: p}
}

// Update returns an update record.
func Update(ref int, delta [8]int) RecordSpec {
	return RecordSpec{Mode: ModeUpdate, Ref: ref, Delta: delta}
}

// Remove returns a remove record.
func Remove(ref int) RecordSpec {
	return RecordSpec{Mode: ModeRemove, Ref: ref}
}

// Raw returns a raw points record.
func Raw(p PatchSpec) RecordSpec {
	return RecordSpec{Mode: ModeRaw, Patch: p}
}

// EOM returns an enhanced occupancy color record.
func EOM(p PatchSpec) RecordSpec {
	return RecordSpec{Mode: ModeEOM, Patch: p}
}

// PatchDataGroup encodes an atlas data payload.
func PatchDataGroup(g GroupSpec) []byte {
	declared := g.Declared
	if declared == 0 {
		declared = len(g.Frames)
	}
	eomBits := g.EOMBits
	if eomBits == 0 {
		eomBits = 1
	}

	w := &BitWriter{}
	w.WriteUE(uint32(declared))
	w.WriteBits(uint64(g.Log2Block), 3)
	w.WriteFlag(g.PLR)
	w.WriteBits(uint64(eomBits-1), 3)

	for _, f := range g.Frames {
		w.WriteFlag(f.Delta)
		w.WriteUE(uint32(len(f.Records)))
		for _, rec := range f.Records {
			w.WriteUE(uint32(rec.Mode))
			p := rec.Patch
			switch rec.Mode {
			case ModeIntra:
				writeRect(w, p)
				w.WriteUE(uint32(p.U)).WriteUE(uint32(p.V)).WriteUE(uint32(p.D)).WriteUE(uint32(p.Range))
				w.WriteBits(uint64(p.ProjectionID), 3).WriteBits(uint64(p.Orientation), 3)
				if g.PLR {
					w.WriteBits(uint64(p.PLR), 2)
				}
			case ModeUpdate:
				w.WriteUE(uint32(rec.Ref))
				for _, d := range rec.Delta {
					w.WriteSE(int32(d))
				}
			case ModeRemove:
				w.WriteUE(uint32(rec.Ref))
			case ModeRaw:
				writeRect(w, p)
				w.WriteUE(uint32(p.U)).WriteUE(uint32(p.V)).WriteUE(uint32(p.D)).WriteUE(uint32(p.PointCount))
			case ModeEOM:
				writeRect(w, p)
				w.WriteUE(uint32(p.PointCount))
			}
		}
	}

	return w.Align().Bytes()
}

func writeRect(w *BitWriter, p PatchSpec) {
	w.WriteUE(uint32(p.X)).WriteUE(uint32(p.Y)).WriteUE(uint32(p.W - 1)).WriteUE(uint32(p.H - 1))
}
