package ffmpegvideo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// mp4ToAnnexB extracts the first video track of an MP4 file as an Annex B
// elementary stream, with parameter sets placed before every sync sample.
func mp4ToAnnexB(data []byte) ([]byte, error) {
	reader := bytes.NewReader(data)
	f, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if f.IsFragmented() {
		return fragmentedToAnnexB(f)
	}
	return progressiveToAnnexB(f, reader)
}

func videoTrak(traks []*mp4.TrakBox) *mp4.TrakBox {
	for _, trak := range traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// parameterSets returns the SPS/PPS (AVC) or VPS/SPS/PPS (HEVC) of a track in Annex B form.
func parameterSets(trak *mp4.TrakBox) []byte {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil
	}

	var out []byte
	add := func(nalu []byte) {
		out = append(out, 0, 0, 0, 1)
		out = append(out, nalu...)
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		entry, ok := child.(*mp4.VisualSampleEntryBox)
		if !ok {
			continue
		}
		if entry.AvcC != nil {
			for _, sps := range entry.AvcC.SPSnalus {
				add(sps)
			}
			for _, pps := range entry.AvcC.PPSnalus {
				add(pps)
			}
		}
		if entry.HvcC != nil {
			for _, arr := range entry.HvcC.DecConfRec.NaluArrays {
				for _, nalu := range arr.Nalus {
					add(nalu)
				}
			}
		}
	}
	return out
}

func progressiveToAnnexB(f *mp4.File, reader io.ReadSeeker) ([]byte, error) {
	if f.Moov == nil {
		return nil, fmt.Errorf("no moov box found")
	}
	trak := videoTrak(f.Moov.Traks)
	if trak == nil {
		return nil, fmt.Errorf("no video track found")
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsz == nil {
		return nil, fmt.Errorf("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl
	ps := parameterSets(trak)

	sync := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			sync[nr] = true
		}
	}

	var out []byte
	for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
		sample, err := sampleData(stbl, reader, nr)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", nr, err)
		}
		if sync[nr] || len(sync) == 0 || nr == 1 {
			out = append(out, ps...)
		}
		out = appendAnnexB(out, sample)
	}
	return out, nil
}

func fragmentedToAnnexB(f *mp4.File) ([]byte, error) {
	if f.Init == nil || f.Init.Moov == nil {
		return nil, fmt.Errorf("no init segment found")
	}
	trak := videoTrak(f.Init.Moov.Traks)
	if trak == nil {
		return nil, fmt.Errorf("no video track found")
	}
	trackID := trak.Tkhd.TrackID
	ps := parameterSets(trak)

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil {
		for _, t := range f.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var out []byte
	first := true
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				if first || s.Flags == mp4.SyncSampleFlags {
					out = append(out, ps...)
					first = false
				}
				out = appendAnnexB(out, s.Data)
			}
		}
	}
	return out, nil
}

// sampleData reads one sample of a progressive file.
func sampleData(stbl *mp4.StblBox, reader io.ReadSeeker, nr uint32) ([]byte, error) {
	if stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsc box")
	}
	chunkNr, firstInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return nil, fmt.Errorf("get chunk nr: %w", err)
	}

	var offset uint64
	switch {
	case stbl.Stco != nil:
		if offset, err = stbl.Stco.GetOffset(chunkNr); err != nil {
			return nil, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		offset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, fmt.Errorf("no stco or co64 box")
	}

	for s := uint32(firstInChunk); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	if _, err := reader.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, stbl.Stsz.GetSampleSize(int(nr)))
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}

// appendAnnexB converts length-prefixed NAL units to start-code form.
func appendAnnexB(out, sample []byte) []byte {
	for len(sample) >= 4 {
		n := int(binary.BigEndian.Uint32(sample))
		sample = sample[4:]
		if n > len(sample) {
			break
		}
		out = append(out, 0, 0, 0, 1)
		out = append(out, sample[:n]...)
		sample = sample[n:]
	}
	return out
}
