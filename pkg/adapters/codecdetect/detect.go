// Package codecdetect inspects compressed video sub-streams: it tells MP4
// from Annex B elementary streams, reads the codec of MP4 tracks and counts
// coded pictures.
package codecdetect

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vpccdec/pkg/ports"
)

// Container names how a sub-stream is packaged.
type Container string

const (
	ContainerAnnexB  Container = "annexb"
	ContainerMP4     Container = "mp4"
	ContainerRaw     Container = "raw"
	ContainerUnknown Container = "unknown"
)

var rawMagic = []byte("RAWV")

// DetectContainer sniffs the packaging of data.
func DetectContainer(data []byte) Container {
	switch {
	case bytes.HasPrefix(data, rawMagic):
		return ContainerRaw
	case bytes.HasPrefix(data, []byte{0, 0, 1}), bytes.HasPrefix(data, []byte{0, 0, 0, 1}):
		return ContainerAnnexB
	}
	if len(data) >= 8 {
		switch string(data[4:8]) {
		case "ftyp", "moov", "styp", "moof":
			return ContainerMP4
		}
	}
	return ContainerUnknown
}

// DetectFromMP4 returns the codec of the first video track of an MP4 file.
func DetectFromMP4(data []byte) (ports.VideoCodec, error) {
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode mp4: %w", err)
	}
	return detectFromMP4File(f)
}

func detectFromMP4File(f *mp4.File) (ports.VideoCodec, error) {
	var traks []*mp4.TrakBox
	if f.IsFragmented() && f.Init != nil && f.Init.Moov != nil {
		traks = f.Init.Moov.Traks
	} else if f.Moov != nil {
		traks = f.Moov.Traks
	}

	for _, trak := range traks {
		if codec, ok := trackCodec(trak); ok {
			return codec, nil
		}
	}
	return "", fmt.Errorf("no supported video track found")
}

func trackCodec(trak *mp4.TrakBox) (ports.VideoCodec, bool) {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
		return "", false
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return "", false
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return ports.CodecAVC, true
		case "hvc1", "hev1":
			return ports.CodecHEVC, true
		case "vvc1", "vvi1":
			return ports.CodecVVC, true
		}
	}
	return "", false
}

// CountPictures counts the coded pictures of an Annex B stream by counting
// slices that start a picture. It returns -1 when the codec is not one it
// can parse.
func CountPictures(data []byte, codec ports.VideoCodec) int {
	nalus := avc.ExtractNalusFromByteStream(data)

	n := 0
	switch codec {
	case ports.CodecAVC:
		for _, nalu := range nalus {
			if len(nalu) < 2 {
				continue
			}
			// Coded slice (1) or IDR slice (5) with first_mb_in_slice == 0,
			// which codes as a single '1' bit.
			t := avc.GetNaluType(nalu[0])
			if (t == 1 || t == 5) && nalu[1]&0x80 != 0 {
				n++
			}
		}
	case ports.CodecHEVC:
		for _, nalu := range nalus {
			if len(nalu) < 3 {
				continue
			}
			// VCL types are 0..31; first_slice_segment_in_pic_flag follows
			// the two-byte header.
			if hevc.GetNaluType(nalu[0]) < 32 && nalu[2]&0x80 != 0 {
				n++
			}
		}
	default:
		return -1
	}
	return n
}
