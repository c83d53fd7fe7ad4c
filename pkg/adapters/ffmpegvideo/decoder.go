// Package ffmpegvideo decodes AVC, HEVC and VVC video sub-streams by
// running an external ffmpeg process. Each stream is written to a work
// directory, decoded to numbered PNG pictures and read back as sample
// buffers.
package ffmpegvideo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/user/vpccdec/pkg/adapters/codecdetect"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// Options configures the decoder.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// WorkDir is where per-stream directories are created. Empty means the
	// system temporary directory.
	WorkDir string
	// KeepIntermediateFiles leaves the bitstreams and pictures on disk.
	KeepIntermediateFiles bool
	// PreserveYUV returns attribute pictures as Y, U, V planes instead of RGB.
	PreserveYUV bool
}

// Decoder implements ports.VideoDecoder with ffmpeg.
type Decoder struct {
	opts   Options
	fs     ports.FileSystem
	logger ports.Logger
}

// New creates an ffmpeg-backed decoder.
func New(opts Options, fs ports.FileSystem, logger ports.Logger) *Decoder {
	return &Decoder{
		opts:   opts,
		fs:     fs,
		logger: logger.WithComponent("ffmpeg"),
	}
}

// Decode decodes every picture of stream.
func (d *Decoder) Decode(ctx context.Context, stream ports.VideoStream) ([]pipeline.SampleBuffer, error) {
	ffmpegPath, err := findFFmpeg(d.opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrVideoDecode, err)
	}

	data := stream.Data
	if codecdetect.DetectContainer(data) == codecdetect.ContainerMP4 {
		if data, err = mp4ToAnnexB(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ports.ErrVideoDecode, stream.Label, err)
		}
	}

	demuxer, err := demuxerName(stream.Codec)
	if err != nil {
		return nil, err
	}

	dir, err := d.fs.CreateTempDir(d.opts.WorkDir, "vpccdec-"+sanitize(stream.Label)+"-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if d.opts.KeepIntermediateFiles {
		d.logger.Debug("Keeping intermediate files in %s", dir)
	} else {
		defer d.fs.RemoveAll(dir)
	}

	input := filepath.Join(dir, "stream."+demuxer)
	if err := d.fs.WriteFile(input, data); err != nil {
		return nil, fmt.Errorf("write stream: %w", err)
	}

	pixFmt, filter := outputFormat(stream, d.opts.PreserveYUV)
	args := buildArgs(demuxer, input, dir, pixFmt, filter)
	d.logger.Debug("Running %s %s", ffmpegPath, strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: ffmpeg: %v: %s", ports.ErrVideoDecode, stream.Label, err, strings.TrimSpace(stderr.String()))
	}

	bufs, err := readPictures(d.fs, dir, stream, d.opts.PreserveYUV)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrVideoDecode, stream.Label, err)
	}

	if want := codecdetect.CountPictures(data, stream.Codec); want >= 0 && want != len(bufs) {
		return nil, fmt.Errorf("%w: %s: ffmpeg produced %d pictures, stream has %d", ports.ErrVideoDecode, stream.Label, len(bufs), want)
	}
	return bufs, nil
}

func sanitize(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
}

var _ ports.VideoDecoder = (*Decoder)(nil)
