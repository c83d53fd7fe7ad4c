package ffmpegvideo

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/user/vpccdec/pkg/ports"
)

// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
var ErrFFmpegNotFound = errors.New("ffmpegvideo: ffmpeg not found")

// findFFmpeg returns custom when set, otherwise searches PATH and common
// install locations.
func findFFmpeg(custom string) (string, error) {
	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// IsAvailable reports whether an ffmpeg binary can be found.
func IsAvailable(custom string) bool {
	_, err := findFFmpeg(custom)
	return err == nil
}

// demuxerName maps a codec to ffmpeg's raw elementary stream demuxer.
func demuxerName(codec ports.VideoCodec) (string, error) {
	switch codec {
	case ports.CodecAVC:
		return "h264", nil
	case ports.CodecHEVC:
		return "hevc", nil
	case ports.CodecVVC:
		return "vvc", nil
	default:
		return "", fmt.Errorf("%w: ffmpeg cannot decode codec %q", ports.ErrVideoDecode, codec)
	}
}

// outputFormat selects the PNG pixel format and optional filter for a stream.
// With preserveYUV, 3-plane pictures skip color conversion: Y, U and V are
// carried in the G, B and R channels.
func outputFormat(stream ports.VideoStream, preserveYUV bool) (pixFmt, filter string) {
	deep := stream.BitDepth > 8
	if stream.Planes <= 1 {
		if deep {
			return "gray16be", ""
		}
		return "gray", ""
	}
	if preserveYUV {
		if deep {
			return "rgb48be", "format=yuv444p16le,mergeplanes=0x001020:gbrp16le"
		}
		return "rgb24", "format=yuv444p,mergeplanes=0x001020:gbrp"
	}
	if deep {
		return "rgb48be", ""
	}
	return "rgb24", ""
}

// buildArgs returns the ffmpeg arguments that decode input into numbered PNG files in dir.
func buildArgs(demuxer, input, dir, pixFmt, filter string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", demuxer,
		"-i", input,
		"-vsync", "passthrough",
	}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	return append(args,
		"-pix_fmt", pixFmt,
		"-f", "image2",
		filepath.Join(dir, framePattern),
	)
}

const framePattern = "frame_%05d.png"
