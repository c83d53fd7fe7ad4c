// Package colorconvert turns decoded Y'CbCr attribute pictures into RGB.
//
// External runs a conversion tool in the style of HDRConvert on planar
// 4:4:4 files; BT709 converts in process and is used when no tool is
// configured.
package colorconvert

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// Options configures the converter.
type Options struct {
	// ToolPath is the conversion executable. Empty selects BT709.
	ToolPath string
	// ConfigPath is passed to the tool with -f.
	ConfigPath            string
	WorkDir               string
	KeepIntermediateFiles bool
}

// New returns an External converter when opts.ToolPath is set, BT709 otherwise.
func New(opts Options, fs ports.FileSystem, logger ports.Logger) ports.ColorConverter {
	if opts.ToolPath == "" {
		return BT709{}
	}
	return &External{opts: opts, fs: fs, logger: logger.WithComponent("colorconvert")}
}

// External converts through an external tool.
type External struct {
	opts   Options
	fs     ports.FileSystem
	logger ports.Logger
}

// Convert writes bufs to a planar file, runs the tool and reads the result
// back with the same geometry.
func (c *External) Convert(ctx context.Context, bufs []pipeline.SampleBuffer) ([]pipeline.SampleBuffer, error) {
	if len(bufs) == 0 {
		return bufs, nil
	}
	first := bufs[0]
	if len(first.Planes) != 3 {
		return nil, fmt.Errorf("colorconvert: expected 3 planes, got %d", len(first.Planes))
	}

	dir, err := c.fs.CreateTempDir(c.opts.WorkDir, "vpccdec-csc-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if !c.opts.KeepIntermediateFiles {
		defer c.fs.RemoveAll(dir)
	}

	in := filepath.Join(dir, "attribute_yuv444.yuv")
	out := filepath.Join(dir, "attribute_rgb444.rgb")
	if err := c.fs.WriteFile(in, writePlanar(bufs)); err != nil {
		return nil, fmt.Errorf("write planar input: %w", err)
	}

	args := toolArgs(c.opts.ConfigPath, in, out, first, len(bufs))
	c.logger.Debug("Running %s %s", c.opts.ToolPath, strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.opts.ToolPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("colorconvert: %s: %w: %s", filepath.Base(c.opts.ToolPath), err, strings.TrimSpace(stderr.String()))
	}

	data, err := c.fs.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read converted output: %w", err)
	}
	return readPlanar(data, first, len(bufs))
}

func toolArgs(config, in, out string, geom pipeline.SampleBuffer, frames int) []string {
	var args []string
	if config != "" {
		args = append(args, "-f", config)
	}
	param := func(k string, v interface{}) {
		args = append(args, "-p", fmt.Sprintf("%s=%v", k, v))
	}
	param("SourceFile", in)
	param("OutputFile", out)
	param("SourceWidth", geom.Width)
	param("SourceHeight", geom.Height)
	param("NumberOfFrames", frames)
	param("SourceChromaFormat", 3)
	param("OutputChromaFormat", 3)
	for i := 0; i < 3; i++ {
		param("SourceBitDepthCmp"+strconv.Itoa(i), geom.BitDepth)
		param("OutputBitDepthCmp"+strconv.Itoa(i), geom.BitDepth)
	}
	return args
}

func sampleSize(depth int) int {
	if depth > 8 {
		return 2
	}
	return 1
}

// writePlanar serializes pictures plane by plane; samples deeper than
// 8 bits are little-endian 16-bit words.
func writePlanar(bufs []pipeline.SampleBuffer) []byte {
	size := sampleSize(bufs[0].BitDepth)
	var out []byte
	for _, b := range bufs {
		for _, plane := range b.Planes {
			for _, v := range plane {
				if size == 1 {
					out = append(out, byte(v))
				} else {
					out = binary.LittleEndian.AppendUint16(out, v)
				}
			}
		}
	}
	return out
}

func readPlanar(data []byte, geom pipeline.SampleBuffer, frames int) ([]pipeline.SampleBuffer, error) {
	size := sampleSize(geom.BitDepth)
	frameBytes := geom.Width * geom.Height * 3 * size
	if len(data) != frameBytes*frames {
		return nil, fmt.Errorf("colorconvert: output holds %d bytes, want %d", len(data), frameBytes*frames)
	}

	out := make([]pipeline.SampleBuffer, frames)
	off := 0
	for i := range out {
		b := pipeline.NewSampleBuffer(geom.Width, geom.Height, 3, geom.BitDepth)
		for p := range b.Planes {
			for j := range b.Planes[p] {
				if size == 1 {
					b.Planes[p][j] = uint16(data[off])
				} else {
					b.Planes[p][j] = binary.LittleEndian.Uint16(data[off:])
				}
				off += size
			}
		}
		out[i] = b
	}
	return out, nil
}

// BT709 converts limited-range BT.709 Y'CbCr to RGB in process.
type BT709 struct{}

// Convert returns new buffers; the inputs are not modified.
func (BT709) Convert(ctx context.Context, bufs []pipeline.SampleBuffer) ([]pipeline.SampleBuffer, error) {
	out := make([]pipeline.SampleBuffer, len(bufs))
	for i, b := range bufs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(b.Planes) != 3 {
			return nil, fmt.Errorf("colorconvert: picture %d has %d planes, want 3", i, len(b.Planes))
		}
		out[i] = convertBT709(b)
	}
	return out, nil
}

func convertBT709(b pipeline.SampleBuffer) pipeline.SampleBuffer {
	out := pipeline.NewSampleBuffer(b.Width, b.Height, 3, b.BitDepth)
	shift := b.BitDepth - 8
	if shift < 0 {
		shift = 0
	}
	scale := float64(int(1) << shift)
	maxV := 255 * scale
	if b.BitDepth > 8 {
		maxV = float64(int(1)<<b.BitDepth - 1)
	}

	for i := range b.Planes[0] {
		y := (float64(b.Planes[0][i])/scale - 16) * 255 / 219
		cb := (float64(b.Planes[1][i])/scale - 128) * 255 / 224
		cr := (float64(b.Planes[2][i])/scale - 128) * 255 / 224

		rgb := [3]float64{
			y + 1.5748*cr,
			y - 0.1873*cb - 0.4681*cr,
			y + 1.8556*cb,
		}
		for p, v := range rgb {
			v *= scale
			if v < 0 {
				v = 0
			} else if v > maxV {
				v = maxV
			}
			out.Planes[p][i] = uint16(v + 0.5)
		}
	}
	return out
}
