package colorconvert

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/user/vpccdec/pkg/adapters/logger"
	"github.com/user/vpccdec/pkg/adapters/osfilesystem"
	"github.com/user/vpccdec/pkg/mocks"
	"github.com/user/vpccdec/pkg/pipeline"
)

func yuvPicture(depth int, y, cb, cr uint16) pipeline.SampleBuffer {
	b := pipeline.NewSampleBuffer(2, 1, 3, depth)
	for i := 0; i < 2; i++ {
		b.Planes[0][i] = y
		b.Planes[1][i] = cb
		b.Planes[2][i] = cr
	}
	return b
}

func TestBT709(t *testing.T) {
	tests := []struct {
		name      string
		depth     int
		y, cb, cr uint16
		r, g, b   uint16
	}{
		{"black", 8, 16, 128, 128, 0, 0, 0},
		{"white", 8, 235, 128, 128, 255, 255, 255},
		{"grey", 8, 126, 128, 128, 128, 128, 128},
		{"white 10-bit", 10, 940, 512, 512, 1020, 1020, 1020},
		{"clamped red", 8, 81, 90, 240, 255, 24, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := BT709{}.Convert(context.Background(), []pipeline.SampleBuffer{yuvPicture(tt.depth, tt.y, tt.cb, tt.cr)})
			if err != nil {
				t.Fatal(err)
			}
			got := [3]uint16{out[0].At(0, 1, 0), out[0].At(1, 1, 0), out[0].At(2, 1, 0)}
			want := [3]uint16{tt.r, tt.g, tt.b}
			for i := range got {
				d := int(got[i]) - int(want[i])
				if d < -2 || d > 2 {
					t.Errorf("rgb = %v, want %v", got, want)
					break
				}
			}
		})
	}
}

func TestBT709_RejectsSinglePlane(t *testing.T) {
	_, err := BT709{}.Convert(context.Background(), []pipeline.SampleBuffer{pipeline.NewSampleBuffer(1, 1, 1, 8)})
	if err == nil {
		t.Fatal("expected an error for a single-plane picture")
	}
}

func TestNew_SelectsImplementation(t *testing.T) {
	if _, ok := New(Options{}, mocks.NewFileSystem(), logger.NewNoop()).(BT709); !ok {
		t.Error("expected BT709 without a tool path")
	}
	if _, ok := New(Options{ToolPath: "/bin/hdrconvert"}, mocks.NewFileSystem(), logger.NewNoop()).(*External); !ok {
		t.Error("expected External with a tool path")
	}
}

func TestToolArgs(t *testing.T) {
	args := toolArgs("inverse.cfg", "in.yuv", "out.rgb", pipeline.NewSampleBuffer(64, 32, 3, 10), 4)
	for _, want := range []string{"-f", "inverse.cfg", "SourceFile=in.yuv", "OutputFile=out.rgb", "SourceWidth=64", "SourceHeight=32", "NumberOfFrames=4", "SourceBitDepthCmp2=10"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
}

func TestPlanarRoundTrip(t *testing.T) {
	in := []pipeline.SampleBuffer{yuvPicture(10, 700, 300, 900), yuvPicture(10, 1, 2, 3)}
	out, err := readPlanar(writePlanar(in), in[0], 2)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].At(2, 1, 0) != 900 || out[1].At(0, 0, 0) != 1 {
		t.Errorf("round trip lost samples")
	}
	if _, err := readPlanar([]byte{1, 2, 3}, in[0], 2); err == nil {
		t.Error("expected a size error")
	}
}

func TestExternal_Convert(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tool")
	}
	dir := t.TempDir()
	tool := filepath.Join(dir, "copyconvert")
	script := "#!/bin/sh\nfor a in \"$@\"; do\n  case \"$a\" in\n    SourceFile=*) in=\"${a#SourceFile=}\";;\n    OutputFile=*) out=\"${a#OutputFile=}\";;\n  esac\ndone\ncp \"$in\" \"$out\"\n"
	if err := os.WriteFile(tool, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	c := New(Options{ToolPath: tool, WorkDir: filepath.Join(dir, "work")}, osfilesystem.New(), logger.NewNoop())
	in := []pipeline.SampleBuffer{yuvPicture(8, 10, 20, 30)}
	out, err := c.Convert(context.Background(), in)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if out[0].At(1, 0, 0) != 20 {
		t.Errorf("plane 1 sample = %d, want 20", out[0].At(1, 0, 0))
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "work"))
	if len(entries) != 0 {
		t.Errorf("work dir not cleaned up: %v", entries)
	}
}
