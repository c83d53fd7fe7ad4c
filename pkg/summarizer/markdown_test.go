package summarizer

import (
	"strings"
	"testing"
	"time"

	"github.com/user/vpccdec/pkg/mocks"
)

func TestMarkdownFormatter_Format_Basic(t *testing.T) {
	formatter := NewMarkdownFormatter()

	summary := &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Source:      SourceInfo{Path: "longdress.bin", Bytes: 1024 * 1024},
		Timing:      TimingInfo{DurationMs: 3000},
		Stream:      StreamInfo{Units: 12, Groups: 2, VideoStreams: 6},
		Frames:      FrameInfo{Emitted: 2, Skipped: 1, TotalPoints: 300, MinPoints: 100, MaxPoints: 200, Colored: 2},
		Settings: Settings{
			FailurePolicy:  "skip-frame",
			VideoDecoder:   "ffmpeg",
			OutputFormat:   "binary",
			Reconstruction: []string{"raw_points", "geometry_smoothing"},
		},
	}

	result := formatter.Format(summary)

	checks := []string{
		"# Decode Summary",
		"2024-01-15T10:30:00Z",
		"longdress.bin",
		"1.00 MB",
		"| Units | 12 |",
		"| Skipped | 1 |",
		"100 / 150.0 / 200",
		"skip-frame",
		"raw_points, geometry_smoothing",
		"3000 ms",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
	if strings.Contains(result, "## Error") || strings.Contains(result, "## Units") {
		t.Error("empty sections should be omitted")
	}
}

func TestMarkdownFormatter_Format_ErrorAndUnits(t *testing.T) {
	summary := NewBuilder().
		WithError(errorString("v3c: framing error")).
		AddUnit(UnitInfo{Index: 0, Type: "VPS", Bytes: 20}).
		AddUnit(UnitInfo{Index: 1, Type: "AD", AtlasID: 1, Bytes: 64}).
		Build()

	result := NewMarkdownFormatter().Format(summary)
	for _, check := range []string{"## Error", "> v3c: framing error", "## Units", "| 1 | AD | 0 | 1 | 64 |", "| Reconstruction | - |"} {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
	if strings.Contains(result, "Points (min") {
		t.Error("point statistics need emitted frames")
	}
}

type errorString string

func (e errorString) Error() string { return string(e) }

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024 * 3, "3.00 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFunc(t *testing.T) {
	f := FormatFunc(func(s *Summary) string { return s.Source.Path })
	if f.Format(&Summary{Source: SourceInfo{Path: "x"}}) != "x" {
		t.Error("FormatFunc should call the function")
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(*Summary) string { return "report" }), fs)

	if err := w.Write("out/summary.md", NewSummary()); err != nil {
		t.Fatal(err)
	}
	data, ok := fs.GetFile("out/summary.md")
	if !ok || string(data) != "report" {
		t.Errorf("file = %q, %v", data, ok)
	}
	found := false
	for _, d := range fs.Dirs() {
		if d == "out" {
			found = true
		}
	}
	if !found {
		t.Errorf("parent directory not created: %v", fs.Dirs())
	}
}
