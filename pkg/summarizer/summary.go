// Package summarizer produces human-readable reports of decode passes.
package summarizer

import (
	"time"

	"github.com/user/vpccdec/pkg/orchestrator"
	"github.com/user/vpccdec/pkg/pipeline"
)

// Summary contains the data collected during one decode pass.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	Source   SourceInfo
	Timing   TimingInfo
	Stream   StreamInfo
	Frames   FrameInfo
	Settings Settings

	// Units lists the units of the bitstream, filled by inspection only.
	Units []UnitInfo

	// Error is the error that ended the pass, empty on success.
	Error string
}

// SourceInfo describes the decoded bitstream.
type SourceInfo struct {
	Path      string
	Bytes     int64
	SessionID string
}

// TimingInfo contains timing measurements.
type TimingInfo struct {
	DurationMs int64
}

// StreamInfo counts the container structures that were parsed.
type StreamInfo struct {
	Units        int64
	Groups       int64
	VideoStreams int64
}

// FrameInfo aggregates the emitted frames.
type FrameInfo struct {
	Emitted     int64
	Skipped     int64
	TotalPoints int64
	MinPoints   int
	MaxPoints   int
	// Colored counts frames that carry per-point colors.
	Colored int
}

// AveragePoints returns the mean point count of the emitted frames.
func (f FrameInfo) AveragePoints() float64 {
	if f.Emitted == 0 {
		return 0
	}
	return float64(f.TotalPoints) / float64(f.Emitted)
}

// Settings contains the decode configuration.
type Settings struct {
	FailurePolicy  string
	VideoDecoder   string
	OutputFormat   string
	Reconstruction []string
}

// UnitInfo describes one unit of the bitstream.
type UnitInfo struct {
	Index          int
	Type           string
	ParameterSetID int
	AtlasID        int
	Bytes          int
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
	added   int
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets the source information.
func (b *Builder) WithSource(path string, size int64, sessionID string) *Builder {
	b.summary.Source = SourceInfo{
		Path:      path,
		Bytes:     size,
		SessionID: sessionID,
	}
	return b
}

// WithDuration sets the wall-clock time of the pass.
func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.summary.Timing.DurationMs = d.Milliseconds()
	return b
}

// WithStats copies the counters of a finished pass.
func (b *Builder) WithStats(s orchestrator.Stats) *Builder {
	b.summary.Stream = StreamInfo{
		Units:        s.UnitsParsed,
		Groups:       s.Groups,
		VideoStreams: s.VideoStreams,
	}
	b.summary.Frames.Emitted = s.FramesEmitted
	b.summary.Frames.Skipped = s.FramesSkipped
	return b
}

// AddFrame accumulates the point statistics of an emitted frame.
func (b *Builder) AddFrame(cloud pipeline.PointCloud) *Builder {
	f := &b.summary.Frames
	n := cloud.Len()
	if b.added == 0 || n < f.MinPoints {
		f.MinPoints = n
	}
	b.added++
	if n > f.MaxPoints {
		f.MaxPoints = n
	}
	f.TotalPoints += int64(n)
	if cloud.WithColors {
		f.Colored++
	}
	return b
}

// WithSettings sets the decode configuration.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// AddUnit appends a unit to the listing.
func (b *Builder) AddUnit(u UnitInfo) *Builder {
	b.summary.Units = append(b.summary.Units, u)
	return b
}

// WithError records the error that ended the pass. nil is ignored.
func (b *Builder) WithError(err error) *Builder {
	if err != nil {
		b.summary.Error = err.Error()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
