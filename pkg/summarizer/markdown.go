package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Decode Summary\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Source\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Path | %s |\n", orDash(s.Source.Path))
	fmt.Fprintf(&b, "| Size | %s |\n", formatBytes(s.Source.Bytes))
	if s.Source.SessionID != "" {
		fmt.Fprintf(&b, "| Session | %s |\n", s.Source.SessionID)
	}
	b.WriteString("\n")

	if s.Error != "" {
		b.WriteString("## Error\n\n")
		fmt.Fprintf(&b, "> %s\n\n", s.Error)
	}

	b.WriteString("## Stream\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Units | %d |\n", s.Stream.Units)
	fmt.Fprintf(&b, "| Unit groups | %d |\n", s.Stream.Groups)
	fmt.Fprintf(&b, "| Video sub-streams | %d |\n", s.Stream.VideoStreams)
	fmt.Fprintf(&b, "| Duration | %d ms |\n", s.Timing.DurationMs)
	b.WriteString("\n")

	b.WriteString("## Frames\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Emitted | %d |\n", s.Frames.Emitted)
	fmt.Fprintf(&b, "| Skipped | %d |\n", s.Frames.Skipped)
	if s.Frames.Emitted > 0 {
		fmt.Fprintf(&b, "| Points (min / avg / max) | %d / %.1f / %d |\n", s.Frames.MinPoints, s.Frames.AveragePoints(), s.Frames.MaxPoints)
		fmt.Fprintf(&b, "| Colored frames | %d |\n", s.Frames.Colored)
	}
	b.WriteString("\n")

	b.WriteString("## Settings\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Failure policy | %s |\n", orDash(s.Settings.FailurePolicy))
	fmt.Fprintf(&b, "| Video decoder | %s |\n", orDash(s.Settings.VideoDecoder))
	fmt.Fprintf(&b, "| Output format | %s |\n", orDash(s.Settings.OutputFormat))
	fmt.Fprintf(&b, "| Reconstruction | %s |\n", orDash(strings.Join(s.Settings.Reconstruction, ", ")))

	if len(s.Units) > 0 {
		b.WriteString("\n## Units\n\n")
		b.WriteString("| # | Type | VPS | Atlas | Bytes |\n|---|------|-----|-------|-------|\n")
		for _, u := range s.Units {
			fmt.Fprintf(&b, "| %d | %s | %d | %d | %d |\n", u.Index, u.Type, u.ParameterSetID, u.AtlasID, u.Bytes)
		}
	}

	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatBytes formats a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}

var _ Formatter = (*MarkdownFormatter)(nil)
