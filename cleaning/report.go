package cleaning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a signed byte count.
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Summary renders the per-step audit table and the totals line of a run.
func (r *RunResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-34s %10s %12s %12s %10s %9s\n", "stage", "lines", "chars", "size", "Δ lines", "Δ %")
	fmt.Fprintf(&b, "%-34s %10s %12s %12s %10s %9s\n", r.Original.Name(),
		humanize.Comma(int64(r.Original.TotalLines)), humanize.Comma(int64(r.Original.TotalChars)),
		FormatBytes(r.Original.SizeBytes), "-", "-")
	for _, s := range r.Steps {
		label := fmt.Sprintf("%d. %s", s.Position, s.Name)
		fmt.Fprintf(&b, "%-34s %10s %12s %12s %10s %8.2f%%\n", label,
			humanize.Comma(int64(s.Audit.Output.TotalLines)), humanize.Comma(int64(s.Audit.Output.TotalChars)),
			FormatBytes(s.Audit.Output.SizeBytes), humanize.Comma(-s.Audit.DeltaLines), -s.Audit.DeltaPercent)
		if m := formatMetrics(s.Metrics); m != "" {
			fmt.Fprintf(&b, "%-34s %s\n", "", m)
		}
	}
	fmt.Fprintf(&b, "%-34s %10s %12s %12s %10s %8.2f%%\n", "total",
		humanize.Comma(-r.Totals.DeltaLines), humanize.Comma(-r.Totals.DeltaChars),
		FormatBytes(-r.Totals.DeltaBytes), "", -r.Totals.DeltaPercent)
	return b.String()
}

func formatMetrics(m StepMetrics) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}
