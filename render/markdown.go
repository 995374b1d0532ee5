package render

import (
	"bytes"
	"fmt"
	"strconv"

	"promextract/catalog"
	"promextract/collector"
	"promextract/timerange"
)

func writePeriod(buf *bytes.Buffer, w timerange.Window) {
	fmt.Fprintf(buf, "Period: %s - %s (%s minutes)\n",
		w.Start.Format("2006-01-02 15:04:05"),
		w.End.Format("15:04:05"),
		strconv.FormatFloat(w.Duration().Minutes(), 'f', 0, 64),
	)
}

// Markdown renders a single application report as a markdown table.
func Markdown(r *collector.Report, w timerange.Window) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Performance Metrics - %s\n", r.App.Label())
	writePeriod(&buf, w)
	buf.WriteString("\n| Metric | Value | Unit |\n")
	buf.WriteString("|--------|-------|------|\n")

	for _, m := range r.Metrics {
		fmt.Fprintf(&buf, "| %s | %s | %s |\n", catalog.Label(m.Name), m.Format(), m.Unit)
	}
	return buf.Bytes()
}

// CompareMarkdown renders two reports side by side. Common metrics share a
// table; each app's connection pool metric is listed separately.
func CompareMarkdown(a, b *collector.Report, w timerange.Window) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Performance Comparison - %s vs %s\n", a.App.DisplayName(), b.App.DisplayName())
	writePeriod(&buf, w)
	fmt.Fprintf(&buf, "\n| Metric | %s | %s | Unit |\n", a.App.DisplayName(), b.App.DisplayName())
	fmt.Fprintf(&buf, "|--------|%s|%s|------|\n", dashes(a.App.DisplayName()), dashes(b.App.DisplayName()))

	for _, name := range catalog.Common() {
		sa, okA := a.Get(name)
		sb, okB := b.Get(name)
		if !okA || !okB {
			continue
		}
		fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n", catalog.Label(name), sa.Format(), sb.Format(), sa.Unit)
	}

	buf.WriteString("\n## Database Connections\n\n")
	buf.WriteString("| Application | Metric | Value | Unit |\n")
	buf.WriteString("|-------------|--------|-------|------|\n")

	for _, r := range []*collector.Report{a, b} {
		name := catalog.PoolMetric(r.App)
		s, ok := r.Get(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n", r.App.DisplayName(), catalog.Label(name), s.Format(), s.Unit)
	}
	return buf.Bytes()
}

// dashes returns a separator cell as wide as a padded header cell.
func dashes(header string) string {
	b := make([]byte, len(header)+2)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
