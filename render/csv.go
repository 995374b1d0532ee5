package render

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"promextract/collector"
)

// CSV renders a single report as metric,value,unit rows. Values use the same
// fixed precision as the markdown table.
func CSV(r *collector.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"metric", "value", "unit"}); err != nil {
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	for _, m := range r.Metrics {
		if err := w.Write([]string{m.Name, m.Format(), m.Unit}); err != nil {
			return nil, fmt.Errorf("write CSV row %s: %w", m.Name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV write error: %w", err)
	}
	return buf.Bytes(), nil
}
