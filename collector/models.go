package collector

import (
	"strconv"
	"time"

	"promextract/catalog"
)

// NotAvailable is printed in place of a missing value.
const NotAvailable = "N/A"

// Sample holds one evaluated metric. A nil Value means Prometheus had no
// usable data for it.
type Sample struct {
	Value     *float64 // already converted to Unit
	Unit      string   // display unit, e.g. "MB"
	Precision int      // decimals used when formatting
}

// Format renders the value with the metric's precision, or N/A.
func (s Sample) Format() string {
	if s.Value == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*s.Value, 'f', s.Precision, 64)
}

// NamedSample pairs a Sample with its metric name.
type NamedSample struct {
	Name string
	Sample
}

// Report is the result of evaluating a catalog for one application.
// Metrics keep catalog order.
type Report struct {
	App     catalog.App
	At      time.Time // evaluation instant
	Metrics []NamedSample
}

// NewReport creates an empty report for app evaluated at ts.
func NewReport(app catalog.App, ts time.Time) *Report {
	return &Report{
		App: app,
		At:  ts,
	}
}

// Get returns the sample stored under name.
func (r *Report) Get(name string) (Sample, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Sample, true
		}
	}
	return Sample{}, false
}

func (r *Report) add(name string, s Sample) {
	r.Metrics = append(r.Metrics, NamedSample{Name: name, Sample: s})
}
