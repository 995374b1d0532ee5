package render

import (
	"errors"
	"fmt"
	"strings"

	"promextract/collector"
	"promextract/timerange"
)

// Format is the output format of a report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// ErrCSVComparison is returned when a comparison is requested as CSV.
var ErrCSVComparison = errors.New("CSV format not supported for comparison mode")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatMarkdown}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format %q (choose from json, csv, markdown)", s)
}

// String implements pflag.Value.
func (f *Format) String() string {
	return string(*f)
}

// Set implements pflag.Value.
func (f *Format) Set(s string) error {
	v, err := ParseFormat(strings.ToLower(s))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string {
	return "format"
}

// Render renders a single report, or a side-by-side comparison when two
// reports are given.
func Render(f Format, w timerange.Window, reports ...*collector.Report) ([]byte, error) {
	switch len(reports) {
	case 1:
		r := reports[0]
		switch f {
		case FormatMarkdown:
			return Markdown(r, w), nil
		case FormatJSON:
			return JSON(r, w)
		case FormatCSV:
			return CSV(r)
		}
	case 2:
		switch f {
		case FormatMarkdown:
			return CompareMarkdown(reports[0], reports[1], w), nil
		case FormatJSON:
			return CompareJSON(reports[0], reports[1], w)
		case FormatCSV:
			return nil, ErrCSVComparison
		}
	default:
		return nil, fmt.Errorf("render: expected 1 or 2 reports, got %d", len(reports))
	}
	return nil, fmt.Errorf("render: unknown format %q", string(f))
}
