package timerange

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvertedWindow  = errors.New("start time is after end time")
)

// Window is the reporting period. Both bounds are UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration is End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Minutes is the window length in minutes rounded to one decimal.
func (w Window) Minutes() float64 {
	return math.Round(w.Duration().Minutes()*10) / 10
}

var durationRe = regexp.MustCompile(`^(\d+)([smh])$`)

// ParseDuration accepts "<integer><unit>" where unit is s, m or h (e.g. "6m").
func ParseDuration(s string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q, use a format like '6m', '1h', '30s'", ErrInvalidDuration, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, s, err)
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	}
	if n > int64(math.MaxInt64/unit) {
		return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDuration, s)
	}
	return time.Duration(n) * unit, nil
}

// LastN returns the window of length d ending at now.
func LastN(d time.Duration, now time.Time) Window {
	end := now.UTC()
	return Window{Start: end.Add(-d), End: end}
}

// FromDuration parses s and counts it back from now.
func FromDuration(s string, now time.Time) (Window, error) {
	d, err := ParseDuration(s)
	if err != nil {
		return Window{}, err
	}
	return LastN(d, now), nil
}

// Timestamps without a zone designator are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 instant such as "2026-01-30T14:00:00Z".
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 timestamp", ErrInvalidTime, s)
}

// Between parses explicit bounds. The start must not be after the end.
func Between(start, end string) (Window, error) {
	s, err := ParseTime(start)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseTime(end)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}
	if s.After(e) {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrInvertedWindow, s.Format(time.RFC3339), e.Format(time.RFC3339))
	}
	return Window{Start: s, End: e}, nil
}
