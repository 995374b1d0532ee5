package render

import (
	"bytes"
	"encoding/json"
	"time"

	"promextract/collector"
	"promextract/timerange"
)

type period struct {
	Start           string  `json:"start"`
	End             string  `json:"end"`
	DurationMinutes float64 `json:"duration_minutes"`
}

type metricValue struct {
	Value *float64 `json:"value"` // null when absent
	Unit  string   `json:"unit"`
}

type appDocument struct {
	Application string        `json:"application"`
	Period      period        `json:"period"`
	Metrics     orderedObject `json:"metrics"`
}

type field struct {
	Key   string
	Value interface{}
}

// orderedObject marshals to a JSON object that keeps field order.
type orderedObject []field

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func document(r *collector.Report, w timerange.Window) appDocument {
	metrics := make(orderedObject, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		metrics = append(metrics, field{Key: m.Name, Value: metricValue{Value: m.Value, Unit: m.Unit}})
	}
	return appDocument{
		Application: r.App.Label(),
		Period: period{
			Start:           w.Start.UTC().Format(time.RFC3339Nano),
			End:             w.End.UTC().Format(time.RFC3339Nano),
			DurationMinutes: w.Minutes(),
		},
		Metrics: metrics,
	}
}

func encode(v interface{}) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// JSON renders a single report with raw, unformatted values.
func JSON(r *collector.Report, w timerange.Window) ([]byte, error) {
	return encode(document(r, w))
}

// CompareJSON renders both reports keyed by their short app names.
func CompareJSON(a, b *collector.Report, w timerange.Window) ([]byte, error) {
	return encode(orderedObject{
		{Key: string(a.App), Value: document(a, w)},
		{Key: string(b.App), Value: document(b, w)},
	})
}
