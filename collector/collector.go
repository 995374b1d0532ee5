package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"promextract/catalog"
)

// Querier evaluates a PromQL expression at a single instant.
// A nil value with a nil error means the query produced no usable sample.
type Querier interface {
	Query(ctx context.Context, query string, at time.Time) (*float64, error)
}

// Collect evaluates every catalog entry for app at the given instant.
// A failing query is logged and recorded as missing; collection always
// returns a complete report.
func Collect(ctx context.Context, q Querier, app catalog.App, at time.Time, log *zap.Logger) *Report {
	rep := NewReport(app, at)

	for _, d := range catalog.For(app) {
		s := Sample{Unit: d.OutputUnit(), Precision: d.Precision}

		v, err := q.Query(ctx, d.Query, at)
		switch {
		case err != nil:
			log.Warn("query failed, metric will be reported as N/A",
				zap.String("app", string(app)),
				zap.String("metric", d.Name),
				zap.String("query", d.Query),
				zap.Error(err),
			)
		case v == nil:
			log.Debug("no data", zap.String("app", string(app)), zap.String("metric", d.Name))
		default:
			val := *v
			if d.Convert != nil {
				val = d.Convert(val)
			}
			s.Value = &val
		}

		rep.add(d.Name, s)
	}
	return rep
}
