package catalog

import "fmt"

// RateWindow is the rolling window used by every rate/average expression.
const RateWindow = "5m"

const bytesPerMB = 1024 * 1024

// App identifies one of the load-tested applications.
type App string

const (
	WebFlux App = "webflux"
	MVC     App = "mvc"
)

// Apps returns every known application in report order.
func Apps() []App {
	return []App{WebFlux, MVC}
}

// ParseApp validates a short application name such as "webflux".
func ParseApp(s string) (App, error) {
	for _, a := range Apps() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown application %q (want webflux or mvc)", s)
}

// Label is the value of the `application` label Prometheus stores for the app.
func (a App) Label() string {
	switch a {
	case WebFlux:
		return "reactive-webflux"
	case MVC:
		return "non-reactive-mvc"
	}
	panic(fmt.Sprintf("catalog: unknown application %q", string(a)))
}

// DisplayName is the short heading used in comparison tables.
func (a App) DisplayName() string {
	switch a {
	case WebFlux:
		return "WebFlux"
	case MVC:
		return "MVC"
	}
	panic(fmt.Sprintf("catalog: unknown application %q", string(a)))
}

// Descriptor describes how a single metric is queried and displayed.
type Descriptor struct {
	Name        string                // e.g. "p95_response_time"
	Query       string                // PromQL expression scoped to one application
	Unit        string                // unit of the raw query result
	DisplayUnit string                // unit after Convert; empty means Unit
	Precision   int                   // decimals used by text renderers
	Convert     func(float64) float64 // optional, applied to the raw value
}

// OutputUnit is the unit a rendered value is expressed in.
func (d Descriptor) OutputUnit() string {
	if d.DisplayUnit != "" {
		return d.DisplayUnit
	}
	return d.Unit
}

// BytesToMB converts a byte count into mebibytes.
func BytesToMB(v float64) float64 {
	return v / bytesPerMB
}

// For returns the descriptors evaluated for app, in report order.
// The first nine are shared by every application, the last one is the
// connection pool gauge of the app's database driver.
func For(app App) []Descriptor {
	l := app.Label()

	ds := []Descriptor{
		{
			Name:      "p95_response_time",
			Query:     fmt.Sprintf(`histogram_quantile(0.95, sum(rate(http_server_requests_seconds_bucket{application="%s",uri=~".*"}[%s])) by (le))`, l, RateWindow),
			Unit:      "s",
			Precision: 3,
		},
		{
			Name:      "mean_response_time",
			Query:     fmt.Sprintf(`sum(rate(http_server_requests_seconds_sum{application="%s"}[%s])) / sum(rate(http_server_requests_seconds_count{application="%s"}[%s]))`, l, RateWindow, l, RateWindow),
			Unit:      "s",
			Precision: 3,
		},
		{
			Name:      "request_rate",
			Query:     fmt.Sprintf(`sum(rate(http_server_requests_seconds_count{application="%s"}[%s]))`, l, RateWindow),
			Unit:      "req/s",
			Precision: 2,
		},
		{
			Name:      "error_rate",
			Query:     fmt.Sprintf(`(sum(rate(http_server_requests_seconds_count{application="%s",status=~"5.."}[%s])) / sum(rate(http_server_requests_seconds_count{application="%s"}[%s]))) * 100`, l, RateWindow, l, RateWindow),
			Unit:      "%",
			Precision: 2,
		},
		{
			Name:      "thread_count",
			Query:     fmt.Sprintf(`avg_over_time(jvm_threads_live_threads{application="%s"}[%s])`, l, RateWindow),
			Unit:      "threads",
			Precision: 1,
		},
		{
			Name:        "heap_memory",
			Query:       fmt.Sprintf(`sum(avg_over_time(jvm_memory_used_bytes{application="%s",area="heap"}[%s]))`, l, RateWindow),
			Unit:        "bytes",
			DisplayUnit: "MB",
			Precision:   0,
			Convert:     BytesToMB,
		},
		{
			Name:      "cpu_usage",
			Query:     fmt.Sprintf(`avg_over_time(process_cpu_usage{application="%s"}[%s]) * 100`, l, RateWindow),
			Unit:      "%",
			Precision: 2,
		},
		{
			Name:      "gc_pause_time",
			Query:     fmt.Sprintf(`sum(rate(jvm_gc_pause_seconds_sum{application="%s"}[%s])) * 1000`, l, RateWindow),
			Unit:      "ms",
			Precision: 2,
		},
		{
			Name:      "uptime",
			Query:     fmt.Sprintf(`process_uptime_seconds{application="%s"} / 3600`, l),
			Unit:      "h",
			Precision: 2,
		},
	}

	return append(ds, poolDescriptor(app))
}

func poolDescriptor(app App) Descriptor {
	l := app.Label()
	var gauge string
	switch app {
	case WebFlux:
		gauge = "r2dbc_pool_acquired_connections"
	case MVC:
		gauge = "hikaricp_connections_active"
	}
	return Descriptor{
		Name:      PoolMetric(app),
		Query:     fmt.Sprintf(`avg_over_time(%s{application="%s"}[%s])`, gauge, l, RateWindow),
		Unit:      "connections",
		Precision: 1,
	}
}

// PoolMetric is the name of the app-specific connection pool metric.
func PoolMetric(app App) string {
	switch app {
	case WebFlux:
		return "r2dbc_connections"
	case MVC:
		return "hikaricp_connections"
	}
	panic(fmt.Sprintf("catalog: unknown application %q", string(app)))
}

// Common lists the metric names every application reports, in report order.
func Common() []string {
	return []string{
		"p95_response_time",
		"mean_response_time",
		"request_rate",
		"error_rate",
		"thread_count",
		"heap_memory",
		"cpu_usage",
		"gc_pause_time",
		"uptime",
	}
}

var labels = map[string]string{
	"p95_response_time":    "P95 Response Time",
	"mean_response_time":   "Mean Response Time",
	"request_rate":         "Request Rate",
	"error_rate":           "Error Rate",
	"thread_count":         "Thread Count",
	"heap_memory":          "Heap Memory",
	"cpu_usage":            "CPU Usage",
	"gc_pause_time":        "GC Pause Time",
	"uptime":               "Uptime",
	"r2dbc_connections":    "R2DBC Connections",
	"hikaricp_connections": "HikariCP Connections",
}

// Label returns the human readable name of a metric, or name itself when unknown.
func Label(name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}
