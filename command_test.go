package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 30, 14, 6, 0, 0, time.UTC)

// fakePrometheus answers instant queries from a table of query substrings.
// Queries matching nothing return an empty vector.
type fakePrometheus struct {
	srv     *httptest.Server
	healthy bool
	values  []rule

	mu    sync.Mutex
	hits  int
	times []string
}

type rule struct {
	match []string // every substring must be present in the query
	value string   // sample value; empty means HTTP 500
}

func newFakePrometheus(t *testing.T, rules ...rule) *fakePrometheus {
	t.Helper()
	f := &fakePrometheus{healthy: true, values: rules}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePrometheus) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits++
	healthy := f.healthy
	f.mu.Unlock()

	switch r.URL.Path {
	case "/-/healthy":
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "Prometheus Server is Healthy.")
	case "/api/v1/query":
		q := r.URL.Query().Get("query")
		f.mu.Lock()
		f.times = append(f.times, r.URL.Query().Get("time"))
		f.mu.Unlock()

		for _, rl := range f.values {
			if matchesAll(q, rl.match) {
				if rl.value == "" {
					http.Error(w, "boom", http.StatusInternalServerError)
					return
				}
				fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1769781960,"%s"]}]}}`, rl.value)
				return
			}
		}
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakePrometheus) down() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = false
}

func (f *fakePrometheus) queryTimes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.times...)
}

func (f *fakePrometheus) hitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func matchesAll(q string, subs []string) bool {
	for _, s := range subs {
		if !strings.Contains(q, s) {
			return false
		}
	}
	return true
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	old := nowFn
	nowFn = func() time.Time { return fixedNow }
	t.Cleanup(func() { nowFn = old })

	var out, errOut bytes.Buffer
	code = execute(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestSingleAppCSV(t *testing.T) {
	prom := newFakePrometheus(t,
		rule{match: []string{"http_server_requests_seconds_bucket", `application="reactive-webflux"`}, value: "0.042"},
	)

	code, out, errOut := runCLI(t, "--app", "webflux", "--duration", "5m", "--format", "csv", "--prometheus-url", prom.srv.URL)

	require.Equal(t, exitOK, code, errOut)
	assert.True(t, strings.HasPrefix(out, "metric,value,unit\n"))
	assert.Contains(t, out, "\np95_response_time,0.042,s\n")
	assert.Contains(t, out, "\nheap_memory,N/A,MB\n")
	assert.Contains(t, errOut, "Collecting WebFlux metrics...")
	assert.NotContains(t, out, "Collecting")
}

func TestCompareMarkdown(t *testing.T) {
	prom := newFakePrometheus(t,
		rule{match: []string{`status=~"5.."`, `application="reactive-webflux"`}, value: "0"},
		rule{match: []string{`status=~"5.."`, `application="non-reactive-mvc"`}, value: "1.25"},
	)

	code, out, errOut := runCLI(t, "--compare", "--duration", "6m", "--format", "markdown", "--prometheus-url", prom.srv.URL)

	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "# Performance Comparison - WebFlux vs MVC\n")
	assert.Contains(t, out, "Period: 2026-01-30 14:00:00 - 14:06:00 (6 minutes)\n")
	assert.Contains(t, out, "| Error Rate | 0.00 | 1.25 | % |\n")
	assert.Contains(t, out, "| MVC | HikariCP Connections | N/A | connections |")
	assert.Less(t, strings.Index(errOut, "Collecting WebFlux"), strings.Index(errOut, "Collecting MVC"))
}

func TestExplicitWindowJSON(t *testing.T) {
	prom := newFakePrometheus(t,
		rule{match: []string{"jvm_memory_used_bytes"}, value: "268435456"},
	)

	code, out, errOut := runCLI(t, "--app", "mvc",
		"--start", "2026-01-30T14:00:00Z", "--end", "2026-01-30T14:06:00Z",
		"--format", "json", "--prometheus-url", prom.srv.URL)
	require.Equal(t, exitOK, code, errOut)

	var doc struct {
		Application string `json:"application"`
		Period      struct {
			DurationMinutes float64 `json:"duration_minutes"`
		} `json:"period"`
		Metrics map[string]struct {
			Value *float64 `json:"value"`
			Unit  string   `json:"unit"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "non-reactive-mvc", doc.Application)
	assert.Equal(t, 6.0, doc.Period.DurationMinutes)
	require.NotNil(t, doc.Metrics["heap_memory"].Value)
	assert.Equal(t, 256.0, *doc.Metrics["heap_memory"].Value)
	assert.Equal(t, "MB", doc.Metrics["heap_memory"].Unit)

	times := prom.queryTimes()
	require.Len(t, times, 10)
	for _, ts := range times {
		assert.Equal(t, "2026-01-30T14:06:00Z", ts)
	}
}

func TestFailedQueryDegrades(t *testing.T) {
	prom := newFakePrometheus(t,
		rule{match: []string{"process_cpu_usage"}, value: ""},
		rule{match: []string{"process_uptime_seconds"}, value: "NaN"},
	)

	code, out, errOut := runCLI(t, "--app", "webflux", "--duration", "6m", "--prometheus-url", prom.srv.URL)

	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "| CPU Usage | N/A | % |")
	assert.Contains(t, out, "| Uptime | N/A | h |")
	assert.Contains(t, errOut, "cpu_usage")
	assert.NotContains(t, errOut, "uptime")
}

func TestOutputFile(t *testing.T) {
	prom := newFakePrometheus(t)
	path := filepath.Join(t.TempDir(), "results.md")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	code, out, errOut := runCLI(t, "--app", "webflux", "--duration", "6m", "--output", path, "--prometheus-url", prom.srv.URL)

	require.Equal(t, exitOK, code, errOut)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Output written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Performance Metrics - reactive-webflux\n"))
	assert.NotContains(t, string(data), "stale")
}

func TestOutputFileError(t *testing.T) {
	prom := newFakePrometheus(t)
	path := filepath.Join(t.TempDir(), "missing", "results.md")

	code, _, errOut := runCLI(t, "--app", "webflux", "--duration", "6m", "--output", path, "--prometheus-url", prom.srv.URL)

	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "writing output")
}

func TestUnreachablePrometheus(t *testing.T) {
	prom := newFakePrometheus(t)
	prom.down()

	code, out, errOut := runCLI(t, "--app", "mvc", "--duration", "6m", "--prometheus-url", prom.srv.URL)

	assert.Equal(t, exitError, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "cannot connect to Prometheus at "+prom.srv.URL)
	assert.Contains(t, errOut, "docker-compose up -d")
	assert.NotContains(t, errOut, "Collecting")
	assert.Equal(t, 1, prom.hitCount())
}

func TestUsageErrorsMakeNoRequests(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no target", []string{"--duration", "6m"}, "either --app or --compare"},
		{"both targets", []string{"--app", "mvc", "--compare", "--duration", "6m"}, "mutually exclusive"},
		{"duration and start", []string{"--app", "mvc", "--duration", "6m", "--start", "2026-01-30T14:00:00Z"}, "cannot specify both"},
		{"no window", []string{"--app", "mvc"}, "must specify either --duration"},
		{"start without end", []string{"--app", "mvc", "--start", "2026-01-30T14:00:00Z"}, "must specify either --duration"},
		{"csv comparison", []string{"--compare", "--duration", "6m", "--format", "csv"}, "CSV format not supported"},
		{"unknown app", []string{"--app", "spring", "--duration", "6m"}, "unknown application"},
		{"unknown format", []string{"--app", "mvc", "--duration", "6m", "--format", "xml"}, "invalid format"},
		{"unknown flag", []string{"--app", "mvc", "--duration", "6m", "--verbose"}, "unknown flag"},
		{"positional", []string{"--app", "mvc", "--duration", "6m", "extra"}, "unexpected arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prom := newFakePrometheus(t)
			args := append(tt.args, "--prometheus-url", prom.srv.URL)

			code, out, errOut := runCLI(t, args...)

			assert.Equal(t, exitUsage, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, tt.want)
			assert.Zero(t, prom.hitCount())
		})
	}
}

func TestBadTimeInputMakesNoRequests(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad duration", []string{"--duration", "6d"}},
		{"bad start", []string{"--start", "yesterday", "--end", "2026-01-30T14:06:00Z"}},
		{"inverted window", []string{"--start", "2026-01-30T14:06:00Z", "--end", "2026-01-30T14:00:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prom := newFakePrometheus(t)
			args := append([]string{"--app", "webflux", "--prometheus-url", prom.srv.URL}, tt.args...)

			code, _, errOut := runCLI(t, args...)

			assert.Equal(t, exitError, code)
			assert.Contains(t, errOut, "parsing time")
			assert.Zero(t, prom.hitCount())
		})
	}
}

func TestHelpShowsExamples(t *testing.T) {
	code, out, _ := runCLI(t, "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "promextract --compare --duration 6m --format markdown")
	assert.Contains(t, out, "--format")
}
