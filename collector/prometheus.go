package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"
)

const (
	queryPath  = "/api/v1/query"
	healthPath = "/-/healthy"
	userAgent  = "promextract/0.1"
)

// ErrQueryFailed is returned when Prometheus answers with a non-success status.
var ErrQueryFailed = errors.New("prometheus query not successful")

// Client talks to the Prometheus HTTP API.
type Client struct {
	BaseURL      string        // e.g. "http://localhost:9090"
	QueryTimeout time.Duration // per instant query
	ProbeTimeout time.Duration // health check
	Log          *zap.Logger

	http *resty.Client
}

// apiResponse is the subset of the /api/v1/query envelope we read.
type apiResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
	Data      struct {
		ResultType string          `json:"resultType"` // "vector" or "scalar" for instant queries
		Result     json.RawMessage `json:"result"`
	} `json:"data"`
	Warnings []string `json:"warnings"`
}

// NewClient returns a client for the Prometheus server at baseURL.
func NewClient(baseURL string, queryTimeout, probeTimeout time.Duration, log *zap.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log.Sugar()})

	return &Client{
		BaseURL:      baseURL,
		QueryTimeout: queryTimeout,
		ProbeTimeout: probeTimeout,
		Log:          log,
		http:         rc,
	}
}

// Healthy reports whether Prometheus answers its health endpoint with 200.
// Transport errors count as unreachable.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.ProbeTimeout)
	defer cancel()

	resp, err := c.http.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		c.Log.Debug("health check failed", zap.String("url", c.BaseURL), zap.Error(err))
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		c.Log.Debug("health check returned non-200", zap.Int("status", resp.StatusCode()))
		return false
	}
	return true
}

// Query runs an instant query at the given time and returns the first sample.
// Empty results and NaN/Inf values yield (nil, nil).
func (c *Client) Query(ctx context.Context, query string, at time.Time) (*float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.QueryTimeout)
	defer cancel()

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query)
	if !at.IsZero() {
		req.SetQueryParam("time", at.UTC().Format(time.RFC3339Nano))
	}

	resp, err := req.Get(queryPath)
	if err != nil {
		return nil, fmt.Errorf("prometheus request error: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("prometheus returned %d: %s", resp.StatusCode(), resp.String())
		}
		return nil, fmt.Errorf("failed to decode prometheus response: %w", err)
	}
	if apiResp.Status != "success" {
		return nil, fmt.Errorf("%w: status %q (%s: %s)", ErrQueryFailed, apiResp.Status, apiResp.ErrorType, apiResp.Error)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("prometheus returned %d: %s", resp.StatusCode(), resp.String())
	}
	for _, w := range apiResp.Warnings {
		c.Log.Debug("prometheus warning", zap.String("query", query), zap.String("warning", w))
	}

	v, ok, err := firstValue(apiResp.Data.ResultType, apiResp.Data.Result)
	if err != nil || !ok {
		return nil, err
	}

	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	return &f, nil
}

func firstValue(resultType string, raw json.RawMessage) (model.SampleValue, bool, error) {
	switch resultType {
	case "", model.ValVector.String():
		if len(raw) == 0 {
			return 0, false, nil
		}
		var vec model.Vector
		if err := json.Unmarshal(raw, &vec); err != nil {
			return 0, false, fmt.Errorf("failed to decode vector result: %w", err)
		}
		if len(vec) == 0 || vec[0] == nil {
			return 0, false, nil
		}
		return vec[0].Value, true, nil
	case model.ValScalar.String():
		var sc model.Scalar
		if err := json.Unmarshal(raw, &sc); err != nil {
			return 0, false, fmt.Errorf("failed to decode scalar result: %w", err)
		}
		return sc.Value, true, nil
	default:
		return 0, false, fmt.Errorf("unexpected result type %q for instant query", resultType)
	}
}

// restyLogger routes resty's internal messages to debug. Request errors are
// already reported by Collect.
type restyLogger struct {
	s *zap.SugaredLogger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.s.Debugf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.s.Debugf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.s.Debugf(format, v...) }
