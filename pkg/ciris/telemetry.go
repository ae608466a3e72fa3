package ciris

import (
	"context"
	"net/url"
	"time"
)

// TelemetryService reads the agent's observability surface: metrics, logs
// and resource usage.
type TelemetryService struct {
	client *Client
}

// MetricSeries is one named metric with recent datapoints.
type MetricSeries struct {
	Name    string  `json:"name"`
	Current float64 `json:"current"`
	Unit    string  `json:"unit,omitempty"`
	Trend   string  `json:"trend,omitempty"`
}

// LogEntry is one log line from the agent.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service,omitempty"`
	Message   string    `json:"message"`
}

// LogsPage is a page of log entries.
type LogsPage struct {
	Logs    []LogEntry `json:"logs"`
	Total   int        `json:"total,omitempty"`
	HasMore bool       `json:"has_more,omitempty"`
}

// Overview returns the condensed system overview. The shape varies with the
// agent's active services, so it is returned as a generic document.
func (s *TelemetryService) Overview(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := s.client.get(ctx, "/v1/telemetry/overview", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Metrics returns all current metric series.
func (s *TelemetryService) Metrics(ctx context.Context) ([]MetricSeries, error) {
	var resp struct {
		Metrics []MetricSeries `json:"metrics"`
	}
	if err := s.client.get(ctx, "/v1/telemetry/metrics", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

// MetricDetail returns one metric's detailed history.
func (s *TelemetryService) MetricDetail(ctx context.Context, name string) (map[string]any, error) {
	var resp map[string]any
	if err := s.client.get(ctx, "/v1/telemetry/metrics/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Logs returns recent log entries, optionally filtered by level and service.
func (s *TelemetryService) Logs(ctx context.Context, level, service string, limit int) (*LogsPage, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", level)
	}
	if service != "" {
		q.Set("service", service)
	}
	intQuery(q, "limit", limit)
	var resp LogsPage
	if err := s.client.get(ctx, "/v1/telemetry/logs", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resources returns current resource usage and budgets.
func (s *TelemetryService) Resources(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := s.client.get(ctx, "/v1/telemetry/resources", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ResourceHistory returns resource usage over the last hours.
func (s *TelemetryService) ResourceHistory(ctx context.Context, hours int) (map[string]any, error) {
	q := url.Values{}
	intQuery(q, "hours", hours)
	var resp map[string]any
	if err := s.client.get(ctx, "/v1/telemetry/resources/history", q, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
