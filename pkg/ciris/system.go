package ciris

import (
	"context"
	"net/url"
	"time"
)

// SystemService consolidates operational control: health, time, services
// and runtime state.
type SystemService struct {
	client *Client
}

// SystemHealth is the agent's overall health report.
type SystemHealth struct {
	Status        string         `json:"status"`
	Version       string         `json:"version,omitempty"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Services      map[string]any `json:"services,omitempty"`
}

// SystemTime reports the agent's clock and sync status.
type SystemTime struct {
	SystemTime time.Time      `json:"system_time"`
	AgentTime  time.Time      `json:"agent_time"`
	UptimeSecs float64        `json:"uptime_seconds"`
	TimeSync   map[string]any `json:"time_sync,omitempty"`
}

// ServiceStatus describes one registered service.
type ServiceStatus struct {
	Name      string         `json:"name"`
	Type      string         `json:"type,omitempty"`
	Healthy   bool           `json:"healthy"`
	Available bool           `json:"available"`
	Metrics   map[string]any `json:"metrics,omitempty"`
}

// ServicesStatus lists all registered services.
type ServicesStatus struct {
	Services       []ServiceStatus `json:"services"`
	TotalServices  int             `json:"total_services"`
	HealthyCount   int             `json:"healthy_services"`
	UnhealthyCount int             `json:"unhealthy_services"`
}

// RuntimeControlResponse reports the processor state after a control action.
type RuntimeControlResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	ProcessorState string `json:"processor_state"`
	CognitiveState string `json:"cognitive_state,omitempty"`
	QueueDepth     int    `json:"queue_depth,omitempty"`
}

// ShutdownResponse acknowledges a graceful shutdown request.
type ShutdownResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	ShutdownReady  bool   `json:"shutdown_ready,omitempty"`
	ExpectedWithin int    `json:"expected_within_seconds,omitempty"`
}

// Health returns the system health summary.
func (s *SystemService) Health(ctx context.Context) (*SystemHealth, error) {
	var resp SystemHealth
	if err := s.client.get(ctx, "/v1/system/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsHealthy reports whether the agent answers health checks positively. API
// errors are folded into false.
func (s *SystemService) IsHealthy(ctx context.Context) bool {
	h, err := s.Health(ctx)
	return err == nil && (h.Status == "healthy" || h.Status == "ok")
}

// Time returns the agent's clock and sync status.
func (s *SystemService) Time(ctx context.Context) (*SystemTime, error) {
	var resp SystemTime
	if err := s.client.get(ctx, "/v1/system/time", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resources returns current resource usage and budgets.
func (s *SystemService) Resources(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := s.client.get(ctx, "/v1/system/resources", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Services returns the status of all registered services.
func (s *SystemService) Services(ctx context.Context) (*ServicesStatus, error) {
	var resp ServicesStatus
	if err := s.client.get(ctx, "/v1/system/services", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RuntimeControl executes a processor control action: "pause", "resume",
// "state" or "single-step".
func (s *SystemService) RuntimeControl(ctx context.Context, action, reason string) (*RuntimeControlResponse, error) {
	var body map[string]any
	if reason != "" {
		body = map[string]any{"reason": reason}
	}
	var resp RuntimeControlResponse
	err := s.client.post(ctx, "/v1/system/runtime/"+url.PathEscape(action), body, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause suspends the processor.
func (s *SystemService) Pause(ctx context.Context, reason string) (*RuntimeControlResponse, error) {
	return s.RuntimeControl(ctx, "pause", reason)
}

// Resume continues a paused processor.
func (s *SystemService) Resume(ctx context.Context, reason string) (*RuntimeControlResponse, error) {
	return s.RuntimeControl(ctx, "resume", reason)
}

// Shutdown requests a graceful shutdown. The agent may deliberate before
// complying; this is not the emergency path (see EmergencyService).
func (s *SystemService) Shutdown(ctx context.Context, reason string, gracePeriodSeconds int, force bool) (*ShutdownResponse, error) {
	body := map[string]any{
		"reason":               reason,
		"grace_period_seconds": gracePeriodSeconds,
		"force":                force,
	}
	var resp ShutdownResponse
	if err := s.client.post(ctx, "/v1/system/shutdown", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
