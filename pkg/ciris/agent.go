package ciris

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// AgentService is the primary interface for talking to the agent: sending
// messages, reading conversation history and checking identity and status.
type AgentService struct {
	client *Client
}

// InteractRequest is the body of an interact call.
type InteractRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// InteractResponse is the agent's answer to one message.
type InteractResponse struct {
	MessageID        string `json:"message_id"`
	Response         string `json:"response"`
	State            string `json:"state"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

// ConversationMessage is one entry in the conversation history.
type ConversationMessage struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsAgent   bool      `json:"is_agent"`
}

// ConversationHistory is a page of past messages.
type ConversationHistory struct {
	Messages   []ConversationMessage `json:"messages"`
	TotalCount int                   `json:"total_count"`
	HasMore    bool                  `json:"has_more"`
}

// AgentStatus reports the agent's cognitive state and activity counters.
type AgentStatus struct {
	AgentID           string     `json:"agent_id"`
	Name              string     `json:"name"`
	CognitiveState    string     `json:"cognitive_state"`
	UptimeSeconds     float64    `json:"uptime_seconds"`
	MessagesProcessed int64      `json:"messages_processed"`
	LastActivity      *time.Time `json:"last_activity,omitempty"`
	CurrentTask       string     `json:"current_task,omitempty"`
	ServicesActive    int        `json:"services_active"`
	MemoryUsageMB     float64    `json:"memory_usage_mb"`
}

// AgentIdentity describes who the agent is and what it can do.
type AgentIdentity struct {
	AgentID           string         `json:"agent_id"`
	Name              string         `json:"name"`
	Purpose           string         `json:"purpose"`
	CreatedAt         time.Time      `json:"created_at"`
	Lineage           map[string]any `json:"lineage"`
	VarianceThreshold float64        `json:"variance_threshold"`
	Tools             []string       `json:"tools"`
	Handlers          []string       `json:"handlers"`
	Services          map[string]int `json:"services"`
	Permissions       []string       `json:"permissions"`
}

// Interact sends a message and waits for the agent's response. A channel ID
// is generated when the context does not carry one, so each caller gets its
// own conversation channel.
func (s *AgentService) Interact(ctx context.Context, message string, msgContext map[string]any) (*InteractResponse, error) {
	if msgContext == nil {
		msgContext = map[string]any{}
	}
	if _, ok := msgContext["channel_id"]; !ok {
		msgContext["channel_id"] = "api_" + uuid.NewString()
	}
	var resp InteractResponse
	err := s.client.post(ctx, "/v1/agent/interact", InteractRequest{Message: message, Context: msgContext}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns the most recent conversation messages, newest last.
func (s *AgentService) History(ctx context.Context, limit int) (*ConversationHistory, error) {
	q := url.Values{}
	intQuery(q, "limit", limit)
	var resp ConversationHistory
	if err := s.client.get(ctx, "/v1/agent/history", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status returns the agent's current cognitive state and counters.
func (s *AgentService) Status(ctx context.Context) (*AgentStatus, error) {
	var resp AgentStatus
	if err := s.client.get(ctx, "/v1/agent/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Identity returns the agent's identity and capabilities.
func (s *AgentService) Identity(ctx context.Context) (*AgentIdentity, error) {
	var resp AgentIdentity
	if err := s.client.get(ctx, "/v1/agent/identity", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
