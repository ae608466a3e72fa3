package ciris

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// MemoryService exposes the agent's graph memory: storing, querying and
// forgetting nodes.
type MemoryService struct {
	client *Client
}

// GraphNode is one node in the agent's memory graph.
type GraphNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Scope      string         `json:"scope,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Version    int            `json:"version,omitempty"`
	UpdatedBy  string         `json:"updated_by,omitempty"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

// MemoryOpResponse reports the outcome of a store or forget operation.
type MemoryOpResponse struct {
	Success   bool   `json:"success"`
	NodeID    string `json:"node_id"`
	Message   string `json:"message,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// MemoryQuery selects nodes. All filters combine with AND; zero values are
// omitted from the request.
type MemoryQuery struct {
	Type         string     `json:"type,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Since        *time.Time `json:"since,omitempty"`
	Until        *time.Time `json:"until,omitempty"`
	RelatedTo    string     `json:"related_to,omitempty"`
	Text         string     `json:"text,omitempty"`
	Cursor       string     `json:"cursor,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	IncludeEdges bool       `json:"include_edges,omitempty"`
	Depth        int        `json:"depth,omitempty"`
}

// MemoryQueryResult is one page of query matches.
type MemoryQueryResult struct {
	Nodes   []GraphNode `json:"nodes"`
	Cursor  string      `json:"cursor,omitempty"`
	HasMore bool        `json:"has_more"`
}

// Timeline is a chronological view over recent memories.
type Timeline struct {
	Memories []GraphNode    `json:"memories"`
	Buckets  map[string]int `json:"buckets,omitempty"`
	Total    int            `json:"total"`
}

// Store memorizes a node.
func (s *MemoryService) Store(ctx context.Context, node GraphNode) (*MemoryOpResponse, error) {
	body := map[string]any{"node": node}
	var resp MemoryOpResponse
	if err := s.client.post(ctx, "/v1/memory/store", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Query searches memory with the given filters.
func (s *MemoryService) Query(ctx context.Context, q MemoryQuery) (*MemoryQueryResult, error) {
	var resp MemoryQueryResult
	if err := s.client.post(ctx, "/v1/memory/query", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Node fetches a single node by ID.
func (s *MemoryService) Node(ctx context.Context, nodeID string) (*GraphNode, error) {
	var resp GraphNode
	if err := s.client.get(ctx, "/v1/memory/"+url.PathEscape(nodeID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Forget removes a node from memory.
func (s *MemoryService) Forget(ctx context.Context, nodeID string) (*MemoryOpResponse, error) {
	var resp MemoryOpResponse
	err := s.client.do(ctx, http.MethodDelete, "/v1/memory/"+url.PathEscape(nodeID), nil, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Timeline returns memories from the last hours, newest first.
func (s *MemoryService) Timeline(ctx context.Context, hours, limit int) (*Timeline, error) {
	q := url.Values{}
	intQuery(q, "hours", hours)
	intQuery(q, "limit", limit)
	var resp Timeline
	if err := s.client.get(ctx, "/v1/memory/timeline", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
