package ciris

import (
	"context"
	"net/url"
	"time"
)

// AuditService reads the agent's immutable audit trail.
type AuditService struct {
	client *Client
}

// AuditEntry is one record in the audit trail.
type AuditEntry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  string         `json:"severity,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Signature string         `json:"signature,omitempty"`
	HashChain string         `json:"hash_chain,omitempty"`
}

// AuditQuery filters the audit trail. Zero values are omitted.
type AuditQuery struct {
	Cursor    string
	StartTime *time.Time
	EndTime   *time.Time
	Actor     string
	EventType string
	EntityID  string
	Search    string
	Severity  string
	Outcome   string
	Limit     int
}

// AuditEntriesPage is one page of audit entries.
type AuditEntriesPage struct {
	Entries []AuditEntry `json:"entries"`
	Cursor  string       `json:"cursor,omitempty"`
	HasMore bool         `json:"has_more,omitempty"`
	Total   int          `json:"total,omitempty"`
}

// AuditExport points at an export of the audit trail.
type AuditExport struct {
	Format    string `json:"format"`
	Total     int    `json:"total_entries,omitempty"`
	ExportURL string `json:"export_url,omitempty"`
	Data      string `json:"export_data,omitempty"`
}

// Entries queries the audit trail.
func (s *AuditService) Entries(ctx context.Context, query AuditQuery) (*AuditEntriesPage, error) {
	q := url.Values{}
	if query.Cursor != "" {
		q.Set("cursor", query.Cursor)
	}
	if query.StartTime != nil {
		q.Set("start_time", query.StartTime.UTC().Format(time.RFC3339))
	}
	if query.EndTime != nil {
		q.Set("end_time", query.EndTime.UTC().Format(time.RFC3339))
	}
	for key, val := range map[string]string{
		"actor":      query.Actor,
		"event_type": query.EventType,
		"entity_id":  query.EntityID,
		"search":     query.Search,
		"severity":   query.Severity,
		"outcome":    query.Outcome,
	} {
		if val != "" {
			q.Set(key, val)
		}
	}
	intQuery(q, "limit", query.Limit)

	var resp AuditEntriesPage
	if err := s.client.get(ctx, "/v1/audit/entries", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Entry fetches a single audit entry with verification data.
func (s *AuditService) Entry(ctx context.Context, entryID string) (*AuditEntry, error) {
	var resp struct {
		Entry AuditEntry `json:"entry"`
	}
	if err := s.client.get(ctx, "/v1/audit/entries/"+url.PathEscape(entryID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Entry, nil
}

// Export produces an export of the audit trail in the given format
// ("json", "jsonl" or "csv").
func (s *AuditService) Export(ctx context.Context, format string, startDate *time.Time) (*AuditExport, error) {
	q := url.Values{}
	if format != "" {
		q.Set("format", format)
	}
	if startDate != nil {
		q.Set("start_date", startDate.UTC().Format(time.RFC3339))
	}
	path := "/v1/audit/export"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp AuditExport
	if err := s.client.post(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
