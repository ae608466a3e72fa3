package ciris

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ConfigService manages the agent's runtime configuration keys.
type ConfigService struct {
	client *Client
}

// ConfigItem is one configuration key with its current value. Sensitive
// values are redacted unless explicitly requested with sufficient role.
type ConfigItem struct {
	Key       string     `json:"key"`
	Value     any        `json:"value"`
	Sensitive bool       `json:"sensitive,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ConfigOpResponse reports the outcome of a config mutation.
type ConfigOpResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message,omitempty"`
}

// List returns all configuration items.
func (s *ConfigService) List(ctx context.Context, includeSensitive bool) ([]ConfigItem, error) {
	q := url.Values{}
	if includeSensitive {
		q.Set("include_sensitive", "true")
	}
	var resp struct {
		Configs []ConfigItem `json:"configs"`
	}
	if err := s.client.get(ctx, "/v1/config", q, &resp); err != nil {
		return nil, err
	}
	return resp.Configs, nil
}

// Get returns one configuration item by key.
func (s *ConfigService) Get(ctx context.Context, key string) (*ConfigItem, error) {
	var resp ConfigItem
	if err := s.client.get(ctx, "/v1/config/"+url.PathEscape(key), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Set creates or replaces a configuration value.
func (s *ConfigService) Set(ctx context.Context, key string, value any, reason string) (*ConfigOpResponse, error) {
	body := map[string]any{"value": value}
	if reason != "" {
		body["reason"] = reason
	}
	var resp ConfigOpResponse
	err := s.client.do(ctx, http.MethodPut, "/v1/config/"+url.PathEscape(key), nil, body, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes a configuration key.
func (s *ConfigService) Delete(ctx context.Context, key string) (*ConfigOpResponse, error) {
	var resp ConfigOpResponse
	err := s.client.do(ctx, http.MethodDelete, "/v1/config/"+url.PathEscape(key), nil, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
