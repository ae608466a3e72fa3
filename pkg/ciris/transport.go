package ciris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// successEnvelope is the standard shape of a v1 success response. The data
// field carries the payload; the rest is request metadata.
type successEnvelope struct {
	Data       json.RawMessage `json:"data"`
	RequestID  string          `json:"request_id"`
	DurationMS float64         `json:"duration_ms"`
}

// do performs a JSON API request with transport-level retries. Failures
// before an HTTP response (connection refused, DNS, resets) are retried with
// exponential backoff; API errors are returned as-is since the server
// already made a decision.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	var lastErr error
	for attempt := 0; attempt < c.config.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			c.config.logger.Warn("retrying request", "method", method, "path", path,
				"attempt", attempt+1, "backoff", wait, "error", lastErr)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := c.doOnce(ctx, method, path, query, body, result)
		if err == nil {
			return nil
		}
		if _, ok := AsError(err); ok {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, result any) error {
	if c.config.limiter != nil {
		if err := c.config.limiter.Wait(ctx); err != nil {
			return wrapError(err, "ciris: rate limit wait")
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return wrapError(err, "ciris: marshal request body")
		}
		bodyReader = bytes.NewReader(data)
	}

	u := c.config.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return wrapError(err, "ciris: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Version", apiVersion)
	if c.config.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.apiKey)
	}

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return wrapError(err, "ciris: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err, "ciris: read response")
	}

	if c.config.limiter != nil {
		c.config.limiter.UpdateFromHeaders(resp.Header)
	}
	if dep := resp.Header.Get("X-API-Deprecated"); dep != "" {
		c.config.logger.Warn("endpoint deprecated", "path", path, "notice", dep)
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusTooManyRequests && c.config.limiter != nil {
			c.config.limiter.Record429()
		}
		return parseAPIError(resp.StatusCode, respBody)
	}
	if c.config.limiter != nil {
		c.config.limiter.RecordSuccess()
	}

	if resp.StatusCode == http.StatusNoContent || result == nil {
		return nil
	}

	// Successful v1 responses wrap the payload; unwrap it transparently.
	// Non-enveloped responses (legacy or out-of-band endpoints) decode
	// directly.
	var env successEnvelope
	if err := json.Unmarshal(respBody, &env); err == nil && env.Data != nil {
		return wrapError(json.Unmarshal(env.Data, result), "ciris: unmarshal response data")
	}
	return wrapError(json.Unmarshal(respBody, result), "ciris: unmarshal response")
}

// get is a convenience wrapper for GET requests.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// post is a convenience wrapper for POST requests.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

func intQuery(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, fmt.Sprintf("%d", v))
	}
}
