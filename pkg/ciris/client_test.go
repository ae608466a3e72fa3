package ciris

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ciris-ai/ciris-go/pkg/ciris/authstore"
	"github.com/ciris-ai/ciris-go/pkg/ciris/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func envelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
}

func TestInteractHeadersAndEnvelopeUnwrap(t *testing.T) {
	var gotAuth, gotVersion string
	var gotBody InteractRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/agent/interact" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("X-API-Version")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		envelope(t, w, InteractResponse{
			MessageID:        "msg-1",
			Response:         "Hello!",
			State:            "WORK",
			ProcessingTimeMS: 120,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAPIKey("test-key"), WithLogger(testLogger()))
	resp, err := c.Agent.Interact(context.Background(), "Hi", nil)
	if err != nil {
		t.Fatalf("Interact: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotVersion != "v1" {
		t.Errorf("X-API-Version = %q", gotVersion)
	}
	if resp.Response != "Hello!" || resp.State != "WORK" {
		t.Errorf("response = %+v", resp)
	}

	// A channel ID is generated when none is given.
	ch, ok := gotBody.Context["channel_id"].(string)
	if !ok || len(ch) < 5 || ch[:4] != "api_" {
		t.Errorf("channel_id = %v; want generated api_* id", gotBody.Context["channel_id"])
	}
}

func TestErrorEnvelopeParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"node 'x' not found","details":{"resource_type":"node"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(testLogger()))
	_, err := c.Memory.Node(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := AsError(err)
	if !ok {
		t.Fatalf("error %v is not *Error", err)
	}
	if apiErr.Code != "NOT_FOUND" || !apiErr.IsNotFound() {
		t.Errorf("error = %+v", apiErr)
	}
	if apiErr.Retryable() {
		t.Error("404 reported as retryable")
	}
	if apiErr.Details["resource_type"] != "node" {
		t.Errorf("details = %v", apiErr.Details)
	}
}

func TestNonEnvelopeErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(testLogger()), WithMaxRetries(1))
	_, err := c.System.Health(context.Background())
	apiErr, ok := AsError(err)
	if !ok {
		t.Fatalf("error %v is not *Error", err)
	}
	if apiErr.Message != "upstream unavailable" || !apiErr.IsServerError() {
		t.Errorf("error = %+v", apiErr)
	}
}

// flakyTransport fails the first n round trips at the transport level.
type flakyTransport struct {
	failures int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(r)
}

func TestTransportErrorsAreRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		envelope(t, w, SystemHealth{Status: "healthy"})
	}))
	defer srv.Close()

	hc := &http.Client{Transport: &flakyTransport{failures: 1, next: http.DefaultTransport}}
	c := NewClient(srv.URL, WithLogger(testLogger()), WithHTTPClient(hc), WithMaxRetries(3))

	h, err := c.System.Health(context.Background())
	if err != nil {
		t.Fatalf("Health after transient failure: %v", err)
	}
	if h.Status != "healthy" {
		t.Errorf("status = %q", h.Status)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hits = %d; want 1", got)
	}
}

func TestAPIErrorsAreNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"bad key"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(testLogger()), WithMaxRetries(3))
	_, err := c.Agent.Status(context.Background())
	apiErr, ok := AsError(err)
	if !ok || !apiErr.IsAuthError() {
		t.Fatalf("error = %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hits = %d; want 1 (no retry on API error)", got)
	}
}

func Test429LowersRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"slow down"}}`))
	}))
	defer srv.Close()

	limiter := ratelimit.NewAdaptive(60, 120, testLogger())
	c := NewClient(srv.URL, WithLogger(testLogger()), WithRateLimiter(limiter))

	_, err := c.Agent.Status(context.Background())
	apiErr, ok := AsError(err)
	if !ok || !apiErr.IsRateLimit() {
		t.Fatalf("error = %v", err)
	}
	if got := limiter.Rate(); got != 30 {
		t.Errorf("limiter rate after 429 = %v; want 30", got)
	}
}

func TestLoginStoresSessionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/login":
			envelope(t, w, LoginResponse{
				AccessToken: "session-abc",
				TokenType:   "Bearer",
				ExpiresIn:   3600,
				UserID:      "root",
				Role:        "ROOT",
			})
		case "/v1/auth/me":
			if r.Header.Get("Authorization") != "Bearer session-abc" {
				t.Errorf("Authorization after login = %q", r.Header.Get("Authorization"))
			}
			envelope(t, w, UserInfo{UserID: "root", Username: "root", Role: "ROOT", CreatedAt: time.Now()})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	store, err := authstore.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := NewClient(srv.URL, WithLogger(testLogger()), WithAuthStore(store))
	resp, err := c.Auth.Login(context.Background(), "root", "password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Role != "ROOT" {
		t.Errorf("role = %q", resp.Role)
	}

	// The session token becomes the active credential...
	if _, err := c.Auth.Me(context.Background()); err != nil {
		t.Fatalf("Me: %v", err)
	}
	// ...and is persisted for the next client.
	key, ok, err := store.APIKey(c.BaseURL())
	if err != nil || !ok {
		t.Fatalf("stored credential: %v, %v", ok, err)
	}
	if key != "session-abc" {
		t.Errorf("stored key = %q", key)
	}
}

func TestNoContentResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(testLogger()))
	if err := c.Auth.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
}

func TestNonEnvelopedSuccessDecodesDirectly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Out-of-band endpoints answer without the standard wrapper.
		w.Write([]byte(`{"success":true,"message":"shutting down"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(testLogger()))
	cmd := NewShutdownCommand("wa-1", "pubkey", "test")
	cmd.Signature = "sig"
	res, err := c.Emergency.Shutdown(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !res.Success {
		t.Errorf("result = %+v", res)
	}
}

func TestSetAPIKeyPersists(t *testing.T) {
	store, err := authstore.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := NewClient("http://localhost:9999", WithLogger(testLogger()), WithAuthStore(store))
	c.SetAPIKey("ciris_sk_new", true)

	key, ok, err := store.APIKey("http://localhost:9999")
	if err != nil || !ok || key != "ciris_sk_new" {
		t.Errorf("stored key = %q, %v, %v", key, ok, err)
	}

	// A fresh client picks the key up automatically.
	c2 := NewClient("http://localhost:9999", WithLogger(testLogger()), WithAuthStore(store))
	if c2.config.apiKey != "ciris_sk_new" {
		t.Errorf("loaded key = %q", c2.config.apiKey)
	}
}

func TestStreamDerivesEndpointAndToken(t *testing.T) {
	c := NewClient("https://agents.ciris.ai", WithAPIKey("k"), WithLogger(testLogger()))
	s, err := c.Stream()
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if s == nil {
		t.Fatal("nil stream")
	}
}

func TestAuditEntriesQueryParams(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		envelope(t, w, AuditEntriesPage{Entries: []AuditEntry{{ID: "e1", Action: "login", Actor: "root"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(testLogger()))
	page, err := c.Audit.Entries(context.Background(), AuditQuery{
		Actor:    "root",
		Severity: "high",
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].ID != "e1" {
		t.Errorf("page = %+v", page)
	}
	for key, want := range map[string]string{"actor": "root", "severity": "high", "limit": "10"} {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v; want %s", key, got, want)
		}
	}
}
