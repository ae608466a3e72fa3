// Package ciris is a Go client for the CIRIS agent v1 API.
//
// The client exposes one service per API resource group and handles
// authentication, response unwrapping, retries and client-side rate
// limiting:
//
//	client := ciris.NewClient("http://localhost:8080", ciris.WithAPIKey(key))
//	defer client.Close()
//
//	resp, err := client.Agent.Interact(ctx, "Hello, CIRIS!", nil)
//
// All endpoints live under the /v1 prefix except the emergency shutdown
// endpoint, which deliberately sits outside the versioned surface.
//
// Real-time events are consumed through the stream subpackage; Stream wires
// a stream client to this client's endpoint and credentials:
//
//	s, err := client.Stream()
package ciris

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ciris-ai/ciris-go/pkg/ciris/authstore"
	"github.com/ciris-ai/ciris-go/pkg/ciris/ratelimit"
	"github.com/ciris-ai/ciris-go/pkg/ciris/stream"
)

const (
	// DefaultBaseURL targets a local agent.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTimeout is generous: agent interactions can take long to
	// process.
	DefaultTimeout = 50 * time.Second

	// DefaultMaxRetries bounds retries of requests that failed at the
	// transport level.
	DefaultMaxRetries = 3

	apiVersion = "v1"
)

// Client is the CIRIS API client. Construct it with NewClient; the zero
// value is not usable.
type Client struct {
	Agent     *AgentService
	Memory    *MemoryService
	Telemetry *TelemetryService
	System    *SystemService
	Audit     *AuditService
	Config    *ConfigService
	Emergency *EmergencyService
	Auth      *AuthService

	config *clientConfig
}

type clientConfig struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	limiter    *ratelimit.Adaptive
	store      *authstore.Store
	logger     *slog.Logger
}

// Option configures the client.
type Option func(*clientConfig)

// NewClient creates a client for the agent at baseURL. An empty baseURL
// selects DefaultBaseURL. When no API key is given and an auth store is
// attached, stored credentials for the base URL are used.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	config := &clientConfig{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.httpClient == nil {
		config.httpClient = &http.Client{Timeout: config.timeout}
	}
	if config.apiKey == "" && config.store != nil {
		if key, ok, err := config.store.APIKey(config.baseURL); err == nil && ok {
			config.apiKey = key
			config.logger.Info("loaded credentials from auth store", "base_url", config.baseURL)
		}
	}

	c := &Client{config: config}
	c.Agent = &AgentService{client: c}
	c.Memory = &MemoryService{client: c}
	c.Telemetry = &TelemetryService{client: c}
	c.System = &SystemService{client: c}
	c.Audit = &AuditService{client: c}
	c.Config = &ConfigService{client: c}
	c.Emergency = &EmergencyService{client: c}
	c.Auth = &AuthService{client: c}
	return c
}

// WithAPIKey sets the API key sent as Authorization: Bearer {key}.
func WithAPIKey(apiKey string) Option {
	return func(c *clientConfig) {
		c.apiKey = apiKey
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithMaxRetries sets how many times a request that failed at the transport
// level is attempted in total.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) {
		c.maxRetries = n
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithRateLimiter enables client-side rate limiting.
func WithRateLimiter(l *ratelimit.Adaptive) Option {
	return func(c *clientConfig) {
		c.limiter = l
	}
}

// WithAuthStore attaches a persistent credential store. Keys obtained via
// SetAPIKey or Auth.Login are written to it, and stored credentials are
// loaded at construction when no key was given.
func WithAuthStore(store *authstore.Store) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// BaseURL returns the configured server base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.config.baseURL
}

// SetAPIKey replaces the API key used for authentication. With persist set
// and an auth store attached, the key is also stored for future sessions.
func (c *Client) SetAPIKey(apiKey string, persist bool) {
	c.config.apiKey = apiKey
	if persist && c.config.store != nil && apiKey != "" {
		if err := c.config.store.StoreAPIKey(c.config.baseURL, apiKey); err != nil {
			c.config.logger.Error("persist api key failed", "error", err)
		}
	}
}

// ClearStoredAuth removes any stored credentials for this server.
func (c *Client) ClearStoredAuth() error {
	if c.config.store == nil {
		return nil
	}
	return c.config.store.Clear(c.config.baseURL)
}

// Stream creates a real-time event stream client bound to this client's
// endpoint and credentials. The stream does not connect until its Connect
// method is called. Additional options override the derived defaults.
func (c *Client) Stream(opts ...stream.Option) (*stream.Stream, error) {
	url, err := stream.EndpointURL(c.config.baseURL)
	if err != nil {
		return nil, err
	}
	base := []stream.Option{stream.WithLogger(c.config.logger)}
	if c.config.apiKey != "" {
		base = append(base, stream.WithBearerToken(c.config.apiKey))
	}
	return stream.New(url, append(base, opts...)...), nil
}

// Close releases resources held by the client, closing the auth store if
// one is attached.
func (c *Client) Close() error {
	if c.config.store != nil {
		return c.config.store.Close()
	}
	return nil
}
