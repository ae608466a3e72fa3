package stream

import "time"

// ChannelFilter narrows the events delivered for a single channel
// subscription. All fields are optional; the zero value subscribes to the
// channel unrestricted.
//
// The stream never interprets these fields. They are serialized verbatim
// into the subscribe frame, so a replayed subscription after a reconnect is
// byte-for-byte identical to the original one.
type ChannelFilter struct {
	// Telemetry channel filters.
	Services []string `json:"services,omitempty"`
	Metrics  []string `json:"metrics,omitempty"`

	// Log channel filters.
	Level   string `json:"level,omitempty"`
	Service string `json:"service,omitempty"`

	// Message channel filters.
	Author string `json:"author,omitempty"`

	// Reasoning channel filters.
	TaskID   string `json:"task_id,omitempty"`
	MinDepth int    `json:"min_depth,omitempty"`
}

// Message is a single data event received on a subscribed channel. Messages
// are immutable once decoded; the delivery queue owns them until the
// consumer pulls them.
type Message struct {
	Channel   string         `json:"channel"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Sequence  int64          `json:"sequence"`
}

// subscribeFrame is the outbound control frame registering channel
// subscriptions. A channel mapped to the zero ChannelFilter serializes as an
// empty object, meaning unrestricted.
type subscribeFrame struct {
	Action   string                   `json:"action"`
	Channels map[string]ChannelFilter `json:"channels"`
}

// unsubscribeFrame is the outbound control frame removing subscriptions.
type unsubscribeFrame struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// pingFrame is the periodic keepalive sent while connected.
type pingFrame struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// controlFrame discriminates inbound control messages (server error notices
// and heartbeat acknowledgements) from data messages.
type controlFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
