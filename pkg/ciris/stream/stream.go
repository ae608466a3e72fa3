// Package stream implements the CIRIS real-time event stream client: a
// long-lived websocket consumer with channel subscriptions, automatic
// reconnection with exponential backoff, per-epoch sequence tracking, and a
// bounded delivery queue that shields the receive loop from slow consumers.
//
// Usage:
//
//	s := stream.New(url, stream.WithBearerToken(key))
//	if err := s.Connect(ctx); err != nil {
//		return err
//	}
//	defer s.Close()
//
//	s.Subscribe(map[string]stream.ChannelFilter{
//		"telemetry": {Services: []string{"memory"}},
//		"logs":      {Level: "ERROR"},
//	})
//
//	for msg, err := range s.Messages(ctx) {
//		if err != nil {
//			return err
//		}
//		handle(msg)
//	}
//
// Subscriptions survive reconnects: the full desired set is replayed on
// every successful (re)connection before any new message is delivered.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"
)

// Sentinel errors returned by public operations.
var (
	// ErrNotConnected is returned on caller misuse: sending before Connect
	// was ever called, or sending while not connected.
	ErrNotConnected = errors.New("stream: not connected")

	// ErrStreamClosed is the terminal signal after Close, or after a
	// transport loss with reconnection disabled.
	ErrStreamClosed = errors.New("stream: closed")
)

// Stream is a self-healing client for the server-pushed event feed. All
// methods are safe for concurrent use.
type Stream struct {
	url string
	cfg config

	subs  *subscriptionSet
	queue *deliveryQueue

	mu       sync.Mutex
	state    State
	conn     Conn
	epoch    uint64
	attempts int
	seq      sequencer
	stop     chan struct{} // per-epoch pump cancellation
	started  bool
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Stream for the given endpoint URL (see EndpointURL for
// deriving it from an API base URL). The stream does not connect until
// Connect is called.
func New(url string, opts ...Option) *Stream {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Stream{
		url:   url,
		cfg:   cfg,
		subs:  newSubscriptionSet(),
		queue: newDeliveryQueue(cfg.queueCapacity, cfg.dropPolicy, cfg.highWater, cfg.logger),
		done:  make(chan struct{}),
	}
}

// Connect establishes the connection and starts the message pump. With
// reconnection enabled (the default) a failed first attempt is not returned
// as an error; the stream transitions to reconnecting and keeps trying in
// the background. With reconnection disabled the failure is terminal and
// returned.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	if s.state != StateDisconnected && s.state != StateFailed {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.cfg.dialer.DialStream(ctx, s.url, s.cfg.header)
	if err != nil {
		if !s.cfg.reconnect {
			s.mu.Lock()
			s.state = StateFailed
			s.mu.Unlock()
			s.queue.close()
			return err
		}
		s.cfg.logger.Error("stream connect failed, will retry", "url", s.url, "error", err)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrStreamClosed
		}
		s.state = StateReconnecting
		s.mu.Unlock()
		go s.reconnectLoop()
		return nil
	}

	s.onConnected(conn)
	return nil
}

// onConnected enters the connected state: bumps the epoch, resets the
// sequencer, replays the full subscription set, and starts the pump. Replay
// happens before the read loop starts, so no new message is delivered ahead
// of it.
func (s *Stream) onConnected(conn Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.state = StateConnected
	s.epoch++
	s.attempts = 0
	s.seq.reset(s.epoch)
	stop := make(chan struct{})
	s.stop = stop
	epoch := s.epoch
	s.mu.Unlock()

	s.cfg.logger.Info("stream connected", "url", s.url, "epoch", epoch)

	if snap := s.subs.snapshot(); len(snap) > 0 {
		if err := writeJSON(conn, subscribeFrame{Action: "subscribe", Channels: snap}); err != nil {
			s.cfg.logger.Error("subscription replay failed", "error", err, "epoch", epoch)
		} else {
			s.cfg.logger.Info("subscriptions replayed", "channels", len(snap), "epoch", epoch)
		}
	}

	go s.readLoop(conn, stop)
	go s.heartbeatLoop(conn, stop)
}

// readLoop reads raw frames off the transport until it fails or the epoch is
// cancelled.
func (s *Stream) readLoop(conn Conn, stop chan struct{}) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				// Teardown was initiated on our side.
				return
			default:
			}
			s.handleDisconnect(conn, stop, err)
			return
		}
		s.handleFrame(data)
	}
}

// handleFrame decodes one inbound frame. Control messages are consumed
// without queuing; malformed frames are logged and skipped, never fatal.
func (s *Stream) handleFrame(data []byte) {
	var ctl controlFrame
	if err := json.Unmarshal(data, &ctl); err != nil {
		s.cfg.logger.Error("malformed frame skipped", "error", err)
		return
	}
	switch ctl.Type {
	case "error":
		s.cfg.logger.Error("server error notice", "message", ctl.Message)
		return
	case "pong":
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.cfg.logger.Error("malformed message skipped", "error", err)
		return
	}
	if msg.Channel == "" {
		s.cfg.logger.Warn("message without channel skipped")
		return
	}

	s.mu.Lock()
	expected := s.seq.last + 1
	gap := s.seq.observe(msg.Sequence)
	epoch := s.epoch
	s.mu.Unlock()
	if gap {
		s.cfg.logger.Warn("sequence gap detected",
			"expected", expected, "got", msg.Sequence, "epoch", epoch)
	}

	s.queue.push(&msg)
}

// heartbeatLoop sends the periodic keepalive while connected. A send failure
// is treated as a transport failure.
func (s *Stream) heartbeatLoop(conn Conn, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame := pingFrame{Type: "ping", Timestamp: time.Now().UTC().Format(time.RFC3339)}
			if err := writeJSON(conn, frame); err != nil {
				select {
				case <-stop:
					return
				default:
				}
				s.handleDisconnect(conn, stop, fmt.Errorf("heartbeat send: %w", err))
				return
			}
		}
	}
}

// handleDisconnect reacts to a transport failure for the given epoch. The
// stop channel identifies the epoch, so a stale pump cannot tear down a
// newer connection.
func (s *Stream) handleDisconnect(conn Conn, stop chan struct{}, cause error) {
	s.mu.Lock()
	if s.stop != stop || s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	close(stop)
	s.stop = nil
	s.conn = nil
	reconnect := s.cfg.reconnect
	if reconnect {
		s.state = StateReconnecting
	} else {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	conn.Close()
	s.cfg.logger.Warn("stream connection lost", "error", cause, "reconnect", reconnect)

	if reconnect {
		go s.reconnectLoop()
	} else {
		s.queue.close()
	}
}

// reconnectLoop drives reconnection attempts with exponential backoff until
// it succeeds, the attempt cap is exceeded, or the stream is closed.
func (s *Stream) reconnectLoop() {
	for {
		s.mu.Lock()
		if s.closed || s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		s.attempts++
		attempt := s.attempts
		if s.cfg.maxAttempts > 0 && attempt > s.cfg.maxAttempts {
			s.state = StateFailed
			s.mu.Unlock()
			s.cfg.logger.Error("reconnect attempts exhausted", "attempts", attempt-1)
			s.queue.close()
			return
		}
		s.mu.Unlock()

		wait := backoffInterval(s.cfg.baseBackoff, s.cfg.maxBackoff, attempt)
		s.cfg.logger.Info("reconnecting", "attempt", attempt, "backoff", wait)

		timer := time.NewTimer(wait)
		select {
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if s.closed || s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		s.state = StateConnecting
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.dialTimeout)
		conn, err := s.cfg.dialer.DialStream(ctx, s.url, s.cfg.header)
		cancel()
		if err != nil {
			s.cfg.logger.Error("reconnect attempt failed", "attempt", attempt, "error", err)
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.state = StateReconnecting
			s.mu.Unlock()
			continue
		}

		s.onConnected(conn)
		return
	}
}

// backoffInterval returns the wait before the given 1-based attempt: base,
// doubling per attempt, capped at max.
func backoffInterval(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Subscribe inserts or replaces channel subscriptions. A channel mapped to
// the zero ChannelFilter subscribes unrestricted. When connected, a control
// frame for just these channels is sent immediately (best effort); otherwise
// the entries take effect on the next successful connect via replay.
//
// Subscribe never blocks on the network and returns an error only on caller
// misuse: the stream was never connected, or it is closed.
func (s *Stream) Subscribe(channels map[string]ChannelFilter) error {
	if len(channels) == 0 {
		return nil
	}
	conn, err := s.liveConn()
	if err != nil {
		return err
	}

	s.subs.set(channels)

	if conn != nil {
		frame := subscribeFrame{Action: "subscribe", Channels: channels}
		if werr := writeJSON(conn, frame); werr != nil {
			// Best effort: the read loop will notice a broken transport and
			// the entry replays on reconnect.
			s.cfg.logger.Error("subscribe send failed", "error", werr)
		}
	}
	return nil
}

// Unsubscribe removes channel subscriptions. The removal is retained so the
// channels are not replayed on reconnect. Same error semantics as Subscribe.
func (s *Stream) Unsubscribe(channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	conn, err := s.liveConn()
	if err != nil {
		return err
	}

	s.subs.remove(channels)

	if conn != nil {
		frame := unsubscribeFrame{Action: "unsubscribe", Channels: channels}
		if werr := writeJSON(conn, frame); werr != nil {
			s.cfg.logger.Error("unsubscribe send failed", "error", werr)
		}
	}
	return nil
}

// liveConn validates the stream is usable and returns the current connection
// (nil while disconnected or reconnecting).
func (s *Stream) liveConn() (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if !s.started {
		return nil, ErrNotConnected
	}
	if s.state == StateConnected {
		return s.conn, nil
	}
	return nil, nil
}

// Send writes an arbitrary JSON frame to the server. Unlike Subscribe it
// requires a live connection.
func (s *Stream) Send(v any) error {
	conn, err := s.liveConn()
	if err != nil {
		return err
	}
	if conn == nil {
		return ErrNotConnected
	}
	return writeJSON(conn, v)
}

// Next returns the oldest buffered message, blocking until one arrives, the
// context is cancelled, or the stream is closed. Delivery order equals
// network receive order within an epoch.
func (s *Stream) Next(ctx context.Context) (*Message, error) {
	return s.queue.pop(ctx)
}

// Messages iterates over incoming messages until the stream closes or the
// context is cancelled. Stream closure ends the iteration silently; a
// context error is yielded before returning.
func (s *Stream) Messages(ctx context.Context) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		for {
			msg, err := s.queue.pop(ctx)
			if err != nil {
				if !errors.Is(err, ErrStreamClosed) {
					yield(nil, err)
				}
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Close disconnects and releases all resources. The order matters: the state
// flips first so no further reconnect attempts are scheduled, then the pump
// is cancelled, the transport closed, and finally the delivery queue closed
// to release any blocked consumer. Close is idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.state = StateDisconnected
		conn := s.conn
		s.conn = nil
		stop := s.stop
		s.stop = nil
		s.mu.Unlock()

		close(s.done)
		if stop != nil {
			close(stop)
		}
		if conn != nil {
			conn.Close()
		}
		s.subs.clear()
		s.queue.close()
		s.cfg.logger.Info("stream closed")
	})
	return nil
}

// State returns the current connection state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats is a snapshot of stream counters.
type Stats struct {
	State      State    `json:"state"`
	Epoch      uint64   `json:"epoch"`
	Reconnects uint64   `json:"reconnects"`
	Gaps       uint64   `json:"gaps"`
	Dropped    uint64   `json:"dropped"`
	Buffered   int      `json:"buffered"`
	Channels   []string `json:"channels"`
}

// Stats returns a consistent snapshot of connection statistics.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	st := Stats{
		State: s.state,
		Epoch: s.epoch,
		Gaps:  s.seq.gaps,
	}
	if s.epoch > 1 {
		st.Reconnects = s.epoch - 1
	}
	s.mu.Unlock()

	st.Dropped = s.queue.droppedCount()
	st.Buffered = s.queue.len()
	st.Channels = s.subs.names()
	return st
}

func writeJSON(conn Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("stream: marshal frame: %w", err)
	}
	return conn.WriteMessage(data)
}
