package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hostwatch/hostwatch/pkg/types"
)

// Default reconnect backoff bounds.
const (
	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// State is the client's connection state.
type State int

const (
	StateConnecting State = iota
	StateLive
	StateStale
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateStale:
		return "stale"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config configures a Client.
type Config struct {
	// URL is the ws:// or wss:// address of /sync.
	URL string

	// MinBackoff and MaxBackoff bound the redial delay. Zero values use the
	// package defaults.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// OnSample is called for every decoded frame, in arrival order.
	OnSample func(types.Sample)

	// OnState is called on every state change. err is the reason for
	// StateStale and nil otherwise. Optional.
	OnState func(s State, err error)
}

// Client streams samples from one server.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	now    func() time.Time
}

// New creates a Client. OnSample is required.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("stream: url is required")
	}
	if cfg.OnSample == nil {
		return nil, errors.New("stream: OnSample is required")
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = DefaultMaxBackoff
		if cfg.MaxBackoff < cfg.MinBackoff {
			cfg.MaxBackoff = cfg.MinBackoff
		}
	}
	if cfg.OnState == nil {
		cfg.OnState = func(State, error) {}
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		now:    time.Now,
	}, nil
}

// Run streams until ctx is cancelled, redialing after every failure.
// It returns nil on cancellation.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.MinBackoff
	for {
		c.cfg.OnState(StateConnecting, nil)
		live, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if live {
			backoff = c.cfg.MinBackoff
		}
		c.cfg.OnState(StateStale, err)
		slog.Debug("stream: connection lost", "url", c.cfg.URL, "err", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.cfg.MaxBackoff)
	}
}

// session runs one connection. live reports whether the dial succeeded.
func (c *Client) session(ctx context.Context) (live bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	defer conn.Close()

	c.cfg.OnState(StateLive, nil)

	// Unblock ReadMessage when the caller cancels.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		var s types.Sample
		if err := json.Unmarshal(msg, &s); err != nil {
			slog.Warn("stream: dropping undecodable frame", "err", err)
			continue
		}
		s.TakenAt = c.now()
		c.cfg.OnSample(s)
	}
}

// nextBackoff doubles cur, capped at limit.
func nextBackoff(cur, limit time.Duration) time.Duration {
	next := cur * 2
	if next > limit {
		return limit
	}
	return next
}
