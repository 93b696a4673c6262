package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hostwatch/hostwatch/pkg/types"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// frameServer upgrades every request and writes frames[n] on the n-th
// connection, then closes it.
func frameServer(t *testing.T, frames ...[]string) string {
	t.Helper()
	var mu sync.Mutex
	n := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		mu.Lock()
		i := n
		n++
		mu.Unlock()
		if i >= len(frames) {
			// Hold the connection open until the client leaves.
			conn.ReadMessage() //nolint:errcheck
			return
		}
		for _, f := range frames[i] {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// collector gathers samples and state changes.
type collector struct {
	mu      sync.Mutex
	samples []types.Sample
	states  []State
	got     chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 64)}
}

func (c *collector) onSample(s types.Sample) {
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) onState(s State, _ error) {
	c.mu.Lock()
	c.states = append(c.states, s)
	c.mu.Unlock()
}

func (c *collector) wait(t *testing.T, n int) []types.Sample {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		c.mu.Lock()
		if len(c.samples) >= n {
			out := append([]types.Sample(nil), c.samples...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		select {
		case <-c.got:
		case <-deadline:
			t.Fatalf("timed out waiting for %d samples", n)
		}
	}
}

func run(t *testing.T, cfg Config) (cancel func()) {
	t.Helper()
	cl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancelFn := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		if err := cl.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
		close(done)
	}()
	t.Cleanup(func() {
		cancelFn()
		<-done
	})
	return cancelFn
}

func TestClient_DecodesFramesInOrder(t *testing.T) {
	url := frameServer(t, []string{
		`{"cpus":[12.5,0,99.9],"ram":[4096,8192]}`,
		`{"cpus":[10],"ram":[1000,2000]}`,
	})
	c := newCollector()
	run(t, Config{URL: url, OnSample: c.onSample, OnState: c.onState})

	got := c.wait(t, 2)
	first := got[0]
	if len(first.CPUs) != 3 || first.CPUs[0] != 12.5 || first.CPUs[1] != 0 || first.CPUs[2] != 99.9 {
		t.Errorf("first cpus: got %v, want [12.5 0 99.9]", first.CPUs)
	}
	if first.MemUsed != 4096 || first.MemTotal != 8192 {
		t.Errorf("first ram: got (%d, %d), want (4096, 8192)", first.MemUsed, first.MemTotal)
	}
	if first.TakenAt.IsZero() {
		t.Error("TakenAt: want the receive time stamped")
	}
	if got[1].MemUsed != 1000 {
		t.Errorf("second ram used: got %d, want 1000", got[1].MemUsed)
	}
}

func TestClient_SkipsBadFrames(t *testing.T) {
	url := frameServer(t, []string{
		`not json`,
		`{"cpus":[1],"ram":[1]}`,
		`{"cpus":[2],"ram":[2,4]}`,
	})
	c := newCollector()
	run(t, Config{URL: url, OnSample: c.onSample})

	got := c.wait(t, 1)
	if got[0].MemUsed != 2 {
		t.Errorf("first decoded sample: got MemUsed %d, want 2", got[0].MemUsed)
	}
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	url := frameServer(t,
		[]string{`{"cpus":[1],"ram":[1,10]}`},
		[]string{`{"cpus":[2],"ram":[2,10]}`},
	)
	c := newCollector()
	run(t, Config{
		URL:        url,
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
		OnSample:   c.onSample,
		OnState:    c.onState,
	})

	got := c.wait(t, 2)
	if got[0].MemUsed != 1 || got[1].MemUsed != 2 {
		t.Errorf("samples across reconnect: got %d then %d, want 1 then 2", got[0].MemUsed, got[1].MemUsed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var sawStale bool
	for _, s := range c.states {
		if s == StateStale {
			sawStale = true
		}
	}
	if !sawStale {
		t.Errorf("states: got %v, want a stale transition between connections", c.states)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{OnSample: func(types.Sample) {}}); err == nil {
		t.Error("New without URL: expected error")
	}
	if _, err := New(Config{URL: "ws://x"}); err == nil {
		t.Error("New without OnSample: expected error")
	}

	cl, err := New(Config{URL: "ws://x", OnSample: func(types.Sample) {}, MinBackoff: time.Second, MaxBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cl.cfg.MaxBackoff < cl.cfg.MinBackoff {
		t.Errorf("MaxBackoff %v below MinBackoff %v", cl.cfg.MaxBackoff, cl.cfg.MinBackoff)
	}
}

func TestNextBackoff(t *testing.T) {
	cases := []struct{ cur, limit, want time.Duration }{
		{250 * time.Millisecond, 5 * time.Second, 500 * time.Millisecond},
		{4 * time.Second, 5 * time.Second, 5 * time.Second},
		{5 * time.Second, 5 * time.Second, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := nextBackoff(tc.cur, tc.limit); got != tc.want {
			t.Errorf("nextBackoff(%v, %v): got %v, want %v", tc.cur, tc.limit, got, tc.want)
		}
	}
}

func TestState_String(t *testing.T) {
	if StateStale.String() != "stale" || StateLive.String() != "live" || StateConnecting.String() != "connecting" {
		t.Error("State.String: unexpected names")
	}
}
