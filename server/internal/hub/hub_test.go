package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hostwatch/hostwatch/pkg/types"
)

func sample(used uint64) types.Sample {
	return types.Sample{CPUs: []float32{float32(used)}, MemUsed: used, MemTotal: 1 << 20}
}

// recv reads one sample with a short deadline.
func recv(t *testing.T, s *Subscription) types.Sample {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := s.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	return v
}

func TestPublish_NoSubscribers(t *testing.T) {
	h := New()
	h.Publish(sample(1)) // must not block or panic

	if st := h.Stats(); st.Published != 1 || st.Dropped != 0 {
		t.Errorf("Stats: got %+v, want published=1 dropped=0", st)
	}
}

func TestPublish_FanOut(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5} {
		h := New()
		subs := make([]*Subscription, n)
		for i := range subs {
			subs[i] = h.Subscribe()
		}

		h.Publish(sample(42))

		for i, s := range subs {
			v, ok := s.TryRecv()
			if !ok {
				t.Fatalf("n=%d sub %d: mailbox empty after Publish", n, i)
			}
			if v.MemUsed != 42 {
				t.Errorf("n=%d sub %d: MemUsed got %d, want 42", n, i, v.MemUsed)
			}
			if _, ok := s.TryRecv(); ok {
				t.Errorf("n=%d sub %d: second TryRecv returned a sample, want empty", n, i)
			}
		}
	}
}

func TestPublish_LatestValueWins(t *testing.T) {
	h := New()
	s := h.Subscribe()

	h.Publish(sample(1))
	h.Publish(sample(2))

	v, ok := s.TryRecv()
	if !ok {
		t.Fatal("TryRecv: mailbox empty")
	}
	if v.MemUsed != 2 {
		t.Errorf("MemUsed: got %d, want 2", v.MemUsed)
	}
	if _, ok := s.TryRecv(); ok {
		t.Error("TryRecv: got a second sample, want the older one dropped")
	}
	if d := h.Stats().Dropped; d != 1 {
		t.Errorf("Dropped: got %d, want 1", d)
	}
}

func TestSubscribe_NoReplay(t *testing.T) {
	h := New()
	h.Publish(sample(1))

	s := h.Subscribe()
	if _, ok := s.TryRecv(); ok {
		t.Fatal("new subscription received a sample published before it")
	}

	h.Publish(sample(2))
	if v := recv(t, s); v.MemUsed != 2 {
		t.Errorf("first sample: got MemUsed %d, want 2", v.MemUsed)
	}
}

func TestSubscription_CloseIsolated(t *testing.T) {
	h := New()
	a := h.Subscribe()
	b := h.Subscribe()

	a.Close()
	a.Close() // idempotent

	if n := h.Count(); n != 1 {
		t.Fatalf("Count after one Close: got %d, want 1", n)
	}

	h.Publish(sample(7))
	if v := recv(t, b); v.MemUsed != 7 {
		t.Errorf("remaining subscriber: got MemUsed %d, want 7", v.MemUsed)
	}
	if _, ok := a.TryRecv(); ok {
		t.Error("closed subscriber still received a sample")
	}
}

func TestRecv_BlocksUntilPublish(t *testing.T) {
	h := New()
	s := h.Subscribe()

	go func() {
		time.Sleep(20 * time.Millisecond)
		h.Publish(sample(9))
	}()

	if v := recv(t, s); v.MemUsed != 9 {
		t.Errorf("MemUsed: got %d, want 9", v.MemUsed)
	}
}

func TestRecv_ContextCancelled(t *testing.T) {
	h := New()
	s := h.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Recv: got err %v, want DeadlineExceeded", err)
	}
}

func TestRecv_ClosedSubscription(t *testing.T) {
	h := New()
	s := h.Subscribe()
	s.Close()

	if _, err := s.Recv(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv after Close: got err %v, want ErrClosed", err)
	}
}

func TestClose_ClosesAllSubscriptions(t *testing.T) {
	h := New()
	subs := []*Subscription{h.Subscribe(), h.Subscribe()}

	h.Close()

	if n := h.Count(); n != 0 {
		t.Errorf("Count after Close: got %d, want 0", n)
	}
	for i, s := range subs {
		select {
		case <-s.Done():
		default:
			t.Errorf("sub %d: Done not closed after hub Close", i)
		}
	}

	late := h.Subscribe()
	if _, err := late.Recv(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after Close: Recv got %v, want ErrClosed", err)
	}
}

func TestPublish_SubscriberCannotMutateOthers(t *testing.T) {
	h := New()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(sample(3))
	va, _ := a.TryRecv()
	vb, _ := b.TryRecv()
	va.CPUs[0] = 99

	if vb.CPUs[0] != 3 {
		t.Errorf("b.CPUs[0]: got %v, want 3 after a mutated its copy", vb.CPUs[0])
	}
}

func TestConcurrent_OrderPreserved(t *testing.T) {
	const total = 2000
	h := New()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		s := h.Subscribe()
		wg.Add(1)
		go func(s *Subscription) {
			defer wg.Done()
			defer s.Close()
			var last uint64
			for {
				v, err := s.Recv(context.Background())
				if err != nil {
					return
				}
				if v.MemUsed <= last {
					t.Errorf("out of order or duplicate: got %d after %d", v.MemUsed, last)
					return
				}
				last = v.MemUsed
				if last == total {
					return
				}
			}
		}(s)
	}

	// Churn subscriptions while publishing.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				h.Subscribe().Close()
			}
		}
	}()

	for i := uint64(1); i <= total; i++ {
		h.Publish(sample(i))
	}
	close(stop)
	wg.Wait()
}
