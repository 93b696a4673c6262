package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hostwatch/hostwatch/pkg/types"
)

// MinInterval is the shortest useful refresh period for per-core CPU usage.
// Reading faster only returns unchanged or noisy values.
const MinInterval = 200 * time.Millisecond

// Publisher receives every sample the Sampler produces.
type Publisher interface {
	Publish(types.Sample)
}

// Stats describes the sampler's progress.
type Stats struct {
	Interval  time.Duration
	Ticks     uint64
	Failures  uint64
	Last      types.Sample
	HasLast   bool
	LastError string
}

// Sampler reads a Source on an interval and publishes each sample.
type Sampler struct {
	src Source
	pub Publisher

	interval atomic.Int64 // nanoseconds, always >= MinInterval
	ticks    atomic.Uint64
	failures atomic.Uint64

	mu      sync.RWMutex
	last    types.Sample
	hasLast bool
	lastErr string
}

// New creates a Sampler. interval is clamped to MinInterval.
func New(src Source, pub Publisher, interval time.Duration) *Sampler {
	s := &Sampler{src: src, pub: pub}
	s.SetInterval(interval)
	return s
}

// SetInterval changes the sampling period, effective from the next sleep.
func (s *Sampler) SetInterval(d time.Duration) {
	s.interval.Store(int64(Clamp(d)))
}

// Interval returns the current sampling period.
func (s *Sampler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// Clamp returns d raised to MinInterval if it is shorter.
func Clamp(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}

// Run samples until ctx is cancelled. It locks the calling goroutine to its
// OS thread for the lifetime of the loop; start it with `go s.Run(ctx)`.
func (s *Sampler) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	slog.Info("sampler: started", "interval", s.Interval())

	t := time.NewTimer(0)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sampler: stopped", "ticks", s.ticks.Load(), "failures", s.failures.Load())
			return
		case <-t.C:
			s.tick(ctx)
			t.Reset(s.Interval())
		}
	}
}

// tick performs one read-and-publish iteration. Errors and panics are
// contained here so the loop survives them.
func (s *Sampler) tick(ctx context.Context) {
	s.ticks.Add(1)

	defer func() {
		if r := recover(); r != nil {
			s.fail(fmt.Errorf("panic: %v", r))
			slog.Error("sampler: recovered from panic", "panic", r)
		}
	}()

	sample, err := s.src.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.fail(err)
		slog.Warn("sampler: read failed, skipping tick", "err", err)
		return
	}
	if sample.TakenAt.IsZero() {
		sample.TakenAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.last = sample.Clone()
	s.hasLast = true
	s.mu.Unlock()

	s.pub.Publish(sample)
}

func (s *Sampler) fail(err error) {
	s.failures.Add(1)
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// Stats returns a snapshot of the sampler's counters and latest sample.
func (s *Sampler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Interval:  s.Interval(),
		Ticks:     s.ticks.Load(),
		Failures:  s.failures.Load(),
		Last:      s.last.Clone(),
		HasLast:   s.hasLast,
		LastError: s.lastErr,
	}
}
