package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hostwatch/hostwatch/server/internal/hub"
	"github.com/hostwatch/hostwatch/server/internal/sampler"
)

// HubStats is implemented by *hub.Hub.
type HubStats interface {
	Stats() hub.Stats
}

// SamplerStats is implemented by *sampler.Sampler.
type SamplerStats interface {
	Stats() sampler.Stats
}

// Handler serves /ping, /api/v1/status and /metrics.
type Handler struct {
	hub     HubStats
	sampler SamplerStats
	mux     *http.ServeMux
	now     func() time.Time
}

// New creates a Handler reading counters from h and s and registers all routes.
func New(h HubStats, s SamplerStats) http.Handler {
	a := &Handler{hub: h, sampler: s, mux: http.NewServeMux(), now: time.Now}

	a.mux.HandleFunc("/ping", a.ping)
	a.mux.HandleFunc("/api/v1/status", a.status)
	a.mux.HandleFunc("/metrics", a.metrics)

	return a
}

func (a *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// ping returns GET /ping. It touches no shared state.
func (a *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "pong\n") //nolint:errcheck
}

// status returns GET /api/v1/status.
func (a *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hs := a.hub.Stats()
	ss := a.sampler.Stats()

	resp := StatusResponse{
		Subscribers: hs.Subscribers,
		Published:   hs.Published,
		Dropped:     hs.Dropped,
		Ticks:       ss.Ticks,
		Failures:    ss.Failures,
		IntervalMs:  ss.Interval.Milliseconds(),
		LastError:   ss.LastError,
		GeneratedAt: a.now().UTC().Format(time.RFC3339),
	}
	if ss.HasLast {
		cpus := ss.Last.CPUs
		if cpus == nil {
			cpus = []float32{}
		}
		resp.Latest = &SampleStatus{
			CPUs:       cpus,
			MemUsed:    ss.Last.MemUsed,
			MemTotal:   ss.Last.MemTotal,
			MemPercent: ss.Last.MemPercent(),
			TakenAt:    ss.Last.TakenAt.UTC().Format(time.RFC3339Nano),
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
