// Package api implements the small HTTP surface next to /sync.
//
// New(hub, sampler) returns an http.Handler that serves:
//
//	GET /ping            - literal "pong\n", independent of sampler and hub state
//	GET /api/v1/status   - subscriber count, delivery counters, latest sample
//	GET /metrics         - Prometheus text exposition of the same data
//
// All endpoints return 405 for non-GET methods. JSON types are defined in
// types.go; the exposition is built from client_model metric families in
// metrics.go.
package api
