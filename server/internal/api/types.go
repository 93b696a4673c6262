package api

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	Subscribers int           `json:"subscribers"`
	Published   uint64        `json:"published"`
	Dropped     uint64        `json:"dropped"`
	Ticks       uint64        `json:"ticks"`
	Failures    uint64        `json:"failures"`
	IntervalMs  int64         `json:"interval_ms"`
	LastError   string        `json:"last_error,omitempty"`
	Latest      *SampleStatus `json:"latest"`       // null until the first sample
	GeneratedAt string        `json:"generated_at"` // RFC3339
}

// SampleStatus is the most recent sample with its read time.
type SampleStatus struct {
	CPUs       []float32 `json:"cpus"`
	MemUsed    uint64    `json:"mem_used"`
	MemTotal   uint64    `json:"mem_total"`
	MemPercent float64   `json:"mem_percent"`
	TakenAt    string    `json:"taken_at"` // RFC3339Nano
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
