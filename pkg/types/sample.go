package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sample is one snapshot of host load. It is treated as immutable once
// produced; use Clone before handing a copy to code that may modify it.
type Sample struct {
	// CPUs holds per-core utilization in percent, indexed by logical core.
	CPUs []float32

	// MemUsed and MemTotal are byte counts. MemUsed <= MemTotal.
	MemUsed  uint64
	MemTotal uint64

	// TakenAt is when the sample was read. It is not part of the wire format.
	TakenAt time.Time
}

// wireSample is the JSON shape clients decode.
type wireSample struct {
	CPUs []float32 `json:"cpus"`
	RAM  []uint64  `json:"ram"`
}

// Clone returns a deep copy of s.
func (s Sample) Clone() Sample {
	out := s
	if s.CPUs != nil {
		out.CPUs = make([]float32, len(s.CPUs))
		copy(out.CPUs, s.CPUs)
	}
	return out
}

// MemPercent returns MemUsed as a percentage of MemTotal, or 0 when the total
// is unknown.
func (s Sample) MemPercent() float64 {
	if s.MemTotal == 0 {
		return 0
	}
	return float64(s.MemUsed) / float64(s.MemTotal) * 100
}

// MarshalJSON encodes s as {"cpus": [...], "ram": [used, total]}.
func (s Sample) MarshalJSON() ([]byte, error) {
	cpus := s.CPUs
	if cpus == nil {
		cpus = []float32{}
	}
	return json.Marshal(wireSample{CPUs: cpus, RAM: []uint64{s.MemUsed, s.MemTotal}})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var w wireSample
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	if len(w.RAM) != 2 {
		return fmt.Errorf("sample: ram: got %d values, want 2", len(w.RAM))
	}
	if w.RAM[0] > w.RAM[1] {
		return fmt.Errorf("sample: ram: used %d exceeds total %d", w.RAM[0], w.RAM[1])
	}
	s.CPUs = w.CPUs
	if s.CPUs == nil {
		s.CPUs = []float32{}
	}
	s.MemUsed = w.RAM[0]
	s.MemTotal = w.RAM[1]
	return nil
}
