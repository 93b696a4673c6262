// Package render formats samples for a terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/hostwatch/hostwatch/pkg/types"
)

const gib = 1 << 30

// Line renders s as a single line:
//
//	cpu  12.5   0.0  99.9 | avg  37.5% | mem 2.00/8.00 GiB (25.0%)
func Line(s types.Sample) string {
	var b strings.Builder
	b.WriteString("cpu")
	var sum float64
	for _, p := range s.CPUs {
		fmt.Fprintf(&b, " %5.1f", p)
		sum += float64(p)
	}
	avg := 0.0
	if len(s.CPUs) > 0 {
		avg = sum / float64(len(s.CPUs))
	}
	fmt.Fprintf(&b, " | avg %5.1f%% | mem %.2f/%.2f GiB (%.1f%%)",
		avg,
		float64(s.MemUsed)/gib,
		float64(s.MemTotal)/gib,
		s.MemPercent(),
	)
	return b.String()
}

// Stale renders the marker shown while the connection is down, with the age
// of the last sample received (zero means none yet).
func Stale(last time.Time, now time.Time, reason error) string {
	age := "no data yet"
	if !last.IsZero() {
		age = "last sample " + now.Sub(last).Truncate(time.Second).String() + " ago"
	}
	if reason != nil {
		return fmt.Sprintf("[stale] %s: %v", age, reason)
	}
	return "[stale] " + age
}
