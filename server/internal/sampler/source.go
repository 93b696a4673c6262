package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/hostwatch/hostwatch/pkg/types"
)

// Source reads one sample from the host.
type Source interface {
	Read(ctx context.Context) (types.Sample, error)
}

// HostSource reads the local host through gopsutil.
type HostSource struct{}

// NewHostSource returns a Source backed by the local host. The first CPU
// reading covers the time since the package was loaded; every later one
// covers the time since the previous Read.
func NewHostSource() *HostSource {
	return &HostSource{}
}

// Read returns per-core CPU usage and virtual memory used/total.
func (HostSource) Read(ctx context.Context) (types.Sample, error) {
	pcts, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return types.Sample{}, fmt.Errorf("read cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return types.Sample{}, fmt.Errorf("read memory: %w", err)
	}

	cpus := make([]float32, len(pcts))
	for i, p := range pcts {
		cpus[i] = float32(p)
	}
	used := vm.Used
	if used > vm.Total {
		used = vm.Total
	}
	return types.Sample{
		CPUs:     cpus,
		MemUsed:  used,
		MemTotal: vm.Total,
		TakenAt:  time.Now().UTC(),
	}, nil
}
