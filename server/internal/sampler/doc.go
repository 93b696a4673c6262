// Package sampler produces host load samples on a fixed interval and
// publishes them to a hub.
//
// Source abstracts the host read; HostSource implements it with gopsutil
// (per-core cpu.Percent, mem.VirtualMemory). Sampler.Run pins itself to a
// dedicated OS thread so slow host reads never stall connection handling.
//
// A failed read or a panic inside one iteration is logged and counted, and
// the loop carries on at the next tick.
package sampler
