// Package procutil applies runtime GC tuning at process startup,
// adapted for a pre-forked worker: each worker is a small, short-lived
// request-serving loop, so it favors a higher GC percent and a soft
// memory limit over the low-latency tuning a single long-lived engine
// process would want.
package procutil

import (
	"runtime"
	"runtime/debug"
)

// GCConfig controls runtime/debug GC knobs.
type GCConfig struct {
	Percent   int
	MemLimitMB int64
}

// DefaultWorkerGC favors throughput: fewer, larger GC cycles, since a
// worker's heap is small and short-lived connections dominate.
func DefaultWorkerGC() GCConfig {
	return GCConfig{Percent: 200, MemLimitMB: 256}
}

// DefaultMasterGC favors low latency: the master must stay responsive
// to supervise workers and service the accept loop without pauses.
func DefaultMasterGC() GCConfig {
	return GCConfig{Percent: 50, MemLimitMB: 128}
}

// Apply installs cfg as the process's GC tuning.
func Apply(cfg GCConfig) {
	debug.SetGCPercent(cfg.Percent)
	if cfg.MemLimitMB > 0 {
		debug.SetMemoryLimit(cfg.MemLimitMB << 20)
	}
}

// Stats reports current GC counters for the admin surface.
type Stats struct {
	NumGC        uint32
	PauseTotalNs uint64
	HeapAllocMB  float64
}

// GetStats reads a runtime.MemStats snapshot into Stats.
func GetStats() Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Stats{
		NumGC:        ms.NumGC,
		PauseTotalNs: ms.PauseTotalNs,
		HeapAllocMB:  float64(ms.HeapAlloc) / (1 << 20),
	}
}
