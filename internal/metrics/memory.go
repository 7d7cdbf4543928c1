package metrics

import "runtime"

// MemorySnapshot holds a point-in-time memory reading.
type MemorySnapshot struct {
	HeapAlloc   uint64 // bytes in use by the process heap
	Sys         uint64 // total bytes obtained from the OS
	TotalAlloc  uint64 // cumulative bytes allocated
	NumGC       uint32 // completed GC cycles
	HeapObjects uint64 // live heap objects
}

// MemoryCollector reads runtime memory statistics.
type MemoryCollector struct{}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Snapshot reads current memory statistics.
func (mc *MemoryCollector) Snapshot() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAlloc:   m.HeapAlloc,
		Sys:         m.Sys,
		TotalAlloc:  m.TotalAlloc,
		NumGC:       m.NumGC,
		HeapObjects: m.HeapObjects,
	}
}

// Since returns the bytes allocated and GC cycles run between before and
// the current reading.
func (mc *MemoryCollector) Since(before MemorySnapshot) (allocated uint64, gcs uint32) {
	now := mc.Snapshot()
	return now.TotalAlloc - before.TotalAlloc, now.NumGC - before.NumGC
}
