// Package buildstats tracks build-time and query-time counters for the
// k-mer prefilter index, the same shape as the teacher's own
// atomic-counter statistics collector (github.com/KevoDB/kevo's
// pkg/stats), retargeted from LSM-engine operations (put/get/flush/
// compaction/WAL recovery) to this domain's events (sequences read or
// skipped, k-mers counted, entries written, ORFs emitted or discarded).
package buildstats

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// EventType names a countable build-time or query-time event.
type EventType string

const (
	EventSequenceRead    EventType = "sequence_read"
	EventSequenceSkipped EventType = "sequence_skipped"
	EventKmerCounted     EventType = "kmer_counted"
	EventEntryWritten    EventType = "entry_written"
	EventOrfEmitted      EventType = "orf_emitted"
	EventOrfDiscarded    EventType = "orf_discarded"
	EventMaskApplied     EventType = "mask_applied"
	EventKmerLookup      EventType = "kmer_lookup"
)

// Provider exposes collected statistics for reporting, mirroring the
// teacher's pkg/stats.Provider interface.
type Provider interface {
	GetStats() map[string]interface{}
	GetStatsFiltered(prefix string) map[string]interface{}
}

// Collector defines methods for recording build/query statistics.
type Collector interface {
	Provider

	TrackEvent(ev EventType)
	TrackEventWithLatency(ev EventType, latencyNs uint64)
	TrackError(errorType string)
	TrackBytes(isWrite bool, bytes uint64)
	StartBuild() time.Time
	FinishBuild(startTime time.Time, sequencesIndexed, entriesWritten uint64)
}

var _ Collector = (*AtomicCollector)(nil)

// latencyTracker maintains running count/sum/min/max for one event.
type latencyTracker struct {
	count atomic.Uint64
	sum   atomic.Uint64
	max   atomic.Uint64
	min   atomic.Uint64
}

// buildStats tracks the outcome of the most recent full index build.
type buildStats struct {
	SequencesIndexed atomic.Uint64
	EntriesWritten   atomic.Uint64
	Duration         atomic.Int64 // nanoseconds
}

// AtomicCollector records counters with minimal contention, using
// atomics for the hot path and RWMutex only when creating new map
// entries — identical concurrency shape to the teacher's
// AtomicCollector.
type AtomicCollector struct {
	counts   map[EventType]*atomic.Uint64
	countsMu sync.RWMutex

	totalBytesRead    atomic.Uint64
	totalBytesWritten atomic.Uint64

	errors   map[string]*atomic.Uint64
	errorsMu sync.RWMutex

	latencies   map[EventType]*latencyTracker
	latenciesMu sync.RWMutex

	build buildStats
}

// NewCollector creates an empty AtomicCollector.
func NewCollector() *AtomicCollector {
	return &AtomicCollector{
		counts:    make(map[EventType]*atomic.Uint64),
		errors:    make(map[string]*atomic.Uint64),
		latencies: make(map[EventType]*latencyTracker),
	}
}

// TrackEvent increments the counter for ev.
func (c *AtomicCollector) TrackEvent(ev EventType) {
	c.getOrCreateCounter(ev).Add(1)
}

// TrackEventWithLatency increments ev's counter and records a latency
// sample for it.
func (c *AtomicCollector) TrackEventWithLatency(ev EventType, latencyNs uint64) {
	c.getOrCreateCounter(ev).Add(1)

	tracker := c.getOrCreateLatencyTracker(ev)
	tracker.count.Add(1)
	tracker.sum.Add(latencyNs)

	for {
		current := tracker.max.Load()
		if latencyNs <= current || tracker.max.CompareAndSwap(current, latencyNs) {
			break
		}
	}
	for {
		current := tracker.min.Load()
		if current == 0 {
			if tracker.min.CompareAndSwap(0, latencyNs) {
				break
			}
			continue
		}
		if latencyNs >= current || tracker.min.CompareAndSwap(current, latencyNs) {
			break
		}
	}
}

// TrackError increments the counter for errorType.
func (c *AtomicCollector) TrackError(errorType string) {
	c.errorsMu.RLock()
	counter, exists := c.errors[errorType]
	c.errorsMu.RUnlock()

	if !exists {
		c.errorsMu.Lock()
		if counter, exists = c.errors[errorType]; !exists {
			counter = &atomic.Uint64{}
			c.errors[errorType] = counter
		}
		c.errorsMu.Unlock()
	}
	counter.Add(1)
}

// TrackBytes adds bytes to the read or write counter.
func (c *AtomicCollector) TrackBytes(isWrite bool, bytes uint64) {
	if isWrite {
		c.totalBytesWritten.Add(bytes)
	} else {
		c.totalBytesRead.Add(bytes)
	}
}

// StartBuild resets the build-outcome counters and returns the start
// time to pass to FinishBuild.
func (c *AtomicCollector) StartBuild() time.Time {
	c.build.SequencesIndexed.Store(0)
	c.build.EntriesWritten.Store(0)
	c.build.Duration.Store(0)
	return time.Now()
}

// FinishBuild records the outcome of a completed build.
func (c *AtomicCollector) FinishBuild(startTime time.Time, sequencesIndexed, entriesWritten uint64) {
	c.build.SequencesIndexed.Store(sequencesIndexed)
	c.build.EntriesWritten.Store(entriesWritten)
	c.build.Duration.Store(time.Since(startTime).Nanoseconds())
}

// GetStats returns all counters as a flat map.
func (c *AtomicCollector) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})

	c.countsMu.RLock()
	for ev, counter := range c.counts {
		stats[string(ev)+"_count"] = counter.Load()
	}
	c.countsMu.RUnlock()

	stats["total_bytes_read"] = c.totalBytesRead.Load()
	stats["total_bytes_written"] = c.totalBytesWritten.Load()

	c.errorsMu.RLock()
	errorStats := make(map[string]uint64)
	for errType, counter := range c.errors {
		errorStats[errType] = counter.Load()
	}
	c.errorsMu.RUnlock()
	stats["errors"] = errorStats

	build := map[string]interface{}{
		"sequences_indexed": c.build.SequencesIndexed.Load(),
		"entries_written":   c.build.EntriesWritten.Load(),
	}
	if d := c.build.Duration.Load(); d > 0 {
		build["duration_ms"] = d / int64(time.Millisecond)
	}
	stats["build"] = build

	c.latenciesMu.RLock()
	for ev, tracker := range c.latencies {
		count := tracker.count.Load()
		if count == 0 {
			continue
		}
		latencyStats := map[string]interface{}{
			"count":  count,
			"avg_ns": tracker.sum.Load() / count,
		}
		if min := tracker.min.Load(); min != 0 {
			latencyStats["min_ns"] = min
		}
		if max := tracker.max.Load(); max != 0 {
			latencyStats["max_ns"] = max
		}
		stats[string(ev)+"_latency"] = latencyStats
	}
	c.latenciesMu.RUnlock()

	return stats
}

// GetStatsFiltered returns only the entries whose key starts with
// prefix.
func (c *AtomicCollector) GetStatsFiltered(prefix string) map[string]interface{} {
	all := c.GetStats()
	if prefix == "" {
		return all
	}
	filtered := make(map[string]interface{})
	for key, value := range all {
		if strings.HasPrefix(key, prefix) {
			filtered[key] = value
		}
	}
	return filtered
}

// SequencesIndexed returns the current count of EventSequenceRead.
func (c *AtomicCollector) SequencesIndexed() uint64 {
	return c.getOrCreateCounter(EventSequenceRead).Load()
}

// EntriesWritten returns the current count of EventEntryWritten.
func (c *AtomicCollector) EntriesWritten() uint64 {
	return c.getOrCreateCounter(EventEntryWritten).Load()
}

func (c *AtomicCollector) getOrCreateCounter(ev EventType) *atomic.Uint64 {
	c.countsMu.RLock()
	counter, exists := c.counts[ev]
	c.countsMu.RUnlock()
	if !exists {
		c.countsMu.Lock()
		if counter, exists = c.counts[ev]; !exists {
			counter = &atomic.Uint64{}
			c.counts[ev] = counter
		}
		c.countsMu.Unlock()
	}
	return counter
}

func (c *AtomicCollector) getOrCreateLatencyTracker(ev EventType) *latencyTracker {
	c.latenciesMu.RLock()
	tracker, exists := c.latencies[ev]
	c.latenciesMu.RUnlock()
	if !exists {
		c.latenciesMu.Lock()
		if tracker, exists = c.latencies[ev]; !exists {
			tracker = &latencyTracker{}
			c.latencies[ev] = tracker
		}
		c.latenciesMu.Unlock()
	}
	return tracker
}
