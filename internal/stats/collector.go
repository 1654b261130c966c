package stats

import (
	"sort"
	"sync"
	"time"
)

// KindStats holds per-entity-kind statistics.
type KindStats struct {
	Decoded    uint64
	Dropped    uint64
	Duplicates uint64
	Hits       uint64
}

// MaxPassSamples bounds the pass durations kept for percentiles. Min, avg and
// max cover every pass.
const MaxPassSamples = 4096

// Collector aggregates render loop statistics.
type Collector struct {
	StartTime time.Time
	EndTime   time.Time

	KindStats map[string]*KindStats

	Ticks        uint64
	Passes       uint64
	FailedPasses uint64
	Misses       uint64

	// PassTimes holds the most recent MaxPassSamples durations as a ring.
	PassTimes []time.Duration

	passNext  int
	passMin   time.Duration
	passMax   time.Duration
	passTotal time.Duration

	mu sync.Mutex
}

// NewCollector creates a new statistics collector.
func NewCollector() *Collector {
	return &Collector{
		StartTime: time.Now(),
		KindStats: make(map[string]*KindStats),
	}
}

func (c *Collector) getOrCreate(kind string) *KindStats {
	if _, ok := c.KindStats[kind]; !ok {
		c.KindStats[kind] = &KindStats{}
	}
	return c.KindStats[kind]
}

// RecordTick records one engine tick.
func (c *Collector) RecordTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Ticks++
}

// RecordDecoded records n drawable entities of a kind in a successful pass.
func (c *Collector) RecordDecoded(kind string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(kind).Decoded += uint64(n)
}

// RecordDropped records an entity left out of a pass for a broken reference.
func (c *Collector) RecordDropped(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(kind).Dropped++
}

// RecordDuplicate records an entity replaced by a later record with the same id.
func (c *Collector) RecordDuplicate(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(kind).Duplicates++
}

// RecordPass records a completed render pass and its duration.
func (c *Collector) RecordPass(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Passes++
	if c.Passes == 1 || d < c.passMin {
		c.passMin = d
	}
	if d > c.passMax {
		c.passMax = d
	}
	c.passTotal += d

	if len(c.PassTimes) < MaxPassSamples {
		c.PassTimes = append(c.PassTimes, d)
		return
	}
	c.PassTimes[c.passNext] = d
	c.passNext = (c.passNext + 1) % MaxPassSamples
}

// RecordFailedPass records a pass that produced no catalog.
func (c *Collector) RecordFailedPass() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FailedPasses++
}

// RecordHit records a click that selected an entity of a kind.
func (c *Collector) RecordHit(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(kind).Hits++
}

// RecordMiss records a click that selected nothing.
func (c *Collector) RecordMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Misses++
}

// Finish marks the end of the collection period.
func (c *Collector) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EndTime = time.Now()
}

// Duration returns the elapsed time.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.EndTime.IsZero() {
		return time.Since(c.StartTime)
	}
	return c.EndTime.Sub(c.StartTime)
}

// TotalDecoded returns the number of entities decoded across all kinds.
func (c *Collector) TotalDecoded() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint64
	for _, s := range c.KindStats {
		total += s.Decoded
	}
	return total
}

// TotalHits returns the number of clicks that selected an entity.
func (c *Collector) TotalHits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint64
	for _, s := range c.KindStats {
		total += s.Hits
	}
	return total
}

// PassTimeStats returns min, avg, and max over all passes and the p99 of the
// retained window.
func (c *Collector) PassTimeStats() (min, avg, max, p99 time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Passes == 0 || len(c.PassTimes) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]time.Duration, len(c.PassTimes))
	copy(sorted, c.PassTimes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min = c.passMin
	max = c.passMax
	avg = c.passTotal / time.Duration(c.Passes)

	p99Idx := int(float64(len(sorted)) * 0.99)
	if p99Idx >= len(sorted) {
		p99Idx = len(sorted) - 1
	}
	p99 = sorted[p99Idx]

	return
}

// Snapshot returns a copy of the current statistics (thread-safe).
func (c *Collector) Snapshot() *Collector {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &Collector{
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		KindStats:    make(map[string]*KindStats),
		Ticks:        c.Ticks,
		Passes:       c.Passes,
		FailedPasses: c.FailedPasses,
		Misses:       c.Misses,
		PassTimes:    make([]time.Duration, len(c.PassTimes)),
		passNext:     c.passNext,
		passMin:      c.passMin,
		passMax:      c.passMax,
		passTotal:    c.passTotal,
	}
	copy(snap.PassTimes, c.PassTimes)

	for k, v := range c.KindStats {
		s := *v
		snap.KindStats[k] = &s
	}

	return snap
}
