package stats

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()
	c.RecordTick()
	c.RecordTick()
	c.RecordDecoded("node", 3)
	c.RecordDecoded("frame", 2)
	c.RecordDropped("frame")
	c.RecordDuplicate("node")
	c.RecordHit("node")
	c.RecordMiss()
	c.RecordPass(time.Millisecond)
	c.RecordFailedPass()

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.Ticks)
	assert.Equal(t, uint64(1), snap.Passes)
	assert.Equal(t, uint64(1), snap.FailedPasses)
	assert.Equal(t, uint64(5), snap.TotalDecoded())
	assert.Equal(t, uint64(1), snap.TotalHits())
	assert.Equal(t, uint64(1), snap.Misses)
	assert.Equal(t, uint64(1), snap.KindStats["frame"].Dropped)
	assert.Equal(t, uint64(1), snap.KindStats["node"].Duplicates)
}

func TestCollector_SnapshotIsIndependent(t *testing.T) {
	c := NewCollector()
	c.RecordDecoded("node", 1)
	snap := c.Snapshot()

	c.RecordDecoded("node", 1)
	assert.Equal(t, uint64(1), snap.KindStats["node"].Decoded)
	assert.Equal(t, uint64(2), c.Snapshot().KindStats["node"].Decoded)
}

func TestCollector_PassTimeStats(t *testing.T) {
	c := NewCollector()
	min, avg, max, p99 := c.PassTimeStats()
	assert.Zero(t, min+avg+max+p99)

	for _, ms := range []int{4, 1, 3, 2} {
		c.RecordPass(time.Duration(ms) * time.Millisecond)
	}
	min, avg, max, p99 = c.PassTimeStats()
	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, 2500*time.Microsecond, avg)
	assert.Equal(t, 4*time.Millisecond, max)
	assert.Equal(t, 4*time.Millisecond, p99)
}

func TestCollector_PassTimesBounded(t *testing.T) {
	c := NewCollector()
	c.RecordPass(50 * time.Millisecond)
	for i := 0; i < 3*MaxPassSamples; i++ {
		c.RecordPass(time.Millisecond)
	}
	c.RecordPass(time.Microsecond)

	snap := c.Snapshot()
	assert.Len(t, snap.PassTimes, MaxPassSamples)
	assert.Equal(t, uint64(3*MaxPassSamples+2), snap.Passes)

	min, _, max, p99 := snap.PassTimeStats()
	assert.Equal(t, time.Microsecond, min)
	assert.Equal(t, 50*time.Millisecond, max, "max covers passes that left the window")
	assert.Equal(t, time.Millisecond, p99)
}

func TestReporter_FormatReport(t *testing.T) {
	c := NewCollector()
	c.RecordDecoded("link", 7)
	c.RecordPass(time.Millisecond)
	r := NewReporter(c, 0, "")

	report := r.FormatReport()
	assert.Contains(t, report, "netvis Statistics")
	assert.Contains(t, report, "link:")
	assert.Contains(t, report, "decoded=7")
	assert.Contains(t, report, "Passes: 1")
}

func TestReporter_PrintFinalReport(t *testing.T) {
	c := NewCollector()
	r := NewReporter(c, 0, "")
	var buf bytes.Buffer
	r.SetOutput(&buf)

	r.PrintFinalReport()
	assert.False(t, c.Snapshot().EndTime.IsZero())
	assert.Contains(t, buf.String(), "Loop:")
}

func TestReporter_ExportJSON(t *testing.T) {
	c := NewCollector()
	c.RecordDecoded("packet", 2)
	c.RecordTick()
	c.Finish()

	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, NewReporter(c, 0, path).ExportJSON())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	loop := got["loop"].(map[string]any)
	assert.Equal(t, 1.0, loop["ticks"])
	ents := got["entities"].(map[string]any)
	assert.Contains(t, ents, "packet")
}

func TestReporter_ExportJSONDisabled(t *testing.T) {
	assert.NoError(t, NewReporter(NewCollector(), 0, "").ExportJSON())
}
