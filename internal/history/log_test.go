package history

import (
	"encoding/binary"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvis/internal/catalog"
	"netvis/pkg/types"
)

func newPlan(t *testing.T) *AddressPlan {
	t.Helper()
	plan, err := NewAddressPlan("10.0.0.0/24")
	require.NoError(t, err)
	return plan
}

func catalogWith(tick uint64, frames ...types.Frame) *catalog.Catalog {
	cat := &catalog.Catalog{Tick: tick}
	for _, f := range frames {
		cat.Frames = append(cat.Frames, catalog.FrameEntry{Frame: f})
	}
	return cat
}

func TestLog_ObserveAddsNewFramesOnce(t *testing.T) {
	l := NewLog(10, newPlan(t))

	n := l.Observe(catalogWith(1, types.Frame{ID: 0, Src: 0, Dst: 2}))
	assert.Equal(t, 1, n)

	n = l.Observe(catalogWith(2, types.Frame{ID: 0, Src: 0, Dst: 2}, types.Frame{ID: 1, Src: 1, Dst: 2}))
	assert.Equal(t, 1, n)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(0), entries[0].ID)
	assert.Equal(t, uint64(1), entries[0].Tick)
	assert.Equal(t, "Node 0", entries[0].Src)
	assert.Equal(t, "Node 2", entries[0].Dst)
	assert.Equal(t, uint32(1), entries[1].ID)
	assert.Equal(t, uint64(2), entries[1].Tick)
}

func TestLog_SynthesizedFrameDecodes(t *testing.T) {
	l := NewLog(10, newPlan(t))
	l.Observe(catalogWith(1, types.Frame{ID: 42, Src: 3, Dst: 4}))

	e := l.Entries()[0]
	assert.GreaterOrEqual(t, len(e.Raw), 60)
	assert.Contains(t, e.Summary, "Ethernet Frame")
	assert.Contains(t, e.Details, "UDP")

	pkt := gopacket.NewPacket(e.Raw, layers.LayerTypeEthernet, gopacket.Default)
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	require.True(t, ok)
	assert.Equal(t, "02:00:00:00:00:03", eth.SrcMAC.String())
	assert.Equal(t, "02:00:00:00:00:04", eth.DstMAC.String())

	ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", ip.SrcIP.String())
	assert.Equal(t, "10.0.0.2", ip.DstIP.String())

	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(udp.Payload), 4)
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(udp.Payload[:4]))
}

func TestLog_EvictsOldest(t *testing.T) {
	l := NewLog(3, newPlan(t))
	for id := uint32(0); id < 5; id++ {
		l.Observe(catalogWith(uint64(id), types.Frame{ID: id}))
	}

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []uint32{2, 3, 4}, []uint32{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, uint64(5), l.Total())
	assert.Equal(t, 3, l.Len())
}

func TestLog_NilCatalog(t *testing.T) {
	l := NewLog(0, newPlan(t))
	assert.Zero(t, l.Observe(nil))
	assert.Empty(t, l.Entries())
}

func TestLog_SkipsUnaddressableFrames(t *testing.T) {
	plan, err := NewAddressPlan("10.0.0.0/30")
	require.NoError(t, err)
	l := NewLog(10, plan)

	n := l.Observe(catalogWith(1,
		types.Frame{ID: 0, Src: 0, Dst: 1},
		types.Frame{ID: 1, Src: 5, Dst: 6},
	))
	assert.Equal(t, 1, n)

	// a skipped frame is not retried on the next pass
	assert.Zero(t, l.Observe(catalogWith(2, types.Frame{ID: 1, Src: 5, Dst: 6})))
}

type recordingSink struct {
	ids []uint32
	err error
}

func (r *recordingSink) WriteEntry(e Entry) error {
	r.ids = append(r.ids, e.ID)
	return r.err
}

func TestLog_SinksSeeEvictedEntries(t *testing.T) {
	l := NewLog(2, newPlan(t))
	ok := &recordingSink{}
	failing := &recordingSink{err: assert.AnError}
	l.AddSink(ok)
	l.AddSink(failing)

	for id := uint32(0); id < 4; id++ {
		l.Observe(catalogWith(uint64(id), types.Frame{ID: id, Src: 0, Dst: 1}))
	}

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []uint32{0, 1, 2, 3}, ok.ids)
	assert.Equal(t, []uint32{0, 1, 2, 3}, failing.ids)
}
