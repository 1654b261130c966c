// Package history keeps a bounded log of the frames a render loop has seen,
// each rendered as a synthetic Ethernet frame for inspection.
package history

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"

	"netvis/internal/catalog"
)

const (
	// DefaultCapacity is the number of entries kept when none is configured.
	DefaultCapacity = 256

	srcPort = 49152
	dstPort = 9
)

// Entry is one observed frame.
type Entry struct {
	ID      uint32
	Tick    uint64
	Src     string
	Dst     string
	Summary string
	Details string
	// Raw is the synthesized Ethernet frame.
	Raw []byte
}

// Log is a bounded, append-only frame history. When full, the oldest entry
// is evicted.
type Log struct {
	plan     *AddressPlan
	capacity int

	entries []Entry
	start   int
	seen    bool
	lastID  uint32
	total   uint64
	sinks   []Sink

	mu sync.Mutex
}

// Sink receives every entry as it is added, including entries the ring later
// evicts.
type Sink interface {
	WriteEntry(e Entry) error
}

// NewLog creates a log holding at most capacity entries.
func NewLog(capacity int, plan *AddressPlan) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		plan:     plan,
		capacity: capacity,
	}
}

// Observe appends an entry for every frame in cat whose id is above the
// highest id seen so far, and returns how many were added. Catalog frames are
// sorted by id and engine frame ids are monotonic, so a frame is logged once
// however many passes it lives through.
func (l *Log) Observe(cat *catalog.Catalog) int {
	if cat == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, f := range cat.Frames {
		if l.seen && f.ID <= l.lastID {
			continue
		}
		l.seen, l.lastID = true, f.ID

		raw, err := l.synthesize(f.ID, f.Src, f.Dst)
		if err != nil {
			log.WithError(err).WithField("frame", f.ID).Warn("Failed to synthesize frame history entry")
			continue
		}
		e := Entry{
			ID:      f.ID,
			Tick:    cat.Tick,
			Src:     fmt.Sprintf("Node %d", f.Src),
			Dst:     fmt.Sprintf("Node %d", f.Dst),
			Summary: fmt.Sprintf("Ethernet Frame (Size: %d)", len(raw)),
			Details: gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.Default).Dump(),
			Raw:     raw,
		}
		l.push(e)
		for _, s := range l.sinks {
			if err := s.WriteEntry(e); err != nil {
				log.WithError(err).WithField("frame", f.ID).Warn("History sink rejected entry")
			}
		}
		added++
	}
	return added
}

// AddSink registers s to receive every entry added from now on.
func (l *Log) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Entries returns the retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	out = append(out, l.entries[l.start:]...)
	out = append(out, l.entries[:l.start]...)
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Total returns the number of entries ever added, including evicted ones.
func (l *Log) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

func (l *Log) push(e Entry) {
	l.total++
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, e)
		return
	}
	l.entries[l.start] = e
	l.start = (l.start + 1) % l.capacity
}

// synthesize builds an Ethernet/IPv4/UDP frame from src to dst whose payload
// carries the frame id.
func (l *Log) synthesize(id, src, dst uint32) ([]byte, error) {
	srcIP, err := l.plan.IP(src)
	if err != nil {
		return nil, err
	}
	dstIP, err := l.plan.IP(dst)
	if err != nil {
		return nil, err
	}

	eth := &layers.Ethernet{
		SrcMAC:       l.plan.MAC(src),
		DstMAC:       l.plan.MAC(dst),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, fmt.Errorf("failed to set checksum layer: %w", err)
	}

	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, id)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("failed to serialize frame %d: %w", id, err)
	}
	return buf.Bytes(), nil
}
