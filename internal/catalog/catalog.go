package catalog

import (
	"fmt"
	"math"
	"sort"

	"netvis/internal/record"
	"netvis/pkg/types"
)

// Source is the engine side of a catalog build: its linear memory and, per
// entity kind, the base pointer and element count. Both must be queried again
// for every build because the engine may relocate its memory between ticks.
type Source interface {
	Memory() []byte
	Region(kind types.EntityKind) (ptr uint32, count uint32)
}

// IssueReason classifies an engine contract violation found while building.
type IssueReason string

const (
	IssueDuplicateID IssueReason = "duplicate_id"
	IssueDangling    IssueReason = "dangling_reference"
	IssueSelfLoop    IssueReason = "self_loop"
	IssueNotEndpoint IssueReason = "from_node_not_endpoint"
	IssueBadPosition IssueReason = "bad_position"
	IssueUndecodable IssueReason = "undecodable"
)

// Issue is one record that was replaced or dropped from the drawable set.
type Issue struct {
	Kind   types.EntityKind
	ID     uint32
	Reason IssueReason
	Detail string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %d: %s (%s)", i.Kind, i.ID, i.Reason, i.Detail)
}

// NodeEntry is a decoded node and a copy of its raw record.
type NodeEntry struct {
	types.Node
	Raw []byte
}

// LinkEntry is a link whose endpoints resolved in the same catalog.
type LinkEntry struct {
	types.Link
	A   types.Point
	B   types.Point
	Raw []byte
}

// Mid returns the display position of the link.
func (l LinkEntry) Mid() types.Point { return Midpoint(l.A, l.B) }

// FrameEntry is a frame whose link and sending node resolved. Pos is its
// interpolated display position.
type FrameEntry struct {
	types.Frame
	ToNode uint32
	From   types.Point
	To     types.Point
	Pos    types.Point
	Raw    []byte
}

// PacketEntry is a decoded packet and a copy of its raw record.
type PacketEntry struct {
	types.Packet
	Raw []byte
}

// Catalog is the decoded, cross-referenced snapshot of one tick. Entries of
// each kind are sorted by ascending id and hold no reference to engine memory.
type Catalog struct {
	Tick    uint64
	Set     string
	Nodes   []NodeEntry
	Links   []LinkEntry
	Frames  []FrameEntry
	Packets []PacketEntry
	Issues  []Issue

	nodeIdx   map[uint32]int
	linkIdx   map[uint32]int
	frameIdx  map[uint32]int
	packetIdx map[uint32]int
}

// Build decodes every region of set from src in dependency order (nodes,
// links, frames) and resolves cross references. A region that does not fit in
// memory fails the whole build. Duplicate ids keep the later record; dangling
// or inconsistent references are dropped. Both are listed in Issues.
func Build(src Source, set record.SchemaSet, tick uint64) (*Catalog, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	mem := src.Memory()
	c := &Catalog{
		Tick:      tick,
		Set:       set.Name,
		nodeIdx:   make(map[uint32]int),
		linkIdx:   make(map[uint32]int),
		frameIdx:  make(map[uint32]int),
		packetIdx: make(map[uint32]int),
	}

	for _, kind := range set.Kinds() {
		ptr, count := src.Region(kind)
		seq, err := record.Decode(mem, ptr, count, set.For(kind))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s region: %w", kind, err)
		}
		switch kind {
		case types.KindNode:
			c.addNodes(seq)
		case types.KindLink:
			c.addLinks(seq)
		case types.KindFrame:
			c.addFrames(seq)
		case types.KindPacket:
			c.addPackets(seq)
		}
	}
	return c, nil
}

func (c *Catalog) issue(kind types.EntityKind, id uint32, reason IssueReason, format string, args ...any) {
	c.Issues = append(c.Issues, Issue{Kind: kind, ID: id, Reason: reason, Detail: fmt.Sprintf(format, args...)})
}

func (c *Catalog) addNodes(seq record.Sequence) {
	byID := make(map[uint32]NodeEntry, seq.Len())
	seen := make(map[uint32]bool, seq.Len())
	for i, rec := range seq.All() {
		n, err := record.NodeFrom(rec)
		if err != nil {
			c.issue(types.KindNode, 0, IssueUndecodable, "record %d: %v", i, err)
			continue
		}
		if seen[n.ID] {
			c.issue(types.KindNode, n.ID, IssueDuplicateID, "record %d replaces earlier record", i)
		}
		seen[n.ID] = true
		if !finite(n.Pos()) {
			c.issue(types.KindNode, n.ID, IssueBadPosition, "position (%v,%v)", n.X, n.Y)
			delete(byID, n.ID)
			continue
		}
		byID[n.ID] = NodeEntry{Node: n, Raw: rec.Bytes()}
	}

	c.Nodes = sortedValues(byID, func(e NodeEntry) uint32 { return e.ID })
	for i, e := range c.Nodes {
		c.nodeIdx[e.ID] = i
	}
}

func (c *Catalog) addLinks(seq record.Sequence) {
	byID := make(map[uint32]types.Link, seq.Len())
	raw := make(map[uint32][]byte, seq.Len())
	for i, rec := range seq.All() {
		l, err := record.LinkFrom(rec)
		if err != nil {
			c.issue(types.KindLink, 0, IssueUndecodable, "record %d: %v", i, err)
			continue
		}
		if _, dup := byID[l.ID]; dup {
			c.issue(types.KindLink, l.ID, IssueDuplicateID, "record %d replaces earlier record", i)
		}
		byID[l.ID] = l
		raw[l.ID] = rec.Bytes()
	}

	entries := make([]LinkEntry, 0, len(byID))
	for _, l := range sortedValues(byID, func(l types.Link) uint32 { return l.ID }) {
		if l.NodeA == l.NodeB {
			c.issue(types.KindLink, l.ID, IssueSelfLoop, "both ends are node %d", l.NodeA)
			continue
		}
		a, okA := c.Node(l.NodeA)
		b, okB := c.Node(l.NodeB)
		if !okA || !okB {
			c.issue(types.KindLink, l.ID, IssueDangling, "nodes %d-%d", l.NodeA, l.NodeB)
			continue
		}
		entries = append(entries, LinkEntry{Link: l, A: a.Pos(), B: b.Pos(), Raw: raw[l.ID]})
	}
	c.Links = entries
	for i, e := range c.Links {
		c.linkIdx[e.ID] = i
	}
}

func (c *Catalog) addFrames(seq record.Sequence) {
	byID := make(map[uint32]types.Frame, seq.Len())
	raw := make(map[uint32][]byte, seq.Len())
	for i, rec := range seq.All() {
		f, err := record.FrameFrom(rec)
		if err != nil {
			c.issue(types.KindFrame, 0, IssueUndecodable, "record %d: %v", i, err)
			continue
		}
		if _, dup := byID[f.ID]; dup {
			c.issue(types.KindFrame, f.ID, IssueDuplicateID, "record %d replaces earlier record", i)
		}
		byID[f.ID] = f
		raw[f.ID] = rec.Bytes()
	}

	entries := make([]FrameEntry, 0, len(byID))
	for _, f := range sortedValues(byID, func(f types.Frame) uint32 { return f.ID }) {
		l, ok := c.Link(f.LinkID)
		if !ok {
			c.issue(types.KindFrame, f.ID, IssueDangling, "link %d", f.LinkID)
			continue
		}
		var e FrameEntry
		switch f.FromNode {
		case l.NodeA:
			e = FrameEntry{Frame: f, ToNode: l.NodeB, From: l.A, To: l.B}
		case l.NodeB:
			e = FrameEntry{Frame: f, ToNode: l.NodeA, From: l.B, To: l.A}
		default:
			c.issue(types.KindFrame, f.ID, IssueNotEndpoint, "node %d is not on link %d", f.FromNode, f.LinkID)
			continue
		}
		if math.IsNaN(f.Progress) {
			c.issue(types.KindFrame, f.ID, IssueBadPosition, "progress is NaN")
			continue
		}
		e.Pos = Interpolate(e.From, e.To, f.Progress)
		e.Raw = raw[f.ID]
		entries = append(entries, e)
	}
	c.Frames = entries
	for i, e := range c.Frames {
		c.frameIdx[e.ID] = i
	}
}

func (c *Catalog) addPackets(seq record.Sequence) {
	byID := make(map[uint32]PacketEntry, seq.Len())
	seen := make(map[uint32]bool, seq.Len())
	for i, rec := range seq.All() {
		p, err := record.PacketFrom(rec)
		if err != nil {
			c.issue(types.KindPacket, 0, IssueUndecodable, "record %d: %v", i, err)
			continue
		}
		if seen[p.ID] {
			c.issue(types.KindPacket, p.ID, IssueDuplicateID, "record %d replaces earlier record", i)
		}
		seen[p.ID] = true
		if !finite(p.Pos()) {
			c.issue(types.KindPacket, p.ID, IssueBadPosition, "position (%v,%v)", p.X, p.Y)
			delete(byID, p.ID)
			continue
		}
		byID[p.ID] = PacketEntry{Packet: p, Raw: rec.Bytes()}
	}

	c.Packets = sortedValues(byID, func(e PacketEntry) uint32 { return e.ID })
	for i, e := range c.Packets {
		c.packetIdx[e.ID] = i
	}
}

func sortedValues[T any](m map[uint32]T, id func(T) uint32) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

// Node looks a node up by id.
func (c *Catalog) Node(id uint32) (NodeEntry, bool) {
	i, ok := c.nodeIdx[id]
	if !ok {
		return NodeEntry{}, false
	}
	return c.Nodes[i], true
}

// Link looks a drawable link up by id.
func (c *Catalog) Link(id uint32) (LinkEntry, bool) {
	i, ok := c.linkIdx[id]
	if !ok {
		return LinkEntry{}, false
	}
	return c.Links[i], true
}

// Frame looks a drawable frame up by id.
func (c *Catalog) Frame(id uint32) (FrameEntry, bool) {
	i, ok := c.frameIdx[id]
	if !ok {
		return FrameEntry{}, false
	}
	return c.Frames[i], true
}

// Packet looks a packet up by id.
func (c *Catalog) Packet(id uint32) (PacketEntry, bool) {
	i, ok := c.packetIdx[id]
	if !ok {
		return PacketEntry{}, false
	}
	return c.Packets[i], true
}

// Raw returns the copied record bytes of an entity.
func (c *Catalog) Raw(ref types.EntityRef) ([]byte, bool) {
	switch ref.Kind {
	case types.KindNode:
		e, ok := c.Node(ref.ID)
		return e.Raw, ok
	case types.KindLink:
		e, ok := c.Link(ref.ID)
		return e.Raw, ok
	case types.KindFrame:
		e, ok := c.Frame(ref.ID)
		return e.Raw, ok
	case types.KindPacket:
		e, ok := c.Packet(ref.ID)
		return e.Raw, ok
	default:
		return nil, false
	}
}

// Len returns the number of drawable entities.
func (c *Catalog) Len() int {
	return len(c.Nodes) + len(c.Links) + len(c.Frames) + len(c.Packets)
}

// IssueCount returns how many issues of a reason the build recorded.
func (c *Catalog) IssueCount(reason IssueReason) int {
	n := 0
	for _, i := range c.Issues {
		if i.Reason == reason {
			n++
		}
	}
	return n
}
