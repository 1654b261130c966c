package record

import (
	"fmt"

	"netvis/pkg/types"
)

// fieldReader collects the first error while reading several fields so a
// record is either fully decoded or rejected.
type fieldReader struct {
	rec Record
	err error
}

func (fr *fieldReader) u32(name string) uint32 {
	v := fr.uint(name)
	if v > 0xFFFFFFFF && fr.err == nil {
		fr.err = fmt.Errorf("field %q value %d overflows u32", name, v)
	}
	return uint32(v)
}

func (fr *fieldReader) u8(name string) uint8 {
	v := fr.uint(name)
	if v > 0xFF && fr.err == nil {
		fr.err = fmt.Errorf("field %q value %d overflows u8", name, v)
	}
	return uint8(v)
}

func (fr *fieldReader) uint(name string) uint64 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.rec.Uint(name)
	fr.err = err
	return v
}

func (fr *fieldReader) f64(name string) float64 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.rec.Float(name)
	fr.err = err
	return v
}

// optU8 reads a field the schema may not declare.
func (fr *fieldReader) optU8(name string) uint8 {
	if _, ok := fr.rec.schema.Field(name); !ok {
		return 0
	}
	return fr.u8(name)
}

func (fr *fieldReader) done(kind types.EntityKind) error {
	if fr.err == nil {
		return nil
	}
	return fmt.Errorf("failed to decode %s record %d: %w", kind, fr.rec.Index, fr.err)
}

// NodeFrom decodes a node record.
func NodeFrom(r Record) (types.Node, error) {
	fr := &fieldReader{rec: r}
	n := types.Node{
		ID:   fr.u32("id"),
		Kind: types.NodeKind(fr.optU8("kind")),
		X:    fr.f64("x"),
		Y:    fr.f64("y"),
	}
	if err := fr.done(types.KindNode); err != nil {
		return types.Node{}, err
	}
	return n, nil
}

// LinkFrom decodes a link record.
func LinkFrom(r Record) (types.Link, error) {
	fr := &fieldReader{rec: r}
	l := types.Link{
		ID:     fr.u32("id"),
		NodeA:  fr.u32("node_a"),
		NodeB:  fr.u32("node_b"),
		Length: fr.f64("length"),
	}
	if err := fr.done(types.KindLink); err != nil {
		return types.Link{}, err
	}
	return l, nil
}

// FrameFrom decodes a frame record.
func FrameFrom(r Record) (types.Frame, error) {
	fr := &fieldReader{rec: r}
	f := types.Frame{
		ID:       fr.u32("id"),
		LinkID:   fr.u32("link_id"),
		FromNode: fr.u32("from_node"),
		Progress: fr.f64("progress"),
		Speed:    fr.f64("speed"),
		Src:      fr.u32("src"),
		Dst:      fr.u32("dst"),
	}
	if err := fr.done(types.KindFrame); err != nil {
		return types.Frame{}, err
	}
	return f, nil
}

// PacketFrom decodes a packet record.
func PacketFrom(r Record) (types.Packet, error) {
	fr := &fieldReader{rec: r}
	p := types.Packet{
		ID:    fr.u32("id"),
		Kind:  types.PacketKind(fr.u8("kind")),
		State: types.TCPState(fr.u8("state")),
		X:     fr.f64("x"),
		Y:     fr.f64("y"),
	}
	if err := fr.done(types.KindPacket); err != nil {
		return types.Packet{}, err
	}
	return p, nil
}

// NodeValues returns the encodable fields of a node.
func NodeValues(n types.Node) Values {
	return Values{"id": n.ID, "kind": uint8(n.Kind), "x": n.X, "y": n.Y}
}

// LinkValues returns the encodable fields of a link.
func LinkValues(l types.Link) Values {
	return Values{"id": l.ID, "node_a": l.NodeA, "node_b": l.NodeB, "length": l.Length}
}

// FrameValues returns the encodable fields of a frame.
func FrameValues(f types.Frame) Values {
	return Values{
		"id": f.ID, "link_id": f.LinkID, "from_node": f.FromNode,
		"progress": f.Progress, "speed": f.Speed, "src": f.Src, "dst": f.Dst,
	}
}

// PacketValues returns the encodable fields of a packet.
func PacketValues(p types.Packet) Values {
	return Values{"id": p.ID, "kind": uint8(p.Kind), "state": uint8(p.State), "x": p.X, "y": p.Y}
}
