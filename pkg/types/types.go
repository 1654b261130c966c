package types

import "fmt"

// EntityKind identifies one of the decoded record kinds.
type EntityKind uint8

const (
	KindNode EntityKind = iota
	KindLink
	KindFrame
	KindPacket
)

// String returns the lowercase kind name used in logs and metrics.
func (k EntityKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindLink:
		return "link"
	case KindFrame:
		return "frame"
	case KindPacket:
		return "packet"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// NodeKind distinguishes hosts from switches.
type NodeKind uint8

const (
	NodeHost   NodeKind = 0
	NodeSwitch NodeKind = 1
)

// TCPState is the connection state carried by a Packet record.
type TCPState uint8

const (
	StateClosed      TCPState = 0
	StateListen      TCPState = 1
	StateSynSent     TCPState = 2
	StateSynReceived TCPState = 3
	StateEstablished TCPState = 4
	StateFinWait     TCPState = 5
)

// PacketKind is the transport of a Packet record.
type PacketKind uint8

const (
	PacketTCP PacketKind = 0
	PacketUDP PacketKind = 1
)

// Point is a position in canvas space.
type Point struct {
	X float64
	Y float64
}

// Node is a decoded node record.
type Node struct {
	ID   uint32
	Kind NodeKind
	X    float64
	Y    float64
}

// Pos returns the node position.
func (n Node) Pos() Point { return Point{X: n.X, Y: n.Y} }

// Link is a decoded link record. NodeA and NodeB are node ids.
type Link struct {
	ID     uint32
	NodeA  uint32
	NodeB  uint32
	Length float64
}

// Frame is a decoded in-flight frame. Progress runs from FromNode (0) to the
// other endpoint of Link (1).
type Frame struct {
	ID       uint32
	LinkID   uint32
	FromNode uint32
	Progress float64
	Speed    float64
	Src      uint32
	Dst      uint32
}

// Packet is a decoded packet record of the packet model.
type Packet struct {
	ID    uint32
	Kind  PacketKind
	State TCPState
	X     float64
	Y     float64
}

// Pos returns the packet position.
func (p Packet) Pos() Point { return Point{X: p.X, Y: p.Y} }

// EntityRef names one decoded entity.
type EntityRef struct {
	Kind EntityKind
	ID   uint32
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// Selection is the entity picked by a click plus a private copy of its raw record bytes.
type Selection struct {
	Ref   EntityRef
	Bytes []byte
}
