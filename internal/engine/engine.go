// Package engine is the in-process simulation engine. It keeps authoritative
// state in Go values and mirrors it into a linear memory arena laid out with
// the record schemas, the same view an external engine build exposes.
package engine

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"netvis/internal/record"
	"netvis/pkg/types"
)

const (
	// DefaultFrameSpeed is the progress a frame gains per tick.
	DefaultFrameSpeed = 0.05
	// HandshakeInterval is the number of ticks between TCP state steps.
	HandshakeInterval = 30

	headerSize  = 16
	regionAlign = 8
	minArena    = 1024
)

var (
	ErrWrongModel    = errors.New("operation not supported by this engine model")
	ErrUnknownNode   = errors.New("unknown node")
	ErrUnknownLink   = errors.New("unknown link")
	ErrSelfLink      = errors.New("link endpoints must differ")
	ErrNotEndpoint   = errors.New("node is not an endpoint of link")
	ErrInvalidKind   = errors.New("invalid kind")
	ErrInvalidOption = errors.New("invalid engine option")
)

// Counters are cumulative engine events.
type Counters struct {
	Ticks       uint64
	Sent        uint64
	Delivered   uint64
	Discarded   uint64
	Forwarded   uint64
	Flooded     uint64
	Relocations uint64
}

type region struct {
	ptr   uint32
	count uint32
}

// Engine is a graph or packet model simulation. Memory and Region describe
// the arena as of the last mutation; the arena may move on any mutation.
type Engine struct {
	set   record.SchemaSet
	speed float64
	arena int

	nodes   []types.Node
	links   []types.Link
	frames  []types.Frame
	packets []types.Packet
	born    []uint64

	nodeIdx map[uint32]int
	linkIdx map[uint32]int
	// per switch: source address -> link it was learned on
	macTables map[uint32]map[uint32]uint32

	nodeIDs   *IDAllocator
	linkIDs   *IDAllocator
	frameIDs  *IDAllocator
	packetIDs *IDAllocator

	mem        []byte
	regions    map[types.EntityKind]region
	generation uint64
	counters   Counters

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine) error

// WithSchemaSet selects the model and record layout the engine exposes.
func WithSchemaSet(set record.SchemaSet) Option {
	return func(e *Engine) error {
		if err := set.Validate(); err != nil {
			return err
		}
		e.set = set
		return nil
	}
}

// WithFrameSpeed sets the per tick progress of new frames.
func WithFrameSpeed(speed float64) Option {
	return func(e *Engine) error {
		if !(speed > 0 && speed <= 1) {
			return fmt.Errorf("%w: frame speed %v not in (0, 1]", ErrInvalidOption, speed)
		}
		e.speed = speed
		return nil
	}
}

// WithArenaSize sets the initial arena size in bytes.
func WithArenaSize(n int) Option {
	return func(e *Engine) error {
		if n < headerSize {
			return fmt.Errorf("%w: arena size %d below %d", ErrInvalidOption, n, headerSize)
		}
		e.arena = n
		return nil
	}
}

// New creates an engine. Without options it runs the graph model with the
// v1 layouts.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		set:       record.GraphSetV1,
		speed:     DefaultFrameSpeed,
		arena:     minArena,
		nodeIdx:   make(map[uint32]int),
		linkIdx:   make(map[uint32]int),
		macTables: make(map[uint32]map[uint32]uint32),
		nodeIDs:   NewIDAllocator(0),
		linkIDs:   NewIDAllocator(0),
		frameIDs:  NewIDAllocator(0),
		packetIDs: NewIDAllocator(0),
		regions:   make(map[types.EntityKind]region),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to create engine: %w", err)
		}
	}
	e.mem = make([]byte, e.arena)
	if err := e.layout(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"schemas": e.set.Name,
		"arena":   len(e.mem),
	}).Debug("Engine created")
	return e, nil
}

// Model returns the entity model of the engine.
func (e *Engine) Model() record.Model { return e.set.Model }

// SchemaSet returns the record layouts the engine writes.
func (e *Engine) SchemaSet() record.SchemaSet { return e.set }

// AddNode adds a host or switch at (x, y).
func (e *Engine) AddNode(x, y float64, kind types.NodeKind) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Model != record.ModelGraph {
		return 0, fmt.Errorf("add node: %w", ErrWrongModel)
	}
	if kind != types.NodeHost && kind != types.NodeSwitch {
		return 0, fmt.Errorf("add node: %w: node kind %d", ErrInvalidKind, kind)
	}
	id, err := e.nodeIDs.Allocate()
	if err != nil {
		return 0, fmt.Errorf("add node: %w", err)
	}
	e.nodeIdx[id] = len(e.nodes)
	e.nodes = append(e.nodes, types.Node{ID: id, Kind: kind, X: x, Y: y})
	return id, e.layout()
}

// AddLink connects two distinct existing nodes. The link length is their
// distance at creation time.
func (e *Engine) AddLink(a, b uint32) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Model != record.ModelGraph {
		return 0, fmt.Errorf("add link: %w", ErrWrongModel)
	}
	if a == b {
		return 0, fmt.Errorf("add link %d-%d: %w", a, b, ErrSelfLink)
	}
	ia, ok := e.nodeIdx[a]
	if !ok {
		return 0, fmt.Errorf("add link: %w: %d", ErrUnknownNode, a)
	}
	ib, ok := e.nodeIdx[b]
	if !ok {
		return 0, fmt.Errorf("add link: %w: %d", ErrUnknownNode, b)
	}

	id, err := e.linkIDs.Allocate()
	if err != nil {
		return 0, fmt.Errorf("add link: %w", err)
	}
	na, nb := e.nodes[ia], e.nodes[ib]
	e.linkIdx[id] = len(e.links)
	e.links = append(e.links, types.Link{
		ID:     id,
		NodeA:  a,
		NodeB:  b,
		Length: distance(na.Pos(), nb.Pos()),
	})
	return id, e.layout()
}

// SendFrame puts a frame addressed to dst on link, leaving from. The source
// address is the sending node.
func (e *Engine) SendFrame(link, from, dst uint32) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Model != record.ModelGraph {
		return 0, fmt.Errorf("send frame: %w", ErrWrongModel)
	}
	li, ok := e.linkIdx[link]
	if !ok {
		return 0, fmt.Errorf("send frame: %w: %d", ErrUnknownLink, link)
	}
	l := e.links[li]
	if from != l.NodeA && from != l.NodeB {
		return 0, fmt.Errorf("send frame: %w: node %d, link %d", ErrNotEndpoint, from, link)
	}
	id, err := e.emit(link, from, from, dst)
	if err != nil {
		return 0, fmt.Errorf("send frame: %w", err)
	}
	return id, e.layout()
}

// AddPacket adds a TCP or UDP packet. Packets enter at x=50, one row per packet.
func (e *Engine) AddPacket(kind types.PacketKind) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Model != record.ModelPacket {
		return 0, fmt.Errorf("add packet: %w", ErrWrongModel)
	}
	if kind != types.PacketTCP && kind != types.PacketUDP {
		return 0, fmt.Errorf("add packet: %w: packet kind %d", ErrInvalidKind, kind)
	}
	id, err := e.packetIDs.Allocate()
	if err != nil {
		return 0, fmt.Errorf("add packet: %w", err)
	}
	e.packets = append(e.packets, types.Packet{
		ID:    id,
		Kind:  kind,
		State: types.StateClosed,
		X:     50,
		Y:     50 + 50*float64(len(e.packets)),
	})
	e.born = append(e.born, e.counters.Ticks)
	return id, e.layout()
}

// Tick advances the simulation one step and re-lays the arena.
func (e *Engine) Tick() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counters.Ticks++
	switch e.set.Model {
	case record.ModelGraph:
		if err := e.stepFrames(); err != nil {
			return err
		}
	case record.ModelPacket:
		e.stepPackets()
	}
	return e.layout()
}

// Memory returns the arena. It is valid until the next mutation.
func (e *Engine) Memory() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mem
}

// Region returns the byte offset and element count of a kind's records.
// Kinds outside the model report zero elements.
func (e *Engine) Region(kind types.EntityKind) (uint32, uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.regions[kind]
	return r.ptr, r.count
}

// Generation increases with every arena layout.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// Counters returns a copy of the cumulative event counters.
func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

// Len returns the number of live entities of a kind.
func (e *Engine) Len(kind types.EntityKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case types.KindNode:
		return len(e.nodes)
	case types.KindLink:
		return len(e.links)
	case types.KindFrame:
		return len(e.frames)
	case types.KindPacket:
		return len(e.packets)
	default:
		return 0
	}
}

func (e *Engine) emit(link, from, src, dst uint32) (uint32, error) {
	id, err := e.frameIDs.Allocate()
	if err != nil {
		return 0, err
	}
	e.frames = append(e.frames, types.Frame{
		ID:       id,
		LinkID:   link,
		FromNode: from,
		Speed:    e.speed,
		Src:      src,
		Dst:      dst,
	})
	e.counters.Sent++
	return id, nil
}

func (e *Engine) stepFrames() error {
	var arrived []types.Frame
	inflight := e.frames[:0]
	for _, f := range e.frames {
		f.Progress += f.Speed
		if f.Progress >= 1 {
			arrived = append(arrived, f)
			continue
		}
		inflight = append(inflight, f)
	}
	e.frames = inflight

	for _, f := range arrived {
		if err := e.arrive(f); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) arrive(f types.Frame) error {
	l := e.links[e.linkIdx[f.LinkID]]
	at := l.NodeB
	if f.FromNode == l.NodeB {
		at = l.NodeA
	}
	node := e.nodes[e.nodeIdx[at]]

	if node.Kind == types.NodeHost {
		if f.Dst == at {
			e.counters.Delivered++
			log.WithFields(log.Fields{
				"frame": f.ID,
				"node":  at,
				"src":   f.Src,
			}).Debug("Frame delivered")
		} else {
			e.counters.Discarded++
		}
		return nil
	}

	table, ok := e.macTables[at]
	if !ok {
		table = make(map[uint32]uint32)
		e.macTables[at] = table
	}
	table[f.Src] = f.LinkID

	if out, ok := table[f.Dst]; ok {
		if out == f.LinkID {
			e.counters.Discarded++
			return nil
		}
		e.counters.Forwarded++
		_, err := e.emit(out, at, f.Src, f.Dst)
		return err
	}

	e.counters.Flooded++
	for _, other := range e.links {
		if other.ID == f.LinkID || (other.NodeA != at && other.NodeB != at) {
			continue
		}
		if _, err := e.emit(other.ID, at, f.Src, f.Dst); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) stepPackets() {
	for i := range e.packets {
		p := &e.packets[i]
		p.X++
		age := e.counters.Ticks - e.born[i]
		if p.Kind == types.PacketTCP && age%HandshakeInterval == 0 {
			p.State = nextHandshakeState(p.State)
		}
	}
}

func nextHandshakeState(s types.TCPState) types.TCPState {
	switch s {
	case types.StateClosed:
		return types.StateSynSent
	case types.StateSynSent:
		return types.StateSynReceived
	case types.StateSynReceived:
		return types.StateEstablished
	default:
		return s
	}
}
