package session

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"netvis/internal/config"
	"netvis/internal/engine"
	"netvis/internal/history"
	"netvis/internal/loop"
	"netvis/internal/observability"
	"netvis/internal/record"
	"netvis/internal/render"
	"netvis/internal/stats"
	"netvis/pkg/types"
)

// ErrTooFewNodes is returned when a link is requested with fewer than two nodes placed.
var ErrTooFewNodes = errors.New("need at least two nodes")

// Manager owns one visualization session: the engine, the render loop that
// drives it, and the collaborators the loop feeds.
type Manager struct {
	cfg     *config.Config
	schemas record.SchemaSet
	engine  *engine.Engine
	loop    *loop.Loop
	history *history.Log
	stats   *stats.Collector

	// Node and link ids in placement order; scenario indexes resolve through these.
	nodes  []uint32
	links  []uint32
	frames []config.FrameSpec
}

// NewManager creates the engine and loop for cfg. surface, collector and
// metrics may be nil.
func NewManager(
	cfg *config.Config,
	sched loop.Scheduler,
	surface render.Surface,
	collector *stats.Collector,
	metrics *observability.RenderCollector,
) (*Manager, error) {
	schemas, err := cfg.Engine.SchemaSet()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema set: %w", err)
	}

	opts := []engine.Option{
		engine.WithSchemaSet(schemas),
		engine.WithFrameSpeed(cfg.Engine.FrameSpeed),
	}
	if cfg.Engine.ArenaSize > 0 {
		opts = append(opts, engine.WithArenaSize(cfg.Engine.ArenaSize))
	}
	eng, err := engine.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	plan, err := history.NewAddressPlan(cfg.History.CIDR)
	if err != nil {
		return nil, fmt.Errorf("failed to create address plan: %w", err)
	}
	hist := history.NewLog(cfg.History.Capacity, plan)

	l := loop.New(sched, loop.Options{
		Schemas:       schemas,
		Painter:       render.NewPainter(Style(cfg.Render)),
		Surface:       surface,
		TicksPerStep:  cfg.Engine.TicksPerStep,
		LiveSelection: cfg.Render.LiveSelection,
		Stats:         collector,
		Metrics:       metrics,
		History:       hist,
	})

	return &Manager{
		cfg:     cfg,
		schemas: schemas,
		engine:  eng,
		loop:    l,
		history: hist,
		stats:   collector,
	}, nil
}

// Style converts render configuration into a painter style.
func Style(rc config.RenderConfig) render.Style {
	s := render.DefaultStyle()
	s.NodeRadius = rc.NodeRadius
	s.FrameRadius = rc.FrameRadius
	s.PacketRadius = rc.PacketRadius
	s.Labels = rc.Labels
	return s
}

// Start places the configured scenario in the engine and attaches it to the loop.
func (m *Manager) Start() error {
	if err := m.applyScenario(); err != nil {
		return fmt.Errorf("failed to apply scenario: %w", err)
	}
	if err := m.loop.Attach(m.engine); err != nil {
		return fmt.Errorf("failed to start render loop: %w", err)
	}

	log.WithFields(log.Fields{
		"model":   m.schemas.Model.String(),
		"schemas": m.schemas.Name,
		"nodes":   m.engine.Len(types.KindNode),
		"links":   m.engine.Len(types.KindLink),
		"frames":  m.engine.Len(types.KindFrame),
		"packets": m.engine.Len(types.KindPacket),
	}).Info("Session started")
	return nil
}

// Stop halts the loop. It is safe to call more than once.
func (m *Manager) Stop() {
	m.loop.Stop()
	if m.stats != nil {
		m.stats.Finish()
	}
}

// Select hit-tests a canvas position against the latest catalog.
func (m *Manager) Select(x, y float64) *types.Selection { return m.loop.Click(x, y) }

// ClearSelection drops the current selection.
func (m *Manager) ClearSelection() { m.loop.ClearSelection() }

func (m *Manager) Loop() *loop.Loop       { return m.loop }
func (m *Manager) Engine() *engine.Engine { return m.engine }
func (m *Manager) History() *history.Log  { return m.history }
func (m *Manager) Config() *config.Config { return m.cfg }

func (m *Manager) applyScenario() error {
	sc := m.cfg.Scenario

	if m.schemas.Model != record.ModelGraph {
		if len(sc.Nodes) > 0 || len(sc.Links) > 0 || len(sc.Frames) > 0 {
			log.WithField("model", m.schemas.Model.String()).Debug("Ignoring graph scenario for packet model")
		}
		for i, p := range sc.Packets {
			kind, err := config.ParsePacketKind(p)
			if err != nil {
				return fmt.Errorf("packet %d: %w", i, err)
			}
			if _, err := m.engine.AddPacket(kind); err != nil {
				return err
			}
		}
		return nil
	}

	if len(sc.Packets) > 0 {
		log.WithField("model", m.schemas.Model.String()).Debug("Ignoring packet scenario for graph model")
	}
	for i, n := range sc.Nodes {
		kind, err := config.ParseNodeKind(n.Kind)
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if _, err := m.addNode(n.X, n.Y, kind); err != nil {
			return err
		}
	}
	for i, l := range sc.Links {
		if !m.validNode(l.A) || !m.validNode(l.B) {
			return fmt.Errorf("link %d: %w", i, engine.ErrUnknownNode)
		}
		if _, err := m.addLink(m.nodes[l.A], m.nodes[l.B]); err != nil {
			return err
		}
	}
	m.frames = sc.Frames
	_, err := m.sendFrames()
	return err
}

// AddNode places a host or switch at (x, y) between loop steps.
func (m *Manager) AddNode(x, y float64, kind types.NodeKind) (uint32, error) {
	var id uint32
	err := m.loop.Mutate(func() error {
		var err error
		id, err = m.addNode(x, y, kind)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"id": id, "x": x, "y": y}).Debug("Node added")
	return id, nil
}

// LinkLastTwo connects the two most recently placed nodes.
func (m *Manager) LinkLastTwo() (uint32, error) {
	var id uint32
	err := m.loop.Mutate(func() error {
		if len(m.nodes) < 2 {
			return fmt.Errorf("link: %w", ErrTooFewNodes)
		}
		var err error
		id, err = m.addLink(m.nodes[len(m.nodes)-2], m.nodes[len(m.nodes)-1])
		return err
	})
	if err != nil {
		return 0, err
	}
	log.WithField("id", id).Debug("Link added")
	return id, nil
}

// ResendFrames sends the configured scenario frames again.
func (m *Manager) ResendFrames() (int, error) {
	var n int
	err := m.loop.Mutate(func() error {
		var err error
		n, err = m.sendFrames()
		return err
	})
	return n, err
}

// AddPacket adds a packet between loop steps.
func (m *Manager) AddPacket(kind types.PacketKind) (uint32, error) {
	var id uint32
	err := m.loop.Mutate(func() error {
		var err error
		id, err = m.engine.AddPacket(kind)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.WithField("id", id).Debug("Packet added")
	return id, nil
}

func (m *Manager) addNode(x, y float64, kind types.NodeKind) (uint32, error) {
	id, err := m.engine.AddNode(x, y, kind)
	if err != nil {
		return 0, err
	}
	m.nodes = append(m.nodes, id)
	return id, nil
}

func (m *Manager) addLink(a, b uint32) (uint32, error) {
	id, err := m.engine.AddLink(a, b)
	if err != nil {
		return 0, err
	}
	m.links = append(m.links, id)
	return id, nil
}

func (m *Manager) sendFrames() (int, error) {
	for i, f := range m.frames {
		if f.Link < 0 || f.Link >= len(m.links) || !m.validNode(f.From) || !m.validNode(f.Dst) {
			return i, fmt.Errorf("frame %d: %w", i, engine.ErrUnknownLink)
		}
		if _, err := m.engine.SendFrame(m.links[f.Link], m.nodes[f.From], m.nodes[f.Dst]); err != nil {
			return i, err
		}
	}
	return len(m.frames), nil
}

func (m *Manager) validNode(i int) bool { return i >= 0 && i < len(m.nodes) }
