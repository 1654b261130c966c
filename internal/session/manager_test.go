package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvis/internal/config"
	"netvis/internal/engine"
	"netvis/internal/loop"
	"netvis/internal/render"
	"netvis/internal/stats"
	"netvis/pkg/types"
)

func newTestManager(t *testing.T, mutate func(*config.Config)) (*Manager, *loop.FrameScheduler, *render.DisplayList) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	sched := loop.NewFrameScheduler()
	dl := &render.DisplayList{}
	m, err := NewManager(cfg, sched, dl, stats.NewCollector(), nil)
	require.NoError(t, err)
	return m, sched, dl
}

func TestManager_StartAppliesScenario(t *testing.T) {
	m, sched, dl := newTestManager(t, nil)
	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Equal(t, 3, m.Engine().Len(types.KindNode))
	assert.Equal(t, 2, m.Engine().Len(types.KindLink))
	assert.Equal(t, 1, m.Engine().Len(types.KindFrame))
	assert.Equal(t, loop.Running, m.Loop().State())

	sched.Advance()

	cat := m.Loop().Catalog()
	require.NotNil(t, cat)
	require.Len(t, cat.Nodes, 3)
	assert.Equal(t, types.NodeSwitch, cat.Nodes[1].Kind)
	assert.Equal(t, 3, dl.Count(render.OpFillCircle)-len(cat.Frames))
	assert.Equal(t, 1, m.History().Len())
}

func TestManager_PacketModel(t *testing.T) {
	m, sched, _ := newTestManager(t, func(c *config.Config) {
		c.Engine.Model = "packet"
		c.Engine.SchemaVersion = 2
	})
	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Equal(t, 0, m.Engine().Len(types.KindNode))
	assert.Equal(t, 2, m.Engine().Len(types.KindPacket))

	id, err := m.AddPacket(types.PacketUDP)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), id)

	sched.Advance()
	cat := m.Loop().Catalog()
	require.NotNil(t, cat)
	assert.Len(t, cat.Packets, 3)

	_, err = m.AddNode(10, 10, types.NodeHost)
	assert.ErrorIs(t, err, engine.ErrWrongModel)
}

func TestManager_InteractiveTopology(t *testing.T) {
	m, sched, _ := newTestManager(t, func(c *config.Config) {
		c.Scenario = config.ScenarioConfig{}
	})
	require.NoError(t, m.Start())
	defer m.Stop()

	_, err := m.LinkLastTwo()
	assert.ErrorIs(t, err, ErrTooFewNodes)

	a, err := m.AddNode(100, 100, types.NodeHost)
	require.NoError(t, err)
	b, err := m.AddNode(200, 100, types.NodeSwitch)
	require.NoError(t, err)
	link, err := m.LinkLastTwo()
	require.NoError(t, err)

	sched.Advance()
	cat := m.Loop().Catalog()
	require.NotNil(t, cat)
	l, ok := cat.Link(link)
	require.True(t, ok)
	assert.Equal(t, a, l.NodeA)
	assert.Equal(t, b, l.NodeB)
	assert.Equal(t, 100.0, l.Length)

	n, err := m.ResendFrames()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestManager_ResendFrames(t *testing.T) {
	m, sched, _ := newTestManager(t, nil)
	require.NoError(t, m.Start())
	defer m.Stop()

	n, err := m.ResendFrames()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, m.Engine().Len(types.KindFrame))

	sched.Advance()
	assert.Equal(t, 2, m.History().Len())
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m, sched, _ := newTestManager(t, nil)
	require.NoError(t, m.Start())

	m.Stop()
	m.Stop()
	assert.Equal(t, loop.Stopped, m.Loop().State())
	assert.Equal(t, 0, sched.Advance())
}

func TestManager_CommandsRejectedAfterStop(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	require.NoError(t, m.Start())
	m.Stop()

	nodes := m.Engine().Len(types.KindNode)
	_, err := m.AddNode(10, 10, types.NodeHost)
	assert.ErrorIs(t, err, loop.ErrStopped)
	_, err = m.LinkLastTwo()
	assert.ErrorIs(t, err, loop.ErrStopped)
	_, err = m.ResendFrames()
	assert.ErrorIs(t, err, loop.ErrStopped)
	assert.Equal(t, nodes, m.Engine().Len(types.KindNode))
}

func TestStyle_FromConfig(t *testing.T) {
	s := Style(config.RenderConfig{NodeRadius: 20, FrameRadius: 3, PacketRadius: 9, Labels: false})
	assert.Equal(t, 20.0, s.NodeRadius)
	assert.Equal(t, 3.0, s.FrameRadius)
	assert.Equal(t, 9.0, s.PacketRadius)
	assert.False(t, s.Labels)
	assert.Equal(t, render.DefaultStyle().LinkWidth, s.LinkWidth)
}
