package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvis/internal/record"
	"netvis/pkg/types"
)

func defaults(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaults(t)

	assert.Equal(t, 800, cfg.Display.Width)
	assert.Equal(t, 600, cfg.Display.Height)
	assert.Equal(t, "graph", cfg.Engine.Model)
	assert.Equal(t, 0.05, cfg.Engine.FrameSpeed)
	assert.Equal(t, 256, cfg.History.Capacity)

	require.Len(t, cfg.Scenario.Nodes, 3)
	assert.Equal(t, "switch", cfg.Scenario.Nodes[1].Kind)
	assert.Equal(t, 500.0, cfg.Scenario.Nodes[2].X)
	require.Len(t, cfg.Scenario.Links, 2)
	assert.Equal(t, LinkSpec{A: 1, B: 2}, cfg.Scenario.Links[1])
	require.Len(t, cfg.Scenario.Frames, 1)
	assert.Equal(t, FrameSpec{Link: 0, From: 0, Dst: 2}, cfg.Scenario.Frames[0])
	assert.Equal(t, []string{"tcp", "udp"}, cfg.Scenario.Packets)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netvis.yaml")
	content := `
engine:
  model: packet
  schema_version: 2
scenario:
  nodes:
    - {x: 10, y: 20, kind: host}
    - {x: 30, y: 40}
  links:
    - {a: 0, b: 1}
  frames: []
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	set, err := cfg.Engine.SchemaSet()
	require.NoError(t, err)
	assert.Equal(t, record.PacketSetV2.Name, set.Name)

	require.Len(t, cfg.Scenario.Nodes, 2)
	assert.Equal(t, 30.0, cfg.Scenario.Nodes[1].X)
	assert.Empty(t, cfg.Scenario.Frames)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 60, cfg.Display.FPS, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadWithViper_Override(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.ticks_per_step", 4)
	v.Set("render.live_selection", true)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.TicksPerStep)
	assert.True(t, cfg.Render.LiveSelection)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := defaults(t)
	cfg.Display.Width = 0
	cfg.Engine.Model = "mesh"
	cfg.Engine.FrameSpeed = 2
	cfg.History.CIDR = "::1/64"
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "configuration errors:")
	assert.Contains(t, msg, "display size")
	assert.Contains(t, msg, "unknown model")
	assert.Contains(t, msg, "engine.frame_speed")
	assert.Contains(t, msg, "must be IPv4")
	assert.Contains(t, msg, "logging.level")
}

func TestValidate_UnknownSchemaVersion(t *testing.T) {
	cfg := defaults(t)
	cfg.Engine.SchemaVersion = 2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema set for model graph version 2")
}

func TestValidate_Scenario(t *testing.T) {
	cfg := defaults(t)
	cfg.Scenario.Nodes = append(cfg.Scenario.Nodes, NodeSpec{Kind: "router"})
	cfg.Scenario.Links = append(cfg.Scenario.Links, LinkSpec{A: 0, B: 0}, LinkSpec{A: 0, B: 9})
	cfg.Scenario.Frames = append(cfg.Scenario.Frames,
		FrameSpec{Link: 7},
		FrameSpec{Link: 1, From: 0, Dst: 2},
	)
	cfg.Scenario.Packets = []string{"icmp"}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "scenario.nodes[3]: unknown node kind")
	assert.Contains(t, msg, "scenario.links[2] connects node 0 to itself")
	assert.Contains(t, msg, "scenario.links[3] references a missing node")
	assert.Contains(t, msg, "scenario.frames[1] references missing link 7")
	assert.Contains(t, msg, "scenario.frames[2]: node 0 is not an endpoint of link 1")
	assert.Contains(t, msg, "scenario.packets[0]: unknown packet kind")
}

func TestValidate_Metrics(t *testing.T) {
	cfg := defaults(t)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = "9464"
	cfg.Metrics.Path = "metrics"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.addr")
	assert.Contains(t, err.Error(), "metrics.path")
}

func TestParseKinds(t *testing.T) {
	k, err := ParseNodeKind("")
	require.NoError(t, err)
	assert.Equal(t, types.NodeHost, k)

	k, err = ParseNodeKind("Switch")
	require.NoError(t, err)
	assert.Equal(t, types.NodeSwitch, k)

	p, err := ParsePacketKind("udp")
	require.NoError(t, err)
	assert.Equal(t, types.PacketUDP, p)

	_, err = ParsePacketKind("sctp")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	cfg := defaults(t)
	s := cfg.Summary()
	assert.Contains(t, s, "800x600 @ 60 fps")
	assert.Contains(t, s, "graph (schema v1)")
	assert.Contains(t, s, "3 nodes, 2 links, 1 frames, 2 packets")
	assert.NotContains(t, s, "Metrics:")
}
