package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for netvis.
type Config struct {
	Display  DisplayConfig  `yaml:"display"  mapstructure:"display"`
	Engine   EngineConfig   `yaml:"engine"   mapstructure:"engine"`
	Render   RenderConfig   `yaml:"render"   mapstructure:"render"`
	Scenario ScenarioConfig `yaml:"scenario" mapstructure:"scenario"`
	History  HistoryConfig  `yaml:"history"  mapstructure:"history"`
	Logging  LoggingConfig  `yaml:"logging"  mapstructure:"logging"`
	Stats    StatsConfig    `yaml:"stats"    mapstructure:"stats"`
	Metrics  MetricsConfig  `yaml:"metrics"  mapstructure:"metrics"`
}

type DisplayConfig struct {
	Width  int    `yaml:"width"  mapstructure:"width"`
	Height int    `yaml:"height" mapstructure:"height"`
	FPS    int    `yaml:"fps"    mapstructure:"fps"`
	Title  string `yaml:"title"  mapstructure:"title"`
}

type EngineConfig struct {
	Model         string  `yaml:"model"          mapstructure:"model"`
	SchemaVersion int     `yaml:"schema_version" mapstructure:"schema_version"`
	FrameSpeed    float64 `yaml:"frame_speed"    mapstructure:"frame_speed"`
	ArenaSize     int     `yaml:"arena_size"     mapstructure:"arena_size"`
	TicksPerStep  int     `yaml:"ticks_per_step" mapstructure:"ticks_per_step"`
}

type RenderConfig struct {
	NodeRadius    float64 `yaml:"node_radius"    mapstructure:"node_radius"`
	FrameRadius   float64 `yaml:"frame_radius"   mapstructure:"frame_radius"`
	PacketRadius  float64 `yaml:"packet_radius"  mapstructure:"packet_radius"`
	Labels        bool    `yaml:"labels"         mapstructure:"labels"`
	LiveSelection bool    `yaml:"live_selection" mapstructure:"live_selection"`
}

// ScenarioConfig is the topology and traffic placed in the engine before the
// first pass. Node and link references are indexes into Nodes and Links.
type ScenarioConfig struct {
	Nodes   []NodeSpec  `yaml:"nodes"   mapstructure:"nodes"`
	Links   []LinkSpec  `yaml:"links"   mapstructure:"links"`
	Frames  []FrameSpec `yaml:"frames"  mapstructure:"frames"`
	Packets []string    `yaml:"packets" mapstructure:"packets"`
}

type NodeSpec struct {
	X    float64 `yaml:"x"    mapstructure:"x"`
	Y    float64 `yaml:"y"    mapstructure:"y"`
	Kind string  `yaml:"kind" mapstructure:"kind"`
}

type LinkSpec struct {
	A int `yaml:"a" mapstructure:"a"`
	B int `yaml:"b" mapstructure:"b"`
}

type FrameSpec struct {
	Link int `yaml:"link" mapstructure:"link"`
	From int `yaml:"from" mapstructure:"from"`
	Dst  int `yaml:"dst"  mapstructure:"dst"`
}

type HistoryConfig struct {
	Capacity   int    `yaml:"capacity"    mapstructure:"capacity"`
	CIDR       string `yaml:"cidr"        mapstructure:"cidr"`
	PcapFile   string `yaml:"pcap_file"   mapstructure:"pcap_file"`
	TickMs     int    `yaml:"tick_ms"     mapstructure:"tick_ms"`
	MirrorAddr string `yaml:"mirror_addr" mapstructure:"mirror_addr"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"   mapstructure:"level"`
	File    string `yaml:"file"    mapstructure:"file"`
	Console bool   `yaml:"console" mapstructure:"console"`
}

type StatsConfig struct {
	Enabled           bool   `yaml:"enabled"             mapstructure:"enabled"`
	ReportIntervalSec int    `yaml:"report_interval_sec" mapstructure:"report_interval_sec"`
	ExportFile        string `yaml:"export_file"         mapstructure:"export_file"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr"    mapstructure:"addr"`
	Path    string `yaml:"path"    mapstructure:"path"`
}

// SetDefaults configures default values for the configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("display.width", 800)
	v.SetDefault("display.height", 600)
	v.SetDefault("display.fps", 60)
	v.SetDefault("display.title", "netvis")
	v.SetDefault("engine.model", "graph")
	v.SetDefault("engine.schema_version", 1)
	v.SetDefault("engine.frame_speed", 0.05)
	v.SetDefault("engine.arena_size", 4096)
	v.SetDefault("engine.ticks_per_step", 1)
	v.SetDefault("render.node_radius", 12.0)
	v.SetDefault("render.frame_radius", 5.0)
	v.SetDefault("render.packet_radius", 8.0)
	v.SetDefault("render.labels", true)
	v.SetDefault("render.live_selection", false)
	v.SetDefault("scenario.nodes", []map[string]interface{}{
		{"x": 100.0, "y": 300.0, "kind": "host"},
		{"x": 300.0, "y": 300.0, "kind": "switch"},
		{"x": 500.0, "y": 300.0, "kind": "host"},
	})
	v.SetDefault("scenario.links", []map[string]interface{}{
		{"a": 0, "b": 1},
		{"a": 1, "b": 2},
	})
	v.SetDefault("scenario.frames", []map[string]interface{}{
		{"link": 0, "from": 0, "dst": 2},
	})
	v.SetDefault("scenario.packets", []string{"tcp", "udp"})
	v.SetDefault("history.capacity", 256)
	v.SetDefault("history.cidr", "10.0.0.0/24")
	v.SetDefault("history.tick_ms", 16)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.report_interval_sec", 10)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9464")
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads configuration from a YAML file and returns a Config.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper reads configuration using an existing viper instance (for CLI flag binding).
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Summary returns a human-readable summary of the configuration.
func (c *Config) Summary() string {
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Display:       %dx%d @ %d fps\n", c.Display.Width, c.Display.Height, c.Display.FPS))
	sb.WriteString(fmt.Sprintf("  Model:         %s (schema v%d)\n", c.Engine.Model, c.Engine.SchemaVersion))
	sb.WriteString(fmt.Sprintf("  Frame Speed:   %.3f\n", c.Engine.FrameSpeed))
	sb.WriteString(fmt.Sprintf("  Ticks/Step:    %d\n", c.Engine.TicksPerStep))
	sb.WriteString(fmt.Sprintf("  Scenario:      %d nodes, %d links, %d frames, %d packets\n",
		len(c.Scenario.Nodes), len(c.Scenario.Links), len(c.Scenario.Frames), len(c.Scenario.Packets)))
	sb.WriteString(fmt.Sprintf("  History:       %d entries (%s)\n", c.History.Capacity, c.History.CIDR))
	if c.History.PcapFile != "" {
		sb.WriteString(fmt.Sprintf("  PCAP Export:   %s\n", c.History.PcapFile))
	}
	if c.History.MirrorAddr != "" {
		sb.WriteString(fmt.Sprintf("  Mirror:        udp://%s\n", c.History.MirrorAddr))
	}
	sb.WriteString(fmt.Sprintf("  Live Select:   %v\n", c.Render.LiveSelection))
	if c.Metrics.Enabled {
		sb.WriteString(fmt.Sprintf("  Metrics:       http://%s%s\n", c.Metrics.Addr, c.Metrics.Path))
	}
	return sb.String()
}
