package config

import (
	"fmt"
	"net"
	"strings"

	"netvis/internal/record"
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	// Display must have a positive size
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Sprintf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height))
	}
	if c.Display.FPS <= 0 || c.Display.FPS > 240 {
		errs = append(errs, fmt.Sprintf("display.fps must be between 1 and 240, got %d", c.Display.FPS))
	}

	// Model and schema version must name a built-in schema set
	if _, err := c.Engine.SchemaSet(); err != nil {
		errs = append(errs, fmt.Sprintf("engine.model/schema_version: %v", err))
	}

	if c.Engine.FrameSpeed <= 0 || c.Engine.FrameSpeed > 1 {
		errs = append(errs, fmt.Sprintf("engine.frame_speed must be in (0, 1], got %g", c.Engine.FrameSpeed))
	}
	if c.Engine.ArenaSize < 0 {
		errs = append(errs, "engine.arena_size must be >= 0")
	}
	if c.Engine.TicksPerStep < 1 {
		errs = append(errs, "engine.ticks_per_step must be >= 1")
	}

	if c.Render.NodeRadius <= 0 || c.Render.FrameRadius <= 0 || c.Render.PacketRadius <= 0 {
		errs = append(errs, "render radii must be > 0")
	}

	errs = append(errs, c.Scenario.validate()...)

	if c.History.Capacity <= 0 {
		errs = append(errs, "history.capacity must be > 0")
	}
	if ip, _, err := net.ParseCIDR(c.History.CIDR); err != nil {
		errs = append(errs, fmt.Sprintf("invalid history CIDR %q: %v", c.History.CIDR, err))
	} else if ip.To4() == nil {
		errs = append(errs, fmt.Sprintf("history.cidr must be IPv4, got %q", c.History.CIDR))
	}
	if c.History.TickMs <= 0 {
		errs = append(errs, "history.tick_ms must be > 0")
	}
	if c.History.MirrorAddr != "" {
		if _, _, err := net.SplitHostPort(c.History.MirrorAddr); err != nil {
			errs = append(errs, fmt.Sprintf("history.mirror_addr must be host:port, got %q", c.History.MirrorAddr))
		}
	}

	// Log level must be valid
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level))
	}

	if c.Stats.Enabled && c.Stats.ReportIntervalSec < 0 {
		errs = append(errs, "stats.report_interval_sec must be >= 0")
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.addr must be host:port, got %q", c.Metrics.Addr))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, fmt.Sprintf("metrics.path must start with '/', got %q", c.Metrics.Path))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SchemaSet resolves the configured model and schema version.
func (e EngineConfig) SchemaSet() (record.SchemaSet, error) {
	model, err := record.ParseModel(e.Model)
	if err != nil {
		return record.SchemaSet{}, err
	}
	return record.Lookup(model, e.SchemaVersion)
}

func (s ScenarioConfig) validate() []string {
	var errs []string

	for i, n := range s.Nodes {
		if _, err := ParseNodeKind(n.Kind); err != nil {
			errs = append(errs, fmt.Sprintf("scenario.nodes[%d]: %v", i, err))
		}
	}

	for i, l := range s.Links {
		switch {
		case !inRange(l.A, len(s.Nodes)) || !inRange(l.B, len(s.Nodes)):
			errs = append(errs, fmt.Sprintf("scenario.links[%d] references a missing node (%d-%d)", i, l.A, l.B))
		case l.A == l.B:
			errs = append(errs, fmt.Sprintf("scenario.links[%d] connects node %d to itself", i, l.A))
		}
	}

	for i, f := range s.Frames {
		if !inRange(f.Link, len(s.Links)) {
			errs = append(errs, fmt.Sprintf("scenario.frames[%d] references missing link %d", i, f.Link))
			continue
		}
		l := s.Links[f.Link]
		if f.From != l.A && f.From != l.B {
			errs = append(errs, fmt.Sprintf("scenario.frames[%d]: node %d is not an endpoint of link %d", i, f.From, f.Link))
		}
		if !inRange(f.Dst, len(s.Nodes)) {
			errs = append(errs, fmt.Sprintf("scenario.frames[%d] addressed to missing node %d", i, f.Dst))
		}
	}

	for i, p := range s.Packets {
		if _, err := ParsePacketKind(p); err != nil {
			errs = append(errs, fmt.Sprintf("scenario.packets[%d]: %v", i, err))
		}
	}
	return errs
}

func inRange(i, n int) bool { return i >= 0 && i < n }
