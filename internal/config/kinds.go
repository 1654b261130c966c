package config

import (
	"fmt"
	"strings"

	"netvis/pkg/types"
)

// ParseNodeKind parses a scenario node kind. An empty kind is a host.
func ParseNodeKind(s string) (types.NodeKind, error) {
	switch strings.ToLower(s) {
	case "", "host":
		return types.NodeHost, nil
	case "switch":
		return types.NodeSwitch, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q (valid: host, switch)", s)
	}
}

// ParsePacketKind parses a scenario packet transport.
func ParsePacketKind(s string) (types.PacketKind, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return types.PacketTCP, nil
	case "udp":
		return types.PacketUDP, nil
	default:
		return 0, fmt.Errorf("unknown packet kind %q (valid: tcp, udp)", s)
	}
}
