package network

import (
	"fmt"
	"net"
	"sync"

	"netvis/internal/history"
)

// Mirror copies each history entry's synthesized Ethernet frame to a remote
// UDP collector, one frame per datagram.
type Mirror struct {
	conn   *net.UDPConn
	target *net.UDPAddr
	sent   int
	mu     sync.Mutex
}

// NewMirror creates a mirror sending to target (host:port) from an ephemeral local port.
func NewMirror(target string) (*Mirror, error) {
	remoteAddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mirror target %s: %w", target, err)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror socket: %w", err)
	}

	return &Mirror{
		conn:   conn,
		target: remoteAddr,
	}, nil
}

// WriteEntry transmits the entry's raw frame. It implements history.Sink.
func (m *Mirror) WriteEntry(e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.conn.WriteToUDP(e.Raw, m.target); err != nil {
		return fmt.Errorf("failed to mirror frame %d to %s: %w", e.ID, m.target, err)
	}
	m.sent++
	return nil
}

// Sent returns the number of frames mirrored.
func (m *Mirror) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// Close closes the UDP connection.
func (m *Mirror) Close() error {
	return m.conn.Close()
}

// LocalAddr returns the local address the mirror sends from.
func (m *Mirror) LocalAddr() net.Addr {
	return m.conn.LocalAddr()
}
