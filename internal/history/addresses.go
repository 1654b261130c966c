package history

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// AddressPlan assigns each node an IPv4 address from a CIDR range and a
// locally administered MAC derived from its id. Addresses are handed out in
// the order nodes are first seen and stay fixed for the plan's lifetime.
type AddressPlan struct {
	cidr   *net.IPNet
	nextIP net.IP
	byNode map[uint32]net.IP
	mu     sync.Mutex
}

// NewAddressPlan creates a plan from a CIDR string (e.g., "10.0.0.0/24").
func NewAddressPlan(cidr string) (*AddressPlan, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	if ipnet.IP.To4() == nil {
		return nil, fmt.Errorf("invalid CIDR %q: only IPv4 ranges are supported", cidr)
	}

	// Start from first usable address (network address + 1)
	firstIP := make(net.IP, len(ipnet.IP))
	copy(firstIP, ipnet.IP)
	incrementIP(firstIP)

	return &AddressPlan{
		cidr:   ipnet,
		nextIP: firstIP,
		byNode: make(map[uint32]net.IP),
	}, nil
}

// IP returns the address of a node, assigning the next free one on first use.
func (p *AddressPlan) IP(node uint32) (net.IP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ip, ok := p.byNode[node]; ok {
		return ip, nil
	}

	ones, bits := p.cidr.Mask.Size()
	usable := 1<<(bits-ones) - 2
	if len(p.byNode) >= usable || !p.cidr.Contains(p.nextIP) {
		return nil, fmt.Errorf("address plan %s exhausted (all %d addresses assigned)", p.cidr, len(p.byNode))
	}

	ip := make(net.IP, len(p.nextIP))
	copy(ip, p.nextIP)
	incrementIP(p.nextIP)
	p.byNode[node] = ip
	return ip, nil
}

// MAC returns the hardware address of a node.
func (p *AddressPlan) MAC(node uint32) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	mac[0] = 0x02
	binary.BigEndian.PutUint32(mac[2:], node)
	return mac
}

// AssignedCount returns the number of nodes with an address.
func (p *AddressPlan) AssignedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byNode)
}

func incrementIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] > 0 {
			break
		}
	}
}
