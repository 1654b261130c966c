package network

import (
	"context"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"
)

// ReceivedFrame is one mirrored frame read from the network.
type ReceivedFrame struct {
	Packet gopacket.Packet
	Data   []byte
	From   *net.UDPAddr
}

// Receiver listens for frames sent by a Mirror.
type Receiver struct {
	conn      *net.UDPConn
	frameChan chan ReceivedFrame
}

// NewReceiver creates a receiver reading from conn.
func NewReceiver(conn *net.UDPConn) *Receiver {
	return &Receiver{
		conn:      conn,
		frameChan: make(chan ReceivedFrame, 1000),
	}
}

// Listen binds addr (host:port) and returns a receiver on it.
func Listen(addr string) (*Receiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return NewReceiver(conn), nil
}

// Start begins listening for incoming frames in a goroutine. The connection
// is closed when ctx is done.
func (r *Receiver) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()
	go r.listen(ctx)
}

// Frames returns the channel of received frames. It is closed when the receiver stops.
func (r *Receiver) Frames() <-chan ReceivedFrame {
	return r.frameChan
}

// LocalAddr returns the address the receiver is bound to.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

func (r *Receiver) listen(ctx context.Context) {
	defer close(r.frameChan)

	buf := make([]byte, 65535)
	for {
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return // Context cancelled, normal shutdown
			}
			log.WithError(err).Warn("Error reading from UDP")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
		if errLayer := pkt.ErrorLayer(); errLayer != nil {
			log.WithError(errLayer.Error()).WithField("from", addr).Warn("Failed to decode mirrored frame")
			continue
		}

		select {
		case r.frameChan <- ReceivedFrame{
			Packet: pkt,
			Data:   data,
			From:   addr,
		}:
		case <-ctx.Done():
			return
		}
	}
}
