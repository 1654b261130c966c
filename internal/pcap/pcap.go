// Package pcap writes frame history to classic pcap captures and reads them back.
package pcap

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"

	"netvis/internal/history"
)

const snapLen = 65535

// Writer appends history entries to a pcap stream. Each entry is stamped
// start + tick*interval so captures line up with simulated time.
type Writer struct {
	w        *pcapgo.Writer
	start    time.Time
	interval time.Duration
	count    int
}

// NewWriter writes the pcap file header to out.
func NewWriter(out io.Writer, start time.Time, interval time.Duration) (*Writer, error) {
	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Writer{w: w, start: start, interval: interval}, nil
}

// WriteEntry writes one entry's synthesized frame.
func (w *Writer) WriteEntry(e history.Entry) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     w.start.Add(time.Duration(e.Tick) * w.interval),
		CaptureLength: len(e.Raw),
		Length:        len(e.Raw),
	}
	if err := w.w.WritePacket(ci, e.Raw); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", e.ID, err)
	}
	w.count++
	return nil
}

// WriteEntries writes entries in order.
func (w *Writer) WriteEntries(entries []history.Entry) error {
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			return err
		}
	}
	log.WithField("frames", len(entries)).Debug("Frame history written to pcap")
	return nil
}

// Count returns the number of frames written.
func (w *Writer) Count() int { return w.count }

// Frame is one captured frame read back from a pcap stream.
type Frame struct {
	Index     int
	Timestamp time.Time
	Data      []byte
	Packet    gopacket.Packet
}

// ReadFrames reads every frame of an Ethernet pcap stream.
func ReadFrames(in io.Reader) ([]Frame, error) {
	r, err := pcapgo.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap stream: %w", err)
	}
	if r.LinkType() != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("unsupported link type %s", r.LinkType())
	}

	var frames []Frame
	for {
		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %d: %w", len(frames), err)
		}
		frames = append(frames, Frame{
			Index:     len(frames),
			Timestamp: ci.Timestamp,
			Data:      data,
			Packet:    gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default),
		})
	}

	log.WithField("frames", len(frames)).Debug("Pcap frames read")
	return frames, nil
}
