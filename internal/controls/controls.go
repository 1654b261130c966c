// Package controls maps window input to session commands and lays out the
// inspector side panel. It has no dependency on the window toolkit.
package controls

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"netvis/pkg/types"
)

// Command is a user action on the running session.
type Command int

const (
	None Command = iota
	AddHost
	AddSwitch
	LinkNodes
	SendFrames
	AddTCP
	AddUDP
	ClearSelection
)

func (c Command) String() string {
	switch c {
	case AddHost:
		return "host"
	case AddSwitch:
		return "switch"
	case LinkNodes:
		return "link"
	case SendFrames:
		return "frames"
	case AddTCP:
		return "tcp"
	case AddUDP:
		return "udp"
	case ClearSelection:
		return "clear"
	default:
		return "none"
	}
}

// Binding pairs a key label with its command.
type Binding struct {
	Key     string
	Command Command
}

// Bindings lists the keyboard shortcuts in help order.
var Bindings = []Binding{
	{"H", AddHost},
	{"S", AddSwitch},
	{"L", LinkNodes},
	{"F", SendFrames},
	{"T", AddTCP},
	{"U", AddUDP},
	{"Esc", ClearSelection},
}

// Help returns the one-line shortcut legend.
func Help() string {
	parts := make([]string, 0, len(Bindings))
	for _, b := range Bindings {
		parts = append(parts, b.Key+" "+b.Command.String())
	}
	return strings.Join(parts, "  ")
}

// Target is the session the commands act on.
type Target interface {
	AddNode(x, y float64, kind types.NodeKind) (uint32, error)
	LinkLastTwo() (uint32, error)
	ResendFrames() (int, error)
	AddPacket(kind types.PacketKind) (uint32, error)
	ClearSelection()
}

// Dispatch runs cmd against t. Node commands place the node at (x, y).
func Dispatch(t Target, cmd Command, x, y float64) error {
	var err error
	switch cmd {
	case AddHost:
		_, err = t.AddNode(x, y, types.NodeHost)
	case AddSwitch:
		_, err = t.AddNode(x, y, types.NodeSwitch)
	case LinkNodes:
		_, err = t.LinkLastTwo()
	case SendFrames:
		_, err = t.ResendFrames()
	case AddTCP:
		_, err = t.AddPacket(types.PacketTCP)
	case AddUDP:
		_, err = t.AddPacket(types.PacketUDP)
	case ClearSelection:
		t.ClearSelection()
	case None:
		return nil
	default:
		return fmt.Errorf("unknown command %d", cmd)
	}
	if err != nil {
		log.WithError(err).WithField("command", cmd.String()).Warn("Command rejected")
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

// Status is the one-line status shown above the canvas. A rejected command
// stays until the next command succeeds. A loop error shows only while the
// loop is failing.
type Status struct {
	command string
	loop    string
}

// Command records the outcome of the last dispatched command.
func (s *Status) Command(err error) {
	s.command = ""
	if err != nil {
		s.command = err.Error()
	}
}

// Loop records the loop's current pass error, nil once it has recovered.
func (s *Status) Loop(err error) {
	s.loop = ""
	if err != nil {
		s.loop = err.Error()
	}
}

func (s Status) String() string {
	if s.command != "" {
		return s.command
	}
	return s.loop
}
