package controls

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvis/internal/hexdump"
	"netvis/internal/history"
	"netvis/pkg/types"
)

type fakeTarget struct {
	calls   []string
	nodes   []types.NodeKind
	packets []types.PacketKind
	err     error
}

func (f *fakeTarget) AddNode(x, y float64, kind types.NodeKind) (uint32, error) {
	f.calls = append(f.calls, "node")
	f.nodes = append(f.nodes, kind)
	return uint32(len(f.nodes) - 1), f.err
}

func (f *fakeTarget) LinkLastTwo() (uint32, error) {
	f.calls = append(f.calls, "link")
	return 0, f.err
}

func (f *fakeTarget) ResendFrames() (int, error) {
	f.calls = append(f.calls, "frames")
	return 1, f.err
}

func (f *fakeTarget) AddPacket(kind types.PacketKind) (uint32, error) {
	f.calls = append(f.calls, "packet")
	f.packets = append(f.packets, kind)
	return 0, f.err
}

func (f *fakeTarget) ClearSelection() { f.calls = append(f.calls, "clear") }

func TestDispatch_AllCommands(t *testing.T) {
	ft := &fakeTarget{}
	for _, b := range Bindings {
		require.NoError(t, Dispatch(ft, b.Command, 10, 20), b.Command.String())
	}
	assert.Equal(t, []string{"node", "node", "link", "frames", "packet", "packet", "clear"}, ft.calls)
	assert.Equal(t, []types.NodeKind{types.NodeHost, types.NodeSwitch}, ft.nodes)
	assert.Equal(t, []types.PacketKind{types.PacketTCP, types.PacketUDP}, ft.packets)
}

func TestDispatch_None(t *testing.T) {
	ft := &fakeTarget{}
	require.NoError(t, Dispatch(ft, None, 0, 0))
	assert.Empty(t, ft.calls)
}

func TestDispatch_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	ft := &fakeTarget{err: boom}

	err := Dispatch(ft, LinkNodes, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "link: boom")

	assert.Error(t, Dispatch(ft, Command(99), 0, 0))
}

func TestHelp(t *testing.T) {
	assert.Equal(t, "H host  S switch  L link  F frames  T tcp  U udp  Esc clear", Help())
}

func TestPanel_NoSelection(t *testing.T) {
	lines := Panel(nil, nil, 5)
	assert.Equal(t, []string{
		"Memory Inspector",
		hexdump.Placeholder,
		"",
		"Packet History (0)",
	}, lines)
}

func TestPanel_SelectionAndHistory(t *testing.T) {
	sel := &types.Selection{
		Ref:   types.EntityRef{Kind: types.KindFrame, ID: 3},
		Bytes: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}
	entries := []history.Entry{
		{ID: 0, Tick: 1, Src: "Node 0", Dst: "Node 2", Summary: "Ethernet Frame (Size: 60)"},
		{ID: 1, Tick: 21, Src: "Node 0", Dst: "Node 2", Summary: "Ethernet Frame (Size: 60)"},
		{ID: 2, Tick: 40, Src: "Node 1", Dst: "Node 0", Summary: "Ethernet Frame (Size: 60)"},
	}

	lines := Panel(sel, entries, 2)
	require.Len(t, lines, 8)
	assert.Equal(t, "frame/3 (10 bytes)", lines[1])
	assert.Equal(t, "00: 01 02 03 04 05 06 07 08", lines[2])
	assert.Equal(t, "Packet History (3)", lines[5])
	assert.Equal(t, "#2 t=40 Node 1 -> Node 0 Ethernet Frame (Size: 60)", lines[6])
	assert.Equal(t, "#1 t=21 Node 0 -> Node 2 Ethernet Frame (Size: 60)", lines[7])
}

func TestStatus_LoopErrorClearsOnRecovery(t *testing.T) {
	var s Status
	assert.Empty(t, s.String())

	s.Loop(errors.New("render pass failed"))
	assert.Equal(t, "render pass failed", s.String())

	s.Loop(nil)
	assert.Empty(t, s.String())
}

func TestStatus_CommandErrorWins(t *testing.T) {
	var s Status
	s.Command(errors.New("link: too few nodes"))
	s.Loop(errors.New("render pass failed"))
	assert.Equal(t, "link: too few nodes", s.String())

	s.Loop(nil)
	assert.Equal(t, "link: too few nodes", s.String())

	s.Command(nil)
	s.Loop(errors.New("render pass failed"))
	assert.Equal(t, "render pass failed", s.String())
}
