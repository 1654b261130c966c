package network

import (
	"context"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvis/internal/catalog"
	"netvis/internal/history"
	"netvis/pkg/types"
)

func TestMirror_ReceiverDecodesFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	recv.Start(ctx)

	mirror, err := NewMirror(recv.LocalAddr().String())
	require.NoError(t, err)
	defer mirror.Close()

	plan, err := history.NewAddressPlan("10.0.0.0/24")
	require.NoError(t, err)
	log := history.NewLog(8, plan)
	log.AddSink(mirror)

	cat := &catalog.Catalog{Tick: 1}
	cat.Frames = append(cat.Frames, catalog.FrameEntry{Frame: types.Frame{ID: 7, Src: 0, Dst: 1}})
	require.Equal(t, 1, log.Observe(cat))
	assert.Equal(t, 1, mirror.Sent())

	select {
	case f := <-recv.Frames():
		assert.Equal(t, log.Entries()[0].Raw, f.Data)
		eth, ok := f.Packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
		require.True(t, ok)
		assert.Equal(t, "02:00:00:00:00:01", eth.DstMAC.String())
		assert.NotNil(t, f.Packet.Layer(layers.LayerTypeUDP))
	case <-time.After(2 * time.Second):
		t.Fatal("mirrored frame not received")
	}
}

func TestReceiver_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	recv, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	recv.Start(ctx)
	cancel()

	select {
	case _, ok := <-recv.Frames():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("frame channel not closed")
	}
}

func TestNewMirror_BadTarget(t *testing.T) {
	_, err := NewMirror("not-an-address")
	assert.Error(t, err)
}
