package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvis/pkg/types"
)

func encodeNodes(t *testing.T, base int, nodes ...types.Node) []byte {
	t.Helper()
	buf := make([]byte, base+len(nodes)*NodeV1.Stride)
	for i, n := range nodes {
		require.NoError(t, Encode(buf, base+i*NodeV1.Stride, NodeV1, NodeValues(n)))
	}
	return buf
}

func TestReader_LittleEndian(t *testing.T) {
	buf := []byte{0x78, 0x56, 0x34, 0x12, 0xFF}

	v32, err := Uint32At(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v32)

	v16, err := Uint16At(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3456), v16)

	v8, err := Uint8At(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), v8)
}

func TestReader_OutOfRange(t *testing.T) {
	buf := make([]byte, 7)
	_, err := Uint64At(buf, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Uint8At(buf, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Float32At(buf, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecode_YieldsEncodedIDs(t *testing.T) {
	nodes := []types.Node{
		{ID: 7, X: 1, Y: 2},
		{ID: 3, X: 3, Y: 4},
		{ID: 42, Kind: types.NodeSwitch, X: 5, Y: 6},
	}
	buf := encodeNodes(t, 16, nodes...)

	seq, err := Decode(buf, 16, uint32(len(nodes)), NodeV1)
	require.NoError(t, err)
	require.Equal(t, 3, seq.Len())

	var ids []uint32
	for i, rec := range seq.All() {
		n, err := NodeFrom(rec)
		require.NoError(t, err)
		assert.Equal(t, nodes[i], n)
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []uint32{7, 3, 42}, ids)
}

func TestDecode_Restartable(t *testing.T) {
	buf := encodeNodes(t, 0, types.Node{ID: 1}, types.Node{ID: 2})
	seq, err := Decode(buf, 0, 2, NodeV1)
	require.NoError(t, err)

	first := 0
	for range seq.All() {
		first++
	}

	// Mutating the buffer between iterations is visible: nothing is cached.
	require.NoError(t, Encode(buf, 0, NodeV1, NodeValues(types.Node{ID: 9})))

	var ids []uint32
	for _, rec := range seq.All() {
		n, err := NodeFrom(rec)
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	assert.Equal(t, 2, first)
	assert.Equal(t, []uint32{9, 2}, ids)
}

func TestDecode_EarlyBreak(t *testing.T) {
	buf := encodeNodes(t, 0, types.Node{ID: 1}, types.Node{ID: 2}, types.Node{ID: 3})
	seq, err := Decode(buf, 0, 3, NodeV1)
	require.NoError(t, err)

	seen := 0
	for range seq.All() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestDecode_ShortBufferFailsFast(t *testing.T) {
	buf := encodeNodes(t, 0, types.Node{ID: 1}, types.Node{ID: 2})

	_, err := Decode(buf, 0, 3, NodeV1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Decode(buf, 8, 2, NodeV1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecode_HugeCountDoesNotOverflow(t *testing.T) {
	_, err := Decode(make([]byte, 64), 0xFFFFFFF0, 0xFFFFFFFF, FrameV1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecode_ZeroCount(t *testing.T) {
	seq, err := Decode(nil, 0, 0, LinkV1)
	require.NoError(t, err)
	assert.Equal(t, 0, seq.Len())
	for range seq.All() {
		t.Fatal("empty sequence yielded a record")
	}
}

func TestRoundTrip_FrameBitExact(t *testing.T) {
	want := types.Frame{
		ID:       100,
		LinkID:   10,
		FromNode: 1,
		Progress: math.Nextafter(0.5, 1),
		Speed:    0.05,
		Src:      0xDEADBEEF,
		Dst:      2,
	}
	buf := make([]byte, FrameV1.Stride)
	require.NoError(t, Encode(buf, 0, FrameV1, FrameValues(want)))

	seq, err := Decode(buf, 0, 1, FrameV1)
	require.NoError(t, err)
	got, err := FrameFrom(seq.At(0))
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, math.Float64bits(want.Progress), math.Float64bits(got.Progress))
}

func TestRoundTrip_PacketAcrossVersions(t *testing.T) {
	want := types.Packet{ID: 5, Kind: types.PacketUDP, State: types.StateSynReceived, X: -12.25, Y: 300}

	for _, s := range []*Schema{PacketV1, PacketV2} {
		buf := make([]byte, s.Stride)
		require.NoError(t, Encode(buf, 0, s, PacketValues(want)))

		seq, err := Decode(buf, 0, 1, s)
		require.NoError(t, err)
		got, err := PacketFrom(seq.At(0))
		require.NoError(t, err)
		assert.Equal(t, want, got, s.String())
	}
}

func TestPacketV1_MatchesLegacyOffsets(t *testing.T) {
	buf := make([]byte, PacketV1.Stride)
	require.NoError(t, Encode(buf, 0, PacketV1, PacketValues(types.Packet{
		ID: 1, State: types.StateEstablished, X: 10, Y: 20,
	})))

	state, err := Uint8At(buf, 5)
	require.NoError(t, err)
	x, err := Float64At(buf, 8)
	require.NoError(t, err)
	y, err := Float64At(buf, 16)
	require.NoError(t, err)

	assert.Equal(t, uint8(4), state)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)
}

func TestRecord_FieldErrors(t *testing.T) {
	buf := encodeNodes(t, 0, types.Node{ID: 1})
	seq, err := Decode(buf, 0, 1, NodeV1)
	require.NoError(t, err)
	rec := seq.At(0)

	_, err = rec.Uint("missing")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = rec.Uint("x")
	assert.ErrorIs(t, err, ErrFieldType)

	_, err = rec.Float("id")
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestRecord_BytesIsACopy(t *testing.T) {
	buf := encodeNodes(t, 0, types.Node{ID: 1})
	seq, err := Decode(buf, 0, 1, NodeV1)
	require.NoError(t, err)

	raw := seq.At(0).Bytes()
	require.Len(t, raw, NodeV1.Stride)
	buf[0] = 0xAA
	assert.Equal(t, byte(1), raw[0])
}

func TestEncode_RejectsUnknownField(t *testing.T) {
	buf := make([]byte, LinkV1.Stride)
	err := Encode(buf, 0, LinkV1, Values{"id": uint32(1), "colour": uint8(2)})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestEncode_RejectsWrongType(t *testing.T) {
	buf := make([]byte, LinkV1.Stride)
	err := Encode(buf, 0, LinkV1, Values{"length": uint32(1)})
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestEncode_OutOfRange(t *testing.T) {
	buf := make([]byte, LinkV1.Stride)
	err := Encode(buf, 1, LinkV1, LinkValues(types.Link{ID: 1}))
	assert.ErrorIs(t, err, ErrOutOfRange)
}
