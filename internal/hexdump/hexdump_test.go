package hexdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvis/pkg/types"
)

func TestFormat_NilSelection(t *testing.T) {
	d := Format(nil)
	assert.True(t, d.Empty)
	assert.Nil(t, d.Rows)
	assert.Equal(t, []string{Placeholder}, d.Lines())
	assert.Contains(t, d.Render(), Placeholder)
}

func TestFormat_TenBytes(t *testing.T) {
	d := FormatBytes([]byte{0xFF, 0, 0, 0, 0xAA, 0, 0, 0, 0x01, 0x02})

	require.Len(t, d.Rows, 2)
	assert.Equal(t, "00", d.Rows[0].Address)
	assert.Equal(t, []string{"FF", "00", "00", "00", "AA", "00", "00", "00"}, d.Rows[0].Cells)
	assert.Equal(t, "08", d.Rows[1].Address)
	assert.Equal(t, []string{"01", "02", Blank, Blank, Blank, Blank, Blank, Blank}, d.Rows[1].Cells)

	lines := d.Lines()
	assert.Equal(t, "00: FF 00 00 00 AA 00 00 00", lines[0])
	assert.Equal(t, "08: 01 02"+strings.Repeat(" "+Blank, 6), lines[1])
}

func TestFormat_RowCount(t *testing.T) {
	for l := 0; l <= 40; l++ {
		b := make([]byte, l)
		for i := range b {
			b[i] = byte(i * 7)
		}
		d := FormatBytes(b)
		require.Len(t, d.Rows, (l+7)/8, "length %d", l)

		n := 0
		for ri, r := range d.Rows {
			require.Len(t, r.Cells, RowWidth)
			for ci, c := range r.Cells {
				if ri*RowWidth+ci < l {
					assert.Len(t, c, 2)
					assert.NotEqual(t, Blank, c)
					n++
				} else {
					assert.Equal(t, Blank, c)
				}
			}
		}
		assert.Equal(t, l, n)
	}
}

func TestFormat_UppercaseAddress(t *testing.T) {
	d := FormatBytes(make([]byte, 200))
	assert.Equal(t, "A0", d.Rows[20].Address)
	assert.Equal(t, "C0", d.Rows[24].Address)
}

func TestFormat_SelectionTitle(t *testing.T) {
	sel := &types.Selection{
		Ref:   types.EntityRef{Kind: types.KindNode, ID: 4},
		Bytes: []byte{0xde, 0xad},
	}
	d := Format(sel)
	assert.Equal(t, "node/4", d.Title)
	assert.Equal(t, "DE", d.Rows[0].Cells[0])
	assert.Contains(t, d.Render(), "node/4")
}
