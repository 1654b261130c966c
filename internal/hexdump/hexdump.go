// Package hexdump formats a selected entity's raw record as address-labeled
// hex rows.
package hexdump

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"netvis/pkg/types"
)

const (
	// RowWidth is the number of bytes per row.
	RowWidth = 8
	// Blank fills the unused columns of a short final row.
	Blank = "  "
	// Placeholder is the single row shown when nothing is selected.
	Placeholder = "Select a packet to inspect memory"
)

// Row is one line of a dump. Cells always has RowWidth entries.
type Row struct {
	Address string
	Cells   []string
}

// Dump is the formatted form of a selection.
type Dump struct {
	Title string
	Rows  []Row
	// Empty is set when there was no selection; Rows is then nil.
	Empty bool
}

// Format partitions the selection's bytes into rows of RowWidth. A nil
// selection yields an Empty dump.
func Format(sel *types.Selection) Dump {
	if sel == nil {
		return Dump{Empty: true}
	}
	d := FormatBytes(sel.Bytes)
	d.Title = sel.Ref.String()
	return d
}

// FormatBytes formats b without a title.
func FormatBytes(b []byte) Dump {
	rows := make([]Row, 0, (len(b)+RowWidth-1)/RowWidth)
	for off := 0; off < len(b); off += RowWidth {
		row := Row{
			Address: fmt.Sprintf("%02X", off),
			Cells:   make([]string, RowWidth),
		}
		for i := range row.Cells {
			if off+i < len(b) {
				row.Cells[i] = fmt.Sprintf("%02X", b[off+i])
			} else {
				row.Cells[i] = Blank
			}
		}
		rows = append(rows, row)
	}
	return Dump{Rows: rows}
}

// Lines returns the dump as plain text lines, one per row.
func (d Dump) Lines() []string {
	if d.Empty {
		return []string{Placeholder}
	}
	lines := make([]string, 0, len(d.Rows))
	for _, r := range d.Rows {
		lines = append(lines, r.Address+": "+strings.Join(r.Cells, " "))
	}
	return lines
}

func (d Dump) String() string {
	return strings.Join(d.Lines(), "\n")
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	addressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cellStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// Render draws the dump as a bordered terminal panel.
func (d Dump) Render() string {
	var b strings.Builder
	if d.Empty {
		b.WriteString(helpStyle.Render(Placeholder))
		return panelStyle.Render(b.String())
	}
	if d.Title != "" {
		b.WriteString(titleStyle.Render(d.Title))
		b.WriteString("\n")
	}
	for i, r := range d.Rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(addressStyle.Render(r.Address + ":"))
		b.WriteString(" ")
		b.WriteString(cellStyle.Render(strings.Join(r.Cells, " ")))
	}
	return panelStyle.Render(b.String())
}
