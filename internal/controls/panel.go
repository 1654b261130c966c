package controls

import (
	"fmt"

	"netvis/internal/hexdump"
	"netvis/internal/history"
	"netvis/pkg/types"
)

// Panel returns the side panel text: the memory inspector for sel, then the
// newest history entries, newest first, at most maxEntries of them.
func Panel(sel *types.Selection, entries []history.Entry, maxEntries int) []string {
	d := hexdump.Format(sel)

	lines := []string{"Memory Inspector"}
	if !d.Empty {
		lines = append(lines, fmt.Sprintf("%s (%d bytes)", d.Title, len(sel.Bytes)))
	}
	lines = append(lines, d.Lines()...)
	lines = append(lines, "", fmt.Sprintf("Packet History (%d)", len(entries)))

	for i := len(entries) - 1; i >= 0 && len(entries)-i <= maxEntries; i-- {
		lines = append(lines, EntryLine(entries[i]))
	}
	return lines
}

// EntryLine formats one history entry as a single line.
func EntryLine(e history.Entry) string {
	return fmt.Sprintf("#%d t=%d %s -> %s %s", e.ID, e.Tick, e.Src, e.Dst, e.Summary)
}
