package listing

import (
	"strings"
)

// GridOptions controls layout geometry and border coloring.
type GridOptions struct {
	// Width is the detected terminal width in columns.
	Width int
	// Padding is the configured extra space inside each cell.
	Padding int
	// Flow is "h" for row-major tiling or "v" for column-major.
	Flow string
	// Structure and Reset are the border color and reset codes.
	Structure string
	Reset     string
}

const (
	cellOverhead = 4 // "| " + " |"
	cellGap      = 1
	minGridWidth = 10
)

// Grid tiles rendered entries into a bordered grid. No emitted line's
// visible width exceeds o.Width as long as every entry itself fits the
// terminal; when even one bordered cell cannot fit, the border is dropped
// and entries are emitted one per line.
func Grid(entries []Entry, o GridOptions) string {
	if len(entries) == 0 {
		return ""
	}
	width := o.Width
	if width < minGridWidth {
		width = minGridWidth
	}

	maxw := 0
	for _, e := range entries {
		if e.Width > maxw {
			maxw = e.Width
		}
	}

	// Clamp padding so the single widest bordered cell still fits.
	padding := o.Padding
	if padding < 1 {
		padding = 1
	}
	if maxw+padding+cellOverhead > width {
		padding = width - maxw - cellOverhead
	}
	if padding < 0 {
		// Not even a borderless pad fits; degrade to bare lines.
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = e.Rendered
		}
		return strings.Join(lines, "\r\n")
	}

	inner := maxw + padding
	cols := (width + cellGap) / (inner + cellOverhead + cellGap)
	if cols < 1 {
		cols = 1
	}
	if cols > len(entries) {
		cols = len(entries)
	}
	rows := (len(entries) + cols - 1) / cols

	var b strings.Builder
	for row := 0; row < rows; row++ {
		if row > 0 {
			b.WriteString("\r\n")
		}
		for col := 0; col < cols; col++ {
			idx := row*cols + col
			if o.Flow == "v" {
				idx = col*rows + row
			}
			if col > 0 {
				b.WriteString(" ")
			}
			b.WriteString(o.Structure)
			b.WriteString("|")
			b.WriteString(o.Reset)
			b.WriteString(" ")
			if idx < len(entries) {
				e := entries[idx]
				b.WriteString(e.Rendered)
				b.WriteString(strings.Repeat(" ", inner-e.Width))
			} else {
				// Blank filler cell for the incomplete final row/column.
				b.WriteString(strings.Repeat(" ", inner))
			}
			b.WriteString(" ")
			b.WriteString(o.Structure)
			b.WriteString("|")
			b.WriteString(o.Reset)
		}
	}
	return b.String()
}
