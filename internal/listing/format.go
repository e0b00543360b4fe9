package listing

import (
	"fmt"
	"strconv"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"dais/internal/config"
)

// Formatter renders entries through the configured templates and theme.
// It is a value type built once per run from the immutable config.
type Formatter struct {
	theme   config.Theme
	slots   map[string]string
	formats config.Formats
}

// NewFormatter builds a Formatter for the given theme and templates.
func NewFormatter(theme config.Theme, formats config.Formats) Formatter {
	return Formatter{theme: theme, slots: theme.Slots(), formats: formats}
}

// FormatSize renders a byte count with binary magnitudes and one decimal
// past KB, colored VALUE for the number and UNIT for the suffix.
func (f Formatter) FormatSize(bytes int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	v, u := f.theme.Value, f.theme.Unit
	switch {
	case bytes < kib:
		return fmt.Sprintf("%s%d%sB", v, bytes, u)
	case bytes < mib:
		return fmt.Sprintf("%s%.1f%sKB", v, float64(bytes)/kib, u)
	case bytes < gib:
		return fmt.Sprintf("%s%.1f%sMB", v, float64(bytes)/mib, u)
	default:
		return fmt.Sprintf("%s%.1f%sGB", v, float64(bytes)/gib, u)
	}
}

// FormatRows renders a row count with k/M magnitudes; estimates carry a
// tilde in the ESTIMATE color.
func (f Formatter) FormatRows(rows int, estimated bool) string {
	tilde := ""
	if estimated {
		tilde = f.theme.Estimate + "~"
	}
	v := f.theme.Value
	switch {
	case rows > 1_000_000:
		return fmt.Sprintf("%s%s%.1f%sM", tilde, v, float64(rows)/1_000_000, f.theme.Unit)
	case rows > 1_000:
		return fmt.Sprintf("%s%s%.1f%sk", tilde, v, float64(rows)/1_000, f.theme.Unit)
	default:
		return fmt.Sprintf("%s%s%d", tilde, v, rows)
	}
}

// template picks the render template for an item.
func (f Formatter) template(st Item) string {
	switch {
	case !st.Stats.Valid:
		return f.formats.Error
	case st.Stats.IsDir:
		return f.formats.Directory
	case st.Stats.IsData:
		return f.formats.DataFile
	case st.Stats.IsText:
		return f.formats.TextFile
	default:
		return f.formats.BinaryFile
	}
}

// Render substitutes an item into its template. Color placeholders are
// replaced before data placeholders so user data can never be mistaken
// for a slot name.
func (f Formatter) Render(it Item) Entry {
	s := f.template(it)
	for slot, code := range f.slots {
		s = strings.ReplaceAll(s, slot, code)
	}
	repl := strings.NewReplacer(
		"{name}", it.Name,
		"{size}", f.FormatSize(it.Stats.SizeBytes),
		"{rows}", f.FormatRows(it.Stats.Rows, it.Stats.Estimated),
		"{cols}", strconv.Itoa(it.Stats.MaxCols),
		"{count}", strconv.Itoa(it.Stats.ItemCount),
	)
	s = repl.Replace(s) + f.theme.Reset
	return Entry{
		Name:     it.Name,
		Stats:    it.Stats,
		Rendered: s,
		Width:    xansi.StringWidth(s),
	}
}
