// Package listing turns directory contents (read natively, captured from
// a shell, or shipped back by the remote agent) into a themed,
// width-aware grid.
package listing

import (
	"path/filepath"
	"strings"

	"dais/internal/analyze"
)

// Item is one listing input before analysis or rendering.
type Item struct {
	Name  string
	Stats analyze.Stats
}

// Entry is a fully analyzed, rendered listing item.
type Entry struct {
	Name     string
	Stats    analyze.Stats
	Rendered string
	// Width is the visible (escape-stripped) width of Rendered.
	Width int
}

// ext returns the lowercased extension used for type sorting.
func (e Entry) ext() string {
	if e.Stats.IsDir {
		return ""
	}
	return strings.ToLower(filepath.Ext(e.Name))
}
