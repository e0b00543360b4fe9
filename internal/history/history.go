// Package history keeps the bounded, file-backed log of submitted
// commands. Navigation here is bookkeeping only; the engine owns the
// visual rewrite and never lets navigation touch the live shell buffer.
package history

import (
	"os"
	"path/filepath"
	"strings"
)

// Direction selects where the cursor moves.
type Direction int

const (
	// Older moves toward the first saved command.
	Older Direction = iota
	// Newer moves back toward the unsaved stash line.
	Newer
)

// History is a bounded deque mirrored to a newline-delimited file.
type History struct {
	path     string
	capacity int
	entries  []string

	// cursor indexes entries; len(entries) is the stash position.
	cursor  int
	stash   string
	stashed bool
}

// Load reads the history file into memory, dropping oldest entries past
// capacity. A missing file is an empty history.
func Load(path string, capacity int) (*History, error) {
	if capacity < 1 {
		capacity = 1
	}
	h := &History{path: path, capacity: capacity}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h.cursor = 0
			return h, nil
		}
		return h, err
	}
	for _, line := range strings.Split(string(b), "\n") {
		if line == "" {
			continue
		}
		h.entries = append(h.entries, line)
	}
	if n := len(h.entries); n > capacity {
		h.entries = append([]string(nil), h.entries[n-capacity:]...)
	}
	h.cursor = len(h.entries)
	return h, nil
}

// Len reports the number of stored commands.
func (h *History) Len() int { return len(h.entries) }

// Last returns up to n most recent commands, oldest first.
func (h *History) Last(n int) []string {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	return append([]string(nil), h.entries[len(h.entries)-n:]...)
}

// Save appends cmd, skipping empty lines and consecutive duplicates, and
// mirrors the append to the file. The cursor snaps back to the stash
// position either way.
func (h *History) Save(cmd string) error {
	defer h.ResetCursor()
	cmd = strings.TrimRight(cmd, "\r\n")
	if strings.TrimSpace(cmd) == "" {
		return nil
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return nil
	}
	h.entries = append(h.entries, cmd)
	trimmed := false
	if len(h.entries) > h.capacity {
		h.entries = append([]string(nil), h.entries[len(h.entries)-h.capacity:]...)
		trimmed = true
	}
	if h.path == "" {
		return nil
	}
	if trimmed {
		return h.rewrite()
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(cmd + "\n")
	return err
}

// Clear drops all entries, in memory and on disk.
func (h *History) Clear() error {
	h.entries = nil
	h.ResetCursor()
	if h.path == "" {
		return nil
	}
	return h.rewrite()
}

func (h *History) rewrite() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, e := range h.entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	return os.WriteFile(h.path, []byte(b.String()), 0o644)
}

// Navigating reports whether the cursor has left the stash position.
func (h *History) Navigating() bool { return h.cursor != len(h.entries) }

// ResetCursor abandons any navigation and forgets the stash.
func (h *History) ResetCursor() {
	h.cursor = len(h.entries)
	h.stash = ""
	h.stashed = false
}

// Navigate moves the cursor and returns the line that should replace the
// visible input. The current in-progress line is stashed the first time
// the user moves away from it; moving Newer past the stash returns it.
// At either boundary Navigate reports ok=false and changes nothing.
func (h *History) Navigate(dir Direction, current string) (line string, ok bool) {
	switch dir {
	case Older:
		if h.cursor == 0 {
			return "", false
		}
		if h.cursor == len(h.entries) && !h.stashed {
			h.stash = current
			h.stashed = true
		}
		h.cursor--
		return h.entries[h.cursor], true
	case Newer:
		if h.cursor >= len(h.entries) {
			return "", false
		}
		h.cursor++
		if h.cursor == len(h.entries) {
			line = h.stash
			h.stash = ""
			h.stashed = false
			return line, true
		}
		return h.entries[h.cursor], true
	}
	return "", false
}
