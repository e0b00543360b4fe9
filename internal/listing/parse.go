package listing

import (
	"strings"

	"dais/internal/ansi"
)

// ParseCommand inspects a submitted line and reports whether it is a
// listing invocation the pipeline can take over. Flags outside the small
// supported set leave the command to the shell untouched.
func ParseCommand(line string) (paths []string, showHidden bool, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "ls" {
		return nil, false, false
	}
	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "-") && len(f) > 1 {
			for _, r := range f[1:] {
				switch r {
				case 'a', 'A':
					showHidden = true
				case '1', 'h':
					// harmless under our renderer
				default:
					// Unknown flag: let the real ls run.
					return nil, false, false
				}
			}
			continue
		}
		paths = append(paths, f)
	}
	return paths, showHidden, true
}

// CleanCaptured tokenizes raw shell-captured output into candidate entry
// names: one entry per line, escape sequences stripped, shell quoting
// unescaped, the echoed command line and the trailing prompt dropped.
func CleanCaptured(raw, cmdline string) []string {
	var names []string
	first := true
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(ansi.Strip(line), "\r")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// The PTY echoes the request back before the output.
		if first && (line == cmdline || strings.HasSuffix(line, cmdline)) {
			first = false
			continue
		}
		first = false
		for _, name := range splitColumns(line) {
			name = Unquote(name)
			if name == "" || name == "." || name == ".." {
				continue
			}
			names = append(names, name)
		}
	}
	return names
}

// splitColumns handles multi-column ls output by splitting on runs of two
// or more spaces; single spaces are preserved so quoted names survive.
func splitColumns(line string) []string {
	if !strings.Contains(line, "  ") {
		return []string{line}
	}
	parts := strings.Split(line, "  ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Unquote removes one level of shell quoting from a captured name.
func Unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			s = s[1 : len(s)-1]
		}
	}
	s = strings.ReplaceAll(s, `\ `, " ")
	// Trailing type indicators from ls -F style aliases.
	s = strings.TrimSuffix(s, "*")
	return s
}

// FilterHidden drops dotfiles unless the listing asked for them.
func FilterHidden(names []string, showHidden bool) []string {
	if showHidden {
		return names
	}
	out := names[:0:0]
	for _, n := range names {
		if strings.HasPrefix(n, ".") {
			continue
		}
		out = append(out, n)
	}
	return out
}
