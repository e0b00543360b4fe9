package engine

import (
	_ "embed"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"dais/internal/config"
)

//go:embed help.md
var helpText string

const historyDefaultShow = 20

// runColon handles the internal command set. The line starts with ':'
// and never reaches the shell.
func (e *Engine) runColon(line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ":q", ":exit":
		e.quit()
	case ":ls":
		e.cmdSort(args)
	case ":history":
		e.cmdHistory(args)
	case ":help":
		e.cmdHelp()
	case ":db":
		e.cmdDB(strings.TrimSpace(strings.TrimPrefix(line, ":db")))
	default:
		e.warn("unknown command " + cmd + " (try :help)")
	}
}

// quit hangs up the child shell and ends the session.
func (e *Engine) quit() {
	if e.sess != nil {
		e.sess.SignalChild(syscall.SIGHUP)
	}
	e.running.Store(false)
}

// cmdSort shows, resets or updates the listing sort preference. Tokens
// are position-independent: a sort key, asc/desc, true/false for
// dirs-first, h/v for flow.
func (e *Engine) cmdSort(args []string) {
	if len(args) == 0 {
		e.showSort()
		return
	}
	if len(args) == 1 && args[0] == "d" {
		e.sortPrefs = config.Default().Sort
		e.notice("listing sort reset to defaults")
		e.showSort()
		return
	}
	next := e.sortPrefs
	for _, a := range args {
		switch a {
		case "name", "size", "type", "rows", "none":
			next.By = a
		case "asc", "desc":
			next.Order = a
		case "true", "false":
			next.DirsFirst = a == "true"
		case "h", "v":
			next.Flow = a
		default:
			e.warn("unknown :ls option " + strconv.Quote(a) + " (keys: name size type rows none; asc/desc; true/false; h/v)")
			return
		}
	}
	e.sortPrefs = next
	e.showSort()
}

func (e *Engine) showSort() {
	t := e.cfg.Theme
	s := e.sortPrefs
	e.displayString("\r\n" + t.Notice + "sort" + t.Reset + ": " + s.By +
		" " + s.Order +
		"  " + t.Notice + "dirs_first" + t.Reset + ": " + strconv.FormatBool(s.DirsFirst) +
		"  " + t.Notice + "flow" + t.Reset + ": " + s.Flow + "\r\n")
}

// cmdHistory shows the last entries or clears the log.
func (e *Engine) cmdHistory(args []string) {
	if len(args) > 0 && args[0] == "clear" {
		if err := e.hist.Clear(); err != nil {
			e.warn("clear history: " + err.Error())
			return
		}
		e.notice("history cleared")
		return
	}
	n := historyDefaultShow
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			e.warn("usage: :history [n|clear]")
			return
		}
		n = v
	}
	entries := e.hist.Last(n)
	if len(entries) == 0 {
		e.notice("history is empty")
		return
	}
	t := e.cfg.Theme
	var out strings.Builder
	out.WriteString("\r\n")
	base := e.hist.Len() - len(entries)
	for i, entry := range entries {
		out.WriteString(t.Structure + strconv.Itoa(base+i+1) + t.Reset + "  " + entry + "\r\n")
	}
	e.displayString(out.String())
}

// cmdHelp renders the built-in help. Markdown when the renderer works,
// raw text otherwise.
func (e *Engine) cmdHelp() {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(78),
	)
	if err == nil {
		if out, rerr := r.Render(helpText); rerr == nil {
			e.displayString("\r\n" + strings.ReplaceAll(out, "\n", "\r\n"))
			return
		}
	}
	e.displayString("\r\n" + strings.ReplaceAll(helpText, "\n", "\r\n"))
}

// cmdDB forwards a query to the scripting hook boundary.
func (e *Engine) cmdDB(query string) {
	if query == "" {
		e.warn("usage: :db <query>")
		return
	}
	if e.hooks == nil {
		e.warn("no database plugin loaded")
		return
	}
	result, ok := e.hooks.DBQuery(query)
	if !ok {
		e.warn("no plugin answered the query")
		return
	}
	e.displayString("\r\n" + strings.ReplaceAll(strings.TrimRight(result, "\n"), "\n", "\r\n") + "\r\n")
}
