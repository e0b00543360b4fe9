package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"dais/internal/history"
	"dais/internal/listing"
	"dais/internal/remote"
	"dais/internal/session"
)

const (
	ctrlC     = 0x03
	ctrlU     = 0x15
	backspace = 0x7f
	bs        = 0x08
	esc       = 0x1b
	bel       = 0x07
)

// handleInput dispatches one keyboard read chunk byte by byte.
func (e *Engine) handleInput(chunk []byte) {
	for i := 0; i < len(chunk); i++ {
		b := chunk[i]

		if e.oscSkip {
			// Discard until BEL or ESC-backslash, across reads.
			switch {
			case b == bel:
				e.oscSkip = false
				e.oscEsc = false
			case e.oscEsc && b == '\\':
				e.oscSkip = false
				e.oscEsc = false
			default:
				e.oscEsc = b == esc
			}
			continue
		}

		switch {
		case b == esc:
			i += e.handleEscape(chunk[i:]) - 1
		case b == '\t':
			e.handleTab()
		case b == ctrlC:
			e.clearLineState()
			e.writeByte(b)
		case b == ctrlU:
			e.acc = e.acc[:0]
			if e.colonMode || e.navActive {
				e.clearLineState()
			} else {
				e.writeByte(b)
			}
		case b == '\r' || b == '\n':
			e.handleEnter()
		case b == backspace || b == bs:
			e.handleBackspace(b)
		default:
			e.handlePrintable(b)
		}
	}
}

// handleEscape looks ahead up to two bytes to classify the sequence and
// returns how many bytes it consumed. Up/Down arrows at an idle, settled
// prompt become history navigation; OSC is swallowed; everything else is
// forwarded whole.
func (e *Engine) handleEscape(rest []byte) int {
	if len(rest) < 2 {
		e.writeByte(esc)
		return 1
	}
	switch rest[1] {
	case '[':
		if len(rest) >= 3 && (rest[2] == 'A' || rest[2] == 'B') {
			if e.idle() && e.debounced() {
				dir := history.Older
				if rest[2] == 'B' {
					dir = history.Newer
				}
				e.navigate(dir)
				return 3
			}
		}
		// Forward the CSI sequence up to its final byte.
		n := 2
		for n < len(rest) {
			b := rest[n]
			n++
			if b >= 0x40 && b <= 0x7e {
				break
			}
		}
		_ = e.writeShell(rest[:n])
		return n
	case 'O':
		// SS3 (application cursor keys); arrows come this way too.
		if len(rest) >= 3 && (rest[2] == 'A' || rest[2] == 'B') && e.idle() && e.debounced() {
			dir := history.Older
			if rest[2] == 'B' {
				dir = history.Newer
			}
			e.navigate(dir)
			return 3
		}
		n := 3
		if n > len(rest) {
			n = len(rest)
		}
		_ = e.writeShell(rest[:n])
		return n
	case ']':
		// Window-title noise from terminals or paste; never forward.
		e.oscSkip = true
		e.oscEsc = false
		return 2
	default:
		_ = e.writeShell(rest[:2])
		return 2
	}
}

func (e *Engine) handleTab() {
	if e.navActive {
		e.resync()
	}
	if e.colonMode {
		return
	}
	// Completion output is invisible to the accumulator from here on.
	e.unreliable = true
	e.writeByte('\t')
}

func (e *Engine) handleBackspace(b byte) {
	if e.colonMode || e.navActive {
		if w := e.popRune(); w > 0 {
			e.displayString(strings.Repeat("\b", w) + "\x1b[K")
		}
		return
	}
	e.popRune()
	e.writeByte(b)
}

func (e *Engine) handlePrintable(b byte) {
	if b < 0x20 {
		// Remaining control keys (Ctrl-A, Ctrl-R, ...) move the shell's
		// cursor or rewrite its line in ways we cannot mirror.
		e.unreliable = true
		e.writeByte(b)
		return
	}

	if b == ':' && len(e.acc) == 0 && !e.navActive && (e.idle() || e.remote.Active()) {
		e.colonMode = true
		e.acc = append(e.acc, b)
		e.displayString(":")
		return
	}
	if e.colonMode || e.navActive {
		e.acc = append(e.acc, b)
		e.display([]byte{b})
		return
	}
	if e.idle() || e.remote.Active() {
		e.acc = append(e.acc, b)
	}
	e.writeByte(b)
}

// handleEnter is the dispatch point: history, hooks, interception, then
// forwarding.
func (e *Engine) handleEnter() {
	line := strings.TrimSpace(string(e.acc))
	wasIdle := e.idle()
	remoteActive := e.remote.Active()
	reliable := !e.unreliable
	typedLocally := e.colonMode

	if e.navActive {
		e.resync()
		typedLocally = false
	}

	e.state.Store(stateRunning)
	e.lastSubmit.Store(time.Now().UnixNano())
	defer func() {
		e.acc = e.acc[:0]
		e.colonMode = false
		e.unreliable = false
		e.hist.ResetCursor()
	}()

	if !wasIdle && !remoteActive {
		e.writeByte('\r')
		return
	}

	if wasIdle && reliable && line != "" {
		if e.hooks != nil {
			e.hooks.OnCommand(line)
		}
		_ = e.hist.Save(line)
		e.trackCd(line)
	}

	if reliable && line != "" {
		if strings.HasPrefix(line, ":") {
			if !typedLocally {
				e.writeByte(ctrlU)
			}
			e.runColon(line)
			if e.running.Load() {
				e.writeByte('\r')
			}
			return
		}
		if paths, showHidden, ok := listing.ParseCommand(line); ok {
			if remoteActive {
				if e.remoteList(paths, showHidden) {
					e.writeByte('\r')
					return
				}
			} else {
				e.writeByte(ctrlU)
				e.localList(paths, showHidden)
				e.writeByte('\r')
				return
			}
		}
	}

	e.writeByte('\r')
}

// navigate swaps the visible line for a history entry. The shell's own
// buffer is untouched until the next Enter or Tab resyncs it.
func (e *Engine) navigate(dir history.Direction) {
	line, ok := e.hist.Navigate(dir, string(e.acc))
	if !ok {
		return
	}
	e.redrawLine(line)
	e.acc = append(e.acc[:0], line...)
	e.navActive = true
	e.colonMode = false
}

// redrawLine rewrites the visible input region: cursor left over the old
// text, clear to end of line, new text.
func (e *Engine) redrawLine(line string) {
	if w := runewidth.StringWidth(string(e.acc)); w > 0 {
		e.displayString("\x1b[" + strconv.Itoa(w) + "D")
	}
	e.displayString("\x1b[K" + line)
}

// resync closes the visual-only window: erase the local echo, then
// clear-line + retype on the shell so its buffer matches the visible
// line (the shell's own echo repaints it).
func (e *Engine) resync() {
	if w := runewidth.StringWidth(string(e.acc)); w > 0 {
		e.displayString("\x1b[" + strconv.Itoa(w) + "D\x1b[K")
	}
	_ = e.writeShell(append([]byte{ctrlU}, e.acc...))
	e.navActive = false
	e.colonMode = false
}

// clearLineState abandons the current line on both sides.
func (e *Engine) clearLineState() {
	e.acc = e.acc[:0]
	e.navActive = false
	e.colonMode = false
	e.unreliable = false
	e.hist.ResetCursor()
}

// popRune removes the last rune from the accumulator and returns its
// display width.
func (e *Engine) popRune() int {
	if len(e.acc) == 0 {
		return 0
	}
	r, size := utf8.DecodeLastRune(e.acc)
	e.acc = e.acc[:len(e.acc)-size]
	return runewidth.RuneWidth(r)
}

func (e *Engine) writeByte(b byte) {
	_ = e.writeShell([]byte{b})
}

// trackCd mirrors the shell's working directory so native listings read
// the right place. Best effort; unknown forms leave cwd alone.
func (e *Engine) trackCd(line string) {
	if line != "cd" && !strings.HasPrefix(line, "cd ") {
		return
	}
	arg := strings.TrimSpace(strings.TrimPrefix(line, "cd"))
	var next string
	switch {
	case arg == "" || arg == "~":
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		next = home
	case arg == "-":
		return
	case strings.HasPrefix(arg, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		next = filepath.Join(home, listing.Unquote(arg[2:]))
	case filepath.IsAbs(arg):
		next = filepath.Clean(listing.Unquote(arg))
	default:
		next = filepath.Join(e.cwd, listing.Unquote(arg))
	}
	if fi, err := os.Stat(next); err == nil && fi.IsDir() {
		e.cwd = next
	}
}

// localList renders each requested directory natively.
func (e *Engine) localList(paths []string, showHidden bool) {
	opts := listing.Options{
		Width:      session.Width(),
		Sort:       e.sortPrefs,
		ShowHidden: showHidden,
	}
	if len(paths) == 0 {
		paths = []string{""}
	}
	ctx := context.Background()
	var out strings.Builder
	for _, p := range paths {
		dir := e.cwd
		label := p
		if p != "" {
			resolved := listing.ResolvePath(e.cwd, p)
			if filepath.IsAbs(resolved) {
				dir = filepath.Clean(resolved)
			} else {
				dir = filepath.Join(e.cwd, resolved)
			}
		}
		if label == "" {
			label = dir
		}
		grid, err := e.renderer.RenderDir(ctx, dir, opts)
		if err != nil {
			// Native read failed; the shell may still be able to (su,
			// sandboxing). Capture its own listing instead.
			grid, err = e.captureList(ctx, dir, opts)
			if err != nil {
				e.warn("cannot list " + label + ": " + err.Error())
				continue
			}
		}
		out.WriteString("\r\n")
		if len(paths) > 1 {
			t := e.cfg.Theme
			out.WriteString(t.Notice + label + ":" + t.Reset + "\r\n")
		}
		out.WriteString(grid)
		out.WriteString("\r\n")
	}
	if out.Len() > 0 {
		e.displayString(out.String())
	}
}

// captureList is the legacy listing path: run the shell's own listing
// through the capture buffer, clean the raw output and feed the names
// into the same pipeline.
func (e *Engine) captureList(ctx context.Context, dir string, opts listing.Options) (string, error) {
	if e.execCapture == nil {
		return "", errors.New("capture unavailable")
	}
	cmdline := "ls -1"
	if opts.ShowHidden {
		cmdline = "ls -1a"
	}
	cmdline += " " + quotePath(dir)
	raw, ok := e.execCapture(cmdline, remote.DefaultExecTimeout)
	if !ok {
		return "", errors.New("shell listing timed out")
	}
	names := listing.FilterHidden(listing.CleanCaptured(raw, cmdline), opts.ShowHidden)
	if len(names) == 0 {
		return "", errors.New("shell listing produced no entries")
	}
	return e.renderer.RenderNames(ctx, dir, names, opts), nil
}

func quotePath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

// remoteList runs the deployed agent on the remote side and renders its
// records through the same pipeline. A false return lets the original
// command execute unmodified.
func (e *Engine) remoteList(paths []string, showHidden bool) bool {
	if !e.remote.Deployed() {
		if e.remote.DeployFailed() {
			return false
		}
		if err := remote.Deploy(e, &e.remote, e.agentDir); err != nil {
			e.warn("remote agent deployment failed; falling back to plain listings for this session")
			return false
		}
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	opts := listing.Options{
		Width:      session.Width(),
		Sort:       e.sortPrefs,
		ShowHidden: showHidden,
	}
	var out strings.Builder
	for _, p := range paths {
		records, ok := remote.List(e, &e.remote, p, showHidden)
		if !ok {
			return false
		}
		items := make([]listing.Item, len(records))
		for i, rec := range records {
			items[i] = rec.Item()
		}
		out.WriteString("\r\n")
		if len(paths) > 1 {
			t := e.cfg.Theme
			out.WriteString(t.Notice + p + ":" + t.Reset + "\r\n")
		}
		out.WriteString(e.renderer.RenderItems(items, opts))
		out.WriteString("\r\n")
	}
	e.displayString(out.String())
	return true
}
