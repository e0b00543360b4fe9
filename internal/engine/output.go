package engine

import (
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"dais/internal/ansi"
	"dais/internal/system"
)

const (
	outputPollMs  = 100
	promptTailCap = 1024
	// History-arrow interception waits this long after each Enter so the
	// shell's own echo of the submitted line settles first.
	promptDebounce = 200 * time.Millisecond
)

// promptTail keeps the bytes since the last newline, capped, for prompt
// matching against the configured prompt set.
type promptTail struct {
	buf []byte
}

func (t *promptTail) feed(b byte) {
	if b == '\n' {
		t.buf = t.buf[:0]
		return
	}
	if len(t.buf) >= promptTailCap {
		copy(t.buf, t.buf[1:])
		t.buf = t.buf[:promptTailCap-1]
	}
	t.buf = append(t.buf, b)
}

// matches suffix-tests the ANSI-stripped tail against the prompt set.
// Only carriage returns are trimmed: most default prompts end in a
// space, so trailing whitespace is significant.
func (t *promptTail) matches(prompts []string) bool {
	plain := strings.TrimRight(ansi.Strip(string(t.buf)), "\r")
	if plain == "" {
		return false
	}
	for _, p := range prompts {
		if strings.HasSuffix(plain, p) {
			return true
		}
	}
	return false
}

// Marker injection modes. Plain shells take the marker right after a
// newline; zsh and fish redraw their prompt with escape sequences, so the
// marker waits for the first visible character instead.
const (
	markOff = iota
	markSimple
	markDeferred
)

type marker struct {
	mode    int
	pending bool
	tok     ansi.Tokenizer
	text    []byte
}

func newMarker(mode int, logo, reset string) *marker {
	return &marker{mode: mode, text: []byte("[" + logo + "-" + reset + "] ")}
}

// process copies chunk into an output buffer, inserting the marker at
// idle line starts according to the mode.
func (m *marker) process(chunk []byte, idle func() bool) []byte {
	if m.mode == markOff {
		return chunk
	}
	out := make([]byte, 0, len(chunk)+len(m.text))
	for _, b := range chunk {
		cls := m.tok.Step(b)
		if m.pending && m.mode == markDeferred && cls == ansi.ClassText && b >= 0x20 {
			if idle() {
				out = append(out, m.text...)
			}
			m.pending = false
		}
		out = append(out, b)
		if b == '\n' {
			if m.mode == markSimple {
				if idle() {
					out = append(out, m.text...)
				}
			} else {
				m.pending = true
			}
		}
	}
	return out
}

// forwardOutput runs on its own goroutine, pumping PTY output to the
// display or the capture buffer until the shell exits or Run stops.
func (e *Engine) forwardOutput() {
	defer close(e.outDone)
	fd := int32(e.sess.Pty().Fd())
	buf := make([]byte, 32*1024)
	for e.running.Load() {
		fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
		n, err := unix.Poll(fds, outputPollMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			break
		}
		if n == 0 {
			continue
		}
		nr, rerr := e.sess.Pty().Read(buf)
		if nr > 0 {
			e.handleOutput(buf[:nr])
		}
		if rerr != nil {
			break
		}
	}
	e.running.Store(false)
}

func (e *Engine) handleOutput(chunk []byte) {
	// While a consumer owns the capture buffer the shell is mid-command;
	// prompt matching and injection only apply to the display path.
	if e.capture.Active() {
		e.capture.Append(chunk)
		return
	}

	// Prompt look-ahead runs before injection so a prompt at the start
	// of this very chunk already gates its marker decisions. A recognized
	// prompt flips the state unconditionally: the shell may print its
	// next prompt within milliseconds of Enter and this chunk can be the
	// last output the PTY delivers for the command.
	for _, b := range chunk {
		e.tail.feed(b)
	}
	if e.tail.matches(e.cfg.Prompts) && e.foreground() {
		if e.state.Swap(stateIdle) != stateIdle {
			e.remoteCheckDue.Store(true)
		}
	}

	e.display(e.marker.process(chunk, func() bool { return e.idle() }))
}

func (e *Engine) idle() bool {
	return e.state.Load() == stateIdle
}

// checkRemote inspects the foreground process group and updates the
// remote session state, announcing enter/leave on the display. Input
// thread only.
func (e *Engine) checkRemote() {
	pgrp, err := e.sess.ForegroundPgrp()
	if err != nil {
		return
	}
	name := ""
	if pgrp != e.sess.ChildPid() {
		name = system.ProcessName(pgrp)
	}
	entered, left := e.remote.Observe(name)
	if entered {
		e.notice("remote session detected (" + name + "); listings will use the remote agent")
	}
	if left {
		e.notice("remote session ended")
	}
}
