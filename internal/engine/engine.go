// Package engine is the interactive core: two forwarding loops around
// the PTY, shell state tracking, command interception and the capture
// buffer shared between them.
package engine

import (
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"dais/internal/config"
	"dais/internal/history"
	"dais/internal/listing"
	"dais/internal/remote"
	"dais/internal/session"
	"dais/internal/system"
)

const (
	stateRunning int32 = iota
	stateIdle
)

// Hooks is the scripting extension boundary. The engine calls OnCommand
// for every submitted line and DBQuery for the :db command.
type Hooks interface {
	OnCommand(line string)
	DBQuery(query string) (string, bool)
}

// Engine ties the session, the listing pipeline, history and the remote
// subsystem together and runs the two forwarding loops.
type Engine struct {
	cfg      config.Config
	sess     *session.Session
	renderer *listing.Renderer
	hist     *history.History
	hooks    Hooks

	in    *os.File
	out   io.Writer
	shell io.Writer // PTY master; swapped for a buffer in tests

	running    atomic.Bool
	state      atomic.Int32
	lastSubmit atomic.Int64 // unix nanos of the last Enter

	capture *Capture
	tail    promptTail
	marker  *marker
	outMu   sync.Mutex
	outDone chan struct{}

	// foreground reports whether the shell itself owns the PTY
	// foreground; a prompt match only counts then. Injected so the
	// transition is testable without a live session.
	foreground func() bool

	// execCapture runs a command on the local shell through the capture
	// buffer. Backs the captured-listing fallback when the native
	// directory read fails.
	execCapture func(cmd string, timeout time.Duration) (string, bool)

	// remoteCheckDue asks the input thread to re-run remote detection;
	// the forwarder sets it on prompt transitions so that remote.State
	// stays input-thread-only.
	remoteCheckDue atomic.Bool
	remote         remote.State
	agentDir       string

	// Input-thread state. Never touched by the forwarder.
	sortPrefs  config.Sort
	cwd        string
	acc        []byte
	colonMode  bool
	navActive  bool
	oscSkip    bool
	oscEsc     bool
	unreliable bool
}

// New builds an engine around an already started session.
func New(cfg config.Config, sess *session.Session, r *listing.Renderer, h *history.History, hooks Hooks) *Engine {
	e := &Engine{
		cfg:      cfg,
		sess:     sess,
		renderer: r,
		hist:     h,
		hooks:    hooks,
		in:       os.Stdin,
		out:      os.Stdout,
		shell:    sess.Pty(),
		capture:  NewCapture(),
		outDone:  make(chan struct{}),
	}
	e.sortPrefs = cfg.Sort
	e.cwd, _ = os.Getwd()
	if d, err := config.AgentDir(); err == nil {
		e.agentDir = d
	}
	e.marker = newMarker(markerMode(cfg), cfg.Theme.Logo, cfg.Theme.Reset)
	e.foreground = sess.ShellForeground
	e.execCapture = func(cmd string, timeout time.Duration) (string, bool) {
		return remote.Exec(e, cmd, timeout)
	}
	e.state.Store(stateRunning) // idle only after the first prompt
	return e
}

// markerMode picks the injection strategy for the user's shell. Prompt
// frameworks that repaint the line cannot be injected into safely.
func markerMode(cfg config.Config) int {
	if !cfg.ShowLogo {
		return markOff
	}
	if os.Getenv("STARSHIP_SHELL") != "" || os.Getenv("P9K_SSH") != "" {
		return markOff
	}
	switch system.Basename(os.Getenv("SHELL")) {
	case "zsh", "fish":
		return markDeferred
	case "", "bash", "sh", "dash", "ksh":
		return markSimple
	default:
		return markOff
	}
}

// Run pumps both directions until the shell exits or the user quits.
func (e *Engine) Run() error {
	e.running.Store(true)

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			_ = e.sess.Resize()
		}
	}()

	go e.forwardOutput()
	e.forwardInput()

	e.running.Store(false)
	<-e.outDone
	close(winch)
	return nil
}

// forwardInput is the main loop: stdin → dispatch → PTY.
func (e *Engine) forwardInput() {
	fd := int32(e.in.Fd())
	buf := make([]byte, 4096)
	for e.running.Load() {
		fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
		n, err := unix.Poll(fds, outputPollMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		e.idleTick()
		if n == 0 {
			continue
		}
		nr, rerr := e.in.Read(buf)
		if nr > 0 {
			e.handleInput(buf[:nr])
		}
		if rerr != nil {
			return
		}
	}
}

// idleTick runs remote detection on the input thread: immediately when
// the forwarder flagged a prompt transition, throttled otherwise while
// the shell is busy.
func (e *Engine) idleTick() {
	if e.remoteCheckDue.Swap(false) {
		e.checkRemote()
		return
	}
	if !e.idle() && e.remote.ShouldCheck(time.Now()) {
		e.checkRemote()
	}
}

// writeShell sends bytes to the child shell.
func (e *Engine) writeShell(p []byte) error {
	if e.shell == nil {
		return os.ErrClosed
	}
	_, err := e.shell.Write(p)
	return err
}

// display writes to the real terminal. Shared by both loops.
func (e *Engine) display(p []byte) {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	_, _ = e.out.Write(p)
}

func (e *Engine) displayString(s string) { e.display([]byte(s)) }

// WriteShell implements the remote terminal contract.
func (e *Engine) WriteShell(p []byte) error { return e.writeShell(p) }

// CaptureWait enables capture mode, sends the request and blocks until
// substr shows up in the diverted output or the timeout passes. Capture
// mode is off again on return either way.
func (e *Engine) CaptureWait(send []byte, substr string, timeout time.Duration) (string, bool) {
	e.capture.Start()
	if err := e.writeShell(send); err != nil {
		e.capture.Stop()
		return "", false
	}
	return e.capture.WaitFor(substr, timeout)
}

func (e *Engine) debounced() bool {
	return time.Since(time.Unix(0, e.lastSubmit.Load())) >= promptDebounce
}

// notice prints an informational line in the wrapper's own voice.
func (e *Engine) notice(msg string) {
	t := e.cfg.Theme
	e.displayString("\r\n[" + t.Logo + "-" + t.Reset + "] " + msg + "\r\n")
}

// warn prints a themed inline warning.
func (e *Engine) warn(msg string) {
	t := e.cfg.Theme
	e.displayString("\r\n[" + t.Warning + "!" + t.Reset + "] " + msg + "\r\n")
}
