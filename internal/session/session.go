// Package session owns the pseudoterminal: the child shell, the master
// descriptor, and the wrapper terminal's raw mode.
package session

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Session is the live PTY pair plus the saved terminal state needed to
// undo raw mode. It is exclusively owned by the engine.
type Session struct {
	mu      sync.Mutex
	ptmx    *os.File
	cmd     *exec.Cmd
	restore *term.State
}

// Shell returns the user's shell and the interactive login args to exec
// it with.
func Shell() (string, []string) {
	sh := os.Getenv("SHELL")
	if sh == "" {
		sh = "/bin/bash"
	}
	if _, err := os.Stat(sh); err != nil {
		sh = "/bin/sh"
	}
	return sh, []string{"-i", "-l"}
}

// Start switches stdin to raw mode, spawns the shell on a fresh PTY pair
// and sizes it to the current terminal. Failure at either step is fatal
// to startup: no process is left behind and the terminal is restored.
func Start() (*Session, error) {
	restore, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("set raw terminal mode: %w", err)
	}

	sh, args := Shell()
	cmd := exec.Command(sh, args...)
	// macOS Terminal session restore scripts can hang an interactive
	// login shell inside a PTY.
	cmd.Env = append(os.Environ(), "SHELL_SESSION_HISTORY=0")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		_ = term.Restore(int(os.Stdin.Fd()), restore)
		return nil, fmt.Errorf("start shell %s: %w", sh, err)
	}

	s := &Session{ptmx: ptmx, cmd: cmd, restore: restore}
	_ = s.Resize()
	return s, nil
}

// Stop restores the original terminal mode and closes the master handle.
// Safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restore != nil {
		_ = term.Restore(int(os.Stdin.Fd()), s.restore)
		s.restore = nil
	}
	if s.ptmx != nil {
		_ = s.ptmx.Close()
		s.ptmx = nil
	}
}

// Pty returns the master side of the pair.
func (s *Session) Pty() *os.File { return s.ptmx }

// ChildPid returns the shell's pid.
func (s *Session) ChildPid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return -1
	}
	return s.cmd.Process.Pid
}

// SignalChild delivers sig to the shell process.
func (s *Session) SignalChild(sig syscall.Signal) {
	if pid := s.ChildPid(); pid > 0 {
		_ = syscall.Kill(pid, sig)
	}
}

// Wait reaps the shell after it exits.
func (s *Session) Wait() {
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
}

// Resize propagates the controlling terminal's window size to the PTY.
func (s *Session) Resize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptmx == nil {
		return nil
	}
	return pty.InheritSize(os.Stdin, s.ptmx)
}

// Width returns the current terminal width, defaulting to 80 when the
// size cannot be read.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// ForegroundPgrp returns the PTY's foreground process group.
func (s *Session) ForegroundPgrp() (int, error) {
	s.mu.Lock()
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return 0, fmt.Errorf("session stopped")
	}
	return unix.IoctlGetInt(int(ptmx.Fd()), unix.TIOCGPGRP)
}

// ShellForeground reports whether the shell itself owns the foreground,
// i.e. no editor, pager or remote client is running. pty.Start makes the
// child a session leader, so its pgid equals its pid.
func (s *Session) ShellForeground() bool {
	pgrp, err := s.ForegroundPgrp()
	if err != nil {
		return false
	}
	return pgrp == s.ChildPid()
}
