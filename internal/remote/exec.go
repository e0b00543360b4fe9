package remote

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"dais/internal/ansi"
)

// Terminal is the narrow surface the remote subsystem needs from the
// engine: raw writes to the PTY and blocking waits on the capture buffer.
type Terminal interface {
	// WriteShell sends bytes to the PTY master.
	WriteShell(p []byte) error
	// CaptureWait enables capture mode, calls send, then blocks until the
	// substring appears in the captured output or the timeout elapses.
	// Capture mode is disabled again in every case; a timeout returns
	// an empty capture and ok=false.
	CaptureWait(send []byte, substr string, timeout time.Duration) (captured string, ok bool)
}

// DefaultExecTimeout bounds a sentinel wait.
const DefaultExecTimeout = 3 * time.Second

const (
	ctrlU          = "\x15" // kill-line: clear whatever is on the remote input
	sentinelPrefix = "DAIS_DONE_"
)

// Exec runs command on the remote shell and returns its genuine output.
//
// The composed request is `<SP>command ; echo DAIS_DONE_$((a*b))`: the
// leading space keeps it out of remote history where HISTCONTROL allows,
// and the arithmetic keeps the echoed request text, which contains the
// sentinel only in its unexpanded `$((a*b))` spelling, from ever
// matching the expanded sentinel line we wait for.
func Exec(t Terminal, command string, timeout time.Duration) (string, bool) {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	a, b := 100+rand.Intn(900), 100+rand.Intn(900)
	sentinel := fmt.Sprintf("%s%d", sentinelPrefix, a*b)
	request := fmt.Sprintf("%s %s ; echo %s$((%d*%d))\r", ctrlU, command, sentinelPrefix, a, b)

	captured, ok := t.CaptureWait([]byte(request), sentinel, timeout)
	if !ok {
		return "", false
	}
	return cleanOutput(captured, sentinel), true
}

// cleanOutput strips the echoed request line, everything from the
// sentinel line onward, and residual escape sequences.
func cleanOutput(captured, sentinel string) string {
	lines := strings.Split(captured, "\n")
	var out []string
	for i, line := range lines {
		plain := strings.TrimRight(ansi.Strip(line), "\r")
		if strings.Contains(plain, sentinel) {
			break
		}
		// The first line is the request echo; it carries the command text
		// and the unexpanded sentinel spelling.
		if i == 0 || strings.Contains(plain, sentinelPrefix+"$((") {
			continue
		}
		out = append(out, plain)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
