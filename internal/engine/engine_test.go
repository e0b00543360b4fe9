package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dais/internal/analyze"
	"dais/internal/config"
	"dais/internal/history"
	"dais/internal/listing"
	"dais/internal/pool"
)

func newTestEngine(t *testing.T) (*Engine, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	h, err := history.Load(filepath.Join(t.TempDir(), "history"), 100)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	display := &bytes.Buffer{}
	shell := &bytes.Buffer{}
	e := &Engine{
		cfg:      cfg,
		renderer: listing.NewRenderer(cfg, analyze.New(cfg.TextExtensions, cfg.DataExtensions), pool.New(4)),
		hist:     h,
		out:      display,
		shell:    shell,
		capture:  NewCapture(),
		outDone:  make(chan struct{}),
	}
	e.sortPrefs = cfg.Sort
	e.cwd = t.TempDir()
	e.marker = newMarker(markOff, cfg.Theme.Logo, cfg.Theme.Reset)
	e.foreground = func() bool { return true }
	e.state.Store(stateIdle)
	e.running.Store(true)
	return e, display, shell
}

func TestCaptureWaitForFindsSubstring(t *testing.T) {
	c := NewCapture()
	c.Start()
	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Append([]byte("partial "))
		time.Sleep(10 * time.Millisecond)
		c.Append([]byte("DONE_42\n"))
	}()
	out, ok := c.WaitFor("DONE_42", time.Second)
	if !ok {
		t.Fatalf("WaitFor: sentinel not seen, out=%q", out)
	}
	if !strings.Contains(out, "partial DONE_42") {
		t.Errorf("captured output = %q", out)
	}
	if c.Active() {
		t.Error("capture still active after WaitFor")
	}
}

func TestCaptureWaitForTimeoutReturnsEmpty(t *testing.T) {
	c := NewCapture()
	c.Start()
	c.Append([]byte("some output, no sentinel"))
	out, ok := c.WaitFor("NEVER", 50*time.Millisecond)
	if ok {
		t.Fatal("WaitFor reported success without the sentinel")
	}
	if out != "" {
		t.Errorf("timeout result = %q, want empty", out)
	}
	if c.Active() {
		t.Error("capture still active after timeout")
	}
}

func TestCaptureAppendInactiveDropped(t *testing.T) {
	c := NewCapture()
	c.Append([]byte("dropped"))
	c.Start()
	if got := c.Stop(); got != "" {
		t.Errorf("buffer = %q, want empty", got)
	}
}

func TestPromptTailMatching(t *testing.T) {
	prompts := config.Default().Prompts
	var tail promptTail
	for _, b := range []byte("some command output\n\x1b[32muser@host\x1b[0m:~$ ") {
		tail.feed(b)
	}
	if !tail.matches(prompts) {
		t.Error("colored bash prompt not recognized")
	}
	for _, b := range []byte("more output\n") {
		tail.feed(b)
	}
	if tail.matches(prompts) {
		t.Error("tail still matches after newline reset")
	}
}

func TestPromptTailKeepsTrailingSpace(t *testing.T) {
	prompts := config.Default().Prompts
	for _, line := range []string{"~/src % ", "PS > ", "root@box:/# "} {
		var tail promptTail
		for _, b := range []byte("\n" + line) {
			tail.feed(b)
		}
		if !tail.matches(prompts) {
			t.Errorf("prompt %q not recognized", line)
		}
	}
}

func TestPromptTailMidOutputNoMatch(t *testing.T) {
	var tail promptTail
	for _, b := range []byte("downloading 42% done") {
		tail.feed(b)
	}
	if tail.matches(config.Default().Prompts) {
		t.Error("percent mid-line mistaken for a prompt")
	}
}

func TestMarkerSimpleInjectsWhenIdle(t *testing.T) {
	m := newMarker(markSimple, "<L>", "<R>")
	out := string(m.process([]byte("line\nprompt$ "), func() bool { return true }))
	want := "line\n[<L>-<R>] prompt$ "
	if out != want {
		t.Errorf("process = %q, want %q", out, want)
	}
}

func TestMarkerSimpleSkipsWhenRunning(t *testing.T) {
	m := newMarker(markSimple, "<L>", "<R>")
	out := string(m.process([]byte("build output\nmore\n"), func() bool { return false }))
	if strings.Contains(out, "[<L>") {
		t.Errorf("marker injected during running state: %q", out)
	}
}

func TestMarkerDeferredWaitsForPrintable(t *testing.T) {
	m := newMarker(markDeferred, "<L>", "<R>")
	in := "\n\x1b[2K\x1b[35m~\x1b[0m "
	out := string(m.process([]byte(in), func() bool { return true }))
	want := "\n\x1b[2K\x1b[35m[<L>-<R>] ~\x1b[0m "
	if out != want {
		t.Errorf("process = %q, want %q", out, want)
	}
}

func TestMarkerOffPassthrough(t *testing.T) {
	m := newMarker(markOff, "<L>", "<R>")
	in := []byte("\nanything$ ")
	if got := m.process(in, func() bool { return true }); !bytes.Equal(got, in) {
		t.Errorf("process = %q, want passthrough", got)
	}
}

func TestColonTypingStaysLocal(t *testing.T) {
	e, display, shell := newTestEngine(t)
	e.handleInput([]byte(":help"))
	if shell.Len() != 0 {
		t.Errorf("colon input reached the shell: %q", shell.String())
	}
	if display.String() != ":help" {
		t.Errorf("local echo = %q", display.String())
	}
}

func TestColonQuit(t *testing.T) {
	e, _, shell := newTestEngine(t)
	e.handleInput([]byte(":q\r"))
	if e.running.Load() {
		t.Error("engine still running after :q")
	}
	if shell.Len() != 0 {
		t.Errorf("quit leaked bytes to the shell: %q", shell.String())
	}
}

func TestPlainTypingForwardsAndAccumulates(t *testing.T) {
	e, _, shell := newTestEngine(t)
	e.handleInput([]byte("echo hi"))
	if shell.String() != "echo hi" {
		t.Errorf("forwarded = %q", shell.String())
	}
	if string(e.acc) != "echo hi" {
		t.Errorf("accumulator = %q", string(e.acc))
	}
}

func TestTypingWhileRunningNotAccumulated(t *testing.T) {
	e, _, shell := newTestEngine(t)
	e.state.Store(stateRunning)
	e.handleInput([]byte("y"))
	if shell.String() != "y" {
		t.Errorf("forwarded = %q", shell.String())
	}
	if len(e.acc) != 0 {
		t.Errorf("accumulator grew while running: %q", string(e.acc))
	}
}

func TestCtrlCClearsLine(t *testing.T) {
	e, _, shell := newTestEngine(t)
	e.handleInput([]byte("ab\x03"))
	if len(e.acc) != 0 {
		t.Errorf("accumulator not cleared: %q", string(e.acc))
	}
	if shell.String() != "ab\x03" {
		t.Errorf("shell bytes = %q", shell.String())
	}
}

func TestOSCSwallowedAcrossReads(t *testing.T) {
	e, _, shell := newTestEngine(t)
	e.handleInput([]byte("\x1b]0;win"))
	e.handleInput([]byte("dow title\x07ls"))
	if shell.String() != "ls" {
		t.Errorf("shell bytes = %q, want only the command", shell.String())
	}
	if string(e.acc) != "ls" {
		t.Errorf("accumulator = %q", string(e.acc))
	}
}

func TestHistoryNavigationVisualOnly(t *testing.T) {
	e, display, shell := newTestEngine(t)
	if err := e.hist.Save("first"); err != nil {
		t.Fatal(err)
	}
	if err := e.hist.Save("second"); err != nil {
		t.Fatal(err)
	}

	e.handleInput([]byte("dr"))
	shellBefore := shell.String()
	e.handleInput([]byte{0x1b, '[', 'A'}) // Up
	if shell.String() != shellBefore {
		t.Errorf("navigation wrote to the shell: %q", shell.String())
	}
	if string(e.acc) != "second" {
		t.Errorf("accumulator = %q, want %q", string(e.acc), "second")
	}
	if !e.navActive {
		t.Error("visual-only window not open")
	}
	if !strings.Contains(display.String(), "\x1b[2D\x1b[Ksecond") {
		t.Errorf("redraw missing from display: %q", display.String())
	}
}

func TestEnterAfterNavigationResyncs(t *testing.T) {
	e, _, shell := newTestEngine(t)
	if err := e.hist.Save("uptime"); err != nil {
		t.Fatal(err)
	}
	e.handleInput([]byte{0x1b, '[', 'A'})
	shell.Reset()
	e.handleInput([]byte{'\r'})
	got := shell.String()
	if !strings.HasPrefix(got, "\x15uptime") {
		t.Errorf("resync sequence = %q, want clear-line + retype first", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("no submission after resync: %q", got)
	}
	if e.navActive {
		t.Error("visual-only window still open after Enter")
	}
}

func TestNavigationIgnoredWhileRunning(t *testing.T) {
	e, _, shell := newTestEngine(t)
	if err := e.hist.Save("anything"); err != nil {
		t.Fatal(err)
	}
	e.state.Store(stateRunning)
	e.lastSubmit.Store(time.Now().UnixNano())
	e.handleInput([]byte{0x1b, '[', 'A'})
	if shell.String() != "\x1b[A" {
		t.Errorf("arrow not forwarded verbatim: %q", shell.String())
	}
	if e.navActive {
		t.Error("navigation intercepted while running")
	}
}

func TestTabMarksAccumulatorUnreliable(t *testing.T) {
	e, display, shell := newTestEngine(t)
	e.handleInput([]byte("l\ts\r"))
	if !strings.Contains(shell.String(), "\t") {
		t.Errorf("tab not forwarded: %q", shell.String())
	}
	if strings.Contains(shell.String(), "\x15") {
		t.Error("listing interception ran on an unreliable accumulator")
	}
	if strings.Contains(display.String(), "items") {
		t.Error("grid rendered despite unreliable accumulator")
	}
}

func TestListingInterception(t *testing.T) {
	e, display, shell := newTestEngine(t)
	if err := os.WriteFile(filepath.Join(e.cwd, "a.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(e.cwd, "b"), 0o755); err != nil {
		t.Fatal(err)
	}

	e.handleInput([]byte("ls\r"))
	got := shell.String()
	if !strings.Contains(got, "\x15") {
		t.Errorf("shell line not cancelled: %q", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("no fresh prompt requested: %q", got)
	}
	out := display.String()
	if !strings.Contains(out, "a.txt") || !strings.Contains(out, "b") {
		t.Errorf("grid missing entries: %q", out)
	}
	if e.hist.Len() != 1 {
		t.Errorf("history length = %d, want the intercepted command saved", e.hist.Len())
	}
}

func TestInterceptionSkippedWhileRunning(t *testing.T) {
	e, display, shell := newTestEngine(t)
	e.state.Store(stateRunning)
	e.handleInput([]byte("ls\r"))
	if strings.Contains(shell.String(), "\x15") {
		t.Errorf("interception ran while shell busy: %q", shell.String())
	}
	if display.Len() != 0 {
		t.Errorf("unexpected local output: %q", display.String())
	}
}

func TestBackspaceVisualOnly(t *testing.T) {
	e, display, shell := newTestEngine(t)
	e.handleInput([]byte(":ab"))
	display.Reset()
	e.handleInput([]byte{0x7f})
	if string(e.acc) != ":a" {
		t.Errorf("accumulator = %q", string(e.acc))
	}
	if shell.Len() != 0 {
		t.Errorf("visual-only backspace reached the shell: %q", shell.String())
	}
	if !strings.Contains(display.String(), "\b") {
		t.Errorf("no local erase emitted: %q", display.String())
	}
}

func TestBackspaceForwarded(t *testing.T) {
	e, _, shell := newTestEngine(t)
	e.handleInput([]byte("ab\x7f"))
	if string(e.acc) != "a" {
		t.Errorf("accumulator = %q", string(e.acc))
	}
	if !strings.HasSuffix(shell.String(), "\x7f") {
		t.Errorf("backspace not forwarded: %q", shell.String())
	}
}

func TestSortCommand(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.runColon(":ls size desc v")
	if e.sortPrefs.By != "size" || e.sortPrefs.Order != "desc" || e.sortPrefs.Flow != "v" {
		t.Errorf("sortPrefs = %+v", e.sortPrefs)
	}
	e.runColon(":ls false")
	if e.sortPrefs.DirsFirst {
		t.Error("dirs_first not disabled")
	}
	e.runColon(":ls d")
	if e.sortPrefs != config.Default().Sort {
		t.Errorf("reset left %+v", e.sortPrefs)
	}
}

func TestSortCommandRejectsUnknown(t *testing.T) {
	e, display, _ := newTestEngine(t)
	before := e.sortPrefs
	e.runColon(":ls sideways")
	if e.sortPrefs != before {
		t.Errorf("unknown option mutated prefs: %+v", e.sortPrefs)
	}
	if !strings.Contains(display.String(), "unknown :ls option") {
		t.Errorf("no warning shown: %q", display.String())
	}
}

func TestHistoryCommand(t *testing.T) {
	e, display, _ := newTestEngine(t)
	for _, c := range []string{"one", "two", "three"} {
		if err := e.hist.Save(c); err != nil {
			t.Fatal(err)
		}
	}
	e.runColon(":history 2")
	out := display.String()
	if strings.Contains(out, "one") || !strings.Contains(out, "two") || !strings.Contains(out, "three") {
		t.Errorf(":history 2 output = %q", out)
	}

	display.Reset()
	e.runColon(":history clear")
	if e.hist.Len() != 0 {
		t.Errorf("history length after clear = %d", e.hist.Len())
	}
}

func TestDBCommandWithoutPlugin(t *testing.T) {
	e, display, _ := newTestEngine(t)
	e.runColon(":db select 1")
	if !strings.Contains(display.String(), "no database plugin") {
		t.Errorf("warning missing: %q", display.String())
	}
}

type stubHooks struct {
	commands []string
	answer   string
}

func (s *stubHooks) OnCommand(line string) { s.commands = append(s.commands, line) }
func (s *stubHooks) DBQuery(q string) (string, bool) {
	if s.answer == "" {
		return "", false
	}
	return s.answer, true
}

func TestHooksCalledOnSubmit(t *testing.T) {
	e, _, _ := newTestEngine(t)
	hooks := &stubHooks{answer: "rows: 3"}
	e.hooks = hooks
	e.handleInput([]byte("make test\r"))
	if len(hooks.commands) != 1 || hooks.commands[0] != "make test" {
		t.Errorf("hook calls = %v", hooks.commands)
	}

	display := e.out.(*bytes.Buffer)
	display.Reset()
	e.state.Store(stateIdle)
	e.lastSubmit.Store(0)
	e.runColon(":db select count(*)")
	if !strings.Contains(display.String(), "rows: 3") {
		t.Errorf(":db output = %q", display.String())
	}
}

func TestTrackCd(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sub := filepath.Join(e.cwd, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	e.trackCd("cd sub")
	if e.cwd != sub {
		t.Errorf("cwd = %q, want %q", e.cwd, sub)
	}
	e.trackCd("cd missing")
	if e.cwd != sub {
		t.Errorf("cwd moved to a nonexistent dir: %q", e.cwd)
	}
	e.trackCd("cd /")
	if e.cwd != "/" {
		t.Errorf("cwd = %q, want /", e.cwd)
	}
}

func TestPromptFlipsStateToIdle(t *testing.T) {
	e, display, _ := newTestEngine(t)
	e.state.Store(stateRunning)
	// The prompt can arrive within milliseconds of the submission that
	// started the command; it must still count.
	e.lastSubmit.Store(time.Now().UnixNano())
	e.handleOutput([]byte("total 4\r\n\x1b[32muser@host\x1b[0m:~$ "))
	if !e.idle() {
		t.Error("state stuck running after a recognized prompt")
	}
	if !e.remoteCheckDue.Load() {
		t.Error("idle transition did not schedule a remote check")
	}
	if !strings.Contains(display.String(), "total 4") {
		t.Errorf("output not forwarded: %q", display.String())
	}
}

func TestPromptIgnoredWhenShellBackgrounded(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.foreground = func() bool { return false }
	e.state.Store(stateRunning)
	e.handleOutput([]byte("\nuser@host:~$ "))
	if e.idle() {
		t.Error("prompt-shaped output from a foreground job flipped the state")
	}
}

func TestListingFallsBackToShellCapture(t *testing.T) {
	e, display, _ := newTestEngine(t)
	var sent string
	e.execCapture = func(cmd string, _ time.Duration) (string, bool) {
		sent = cmd
		return "alpha.txt\r\nbeta\r\n", true
	}
	e.handleInput([]byte("ls /no/such/dir\r"))
	if !strings.HasPrefix(sent, "ls -1 '") {
		t.Fatalf("shell listing command = %q", sent)
	}
	out := display.String()
	if !strings.Contains(out, "alpha.txt") || !strings.Contains(out, "beta") {
		t.Errorf("captured names missing from grid: %q", out)
	}
}

func TestListingFallbackFailureWarns(t *testing.T) {
	e, display, _ := newTestEngine(t)
	e.execCapture = func(string, time.Duration) (string, bool) { return "", false }
	e.handleInput([]byte("ls /no/such/dir\r"))
	if !strings.Contains(display.String(), "cannot list") {
		t.Errorf("no warning shown: %q", display.String())
	}
}

func TestCaptureDivertsFromDisplay(t *testing.T) {
	e, display, _ := newTestEngine(t)
	e.capture.Start()
	e.handleOutput([]byte("diverted bytes"))
	if display.Len() != 0 {
		t.Errorf("display received %q during capture", display.String())
	}
	if got := e.capture.Stop(); got != "diverted bytes" {
		t.Errorf("captured = %q", got)
	}
}
