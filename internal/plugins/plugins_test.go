package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePlugin(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAndHooks(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "audit.js", `
function on_command(line) {
	dais.log("saw " + line);
}
function on_db_query(q) {
	if (q === "ping") {
		return "pong";
	}
}
`)
	var logs []string
	h := Load(dir, func(msg string) { logs = append(logs, msg) })
	defer h.Close()

	if h.Count() != 1 {
		t.Fatalf("Count = %d, want 1", h.Count())
	}
	h.OnCommand("make build")
	if len(logs) != 1 || logs[0] != "audit.js: saw make build" {
		t.Errorf("logs = %v", logs)
	}

	if out, ok := h.DBQuery("ping"); !ok || out != "pong" {
		t.Errorf("DBQuery(ping) = %q, %v", out, ok)
	}
	if _, ok := h.DBQuery("other"); ok {
		t.Error("query with undefined result reported as answered")
	}
}

func TestBrokenPluginSkipped(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "bad.js", `function on_command( {`)
	writePlugin(t, dir, "good.js", `function on_db_query(q) { return "ok"; }`)

	var logs []string
	h := Load(dir, func(msg string) { logs = append(logs, msg) })
	defer h.Close()

	if h.Count() != 1 {
		t.Fatalf("Count = %d, want the broken plugin skipped", h.Count())
	}
	if len(logs) == 0 || !strings.HasPrefix(logs[0], "bad.js:") {
		t.Errorf("compile failure not logged: %v", logs)
	}
}

func TestHookErrorDoesNotPropagate(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "throws.js", `function on_command(line) { throw new Error("boom"); }`)

	var logs []string
	h := Load(dir, func(msg string) { logs = append(logs, msg) })
	defer h.Close()

	h.OnCommand("anything")
	if len(logs) != 1 || !strings.Contains(logs[0], "boom") {
		t.Errorf("hook error not logged: %v", logs)
	}
}

func TestMissingDirectory(t *testing.T) {
	h := Load(filepath.Join(t.TempDir(), "nope"), nil)
	defer h.Close()
	if h.Count() != 0 {
		t.Errorf("Count = %d, want 0", h.Count())
	}
	h.OnCommand("ls")
	if _, ok := h.DBQuery("q"); ok {
		t.Error("empty host answered a query")
	}
	if err := h.Watch(); err != nil {
		t.Errorf("Watch on missing dir: %v", err)
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "a.js", `function on_db_query(q) { return "one"; }`)
	h := Load(dir, nil)
	defer h.Close()

	writePlugin(t, dir, "a.js", `function on_db_query(q) { return "two"; }`)
	h.mu.Lock()
	h.reloadLocked()
	h.mu.Unlock()

	if out, ok := h.DBQuery("q"); !ok || out != "two" {
		t.Errorf("DBQuery after reload = %q, %v", out, ok)
	}
}

func TestFirstAnswerWins(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "1_first.js", `function on_db_query(q) { return "first"; }`)
	writePlugin(t, dir, "2_second.js", `function on_db_query(q) { return "second"; }`)
	h := Load(dir, nil)
	defer h.Close()

	if out, _ := h.DBQuery("q"); out != "first" {
		t.Errorf("DBQuery = %q, want the first plugin's answer", out)
	}
}
