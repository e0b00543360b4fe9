package remote

import (
	"strings"
	"time"
)

// clientNames are foreground process names that mean the PTY is talking
// to a remote host rather than a local job.
var clientNames = []string{"ssh", "mosh-client", "et", "autossh"}

// checkInterval throttles foreground re-checks while the shell is busy.
const checkInterval = 2 * time.Second

// State tracks one remote session's lifecycle: whether the foreground is
// a remote client, what has been deployed, and what was learned about the
// far end. Leaving remote state resets everything.
type State struct {
	active       bool
	deployed     bool
	deployFailed bool
	useFallback  bool
	agentPath    string
	arch         string
	lastCheck    time.Time
}

// Active reports whether the foreground process is a remote client.
func (s *State) Active() bool { return s.active }

// Deployed reports whether the agent (or fallback script) is installed.
func (s *State) Deployed() bool { return s.deployed }

// DeployFailed reports whether deployment already failed this session;
// failures are reported once and the slow path used thereafter.
func (s *State) DeployFailed() bool { return s.deployFailed }

// UseFallback reports whether the interpreted script path is in force.
func (s *State) UseFallback() bool { return s.useFallback }

// AgentPath is the remote path of whatever was installed.
func (s *State) AgentPath() string { return s.agentPath }

// Arch is the detected remote machine architecture ("" if unknown).
func (s *State) Arch() string { return s.arch }

// ShouldCheck throttles detection while a command is running.
func (s *State) ShouldCheck(now time.Time) bool {
	if now.Sub(s.lastCheck) < checkInterval {
		return false
	}
	s.lastCheck = now
	return true
}

// Observe feeds the current foreground process name into the state.
// A transition into remote state resets the per-session deployment
// flags; a transition out resets everything.
func (s *State) Observe(procName string) (entered, left bool) {
	remote := isRemoteClient(procName)
	switch {
	case remote && !s.active:
		*s = State{active: true, lastCheck: s.lastCheck}
		return true, false
	case !remote && s.active:
		*s = State{lastCheck: s.lastCheck}
		return false, true
	}
	return false, false
}

func (s *State) markDeployed(path string, fallback bool) {
	s.deployed = true
	s.useFallback = fallback
	s.agentPath = path
}

func (s *State) markDeployFailed() {
	s.deployed = false
	s.deployFailed = true
}

func isRemoteClient(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range clientNames {
		if name == c {
			return true
		}
	}
	return false
}

// List asks the deployed agent for records under path. ok=false on any
// protocol failure, telling the caller to fall back to the user's
// original command unmodified.
func List(t Terminal, s *State, path string, showHidden bool) ([]Record, bool) {
	if !s.deployed {
		return nil, false
	}
	cmd := s.agentPath
	if s.useFallback {
		cmd = "sh " + s.agentPath
	}
	if showHidden {
		cmd += " -a"
	}
	if path != "" {
		cmd += " " + shellQuote(path)
	}
	out, ok := Exec(t, cmd, DefaultExecTimeout)
	if !ok {
		return nil, false
	}
	records, err := ParsePayload(out)
	if err != nil {
		return nil, false
	}
	return records, true
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
