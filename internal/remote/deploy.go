package remote

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fallbackScript is the interpreted agent used when no prebuilt binary
// matches the remote architecture.
//
//go:embed fallback.sh
var fallbackScript string

const (
	deployChunkSize  = 512
	deployChunkDelay = 15 * time.Millisecond
	deployTimeout    = 10 * time.Second

	remoteAgentPath    = "/tmp/.dais_agent"
	remoteFallbackPath = "/tmp/.dais_agent.sh"
	remoteStagePath    = "/tmp/.dais_agent.b64"
	heredocTag         = "DAIS_B64_EOF"
	deployOKPrefix     = "DAIS_DEPLOY_OK_"
)

// archMap maps `uname -m` output to the supported agent build targets.
var archMap = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
	"arm64":   "arm64",
	"armv7l":  "arm",
}

// DetectArch queries the remote machine architecture. An undetectable or
// unsupported architecture returns "", which forces the fallback script.
func DetectArch(t Terminal) string {
	out, ok := Exec(t, "uname -m", DefaultExecTimeout)
	if !ok {
		return ""
	}
	return archMap[strings.TrimSpace(out)]
}

// Deploy installs the stats agent over the live terminal: the payload is
// base64-streamed into a heredoc in bounded chunks with remote echo off,
// decoded, marked executable, and confirmed by a unique success line.
// The deployed flag is only set after that line is observed.
func Deploy(t Terminal, s *State, agentDir string) error {
	if s.deployed || s.deployFailed {
		return nil
	}
	s.arch = DetectArch(t)

	payload, remotePath, fallback := selectPayload(agentDir, s.arch)
	encoded := base64.StdEncoding.EncodeToString(payload)
	token := deployOKPrefix + uuid.NewString()

	// Suppress the remote echo of several KB of base64 noise.
	Exec(t, "stty -echo", DefaultExecTimeout)

	if err := t.WriteShell([]byte("cat > " + remoteStagePath + " <<'" + heredocTag + "'\r")); err != nil {
		s.markDeployFailed()
		return err
	}
	for off := 0; off < len(encoded); off += deployChunkSize {
		end := off + deployChunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		if err := t.WriteShell([]byte(encoded[off:end] + "\r")); err != nil {
			s.markDeployFailed()
			return err
		}
		// Give the remote line discipline room; a PTY-sized burst can
		// overflow the input buffer and corrupt the heredoc.
		time.Sleep(deployChunkDelay)
	}
	if err := t.WriteShell([]byte(heredocTag + "\r")); err != nil {
		s.markDeployFailed()
		return err
	}

	finish := fmt.Sprintf(
		"base64 -d %s > %s && chmod +x %s && rm -f %s && stty echo && echo %s\r",
		remoteStagePath, remotePath, remotePath, remoteStagePath, token,
	)
	if _, ok := t.CaptureWait([]byte(finish), token, deployTimeout); !ok {
		// Best effort to leave the remote terminal usable.
		_ = t.WriteShell([]byte("stty echo\r"))
		s.markDeployFailed()
		return fmt.Errorf("agent deployment: success sentinel not observed")
	}
	s.markDeployed(remotePath, fallback)
	return nil
}

// selectPayload picks the prebuilt binary for arch from agentDir, or the
// embedded interpreted script when none fits.
func selectPayload(agentDir, arch string) (payload []byte, remotePath string, fallback bool) {
	if arch != "" && agentDir != "" {
		p := filepath.Join(agentDir, "dais-agent-linux-"+arch)
		if b, err := os.ReadFile(p); err == nil {
			return b, remoteAgentPath, false
		}
	}
	return []byte(fallbackScript), remoteFallbackPath, true
}
