package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ProcessName returns the executable name for pid, or "" when it cannot
// be determined. Uses /proc where available, fallback to ps elsewhere.
func ProcessName(pid int) string {
	if pid <= 0 {
		return ""
	}
	if b, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid)); err == nil {
		return strings.TrimSpace(string(b))
	}
	out, err := exec.Command("ps", "-o", "comm=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return ""
	}
	return filepath.Base(strings.TrimSpace(string(out)))
}

// Basename strips the directory from a command path, tolerating empty
// input. Used to classify the user's $SHELL.
func Basename(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
